// Package repository persists interaction rows and owns the ingestion
// transaction boundary.
package repository

import (
	"context"
	"time"

	"engage_backend/internal/shared/channel"
	"engage_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InteractionUpsert is one fully prepared interaction row.
type InteractionUpsert struct {
	ExternalID            string
	Platform              channel.Platform
	Type                  channel.InteractionType
	CustomerID            *uuid.UUID
	PostID                *uuid.UUID
	Text                  string
	MediaURLs             []string
	IsUrgent              bool
	AttributionMethod     *string
	AttributionConfidence *int
	SourceChannel         *string
	SourcePostID          *uuid.UUID
	OfferingID            *uuid.UUID
	OccurredAt            time.Time
}

// UpsertOutcome reports the id of an upserted row and whether it was a
// genuine insert rather than a conflict-update.
type UpsertOutcome struct {
	ID         uuid.UUID
	ExternalID string
	Inserted   bool
}

// TxRunner runs a function inside one pgx transaction.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(q db.Querier) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Repository persists interaction rows. Methods accept a db.Querier so they
// join the caller's transaction.
type Repository struct{}

func New() *Repository {
	return &Repository{}
}

// UpsertInteractions writes a batch of interaction rows. The conflict clause
// makes add and edit the same operation: the incoming row wins the content
// columns, including occurred_at, so add and edit converge on the same end
// state in either order. AI verdict columns are never touched so a late edit
// does not erase an earlier classification. post_id, customer_id, and the
// attribution columns keep an earlier value when the incoming row has none,
// because an edit delivered without its post cannot re-derive them.
// Inserted-vs-updated is read from xmax: a freshly inserted row has no
// updating transaction recorded.
func (r *Repository) UpsertInteractions(ctx context.Context, q db.Querier, tenantID uuid.UUID, rows []InteractionUpsert) ([]UpsertOutcome, error) {
	outcomes := make([]UpsertOutcome, 0, len(rows))

	for _, row := range rows {
		var outcome UpsertOutcome
		err := q.QueryRow(ctx, `
			INSERT INTO interactions (
				tenant_id, platform, external_id, type, customer_id, post_id,
				text, media_urls, is_urgent, attribution_method, attribution_confidence,
				source_channel, source_post_id, offering_id, occurred_at
			) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), COALESCE($8, '{}'), $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (platform, external_id) DO UPDATE SET
				type = EXCLUDED.type,
				customer_id = COALESCE(EXCLUDED.customer_id, interactions.customer_id),
				post_id = COALESCE(EXCLUDED.post_id, interactions.post_id),
				text = EXCLUDED.text,
				media_urls = EXCLUDED.media_urls,
				is_urgent = EXCLUDED.is_urgent,
				attribution_method = COALESCE(EXCLUDED.attribution_method, interactions.attribution_method),
				attribution_confidence = COALESCE(EXCLUDED.attribution_confidence, interactions.attribution_confidence),
				source_channel = COALESCE(EXCLUDED.source_channel, interactions.source_channel),
				source_post_id = COALESCE(EXCLUDED.source_post_id, interactions.source_post_id),
				offering_id = COALESCE(EXCLUDED.offering_id, interactions.offering_id),
				occurred_at = EXCLUDED.occurred_at,
				updated_at = now()
			RETURNING id, (xmax = 0) AS inserted
		`,
			tenantID, row.Platform, row.ExternalID, row.Type, row.CustomerID, row.PostID,
			row.Text, row.MediaURLs, row.IsUrgent, row.AttributionMethod, row.AttributionConfidence,
			row.SourceChannel, row.SourcePostID, row.OfferingID, row.OccurredAt,
		).Scan(&outcome.ID, &outcome.Inserted)
		if err != nil {
			return nil, err
		}
		outcome.ExternalID = row.ExternalID
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// DeleteInteractions removes rows named by a remove verb. Unknown external
// ids are ignored; stats are intentionally not decremented here, the periodic
// reconcile restores exact counts.
func (r *Repository) DeleteInteractions(ctx context.Context, q db.Querier, tenantID uuid.UUID, platform channel.Platform, externalIDs []string) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}

	tag, err := q.Exec(ctx, `
		DELETE FROM interactions
		WHERE tenant_id = $1 AND platform = $2 AND external_id = ANY($3)
	`, tenantID, platform, externalIDs)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// TouchAccount records a successful sync on the source account.
func (r *Repository) TouchAccount(ctx context.Context, q db.Querier, accountID uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE connected_accounts
		SET last_synced_at = now()
		WHERE id = $1
	`, accountID)
	return err
}
