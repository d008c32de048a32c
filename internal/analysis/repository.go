// Package analysis runs the classifier over committed interactions and folds
// the verdict into the customer's lead score.
package analysis

import (
	"context"
	"errors"
	"time"

	"engage_backend/internal/shared/channel"
	"engage_backend/platform/apperr"
	"engage_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Interaction is the analysis view of one interaction row.
type Interaction struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	CustomerID *uuid.UUID
	Type       channel.InteractionType
	Text       string
	OccurredAt time.Time
	AIIntent   *string
}

// TenantContext is the classification context loaded per tenant.
type TenantContext struct {
	BusinessName string
	Language     string
}

// Verdict is what gets written back onto the interaction row.
type Verdict struct {
	Intent            string
	Confidence        int
	Sentiment         string
	Suggestion        string
	IsSpam            bool
	FlagLowConfidence bool
}

// Repository loads analysis inputs and persists verdicts.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RunInTx runs fn inside one transaction so the verdict write and the score
// update commit together.
func (r *Repository) RunInTx(ctx context.Context, fn func(q db.Querier) error) error {
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

// GetInteraction loads one interaction scoped to its tenant.
func (r *Repository) GetInteraction(ctx context.Context, tenantID, interactionID uuid.UUID) (Interaction, error) {
	var item Interaction
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, customer_id, type, COALESCE(text, ''), occurred_at, ai_intent
		FROM interactions
		WHERE id = $1 AND tenant_id = $2
	`, interactionID, tenantID).Scan(
		&item.ID, &item.TenantID, &item.CustomerID, &item.Type, &item.Text, &item.OccurredAt, &item.AIIntent,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Interaction{}, apperr.NotFound("interaction not found")
	}
	return item, err
}

// GetTenantContext loads the classification context for a tenant.
func (r *Repository) GetTenantContext(ctx context.Context, tenantID uuid.UUID) (TenantContext, error) {
	var tc TenantContext
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(business_name, ''), COALESCE(language, '')
		FROM tenants
		WHERE id = $1
	`, tenantID).Scan(&tc.BusinessName, &tc.Language)
	if errors.Is(err, pgx.ErrNoRows) {
		return TenantContext{}, nil
	}
	return tc, err
}

// GetModelOverride returns the per-tenant classifier model, if any.
func (r *Repository) GetModelOverride(ctx context.Context, tenantID uuid.UUID) (string, error) {
	var model string
	err := r.pool.QueryRow(ctx, `
		SELECT model
		FROM ai_model_overrides
		WHERE tenant_id = $1
	`, tenantID).Scan(&model)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return model, err
}

// SaveVerdict writes the classifier outcome onto the interaction row.
func (r *Repository) SaveVerdict(ctx context.Context, q db.Querier, interactionID uuid.UUID, v Verdict) error {
	_, err := q.Exec(ctx, `
		UPDATE interactions
		SET ai_intent = $2,
			ai_confidence = $3,
			ai_sentiment = $4,
			ai_suggestion = NULLIF($5, ''),
			is_spam = $6,
			flag_low_confidence = $7,
			analyzed_at = now(),
			updated_at = now()
		WHERE id = $1
	`, interactionID, v.Intent, v.Confidence, v.Sentiment, v.Suggestion, v.IsSpam, v.FlagLowConfidence)
	return err
}
