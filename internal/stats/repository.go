// Package stats maintains the per-tenant interaction counter cache: a fast
// incremental path at ingestion time and an exact periodic recompute that
// heals whatever drift the fast path accumulates.
package stats

import (
	"context"
	"encoding/json"

	"engage_backend/internal/shared/channel"
	"engage_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the tenant_stats cache. The cache is never
// authoritative; it is always reconstructible from interaction rows.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IncrementIngested is the fast path: atomic SQL increments, never
// read-modify-write in application code, so concurrent batches cannot lose
// updates. Called only with genuinely new interaction counts.
func (r *Repository) IncrementIngested(ctx context.Context, q db.Querier, tenantID uuid.UUID, newCount int, byPlatform map[channel.Platform]int) error {
	if newCount <= 0 {
		return nil
	}

	platformDelta, err := json.Marshal(byPlatform)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO tenant_stats (tenant_id, total_interactions, unanswered_count, by_platform)
		VALUES ($1, $2, $2, $3)
		ON CONFLICT (tenant_id) DO UPDATE SET
			total_interactions = tenant_stats.total_interactions + EXCLUDED.total_interactions,
			unanswered_count = tenant_stats.unanswered_count + EXCLUDED.unanswered_count,
			by_platform = (
				SELECT COALESCE(jsonb_object_agg(key, COALESCE((tenant_stats.by_platform->>key)::int, 0) + COALESCE((EXCLUDED.by_platform->>key)::int, 0)), '{}'::jsonb)
				FROM (
					SELECT jsonb_object_keys(tenant_stats.by_platform) AS key
					UNION
					SELECT jsonb_object_keys(EXCLUDED.by_platform)
				) keys
			),
			updated_at = now()
	`, tenantID, newCount, platformDelta)
	return err
}

// Reconcile is the repair path: recompute every counter from first
// principles over the interaction rows and overwrite the cache
// unconditionally. This is what heals drift from deletes and from edits that
// change bucket membership.
func (r *Repository) Reconcile(ctx context.Context, tenantID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tenant_stats (tenant_id, total_interactions, unanswered_count, by_platform, by_type, by_intent, updated_at)
		SELECT
			$1,
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT is_replied),
			COALESCE((SELECT jsonb_object_agg(platform, cnt) FROM (SELECT platform, COUNT(*) AS cnt FROM interactions WHERE tenant_id = $1 GROUP BY platform) p), '{}'::jsonb),
			COALESCE((SELECT jsonb_object_agg(type, cnt) FROM (SELECT type, COUNT(*) AS cnt FROM interactions WHERE tenant_id = $1 GROUP BY type) t), '{}'::jsonb),
			COALESCE((SELECT jsonb_object_agg(ai_intent, cnt) FROM (SELECT ai_intent, COUNT(*) AS cnt FROM interactions WHERE tenant_id = $1 AND ai_intent IS NOT NULL GROUP BY ai_intent) i), '{}'::jsonb),
			now()
		FROM interactions
		WHERE tenant_id = $1
		ON CONFLICT (tenant_id) DO UPDATE SET
			total_interactions = EXCLUDED.total_interactions,
			unanswered_count = EXCLUDED.unanswered_count,
			by_platform = EXCLUDED.by_platform,
			by_type = EXCLUDED.by_type,
			by_intent = EXCLUDED.by_intent,
			updated_at = EXCLUDED.updated_at
	`, tenantID)
	return err
}

// ListTenantIDs returns every tenant with at least one interaction or an
// existing stats row, for the reconciliation sweep.
func (r *Repository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tenant_id FROM tenant_stats
		UNION
		SELECT DISTINCT tenant_id FROM interactions
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
