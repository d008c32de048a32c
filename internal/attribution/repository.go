package attribution

import (
	"context"
	"errors"

	"engage_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OfferingSource supplies catalog data to the resolver. Satisfied by
// Repository; tests substitute a fake.
type OfferingSource interface {
	ListOfferings(ctx context.Context, q db.Querier, tenantID uuid.UUID) ([]Offering, error)
	SearchByKeywords(ctx context.Context, q db.Querier, tenantID uuid.UUID, keywords []string) (Offering, bool, error)
}

// Repository reads offerings for attribution matching. Methods accept a
// db.Querier so lookups stay read-consistent with the ingestion transaction.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) ListOfferings(ctx context.Context, q db.Querier, tenantID uuid.UUID) ([]Offering, error) {
	rows, err := q.Query(ctx, `
		SELECT id, tenant_id, name, keywords, post_id
		FROM offerings
		WHERE tenant_id = $1
		ORDER BY name ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Offering, 0)
	for rows.Next() {
		var item Offering
		if err := rows.Scan(&item.ID, &item.TenantID, &item.Name, &item.Keywords, &item.PostID); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// SearchByKeywords runs the single ILIKE fallback over offering names.
func (r *Repository) SearchByKeywords(ctx context.Context, q db.Querier, tenantID uuid.UUID, keywords []string) (Offering, bool, error) {
	if len(keywords) == 0 {
		return Offering{}, false, nil
	}

	patterns := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		patterns = append(patterns, "%"+kw+"%")
	}

	var item Offering
	err := q.QueryRow(ctx, `
		SELECT id, tenant_id, name, keywords, post_id
		FROM offerings
		WHERE tenant_id = $1 AND name ILIKE ANY($2)
		LIMIT 1
	`, tenantID, patterns).Scan(&item.ID, &item.TenantID, &item.Name, &item.Keywords, &item.PostID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Offering{}, false, nil
	}
	if err != nil {
		return Offering{}, false, err
	}

	return item, true, nil
}

var _ OfferingSource = (*Repository)(nil)
