package repository

import (
	"context"

	"engage_backend/platform/db"

	"github.com/google/uuid"
)

// CustomerStore is the persistence port the identity service resolves
// against. Satisfied by Repository; tests substitute a fake.
type CustomerStore interface {
	// FindByIdentifiers returns the first customer matching any of the
	// given strong-identifier conditions, or ErrNotFound.
	FindByIdentifiers(ctx context.Context, q db.Querier, tenantID uuid.UUID, matches []IdentifierMatch) (Customer, error)

	// Create inserts a new customer row. A unique violation means a
	// concurrent writer won the race; callers retry the whole resolve.
	Create(ctx context.Context, q db.Querier, params CreateCustomerParams) (Customer, error)

	// UpdateIdentifiers backfills learned identifiers on an existing profile.
	UpdateIdentifiers(ctx context.Context, q db.Querier, id uuid.UUID, updates IdentifierUpdates) error

	// RecordInteraction bumps the interaction counters on a profile.
	RecordInteraction(ctx context.Context, q db.Querier, customerID uuid.UUID, intent *string) error
}
