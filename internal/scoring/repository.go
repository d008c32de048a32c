package scoring

import (
	"context"
	"errors"
	"time"

	"engage_backend/internal/shared/channel"
	"engage_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrCustomerNotFound = errors.New("customer not found")

// Repository reads and writes the score columns of the customers table.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) GetScoreState(ctx context.Context, q db.Querier, customerID uuid.UUID) (ScoreState, error) {
	var state ScoreState
	err := q.QueryRow(ctx, `
		SELECT total_lead_score, status, last_interaction_at
		FROM customers
		WHERE id = $1
	`, customerID).Scan(&state.Score, &state.Status, &state.LastInteractionAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScoreState{}, ErrCustomerNotFound
	}
	return state, err
}

func (r *Repository) UpdateScore(ctx context.Context, q db.Querier, customerID uuid.UUID, score int, status channel.CustomerStatus, intent string, at time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE customers
		SET total_lead_score = $2,
			status = $3,
			last_intent = $4,
			last_interaction_at = $5,
			updated_at = now()
		WHERE id = $1
	`, customerID, score, status, intent, at)
	return err
}

var _ CustomerScoreStore = (*Repository)(nil)
