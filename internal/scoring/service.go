package scoring

import (
	"context"
	"time"

	"engage_backend/internal/shared/channel"
	"engage_backend/platform/db"
	"engage_backend/platform/logger"

	"github.com/google/uuid"
)

// ScoreState is the slice of a customer row scoring reads and writes.
type ScoreState struct {
	Score             int
	Status            channel.CustomerStatus
	LastInteractionAt *time.Time
}

// CustomerScoreStore is the persistence port for score updates. Satisfied by
// Repository; tests substitute a fake.
type CustomerScoreStore interface {
	GetScoreState(ctx context.Context, q db.Querier, customerID uuid.UUID) (ScoreState, error)
	UpdateScore(ctx context.Context, q db.Querier, customerID uuid.UUID, score int, status channel.CustomerStatus, intent string, at time.Time) error
}

// Signal is the analyzed-interaction input to a score update.
type Signal struct {
	Intent          string
	Confidence      int
	InteractionType channel.InteractionType
	Sentiment       string
	OccurredAt      time.Time
}

// Change reports the outcome of one score application.
type Change struct {
	OldScore  int
	NewScore  int
	Delta     int
	OldStatus channel.CustomerStatus
	NewStatus channel.CustomerStatus
}

// Service applies score updates to customer profiles.
type Service struct {
	store CustomerScoreStore
	log   *logger.Logger
}

func New(store CustomerScoreStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Apply decays the stored score to now, adds the signal's delta, clamps, and
// re-derives the status. It runs on the caller's querier so the score update
// commits atomically with the triggering analysis write. A CONVERTED
// customer keeps that status regardless of score.
func (s *Service) Apply(ctx context.Context, q db.Querier, customerID uuid.UUID, signal Signal) (Change, error) {
	state, err := s.store.GetScoreState(ctx, q, customerID)
	if err != nil {
		return Change{}, err
	}

	days := 0.0
	if state.LastInteractionAt != nil {
		days = signal.OccurredAt.Sub(*state.LastInteractionAt).Hours() / 24.0
	}

	decayed := DecayedScore(state.Score, days)
	delta := Delta(signal.Intent, signal.Confidence, signal.InteractionType, signal.Sentiment)
	newScore := Clamp(decayed + delta)

	newStatus := StatusFor(newScore)
	if state.Status == channel.StatusConverted {
		newStatus = channel.StatusConverted
	}

	if err := s.store.UpdateScore(ctx, q, customerID, newScore, newStatus, signal.Intent, signal.OccurredAt); err != nil {
		return Change{}, err
	}

	return Change{
		OldScore:  state.Score,
		NewScore:  newScore,
		Delta:     delta,
		OldStatus: state.Status,
		NewStatus: newStatus,
	}, nil
}
