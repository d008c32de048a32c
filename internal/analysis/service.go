package analysis

import (
	"context"
	"strings"

	"engage_backend/internal/events"
	"engage_backend/internal/scoring"
	"engage_backend/internal/shared/channel"
	"engage_backend/platform/ai/classifier"
	"engage_backend/platform/db"
	"engage_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	lowConfidenceThreshold = 70
	fallbackBusinessName   = "Valued Customer"

	// Text-less events carry no classifiable intent but are still a real
	// engagement signal; they score as "other" at full confidence and let the
	// interaction type weight decide how much that is worth.
	engagementIntent     = "other"
	engagementConfidence = 100
)

// Classifier is the verdict provider port. Satisfied by *classifier.Client;
// tests substitute a fake.
type Classifier interface {
	Analyze(ctx context.Context, text string, tenantCtx classifier.Context) (classifier.Result, error)
}

// Store is the persistence port for the analysis flow. Satisfied by
// Repository.
type Store interface {
	RunInTx(ctx context.Context, fn func(q db.Querier) error) error
	GetInteraction(ctx context.Context, tenantID, interactionID uuid.UUID) (Interaction, error)
	GetTenantContext(ctx context.Context, tenantID uuid.UUID) (TenantContext, error)
	GetModelOverride(ctx context.Context, tenantID uuid.UUID) (string, error)
	SaveVerdict(ctx context.Context, q db.Querier, interactionID uuid.UUID, v Verdict) error
}

// Scorer folds a verdict into the customer score. Satisfied by
// *scoring.Service.
type Scorer interface {
	Apply(ctx context.Context, q db.Querier, customerID uuid.UUID, signal scoring.Signal) (scoring.Change, error)
}

// Service analyzes one interaction per job.
type Service struct {
	store      Store
	classifier Classifier
	scorer     Scorer
	bus        events.Bus
	log        *logger.Logger
}

func New(store Store, cls Classifier, scorer Scorer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, classifier: cls, scorer: scorer, bus: bus, log: log}
}

// AnalyzeInteraction classifies one interaction and applies the score update
// in the same transaction. Interactions without text (likes, shares) skip the
// classifier entirely but still score as raw engagement. A disabled
// classifier makes classification a logged no-op. Rate-limit errors from the
// provider propagate so the queue backs off.
func (s *Service) AnalyzeInteraction(ctx context.Context, tenantID, interactionID uuid.UUID) error {
	interaction, err := s.store.GetInteraction(ctx, tenantID, interactionID)
	if err != nil {
		return err
	}
	if interaction.Text == "" {
		return s.scoreEngagement(ctx, tenantID, interaction)
	}

	if s.classifier == nil {
		s.log.Debug("classifier disabled, skipping analysis", "interaction_id", interactionID)
		return nil
	}

	tenantCtx, err := s.store.GetTenantContext(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenantCtx.BusinessName == "" {
		s.log.Warn("tenant has no business name, using fallback", "tenant_id", tenantID)
		tenantCtx.BusinessName = fallbackBusinessName
	}

	model, err := s.store.GetModelOverride(ctx, tenantID)
	if err != nil {
		return err
	}

	result, err := s.classifier.Analyze(ctx, interaction.Text, classifier.Context{
		BusinessName: tenantCtx.BusinessName,
		Language:     tenantCtx.Language,
		Model:        model,
	})
	if err != nil {
		return err
	}

	verdict := Verdict{
		Intent:            strings.ToLower(strings.TrimSpace(result.Intent)),
		Confidence:        result.Confidence,
		Sentiment:         strings.ToLower(strings.TrimSpace(result.Sentiment)),
		Suggestion:        result.Suggestion,
		IsSpam:            strings.EqualFold(result.Intent, "spam"),
		FlagLowConfidence: result.Confidence < lowConfidenceThreshold,
	}

	var change *scoring.Change
	err = s.store.RunInTx(ctx, func(q db.Querier) error {
		if err := s.store.SaveVerdict(ctx, q, interactionID, verdict); err != nil {
			return err
		}

		if interaction.CustomerID == nil {
			s.log.Info("analyzed interaction has no customer, skipping scoring", "interaction_id", interactionID)
			return nil
		}

		applied, err := s.scorer.Apply(ctx, q, *interaction.CustomerID, scoring.Signal{
			Intent:          verdict.Intent,
			Confidence:      verdict.Confidence,
			InteractionType: interaction.Type,
			Sentiment:       verdict.Sentiment,
			OccurredAt:      interaction.OccurredAt,
		})
		if err != nil {
			return err
		}
		change = &applied
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, tenantID, interaction, verdict, change)
	return nil
}

// scoreEngagement applies the score contribution of a text-less interaction.
// No verdict is written; there is nothing to classify.
func (s *Service) scoreEngagement(ctx context.Context, tenantID uuid.UUID, interaction Interaction) error {
	if interaction.CustomerID == nil {
		return nil
	}

	var change scoring.Change
	err := s.store.RunInTx(ctx, func(q db.Querier) error {
		applied, err := s.scorer.Apply(ctx, q, *interaction.CustomerID, scoring.Signal{
			Intent:          engagementIntent,
			Confidence:      engagementConfidence,
			InteractionType: interaction.Type,
			OccurredAt:      interaction.OccurredAt,
		})
		if err != nil {
			return err
		}
		change = applied
		return nil
	})
	if err != nil {
		return err
	}

	if statusCrossed(change.OldStatus, change.NewStatus) {
		s.bus.Publish(ctx, events.CustomerScoreChanged{
			BaseEvent:  events.NewBaseEvent(),
			TenantID:   tenantID,
			CustomerID: *interaction.CustomerID,
			OldStatus:  string(change.OldStatus),
			NewStatus:  string(change.NewStatus),
			NewScore:   change.NewScore,
		})
	}
	return nil
}

func (s *Service) publish(ctx context.Context, tenantID uuid.UUID, interaction Interaction, verdict Verdict, change *scoring.Change) {
	analyzed := events.InteractionAnalyzed{
		BaseEvent:     events.NewBaseEvent(),
		TenantID:      tenantID,
		InteractionID: interaction.ID,
		CustomerID:    interaction.CustomerID,
		Intent:        verdict.Intent,
		Sentiment:     verdict.Sentiment,
		Confidence:    verdict.Confidence,
	}
	if change != nil {
		score := change.NewScore
		status := string(change.NewStatus)
		analyzed.NewScore = &score
		analyzed.NewStatus = &status
	}
	s.bus.Publish(ctx, analyzed)

	if change != nil && interaction.CustomerID != nil && statusCrossed(change.OldStatus, change.NewStatus) {
		s.bus.Publish(ctx, events.CustomerScoreChanged{
			BaseEvent:  events.NewBaseEvent(),
			TenantID:   tenantID,
			CustomerID: *interaction.CustomerID,
			OldStatus:  string(change.OldStatus),
			NewStatus:  string(change.NewStatus),
			NewScore:   change.NewScore,
		})
	}
}

func statusCrossed(before, after channel.CustomerStatus) bool {
	return before != after
}
