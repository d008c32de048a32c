// Package service orchestrates ingestion: one batch of normalized platform
// events becomes posts, customer profiles, attributed interactions, and stats
// updates inside a single transaction.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"engage_backend/internal/attribution"
	catalogrepo "engage_backend/internal/catalog/repository"
	"engage_backend/internal/events"
	identityrepo "engage_backend/internal/identity/repository"
	identitysvc "engage_backend/internal/identity/service"
	"engage_backend/internal/ingestion/repository"
	"engage_backend/internal/shared/channel"
	"engage_backend/platform/apperr"
	"engage_backend/platform/db"
	"engage_backend/platform/logger"

	"github.com/google/uuid"
)

// urgentKeywords flag interactions a human should look at before the
// classifier verdict lands. Matched case-insensitively as substrings.
var urgentKeywords = []string{
	"urgent",
	"asap",
	"payment",
	"sent money",
	"check dm",
	"check inbox",
}

// SenderInput identifies the platform account behind an event.
type SenderInput struct {
	Username       string
	PlatformUserID string
	Phone          string
	DisplayName    string
}

// EventInput is one normalized platform event within a batch.
type EventInput struct {
	ExternalID     string
	Platform       channel.Platform
	Type           channel.InteractionType
	Verb           channel.Verb
	Text           string
	MediaURLs      []string
	Sender         SenderInput
	PostExternalID string
	PostReference  string
	Referral       *attribution.Referral
	OccurredAt     time.Time
}

// Batch is the unit of ingestion work.
type Batch struct {
	TenantID           uuid.UUID
	ConnectedAccountID *uuid.UUID
	Posts              []catalogrepo.PostUpsert
	Events             []EventInput
}

// Result summarizes one committed batch.
type Result struct {
	PostsUpserted   int
	Processed       int
	NewInteractions int
	Deleted         int64
	AnalysisQueued  int
}

// TxRunner opens the ingestion transaction. Satisfied by repository.TxRunner.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(q db.Querier) error) error
}

// PostStore upserts tenant posts within the batch transaction.
type PostStore interface {
	UpsertPosts(ctx context.Context, q db.Querier, tenantID uuid.UUID, posts []catalogrepo.PostUpsert) (map[string]uuid.UUID, error)
}

// IdentityResolver maps senders to customer profiles.
type IdentityResolver interface {
	FindOrCreate(ctx context.Context, q db.Querier, in identitysvc.ResolveInput) (identityrepo.Customer, bool, error)
	RecordInteraction(ctx context.Context, q db.Querier, customerID uuid.UUID, intent *string) error
}

// AttributionResolver decides which post and offering an event is about.
type AttributionResolver interface {
	Resolve(ctx context.Context, q db.Querier, tenantID uuid.UUID, in attribution.Input) (attribution.Result, error)
}

// StatsIncrementer is the counter-cache fast path.
type StatsIncrementer interface {
	IncrementIngested(ctx context.Context, q db.Querier, tenantID uuid.UUID, newCount int, byPlatform map[channel.Platform]int) error
}

// InteractionStore persists interaction rows. Satisfied by
// repository.Repository.
type InteractionStore interface {
	UpsertInteractions(ctx context.Context, q db.Querier, tenantID uuid.UUID, rows []repository.InteractionUpsert) ([]repository.UpsertOutcome, error)
	DeleteInteractions(ctx context.Context, q db.Querier, tenantID uuid.UUID, platform channel.Platform, externalIDs []string) (int64, error)
	TouchAccount(ctx context.Context, q db.Querier, accountID uuid.UUID) error
}

// AnalysisEnqueuer hands committed interactions to the analysis queue.
type AnalysisEnqueuer interface {
	EnqueueAnalysis(ctx context.Context, tenantID, interactionID uuid.UUID) error
}

// Service runs ingestion batches.
type Service struct {
	tx           TxRunner
	posts        PostStore
	interactions InteractionStore
	identity     IdentityResolver
	attribution  AttributionResolver
	stats        StatsIncrementer
	analysis     AnalysisEnqueuer
	bus          events.Bus
	log          *logger.Logger
}

func New(
	tx TxRunner,
	posts PostStore,
	interactions InteractionStore,
	identity IdentityResolver,
	attr AttributionResolver,
	stats StatsIncrementer,
	analysis AnalysisEnqueuer,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		tx:           tx,
		posts:        posts,
		interactions: interactions,
		identity:     identity,
		attribution:  attr,
		stats:        stats,
		analysis:     analysis,
		bus:          bus,
		log:          log,
	}
}

// IngestBatch processes one batch atomically: posts are upserted first so
// interactions can reference them, removals run before upserts, and the stats
// fast path counts only rows that were genuinely inserted. Re-delivering the
// same batch converges on the same end state. Analysis enqueueing and event
// publication happen only after the transaction commits.
func (s *Service) IngestBatch(ctx context.Context, batch Batch) (Result, error) {
	if batch.TenantID == uuid.Nil {
		return Result{}, apperr.Validation("tenant id is required")
	}

	started := time.Now()
	var (
		result    Result
		toAnalyze []uuid.UUID
	)

	err := s.tx.RunInTx(ctx, func(q db.Querier) error {
		postIDs, err := s.posts.UpsertPosts(ctx, q, batch.TenantID, batch.Posts)
		if err != nil {
			return err
		}
		result.PostsUpserted = len(postIDs)

		removals := map[channel.Platform][]string{}
		upserts := make([]repository.InteractionUpsert, 0, len(batch.Events))

		for _, event := range batch.Events {
			if event.Verb == channel.VerbRemove {
				removals[event.Platform] = append(removals[event.Platform], event.ExternalID)
				continue
			}

			row, err := s.prepareEvent(ctx, q, batch.TenantID, postIDs, event)
			if err != nil {
				return err
			}
			upserts = append(upserts, row)
		}

		for platform, externalIDs := range removals {
			deleted, err := s.interactions.DeleteInteractions(ctx, q, batch.TenantID, platform, externalIDs)
			if err != nil {
				return err
			}
			result.Deleted += deleted
		}

		outcomes, err := s.interactions.UpsertInteractions(ctx, q, batch.TenantID, upserts)
		if err != nil {
			return err
		}
		result.Processed = len(outcomes)

		byPlatform := map[channel.Platform]int{}
		for i, outcome := range outcomes {
			if outcome.Inserted {
				result.NewInteractions++
				byPlatform[upserts[i].Platform]++
			}
			toAnalyze = append(toAnalyze, outcome.ID)
		}

		if err := s.stats.IncrementIngested(ctx, q, batch.TenantID, result.NewInteractions, byPlatform); err != nil {
			return err
		}

		if batch.ConnectedAccountID != nil {
			if err := s.interactions.TouchAccount(ctx, q, *batch.ConnectedAccountID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return Result{}, err
	}

	for _, id := range toAnalyze {
		if err := s.analysis.EnqueueAnalysis(ctx, batch.TenantID, id); err != nil {
			// The row is committed; a failed enqueue is recovered by the
			// next reconcile-driven sweep, not by failing the batch.
			s.log.Error("analysis enqueue failed", "tenant_id", batch.TenantID, "interaction_id", id, "error", err)
			continue
		}
		result.AnalysisQueued++
	}

	s.bus.Publish(ctx, events.IngestionCompleted{
		BaseEvent:       events.NewBaseEvent(),
		TenantID:        batch.TenantID,
		NewInteractions: result.NewInteractions,
	})

	s.log.IngestionBatch(
		batch.TenantID.String(),
		result.PostsUpserted,
		result.Processed,
		result.NewInteractions,
		int(result.Deleted),
		float64(time.Since(started).Milliseconds()),
	)
	return result, nil
}

// prepareEvent turns one add/edit event into an upsert row: urgency flag,
// identity resolution, and attribution.
func (s *Service) prepareEvent(ctx context.Context, q db.Querier, tenantID uuid.UUID, postIDs map[string]uuid.UUID, event EventInput) (repository.InteractionUpsert, error) {
	row := repository.InteractionUpsert{
		ExternalID: event.ExternalID,
		Platform:   event.Platform,
		Type:       event.Type,
		Text:       event.Text,
		MediaURLs:  event.MediaURLs,
		IsUrgent:   IsUrgent(event.Text),
		OccurredAt: event.OccurredAt,
	}

	if event.PostExternalID != "" {
		if id, ok := postIDs[event.PostExternalID]; ok {
			postID := id
			row.PostID = &postID
		}
	}

	customer, _, err := s.identity.FindOrCreate(ctx, q, identitysvc.ResolveInput{
		TenantID:       tenantID,
		Platform:       event.Platform,
		Username:       event.Sender.Username,
		PlatformUserID: event.Sender.PlatformUserID,
		Phone:          event.Sender.Phone,
		DisplayName:    event.Sender.DisplayName,
	})
	switch {
	case err == nil:
		customerID := customer.ID
		row.CustomerID = &customerID
		if err := s.identity.RecordInteraction(ctx, q, customer.ID, nil); err != nil {
			return repository.InteractionUpsert{}, err
		}
	case isNoIdentifier(err):
		// Anonymous engagement still persists; it just has no profile.
		s.log.Debug("event has no strong identifier", "tenant_id", tenantID, "external_id", event.ExternalID, "platform", event.Platform)
	default:
		return repository.InteractionUpsert{}, err
	}

	if needsAttribution(event, row.PostID) {
		attr, err := s.attribution.Resolve(ctx, q, tenantID, attribution.Input{
			PostID:        row.PostID,
			Referral:      event.Referral,
			PostReference: event.PostReference,
			Text:          event.Text,
		})
		if err != nil {
			return repository.InteractionUpsert{}, err
		}
		if attr.Method != attribution.MethodNone {
			method := string(attr.Method)
			confidence := attr.Confidence
			row.AttributionMethod = &method
			row.AttributionConfidence = &confidence
			row.SourceChannel = attr.SourceChannel
			// An inferred source post stays in source_post_id; post_id holds
			// only the literal link the platform delivered.
			row.SourcePostID = attr.SourcePostID
			row.OfferingID = attr.OfferingID
		}
	}

	return row, nil
}

// needsAttribution limits resolver work to events that carry a signal worth
// resolving: a literal post link, structured referral data, a post reference,
// or a conversation type whose text can be matched against the catalog.
// Plain likes and comments with none of these skip the offerings lookup.
func needsAttribution(event EventInput, postID *uuid.UUID) bool {
	if postID != nil {
		return true
	}
	if event.Referral != nil || event.PostReference != "" {
		return true
	}
	return event.Type == channel.TypeDM || event.Type == channel.TypeStoryReply
}

// IsUrgent reports whether the text trips the urgency heuristics.
func IsUrgent(text string) bool {
	if text == "" {
		return false
	}
	lowered := strings.ToLower(text)
	for _, keyword := range urgentKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func isNoIdentifier(err error) bool {
	var appErr *apperr.Error
	return errors.As(err, &appErr) && appErr.Kind == apperr.KindValidation
}
