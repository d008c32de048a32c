package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"engage_backend/internal/events"
	"engage_backend/internal/scoring"
	"engage_backend/internal/shared/channel"
	"engage_backend/platform/ai/classifier"
	"engage_backend/platform/db"
	"engage_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	interaction Interaction
	tenantCtx   TenantContext
	model       string
	verdicts    []Verdict
	txCalls     int
}

func (f *fakeStore) RunInTx(ctx context.Context, fn func(q db.Querier) error) error {
	f.txCalls++
	return fn(nil)
}

func (f *fakeStore) GetInteraction(ctx context.Context, tenantID, interactionID uuid.UUID) (Interaction, error) {
	return f.interaction, nil
}

func (f *fakeStore) GetTenantContext(ctx context.Context, tenantID uuid.UUID) (TenantContext, error) {
	return f.tenantCtx, nil
}

func (f *fakeStore) GetModelOverride(ctx context.Context, tenantID uuid.UUID) (string, error) {
	return f.model, nil
}

func (f *fakeStore) SaveVerdict(ctx context.Context, q db.Querier, interactionID uuid.UUID, v Verdict) error {
	f.verdicts = append(f.verdicts, v)
	return nil
}

type fakeClassifier struct {
	result   classifier.Result
	err      error
	lastCtx  classifier.Context
	lastText string
}

func (f *fakeClassifier) Analyze(ctx context.Context, text string, tenantCtx classifier.Context) (classifier.Result, error) {
	f.lastText = text
	f.lastCtx = tenantCtx
	if f.err != nil {
		return classifier.Result{}, f.err
	}
	return f.result, nil
}

type fakeScorer struct {
	change scoring.Change
	calls  int
	signal scoring.Signal
}

func (f *fakeScorer) Apply(ctx context.Context, q db.Querier, customerID uuid.UUID, signal scoring.Signal) (scoring.Change, error) {
	f.calls++
	f.signal = signal
	return f.change, nil
}

func baseInteraction(customerID *uuid.UUID) Interaction {
	return Interaction{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		CustomerID: customerID,
		Type:       channel.TypeDM,
		Text:       "is the summer dress available",
		OccurredAt: time.Now(),
	}
}

func newAnalysisHarness(interaction Interaction) (*Service, *fakeStore, *fakeClassifier, *fakeScorer) {
	store := &fakeStore{
		interaction: interaction,
		tenantCtx:   TenantContext{BusinessName: "Kathmandu Threads", Language: "ne"},
	}
	cls := &fakeClassifier{result: classifier.Result{Intent: "Purchase", Confidence: 88, Sentiment: "Positive", Suggestion: "Yes!"}}
	scorer := &fakeScorer{change: scoring.Change{OldScore: 0, NewScore: 110, OldStatus: channel.StatusCold, NewStatus: channel.StatusWarm}}
	log := logger.New("development")
	svc := New(store, cls, scorer, events.NewInMemoryBus(log), log)
	return svc, store, cls, scorer
}

func TestAnalyzeInteractionWritesVerdictAndScores(t *testing.T) {
	customerID := uuid.New()
	interaction := baseInteraction(&customerID)
	svc, store, cls, scorer := newAnalysisHarness(interaction)

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err != nil {
		t.Fatalf("AnalyzeInteraction failed: %v", err)
	}

	if len(store.verdicts) != 1 {
		t.Fatalf("expected one verdict, got %d", len(store.verdicts))
	}
	verdict := store.verdicts[0]
	if verdict.Intent != "purchase" {
		t.Fatalf("intent must be normalized lowercase, got %q", verdict.Intent)
	}
	if verdict.IsSpam {
		t.Fatal("purchase is not spam")
	}
	if verdict.FlagLowConfidence {
		t.Fatal("confidence 88 must not be flagged low")
	}
	if scorer.calls != 1 {
		t.Fatalf("expected one scoring application, got %d", scorer.calls)
	}
	if scorer.signal.InteractionType != channel.TypeDM {
		t.Fatal("interaction type must reach the scorer")
	}
	if store.txCalls != 1 {
		t.Fatal("verdict and score must share one transaction")
	}
	if cls.lastCtx.BusinessName != "Kathmandu Threads" {
		t.Fatal("tenant context must reach the classifier")
	}
}

func TestAnalyzeInteractionLowConfidenceFlagged(t *testing.T) {
	customerID := uuid.New()
	interaction := baseInteraction(&customerID)
	svc, store, cls, _ := newAnalysisHarness(interaction)
	cls.result = classifier.Result{Intent: "inquiry", Confidence: 42, Sentiment: "neutral"}

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err != nil {
		t.Fatalf("AnalyzeInteraction failed: %v", err)
	}
	if !store.verdicts[0].FlagLowConfidence {
		t.Fatal("confidence below 70 must be flagged")
	}
}

func TestAnalyzeInteractionSpamDetected(t *testing.T) {
	customerID := uuid.New()
	interaction := baseInteraction(&customerID)
	svc, store, cls, _ := newAnalysisHarness(interaction)
	cls.result = classifier.Result{Intent: "SPAM", Confidence: 95, Sentiment: "neutral"}

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err != nil {
		t.Fatalf("AnalyzeInteraction failed: %v", err)
	}
	if !store.verdicts[0].IsSpam {
		t.Fatal("spam intent must set the spam flag")
	}
}

func TestAnalyzeInteractionWithoutCustomerSkipsScoring(t *testing.T) {
	interaction := baseInteraction(nil)
	svc, store, _, scorer := newAnalysisHarness(interaction)

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err != nil {
		t.Fatalf("AnalyzeInteraction failed: %v", err)
	}
	if len(store.verdicts) != 1 {
		t.Fatal("verdict must still persist without a customer")
	}
	if scorer.calls != 0 {
		t.Fatal("scoring must be skipped without a customer")
	}
}

func TestAnalyzeInteractionFallbackBusinessName(t *testing.T) {
	customerID := uuid.New()
	interaction := baseInteraction(&customerID)
	svc, store, cls, _ := newAnalysisHarness(interaction)
	store.tenantCtx = TenantContext{}

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err != nil {
		t.Fatalf("AnalyzeInteraction failed: %v", err)
	}
	if cls.lastCtx.BusinessName != fallbackBusinessName {
		t.Fatalf("expected fallback business name, got %q", cls.lastCtx.BusinessName)
	}
}

func TestAnalyzeInteractionModelOverride(t *testing.T) {
	customerID := uuid.New()
	interaction := baseInteraction(&customerID)
	svc, store, cls, _ := newAnalysisHarness(interaction)
	store.model = "gemini-exp"

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err != nil {
		t.Fatalf("AnalyzeInteraction failed: %v", err)
	}
	if cls.lastCtx.Model != "gemini-exp" {
		t.Fatalf("expected model override, got %q", cls.lastCtx.Model)
	}
}

func TestAnalyzeInteractionTextlessStillScores(t *testing.T) {
	// A like carries no text to classify but its type weight still has to
	// move the score.
	customerID := uuid.New()
	interaction := baseInteraction(&customerID)
	interaction.Type = channel.TypeLike
	interaction.Text = ""
	svc, store, cls, scorer := newAnalysisHarness(interaction)

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err != nil {
		t.Fatalf("AnalyzeInteraction failed: %v", err)
	}
	if len(store.verdicts) != 0 {
		t.Fatal("no classification for empty text")
	}
	if cls.lastText != "" {
		t.Fatal("classifier must not be called for empty text")
	}
	if scorer.calls != 1 {
		t.Fatalf("expected one scoring application, got %d", scorer.calls)
	}
	if scorer.signal.Intent != "other" || scorer.signal.Confidence != 100 {
		t.Fatalf("unexpected engagement signal %+v", scorer.signal)
	}
	if scorer.signal.InteractionType != channel.TypeLike {
		t.Fatal("the interaction type must reach the scorer")
	}
	if store.txCalls != 1 {
		t.Fatal("the score update must run in a transaction")
	}
}

func TestAnalyzeInteractionTextlessAnonymousSkipsScoring(t *testing.T) {
	interaction := baseInteraction(nil)
	interaction.Type = channel.TypeShare
	interaction.Text = ""
	svc, _, _, scorer := newAnalysisHarness(interaction)

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err != nil {
		t.Fatalf("AnalyzeInteraction failed: %v", err)
	}
	if scorer.calls != 0 {
		t.Fatal("no customer means nothing to score")
	}
}

func TestAnalyzeInteractionTextlessScoresWithDisabledClassifier(t *testing.T) {
	customerID := uuid.New()
	interaction := baseInteraction(&customerID)
	interaction.Type = channel.TypeLike
	interaction.Text = ""
	store := &fakeStore{interaction: interaction}
	scorer := &fakeScorer{}
	log := logger.New("development")
	svc := New(store, nil, scorer, events.NewInMemoryBus(log), log)

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err != nil {
		t.Fatalf("AnalyzeInteraction failed: %v", err)
	}
	if scorer.calls != 1 {
		t.Fatal("engagement scoring must not depend on the classifier")
	}
}

func TestAnalyzeInteractionDisabledClassifier(t *testing.T) {
	customerID := uuid.New()
	interaction := baseInteraction(&customerID)
	store := &fakeStore{interaction: interaction}
	log := logger.New("development")
	svc := New(store, nil, &fakeScorer{}, events.NewInMemoryBus(log), log)

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err != nil {
		t.Fatalf("disabled classifier must no-op, got %v", err)
	}
	if len(store.verdicts) != 0 {
		t.Fatal("no verdict without a classifier")
	}
}

func TestAnalyzeInteractionClassifierErrorPropagates(t *testing.T) {
	customerID := uuid.New()
	interaction := baseInteraction(&customerID)
	svc, store, cls, _ := newAnalysisHarness(interaction)
	cls.err = errors.New("provider down")

	if err := svc.AnalyzeInteraction(context.Background(), interaction.TenantID, interaction.ID); err == nil {
		t.Fatal("expected classifier error to propagate for retry")
	}
	if len(store.verdicts) != 0 {
		t.Fatal("no verdict on classifier failure")
	}
}
