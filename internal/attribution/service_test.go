package attribution

import (
	"context"
	"testing"

	"engage_backend/platform/db"
	"engage_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeOfferingSource struct {
	offerings      []Offering
	searchResult   *Offering
	searchKeywords []string
}

func (f *fakeOfferingSource) ListOfferings(ctx context.Context, q db.Querier, tenantID uuid.UUID) ([]Offering, error) {
	return f.offerings, nil
}

func (f *fakeOfferingSource) SearchByKeywords(ctx context.Context, q db.Querier, tenantID uuid.UUID, keywords []string) (Offering, bool, error) {
	f.searchKeywords = keywords
	if f.searchResult == nil {
		return Offering{}, false, nil
	}
	return *f.searchResult, true, nil
}

func newTestService(offerings ...Offering) (*Service, *fakeOfferingSource) {
	source := &fakeOfferingSource{offerings: offerings}
	return New(source, logger.New("development")), source
}

func TestResolveDirectLinkWins(t *testing.T) {
	postID := uuid.New()
	linked := makeOffering("Summer Dress", "dress")
	linked.PostID = &postID
	svc, _ := newTestService(linked)

	result, err := svc.Resolve(context.Background(), nil, uuid.New(), Input{
		PostID: &postID,
		Text:   "I want the summer dress",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Method != MethodDirectLink {
		t.Fatalf("method = %s, want %s", result.Method, MethodDirectLink)
	}
	if result.Confidence != 95 {
		t.Fatalf("confidence = %d, want 95", result.Confidence)
	}
	if result.OfferingID == nil || *result.OfferingID != linked.ID {
		t.Fatal("expected linked offering to resolve from the post")
	}
}

func TestResolveReferralBeatsTextMatch(t *testing.T) {
	dress := makeOffering("Summer Dress", "dress")
	svc, _ := newTestService(dress)

	// The text names an offering, but structured referral data takes priority.
	result, err := svc.Resolve(context.Background(), nil, uuid.New(), Input{
		Referral: &Referral{AdID: "ad-1", SourceChannel: "instagram_story"},
		Text:     "saw your summer dress ad",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Method != MethodReferral {
		t.Fatalf("method = %s, want %s", result.Method, MethodReferral)
	}
	if result.Confidence != 100 {
		t.Fatalf("referral confidence = %d, want 100", result.Confidence)
	}
	if result.SourceChannel == nil || *result.SourceChannel != "instagram_story" {
		t.Fatal("expected referral source channel to carry through")
	}
}

func TestResolveReferralRefCodeResolvesOffering(t *testing.T) {
	dress := makeOffering("Summer Dress", "dress")
	svc, _ := newTestService(dress)

	result, err := svc.Resolve(context.Background(), nil, uuid.New(), Input{
		Referral: &Referral{RefCode: "dress"},
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.OfferingID == nil || *result.OfferingID != dress.ID {
		t.Fatal("expected ref code to resolve the offering")
	}
}

func TestResolveContentMatch(t *testing.T) {
	dress := makeOffering("Summer Dress", "dress")
	svc, _ := newTestService(dress)

	result, err := svc.Resolve(context.Background(), nil, uuid.New(), Input{
		Text: "is the summer dress available in medium",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Method != MethodContent {
		t.Fatalf("method = %s, want %s", result.Method, MethodContent)
	}
	if result.OfferingID == nil || *result.OfferingID != dress.ID {
		t.Fatal("expected content match to resolve the offering")
	}
}

func TestResolveKeywordFallback(t *testing.T) {
	svc, source := newTestService()
	searched := makeOffering("Handmade Bag", "bag")
	source.searchResult = &searched

	result, err := svc.Resolve(context.Background(), nil, uuid.New(), Input{
		Text: "looking for handbag recommendations",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Method != MethodKeyword {
		t.Fatalf("method = %s, want %s", result.Method, MethodKeyword)
	}
	if result.Confidence != 50 {
		t.Fatalf("keyword fallback confidence = %d, want 50", result.Confidence)
	}
	if len(source.searchKeywords) == 0 {
		t.Fatal("expected extracted keywords to reach the search")
	}
}

func TestResolveNoMatch(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Resolve(context.Background(), nil, uuid.New(), Input{
		Text: "what time do you open",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Method != MethodNone || result.Confidence != 0 {
		t.Fatalf("expected no attribution, got %s with confidence %d", result.Method, result.Confidence)
	}
}
