package attribution

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// Confidence assigned per attribution method. A direct post link beats
	// everything; referral data is trusted unconditionally.
	confidenceDirectLink    = 95
	confidencePostReference = 75
	confidenceKeywordSearch = 50

	postReferenceThreshold = 50
	contentScoreThreshold  = 20
	contentConfidenceCap   = 90

	keywordHitScore  = 20
	nameHitScore     = 30
	nameWordHitScore = 10
	nameWordMinLen   = 3
)

// Offering is the matcher's view of a catalog item.
type Offering struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Keywords []string
	PostID   *uuid.UUID
}

// OfferingMatch is a scored candidate.
type OfferingMatch struct {
	Offering   Offering
	Score      int
	Confidence int
}

// MatchPostReference matches free text that plausibly names a post (an echoed
// campaign keyword) against the catalog: exact keyword-array containment or
// name substring, fixed confidence. Caption-level fuzzy full-text search is
// deliberately not performed here; it matched generic words like "price" to
// unrelated posts.
func MatchPostReference(reference string, offerings []Offering) (OfferingMatch, bool) {
	ref := strings.ToLower(strings.TrimSpace(reference))
	if ref == "" {
		return OfferingMatch{}, false
	}

	for _, offering := range offerings {
		matched := false
		for _, keyword := range offering.Keywords {
			if strings.ToLower(keyword) == ref {
				matched = true
				break
			}
		}
		if !matched && offering.Name != "" && strings.Contains(strings.ToLower(offering.Name), ref) {
			matched = true
		}
		if matched && confidencePostReference >= postReferenceThreshold {
			return OfferingMatch{Offering: offering, Score: confidencePostReference, Confidence: confidencePostReference}, true
		}
	}

	return OfferingMatch{}, false
}

// MatchOffering scores every offering against the raw message text and
// returns the best candidate: +20 per keyword substring hit, +30 for a full
// name substring hit, +10 per offering-name word longer than three runes
// found in the message. Accepted at score >= 20 with confidence capped at 90.
func MatchOffering(text string, offerings []Offering) (OfferingMatch, bool) {
	haystack := strings.ToLower(text)
	if strings.TrimSpace(haystack) == "" {
		return OfferingMatch{}, false
	}

	var best OfferingMatch
	for _, offering := range offerings {
		score := scoreOffering(haystack, offering)
		if score > best.Score {
			best = OfferingMatch{Offering: offering, Score: score}
		}
	}

	if best.Score < contentScoreThreshold {
		return OfferingMatch{}, false
	}

	best.Confidence = best.Score
	if best.Confidence > contentConfidenceCap {
		best.Confidence = contentConfidenceCap
	}
	return best, true
}

func scoreOffering(haystack string, offering Offering) int {
	score := 0

	for _, keyword := range offering.Keywords {
		kw := strings.ToLower(strings.TrimSpace(keyword))
		if kw != "" && strings.Contains(haystack, kw) {
			score += keywordHitScore
		}
	}

	name := strings.ToLower(strings.TrimSpace(offering.Name))
	if name != "" && strings.Contains(haystack, name) {
		score += nameHitScore
	}

	for _, word := range strings.Fields(name) {
		if len(word) > nameWordMinLen && strings.Contains(haystack, word) {
			score += nameWordHitScore
		}
	}

	return score
}
