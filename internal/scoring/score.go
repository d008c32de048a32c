// Package scoring converts analyzed interactions into lead-score updates:
// exponential time decay on the stored score, a signed delta from the
// classifier verdict, and a temperature status derived from the result.
package scoring

import (
	"math"
	"strings"

	"engage_backend/internal/shared/channel"
)

const (
	// Score bounds and status thresholds.
	MinScore = 0
	MaxScore = 10000

	hotThreshold  = 500
	warmThreshold = 100

	// Half-life of the decay curve, in days.
	decayHalfLifeDays = 7.0

	// A positive delta delivered with negative sentiment is dampened, not
	// ignored: the message still signals engagement, just suspect.
	negativeSentimentFactor = -0.5
)

// intentBaseScores range from spam (strongly negative) to purchase intent.
var intentBaseScores = map[string]float64{
	"purchase":  50,
	"inquiry":   25,
	"praise":    15,
	"other":     5,
	"complaint": -20,
	"spam":      -100,
}

// typeWeights favor high-effort channels: a DM is worth far more than a like.
var typeWeights = map[channel.InteractionType]float64{
	channel.TypeDM:         2.5,
	channel.TypeStoryReply: 2.0,
	channel.TypeComment:    1.0,
	channel.TypeMention:    1.0,
	channel.TypeShare:      0.5,
	channel.TypeLike:       0.1,
}

// DecayedScore applies the 7-day half-life decay to a stored score. Decay is
// lazy: it is computed at the moment of the next interaction, there is no
// background ticking. At day zero the stored score is returned unchanged.
func DecayedScore(stored int, daysSinceLastInteraction float64) int {
	if stored <= 0 {
		return 0
	}
	if daysSinceLastInteraction <= 0 {
		return stored
	}
	return int(math.Round(float64(stored) * math.Pow(0.5, daysSinceLastInteraction/decayHalfLifeDays)))
}

// Delta computes the signed score contribution of one analyzed interaction.
func Delta(intent string, confidence int, interactionType channel.InteractionType, sentiment string) int {
	base, ok := intentBaseScores[strings.ToLower(strings.TrimSpace(intent))]
	if !ok {
		base = intentBaseScores["other"]
	}

	weight, ok := typeWeights[interactionType]
	if !ok {
		weight = 1.0
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	delta := base * (float64(confidence) / 100.0) * weight
	if delta > 0 && strings.EqualFold(sentiment, "negative") {
		delta *= negativeSentimentFactor
	}

	return int(math.Round(delta))
}

// Clamp bounds a score to the valid range.
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// StatusFor derives the lead temperature from a score. CONVERTED is sticky
// and set externally; callers must not pass it through here.
func StatusFor(score int) channel.CustomerStatus {
	switch {
	case score >= hotThreshold:
		return channel.StatusHot
	case score >= warmThreshold:
		return channel.StatusWarm
	default:
		return channel.StatusCold
	}
}
