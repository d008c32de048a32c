package scoring

import (
	"testing"

	"engage_backend/internal/shared/channel"
)

func TestDecayedScoreDayZeroIdentity(t *testing.T) {
	if got := DecayedScore(420, 0); got != 420 {
		t.Fatalf("expected unchanged score at day zero, got %d", got)
	}
	if got := DecayedScore(420, -1); got != 420 {
		t.Fatalf("expected unchanged score for negative elapsed time, got %d", got)
	}
}

func TestDecayedScoreHalfLife(t *testing.T) {
	if got := DecayedScore(1000, 7); got != 500 {
		t.Fatalf("expected 500 after one half-life, got %d", got)
	}
	if got := DecayedScore(1000, 14); got != 250 {
		t.Fatalf("expected 250 after two half-lives, got %d", got)
	}
}

func TestDecayedScoreMonotonic(t *testing.T) {
	prev := DecayedScore(800, 0)
	for days := 1; days <= 60; days++ {
		cur := DecayedScore(800, float64(days))
		if cur > prev {
			t.Fatalf("decay increased from %d to %d at day %d", prev, cur, days)
		}
		if cur < 0 {
			t.Fatalf("decay went negative at day %d: %d", days, cur)
		}
		prev = cur
	}
}

func TestDecayedScoreNonPositiveStored(t *testing.T) {
	if got := DecayedScore(0, 10); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := DecayedScore(-5, 10); got != 0 {
		t.Fatalf("expected 0 for negative stored score, got %d", got)
	}
}

func TestDelta(t *testing.T) {
	tests := []struct {
		name            string
		intent          string
		confidence      int
		interactionType channel.InteractionType
		sentiment       string
		want            int
	}{
		{"purchase dm full confidence", "purchase", 100, channel.TypeDM, "positive", 125},
		{"purchase comment", "purchase", 100, channel.TypeComment, "neutral", 50},
		{"inquiry dm at 80", "inquiry", 80, channel.TypeDM, "neutral", 50},
		{"spam comment", "spam", 100, channel.TypeComment, "neutral", -100},
		{"like barely moves", "purchase", 100, channel.TypeLike, "positive", 5},
		{"unknown intent falls back to other", "gibberish", 100, channel.TypeComment, "neutral", 5},
		{"negative sentiment dampens positive delta", "purchase", 100, channel.TypeDM, "negative", -63},
		{"negative sentiment leaves negative delta alone", "spam", 100, channel.TypeDM, "negative", -250},
		{"intent is case insensitive", "  Purchase ", 100, channel.TypeComment, "neutral", 50},
		{"confidence clamped to 100", "purchase", 250, channel.TypeComment, "neutral", 50},
		{"zero confidence contributes nothing", "purchase", 0, channel.TypeDM, "positive", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Delta(tt.intent, tt.confidence, tt.interactionType, tt.sentiment)
			if got != tt.want {
				t.Fatalf("Delta(%q, %d, %s, %q) = %d, want %d", tt.intent, tt.confidence, tt.interactionType, tt.sentiment, got, tt.want)
			}
		})
	}
}

func TestClampBounds(t *testing.T) {
	if got := Clamp(-50); got != MinScore {
		t.Fatalf("expected clamp to %d, got %d", MinScore, got)
	}
	if got := Clamp(99999); got != MaxScore {
		t.Fatalf("expected clamp to %d, got %d", MaxScore, got)
	}
	if got := Clamp(1234); got != 1234 {
		t.Fatalf("expected in-range score to pass through, got %d", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		score int
		want  channel.CustomerStatus
	}{
		{0, channel.StatusCold},
		{99, channel.StatusCold},
		{100, channel.StatusWarm},
		{499, channel.StatusWarm},
		{500, channel.StatusHot},
		{10000, channel.StatusHot},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.score); got != tt.want {
			t.Errorf("StatusFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
