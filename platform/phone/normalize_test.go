package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"national mobile gets country code", "9812345678", "+9779812345678"},
		{"already e164", "+9779812345678", "+9779812345678"},
		{"spaces and dashes stripped", "981-234 5678", "+9779812345678"},
		{"foreign e164 preserved", "+14155552671", "+14155552671"},
		{"garbage returned trimmed", "  not-a-number ", "not-a-number"},
		{"empty stays empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.input); got != tt.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
