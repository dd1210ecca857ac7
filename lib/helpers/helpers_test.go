package helpers

import (
	"regexp"
	"testing"
	"time"
)

func TestAnimationFileName(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{32}\.gif$`)

	a, b := AnimationFileName(), AnimationFileName()
	if !re.MatchString(a) {
		t.Fatalf("unexpected file name %q", a)
	}
	if a == b {
		t.Fatalf("expected unique names, got %q twice", a)
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int
		lang string
		want string
	}{
		{1234567, "en", "1,234,567"},
		{12, "en", "12"},
		{1234, "not a language!", "1,234"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.n, tt.lang); got != tt.want {
			t.Errorf("FormatCount(%d, %q) = %q, want %q", tt.n, tt.lang, got, tt.want)
		}
	}
}

func TestFormatSince(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	if got := FormatSince(now.Add(-3*time.Minute), now); got != "3 minutes ago" {
		t.Fatalf("unexpected relative time %q", got)
	}
}

func TestLatest(t *testing.T) {
	if _, ok := Latest(nil); ok {
		t.Fatal("expected no latest time for empty input")
	}
	a := time.Unix(100, 0)
	b := time.Unix(200, 0)
	if got, ok := Latest([]time.Time{b, a}); !ok || !got.Equal(b) {
		t.Fatalf("unexpected latest %v", got)
	}
}
