package helpers

import (
	"encoding/hex"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// AnimationFileName returns a random 32 hex character name with a .gif suffix.
func AnimationFileName() string {
	id := uuid.New()
	return hex.EncodeToString(id[:]) + ".gif"
}

// FormatCount prints n with the thousands separator of lang.
func FormatCount(n int, lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprintf("%d", n)
}

// FormatSince describes t relative to now, e.g. "3 minutes ago".
func FormatSince(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// Latest returns the most recent of times and false when there are none.
func Latest(times []time.Time) (time.Time, bool) {
	var latest time.Time
	for _, t := range times {
		if t.After(latest) {
			latest = t
		}
	}
	return latest, !latest.IsZero()
}
