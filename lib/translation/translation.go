package translation

import (
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Configure loads the "default" domain for lang from the locales directory.
func Configure(localesDir, lang string) {
	gotext.Configure(localesDir, strings.ToLower(lang), "default")
}

func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

// Translate returns the translation of msgID, or msgID itself when the
// current locale has none.
func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
