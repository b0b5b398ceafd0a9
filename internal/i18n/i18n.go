// Package i18n provides the catalogs for user-facing bot messages.
package i18n

import (
	"fmt"
)

const (
	// DefaultLanguage is the fallback when no translation exists.
	DefaultLanguage = "en"
	// German is spoken at most of the events this bot was written for.
	German = "de"
)

// Localizer resolves message keys against a language catalog.
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer creates a localizer for the given language code. Unknown
// codes fall back to English.
func NewLocalizer(language string) *Localizer {
	return &Localizer{
		language: language,
		messages: getMessages(language),
	}
}

// T translates a message key, formatting optional arguments into it.
func (l *Localizer) T(key string, args ...interface{}) string {
	if message, exists := l.messages[key]; exists {
		if len(args) > 0 {
			return fmt.Sprintf(message, args...)
		}
		return message
	}

	if l.language != DefaultLanguage {
		if fallback, exists := getMessages(DefaultLanguage)[key]; exists {
			if len(args) > 0 {
				return fmt.Sprintf(fallback, args...)
			}
			return fallback
		}
	}

	return key
}

// SupportedLanguages lists the available language codes.
func SupportedLanguages() []string {
	return []string{DefaultLanguage, German}
}

func getMessages(language string) map[string]string {
	switch language {
	case German:
		return germanMessages
	default:
		return englishMessages
	}
}
