package localized

import (
	"context"

	"golang.org/x/text/language"
)

var defaultLanguage = language.English

type languageKey struct{}

// SetDefault changes the process default language. Call once at startup.
func SetDefault(tag language.Tag) {
	defaultLanguage = tag
}

// Default returns the process default language.
func Default() language.Tag {
	return defaultLanguage
}

// WithLanguage adds the user's language to context.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, languageKey{}, tag)
}

// Language returns the language from context or the default one.
func Language(ctx context.Context) language.Tag {
	if t, ok := ctx.Value(languageKey{}).(language.Tag); ok {
		return t
	}
	return defaultLanguage
}

// Parse is language.Parse with the default language as fallback.
func Parse(s string) language.Tag {
	if s == "" {
		return defaultLanguage
	}
	t, err := language.Parse(s)
	if err != nil {
		return defaultLanguage
	}
	return t
}
