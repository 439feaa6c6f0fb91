// Package localized provides the multi-language text value used by localizable entities.
package localized

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/language"
)

// String holds one text per language, keyed by BCP 47 tag ("en", "fr", "ar").
// Implements sql.Scanner and driver.Valuer for PostgreSQL JSONB mapping.
type String map[string]string

// New creates a String with a single translation.
func New(lang, text string) String {
	return String{lang: text}
}

// Scan implements sql.Scanner for reading from PostgreSQL JSONB.
func (s *String) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}

	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	case map[string]any:
		// pgx decodes jsonb into map[string]any when scanning into an interface
		out := make(String, len(v))
		for k, t := range v {
			out[k] = fmt.Sprint(t)
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("unsupported type for localized.String: %T", src)
	}

	if len(bytes.TrimSpace(source)) == 0 {
		*s = nil
		return nil
	}

	var result map[string]string
	if err := json.Unmarshal(source, &result); err != nil {
		return fmt.Errorf("failed to decode localized.String: %w", err)
	}
	*s = result
	return nil
}

// Value implements driver.Valuer for writing to PostgreSQL JSONB.
func (s String) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// IsZero reports whether no translation carries text.
func (s String) IsZero() bool {
	for _, v := range s {
		if v != "" {
			return false
		}
	}
	return true
}

// Set stores the text for lang.
func (s *String) Set(lang, text string) {
	if *s == nil {
		*s = make(String)
	}
	(*s)[lang] = text
}

// Languages returns the stored language tags in sorted order.
func (s String) Languages() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// In returns the text that best matches lang, falling back to any stored text.
func (s String) In(lang language.Tag) string {
	if len(s) == 0 {
		return ""
	}
	if v, ok := s[lang.String()]; ok && v != "" {
		return v
	}

	langs := s.Languages()
	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		t, err := language.Parse(l)
		if err != nil {
			continue
		}
		tags = append(tags, t)
	}
	if len(tags) > 0 {
		_, idx, conf := language.NewMatcher(tags).Match(lang)
		if conf != language.No {
			if v := s[tags[idx].String()]; v != "" {
				return v
			}
		}
	}

	for _, l := range langs {
		if s[l] != "" {
			return s[l]
		}
	}
	return ""
}

// Text returns the translation for the language carried by ctx.
func (s String) Text(ctx context.Context) string {
	return s.In(Language(ctx))
}

// String implements fmt.Stringer using the default language.
func (s String) String() string {
	return s.In(defaultLanguage)
}
