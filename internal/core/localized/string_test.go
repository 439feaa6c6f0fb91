package localized

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestString_ScanValue(t *testing.T) {
	s := String{"en": "Morocco", "fr": "Maroc"}

	v, err := s.Value()
	require.NoError(t, err)

	var back String
	require.NoError(t, back.Scan(v))
	assert.Equal(t, s, back)

	var empty String
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)

	require.NoError(t, empty.Scan([]byte("  ")))
	assert.Nil(t, empty)

	assert.Error(t, empty.Scan(42))
}

func TestString_In(t *testing.T) {
	s := String{"en": "Country", "fr": "Pays"}

	assert.Equal(t, "Pays", s.In(language.French))
	assert.Equal(t, "Pays", s.In(language.MustParse("fr-CA")))
	assert.Equal(t, "Country", s.In(language.English))
	// no match at all falls back to the first stored text
	assert.NotEmpty(t, s.In(language.Japanese))

	assert.Equal(t, "", String(nil).In(language.English))
}

func TestString_Text(t *testing.T) {
	s := String{"en": "City", "ar": "مدينة"}
	ctx := WithLanguage(context.Background(), language.Arabic)

	assert.Equal(t, "مدينة", s.Text(ctx))
	assert.Equal(t, "City", s.Text(context.Background()))
}

func TestString_IsZero(t *testing.T) {
	assert.True(t, String(nil).IsZero())
	assert.True(t, String{"en": ""}.IsZero())
	assert.False(t, String{"en": "x"}.IsZero())

	var s String
	s.Set("fr", "Rôle")
	assert.Equal(t, []string{"fr"}, s.Languages())
}
