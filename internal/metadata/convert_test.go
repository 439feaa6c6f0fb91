package metadata

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"gwin/internal/core/apperror"
	"gwin/internal/core/localized"
)

func cityDef(t *testing.T) *Entity {
	t.Helper()
	def, err := Inspect(reflect.TypeOf(testCity{}))
	require.NoError(t, err)
	return def
}

func TestProperty_Set(t *testing.T) {
	def := cityDef(t)
	city := def.New().(*testCity)

	prop := func(name string) *Property {
		p, ok := def.Property(name)
		require.True(t, ok, name)
		return p
	}

	require.NoError(t, prop("Name").Set(city, "Rabat"))
	require.NoError(t, prop("CountryID").Set(city, float64(4)))
	require.NoError(t, prop("Founded").Set(city, "1912-05-01"))
	require.NoError(t, prop("Area").Set(city, "117.5"))
	require.NoError(t, prop("Capital").Set(city, "true"))
	require.NoError(t, prop("Tags").Set(city, []any{float64(1), "2"}))

	assert.Equal(t, "Rabat", city.Name)
	assert.Equal(t, int64(4), city.CountryID)
	assert.Equal(t, time.Date(1912, 5, 1, 0, 0, 0, 0, time.UTC), city.Founded)
	assert.True(t, decimal.RequireFromString("117.5").Equal(city.Area))
	assert.True(t, city.Capital)
	assert.Equal(t, []int64{1, 2}, city.Tags)

	require.NoError(t, prop("Name").Set(city, nil))
	assert.Equal(t, "", city.Name)
	assert.Equal(t, int64(4), prop("CountryID").Get(city))
}

func TestProperty_SetRejectsBadInput(t *testing.T) {
	def := cityDef(t)
	city := def.New()

	p, _ := def.Property("CountryID")
	err := p.Set(city, 1.5)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	p, _ = def.Property("Founded")
	assert.Error(t, p.Set(city, "yesterday"))
}

func TestProperty_SetRejectsIntegerOverflow(t *testing.T) {
	def := cityDef(t)
	city := def.New().(*testCity)
	p, _ := def.Property("CountryID")

	for _, v := range []any{float64(math.MaxInt64), 1e19, -1e19, math.Inf(1)} {
		err := p.Set(city, v)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput), "%v", v)
	}
	assert.Zero(t, city.CountryID)

	require.NoError(t, p.Set(city, float64(1<<53)))
	assert.Equal(t, int64(1<<53), city.CountryID)
}

func TestEntity_Clone(t *testing.T) {
	def := cityDef(t)
	country := &testCountry{}
	src := &testCity{Name: "Rabat", Tags: []int64{1, 2}, Country: country}
	src.ID = 4

	cp := def.Clone(src).(*testCity)
	require.NotSame(t, src, cp)
	assert.Equal(t, src.Name, cp.Name)
	assert.Equal(t, int64(4), cp.ID)
	assert.Same(t, country, cp.Country)

	cp.Tags[0] = 9
	cp.Name = "Fes"
	assert.Equal(t, []int64{1, 2}, src.Tags)
	assert.Equal(t, "Rabat", src.Name)

	empty := def.Clone(&testCity{}).(*testCity)
	assert.Nil(t, empty.Tags)
}

func TestIsZeroValue(t *testing.T) {
	assert.True(t, IsZeroValue(nil))
	assert.True(t, IsZeroValue(""))
	assert.True(t, IsZeroValue("  "))
	assert.True(t, IsZeroValue(int64(0)))
	assert.True(t, IsZeroValue(time.Time{}))
	assert.True(t, IsZeroValue(localized.String{"en": ""}))
	assert.True(t, IsZeroValue([]int64{}))
	assert.True(t, IsZeroValue(decimal.Zero))

	assert.False(t, IsZeroValue("x"))
	assert.False(t, IsZeroValue(3))
	assert.False(t, IsZeroValue(true))
	assert.False(t, IsZeroValue([]int64{1}))
}

func TestEntity_Display(t *testing.T) {
	ctx := localized.WithLanguage(context.Background(), language.French)

	country := &testCountry{Name: localized.String{"en": "Morocco", "fr": "Maroc"}}
	def, err := Inspect(reflect.TypeOf(testCountry{}))
	require.NoError(t, err)

	assert.Equal(t, "Maroc", def.Display(ctx, country))
	assert.Equal(t, "", def.Display(ctx, (*testCountry)(nil)))
	assert.Equal(t, "1912-05-01", DisplayText(ctx, time.Date(1912, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "1, 2", DisplayText(ctx, []int64{1, 2}))
}
