package metadata

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwin/internal/core/apperror"
)

func TestRegistry_BuildsOncePerType(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	results := make([]*Entity, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			def, err := For[testCity](r)
			assert.NoError(t, err)
			results[i] = def
		}(i)
	}
	wg.Wait()

	for _, def := range results[1:] {
		assert.Same(t, results[0], def)
	}

	byName, ok := r.Lookup("testCity")
	require.True(t, ok)
	assert.Same(t, results[0], byName)
}

func TestRegistry_FailedBuildIsNotCached(t *testing.T) {
	r := NewRegistry()

	_, err := For[badOption](r)
	require.Error(t, err)
	assert.True(t, apperror.IsConfiguration(err))

	_, ok := r.Lookup("badOption")
	assert.False(t, ok)
	assert.Empty(t, r.List())
}

func TestRegistry_WarmAndMenu(t *testing.T) {
	r := NewRegistry()
	err := r.Warm(context.Background(),
		reflect.TypeOf(testCity{}), reflect.TypeOf(testCountry{}), reflect.TypeOf(noDisplay{}))
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "noDisplay", list[0].Name)

	menu := r.Menu()
	require.Len(t, menu, 1)
	assert.Equal(t, "Configuration", menu[0].Name)
	require.Len(t, menu[0].Entities, 2)
	assert.Equal(t, "Countries", menu[0].Entities[0].Title)
	assert.Equal(t, "Test Cities", menu[0].Entities[1].Title)

	r.Close()
	assert.Empty(t, r.List())
}

func TestRegistry_WarmReportsConfigurationError(t *testing.T) {
	r := NewRegistry()
	err := r.Warm(context.Background(), reflect.TypeOf(testCity{}), reflect.TypeOf(badMode{}))
	require.Error(t, err)
	assert.True(t, apperror.IsConfiguration(err))
}
