package form

import (
	"context"
	"fmt"
	"sync"

	"gwin/internal/core/apperror"
	"gwin/internal/domain"
)

// EntitiesSource is the data source listing the registered entity names.
const EntitiesSource = "entities"

// ValuesFunc lists the values of one data source.
type ValuesFunc func(ctx context.Context) ([]string, error)

// FactoryOptions lists option entities through the business objects of a factory.
// It is also the ValueSource of string_with_data_source properties.
type FactoryOptions struct {
	factory *domain.Factory

	mu      sync.RWMutex
	sources map[string]ValuesFunc
}

// NewFactoryOptions creates an option source backed by f.
func NewFactoryOptions(f *domain.Factory) *FactoryOptions {
	s := &FactoryOptions{factory: f, sources: make(map[string]ValuesFunc)}
	s.AddSource(EntitiesSource, func(context.Context) ([]string, error) {
		return f.Names(), nil
	})
	return s
}

// AddSource registers or replaces the data source name.
func (s *FactoryOptions) AddSource(name string, fn ValuesFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = fn
}

// Values implements ValueSource.
func (s *FactoryOptions) Values(ctx context.Context, source string) ([]string, error) {
	s.mu.RLock()
	fn, ok := s.sources[source]
	s.mu.RUnlock()
	if !ok {
		return nil, apperror.NewConfiguration("", "", fmt.Sprintf("unknown data source %q", source))
	}
	return fn(ctx)
}

// Options returns every entity of target in display order, labelled by its display member.
func (s *FactoryOptions) Options(ctx context.Context, target string) ([]Option, error) {
	blo, err := s.factory.New(target)
	if err != nil {
		return nil, err
	}
	defer blo.Close()

	items, err := blo.List(ctx, domain.Query{OrderBy: "Order"})
	if err != nil {
		return nil, err
	}
	def := blo.Config()
	out := make([]Option, len(items))
	for i, e := range items {
		out[i] = Option{ID: e.Base().ID, Text: def.Display(ctx, e)}
	}
	return out, nil
}
