package domain

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/tx"
	"gwin/internal/metadata"
)

// Constructor opens a business object on f.
type Constructor func(f *Factory) (BLO, error)

// Factory creates business objects by entity name. Every entity is registered
// with the generic gateway; Specialize replaces it with a dedicated business
// object for one entity.
type Factory struct {
	registry *metadata.Registry
	store    Store
	tx       tx.Manager
	now      func() time.Time

	mu          sync.RWMutex
	generic     map[string]Constructor
	specialized map[string]Constructor
	types       map[string]reflect.Type
}

// FactoryOption customizes a Factory.
type FactoryOption func(*Factory)

// WithClock sets the time source used for creation and modification stamps.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) { f.now = now }
}

// NewFactory creates a factory storing entities through store in transactions of txm.
func NewFactory(registry *metadata.Registry, store Store, txm tx.Manager, opts ...FactoryOption) *Factory {
	f := &Factory{
		registry:    registry,
		store:       store,
		tx:          txm,
		now:         time.Now,
		generic:     make(map[string]Constructor),
		specialized: make(map[string]Constructor),
		types:       make(map[string]reflect.Type),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry returns the configuration registry.
func (f *Factory) Registry() *metadata.Registry {
	return f.registry
}

// RegisterEntity registers T (a pointer to an entity struct) with the generic
// gateway. The configuration is built now, so tag errors surface at startup.
func RegisterEntity[T entity.Entity](f *Factory) (*metadata.Entity, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	def, err := f.registry.Get(t)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.generic[def.Name] = func(f *Factory) (BLO, error) {
		return NewGateway[T](f)
	}
	f.types[def.Name] = t
	return def, nil
}

// Specialize registers the business object used for the entity name instead of the generic gateway.
func (f *Factory) Specialize(name string, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specialized[name] = c
}

// New opens the business object of the entity name: the specialized one when
// registered, otherwise the generic gateway.
func (f *Factory) New(name string) (BLO, error) {
	f.mu.RLock()
	c, ok := f.specialized[name]
	if !ok {
		c, ok = f.generic[name]
	}
	f.mu.RUnlock()
	if !ok {
		return nil, apperror.NewUnknownEntity(name)
	}
	return c(f)
}

// Names returns the registered entity names in sorted order.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.generic))
	for name := range f.generic {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check builds the configuration of every registered entity and verifies that
// relationship targets are registered too.
func (f *Factory) Check(ctx context.Context) error {
	f.mu.RLock()
	types := make([]reflect.Type, 0, len(f.types))
	for _, t := range f.types {
		types = append(types, t)
	}
	f.mu.RUnlock()

	if err := f.registry.Warm(ctx, types...); err != nil {
		return err
	}
	for _, def := range f.registry.List() {
		for _, p := range def.Properties {
			if p.Relation == nil {
				continue
			}
			if _, ok := f.registry.Lookup(p.Relation.Target); !ok {
				return apperror.NewConfiguration(def.Name, p.Name, "relationship target "+p.Relation.Target+" is not registered")
			}
		}
	}
	return nil
}
