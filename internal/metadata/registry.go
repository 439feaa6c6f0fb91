package metadata

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"gwin/internal/core/apperror"
)

// Registry caches entity configurations. A configuration is built on the first
// request for its type and kept until the registry is closed. Failed builds are
// not cached, so a fixed type can be retried.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*Entity
	byName map[string]*Entity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Entity),
		byName: make(map[string]*Entity),
	}
}

// Get returns the configuration of t, building it when needed.
func (r *Registry) Get(t reflect.Type) (*Entity, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.mu.RLock()
	def, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return def, nil
	}

	def, err := Inspect(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byType[t]; ok {
		return existing, nil
	}
	if other, ok := r.byName[def.Name]; ok && other.Type != t {
		return nil, apperror.NewConfiguration(def.Name, "",
			"entity name is used by both "+other.Type.PkgPath()+" and "+t.PkgPath())
	}
	r.byType[t] = def
	r.byName[def.Name] = def
	return def, nil
}

// For returns the configuration of entity type T.
func For[T any](r *Registry) (*Entity, error) {
	return r.Get(reflect.TypeOf((*T)(nil)).Elem())
}

// Warm builds the configurations of types concurrently and returns the first error.
func (r *Registry) Warm(ctx context.Context, types ...reflect.Type) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range types {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := r.Get(t)
			return err
		})
	}
	return g.Wait()
}

// Lookup returns an already built configuration by entity name.
func (r *Registry) Lookup(name string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[name]
	return def, ok
}

// List returns the built configurations sorted by name.
func (r *Registry) List() []*Entity {
	r.mu.RLock()
	list := make([]*Entity, 0, len(r.byName))
	for _, def := range r.byName {
		list = append(list, def)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// MenuGroup is one top level entry of the application menu.
type MenuGroup struct {
	Name     string    `json:"name" yaml:"name"`
	Entities []*Entity `json:"entities" yaml:"entities"`
}

// Menu groups the built entities by menu group. Entities without a group are left out.
func (r *Registry) Menu() []MenuGroup {
	groups := make(map[string][]*Entity)
	for _, def := range r.List() {
		if def.MenuGroup == "" {
			continue
		}
		groups[def.MenuGroup] = append(groups[def.MenuGroup], def)
	}

	menu := make([]MenuGroup, 0, len(groups))
	for name, entities := range groups {
		sort.SliceStable(entities, func(i, j int) bool { return entities[i].Title < entities[j].Title })
		menu = append(menu, MenuGroup{Name: name, Entities: entities})
	}
	sort.Slice(menu, func(i, j int) bool { return menu[i].Name < menu[j].Name })
	return menu
}

// Close drops every cached configuration.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType = make(map[reflect.Type]*Entity)
	r.byName = make(map[string]*Entity)
}
