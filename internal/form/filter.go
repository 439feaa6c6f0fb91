package form

import (
	"context"

	"gwin/internal/core/entity"
	"gwin/internal/domain"
	"gwin/internal/metadata"
)

// Filter is the search bar of one entity, generated from its filter properties.
type Filter struct {
	blo       domain.BLO
	def       *metadata.Entity
	settings  settings
	container *Container
}

// NewFilter builds the filter controls, each holding the default value of its type.
func NewFilter(ctx context.Context, blo domain.BLO, opts ...BuildOption) (*Filter, error) {
	def := blo.Config()
	f := &Filter{
		blo:       blo,
		def:       def,
		settings:  newSettings(opts),
		container: NewContainer(def.Name + ".filter"),
	}
	for i, p := range def.FilterProperties() {
		t, err := TreatmentFor(p.Nature)
		if err != nil {
			return nil, err
		}
		if _, err := t.CreateFilterField(ctx, f.field(p, i)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Filter) field(p *metadata.Property, position int) *Field {
	return &Field{
		Property:  p,
		Container: f.container,
		Position:  position,
		Defaults:  f.settings.defaults,
		Options:   f.settings.options,
	}
}

// Set stores a value typed by the user.
func (f *Filter) Set(name string, v any) error {
	if err := f.container.Set(name, v); err != nil {
		f.blo.Messages().AddError(err)
		return err
	}
	return nil
}

// Values returns the search criteria: one entry per control holding more than
// the zero value of its type.
func (f *Filter) Values(ctx context.Context) (map[string]any, error) {
	criteria := make(map[string]any)
	for i, p := range f.def.FilterProperties() {
		t, err := TreatmentFor(p.Nature)
		if err != nil {
			return nil, err
		}
		v, ok, err := t.ReadFromFilter(ctx, f.field(p, i))
		if err != nil {
			f.blo.Messages().AddError(err)
			return nil, err
		}
		if ok {
			criteria[p.Name] = v
		}
	}
	return criteria, nil
}

// Apply searches the entities matching the current values.
func (f *Filter) Apply(ctx context.Context, pageStart, pageSize int) ([]entity.Entity, error) {
	criteria, err := f.Values(ctx)
	if err != nil {
		return nil, err
	}
	return f.blo.SearchEntities(ctx, criteria, pageStart, pageSize)
}

// Container returns the filter controls.
func (f *Filter) Container() *Container {
	return f.container
}
