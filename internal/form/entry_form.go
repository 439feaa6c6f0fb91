package form

import (
	"context"

	"gwin/internal/core/entity"
	"gwin/internal/domain"
	"gwin/internal/metadata"
	"gwin/pkg/logger"
)

// BuildOption customizes entry forms, filters and grids.
type BuildOption func(*settings)

type settings struct {
	options  OptionSource
	defaults map[string]any
}

// WithOptionSource sets where relationship controls get their choices.
func WithOptionSource(src OptionSource) BuildOption {
	return func(s *settings) { s.options = src }
}

// WithFilterDefaults replaces DefaultFilterValues for a filter.
func WithFilterDefaults(defaults map[string]any) BuildOption {
	return func(s *settings) { s.defaults = defaults }
}

func newSettings(opts []BuildOption) settings {
	s := settings{defaults: DefaultFilterValues}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// EntryForm is the data entry surface of one entity, generated from the entry
// properties of its configuration.
type EntryForm struct {
	blo       domain.BLO
	def       *metadata.Entity
	entity    entity.Entity
	criteria  map[string]any
	settings  settings
	container *Container
}

// Model is the serializable state of an entry form.
type Model struct {
	Entity   string     `json:"entity"`
	Title    string     `json:"title"`
	ID       int64      `json:"id"`
	Controls []*Control `json:"controls"`
}

// NewEntryForm builds the entry form of e, or of a new entity when e is nil.
// A new entity is first filled from criteria, the values selected in the filter
// the form was opened from.
func NewEntryForm(ctx context.Context, blo domain.BLO, e entity.Entity, criteria map[string]any, opts ...BuildOption) (*EntryForm, error) {
	def := blo.Config()
	if e == nil {
		e = blo.NewEntity()
	}
	f := &EntryForm{
		blo:       blo,
		def:       def,
		entity:    e,
		settings:  newSettings(opts),
		container: NewContainer(def.Name),
	}
	if !e.Base().IsPersisted() && len(criteria) > 0 {
		f.criteria = criteria
		if err := f.initFromCriteria(); err != nil {
			return nil, err
		}
	}
	if err := f.Load(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *EntryForm) initFromCriteria() error {
	for _, p := range f.def.EntryProperties() {
		v, ok := f.criteria[p.Name]
		if !ok || v == nil || !p.Nature.IsScalar() {
			continue
		}
		if err := p.Set(f.entity, v); err != nil {
			return err
		}
	}
	return nil
}

func (f *EntryForm) field(p *metadata.Property, position int) *Field {
	return &Field{
		Property:  p,
		Container: f.container,
		Position:  position,
		Entity:    f.entity,
		Criteria:  f.criteria,
		Defaults:  f.settings.defaults,
		Options:   f.settings.options,
	}
}

// Load creates the controls in entry order and writes the entity into them.
func (f *EntryForm) Load(ctx context.Context) error {
	f.container = NewContainer(f.def.Name)
	for i, p := range f.def.EntryProperties() {
		t, err := TreatmentFor(p.Nature)
		if err != nil {
			return err
		}
		if _, err := t.CreateEntryField(ctx, f.field(p, i)); err != nil {
			return err
		}
	}
	return f.WriteEntity(ctx)
}

// WriteEntity copies the entity values into the controls.
func (f *EntryForm) WriteEntity(ctx context.Context) error {
	for i, p := range f.def.EntryProperties() {
		t, err := TreatmentFor(p.Nature)
		if err != nil {
			return err
		}
		if err := t.WriteToForm(ctx, f.field(p, i)); err != nil {
			return f.reject(ctx, err)
		}
	}
	return nil
}

// ReadEntity copies the control values into the entity and returns the
// names of the properties that changed, in entry order.
func (f *EntryForm) ReadEntity(ctx context.Context) ([]string, error) {
	var changed []string
	for i, p := range f.def.EntryProperties() {
		t, err := TreatmentFor(p.Nature)
		if err != nil {
			return nil, err
		}
		ok, err := t.ReadFromForm(ctx, f.field(p, i))
		if err != nil {
			return nil, f.reject(ctx, err)
		}
		if ok {
			changed = append(changed, p.Name)
		}
	}
	return changed, nil
}

// Change sets one control as the user typed it, reads it into the entity
// and runs the business rules of the field. The controls are refreshed so
// that values normalized by a rule show up.
func (f *EntryForm) Change(ctx context.Context, name string, value any) error {
	if err := f.container.Set(name, value); err != nil {
		return f.reject(ctx, err)
	}
	changed, err := f.ReadEntity(ctx)
	if err != nil {
		return err
	}
	for _, field := range changed {
		if err := f.blo.ApplyRules(ctx, field, f.entity); err != nil {
			return err
		}
	}
	return f.WriteEntity(ctx)
}

// Submit applies values to the controls, reads them into the entity, runs the
// business rules of every changed field and saves the entity. It returns the
// rows written or domain.SaveFailed.
func (f *EntryForm) Submit(ctx context.Context, values map[string]any) (int64, error) {
	for name, v := range values {
		if err := f.container.Set(name, v); err != nil {
			return domain.SaveFailed, f.reject(ctx, err)
		}
	}
	changed, err := f.ReadEntity(ctx)
	if err != nil {
		return domain.SaveFailed, err
	}
	for _, field := range changed {
		if err := f.blo.ApplyRules(ctx, field, f.entity); err != nil {
			return domain.SaveFailed, err
		}
	}

	n, err := f.blo.SaveEntity(ctx, f.entity)
	if err != nil {
		return n, err
	}
	logger.Debug(ctx, "entry form submitted", "entity", f.def.Name, "id", f.entity.Base().ID, "changed", changed)
	return n, f.WriteEntity(ctx)
}

// reject puts a form wiring error on the business object's board.
func (f *EntryForm) reject(ctx context.Context, err error) error {
	f.blo.Messages().AddError(err)
	logger.Warn(ctx, "entry form rejected input", "entity", f.def.Name, "error", err)
	return err
}

// Entity returns the edited entity.
func (f *EntryForm) Entity() entity.Entity {
	return f.entity
}

// Container returns the form controls.
func (f *EntryForm) Container() *Container {
	return f.container
}

// Model returns the serializable state of the form.
func (f *EntryForm) Model() Model {
	return Model{
		Entity:   f.def.Name,
		Title:    f.def.Title,
		ID:       f.entity.Base().ID,
		Controls: f.container.Controls,
	}
}
