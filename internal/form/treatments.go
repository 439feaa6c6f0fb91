package form

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
	"gwin/internal/metadata"
)

// Field is what a treatment needs to create, fill or read the control of one property.
type Field struct {
	Property  *metadata.Property
	Container *Container
	Position  int

	// Entity is the entity edited by an entry form.
	Entity entity.Entity

	// Criteria are the filter values carried into an entry form.
	Criteria map[string]any

	// Defaults are the initial filter values by Go type name, see DefaultFilterValues.
	Defaults map[string]any

	// Options lists the choices of relationship controls. Nil leaves them empty.
	// When it also implements ValueSource it lists data source values too.
	Options OptionSource
}

// OptionSource lists the entities of target as control options.
type OptionSource interface {
	Options(ctx context.Context, target string) ([]Option, error)
}

// ValueSource lists the values of a named data source.
type ValueSource interface {
	Values(ctx context.Context, source string) ([]string, error)
}

// Treatment creates, fills and reads the control of a property. There is one
// treatment per metadata.Nature.
type Treatment interface {
	// CreateEntryField adds the entry form control, pre-filled from f.Criteria.
	CreateEntryField(ctx context.Context, f *Field) (*Control, error)

	// WriteToForm copies the entity value into its control. Unset values are skipped.
	WriteToForm(ctx context.Context, f *Field) error

	// ReadFromForm copies the control value into the entity and reports whether it changed.
	ReadFromForm(ctx context.Context, f *Field) (bool, error)

	// CreateFilterField adds the filter control holding the default value of the type.
	CreateFilterField(ctx context.Context, f *Field) (*Control, error)

	// ReadFromFilter returns the criterion value, ok is false when the control
	// holds the zero value of the type.
	ReadFromFilter(ctx context.Context, f *Field) (value any, ok bool, err error)
}

// DefaultFilterValues are the initial filter values keyed by Go type name.
var DefaultFilterValues = map[string]any{
	"string":     "",
	"String":     "",
	"Time":       time.Time{},
	"*time.Time": time.Time{},
	"int":        int64(0),
	"int32":      int64(0),
	"int64":      int64(0),
	"Decimal":    decimal.Zero,
	"bool":       false,
}

var (
	textTreatment      = scalarTreatment{kind: KindText}
	localizedTreatment = scalarTreatment{kind: KindLocalizedText}
	dateTreatment      = scalarTreatment{kind: KindDate}
	integerTreatment   = scalarTreatment{kind: KindInteger}
	decimalTreatment   = scalarTreatment{kind: KindDecimal}
	booleanTreatment   = scalarTreatment{kind: KindCheckBox}
)

// TreatmentFor returns the treatment of nature n.
func TreatmentFor(n metadata.Nature) (Treatment, error) {
	switch n {
	case metadata.NatureString:
		return textTreatment, nil
	case metadata.NatureStringWithDataSource, metadata.NatureEnumeration:
		return choiceTreatment{}, nil
	case metadata.NatureLocalizedString:
		return localizedTreatment, nil
	case metadata.NatureDateTime:
		return dateTreatment, nil
	case metadata.NatureInteger:
		return integerTreatment, nil
	case metadata.NatureDecimal:
		return decimalTreatment, nil
	case metadata.NatureBoolean:
		return booleanTreatment, nil
	case metadata.NatureManyToOne:
		return manyToOneTreatment{}, nil
	case metadata.NatureManyToManySelection:
		return manyToManyTreatment{kind: KindCheckList}, nil
	case metadata.NatureManyToManyCreation:
		return manyToManyTreatment{kind: KindSubGrid}, nil
	case metadata.NatureOneToMany:
		return oneToManyTreatment{}, nil
	}
	return nil, apperror.NewConfiguration("", "", fmt.Sprintf("no field treatment for nature %q", n))
}

// --- scalars ---

type scalarTreatment struct {
	kind Kind
}

func (t scalarTreatment) CreateEntryField(ctx context.Context, f *Field) (*Control, error) {
	p := f.Property
	if p.Entry == nil {
		return nil, apperror.NewConfiguration("", p.Name, "property is not on the entry form")
	}
	ctl := &Control{
		Name:     p.Name,
		Kind:     t.kind,
		Label:    p.Title,
		Width:    p.Entry.Width,
		Required: p.Entry.Required,
		Value:    emptyValue(p),
	}
	if p.Entry.MultiLine && t.kind == KindText {
		ctl.Kind = KindMultiLine
	}
	if err := preset(ctx, f, ctl); err != nil {
		return nil, err
	}
	f.Container.Add(ctl, f.Position)
	return ctl, nil
}

func (t scalarTreatment) WriteToForm(ctx context.Context, f *Field) error {
	return writeValue(ctx, f)
}

func (t scalarTreatment) ReadFromForm(ctx context.Context, f *Field) (bool, error) {
	p := f.Property
	ctl, err := f.Container.Find(p.Name)
	if err != nil {
		return false, err
	}
	current := p.Get(f.Entity)

	var next any
	if p.Nature == metadata.NatureLocalizedString {
		next, err = readLocalized(ctx, p, current, ctl.Value)
	} else {
		next, err = p.Convert(ctl.Value)
	}
	if err != nil {
		return false, err
	}
	if next == nil {
		next = reflect.Zero(p.Type).Interface()
	}
	if sameValue(current, next) {
		return false, nil
	}
	if err := p.Set(f.Entity, next); err != nil {
		return false, err
	}
	return true, nil
}

func (t scalarTreatment) CreateFilterField(_ context.Context, f *Field) (*Control, error) {
	p := f.Property
	if p.Filter == nil {
		return nil, apperror.NewConfiguration("", p.Name, "property is not on the filter")
	}
	ctl := &Control{
		Name:  p.Name,
		Kind:  t.kind,
		Label: p.Title,
		Width: p.Filter.Width,
		Value: filterDefault(f),
	}
	f.Container.Add(ctl, f.Position)
	return ctl, nil
}

func (t scalarTreatment) ReadFromFilter(_ context.Context, f *Field) (any, bool, error) {
	p := f.Property
	ctl, err := f.Container.Find(p.Name)
	if err != nil {
		return nil, false, err
	}
	if p.Nature == metadata.NatureLocalizedString {
		text := fmt.Sprint(ctl.Value)
		if ctl.Value == nil || metadata.IsZeroValue(text) {
			return nil, false, nil
		}
		return text, true, nil
	}
	v, err := p.Convert(ctl.Value)
	if err != nil {
		return nil, false, err
	}
	if metadata.IsZeroValue(v) {
		return nil, false, nil
	}
	return v, true, nil
}

// --- many-to-one ---

type manyToOneTreatment struct{}

func (manyToOneTreatment) CreateEntryField(ctx context.Context, f *Field) (*Control, error) {
	p := f.Property
	if p.Entry == nil {
		return nil, apperror.NewConfiguration("", p.Name, "property is not on the entry form")
	}
	options, err := loadOptions(ctx, f)
	if err != nil {
		return nil, err
	}
	ctl := &Control{
		Name:     p.Name,
		Kind:     KindComboBox,
		Label:    p.Title,
		Width:    p.Entry.Width,
		Required: p.Entry.Required,
		Target:   p.Relation.Target,
		Options:  options,
		Value:    int64(0),
	}
	if err := preset(ctx, f, ctl); err != nil {
		return nil, err
	}
	f.Container.Add(ctl, f.Position)
	return ctl, nil
}

func (manyToOneTreatment) WriteToForm(ctx context.Context, f *Field) error {
	return writeValue(ctx, f)
}

func (manyToOneTreatment) ReadFromForm(ctx context.Context, f *Field) (bool, error) {
	return scalarTreatment{kind: KindComboBox}.ReadFromForm(ctx, f)
}

func (manyToOneTreatment) CreateFilterField(ctx context.Context, f *Field) (*Control, error) {
	p := f.Property
	if p.Filter == nil {
		return nil, apperror.NewConfiguration("", p.Name, "property is not on the filter")
	}
	options, err := loadOptions(ctx, f)
	if err != nil {
		return nil, err
	}
	if p.Filter.AllowEmpty {
		options = append([]Option{{ID: 0, Text: ""}}, options...)
	}
	ctl := &Control{
		Name:    p.Name,
		Kind:    KindComboBox,
		Label:   p.Title,
		Width:   p.Filter.Width,
		Target:  p.Relation.Target,
		Options: options,
		Value:   filterDefault(f),
	}
	f.Container.Add(ctl, f.Position)
	return ctl, nil
}

func (manyToOneTreatment) ReadFromFilter(ctx context.Context, f *Field) (any, bool, error) {
	return scalarTreatment{kind: KindComboBox}.ReadFromFilter(ctx, f)
}

// --- choices ---

// choiceTreatment edits a string picked from an enumeration or a data source.
// Option ids are 1-based positions, the control value is the string itself.
type choiceTreatment struct{}

func (choiceTreatment) CreateEntryField(ctx context.Context, f *Field) (*Control, error) {
	p := f.Property
	if p.Entry == nil {
		return nil, apperror.NewConfiguration("", p.Name, "property is not on the entry form")
	}
	values, err := choiceValues(ctx, f)
	if err != nil {
		return nil, err
	}
	ctl := &Control{
		Name:     p.Name,
		Kind:     KindComboBox,
		Label:    p.Title,
		Width:    p.Entry.Width,
		Required: p.Entry.Required,
		Options:  choiceOptions(values),
		Value:    "",
	}
	if err := preset(ctx, f, ctl); err != nil {
		return nil, err
	}
	f.Container.Add(ctl, f.Position)
	return ctl, nil
}

func (choiceTreatment) WriteToForm(ctx context.Context, f *Field) error {
	return writeValue(ctx, f)
}

func (choiceTreatment) ReadFromForm(ctx context.Context, f *Field) (bool, error) {
	ctl, err := f.Container.Find(f.Property.Name)
	if err != nil {
		return false, err
	}
	if err := checkChoice(ctx, f, ctl.Value); err != nil {
		return false, err
	}
	return scalarTreatment{kind: KindComboBox}.ReadFromForm(ctx, f)
}

func (choiceTreatment) CreateFilterField(ctx context.Context, f *Field) (*Control, error) {
	p := f.Property
	if p.Filter == nil {
		return nil, apperror.NewConfiguration("", p.Name, "property is not on the filter")
	}
	values, err := choiceValues(ctx, f)
	if err != nil {
		return nil, err
	}
	options := choiceOptions(values)
	if p.Filter.AllowEmpty {
		options = append([]Option{{ID: 0, Text: ""}}, options...)
	}
	ctl := &Control{
		Name:    p.Name,
		Kind:    KindComboBox,
		Label:   p.Title,
		Width:   p.Filter.Width,
		Options: options,
		Value:   filterDefault(f),
	}
	f.Container.Add(ctl, f.Position)
	return ctl, nil
}

func (choiceTreatment) ReadFromFilter(ctx context.Context, f *Field) (any, bool, error) {
	v, ok, err := scalarTreatment{kind: KindComboBox}.ReadFromFilter(ctx, f)
	if err != nil || !ok {
		return v, ok, err
	}
	if err := checkChoice(ctx, f, v); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// choiceValues returns the enumeration values, or the data source values when
// f.Options can list them. Nil means the values are unknown.
func choiceValues(ctx context.Context, f *Field) ([]string, error) {
	p := f.Property
	if p.Nature == metadata.NatureEnumeration {
		return p.Choices, nil
	}
	vs, ok := f.Options.(ValueSource)
	if !ok {
		return nil, nil
	}
	return vs.Values(ctx, p.DataSource)
}

func choiceOptions(values []string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{ID: int64(i + 1), Text: v}
	}
	return out
}

func checkChoice(ctx context.Context, f *Field, raw any) error {
	s := fmt.Sprint(raw)
	if raw == nil || s == "" {
		return nil
	}
	values, err := choiceValues(ctx, f)
	if err != nil || values == nil {
		return err
	}
	if !slices.Contains(values, s) {
		return apperror.NewInvalidInput(fmt.Sprintf("%s: %q is not one of the listed values", f.Property.Name, s)).
			WithDetail("field", f.Property.Name)
	}
	return nil
}

// --- many-to-many ---

type manyToManyTreatment struct {
	kind Kind
}

func (t manyToManyTreatment) CreateEntryField(ctx context.Context, f *Field) (*Control, error) {
	p := f.Property
	if p.Entry == nil {
		return nil, apperror.NewConfiguration("", p.Name, "property is not on the entry form")
	}
	options, err := loadOptions(ctx, f)
	if err != nil {
		return nil, err
	}
	ctl := &Control{
		Name:     p.Name,
		Kind:     t.kind,
		Label:    p.Title,
		Width:    p.Entry.Width,
		Required: p.Entry.Required,
		Target:   p.Relation.Target,
		Options:  options,
		Value:    []int64{},
	}
	if err := preset(ctx, f, ctl); err != nil {
		return nil, err
	}
	f.Container.Add(ctl, f.Position)
	return ctl, nil
}

func (manyToManyTreatment) WriteToForm(ctx context.Context, f *Field) error {
	return writeValue(ctx, f)
}

func (t manyToManyTreatment) ReadFromForm(ctx context.Context, f *Field) (bool, error) {
	p := f.Property
	ctl, err := f.Container.Find(p.Name)
	if err != nil {
		return false, err
	}
	next, err := p.Convert(ctl.Value)
	if err != nil {
		return false, err
	}
	ids, _ := next.([]int64)
	if ids == nil {
		ids = []int64{}
	}
	if sameIDs(p.Get(f.Entity).([]int64), ids) {
		return false, nil
	}
	if err := p.Set(f.Entity, ids); err != nil {
		return false, err
	}
	return true, nil
}

func (manyToManyTreatment) CreateFilterField(_ context.Context, f *Field) (*Control, error) {
	return nil, apperror.NewConfiguration("", f.Property.Name, "many_to_many property cannot be used as a filter")
}

func (manyToManyTreatment) ReadFromFilter(_ context.Context, f *Field) (any, bool, error) {
	return nil, false, apperror.NewConfiguration("", f.Property.Name, "many_to_many property cannot be used as a filter")
}

// --- one-to-many ---

// oneToManyTreatment rejects every surface: children are edited from their own form.
type oneToManyTreatment struct{}

func (oneToManyTreatment) fail(f *Field) error {
	return apperror.NewConfiguration("", f.Property.Name, "one_to_many collections cannot be placed on a surface")
}

func (t oneToManyTreatment) CreateEntryField(_ context.Context, f *Field) (*Control, error) {
	return nil, t.fail(f)
}

func (t oneToManyTreatment) WriteToForm(_ context.Context, f *Field) error {
	return t.fail(f)
}

func (t oneToManyTreatment) ReadFromForm(_ context.Context, f *Field) (bool, error) {
	return false, t.fail(f)
}

func (t oneToManyTreatment) CreateFilterField(_ context.Context, f *Field) (*Control, error) {
	return nil, t.fail(f)
}

func (t oneToManyTreatment) ReadFromFilter(_ context.Context, f *Field) (any, bool, error) {
	return nil, false, t.fail(f)
}

// --- helpers ---

// emptyValue is the value of a control with nothing typed in.
func emptyValue(p *metadata.Property) any {
	switch p.Nature {
	case metadata.NatureString, metadata.NatureStringWithDataSource, metadata.NatureEnumeration,
		metadata.NatureLocalizedString:
		return ""
	case metadata.NatureDateTime:
		return time.Time{}
	case metadata.NatureInteger, metadata.NatureManyToOne:
		return int64(0)
	case metadata.NatureDecimal:
		return decimal.Zero
	case metadata.NatureBoolean:
		return false
	}
	return nil
}

// controlValue turns a property value into the value held by its control.
func controlValue(ctx context.Context, p *metadata.Property, v any) any {
	switch p.Nature {
	case metadata.NatureString, metadata.NatureStringWithDataSource, metadata.NatureEnumeration:
		return reflect.ValueOf(v).String()
	case metadata.NatureLocalizedString:
		s, _ := v.(localized.String)
		return s.Text(ctx)
	case metadata.NatureDateTime:
		switch t := v.(type) {
		case time.Time:
			return t
		case *time.Time:
			if t == nil {
				return time.Time{}
			}
			return *t
		}
	case metadata.NatureInteger, metadata.NatureManyToOne:
		rv := reflect.ValueOf(v)
		if rv.CanUint() {
			return int64(rv.Uint())
		}
		return rv.Int()
	case metadata.NatureManyToManyCreation, metadata.NatureManyToManySelection:
		ids, _ := v.([]int64)
		return append([]int64{}, ids...)
	}
	return v
}

// preset fills a new entry control from the criteria carried by the form.
func preset(ctx context.Context, f *Field, ctl *Control) error {
	raw, ok := f.Criteria[f.Property.Name]
	if !ok || raw == nil {
		return nil
	}
	v, err := f.Property.Convert(raw)
	if err != nil {
		return err
	}
	if v != nil {
		ctl.Value = controlValue(ctx, f.Property, v)
	}
	return nil
}

func writeValue(ctx context.Context, f *Field) error {
	p := f.Property
	v := p.Get(f.Entity)
	if metadata.IsZeroValue(v) {
		return nil
	}
	ctl, err := f.Container.Find(p.Name)
	if err != nil {
		return err
	}
	ctl.Value = controlValue(ctx, p, v)
	return nil
}

func filterDefault(f *Field) any {
	if v, ok := f.Defaults[f.Property.TypeName()]; ok {
		return v
	}
	return emptyValue(f.Property)
}

func loadOptions(ctx context.Context, f *Field) ([]Option, error) {
	if f.Options == nil {
		return nil, nil
	}
	return f.Options.Options(ctx, f.Property.Relation.Target)
}

// readLocalized stores the typed text as the translation of the context
// language, keeping the other translations.
func readLocalized(ctx context.Context, p *metadata.Property, current, raw any) (any, error) {
	text, ok := raw.(string)
	if !ok {
		return p.Convert(raw)
	}
	prev, _ := current.(localized.String)
	out := make(localized.String, len(prev)+1)
	for k, v := range prev {
		out[k] = v
	}
	lang := localized.Language(ctx).String()
	if text == "" {
		delete(out, lang)
	} else {
		out[lang] = text
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func sameValue(a, b any) bool {
	if da, ok := a.(decimal.Decimal); ok {
		if db, ok := b.(decimal.Decimal); ok {
			return da.Equal(db)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
	}
	if metadata.IsZeroValue(a) && metadata.IsZeroValue(b) {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
