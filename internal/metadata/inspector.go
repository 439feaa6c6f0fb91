package metadata

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-openapi/inflect"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
)

var (
	typeTime      = reflect.TypeOf(time.Time{})
	typeDecimal   = reflect.TypeOf(decimal.Decimal{})
	typeLocalized = reflect.TypeOf(localized.String{})
	typeIDs       = reflect.TypeOf([]int64{})
	typeBase      = reflect.TypeOf(entity.BaseEntity{})
	typeEntity    = reflect.TypeOf((*entity.Entity)(nil)).Elem()
)

var titleCaser = cases.Title(language.English)

// naming keeps the ID acronym in one piece: "RoleIDs" -> "role_ids".
var naming = func() *inflect.Ruleset {
	rs := inflect.NewDefaultRuleset()
	rs.AddAcronym("ID")
	return rs
}()

// Inspect builds the configuration of the entity type t (struct or pointer to struct).
// Malformed or conflicting tags are reported as configuration errors.
func Inspect(t reflect.Type) (*Entity, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, apperror.NewConfiguration(t.String(), "", "entity type must be a struct")
	}
	if !reflect.PointerTo(t).Implements(typeEntity) {
		return nil, apperror.NewConfiguration(t.Name(), "", "entity type must embed entity.BaseEntity")
	}

	def := &Entity{
		Name:   t.Name(),
		Title:  guessTitle(naming.Pluralize(t.Name())),
		Table:  TableName(t.Name()),
		Type:   t,
		byName: make(map[string]*Property),
	}

	b := &builder{def: def}
	if err := b.inspectStruct(t, nil); err != nil {
		return nil, err
	}
	if err := b.applyEntityOptions(); err != nil {
		return nil, err
	}
	if err := b.checkInto(); err != nil {
		return nil, err
	}
	for _, p := range def.Relations(ManyToMany) {
		if p.Relation.JoinTable == "" {
			p.Relation.JoinTable = def.Table + "_" + naming.Underscore(p.Name)
		}
	}

	def.entry = surfaceList(def.Properties, func(p *Property) *Surface { return p.Entry })
	def.grid = surfaceList(def.Properties, func(p *Property) *Surface { return p.Grid })
	def.filter = surfaceList(def.Properties, func(p *Property) *Surface { return p.Filter })

	return def, nil
}

type builder struct {
	def        *Entity
	entityTags []string
	seq        int
}

func (b *builder) fail(field, format string, args ...any) error {
	return apperror.NewConfiguration(b.def.Name, field, fmt.Sprintf(format, args...))
}

func (b *builder) inspectStruct(t reflect.Type, parent []int) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int{}, parent...), i)

		// Handle embedded structs (flattening)
		if field.Anonymous {
			if tag, ok := field.Tag.Lookup(TagEntity); ok {
				b.entityTags = append(b.entityTags, tag)
			}
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := b.inspectStruct(ft, index); err != nil {
					return err
				}
			}
			continue
		}

		if field.PkgPath != "" { // unexported
			continue
		}
		if _, dup := b.def.byName[field.Name]; dup {
			return b.fail(field.Name, "property %s is declared twice", field.Name)
		}

		p, err := b.inspectField(field, index)
		if err != nil {
			return err
		}
		b.def.Properties = append(b.def.Properties, p)
		b.def.byName[p.Name] = p
	}
	return nil
}

func (b *builder) inspectField(field reflect.StructField, index []int) (*Property, error) {
	p := &Property{
		Name:   field.Name,
		Title:  guessTitle(field.Name),
		Column: dbColumn(field.Tag.Get(TagDB)),
		Type:   field.Type,
		Index:  index,
		seq:    b.seq,
	}
	b.seq++

	if tag, ok := field.Tag.Lookup(TagDisplay); ok {
		o := parseOptions(tag)
		if k := o.unknown(false, "title", "glossary"); k != "" {
			return nil, b.fail(field.Name, "unknown display option %q", k)
		}
		if title := o.get("title"); title != "" {
			p.Title = title
		}
		p.Glossary = o.has("glossary")
	}

	var err error
	if p.Entry, err = b.surface(field, TagEntry, "order", "width", "multiline", "required"); err != nil {
		return nil, err
	}
	if p.Grid, err = b.surface(field, TagGrid, "order", "width"); err != nil {
		return nil, err
	}
	if p.Filter, err = b.surface(field, TagFilter, "order", "width", "allowempty"); err != nil {
		return nil, err
	}

	if tag, ok := field.Tag.Lookup(TagRel); ok {
		if p.Relation, err = b.relationship(field, tag); err != nil {
			return nil, err
		}
	}
	if tag, ok := field.Tag.Lookup(TagSource); ok {
		if p.DataSource = strings.TrimSpace(tag); p.DataSource == "" {
			return nil, b.fail(field.Name, "source tag names no data source")
		}
	}
	if tag, ok := field.Tag.Lookup(TagEnum); ok {
		if p.Choices, err = b.choices(field, tag); err != nil {
			return nil, err
		}
	}

	if p.Nature, err = b.nature(p); err != nil {
		return nil, err
	}
	if err := b.checkSurfaces(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *builder) surface(field reflect.StructField, key string, allowed ...string) (*Surface, error) {
	tag, ok := field.Tag.Lookup(key)
	if !ok {
		return nil, nil
	}
	o := parseOptions(tag)
	if k := o.unknown(false, allowed...); k != "" {
		return nil, b.fail(field.Name, "unknown %s option %q", key, k)
	}
	s := &Surface{
		MultiLine:  o.has("multiline"),
		Required:   o.has("required"),
		AllowEmpty: o.has("allowempty"),
	}
	var err error
	if s.Order, err = o.intValue("order"); err != nil {
		return nil, b.fail(field.Name, "%s: %v", key, err)
	}
	if s.Width, err = o.intValue("width"); err != nil {
		return nil, b.fail(field.Name, "%s: %v", key, err)
	}
	return s, nil
}

func (b *builder) relationship(field reflect.StructField, tag string) (*Relationship, error) {
	o := parseOptions(tag)
	if k := o.unknown(true, "target", "mode", "into", "join", "join_key", "target_key", "fk"); k != "" {
		return nil, b.fail(field.Name, "unknown rel option %q", k)
	}

	r := &Relationship{
		Kind:   RelationKind(o.head),
		Target: o.get("target"),
		Into:   o.get("into"),
	}
	if r.Target == "" {
		return nil, b.fail(field.Name, "relationship requires a target entity")
	}

	owner := naming.Underscore(b.def.Name)
	switch r.Kind {
	case ManyToOne, OneToMany:
		if o.has("mode") {
			return nil, b.fail(field.Name, "edit mode is only valid for many_to_many relationships")
		}
		if r.Kind == OneToMany {
			r.ForeignKey = o.get("fk")
			if r.ForeignKey == "" {
				r.ForeignKey = owner + "_id"
			}
		}
	case ManyToMany:
		r.Mode = EditMode(o.get("mode"))
		if r.Mode == "" {
			r.Mode = ModeSelection
		}
		if r.Mode != ModeSelection && r.Mode != ModeCreation {
			return nil, b.fail(field.Name, "unknown many_to_many edit mode %q", r.Mode)
		}
		// an empty join table is derived once the entity table is known
		r.JoinTable = o.get("join")
		r.JoinKey = o.get("join_key")
		if r.JoinKey == "" {
			r.JoinKey = owner + "_id"
		}
		r.TargetKey = o.get("target_key")
		if r.TargetKey == "" {
			r.TargetKey = naming.Underscore(r.Target) + "_id"
		}
		if r.TargetKey == r.JoinKey {
			return nil, b.fail(field.Name, "join and target keys are both %q, set join_key or target_key", r.JoinKey)
		}
	case "":
		return nil, b.fail(field.Name, "relationship kind is missing")
	default:
		return nil, b.fail(field.Name, "unknown relationship kind %q", r.Kind)
	}
	if r.Into != "" && r.Kind != ManyToOne {
		return nil, b.fail(field.Name, "into is only valid for many_to_one relationships")
	}
	return r, nil
}

// choices parses an enum tag: values separated by "|".
func (b *builder) choices(field reflect.StructField, tag string) ([]string, error) {
	var out []string
	for _, v := range strings.Split(tag, "|") {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, b.fail(field.Name, "enum has an empty value")
		}
		if slices.Contains(out, v) {
			return nil, b.fail(field.Name, "enum value %q is listed twice", v)
		}
		out = append(out, v)
	}
	return out, nil
}

// nature classifies the property from its relationship and Go type.
func (b *builder) nature(p *Property) (Nature, error) {
	t := p.Type

	if p.DataSource != "" || p.Choices != nil {
		switch {
		case p.DataSource != "" && p.Choices != nil:
			return NatureNone, b.fail(p.Name, "source and enum cannot be combined")
		case p.Relation != nil:
			return NatureNone, b.fail(p.Name, "source and enum cannot be combined with a relationship")
		case t.Kind() != reflect.String:
			return NatureNone, b.fail(p.Name, "source and enum need a string property, got %s", t)
		case p.DataSource != "":
			return NatureStringWithDataSource, nil
		}
		return NatureEnumeration, nil
	}

	if r := p.Relation; r != nil {
		switch r.Kind {
		case ManyToOne:
			if !isInteger(t) {
				return NatureNone, b.fail(p.Name, "many_to_one property must be an integer id, got %s", t)
			}
			return NatureManyToOne, nil
		case ManyToMany, OneToMany:
			if t != typeIDs {
				return NatureNone, b.fail(p.Name, "%s property must be []int64, got %s", r.Kind, t)
			}
			if p.Persisted() {
				return NatureNone, b.fail(p.Name, "%s property is stored outside the owner table and must be tagged db:\"-\"", r.Kind)
			}
			if r.Kind == OneToMany {
				return NatureOneToMany, nil
			}
			if r.Mode == ModeCreation {
				return NatureManyToManyCreation, nil
			}
			return NatureManyToManySelection, nil
		}
	}

	if t.Kind() == reflect.Ptr && t.Elem() == typeTime {
		return NatureDateTime, nil
	}
	switch {
	case t == typeLocalized:
		return NatureLocalizedString, nil
	case t == typeTime:
		return NatureDateTime, nil
	case t == typeDecimal:
		return NatureDecimal, nil
	case t.Kind() == reflect.String:
		return NatureString, nil
	case t.Kind() == reflect.Bool:
		return NatureBoolean, nil
	case isInteger(t):
		return NatureInteger, nil
	}
	return NatureNone, nil
}

func (b *builder) checkSurfaces(p *Property) error {
	onSurface := p.Entry != nil || p.Grid != nil || p.Filter != nil
	if !onSurface {
		return nil
	}
	if p.Nature == NatureNone {
		return b.fail(p.Name, "type %s cannot be shown on a form, grid or filter", p.Type)
	}
	if p.Nature == NatureOneToMany {
		return b.fail(p.Name, "one_to_many collections are edited from the child entity and cannot be placed on a surface")
	}
	if p.Nature.IsManyToMany() && p.Filter != nil {
		return b.fail(p.Name, "many_to_many property cannot be used as a filter")
	}
	if p.Nature.IsScalar() && !p.Persisted() {
		return b.fail(p.Name, "property shown on a surface must be persisted, add a db tag")
	}
	if p.Entry != nil && p.Entry.MultiLine && p.Nature != NatureString && p.Nature != NatureLocalizedString {
		return b.fail(p.Name, "multiline is only valid for text properties")
	}
	if p.Filter != nil && p.Filter.AllowEmpty && p.Nature != NatureManyToOne && !p.Nature.IsChoice() {
		return b.fail(p.Name, "allowempty is only valid for many_to_one, source and enum filters")
	}
	return nil
}

func (b *builder) applyEntityOptions() error {
	def := b.def
	if len(b.entityTags) > 1 {
		return b.fail("", "entity options are declared on more than one embedded field")
	}
	if len(b.entityTags) == 1 {
		o := parseOptions(b.entityTags[0])
		if k := o.unknown(false, "display", "localizable", "title", "menu", "table"); k != "" {
			return b.fail("", "unknown entity option %q", k)
		}
		def.DisplayMember = o.get("display")
		def.Localizable = o.has("localizable")
		def.MenuGroup = o.get("menu")
		if title := o.get("title"); title != "" {
			def.Title = title
		}
		if table := o.get("table"); table != "" {
			def.Table = table
		}
	}

	if def.DisplayMember == "" {
		def.DisplayMember = defaultDisplayMember(def)
	}
	p, ok := def.byName[def.DisplayMember]
	if !ok {
		return b.fail(def.DisplayMember, "display member %s is not a property", def.DisplayMember)
	}
	if !p.Nature.IsScalar() {
		return b.fail(def.DisplayMember, "display member must be a scalar property")
	}
	return nil
}

func (b *builder) checkInto() error {
	for _, p := range b.def.Properties {
		if p.Relation == nil || p.Relation.Into == "" {
			continue
		}
		into, ok := b.def.byName[p.Relation.Into]
		if !ok {
			return b.fail(p.Name, "into names missing property %s", p.Relation.Into)
		}
		if into.Persisted() {
			return b.fail(into.Name, "loaded reference %s must be tagged db:\"-\"", into.Name)
		}
		if into.Type.Kind() != reflect.Ptr || !into.Type.Implements(typeEntity) {
			return b.fail(into.Name, "loaded reference %s must be a pointer to an entity, got %s", into.Name, into.Type)
		}
		if into.Type.Elem().Name() != p.Relation.Target {
			return b.fail(into.Name, "loaded reference %s is %s, relationship target is %s",
				into.Name, into.Type.Elem().Name(), p.Relation.Target)
		}
	}
	return nil
}

func defaultDisplayMember(def *Entity) string {
	for _, name := range []string{"Name", "Title", "Code"} {
		if p, ok := def.byName[name]; ok && p.Nature.IsScalar() {
			return name
		}
	}
	for _, p := range def.Properties {
		if p.Entry != nil && (p.Nature == NatureString || p.Nature == NatureLocalizedString) {
			return p.Name
		}
	}
	return "ID"
}

// surfaceList returns the properties present on a surface, ascending by order
// with ties kept in declaration order.
func surfaceList(props []*Property, on func(*Property) *Surface) []*Property {
	var out []*Property
	for _, p := range props {
		if on(p) != nil {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return on(out[i]).Order < on(out[j]).Order
	})
	return out
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// TableName derives the table of an entity: "MenuItem" -> "menu_items".
func TableName(entityName string) string {
	return naming.Underscore(naming.Pluralize(entityName))
}

// guessTitle turns a Go identifier into a label: "BirthDate" -> "Birth Date",
// "CountryID" -> "Country", "RoleIDs" -> "Roles".
func guessTitle(name string) string {
	if name == "ID" {
		return name
	}
	if base, ok := strings.CutSuffix(name, "IDs"); ok && base != "" {
		name = naming.Pluralize(base)
	}
	name = strings.TrimSuffix(name, "ID")
	words := strings.ReplaceAll(naming.Underscore(name), "_", " ")
	return titleCaser.String(words)
}
