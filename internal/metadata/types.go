// Package metadata builds and caches the per entity configuration that drives
// entry forms, grids, filters and the persistence gateway.
//
// Configuration is declared with struct tags:
//
//	type City struct {
//		entity.BaseEntity `entity:"display=Name,menu=Configuration"`
//
//		Name      localized.String `db:"name" entry:"order=1,required" grid:"" filter:""`
//		CountryID int64            `db:"country_id" entry:"order=2" grid:"" filter:"" rel:"many_to_one,target=Country,into=Country"`
//		Country   *Country         `db:"-"`
//	}
package metadata

import (
	"reflect"
)

// Nature is the closed classification of a property. It selects the field treatment.
type Nature string

const (
	NatureNone                 Nature = ""
	NatureString               Nature = "string"
	NatureStringWithDataSource Nature = "string_with_data_source"
	NatureEnumeration          Nature = "enumeration"
	NatureLocalizedString      Nature = "localized_string"
	NatureDateTime             Nature = "date_time"
	NatureInteger              Nature = "integer"
	NatureDecimal              Nature = "decimal"
	NatureBoolean              Nature = "boolean"
	NatureManyToOne            Nature = "many_to_one"
	NatureManyToManyCreation   Nature = "many_to_many_creation"
	NatureManyToManySelection  Nature = "many_to_many_selection"
	NatureOneToMany            Nature = "one_to_many"
)

// IsManyToMany reports whether n is one of the many-to-many natures.
func (n Nature) IsManyToMany() bool {
	return n == NatureManyToManyCreation || n == NatureManyToManySelection
}

// IsScalar reports whether values of n live in a column of the owner table.
func (n Nature) IsScalar() bool {
	switch n {
	case NatureString, NatureStringWithDataSource, NatureEnumeration,
		NatureLocalizedString, NatureDateTime, NatureInteger,
		NatureDecimal, NatureBoolean, NatureManyToOne:
		return true
	}
	return false
}

// IsChoice reports whether values of n are picked from a list of strings.
func (n Nature) IsChoice() bool {
	return n == NatureStringWithDataSource || n == NatureEnumeration
}

// RelationKind is the relationship declared by the rel tag.
type RelationKind string

const (
	OneToMany  RelationKind = "one_to_many"
	ManyToOne  RelationKind = "many_to_one"
	ManyToMany RelationKind = "many_to_many"
)

// EditMode selects how a many-to-many collection is edited.
type EditMode string

const (
	// ModeSelection picks existing target entities (check list).
	ModeSelection EditMode = "selection"
	// ModeCreation creates target entities from the owner form (sub grid).
	ModeCreation EditMode = "creation"
)

// Relationship describes a rel tag.
type Relationship struct {
	Kind   RelationKind `json:"kind" yaml:"kind"`
	Mode   EditMode     `json:"mode,omitempty" yaml:"mode,omitempty"`
	Target string       `json:"target" yaml:"target"`

	// Into names the pointer field receiving the loaded many-to-one target.
	Into string `json:"into,omitempty" yaml:"into,omitempty"`

	// JoinTable, JoinKey and TargetKey describe the many-to-many link table.
	JoinTable string `json:"joinTable,omitempty" yaml:"joinTable,omitempty"`
	JoinKey   string `json:"joinKey,omitempty" yaml:"joinKey,omitempty"`
	TargetKey string `json:"targetKey,omitempty" yaml:"targetKey,omitempty"`

	// ForeignKey is the child column pointing back at the owner (one-to-many).
	ForeignKey string `json:"foreignKey,omitempty" yaml:"foreignKey,omitempty"`
}

// Surface holds the settings of a property on one UI surface.
type Surface struct {
	Order      int  `json:"order" yaml:"order"`
	Width      int  `json:"width,omitempty" yaml:"width,omitempty"`
	MultiLine  bool `json:"multiLine,omitempty" yaml:"multiLine,omitempty"`
	Required   bool `json:"required,omitempty" yaml:"required,omitempty"`
	AllowEmpty bool `json:"allowEmpty,omitempty" yaml:"allowEmpty,omitempty"`
}

// Property wraps one reflected field and its resolved configuration.
type Property struct {
	Name     string        `json:"name" yaml:"name"`
	Title    string        `json:"title" yaml:"title"`
	Column   string        `json:"column,omitempty" yaml:"column,omitempty"`
	Nature   Nature        `json:"nature,omitempty" yaml:"nature,omitempty"`
	Glossary bool          `json:"glossary,omitempty" yaml:"glossary,omitempty"`
	Relation *Relationship `json:"relation,omitempty" yaml:"relation,omitempty"`

	// DataSource names the value source of a string_with_data_source property.
	DataSource string `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`

	// Choices are the values of an enumeration, in declaration order.
	Choices []string `json:"choices,omitempty" yaml:"choices,omitempty"`

	Entry  *Surface `json:"entry,omitempty" yaml:"entry,omitempty"`
	Grid   *Surface `json:"grid,omitempty" yaml:"grid,omitempty"`
	Filter *Surface `json:"filter,omitempty" yaml:"filter,omitempty"`

	Type  reflect.Type `json:"-" yaml:"-"`
	Index []int        `json:"-" yaml:"-"`

	// position in declaration order, used to break order ties
	seq int
}

// TypeName is the Go type name used to key default filter values ("string", "int64", "String").
func (p *Property) TypeName() string {
	if p.Type.Name() != "" {
		return p.Type.Name()
	}
	return p.Type.String()
}

// Persisted reports whether the property maps to a column of the owner table.
func (p *Property) Persisted() bool {
	return p.Column != ""
}

// Entity is the configuration of one entity type.
type Entity struct {
	Name          string `json:"name" yaml:"name"`
	Title         string `json:"title" yaml:"title"`
	Table         string `json:"table" yaml:"table"`
	DisplayMember string `json:"displayMember" yaml:"displayMember"`
	Localizable   bool   `json:"localizable,omitempty" yaml:"localizable,omitempty"`
	MenuGroup     string `json:"menuGroup,omitempty" yaml:"menuGroup,omitempty"`

	Properties []*Property `json:"properties" yaml:"properties"`

	Type reflect.Type `json:"-" yaml:"-"`

	entry  []*Property
	grid   []*Property
	filter []*Property
	byName map[string]*Property
}

// EntryProperties returns the entry form fields in display order.
func (e *Entity) EntryProperties() []*Property { return e.entry }

// GridProperties returns the grid columns in display order.
func (e *Entity) GridProperties() []*Property { return e.grid }

// FilterProperties returns the filter fields in display order.
func (e *Entity) FilterProperties() []*Property { return e.filter }

// Property returns the property named name (Go field name).
func (e *Entity) Property(name string) (*Property, bool) {
	p, ok := e.byName[name]
	return p, ok
}

// Columns returns the persisted column names in declaration order.
func (e *Entity) Columns() []string {
	cols := make([]string, 0, len(e.Properties))
	for _, p := range e.Properties {
		if p.Persisted() {
			cols = append(cols, p.Column)
		}
	}
	return cols
}

// Relations returns the properties carrying a relationship of kind k.
func (e *Entity) Relations(k RelationKind) []*Property {
	var out []*Property
	for _, p := range e.Properties {
		if p.Relation != nil && p.Relation.Kind == k {
			out = append(out, p)
		}
	}
	return out
}
