package postgres

import (
	"reflect"

	"gwin/internal/metadata"
)

// Columns shared by every entity table.
const (
	IDColumn        = "id"
	OrderColumn     = "sort_order"
	CreatedAtColumn = "created_at"
	UpdatedAtColumn = "updated_at"
)

// RowValues returns the persisted columns of obj (a pointer to an entity of def)
// and their values, in declaration order. The id column is left out: it is
// generated on insert and used as the key on update. An unset many-to-one id
// is written as NULL.
//
// Usage:
//
//	cols, vals := RowValues(cityDef, city)
//	// cols: ["sort_order", "created_at", "updated_at", "name", "country_id"]
func RowValues(def *metadata.Entity, obj any) ([]string, []any) {
	cols := make([]string, 0, len(def.Properties))
	vals := make([]any, 0, len(def.Properties))
	for _, p := range def.Properties {
		if !p.Persisted() || p.Column == IDColumn {
			continue
		}
		v := p.Get(obj)
		if p.Nature == metadata.NatureManyToOne && reflect.ValueOf(v).IsZero() {
			v = nil
		}
		cols = append(cols, p.Column)
		vals = append(vals, v)
	}
	return cols, vals
}

// SelectColumns returns the columns to read for def, qualified with its table
// so that the list stays unambiguous in joins and sub-selects. NULL many-to-one
// ids read as 0.
func SelectColumns(def *metadata.Entity) []string {
	out := make([]string, 0, len(def.Properties))
	for _, p := range def.Properties {
		if !p.Persisted() {
			continue
		}
		col := def.Table + "." + p.Column
		if p.Nature == metadata.NatureManyToOne {
			col = "COALESCE(" + col + ", 0) AS " + p.Column
		}
		out = append(out, col)
	}
	return out
}
