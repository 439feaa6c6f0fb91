package form

import (
	"context"
	"strings"

	"gwin/internal/core/entity"
	"gwin/internal/domain"
	"gwin/internal/metadata"
)

// Column is one grid column.
type Column struct {
	Name   string          `json:"name"`
	Title  string          `json:"title"`
	Width  int             `json:"width,omitempty"`
	Nature metadata.Nature `json:"nature"`
}

// Row is one entity rendered as display strings, one per column.
type Row struct {
	ID    int64    `json:"id"`
	Cells []string `json:"cells"`
}

// Grid is a page of entities laid out by the grid properties of their configuration.
type Grid struct {
	Entity     string   `json:"entity"`
	Title      string   `json:"title"`
	Columns    []Column `json:"columns"`
	Rows       []Row    `json:"rows"`
	TotalCount int64    `json:"totalCount"`
	PageStart  int      `json:"pageStart,omitempty"`
	PageSize   int      `json:"pageSize,omitempty"`
}

// LoadGrid lists the entities selected by q and renders them.
func LoadGrid(ctx context.Context, blo domain.BLO, q domain.Query, opts ...BuildOption) (*Grid, error) {
	def := blo.Config()
	for _, p := range def.GridProperties() {
		if p.Nature.IsManyToMany() && !containsName(q.Include, p.Name) {
			q.Include = append(q.Include, p.Name)
		}
	}
	items, err := blo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	total, err := blo.CountAll(ctx, q.Where...)
	if err != nil {
		return nil, err
	}
	g, err := NewGrid(ctx, def, items, opts...)
	if err != nil {
		return nil, err
	}
	g.TotalCount, g.PageStart, g.PageSize = total, q.PageStart, q.PageSize
	return g, nil
}

// NewGrid renders items. Relationship cells show the display member of the
// referenced entities, looked up through the option source.
func NewGrid(ctx context.Context, def *metadata.Entity, items []entity.Entity, opts ...BuildOption) (*Grid, error) {
	s := newSettings(opts)
	props := def.GridProperties()

	g := &Grid{
		Entity:     def.Name,
		Title:      def.Title,
		Columns:    make([]Column, len(props)),
		Rows:       make([]Row, 0, len(items)),
		TotalCount: int64(len(items)),
	}
	for i, p := range props {
		g.Columns[i] = Column{Name: p.Name, Title: p.Title, Width: p.Grid.Width, Nature: p.Nature}
	}

	labels := make(map[string]map[int64]string)
	lookup := func(target string) (map[int64]string, error) {
		if m, ok := labels[target]; ok {
			return m, nil
		}
		m := make(map[int64]string)
		if s.options != nil {
			options, err := s.options.Options(ctx, target)
			if err != nil {
				return nil, err
			}
			for _, o := range options {
				m[o.ID] = o.Text
			}
		}
		labels[target] = m
		return m, nil
	}

	for _, e := range items {
		row := Row{ID: e.Base().ID, Cells: make([]string, len(props))}
		for i, p := range props {
			cell, err := renderCell(ctx, p, e, lookup)
			if err != nil {
				return nil, err
			}
			row.Cells[i] = cell
		}
		g.Rows = append(g.Rows, row)
	}
	return g, nil
}

func renderCell(ctx context.Context, p *metadata.Property, e entity.Entity, lookup func(string) (map[int64]string, error)) (string, error) {
	v := p.Get(e)
	switch {
	case p.Nature == metadata.NatureManyToOne:
		id := controlValue(ctx, p, v).(int64)
		if id == 0 {
			return "", nil
		}
		names, err := lookup(p.Relation.Target)
		if err != nil {
			return "", err
		}
		if name, ok := names[id]; ok {
			return name, nil
		}
		return metadata.DisplayText(ctx, id), nil

	case p.Nature.IsManyToMany():
		ids, _ := v.([]int64)
		if len(ids) == 0 {
			return "", nil
		}
		names, err := lookup(p.Relation.Target)
		if err != nil {
			return "", err
		}
		parts := make([]string, len(ids))
		for i, id := range ids {
			if name, ok := names[id]; ok {
				parts[i] = name
			} else {
				parts[i] = metadata.DisplayText(ctx, id)
			}
		}
		return strings.Join(parts, ", "), nil
	}
	return metadata.DisplayText(ctx, v), nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
