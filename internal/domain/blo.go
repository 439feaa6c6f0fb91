package domain

import (
	"context"

	"gwin/internal/core/entity"
	"gwin/internal/core/usermsg"
	"gwin/internal/domain/filter"
	"gwin/internal/metadata"
)

// BLO is the type-erased business object used by forms, grids and the HTTP
// surface, which only know entities by name.
type BLO interface {
	EntityName() string
	Config() *metadata.Entity
	NewEntity() entity.Entity

	SaveEntity(ctx context.Context, e entity.Entity) (int64, error)
	DeleteByID(ctx context.Context, id int64) (int64, error)
	FindByID(ctx context.Context, id int64) (entity.Entity, error)
	List(ctx context.Context, q Query) ([]entity.Entity, error)
	SearchEntities(ctx context.Context, criteria map[string]any, pageStart, pageSize int) ([]entity.Entity, error)
	CountAll(ctx context.Context, where ...filter.Item) (int64, error)
	ApplyRules(ctx context.Context, field string, e entity.Entity) error

	Messages() *usermsg.Board
	Close() error
}

// NewEntity returns a zero entity of the configured type.
func (g *Gateway[T]) NewEntity() entity.Entity {
	return g.def.New()
}

// SaveEntity is Save for an entity of the configured type.
func (g *Gateway[T]) SaveEntity(ctx context.Context, e entity.Entity) (int64, error) {
	t, err := g.cast(e)
	if err != nil {
		return SaveFailed, g.report(ctx, "save", err)
	}
	return g.Save(ctx, t)
}

// DeleteByID is Delete.
func (g *Gateway[T]) DeleteByID(ctx context.Context, id int64) (int64, error) {
	return g.Delete(ctx, id)
}

// FindByID is GetByID.
func (g *Gateway[T]) FindByID(ctx context.Context, id int64) (entity.Entity, error) {
	e, err := g.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List is GetAll without the static type.
func (g *Gateway[T]) List(ctx context.Context, q Query) ([]entity.Entity, error) {
	return g.list(ctx, q)
}

// SearchEntities is Search without the static type.
func (g *Gateway[T]) SearchEntities(ctx context.Context, criteria map[string]any, pageStart, pageSize int) ([]entity.Entity, error) {
	items, err := g.Search(ctx, criteria, pageStart, pageSize)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Entity, len(items))
	for i, e := range items {
		out[i] = e
	}
	return out, nil
}

// CountAll is Count.
func (g *Gateway[T]) CountAll(ctx context.Context, where ...filter.Item) (int64, error) {
	return g.Count(ctx, where...)
}

// ApplyRules is ApplyBusinessRulesAfterFieldChanged for an entity of the configured type.
func (g *Gateway[T]) ApplyRules(ctx context.Context, field string, e entity.Entity) error {
	t, err := g.cast(e)
	if err != nil {
		return err
	}
	return g.ApplyBusinessRulesAfterFieldChanged(ctx, field, t)
}
