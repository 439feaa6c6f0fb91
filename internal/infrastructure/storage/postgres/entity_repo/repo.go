// Package entity_repo provides the PostgreSQL repository shared by every configured entity.
// Statements are built from the entity configuration: one owner table per entity,
// one link table per many-to-many property.
package entity_repo

import (
	"context"
	"fmt"
	"reflect"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/domain"
	"gwin/internal/domain/filter"
	"gwin/internal/infrastructure/storage/postgres"
	"gwin/internal/metadata"
)

// Store opens repositories on one database.
type Store struct {
	registry *metadata.Registry
	txm      *postgres.TxManager
}

// Compile-time check that Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// NewStore creates a store. The registry resolves relationship targets for includes.
func NewStore(registry *metadata.Registry, txm *postgres.TxManager) *Store {
	return &Store{registry: registry, txm: txm}
}

// Repository implements domain.Store.
func (s *Store) Repository(def *metadata.Entity) domain.Repository {
	return NewRepo(def, s.registry, s.txm)
}

// Repo persists the entities of one configuration.
type Repo struct {
	def      *metadata.Entity
	registry *metadata.Registry
	txm      *postgres.TxManager
}

// Compile-time check that Repo implements domain.Repository.
var _ domain.Repository = (*Repo)(nil)

// NewRepo creates a repository for def.
func NewRepo(def *metadata.Entity, registry *metadata.Registry, txm *postgres.TxManager) *Repo {
	return &Repo{def: def, registry: registry, txm: txm}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *Repo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// baseSelect creates a SELECT of every persisted column.
func (r *Repo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(postgres.SelectColumns(r.def)...).
		From(r.def.Table)
}

// Insert stores e and sets its generated ID.
func (r *Repo) Insert(ctx context.Context, e entity.Entity) error {
	cols, vals := postgres.RowValues(r.def, e)

	q := r.Builder().
		Insert(r.def.Table).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING " + postgres.IDColumn)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return postgres.MapError(err, "insert", r.def.Name, nil)
	}
	e.Base().ID = id
	return nil
}

// Update rewrites every persisted column of e except the creation stamp.
func (r *Repo) Update(ctx context.Context, e entity.Entity) (int64, error) {
	cols, vals := postgres.RowValues(r.def, e)

	q := r.Builder().Update(r.def.Table)
	for i, col := range cols {
		if col == postgres.CreatedAtColumn {
			continue
		}
		q = q.Set(col, vals[i])
	}
	q = q.Where(squirrel.Eq{postgres.IDColumn: e.Base().ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.MapError(err, "update", r.def.Name, e.Base().ID)
	}
	return result.RowsAffected(), nil
}

// Delete performs physical removal. Link rows go with the owner row (ON DELETE CASCADE).
func (r *Repo) Delete(ctx context.Context, id int64) (int64, error) {
	q := r.Builder().
		Delete(r.def.Table).
		Where(squirrel.Eq{postgres.IDColumn: id})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.MapError(err, "delete", r.def.Name, id)
	}
	return result.RowsAffected(), nil
}

// GetByID retrieves one entity without its collections.
func (r *Repo) GetByID(ctx context.Context, id int64) (entity.Entity, error) {
	e := r.def.New()

	q := r.baseSelect().
		Where(squirrel.Eq{postgres.IDColumn: id}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.def.Name, id)
		}
		return nil, postgres.MapError(err, "get", r.def.Name, id)
	}
	return e, nil
}

// List retrieves the entities selected by q.
func (r *Repo) List(ctx context.Context, q domain.Query) ([]entity.Entity, error) {
	sb, err := r.where(r.baseSelect(), q.Where)
	if err != nil {
		return nil, err
	}

	orderBy, err := r.parseOrderBy(q.OrderBy)
	if err != nil {
		return nil, err
	}
	sb = sb.OrderBy(orderBy)

	if q.Paged() {
		sb = sb.Limit(uint64(q.PageSize))
		if offset := q.Offset(); offset > 0 {
			sb = sb.Offset(offset)
		}
	}

	sql, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	// scan into []*T, then erase the element type
	rows := reflect.New(reflect.SliceOf(reflect.PointerTo(r.def.Type)))
	if err := pgxscan.Select(ctx, r.querier(ctx), rows.Interface(), sql, args...); err != nil {
		return nil, postgres.MapError(err, "list", r.def.Name, nil)
	}
	return entities(rows.Elem()), nil
}

// Count returns the number of rows matching where.
func (r *Repo) Count(ctx context.Context, where []filter.Item) (int64, error) {
	sb, err := r.where(r.Builder().Select("COUNT(*)").From(r.def.Table), where)
	if err != nil {
		return 0, err
	}

	sql, args, err := sb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var n int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, postgres.MapError(err, "count", r.def.Name, nil)
	}
	return n, nil
}

func entities(slice reflect.Value) []entity.Entity {
	out := make([]entity.Entity, slice.Len())
	for i := range out {
		out[i] = slice.Index(i).Interface().(entity.Entity)
	}
	return out
}
