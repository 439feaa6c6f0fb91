package entity_repo

import (
	"context"
	"fmt"
	"reflect"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/infrastructure/storage/postgres"
	"gwin/internal/metadata"
)

// link is one owner/target pair read back from a link or child table.
type link struct {
	Owner  int64 `db:"owner"`
	Target int64 `db:"target"`
}

// SaveLinks replaces the link rows of every many-to-many property of e.
// Repeated ids are stored once. A nil collection was never loaded and keeps
// its stored rows; an empty one clears them.
func (r *Repo) SaveLinks(ctx context.Context, e entity.Entity) (int64, error) {
	ownerID := e.Base().ID
	querier := r.querier(ctx)

	var written int64
	for _, p := range r.def.Relations(metadata.ManyToMany) {
		ids := p.Get(e).([]int64)
		if ids == nil {
			continue
		}
		rel := p.Relation

		sql, args, err := r.Builder().
			Delete(rel.JoinTable).
			Where(squirrel.Eq{rel.JoinKey: ownerID}).
			ToSql()
		if err != nil {
			return written, fmt.Errorf("build link delete: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return written, postgres.MapError(err, "unlink "+p.Name, r.def.Name, ownerID)
		}

		ids = distinct(ids)
		if len(ids) == 0 {
			continue
		}

		q := r.Builder().
			Insert(rel.JoinTable).
			Columns(rel.JoinKey, rel.TargetKey)
		for _, id := range ids {
			q = q.Values(ownerID, id)
		}
		sql, args, err = q.ToSql()
		if err != nil {
			return written, fmt.Errorf("build link insert: %w", err)
		}
		result, err := querier.Exec(ctx, sql, args...)
		if err != nil {
			return written, postgres.MapError(err, "link "+p.Name, r.def.Name, ownerID)
		}
		written += result.RowsAffected()
	}
	return written, nil
}

// Include loads the named relationship properties into items: the target of a
// many-to-one goes into its "into" field, collections receive their ids.
func (r *Repo) Include(ctx context.Context, items []entity.Entity, props []string) error {
	if len(items) == 0 {
		return nil
	}
	for _, name := range props {
		p, ok := r.def.Property(name)
		if !ok || p.Relation == nil {
			return apperror.NewInvalidInput(fmt.Sprintf("%s is not a relationship of %s", name, r.def.Name))
		}

		var err error
		switch p.Relation.Kind {
		case metadata.ManyToOne:
			err = r.includeReference(ctx, items, p)
		case metadata.ManyToMany:
			err = r.includeLinks(ctx, items, p)
		case metadata.OneToMany:
			err = r.includeChildren(ctx, items, p)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) includeReference(ctx context.Context, items []entity.Entity, p *metadata.Property) error {
	if p.Relation.Into == "" {
		// nothing to load into
		return nil
	}
	target, err := r.target(p)
	if err != nil {
		return err
	}
	into, _ := r.def.Property(p.Relation.Into)

	var ids []int64
	for _, e := range items {
		if id := idValue(p.Get(e)); id > 0 {
			ids = append(ids, id)
		}
	}
	ids = distinct(ids)
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.Builder().
		Select(postgres.SelectColumns(target)...).
		From(target.Table).
		Where(squirrel.Eq{postgres.IDColumn: ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build include %s: %w", p.Name, err)
	}

	rows := reflect.New(reflect.SliceOf(reflect.PointerTo(target.Type)))
	if err := pgxscan.Select(ctx, r.querier(ctx), rows.Interface(), sql, args...); err != nil {
		return postgres.MapError(err, "include "+p.Name, r.def.Name, nil)
	}

	byID := make(map[int64]entity.Entity, rows.Elem().Len())
	for _, t := range entities(rows.Elem()) {
		byID[t.Base().ID] = t
	}
	for _, e := range items {
		if t, ok := byID[idValue(p.Get(e))]; ok {
			if err := into.Set(e, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Repo) includeLinks(ctx context.Context, items []entity.Entity, p *metadata.Property) error {
	rel := p.Relation
	q := r.Builder().
		Select(rel.JoinKey+" AS owner", rel.TargetKey+" AS target").
		From(rel.JoinTable).
		Where(squirrel.Eq{rel.JoinKey: ownerIDs(items)}).
		OrderBy(rel.JoinKey, rel.TargetKey)
	return r.loadCollection(ctx, items, p, q)
}

func (r *Repo) includeChildren(ctx context.Context, items []entity.Entity, p *metadata.Property) error {
	child, err := r.target(p)
	if err != nil {
		return err
	}
	fk := p.Relation.ForeignKey
	q := r.Builder().
		Select(fk+" AS owner", postgres.IDColumn+" AS target").
		From(child.Table).
		Where(squirrel.Eq{fk: ownerIDs(items)}).
		OrderBy(fk, postgres.IDColumn)
	return r.loadCollection(ctx, items, p, q)
}

func (r *Repo) loadCollection(ctx context.Context, items []entity.Entity, p *metadata.Property, q squirrel.SelectBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build include %s: %w", p.Name, err)
	}

	var links []link
	if err := pgxscan.Select(ctx, r.querier(ctx), &links, sql, args...); err != nil {
		return postgres.MapError(err, "include "+p.Name, r.def.Name, nil)
	}

	byOwner := make(map[int64][]int64, len(items))
	for _, l := range links {
		byOwner[l.Owner] = append(byOwner[l.Owner], l.Target)
	}
	for _, e := range items {
		ids := byOwner[e.Base().ID]
		if ids == nil {
			ids = []int64{}
		}
		if err := p.Set(e, ids); err != nil {
			return err
		}
	}
	return nil
}

func ownerIDs(items []entity.Entity) []int64 {
	ids := make([]int64, len(items))
	for i, e := range items {
		ids[i] = e.Base().ID
	}
	return ids
}

// idValue reads an integer id of any width.
func idValue(v any) int64 {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int()
	case rv.CanUint():
		return int64(rv.Uint())
	}
	return 0
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
