// Package domaintest provides in-memory stores for tests of packages built on
// business objects.
package domaintest

import (
	"context"
	"sort"
	"sync"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/domain"
	"gwin/internal/domain/filter"
	"gwin/internal/metadata"
)

// Store keeps one Repo per entity configuration.
type Store struct {
	mu    sync.Mutex
	repos map[string]*Repo
}

var _ domain.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{repos: make(map[string]*Repo)}
}

// Repository implements domain.Store.
func (s *Store) Repository(def *metadata.Entity) domain.Repository {
	return s.Repo(def)
}

// Repo returns the repository of def, creating it on first use.
func (s *Store) Repo(def *metadata.Entity) *Repo {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[def.Name]
	if !ok {
		r = &Repo{def: def, rows: make(map[int64]entity.Entity)}
		s.repos[def.Name] = r
	}
	return r
}

// Repo stores detached copies of entities by id. Where predicates other than
// equality are ignored. Like the SQL store, rows are read without their
// many-to-many ids until Include loads them, and a nil collection on update
// keeps the stored one.
type Repo struct {
	mu   sync.Mutex
	def  *metadata.Entity
	rows map[int64]entity.Entity
	next int64

	// InsertErr and DeleteErr are returned by the next calls when set.
	InsertErr error
	DeleteErr error
}

var _ domain.Repository = (*Repo)(nil)

func (r *Repo) Insert(_ context.Context, e entity.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InsertErr != nil {
		return r.InsertErr
	}
	r.next++
	e.Base().ID = r.next
	row := r.def.Clone(e)
	for _, p := range r.def.Relations(metadata.ManyToMany) {
		if p.Get(row).([]int64) == nil {
			_ = p.Set(row, []int64{})
		}
	}
	r.rows[r.next] = row
	return nil
}

func (r *Repo) Update(_ context.Context, e entity.Entity) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[e.Base().ID]
	if !ok {
		return 0, nil
	}
	row := r.def.Clone(e)
	for _, p := range r.def.Relations(metadata.ManyToMany) {
		if p.Get(row).([]int64) == nil {
			_ = p.Set(row, p.Get(stored))
		}
	}
	r.rows[e.Base().ID] = row
	return 1, nil
}

func (r *Repo) Delete(_ context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeleteErr != nil {
		return 0, r.DeleteErr
	}
	if _, ok := r.rows[id]; !ok {
		return 0, nil
	}
	delete(r.rows, id)
	return 1, nil
}

func (r *Repo) GetByID(_ context.Context, id int64) (entity.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return nil, apperror.NewNotFound(r.def.Name, id)
	}
	return r.detach(e), nil
}

func (r *Repo) List(_ context.Context, q domain.Query) ([]entity.Entity, error) {
	items := r.matching(q.Where)
	if !q.Paged() {
		return items, nil
	}
	start := int(q.Offset())
	if start >= len(items) {
		return []entity.Entity{}, nil
	}
	end := start + q.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

func (r *Repo) Count(_ context.Context, where []filter.Item) (int64, error) {
	return int64(len(r.matching(where))), nil
}

// matching returns the rows passing the equality predicates of where, newest first.
func (r *Repo) matching(where []filter.Item) []entity.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Entity, 0, len(r.rows))
	for _, e := range r.rows {
		if r.match(e, where) {
			out = append(out, r.detach(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base().ID > out[j].Base().ID })
	return out
}

func (r *Repo) match(e entity.Entity, where []filter.Item) bool {
	for _, item := range where {
		if item.Operator != filter.Equal {
			continue
		}
		p, ok := r.def.Property(item.Field)
		if !ok {
			return false
		}
		want, err := p.Convert(item.Value)
		if err != nil || metadata.DisplayText(context.Background(), p.Get(e)) != metadata.DisplayText(context.Background(), want) {
			return false
		}
	}
	return true
}

// detach copies a stored row without its many-to-many ids.
func (r *Repo) detach(e entity.Entity) entity.Entity {
	cp := r.def.Clone(e)
	for _, p := range r.def.Relations(metadata.ManyToMany) {
		_ = p.Set(cp, nil)
	}
	return cp
}

// SaveLinks counts the ids of every loaded many-to-many property; Insert and
// Update already stored them.
func (r *Repo) SaveLinks(_ context.Context, e entity.Entity) (int64, error) {
	var n int64
	for _, p := range r.def.Relations(metadata.ManyToMany) {
		ids, _ := p.Get(e).([]int64)
		n += countDistinct(ids)
	}
	return n, nil
}

// Include loads the stored many-to-many ids of items. Other relationships are
// left as stored.
func (r *Repo) Include(_ context.Context, items []entity.Entity, props []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range props {
		p, ok := r.def.Property(name)
		if !ok || p.Relation == nil {
			return apperror.NewInvalidInput(name + " is not a relationship of " + r.def.Name)
		}
		if p.Relation.Kind != metadata.ManyToMany {
			continue
		}
		for _, e := range items {
			ids := []int64{}
			if stored, ok := r.rows[e.Base().ID]; ok {
				ids = append(ids, p.Get(stored).([]int64)...)
			}
			if err := p.Set(e, ids); err != nil {
				return err
			}
		}
	}
	return nil
}

func countDistinct(ids []int64) int64 {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return int64(len(seen))
}

// Len returns the number of stored rows.
func (r *Repo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// DirectTx runs functions without a transaction.
type DirectTx struct{}

func (DirectTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (DirectTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
