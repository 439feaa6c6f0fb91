package domain

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
	"gwin/internal/domain/filter"
	"gwin/internal/metadata"
)

type part struct {
	entity.BaseEntity `entity:"menu=Stock"`

	Name  string  `db:"name" entry:"order=1,required" grid:"" filter:""`
	Qty   int64   `db:"qty" entry:"order=2" grid:"" filter:""`
	Tags  []int64 `db:"-" entry:"order=3" rel:"many_to_many,target=tag"`
	Notes string  `db:"notes"`
	Grade string  `db:"grade" enum:"A|B|C"`
}

func (p *part) Validate(context.Context) error {
	if p.Qty < 0 {
		return errors.New("quantity must not be negative")
	}
	return nil
}

type tag struct {
	entity.BaseEntity

	Label   localized.String `db:"label" entry:"order=1"`
	Day     time.Time        `db:"day" filter:""`
	PartIDs []int64          `db:"-" rel:"one_to_many,target=part"`
}

var testClock = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

// memRepo keeps detached copies of rows in memory.
type memRepo struct {
	def  *metadata.Entity
	rows map[int64]entity.Entity
	next int64

	insertErr error
	updateErr error
	deleteErr error

	lastQuery   Query
	lastInclude []string
}

func (r *memRepo) Insert(_ context.Context, e entity.Entity) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.next++
	e.Base().ID = r.next
	r.rows[r.next] = r.def.Clone(e)
	return nil
}

func (r *memRepo) Update(_ context.Context, e entity.Entity) (int64, error) {
	if r.updateErr != nil {
		return 0, r.updateErr
	}
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

func (r *memRepo) Delete(_ context.Context, id int64) (int64, error) {
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	if _, ok := r.rows[id]; !ok {
		return 0, nil
	}
	delete(r.rows, id)
	return 1, nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (entity.Entity, error) {
	e, ok := r.rows[id]
	if !ok {
		return nil, apperror.NewNotFound(r.def.Name, id)
	}
	return r.def.Clone(e), nil
}

func (r *memRepo) List(_ context.Context, q Query) ([]entity.Entity, error) {
	r.lastQuery = q
	ids := make([]int64, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]entity.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.def.Clone(r.rows[id]))
	}
	return out, nil
}

func (r *memRepo) Count(_ context.Context, _ []filter.Item) (int64, error) {
	return int64(len(r.rows)), nil
}

func (r *memRepo) SaveLinks(_ context.Context, e entity.Entity) (int64, error) {
	var n int64
	for _, p := range r.def.Relations(metadata.ManyToMany) {
		n += int64(len(p.Get(e).([]int64)))
	}
	return n, nil
}

func (r *memRepo) Include(_ context.Context, _ []entity.Entity, props []string) error {
	r.lastInclude = props
	return nil
}

type memStore struct {
	repos map[string]*memRepo
}

func newMemStore() *memStore {
	return &memStore{repos: make(map[string]*memRepo)}
}

func (s *memStore) Repository(def *metadata.Entity) Repository {
	r, ok := s.repos[def.Name]
	if !ok {
		r = &memRepo{def: def, rows: make(map[int64]entity.Entity)}
		s.repos[def.Name] = r
	}
	return r
}

// directTx runs fn without a transaction.
type directTx struct {
	calls int
}

func (m *directTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// readOnlyTx also counts read-only transactions.
type readOnlyTx struct {
	directTx
	reads int
}

func (m *readOnlyTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.reads++
	return fn(ctx)
}

func newTestFactory(t *testing.T) (*Factory, *memStore) {
	t.Helper()
	store := newMemStore()
	f := NewFactory(metadata.NewRegistry(), store, &directTx{}, WithClock(testClock))
	_, err := RegisterEntity[*part](f)
	require.NoError(t, err)
	_, err = RegisterEntity[*tag](f)
	require.NoError(t, err)
	return f, store
}

func newPartGateway(t *testing.T) (*Gateway[*part], *memRepo) {
	t.Helper()
	f, store := newTestFactory(t)
	g, err := NewGateway[*part](f)
	require.NoError(t, err)
	return g, store.repos["part"]
}
