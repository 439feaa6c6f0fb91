package form

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
	"gwin/internal/core/usermsg"
	"gwin/internal/domain"
	"gwin/internal/domain/filter"
	"gwin/internal/metadata"
)

type country struct {
	entity.BaseEntity `entity:"display=Name,localizable"`

	Name localized.String `db:"name" entry:"order=1,required" grid:"" filter:""`
}

type city struct {
	entity.BaseEntity

	Name       string          `db:"name" entry:"order=1,multiline" grid:"order=1" filter:"order=1"`
	CountryID  int64           `db:"country_id" entry:"order=2" grid:"order=2" filter:"order=2,allowempty" rel:"many_to_one,target=country"`
	Population int64           `db:"population" entry:"order=3" grid:"order=3" filter:"order=3"`
	Founded    time.Time       `db:"founded" entry:"order=4" grid:"order=4" filter:"order=4"`
	Capital    bool            `db:"capital" entry:"order=5" filter:"order=5"`
	Area       decimal.Decimal `db:"area" entry:"order=6" grid:"order=6"`
	TagIDs     []int64         `db:"-" entry:"order=7" grid:"order=7" rel:"many_to_many,target=label"`
	Districts  []int64         `db:"-" rel:"one_to_many,target=district"`
}

func config(t *testing.T, sample any) *metadata.Entity {
	t.Helper()
	def, err := metadata.Inspect(reflect.TypeOf(sample))
	require.NoError(t, err)
	return def
}

func prop(t *testing.T, def *metadata.Entity, name string) *metadata.Property {
	t.Helper()
	p, ok := def.Property(name)
	require.True(t, ok, name)
	return p
}

// staticOptions serves fixed options by target.
type staticOptions map[string][]Option

func (s staticOptions) Options(_ context.Context, target string) ([]Option, error) {
	return s[target], nil
}

var testOptions = staticOptions{
	"country": {{ID: 3, Text: "Morocco"}, {ID: 4, Text: "France"}},
	"label":   {{ID: 1, Text: "red"}, {ID: 2, Text: "blue"}},
}

// fakeBLO records the calls forms make on their business object.
type fakeBLO struct {
	def   *metadata.Entity
	board *usermsg.Board

	rows    []entity.Entity
	saved   []entity.Entity
	saveErr error

	rules   map[string]func(entity.Entity)
	applied []string

	criteria  map[string]any
	pageStart int
	pageSize  int
	lastQuery domain.Query
}

var _ domain.BLO = (*fakeBLO)(nil)

func newFakeBLO(t *testing.T, sample any) *fakeBLO {
	return &fakeBLO{
		def:   config(t, sample),
		board: usermsg.NewBoard(),
		rules: make(map[string]func(entity.Entity)),
	}
}

func (b *fakeBLO) EntityName() string { return b.def.Name }
func (b *fakeBLO) Config() *metadata.Entity { return b.def }
func (b *fakeBLO) NewEntity() entity.Entity { return b.def.New() }
func (b *fakeBLO) Messages() *usermsg.Board { return b.board }
func (b *fakeBLO) Close() error { return nil }

func (b *fakeBLO) SaveEntity(_ context.Context, e entity.Entity) (int64, error) {
	if b.saveErr != nil {
		b.board.AddError(b.saveErr)
		return domain.SaveFailed, b.saveErr
	}
	if !e.Base().IsPersisted() {
		e.Base().ID = int64(len(b.saved) + 1)
	}
	b.saved = append(b.saved, e)
	return 1, nil
}

func (b *fakeBLO) DeleteByID(context.Context, int64) (int64, error) { return 1, nil }

func (b *fakeBLO) FindByID(_ context.Context, id int64) (entity.Entity, error) {
	for _, e := range b.rows {
		if e.Base().ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (b *fakeBLO) List(_ context.Context, q domain.Query) ([]entity.Entity, error) {
	b.lastQuery = q
	return b.rows, nil
}

func (b *fakeBLO) SearchEntities(_ context.Context, criteria map[string]any, pageStart, pageSize int) ([]entity.Entity, error) {
	b.criteria, b.pageStart, b.pageSize = criteria, pageStart, pageSize
	return b.rows, nil
}

func (b *fakeBLO) CountAll(context.Context, ...filter.Item) (int64, error) {
	return int64(len(b.rows)) + 10, nil
}

func (b *fakeBLO) ApplyRules(_ context.Context, field string, e entity.Entity) error {
	b.applied = append(b.applied, field)
	if rule, ok := b.rules[field]; ok {
		rule(e)
	}
	return nil
}
