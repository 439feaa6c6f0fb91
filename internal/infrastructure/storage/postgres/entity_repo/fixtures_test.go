package entity_repo

import (
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
	"gwin/internal/infrastructure/storage/postgres"
	"gwin/internal/metadata"
)

type Country struct {
	entity.BaseEntity `entity:"localizable"`

	Name    localized.String `db:"name" entry:"order=1,required" grid:"" filter:""`
	CityIDs []int64          `db:"-" rel:"one_to_many,target=City"`
}

type City struct {
	entity.BaseEntity

	Name       string          `db:"name" entry:"order=1,required" grid:"" filter:""`
	Population int64           `db:"population" entry:"" grid:"" filter:""`
	Area       decimal.Decimal `db:"area" entry:""`
	CountryID  int64           `db:"country_id" entry:"" filter:"" rel:"many_to_one,target=Country,into=Country"`
	Country    *Country        `db:"-"`
}

type Role struct {
	entity.BaseEntity

	Name string `db:"name" entry:"required" grid:"" filter:""`
}

type User struct {
	entity.BaseEntity `entity:"display=Login"`

	Login   string  `db:"login" entry:"order=1,required" grid:"" filter:""`
	RoleIDs []int64 `db:"-" entry:"" rel:"many_to_many,target=Role"`
}

const (
	cityColumns = "cities.id, cities.sort_order, cities.created_at, cities.updated_at, " +
		"cities.name, cities.population, cities.area, COALESCE(cities.country_id, 0) AS country_id"
	countryColumns = "countries.id, countries.sort_order, countries.created_at, countries.updated_at, countries.name"
)

type fixture struct {
	mock     pgxmock.PgxPoolIface
	registry *metadata.Registry
	store    *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	registry := metadata.NewRegistry()
	for _, fn := range []func(*metadata.Registry) (*metadata.Entity, error){
		metadata.For[Country], metadata.For[City], metadata.For[Role], metadata.For[User],
	} {
		_, err := fn(registry)
		require.NoError(t, err)
	}

	opts := postgres.DefaultTxOptions()
	opts.StatementTimeout = 0
	txm := postgres.NewTxManagerWithOptions(mock, opts)
	return &fixture{mock: mock, registry: registry, store: NewStore(registry, txm)}
}

func (f *fixture) repo(t *testing.T, name string) *Repo {
	t.Helper()
	def, ok := f.registry.Lookup(name)
	require.True(t, ok, name)
	return f.store.Repository(def).(*Repo)
}

func cityColumnNames() []string {
	return []string{"id", "sort_order", "created_at", "updated_at", "name", "population", "area", "country_id"}
}
