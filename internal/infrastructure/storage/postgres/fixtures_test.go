package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
	"gwin/internal/metadata"
)

type Country struct {
	entity.BaseEntity `entity:"display=Name,localizable"`

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
	Active  bool    `db:"active" entry:"" filter:""`
	RoleIDs []int64 `db:"-" entry:"" rel:"many_to_many,target=Role"`
}

func testRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	r := metadata.NewRegistry()
	for _, fn := range []func(*metadata.Registry) (*metadata.Entity, error){
		metadata.For[Country], metadata.For[City], metadata.For[Role], metadata.For[User],
	} {
		_, err := fn(r)
		require.NoError(t, err)
	}
	return r
}

func mustDef(t *testing.T, r *metadata.Registry, name string) *metadata.Entity {
	t.Helper()
	def, ok := r.Lookup(name)
	require.True(t, ok, name)
	return def
}
