package entity_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwin/internal/core/apperror"
	"gwin/internal/domain/filter"
)

func TestWhere_Operators(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		entity   string
		item     filter.Item
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "greater",
			entity:   "City",
			item:     filter.Item{Field: "Population", Operator: filter.Greater, Value: int64(10)},
			wantSQL:  "SELECT COUNT(*) FROM cities WHERE population > $1",
			wantArgs: []any{int64(10)},
		},
		{
			name:     "less",
			entity:   "City",
			item:     filter.Item{Field: "Population", Operator: filter.Less, Value: int64(5)},
			wantSQL:  "SELECT COUNT(*) FROM cities WHERE population < $1",
			wantArgs: []any{int64(5)},
		},
		{
			name:     "in list",
			entity:   "City",
			item:     filter.Item{Field: "CountryID", Operator: filter.InList, Value: []int64{1, 2}},
			wantSQL:  "SELECT COUNT(*) FROM cities WHERE country_id IN ($1,$2)",
			wantArgs: []any{int64(1), int64(2)},
		},
		{
			name:    "is null",
			entity:  "City",
			item:    filter.Item{Field: "Name", Operator: filter.IsNull},
			wantSQL: "SELECT COUNT(*) FROM cities WHERE name IS NULL",
		},
		{
			name:     "does not contain",
			entity:   "City",
			item:     filter.Item{Field: "Name", Operator: filter.NotContains, Value: "x"},
			wantSQL:  "SELECT COUNT(*) FROM cities WHERE name NOT ILIKE $1",
			wantArgs: []any{"%x%"},
		},
		{
			name:     "localized text contains",
			entity:   "Country",
			item:     filter.Item{Field: "Name", Operator: filter.Contains, Value: "maro"},
			wantSQL:  "SELECT COUNT(*) FROM countries WHERE EXISTS (SELECT 1 FROM jsonb_each_text(countries.name) WHERE value ILIKE $1)",
			wantArgs: []any{"%maro%"},
		},
		{
			name:     "localized text does not contain",
			entity:   "Country",
			item:     filter.Item{Field: "Name", Operator: filter.NotContains, Value: "en"},
			wantSQL:  "SELECT COUNT(*) FROM countries WHERE NOT EXISTS (SELECT 1 FROM jsonb_each_text(countries.name) WHERE value ILIKE $1)",
			wantArgs: []any{"%en%"},
		},
		{
			name:     "wildcards match literally",
			entity:   "City",
			item:     filter.Item{Field: "Name", Operator: filter.Contains, Value: `50%_off\`},
			wantSQL:  "SELECT COUNT(*) FROM cities WHERE name ILIKE $1",
			wantArgs: []any{`%50\%\_off\\%`},
		},
		{
			name:     "same day",
			entity:   "City",
			item:     filter.Item{Field: "CreatedAt", Operator: filter.SameDay, Value: day},
			wantSQL:  "SELECT COUNT(*) FROM cities WHERE created_at::date = $1::date",
			wantArgs: []any{day},
		},
		{
			name:     "many to many member",
			entity:   "User",
			item:     filter.Item{Field: "RoleIDs", Operator: filter.MemberOf, Value: int64(2)},
			wantSQL:  "SELECT COUNT(*) FROM users WHERE users.id IN (SELECT user_id FROM users_role_ids WHERE role_id = $1)",
			wantArgs: []any{int64(2)},
		},
		{
			name:     "many to many any of",
			entity:   "User",
			item:     filter.Item{Field: "RoleIDs", Operator: filter.MemberOf, Value: []int64{2, 3}},
			wantSQL:  "SELECT COUNT(*) FROM users WHERE users.id IN (SELECT user_id FROM users_role_ids WHERE role_id IN ($1,$2))",
			wantArgs: []any{int64(2), int64(3)},
		},
		{
			name:     "one to many member",
			entity:   "Country",
			item:     filter.Item{Field: "CityIDs", Operator: filter.MemberOf, Value: int64(12)},
			wantSQL:  "SELECT COUNT(*) FROM countries WHERE countries.id IN (SELECT country_id FROM cities WHERE id = $1)",
			wantArgs: []any{int64(12)},
		},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := f.repo(t, tt.entity)
			q, err := r.where(r.Builder().Select("COUNT(*)").From(r.def.Table), []filter.Item{tt.item})
			require.NoError(t, err)

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestWhere_Rejects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		entity string
		item   filter.Item
	}{
		{name: "unknown property", entity: "City", item: filter.Eq("Mayor", "x")},
		{name: "loaded reference", entity: "City", item: filter.Eq("Country", int64(1))},
		{name: "collection text search", entity: "User", item: filter.Item{Field: "RoleIDs", Operator: filter.Contains, Value: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := f.repo(t, tt.entity)
			_, err := r.where(r.baseSelect(), []filter.Item{tt.item})
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeUnsupportedCriterion))
		})
	}
}
