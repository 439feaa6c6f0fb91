//go:build integration

package entity_repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"gwin/internal/core/apperror"
	"gwin/internal/core/entity"
	"gwin/internal/core/localized"
	"gwin/internal/domain"
	"gwin/internal/domain/filter"
	"gwin/internal/infrastructure/storage/postgres"
)

func startPostgres(t *testing.T) *postgres.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("gwin"),
		tcpostgres.WithUsername("gwin"),
		tcpostgres.WithPassword("gwin"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestStore_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	f := newFixture(t)
	stmts, err := postgres.GenerateDDL(f.registry.List())
	require.NoError(t, err)
	require.NoError(t, postgres.ApplyDDL(ctx, pool, stmts))
	// a second run finds every object in place
	require.NoError(t, postgres.ApplyDDL(ctx, pool, stmts))

	txm := postgres.NewTxManager(pool)
	store := NewStore(f.registry, txm)
	repo := func(name string) domain.Repository {
		def, _ := f.registry.Lookup(name)
		return store.Repository(def)
	}

	morocco := &Country{Name: localized.String{"en": "Morocco", "fr": "Maroc"}}
	morocco.Stamp(time.Now())
	require.NoError(t, repo("Country").Insert(ctx, morocco))

	rabat := &City{Name: "Rabat", Population: 577827, CountryID: morocco.ID}
	rabat.Stamp(time.Now())
	require.NoError(t, repo("City").Insert(ctx, rabat))

	admin := &Role{Name: "ADMIN"}
	admin.Stamp(time.Now())
	require.NoError(t, repo("Role").Insert(ctx, admin))

	amina := &User{Login: "amina", RoleIDs: []int64{admin.ID}}
	amina.Stamp(time.Now())
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := repo("User").Insert(ctx, amina); err != nil {
			return err
		}
		_, err := repo("User").SaveLinks(ctx, amina)
		return err
	})
	require.NoError(t, err)

	got, err := repo("User").GetByID(ctx, amina.ID)
	require.NoError(t, err)
	require.NoError(t, repo("User").Include(ctx, []entity.Entity{got}, []string{"RoleIDs"}))
	assert.Equal(t, []int64{admin.ID}, got.(*User).RoleIDs)

	members, err := repo("User").List(ctx, domain.Query{
		Where: []filter.Item{{Field: "RoleIDs", Operator: filter.MemberOf, Value: admin.ID}},
	})
	require.NoError(t, err)
	assert.Len(t, members, 1)

	cities, err := repo("City").List(ctx, domain.Query{
		Where:   []filter.Item{{Field: "Name", Operator: filter.Contains, Value: "aba"}},
		Include: []string{"CountryID"},
	})
	require.NoError(t, err)
	require.Len(t, cities, 1)
	require.NoError(t, repo("City").Include(ctx, cities, []string{"CountryID"}))
	assert.Equal(t, "Maroc", cities[0].(*City).Country.Name["fr"])

	_, err = repo("Country").Delete(ctx, morocco.ID)
	assert.True(t, apperror.IsForeignKeyViolation(err))

	n, err := repo("Role").Delete(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
