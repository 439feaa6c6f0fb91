// Package app wires configuration, storage and the registered entities
// together for the server and the gwinctl tool.
package app

import (
	"context"
	"fmt"

	"gwin/internal/config"
	"gwin/internal/core/localized"
	"gwin/internal/core/tx"
	"gwin/internal/domain"
	"gwin/internal/domain/catalogs"
	"gwin/internal/infrastructure/storage/postgres"
	"gwin/internal/infrastructure/storage/postgres/entity_repo"
	"gwin/internal/metadata"
	"gwin/pkg/logger"
)

// Catalog registers every shipped entity on a new factory and checks the
// configuration. store and txm may be nil when only the configuration is needed.
func Catalog(ctx context.Context, store domain.Store, txm tx.Manager) (*domain.Factory, error) {
	return catalog(ctx, metadata.NewRegistry(), store, txm)
}

func catalog(ctx context.Context, reg *metadata.Registry, store domain.Store, txm tx.Manager) (*domain.Factory, error) {
	f := domain.NewFactory(reg, store, txm)
	if err := catalogs.RegisterAll(f); err != nil {
		return nil, fmt.Errorf("register entities: %w", err)
	}
	if err := f.Check(ctx); err != nil {
		return nil, fmt.Errorf("check configuration: %w", err)
	}
	return f, nil
}

// App holds the opened database and the factory serving it.
type App struct {
	Config  config.Config
	Pool    *postgres.Pool
	Factory *domain.Factory
}

// Open connects to the database of cfg and builds the factory on it. The
// generated schema is applied first when cfg.Database.AutoMigrate is set.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	localized.SetDefault(localized.Parse(cfg.Forms.Language))

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.Database.StatementTimeout
	txm := postgres.NewTxManagerWithOptions(pool, txOpts)

	reg := metadata.NewRegistry()
	f, err := catalog(ctx, reg, entity_repo.NewStore(reg, txm), txm)
	if err != nil {
		pool.Close()
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := Migrate(ctx, f, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info(ctx, "application opened", "entities", len(f.Names()))
	return &App{Config: cfg, Pool: pool, Factory: f}, nil
}

// Schema returns the DDL of every registered entity.
func Schema(f *domain.Factory) ([]string, error) {
	return postgres.GenerateDDL(f.Registry().List())
}

// Migrate applies the generated schema on db.
func Migrate(ctx context.Context, f *domain.Factory, db postgres.Querier) error {
	stmts, err := Schema(f)
	if err != nil {
		return err
	}
	return postgres.ApplyDDL(ctx, db, stmts)
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}
