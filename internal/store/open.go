package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/config"
)

// ErrConnect wraps any failure to reach or prepare the configured database.
var ErrConnect = errors.New("store unavailable")

// Migrator is implemented by stores that own a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Open returns the store selected by cfg.Driver and a function that releases
// it. SQL stores are migrated when cfg.AutoMigrate is set.
func Open(ctx context.Context, cfg config.DatabaseConfig) (competency.Store, func(), error) {
	var (
		s       competency.Store
		release = func() {}
	)

	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), release, nil

	case config.DriverSQLite:
		db, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrConnect, err)
		}
		s, release = db, func() { db.Close() }

	case config.DriverPostgres:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrConnect, err)
		}
		s, release = NewPostgres(pool), pool.Close

	default:
		return nil, nil, fmt.Errorf("%w: unknown driver %q", ErrConnect, cfg.Driver)
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, s); err != nil {
			release()
			return nil, nil, err
		}
	}
	return s, release, nil
}

// Migrate creates the schema of s if it has one.
func Migrate(ctx context.Context, s competency.Store) error {
	m, ok := s.(Migrator)
	if !ok {
		return nil
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	return nil
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
