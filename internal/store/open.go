// Package store selects the dictionary backend from configuration.
package store

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/glossary/internal/config"
	"github.com/JonMunkholm/glossary/internal/core"
	"github.com/JonMunkholm/glossary/internal/store/postgres"
	"github.com/JonMunkholm/glossary/internal/store/sqlite"
)

// Open connects to PostgreSQL when a database URL is configured and to
// SQLite otherwise. The returned func releases the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Store, func(), error) {
	if cfg.UsePostgres() {
		pool, err := postgres.Connect(ctx, cfg.URL, postgres.PoolConfig{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		if cfg.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		slog.Info("connected to database", "driver", "postgres", "name", databaseName(cfg.URL))
		return postgres.New(pool), pool.Close, nil
	}

	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("connected to database", "driver", "sqlite", "path", cfg.SQLitePath)
	return sqlite.New(db), func() { _ = db.Close() }, nil
}

func databaseName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
