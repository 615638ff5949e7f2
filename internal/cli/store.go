package cli

import (
	"context"
	"fmt"
	"log/slog"

	"storefront/internal/config"
	"storefront/internal/store"
	"storefront/internal/store/memory"
	"storefront/internal/store/mongodb"
	"storefront/internal/store/postgres"
)

type migrator interface {
	Migrate(ctx context.Context) error
}

// openStore constructs the store.Store named by cfg.Kind.
func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (store.Store, error) {
	switch cfg.Kind {
	case "memory", "mem":
		return memory.New(), nil
	case "postgres":
		return postgres.Open(ctx, cfg.Postgres.DSN, log)
	case "mongo":
		return mongodb.Open(ctx, mongodb.Options{
			URI:          cfg.Mongo.URI,
			Database:     cfg.Mongo.Database,
			Transactions: cfg.Mongo.Transactions,
		}, log)
	default:
		return nil, fmt.Errorf("unknown store kind: %s", cfg.Kind)
	}
}

// migrate applies the backend's schema. The memory store has none.
func migrate(ctx context.Context, st store.Store) error {
	m, ok := st.(migrator)
	if !ok {
		return nil
	}
	return m.Migrate(ctx)
}
