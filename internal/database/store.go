package database

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/config"
	"github.com/zaqqye/defense_backend_v1/internal/settings"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/store/gormstore"
	"github.com/zaqqye/defense_backend_v1/internal/store/memstore"
)

// OpenStore returns the backend selected by cfg.StoreDriver, migrated and
// seeded with the default settings.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		st := memstore.New()
		if err := settings.NewService(st).Seed(ctx); err != nil {
			return nil, errors.Wrap(err, "seed settings")
		}
		return st, nil
	}

	db, err := Connect(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "database connection failed")
	}
	if err := Migrate(db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	if err := SeedSettings(db); err != nil {
		return nil, errors.Wrap(err, "settings seed failed")
	}
	return gormstore.New(db), nil
}
