package setup

import (
	"context"
	"fmt"

	"github.com/go-sod/geoindex/internal/database"
	featureDb "github.com/go-sod/geoindex/internal/feature/database"
	"github.com/go-sod/geoindex/internal/index"
	"github.com/go-sod/geoindex/internal/logging"
	"github.com/go-sod/geoindex/internal/srvenv"
	"github.com/kelseyhightower/envconfig"
)

type IndexConfigProvider interface {
	IndexConfig() *index.Config
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var store featureDb.Store
	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("Configuring db")
		db, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))

		if store, err = featureDb.New(db); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("unable create feature store: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithStore(store))
	}

	if indexConfigProvider, ok := config.(IndexConfigProvider); ok {
		logger.Info("Configuring index")
		if store == nil {
			return nil, fmt.Errorf("index requires a feature store")
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithIndex(ProvideIndexFor(indexConfigProvider, store)))
	}

	return srvenv.New(serverEnvOpts...), nil
}

func ProvideIndexFor(provider IndexConfigProvider, store featureDb.Store) index.ProvideFn {
	cfg := provider.IndexConfig()
	return func(shutdownCh chan<- error) (*index.Index, error) {
		return index.New(
			store,
			shutdownCh,
			index.WithBounds(cfg.North, cfg.West, cfg.South, cfg.East),
			index.WithMaxItems(cfg.MaxItems),
			index.WithMinSize(cfg.MinSize),
			index.WithRangeMode(cfg.RangeMode),
			index.WithFlushSize(cfg.FlushSize),
			index.WithFlushTime(cfg.FlushTime),
			index.WithMaintenanceTime(cfg.MaintenanceTime),
			index.WithMaxFeaturesPerLayer(cfg.MaxFeaturesPerLayer),
			index.WithMaxStorageTime(cfg.MaxStorageTime),
		)
	}
}
