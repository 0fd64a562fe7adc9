// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	indicatorstore "github.com/dalemusser/stratadata/internal/app/store/indicators"
	indicatordatastore "github.com/dalemusser/stratadata/internal/app/store/indicatordata"
	pgdatastore "github.com/dalemusser/stratadata/internal/app/store/pgdata"
	"github.com/dalemusser/stratadata/internal/app/system/events"
	"github.com/dalemusser/stratadata/internal/app/system/indexes"
	"github.com/dalemusser/stratadata/internal/app/system/metrics"
	"github.com/dalemusser/stratadata/internal/app/system/seeding"
	"github.com/dalemusser/stratadata/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ConnectDB connects to the configured store backend and the change-event
// broker.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema and
// Startup. A missing broker is not fatal: events are best effort, so the app
// logs the failure and runs with a no-op publisher.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	deps := DBDeps{Metrics: metrics.New()}

	switch appCfg.StoreBackend {
	case BackendPostgres:
		pg, err := pgdatastore.Open(ctx, appCfg.PostgresDSN)
		if err != nil {
			return DBDeps{}, err
		}
		logger.Info("connected to PostgreSQL")
		deps.Postgres = pg
		deps.Backend = pg
		deps.Catalogue = pg.Catalogue()

	default:
		// Configure MongoDB connection pool
		poolCfg := wafflemongo.DefaultPoolConfig()
		if appCfg.MongoMaxPoolSize > 0 {
			poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
		}
		if appCfg.MongoMinPoolSize > 0 {
			poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
		}

		client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
		if err != nil {
			return DBDeps{}, err
		}
		db := client.Database(appCfg.MongoDatabase)

		logger.Info("connected to MongoDB",
			zap.String("database", appCfg.MongoDatabase),
			zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
			zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
		)

		deps.MongoClient = client
		deps.MongoDatabase = db
		deps.Backend = indicatordatastore.New(db)
		deps.Catalogue = indicatorstore.New(db)
	}

	deps.Events = connectEvents(appCfg, logger)
	return deps, nil
}

func connectEvents(appCfg AppConfig, logger *zap.Logger) events.Publisher {
	if appCfg.AMQPURL == "" {
		logger.Info("change events disabled (no amqp_url)")
		return events.Nop{}
	}
	pub, err := events.DialAMQP(appCfg.AMQPURL, appCfg.AMQPExchange, logger)
	if err != nil {
		logger.Warn("change events disabled; broker unavailable", zap.Error(err))
		return events.Nop{}
	}
	logger.Info("publishing change events", zap.String("exchange", appCfg.AMQPExchange))
	return pub
}

// EnsureSchema prepares the active backend: collections, validators and
// indexes for Mongo, migrations for Postgres. The default indicator
// catalogue is seeded afterwards when seed_indicators is on.
//
// The context has a timeout based on coreCfg.IndexBootTimeout, so long-running
// migrations should respect context cancellation.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Postgres != nil {
		logger.Info("running PostgreSQL migrations")
		if err := deps.Postgres.Migrate(); err != nil {
			logger.Error("failed to migrate PostgreSQL", zap.Error(err))
			return err
		}
	}

	if db := deps.MongoDatabase; db != nil {
		// Collections and validators first so indexes land on existing collections.
		logger.Info("ensuring collections and validators")
		if err := validators.EnsureAll(ctx, db); err != nil {
			logger.Error("failed to ensure validators", zap.Error(err))
			return err
		}

		logger.Info("ensuring database indexes")
		if err := indexes.EnsureAll(ctx, db); err != nil {
			logger.Error("failed to ensure indexes", zap.Error(err))
			return err
		}
	}

	if appCfg.SeedIndicators {
		logger.Info("seeding default indicators")
		if err := seeding.SeedAll(ctx, deps.Catalogue, logger); err != nil {
			logger.Error("failed to seed default indicators", zap.Error(err))
			return fmt.Errorf("seed indicators: %w", err)
		}
	}

	logger.Info("database schema ensured successfully")
	return nil
}
