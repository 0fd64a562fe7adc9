// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratadata/internal/app/datascreen"
	"github.com/dalemusser/stratadata/internal/app/system/tasks"
	"github.com/dalemusser/stratadata/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It applies timeout overrides from the environment, creates the screen
// registry shared by all sessions and starts the background task runner
// that evicts idle screens.
//
// Returning a non-nil error will abort startup and prevent the server from
// starting.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment",
			zap.Int("overrides", n),
			zap.Any("timeouts", timeouts.Current()))
	}

	screens = datascreen.NewRegistry(screenConfig(appCfg, deps, logger))

	startTaskRunner(appCfg, deps, logger)
	return nil
}

// Set in Startup; read by BuildHandler and Shutdown.
var (
	screens    *datascreen.Registry
	taskRunner *tasks.Runner
)

// screenConfig is the base configuration of every management screen.
// The registry fills in category and credentials per session.
func screenConfig(appCfg AppConfig, deps DBDeps, logger *zap.Logger) datascreen.Config {
	return datascreen.Config{
		Backend:         deps.Backend,
		Events:          deps.Events,
		Metrics:         deps.Metrics,
		Logger:          logger.Named("datascreen"),
		DefaultLimit:    appCfg.DefaultPageSize,
		FullFetchLimit:  appCfg.FullFetchLimit,
		BulkConcurrency: appCfg.BulkConcurrency,
	}
}

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger.Named("tasks"), deps.Metrics)
	taskRunner.Register(tasks.ScreenEvictionJob(screens, appCfg.ScreenIdleTTL, logger))
	taskRunner.Start()
}
