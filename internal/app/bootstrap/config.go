// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATADATA"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STRATADATA_MONGO_URI, STRATADATA_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratadata", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "store_backend", Default: BackendMongo, Desc: "Indicator data store: 'mongo' or 'postgres'"},
	{Name: "postgres_dsn", Default: "", Desc: "PostgreSQL DSN (required when store_backend is 'postgres')"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratadata-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	{Name: "metrics_api_key", Default: "", Desc: "Bearer key for /metrics (leave empty to disable the endpoint)"},

	// Management screen
	{Name: "default_page_size", Default: 10, Desc: "Rows per table page"},
	{Name: "full_fetch_limit", Default: 10000, Desc: "Max records fetched when a category screen refreshes"},
	{Name: "bulk_concurrency", Default: 4, Desc: "Parallel store calls per bulk delete/verify"},
	{Name: "screen_idle_ttl", Default: "30m", Desc: "Evict a session's screen after this much inactivity"},

	// Change events
	{Name: "amqp_url", Default: "", Desc: "AMQP broker URL for change events (leave empty to disable)"},
	{Name: "amqp_exchange", Default: "stratadata.changes", Desc: "AMQP topic exchange for change events"},

	{Name: "seed_indicators", Default: true, Desc: "Create the default indicator catalogue on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATADATA_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		StoreBackend: strings.ToLower(strings.TrimSpace(appValues.String("store_backend"))),
		PostgresDSN:  appValues.String("postgres_dsn"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		CSRFKey:       appValues.String("csrf_key"),
		MetricsAPIKey: appValues.String("metrics_api_key"),

		DefaultPageSize: appValues.Int("default_page_size"),
		FullFetchLimit:  appValues.Int("full_fetch_limit"),
		BulkConcurrency: appValues.Int("bulk_concurrency"),
		ScreenIdleTTL:   appValues.Duration("screen_idle_ttl", 30*time.Minute),

		AMQPURL:      appValues.String("amqp_url"),
		AMQPExchange: appValues.String("amqp_exchange"),

		SeedIndicators: appValues.Bool("seed_indicators"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// All problems are reported together.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var errs []error

	switch appCfg.StoreBackend {
	case BackendMongo, "":
	case BackendPostgres:
		if strings.TrimSpace(appCfg.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres_dsn is required when store_backend is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store_backend %q (want mongo or postgres)", appCfg.StoreBackend))
	}

	// The postgres backend keeps its catalogue in Postgres and never dials Mongo.
	if appCfg.StoreBackend != BackendPostgres {
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			errs = append(errs, fmt.Errorf("invalid MongoDB URI: %w", err))
		}
	}

	if appCfg.DefaultPageSize <= 0 {
		errs = append(errs, fmt.Errorf("default_page_size must be positive, got %d", appCfg.DefaultPageSize))
	}
	if appCfg.FullFetchLimit <= 0 {
		errs = append(errs, fmt.Errorf("full_fetch_limit must be positive, got %d", appCfg.FullFetchLimit))
	}
	if appCfg.BulkConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("bulk_concurrency must be positive, got %d", appCfg.BulkConcurrency))
	}
	if appCfg.ScreenIdleTTL <= 0 {
		errs = append(errs, fmt.Errorf("screen_idle_ttl must be positive, got %s", appCfg.ScreenIdleTTL))
	}

	return errors.Join(errs...)
}
