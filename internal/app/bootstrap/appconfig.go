// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Store backends selectable with store_backend.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
//
// The struct is passed to most lifecycle hooks, so any configuration
// needed during startup, request handling, or shutdown lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Indicator data store
	StoreBackend string // "mongo" (default) or "postgres"
	PostgresDSN  string // PostgreSQL connection string, used when StoreBackend is "postgres"

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: stratadata-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 24h)

	// CSRF protection configuration
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// Bearer key guarding /metrics. Empty leaves /metrics unmounted.
	MetricsAPIKey string

	// Management screen
	DefaultPageSize int           // Rows per table page (default: 10)
	FullFetchLimit  int           // Records fetched per category refresh (default: 10000)
	BulkConcurrency int           // Parallel store calls per bulk action (default: 4)
	ScreenIdleTTL   time.Duration // Idle screens are evicted after this long (default: 30m)

	// Change events
	AMQPURL      string // Broker URL; empty disables events
	AMQPExchange string // Topic exchange for change events

	// Seed the default indicator catalogue on startup
	SeedIndicators bool
}
