// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/features/health"
	pgdatastore "github.com/dalemusser/stratadata/internal/app/store/pgdata"
	"github.com/dalemusser/stratadata/internal/app/system/events"
	"github.com/dalemusser/stratadata/internal/app/system/metrics"
	"github.com/dalemusser/stratadata/internal/app/system/seeding"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown.
//
// Exactly one store backend is connected. With the mongo backend the Mongo
// fields are set and Postgres is nil; with the postgres backend it is the
// other way round. Backend and Catalogue always point at the active one.
//
// The Shutdown hook is responsible for closing these connections gracefully
// when the application terminates.
type DBDeps struct {
	// MongoDB client and database (mongo backend)
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// PostgreSQL store (postgres backend)
	Postgres *pgdatastore.Store

	// Backend serves the management screens; Catalogue receives seeded indicators.
	Backend   datasource.Backend
	Catalogue seeding.Catalogue

	// Events publishes record changes. Nop when no broker is configured.
	Events events.Publisher

	// Metrics is the app's Prometheus registry and collectors.
	Metrics *metrics.Metrics
}

// Pingers returns the health checks for the connected backends.
func (d DBDeps) Pingers() map[string]health.Pinger {
	out := map[string]health.Pinger{}
	if d.MongoClient != nil {
		out["mongodb"] = health.MongoPinger(d.MongoClient)
	}
	if d.Postgres != nil {
		out["postgres"] = d.Postgres
	}
	return out
}
