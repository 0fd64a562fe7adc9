// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/stratadata/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stratadata/internal/app/features/health"
	indicatordatafeature "github.com/dalemusser/stratadata/internal/app/features/indicatordata"
	"github.com/dalemusser/stratadata/internal/app/system/auth"
	"github.com/dalemusser/stratadata/internal/app/system/jsonutil"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Route map:
//   - /admin/data/{category}/...  management screen API (session + CSRF)
//   - /health, /ready, /readyz, /livez  probes
//   - /metrics  Prometheus, Bearer key (only when metrics_api_key is set)
//
// Sessions are issued by the portal's sign-in service; this app reads the
// shared session cookie and never signs anyone in itself.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if screens == nil {
		return nil, errors.New("screen registry not initialized; Startup must run first")
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	r.Use(csrfMiddleware(appCfg, secure, logger))

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.Pingers(), logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Prometheus metrics, Bearer key only.
	if appCfg.MetricsAPIKey != "" {
		r.With(auth.APIKeyAuth(appCfg.MetricsAPIKey, logger)).Handle("/metrics", deps.Metrics.Handler())
	} else {
		logger.Info("/metrics disabled (no metrics_api_key)")
	}

	// Indicator data management screens, one per category.
	dataHandler := indicatordatafeature.NewHandler(screens, errLog, logger)
	r.Mount("/admin/data/{"+indicatordatafeature.CategoryParam+"}", indicatordatafeature.Routes(dataHandler, sessionMgr))

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	return r, nil
}

// csrfMiddleware protects every unsafe request. Clients read the token
// from the X-CSRF-Token header of the screen snapshot and send it back in
// the same header.
func csrfMiddleware(appCfg AppConfig, secure bool, logger *zap.Logger) func(http.Handler) http.Handler {
	// Cookie name is "stratadata_csrf" to avoid collisions with other
	// services on the same domain.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratadata_csrf"),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.NamedError("reason", csrf.FailureReason(req)),
			)
			jsonutil.Forbidden(w, "CSRF token invalid or missing")
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	protect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	return func(next http.Handler) http.Handler {
		csrfHandler := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Probes and the metrics scraper carry no session.
			switch req.URL.Path {
			case "/health", "/ready", "/readyz", "/livez", "/metrics":
				next.ServeHTTP(w, req)
				return
			}
			// Without TLS the origin check must not demand https.
			if !secure {
				req = csrf.PlaintextHTTPRequest(req)
			}
			csrfHandler.ServeHTTP(w, req)
		})
	}
}
