// Package indicatordata serves the indicator data management screen as a
// JSON API. Each signed-in session gets its own screen per category, so
// search, filters, sort, page and selection survive between requests.
//
// Mounted at /admin/data/{category}:
//   - GET  /                                   snapshot of both tables
//   - GET  /records                            raw record source query
//   - GET  /indicators                         indicators of the category
//   - POST /refresh                            re-fetch the category
//   - POST /tables/{table}/search|filter|sort|page|limit|reset
//   - POST /tables/{table}/selection/toggle|select-all|clear-visible|clear
//   - POST /tables/{table}/bulk-delete|bulk-verify
//   - POST /records                            create
//   - POST /records/{id}                       update
//   - POST /records/{id}/delete
//   - POST /records/{id}/verify
//   - POST /close                              forget this session's screens
package indicatordata

import (
	"net/http"

	"github.com/dalemusser/stratadata/internal/app/datascreen"
	"github.com/dalemusser/stratadata/internal/app/datasource"
	errorsfeature "github.com/dalemusser/stratadata/internal/app/features/errors"
	"github.com/dalemusser/stratadata/internal/app/system/auth"
	"github.com/dalemusser/stratadata/internal/app/system/authz"
	"github.com/dalemusser/stratadata/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadata/internal/app/system/timeouts"
	"github.com/dalemusser/stratadata/internal/app/tableview"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// Handler serves the screen API.
type Handler struct {
	Screens *datascreen.Registry
	ErrLog  *errorsfeature.ErrorLogger
	Log     *zap.Logger
}

// NewHandler creates a Handler backed by a screen registry.
func NewHandler(screens *datascreen.Registry, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Screens: screens,
		ErrLog:  errLog,
		Log:     logger,
	}
}

// screen returns the caller's screen for the category admitted by
// authz.RequireCategory. The session user becomes the acting user for
// every change made through the screen.
func (h *Handler) screen(w http.ResponseWriter, r *http.Request) (*datascreen.Screen, bool) {
	category, ok := authz.Category(r)
	if !ok {
		jsonutil.NotFound(w, "unknown category")
		return nil, false
	}
	u, ok := h.sessionUser(w, r)
	if !ok {
		return nil, false
	}
	creds := datasource.StaticCredentials{ID: u.ID, Name: u.Name, Role: u.Role}
	return h.Screens.Screen(u.ScreenKey(), category, creds), true
}

func (h *Handler) sessionUser(w http.ResponseWriter, r *http.Request) (*auth.SessionUser, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, "sign in required")
		return nil, false
	}
	return u, true
}

// tableKind reads {table} from the route.
func tableKind(w http.ResponseWriter, r *http.Request) (tableview.Kind, bool) {
	kind, ok := tableview.ParseKind(chi.URLParam(r, "table"))
	if !ok {
		jsonutil.NotFound(w, "unknown table")
		return "", false
	}
	return kind, true
}

// fail writes err through the error logger with the screen's category.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, sc *datascreen.Screen, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("category", string(sc.Category())))
	h.ErrLog.Respond(w, r, msg, err, fields...)
}

// Snapshot handles GET /.
// The CSRF token for subsequent POSTs is returned in X-CSRF-Token.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), h.Log, "snapshot")
	defer cancel()

	snap, err := sc.Snapshot(ctx)
	if err != nil {
		h.fail(w, r, sc, "failed to load indicator data", err)
		return
	}
	if tok := csrf.Token(r); tok != "" {
		w.Header().Set("X-CSRF-Token", tok)
	}
	jsonutil.OK(w, snap)
}

// Refresh handles POST /refresh. It always re-fetches and answers with
// the new snapshot.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), h.Log, "refresh")
	defer cancel()

	if err := sc.Refresh(ctx); err != nil {
		h.fail(w, r, sc, "failed to refresh indicator data", err)
		return
	}
	snap, err := sc.Snapshot(ctx)
	if err != nil {
		h.fail(w, r, sc, "failed to load indicator data", err)
		return
	}
	jsonutil.OK(w, snap)
}

// Indicators handles GET /indicators.
func (h *Handler) Indicators(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), h.Log, "indicators")
	defer cancel()

	inds, err := sc.Indicators(ctx)
	if err != nil {
		h.fail(w, r, sc, "failed to load indicators", err)
		return
	}
	jsonutil.OK(w, map[string]any{"indicators": inds})
}

// Records handles GET /records, a direct record source query that does
// not touch the screen's tables.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	q, verr := parseQuery(r.URL.Query())
	if verr != nil {
		jsonutil.ValidationError(w, verr.FieldMap())
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), h.Log, "records")
	defer cancel()

	res, err := sc.Records(ctx, q)
	if err != nil {
		h.fail(w, r, sc, "failed to query indicator data", err)
		return
	}
	jsonutil.OK(w, res)
}
