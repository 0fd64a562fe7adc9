package indicatordata

import (
	"net/http"

	"github.com/dalemusser/stratadata/internal/app/system/auth"
	"github.com/dalemusser/stratadata/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// CategoryParam is the URL parameter the router must provide, e.g. by
// mounting Routes at /admin/data/{category}.
const CategoryParam = "category"

// Routes returns a router with the screen API. Every route requires a
// signed-in user who manages the category in the URL.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(authz.RequireCategory(CategoryParam))

	r.Get("/", h.Snapshot)
	r.Post("/refresh", h.Refresh)
	r.Post("/close", h.Close)
	r.Get("/indicators", h.Indicators)

	r.Get("/records", h.Records)
	r.Post("/records", h.Create)
	r.Post("/records/{id}", h.Update)
	r.Post("/records/{id}/delete", h.Delete)
	r.Post("/records/{id}/verify", h.Verify)

	r.Route("/tables/{table}", func(tr chi.Router) {
		tr.Post("/search", h.Search)
		tr.Post("/filter", h.Filter)
		tr.Post("/sort", h.Sort)
		tr.Post("/page", h.Page)
		tr.Post("/limit", h.Limit)
		tr.Post("/reset", h.Reset)

		tr.Post("/selection/toggle", h.Toggle)
		tr.Post("/selection/select-all", h.SelectAll)
		tr.Post("/selection/clear-visible", h.ClearVisible)
		tr.Post("/selection/clear", h.ClearSelection)

		tr.Post("/bulk-delete", h.BulkDelete)
		tr.Post("/bulk-verify", h.BulkVerify)
	})

	return r
}
