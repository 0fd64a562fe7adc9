package indicatordata

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratadata/internal/app/datascreen"
	"github.com/dalemusser/stratadata/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadata/internal/app/system/normalize"
	"github.com/dalemusser/stratadata/internal/app/system/timeouts"
	"github.com/dalemusser/stratadata/internal/app/tableview"
	"go.uber.org/zap"
)

type searchRequest struct {
	Text string `json:"text"`
}

type filterRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type sortRequest struct {
	Field string `json:"field"`
}

type pageRequest struct {
	Page int `json:"page"`
}

type limitRequest struct {
	Limit int `json:"limit"`
}

type toggleRequest struct {
	ID string `json:"id"`
}

// transition loads the screen if needed, runs fn against the table named
// in the route and answers with the re-derived view. A failing fn leaves
// the table as it was.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(sc *datascreen.Screen, kind tableview.Kind) (tableview.View, error)) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	kind, ok := tableKind(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), h.Log, op)
	defer cancel()

	if err := sc.Load(ctx); err != nil {
		h.fail(w, r, sc, "failed to load indicator data", err, zap.String("table", string(kind)))
		return
	}
	view, err := fn(sc, kind)
	if err != nil {
		h.fail(w, r, sc, op+" failed", err, zap.String("table", string(kind)))
		return
	}
	jsonutil.OK(w, view)
}

// decodeThen decodes the body into a T before running the transition.
func decodeThen[T any](h *Handler, w http.ResponseWriter, r *http.Request, op string, fn func(sc *datascreen.Screen, kind tableview.Kind, in T) (tableview.View, error)) {
	var in T
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	h.transition(w, r, op, func(sc *datascreen.Screen, kind tableview.Kind) (tableview.View, error) {
		return fn(sc, kind, in)
	})
}

// Search handles POST /tables/{table}/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	decodeThen(h, w, r, "search", func(sc *datascreen.Screen, kind tableview.Kind, in searchRequest) (tableview.View, error) {
		return sc.WithTable(kind, func(t *tableview.Table) error {
			t.Controller().SetSearch(normalize.Search(in.Text))
			return nil
		})
	})
}

// Filter handles POST /tables/{table}/filter. A value of "" or "all"
// clears the filter on that field.
func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	decodeThen(h, w, r, "filter", func(sc *datascreen.Screen, kind tableview.Kind, in filterRequest) (tableview.View, error) {
		return sc.WithTable(kind, func(t *tableview.Table) error {
			return t.Controller().SetFieldFilter(tableview.Field(normalize.QueryParam(in.Field)), normalize.Name(in.Value))
		})
	})
}

// Sort handles POST /tables/{table}/sort. Sorting the current field again
// flips the direction.
func (h *Handler) Sort(w http.ResponseWriter, r *http.Request) {
	decodeThen(h, w, r, "sort", func(sc *datascreen.Screen, kind tableview.Kind, in sortRequest) (tableview.View, error) {
		return sc.WithTable(kind, func(t *tableview.Table) error {
			return t.Controller().SetSort(tableview.Field(normalize.QueryParam(in.Field)))
		})
	})
}

// Page handles POST /tables/{table}/page.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	decodeThen(h, w, r, "page", func(sc *datascreen.Screen, kind tableview.Kind, in pageRequest) (tableview.View, error) {
		return sc.WithTable(kind, func(t *tableview.Table) error {
			t.Controller().SetPage(in.Page)
			return nil
		})
	})
}

// Limit handles POST /tables/{table}/limit.
func (h *Handler) Limit(w http.ResponseWriter, r *http.Request) {
	decodeThen(h, w, r, "limit", func(sc *datascreen.Screen, kind tableview.Kind, in limitRequest) (tableview.View, error) {
		return sc.WithTable(kind, func(t *tableview.Table) error {
			return t.Controller().SetLimit(in.Limit)
		})
	})
}

// Reset handles POST /tables/{table}/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reset", func(sc *datascreen.Screen, kind tableview.Kind) (tableview.View, error) {
		return sc.WithTable(kind, func(t *tableview.Table) error {
			t.Controller().ResetAll()
			return nil
		})
	})
}

// Toggle handles POST /tables/{table}/selection/toggle.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	decodeThen(h, w, r, "toggle", func(sc *datascreen.Screen, kind tableview.Kind, in toggleRequest) (tableview.View, error) {
		return sc.Toggle(kind, normalize.QueryParam(in.ID))
	})
}

// SelectAll handles POST /tables/{table}/selection/select-all. Only the
// visible page is selected.
func (h *Handler) SelectAll(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "select-all", func(sc *datascreen.Screen, kind tableview.Kind) (tableview.View, error) {
		return sc.WithTable(kind, func(t *tableview.Table) error {
			t.SelectAllVisible()
			return nil
		})
	})
}

// ClearVisible handles POST /tables/{table}/selection/clear-visible.
func (h *Handler) ClearVisible(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "clear-visible", func(sc *datascreen.Screen, kind tableview.Kind) (tableview.View, error) {
		return sc.WithTable(kind, func(t *tableview.Table) error {
			t.ClearVisible()
			return nil
		})
	})
}

// ClearSelection handles POST /tables/{table}/selection/clear.
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "clear", func(sc *datascreen.Screen, kind tableview.Kind) (tableview.View, error) {
		return sc.WithTable(kind, func(t *tableview.Table) error {
			t.Selection().Clear()
			return nil
		})
	})
}

// bulkResponse is a bulk result plus the table as it stands afterwards.
type bulkResponse struct {
	datascreen.BulkResult
	Table tableview.View `json:"table"`
}

// BulkDelete handles POST /tables/{table}/bulk-delete.
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "bulk delete", (*datascreen.Screen).BulkDelete)
}

// BulkVerify handles POST /tables/{table}/bulk-verify.
func (h *Handler) BulkVerify(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "bulk verify", (*datascreen.Screen).BulkVerify)
}

// bulk answers 200 whenever the batch ran, even if some items failed; the
// per-item outcome is in the body. A batch that could not start (nothing
// selected, no credentials) is an error response.
func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, op string,
	run func(*datascreen.Screen, context.Context, tableview.Kind) (datascreen.BulkResult, error)) {

	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	kind, ok := tableKind(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, op)
	defer cancel()

	res, err := run(sc, ctx, kind)
	if err != nil {
		h.fail(w, r, sc, op+" failed", err, zap.String("table", string(kind)))
		return
	}
	view, err := sc.WithTable(kind, func(*tableview.Table) error { return nil })
	if err != nil {
		h.fail(w, r, sc, op+" failed", err, zap.String("table", string(kind)))
		return
	}
	jsonutil.OK(w, bulkResponse{BulkResult: res, Table: view})
}
