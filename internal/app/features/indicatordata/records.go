package indicatordata

import (
	"net/http"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadata/internal/app/system/normalize"
	"github.com/dalemusser/stratadata/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Create handles POST /records.
//
// Request body:
//
//	{
//	    "indicator_id": "...",
//	    "year": 2024,
//	    "month": 3,              // inflation indicators only
//	    "value": "4.25",         // number or numeric string
//	    "status": "draft",       // draft | preliminary
//	    "notes": "",
//	    "source_document": ""
//	}
//
// Answers 201 with the record, 400 with field errors, or 409 with
// existing_id when the indicator already has data for that period.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	var in datasource.CreateInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	in.IndicatorID = normalize.QueryParam(in.IndicatorID)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create")
	defer cancel()

	rec, err := sc.Create(ctx, in)
	if err != nil {
		h.fail(w, r, sc, "failed to create record", err, zap.String("indicator_id", in.IndicatorID))
		return
	}
	jsonutil.Created(w, rec)
}

// Update handles POST /records/{id}. Only fields present in the body
// change.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var in datasource.UpdateInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update")
	defer cancel()

	rec, err := sc.Update(ctx, id, in)
	if err != nil {
		h.fail(w, r, sc, "failed to update record", err, zap.String("record_id", id))
		return
	}
	jsonutil.OK(w, rec)
}

// Delete handles POST /records/{id}/delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete")
	defer cancel()

	if err := sc.Delete(ctx, id); err != nil {
		h.fail(w, r, sc, "failed to delete record", err, zap.String("record_id", id))
		return
	}
	jsonutil.OK(w, map[string]string{"status": "deleted", "id": id})
}

// Verify handles POST /records/{id}/verify. Only preliminary records can
// be verified; anything else is 422.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.screen(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "verify")
	defer cancel()

	rec, err := sc.Verify(ctx, id)
	if err != nil {
		h.fail(w, r, sc, "failed to verify record", err, zap.String("record_id", id))
		return
	}
	jsonutil.OK(w, rec)
}

// Close handles POST /close. It forgets every screen of the caller's
// session, e.g. when the user leaves the admin area.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	u, ok := h.sessionUser(w, r)
	if !ok {
		return
	}
	n := h.Screens.DropSession(u.ScreenKey())
	jsonutil.OK(w, map[string]int{"closed": n})
}
