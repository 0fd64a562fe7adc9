package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAction(t *testing.T) {
	m := New()
	m.Action("economic", "create", nil)
	m.Action("economic", "create", nil)
	m.Action("economic", "create", errors.New("boom"))

	if got := testutil.ToFloat64(m.actions.WithLabelValues("economic", "create", OutcomeOK)); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.actions.WithLabelValues("economic", "create", OutcomeError)); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestBulkItemsAndScreens(t *testing.T) {
	m := New()
	m.BulkItems("bulk_delete", 3, 1)
	m.SetScreens(4)
	m.StaleFetch("demographic")
	m.JobRun("screen-eviction", nil)

	if got := testutil.ToFloat64(m.bulkItems.WithLabelValues("bulk_delete", OutcomeOK)); got != 3 {
		t.Errorf("bulk ok = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.bulkItems.WithLabelValues("bulk_delete", OutcomeError)); got != 1 {
		t.Errorf("bulk error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.screens); got != 4 {
		t.Errorf("screens = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.staleFetches.WithLabelValues("demographic")); got != 1 {
		t.Errorf("stale = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues("screen-eviction", OutcomeOK)); got != 1 {
		t.Errorf("job runs = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Action("economic", "create", nil)
	m.Fetch("economic", time.Now(), nil)
	m.StaleFetch("economic")
	m.BulkItems("bulk_verify", 1, 1)
	m.SetScreens(1)
	m.JobRun("x", nil)
}

func TestHandler(t *testing.T) {
	m := New()
	m.Fetch("environmental", time.Now(), nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "stratadata_fetch_duration_seconds") {
		t.Error("metrics output missing fetch duration histogram")
	}
}
