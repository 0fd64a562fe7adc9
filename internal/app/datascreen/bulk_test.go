package datascreen

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/system/events"
	"github.com/dalemusser/stratadata/internal/app/system/metrics"
	"github.com/dalemusser/stratadata/internal/app/tableview"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"go.uber.org/zap"
)

func selectAll(t *testing.T, sc *Screen, kind tableview.Kind, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := sc.Toggle(kind, id); err != nil {
			t.Fatalf("Toggle(%s) error = %v", id, err)
		}
	}
}

func TestBulkDelete_AllSucceed(t *testing.T) {
	b := newFakeBackend()
	ids := seedEconomic(b)
	sc, pub := newTestScreen(t, b)
	ctx := context.Background()
	if _, err := sc.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	selectAll(t, sc, tableview.KindAnnual, ids["pop2023"], ids["pop2024"], ids["gdp2024"])

	res, err := sc.BulkDelete(ctx, tableview.KindAnnual)
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if !res.OK() || res.Requested != 3 || len(res.Succeeded) != 3 {
		t.Errorf("result = %+v", res)
	}
	if res.BatchID == "" {
		t.Error("BatchID should be set")
	}

	snap, _ := sc.Snapshot(ctx)
	if snap.Annual.Pagination.TotalItems != 0 || snap.Annual.Selection.Count != 0 {
		t.Errorf("annual after bulk delete: total=%d selected=%d", snap.Annual.Pagination.TotalItems, snap.Annual.Selection.Count)
	}
	if snap.Inflation.Pagination.TotalItems != 3 {
		t.Errorf("inflation table should be untouched, total = %d", snap.Inflation.Pagination.TotalItems)
	}

	evs := pub.published()
	if len(evs) != 1 {
		t.Fatalf("events = %d, want 1", len(evs))
	}
	if evs[0].Action != events.ActionBulkDelete || evs[0].BatchID != res.BatchID || len(evs[0].RecordIDs) != 3 {
		t.Errorf("event = %+v", evs[0])
	}
}

func TestBulkDelete_PartialFailureReported(t *testing.T) {
	b := newFakeBackend()
	ids := seedEconomic(b)
	b.failIDs[ids["pop2024"]] = errBackendDown
	sc, _ := newTestScreen(t, b)
	ctx := context.Background()
	if _, err := sc.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	selectAll(t, sc, tableview.KindAnnual, ids["pop2023"], ids["pop2024"], ids["gdp2024"])

	res, err := sc.BulkDelete(ctx, tableview.KindAnnual)
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if res.OK() {
		t.Fatal("result should report a failure")
	}
	if len(res.Failed) != 1 || res.Failed[0].ID != ids["pop2024"] || res.Failed[0].Kind != datasource.KindUnknown {
		t.Errorf("failed = %+v", res.Failed)
	}
	got := append([]string(nil), res.Succeeded...)
	sort.Strings(got)
	want := []string{ids["pop2023"], ids["gdp2024"]}
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("succeeded = %v, want %v", got, want)
	}

	snap, _ := sc.Snapshot(ctx)
	if !reflect.DeepEqual(snap.Annual.Selection.IDs, []string{ids["pop2024"]}) {
		t.Errorf("failed id should stay selected, selection = %v", snap.Annual.Selection.IDs)
	}
	if snap.Annual.Pagination.TotalItems != 1 {
		t.Errorf("annual total = %d, want 1", snap.Annual.Pagination.TotalItems)
	}
}

func TestBulkVerify_InvalidStatePerItem(t *testing.T) {
	b := newFakeBackend()
	ids := seedEconomic(b)
	sc, _ := newTestScreen(t, b)
	ctx := context.Background()
	if _, err := sc.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	selectAll(t, sc, tableview.KindInflation, ids["inf2401"], ids["inf2402"], ids["inf2312"])

	res, err := sc.BulkVerify(ctx, tableview.KindInflation)
	if err != nil {
		t.Fatalf("BulkVerify() error = %v", err)
	}
	if !reflect.DeepEqual(res.Succeeded, []string{ids["inf2401"]}) {
		t.Errorf("succeeded = %v", res.Succeeded)
	}
	if len(res.Failed) != 2 {
		t.Fatalf("failed = %+v", res.Failed)
	}
	for _, f := range res.Failed {
		if f.Kind != datasource.KindInvalidState {
			t.Errorf("failure %s kind = %s, want invalid_state", f.ID, f.Kind)
		}
	}

	snap, _ := sc.Snapshot(ctx)
	if snap.Statistics.Final != 3 {
		t.Errorf("final count = %d, want 3", snap.Statistics.Final)
	}
}

func TestBulk_EmptySelection(t *testing.T) {
	b := newFakeBackend()
	seedEconomic(b)
	sc, pub := newTestScreen(t, b)

	_, err := sc.BulkDelete(context.Background(), tableview.KindAnnual)
	if datasource.KindOf(err) != datasource.KindValidation {
		t.Errorf("BulkDelete() error = %v, want validation", err)
	}
	if len(pub.published()) != 0 {
		t.Error("no event for an empty selection")
	}
}

func TestBulk_AllFailedSkipsRefetch(t *testing.T) {
	b := newFakeBackend()
	ids := seedEconomic(b)
	sc, pub := newTestScreen(t, b)
	ctx := context.Background()
	if _, err := sc.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	selectAll(t, sc, tableview.KindAnnual, ids["pop2023"])
	before := b.fetchCount()

	res, err := sc.BulkVerify(ctx, tableview.KindAnnual)
	if err != nil {
		t.Fatalf("BulkVerify() error = %v", err)
	}
	if len(res.Failed) != 1 || len(res.Succeeded) != 0 {
		t.Errorf("result = %+v", res)
	}
	if b.fetchCount() != before {
		t.Error("nothing changed, so nothing should be refetched")
	}
	if len(pub.published()) != 0 {
		t.Error("no event when every item failed")
	}
}

func TestBulk_BoundedParallelism(t *testing.T) {
	b := newFakeBackend()
	var ids []string
	for y := 2000; y < 2012; y++ {
		ids = append(ids, b.seed("ind-pop", models.AnnualPeriod(y), "1", models.StatusDraft))
	}
	b.opDelay = 10 * time.Millisecond

	sc := New(Config{
		Category:        models.CategoryEconomic,
		Backend:         b,
		Credentials:     testActor,
		Metrics:         metrics.New(),
		Logger:          zap.NewNop(),
		DefaultLimit:    50,
		BulkConcurrency: 3,
	})
	ctx := context.Background()
	if _, err := sc.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	selectAll(t, sc, tableview.KindAnnual, ids...)

	res, err := sc.BulkDelete(ctx, tableview.KindAnnual)
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if len(res.Succeeded) != len(ids) {
		t.Errorf("succeeded = %d, want %d", len(res.Succeeded), len(ids))
	}
	if b.maxInflight > 3 {
		t.Errorf("max in flight = %d, want <= 3", b.maxInflight)
	}
	if b.maxInflight < 2 {
		t.Errorf("max in flight = %d, deletes should overlap", b.maxInflight)
	}
}

func TestBulk_UnknownTable(t *testing.T) {
	sc, _ := newTestScreen(t, newFakeBackend())
	if _, err := sc.BulkDelete(context.Background(), "weekly"); err == nil {
		t.Error("BulkDelete() on an unknown table should fail")
	}
}
