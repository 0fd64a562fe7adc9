package datascreen

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/system/metrics"
	"github.com/dalemusser/stratadata/internal/app/tableview"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"go.uber.org/zap"
)

var testActor = datasource.StaticCredentials{ID: "u-1", Name: "Siti", Role: "economic_admin"}

func newTestScreen(t *testing.T, b *fakeBackend) (*Screen, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	sc := New(Config{
		Category:     models.CategoryEconomic,
		Backend:      b,
		Credentials:  testActor,
		Events:       pub,
		Metrics:      metrics.New(),
		Logger:       zap.NewNop(),
		DefaultLimit: 10,
	})
	return sc, pub
}

// seedEconomic stores three annual and three inflation records for the
// economic category plus one environmental record.
func seedEconomic(b *fakeBackend) map[string]string {
	return map[string]string{
		"pop2023": b.seed("ind-pop", models.AnnualPeriod(2023), "100", models.StatusDraft),
		"pop2024": b.seed("ind-pop", models.AnnualPeriod(2024), "110", models.StatusPreliminary),
		"gdp2024": b.seed("ind-gdp", models.AnnualPeriod(2024), "55.5", models.StatusFinal),
		"inf2401": b.seed("ind-inf", models.MonthlyPeriod(2024, 1), "0.4", models.StatusPreliminary),
		"inf2402": b.seed("ind-inf", models.MonthlyPeriod(2024, 2), "0.3", models.StatusDraft),
		"inf2312": b.seed("ind-inf", models.MonthlyPeriod(2023, 12), "0.5", models.StatusFinal),
		"env2024": b.seed("ind-env", models.AnnualPeriod(2024), "900", models.StatusDraft),
	}
}

func TestSnapshot_PartitionsTables(t *testing.T) {
	b := newFakeBackend()
	seedEconomic(b)
	sc, _ := newTestScreen(t, b)

	snap, err := sc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if snap.Annual.Pagination.TotalItems != 3 {
		t.Errorf("annual total = %d, want 3", snap.Annual.Pagination.TotalItems)
	}
	if snap.Inflation.Pagination.TotalItems != 3 {
		t.Errorf("inflation total = %d, want 3", snap.Inflation.Pagination.TotalItems)
	}
	for _, r := range snap.Annual.Records {
		if r.IsInflation() {
			t.Errorf("annual table holds inflation record %s", r.ID)
		}
	}
	for _, r := range snap.Inflation.Records {
		if !r.IsInflation() {
			t.Errorf("inflation table holds annual record %s", r.ID)
		}
	}
	if snap.Statistics.Total != 6 || snap.Statistics.Final != 2 || snap.Statistics.Indicators != 3 {
		t.Errorf("statistics = %+v", snap.Statistics)
	}
	if !reflect.DeepEqual(snap.AvailableYears, []int{2024, 2023}) {
		t.Errorf("available years = %v", snap.AvailableYears)
	}
	if len(snap.Indicators) != 3 {
		t.Errorf("indicators = %d, want 3", len(snap.Indicators))
	}
	if snap.Stale {
		t.Error("fresh snapshot should not be stale")
	}
}

func TestSnapshot_FilterOptions(t *testing.T) {
	b := newFakeBackend()
	seedEconomic(b)
	sc, _ := newTestScreen(t, b)

	snap, err := sc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	o := snap.Options
	if !reflect.DeepEqual(o.IndicatorNames, []string{"Jumlah Penduduk", "PDRB"}) {
		t.Errorf("IndicatorNames = %v", o.IndicatorNames)
	}
	if !reflect.DeepEqual(o.Subcategories, []string{"Ekonomi Makro", "Kependudukan"}) {
		t.Errorf("Subcategories = %v", o.Subcategories)
	}
	if !reflect.DeepEqual(o.Years, []int{2024, 2023}) {
		t.Errorf("Years = %v", o.Years)
	}
	if !reflect.DeepEqual(o.InflationIndicatorNames, []string{"Inflasi Bulanan"}) {
		t.Errorf("InflationIndicatorNames = %v", o.InflationIndicatorNames)
	}
	if !reflect.DeepEqual(o.InflationYears, []int{2024, 2023}) {
		t.Errorf("InflationYears = %v", o.InflationYears)
	}
	if len(o.Statuses) != 3 {
		t.Errorf("Statuses = %v", o.Statuses)
	}
}

func TestSnapshot_FetchesOnce(t *testing.T) {
	b := newFakeBackend()
	seedEconomic(b)
	sc, _ := newTestScreen(t, b)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := sc.Snapshot(ctx); err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
	}
	if n := b.fetchCount(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}

func TestSnapshot_FetchError(t *testing.T) {
	b := newFakeBackend()
	b.setFetchErr(errBackendDown)
	sc, _ := newTestScreen(t, b)

	_, err := sc.Snapshot(context.Background())
	if !errors.Is(err, errBackendDown) {
		t.Errorf("Snapshot() error = %v, want %v", err, errBackendDown)
	}
	if datasource.KindOf(err) != datasource.KindUnknown {
		t.Errorf("KindOf() = %v, want unknown", datasource.KindOf(err))
	}
}

func TestRefresh_FailureKeepsState(t *testing.T) {
	b := newFakeBackend()
	ids := seedEconomic(b)
	sc, _ := newTestScreen(t, b)
	ctx := context.Background()

	if _, err := sc.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if _, err := sc.Toggle(tableview.KindAnnual, ids["pop2023"]); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if _, err := sc.WithTable(tableview.KindAnnual, func(tb *tableview.Table) error {
		tb.Controller().SetSearch("penduduk")
		return nil
	}); err != nil {
		t.Fatalf("WithTable() error = %v", err)
	}

	b.setFetchErr(errBackendDown)
	if err := sc.Refresh(ctx); !errors.Is(err, errBackendDown) {
		t.Fatalf("Refresh() error = %v, want %v", err, errBackendDown)
	}

	snap, err := sc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() of stale screen error = %v", err)
	}
	if !snap.Stale {
		t.Error("snapshot should be marked stale")
	}
	if snap.Annual.State.Search != "penduduk" {
		t.Errorf("search = %q, state should be unchanged", snap.Annual.State.Search)
	}
	if snap.Annual.Selection.Count != 1 {
		t.Errorf("selection count = %d, want 1", snap.Annual.Selection.Count)
	}
	if snap.Annual.Pagination.TotalItems != 2 {
		t.Errorf("annual total = %d, want 2", snap.Annual.Pagination.TotalItems)
	}

	b.setFetchErr(nil)
	snap, err = sc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Stale {
		t.Error("snapshot should be fresh after a successful refresh")
	}
}

func TestRefresh_LastRequestedWins(t *testing.T) {
	b := newFakeBackend()
	b.seed("ind-pop", models.AnnualPeriod(2020), "1", models.StatusDraft)
	sc, _ := newTestScreen(t, b)

	started := make(chan struct{})
	release := make(chan struct{})
	b.mu.Lock()
	b.beforeReturn = func(n int) {
		if n == 1 {
			close(started)
			<-release
		}
	}
	b.mu.Unlock()

	firstDone := make(chan error, 1)
	go func() { firstDone <- sc.Refresh(context.Background()) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first fetch never started")
	}

	// The first response is computed but held; a newer fetch sees more data.
	b.seed("ind-pop", models.AnnualPeriod(2021), "2", models.StatusDraft)
	if err := sc.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	snap, err := sc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Annual.Pagination.TotalItems != 2 {
		t.Errorf("annual total = %d, want 2 (superseded response must not win)", snap.Annual.Pagination.TotalItems)
	}
}

func TestEnsureLoaded_WaitsForNewerFirstFetch(t *testing.T) {
	b := newFakeBackend()
	ids := seedEconomic(b)
	sc, _ := newTestScreen(t, b)

	started := []chan struct{}{make(chan struct{}), make(chan struct{})}
	release := []chan struct{}{make(chan struct{}), make(chan struct{})}
	b.mu.Lock()
	b.beforeReturn = func(n int) {
		if n <= 2 {
			close(started[n-1])
			<-release[n-1]
		}
	}
	b.mu.Unlock()

	wait := func(ch chan struct{}, what string) {
		t.Helper()
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("%s never started", what)
		}
	}

	// Delete's first load is overtaken by a Snapshot's load.
	deleteDone := make(chan error, 1)
	go func() { deleteDone <- sc.Delete(context.Background(), ids["pop2023"]) }()
	wait(started[0], "first fetch")

	snapDone := make(chan error, 1)
	go func() {
		_, err := sc.Snapshot(context.Background())
		snapDone <- err
	}()
	wait(started[1], "second fetch")

	// The superseded fetch lands first; Delete must keep waiting.
	close(release[0])
	select {
	case err := <-deleteDone:
		t.Fatalf("Delete() returned %v before any data was loaded", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release[1])
	if err := <-deleteDone; err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := <-snapDone; err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if b.has(ids["pop2023"]) {
		t.Error("record should be deleted")
	}
}

func TestEnsureLoaded_NewerFirstFetchFails(t *testing.T) {
	b := newFakeBackend()
	seedEconomic(b)
	sc, _ := newTestScreen(t, b)

	started := make(chan struct{})
	release := make(chan struct{})
	b.mu.Lock()
	b.beforeReturn = func(n int) {
		if n == 1 {
			close(started)
			<-release
		}
	}
	b.mu.Unlock()

	firstDone := make(chan error, 1)
	go func() {
		_, err := sc.Snapshot(context.Background())
		firstDone <- err
	}()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first fetch never started")
	}

	b.setFetchErr(errBackendDown)
	if err := sc.Refresh(context.Background()); !errors.Is(err, errBackendDown) {
		t.Fatalf("Refresh() error = %v, want backend down", err)
	}

	close(release)
	if err := <-firstDone; !errors.Is(err, errBackendDown) {
		t.Errorf("superseded Snapshot() error = %v, want backend down", err)
	}
}

func TestRefresh_PrunesVanishedSelection(t *testing.T) {
	b := newFakeBackend()
	ids := seedEconomic(b)
	sc, _ := newTestScreen(t, b)
	ctx := context.Background()

	if _, err := sc.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	for _, id := range []string{ids["pop2023"], ids["gdp2024"]} {
		if _, err := sc.Toggle(tableview.KindAnnual, id); err != nil {
			t.Fatalf("Toggle(%s) error = %v", id, err)
		}
	}

	// Deleted by someone else.
	b.mu.Lock()
	delete(b.records, ids["gdp2024"])
	b.mu.Unlock()

	if err := sc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	v, err := sc.WithTable(tableview.KindAnnual, func(*tableview.Table) error { return nil })
	if err != nil {
		t.Fatalf("WithTable() error = %v", err)
	}
	if !reflect.DeepEqual(v.Selection.IDs, []string{ids["pop2023"]}) {
		t.Errorf("selection = %v, want only %s", v.Selection.IDs, ids["pop2023"])
	}
}

func TestWithTable(t *testing.T) {
	b := newFakeBackend()
	seedEconomic(b)
	sc, _ := newTestScreen(t, b)
	if _, err := sc.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	v, err := sc.WithTable(tableview.KindAnnual, func(tb *tableview.Table) error {
		tb.Controller().SetSearch("PDRB")
		return nil
	})
	if err != nil {
		t.Fatalf("WithTable() error = %v", err)
	}
	if v.Pagination.TotalItems != 1 || v.Records[0].IndicatorName != "PDRB" {
		t.Errorf("search result = %+v", v.Pagination)
	}

	if _, err := sc.WithTable("quarterly", func(*tableview.Table) error { return nil }); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("unknown table error = %v, want %v", err, ErrUnknownTable)
	}

	_, err = sc.WithTable(tableview.KindAnnual, func(tb *tableview.Table) error {
		return tb.Controller().SetLimit(0)
	})
	if !errors.Is(err, tableview.ErrInvalidLimit) {
		t.Errorf("SetLimit(0) error = %v", err)
	}
	v, _ = sc.WithTable(tableview.KindAnnual, func(*tableview.Table) error { return nil })
	if v.State.Limit != 10 || v.State.Search != "PDRB" {
		t.Errorf("state after failed transition = %+v", v.State)
	}
}

func TestToggle(t *testing.T) {
	b := newFakeBackend()
	ids := seedEconomic(b)
	sc, _ := newTestScreen(t, b)
	if _, err := sc.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	v, err := sc.Toggle(tableview.KindInflation, ids["inf2401"])
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if v.Selection.Count != 1 {
		t.Errorf("selection count = %d, want 1", v.Selection.Count)
	}

	if _, err := sc.Toggle(tableview.KindAnnual, ids["inf2401"]); !errors.Is(err, datasource.ErrNotFound) {
		t.Errorf("toggling an inflation record on the annual table: error = %v", err)
	}
	if _, err := sc.Toggle(tableview.KindAnnual, ids["env2024"]); !errors.Is(err, datasource.ErrNotFound) {
		t.Errorf("toggling another category's record: error = %v", err)
	}

	v, _ = sc.Toggle(tableview.KindInflation, ids["inf2401"])
	if v.Selection.Count != 0 {
		t.Errorf("second toggle should deselect, count = %d", v.Selection.Count)
	}
}

func TestRecords_ScopedToCategory(t *testing.T) {
	b := newFakeBackend()
	seedEconomic(b)
	sc, _ := newTestScreen(t, b)

	res, err := sc.Records(context.Background(), datasource.Query{Category: models.CategoryEnvironmental, Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	for _, r := range res.Data {
		if r.Category != models.CategoryEconomic {
			t.Errorf("record %s of category %s leaked", r.ID, r.Category)
		}
	}
	if res.Pagination.TotalItems != 6 {
		t.Errorf("total = %d, want 6", res.Pagination.TotalItems)
	}
}

func TestBuildOptions_Dedupes(t *testing.T) {
	recs := []models.IndicatorDataRecord{
		{IndicatorName: "beta", Subcategory: "S", Period: models.AnnualPeriod(2020)},
		{IndicatorName: "Alpha", Subcategory: "S", Period: models.AnnualPeriod(2022)},
		{IndicatorName: "beta", Subcategory: "", Period: models.AnnualPeriod(2020)},
	}
	o := buildOptions(recs, nil)
	if !reflect.DeepEqual(o.IndicatorNames, []string{"Alpha", "beta"}) {
		t.Errorf("IndicatorNames = %v", o.IndicatorNames)
	}
	if !reflect.DeepEqual(o.Subcategories, []string{"S"}) {
		t.Errorf("Subcategories = %v", o.Subcategories)
	}
	if !reflect.DeepEqual(o.Years, []int{2022, 2020}) {
		t.Errorf("Years = %v", o.Years)
	}
	if len(o.InflationYears) != 0 || o.InflationIndicatorNames == nil {
		t.Errorf("empty inflation options = %+v", o)
	}
}
