package datascreen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/system/events"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/shopspring/decimal"
)

var errBackendDown = errors.New("backend down")

// fakeBackend is an in-memory datasource.Backend.
type fakeBackend struct {
	mu         sync.Mutex
	indicators []models.Indicator
	records    map[string]models.IndicatorDataRecord
	nextID     int

	fetches    int
	createCall int
	fetchErr   error
	failIDs    map[string]error
	// beforeReturn, when set, runs after a Fetch has computed its result
	// and before it returns, with the call's sequence number (1-based).
	beforeReturn func(n int)

	// opDelay slows Delete so tests can observe parallelism.
	opDelay     time.Duration
	inflight    int
	maxInflight int
}

var _ datasource.Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		indicators: []models.Indicator{
			{ID: "ind-pop", Name: "Jumlah Penduduk", Category: models.CategoryEconomic, Subcategory: "Kependudukan", Unit: "jiwa"},
			{ID: "ind-gdp", Name: "PDRB", Category: models.CategoryEconomic, Subcategory: "Ekonomi Makro", Unit: "miliar rupiah"},
			{ID: "ind-inf", Name: "Inflasi Bulanan", Category: models.CategoryEconomic, Subcategory: models.InflationSubcategory, Unit: "persen"},
			{ID: "ind-env", Name: "Luas Hutan", Category: models.CategoryEnvironmental, Subcategory: "Kehutanan", Unit: "ha"},
		},
		records: map[string]models.IndicatorDataRecord{},
		failIDs: map[string]error{},
	}
}

func (f *fakeBackend) indicator(id string) (models.Indicator, bool) {
	for _, ind := range f.indicators {
		if ind.ID == id {
			return ind, true
		}
	}
	return models.Indicator{}, false
}

// seed stores a record directly and returns its id.
func (f *fakeBackend) seed(indID string, p models.Period, value string, status models.Status) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ind, _ := f.indicator(indID)
	f.nextID++
	id := fmt.Sprintf("rec-%02d", f.nextID)
	r := models.IndicatorDataRecord{
		ID:            id,
		IndicatorID:   ind.ID,
		IndicatorName: ind.Name,
		Subcategory:   ind.Subcategory,
		Unit:          ind.Unit,
		Category:      ind.Category,
		Period:        p,
		Status:        status,
	}
	if value != "" {
		r.Value = decimal.NewNullDecimal(decimal.RequireFromString(value))
	}
	f.records[id] = r
	return id
}

func (f *fakeBackend) Fetch(ctx context.Context, q datasource.Query) (datasource.Result, error) {
	f.mu.Lock()
	f.fetches++
	n := f.fetches
	hook := f.beforeReturn
	res, err := f.query(q)
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return res, err
}

// query computes a fetch result. Caller holds f.mu.
func (f *fakeBackend) query(q datasource.Query) (datasource.Result, error) {
	if f.fetchErr != nil {
		return datasource.Result{}, f.fetchErr
	}

	var out []models.IndicatorDataRecord
	var stats datasource.Statistics
	years := map[int]bool{}
	inds := map[string]bool{}
	for _, r := range f.records {
		if r.Category != q.Category {
			continue
		}
		stats.Total++
		switch r.Status {
		case models.StatusDraft:
			stats.Draft++
		case models.StatusPreliminary:
			stats.Preliminary++
		case models.StatusFinal:
			stats.Final++
		}
		inds[r.IndicatorID] = true
		years[r.Period.Year] = true
		out = append(out, r)
	}
	stats.Indicators = len(inds)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	var ys []int
	for y := range years {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	total := len(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return datasource.Result{
		Data: out,
		Pagination: models.Pagination{
			TotalItems:  total,
			TotalPages:  models.TotalPagesFor(total, q.Limit),
			CurrentPage: 1,
			PageSize:    q.Limit,
		},
		Statistics:     stats,
		AvailableYears: ys,
	}, nil
}

func (f *fakeBackend) ListIndicators(ctx context.Context, c models.Category) ([]models.Indicator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []models.Indicator
	for _, ind := range f.indicators {
		if ind.Category == c {
			out = append(out, ind)
		}
	}
	return out, nil
}

func (f *fakeBackend) Create(ctx context.Context, actor datasource.Actor, in datasource.NewRecord) (models.IndicatorDataRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCall++
	ind, ok := f.indicator(in.IndicatorID)
	if !ok {
		return models.IndicatorDataRecord{}, datasource.NewValidationError("indicator_id", "Indicator not found.")
	}
	for _, r := range f.records {
		if r.IndicatorID == in.IndicatorID && r.Period == in.Period {
			return models.IndicatorDataRecord{}, &datasource.DuplicateError{ExistingID: r.ID, IndicatorID: in.IndicatorID, Period: in.Period}
		}
	}
	f.nextID++
	r := models.IndicatorDataRecord{
		ID:            fmt.Sprintf("rec-%02d", f.nextID),
		IndicatorID:   ind.ID,
		IndicatorName: ind.Name,
		Subcategory:   ind.Subcategory,
		Unit:          ind.Unit,
		Category:      ind.Category,
		Period:        in.Period,
		Value:         decimal.NewNullDecimal(in.Value),
		Status:        in.Status,
		Notes:         in.Notes,
		Audit:         models.Audit{CreatedBy: actor.ID, UpdatedBy: actor.ID},
	}
	f.records[r.ID] = r
	return r, nil
}

func (f *fakeBackend) Update(ctx context.Context, actor datasource.Actor, id string, p datasource.Patch) (models.IndicatorDataRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIDs[id]; err != nil {
		return models.IndicatorDataRecord{}, err
	}
	r, ok := f.records[id]
	if !ok {
		return models.IndicatorDataRecord{}, datasource.ErrNotFound
	}
	if p.Value != nil {
		r.Value = decimal.NewNullDecimal(*p.Value)
	}
	if p.Status != nil {
		r.Status = *p.Status
		r.Verification = nil
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	r.Audit.UpdatedBy = actor.ID
	f.records[id] = r
	return r, nil
}

func (f *fakeBackend) Delete(ctx context.Context, actor datasource.Actor, id string) error {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	delay := f.opDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--
	if err := f.failIDs[id]; err != nil {
		return err
	}
	if _, ok := f.records[id]; !ok {
		return datasource.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeBackend) Verify(ctx context.Context, actor datasource.Actor, id string) (models.IndicatorDataRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIDs[id]; err != nil {
		return models.IndicatorDataRecord{}, err
	}
	r, ok := f.records[id]
	if !ok {
		return models.IndicatorDataRecord{}, datasource.ErrNotFound
	}
	if r.Status != models.StatusPreliminary {
		return models.IndicatorDataRecord{}, datasource.ErrInvalidState
	}
	r.Status = models.StatusFinal
	r.Verification = &models.Verification{VerifiedBy: actor.ID, VerifiedByName: actor.Name, VerifiedAt: time.Now()}
	f.records[id] = r
	return r, nil
}

func (f *fakeBackend) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok
}

func (f *fakeBackend) setFetchErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

func (f *fakeBackend) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}
