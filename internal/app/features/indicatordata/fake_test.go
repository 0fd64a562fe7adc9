package indicatordata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/shopspring/decimal"
)

// memBackend is a small in-memory datasource.Backend for handler tests.
type memBackend struct {
	mu         sync.Mutex
	indicators []models.Indicator
	records    map[string]models.IndicatorDataRecord
	nextID     int
	fetchErr   error
	lastQuery  datasource.Query
}

func newMemBackend() *memBackend {
	return &memBackend{
		indicators: []models.Indicator{
			{ID: "ind-pop", Name: "Jumlah Penduduk", Category: models.CategoryEconomic, Subcategory: "Kependudukan", Unit: "jiwa"},
			{ID: "ind-inf", Name: "Inflasi Bulanan", Category: models.CategoryEconomic, Subcategory: models.InflationSubcategory, Unit: "persen"},
			{ID: "ind-env", Name: "Luas Hutan", Category: models.CategoryEnvironmental, Subcategory: "Kehutanan", Unit: "ha"},
		},
		records: map[string]models.IndicatorDataRecord{},
	}
}

func (m *memBackend) indicator(id string) (models.Indicator, bool) {
	for _, ind := range m.indicators {
		if ind.ID == id {
			return ind, true
		}
	}
	return models.Indicator{}, false
}

func (m *memBackend) seed(indID string, p models.Period, value string, status models.Status) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ind, _ := m.indicator(indID)
	m.nextID++
	id := fmt.Sprintf("rec-%02d", m.nextID)
	m.records[id] = models.IndicatorDataRecord{
		ID:            id,
		IndicatorID:   ind.ID,
		IndicatorName: ind.Name,
		Subcategory:   ind.Subcategory,
		Unit:          ind.Unit,
		Category:      ind.Category,
		Period:        p,
		Value:         decimal.NewNullDecimal(decimal.RequireFromString(value)),
		Status:        status,
	}
	return id
}

func (m *memBackend) Fetch(ctx context.Context, q datasource.Query) (datasource.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q
	if m.fetchErr != nil {
		return datasource.Result{}, m.fetchErr
	}
	var out []models.IndicatorDataRecord
	var stats datasource.Statistics
	for _, r := range m.records {
		if r.Category != q.Category {
			continue
		}
		stats.Total++
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
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
		Statistics: stats,
	}, nil
}

func (m *memBackend) ListIndicators(ctx context.Context, c models.Category) ([]models.Indicator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Indicator
	for _, ind := range m.indicators {
		if ind.Category == c {
			out = append(out, ind)
		}
	}
	return out, nil
}

func (m *memBackend) Create(ctx context.Context, actor datasource.Actor, in datasource.NewRecord) (models.IndicatorDataRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ind, _ := m.indicator(in.IndicatorID)
	for _, r := range m.records {
		if r.IndicatorID == in.IndicatorID && r.Period == in.Period {
			return models.IndicatorDataRecord{}, &datasource.DuplicateError{ExistingID: r.ID, IndicatorID: in.IndicatorID, Period: in.Period}
		}
	}
	m.nextID++
	r := models.IndicatorDataRecord{
		ID:            fmt.Sprintf("rec-%02d", m.nextID),
		IndicatorID:   ind.ID,
		IndicatorName: ind.Name,
		Subcategory:   ind.Subcategory,
		Category:      ind.Category,
		Period:        in.Period,
		Value:         decimal.NewNullDecimal(in.Value),
		Status:        in.Status,
		Audit:         models.Audit{CreatedBy: actor.ID, UpdatedBy: actor.ID},
	}
	m.records[r.ID] = r
	return r, nil
}

func (m *memBackend) Update(ctx context.Context, actor datasource.Actor, id string, p datasource.Patch) (models.IndicatorDataRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return models.IndicatorDataRecord{}, datasource.ErrNotFound
	}
	if p.Value != nil {
		r.Value = decimal.NewNullDecimal(*p.Value)
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	r.Audit.UpdatedBy = actor.ID
	m.records[id] = r
	return r, nil
}

func (m *memBackend) Delete(ctx context.Context, actor datasource.Actor, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return datasource.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memBackend) Verify(ctx context.Context, actor datasource.Actor, id string) (models.IndicatorDataRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return models.IndicatorDataRecord{}, datasource.ErrNotFound
	}
	if r.Status != models.StatusPreliminary {
		return models.IndicatorDataRecord{}, datasource.ErrInvalidState
	}
	r.Status = models.StatusFinal
	r.Verification = &models.Verification{VerifiedBy: actor.ID, VerifiedByName: actor.Name, VerifiedAt: time.Now()}
	m.records[id] = r
	return r, nil
}

func (m *memBackend) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}
