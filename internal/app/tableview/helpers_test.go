package tableview

import (
	"fmt"

	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/shopspring/decimal"
)

func rec(id, name string, year int, value string, status models.Status) models.IndicatorDataRecord {
	r := models.IndicatorDataRecord{
		ID:            id,
		IndicatorID:   "ind-" + name,
		IndicatorName: name,
		Period:        models.AnnualPeriod(year),
		Status:        status,
	}
	if value != "" {
		r.Value = decimal.NewNullDecimal(decimal.RequireFromString(value))
	}
	return r
}

func monthly(id, name string, year, month int, value string) models.IndicatorDataRecord {
	r := rec(id, name, year, value, models.StatusDraft)
	r.Period = models.MonthlyPeriod(year, month)
	r.Subcategory = models.InflationSubcategory
	return r
}

func ids(records []models.IndicatorDataRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func manyRecords(n int) []models.IndicatorDataRecord {
	out := make([]models.IndicatorDataRecord, n)
	for i := range out {
		out[i] = rec(fmt.Sprintf("r%02d", i+1), fmt.Sprintf("Indikator %02d", i+1), 2000+i%5, fmt.Sprint(i), models.StatusDraft)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
