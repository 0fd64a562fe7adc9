// internal/app/tableview/fields.go
package tableview

import (
	"strconv"
	"strings"

	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/shopspring/decimal"
)

// Field names a column of the indicator data table.
type Field string

const (
	FieldYear          Field = "year"
	FieldMonth         Field = "month"
	FieldQuarter       Field = "quarter"
	FieldValue         Field = "value"
	FieldIndicatorName Field = "indicator_name"
	FieldSubcategory   Field = "subcategory"
	FieldUnit          Field = "unit"
	FieldNotes         Field = "notes"
	FieldStatus        Field = "status"
)

// numericFields compare numerically; a missing value counts as zero.
var numericFields = map[Field]bool{
	FieldYear:    true,
	FieldMonth:   true,
	FieldQuarter: true,
	FieldValue:   true,
}

// filterableFields accept exact-match filters.
var filterableFields = map[Field]bool{
	FieldYear:          true,
	FieldMonth:         true,
	FieldIndicatorName: true,
	FieldSubcategory:   true,
	FieldStatus:        true,
}

// sortableFields may be used as a sort key.
var sortableFields = map[Field]bool{
	FieldYear:          true,
	FieldMonth:         true,
	FieldQuarter:       true,
	FieldValue:         true,
	FieldIndicatorName: true,
	FieldSubcategory:   true,
	FieldUnit:          true,
	FieldNotes:         true,
	FieldStatus:        true,
}

// IsFilterable reports whether f accepts a field filter.
func IsFilterable(f Field) bool { return filterableFields[f] }

// IsSortable reports whether f can be sorted on.
func IsSortable(f Field) bool { return sortableFields[f] }

// numericValue returns the numeric value of f for r.
func numericValue(r *models.IndicatorDataRecord, f Field) decimal.Decimal {
	switch f {
	case FieldYear:
		return decimal.NewFromInt(int64(r.Period.Year))
	case FieldMonth:
		return decimal.NewFromInt(int64(r.Period.Month))
	case FieldQuarter:
		return decimal.NewFromInt(int64(r.Period.Quarter()))
	case FieldValue:
		if r.Value.Valid {
			return r.Value.Decimal
		}
	}
	return decimal.Zero
}

// stringValue returns the text of f for r.
func stringValue(r *models.IndicatorDataRecord, f Field) string {
	switch f {
	case FieldIndicatorName:
		return r.IndicatorName
	case FieldSubcategory:
		return r.Subcategory
	case FieldUnit:
		return r.Unit
	case FieldNotes:
		return r.Notes
	case FieldStatus:
		return string(r.Status)
	}
	return ""
}

// fieldMatcher is a compiled exact-match filter.
type fieldMatcher func(r *models.IndicatorDataRecord) bool

// compileFilter turns a filter value into a matcher. It returns nil when
// the value is empty, "all", or not meaningful for the field, which means
// the filter is not applied.
func compileFilter(f Field, value string) fieldMatcher {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, FilterAll) || !filterableFields[f] {
		return nil
	}
	switch f {
	case FieldYear:
		year, err := strconv.Atoi(value)
		if err != nil {
			return nil
		}
		return func(r *models.IndicatorDataRecord) bool { return r.Period.Year == year }
	case FieldMonth:
		month, err := strconv.Atoi(value)
		if err != nil || month < 1 || month > 12 {
			return nil
		}
		return func(r *models.IndicatorDataRecord) bool { return r.Period.Month == month }
	case FieldStatus:
		if !models.Status(value).Valid() {
			return nil
		}
		return func(r *models.IndicatorDataRecord) bool { return string(r.Status) == value }
	default:
		return func(r *models.IndicatorDataRecord) bool { return stringValue(r, f) == value }
	}
}
