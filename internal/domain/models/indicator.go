// internal/domain/models/indicator.go
package models

import "time"

// Category groups indicators by the admin area that manages them.
type Category string

const (
	CategoryDemographic   Category = "demographic"
	CategoryEconomic      Category = "economic"
	CategoryEnvironmental Category = "environmental"
)

// AllCategories returns every category, in display order.
func AllCategories() []Category {
	return []Category{
		CategoryDemographic,
		CategoryEconomic,
		CategoryEnvironmental,
	}
}

// IsValidCategory checks if a category is valid.
func IsValidCategory(c string) bool {
	for _, v := range AllCategories() {
		if string(v) == c {
			return true
		}
	}
	return false
}

// InflationSubcategory marks indicators whose data is recorded monthly.
// Records of these indicators are kept in their own table on the
// management screen.
const InflationSubcategory = "Inflasi"

// Indicator is a named statistical metric, e.g. "Inflasi Bulanan".
//
// ID is an opaque token: a Mongo ObjectID hex or a Postgres UUID,
// depending on the configured backend.
type Indicator struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    Category  `json:"category"`
	Subcategory string    `json:"subcategory"`
	Unit        string    `json:"unit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsInflation reports whether the indicator is recorded monthly.
func (i Indicator) IsInflation() bool {
	return i.Subcategory == InflationSubcategory
}
