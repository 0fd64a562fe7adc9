package datascreen

import (
	"sort"
	"strings"

	"github.com/dalemusser/stratadata/internal/domain/models"
)

// FilterOptions are the values offered in the filter dropdowns, built from
// the full-category fetch.
type FilterOptions struct {
	IndicatorNames          []string        `json:"indicator_names"`
	Subcategories           []string        `json:"subcategories"`
	Years                   []int           `json:"years"`
	InflationIndicatorNames []string        `json:"inflation_indicator_names"`
	InflationYears          []int           `json:"inflation_years"`
	Statuses                []models.Status `json:"statuses"`
}

func buildOptions(annual, inflation []models.IndicatorDataRecord) FilterOptions {
	return FilterOptions{
		IndicatorNames:          distinctStrings(annual, func(r *models.IndicatorDataRecord) string { return r.IndicatorName }),
		Subcategories:           distinctStrings(annual, func(r *models.IndicatorDataRecord) string { return r.Subcategory }),
		Years:                   distinctYears(annual),
		InflationIndicatorNames: distinctStrings(inflation, func(r *models.IndicatorDataRecord) string { return r.IndicatorName }),
		InflationYears:          distinctYears(inflation),
		Statuses:                models.AllStatuses(),
	}
}

// distinctStrings returns the non-empty values of key, sorted
// case-insensitively.
func distinctStrings(records []models.IndicatorDataRecord, key func(*models.IndicatorDataRecord) string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for i := range records {
		v := key(&records[i])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i]), strings.ToLower(out[j])
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}

// distinctYears returns the years present, newest first.
func distinctYears(records []models.IndicatorDataRecord) []int {
	seen := map[int]struct{}{}
	out := []int{}
	for _, r := range records {
		if _, ok := seen[r.Period.Year]; ok {
			continue
		}
		seen[r.Period.Year] = struct{}{}
		out = append(out, r.Period.Year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func (o FilterOptions) clone() FilterOptions {
	return FilterOptions{
		IndicatorNames:          append([]string{}, o.IndicatorNames...),
		Subcategories:           append([]string{}, o.Subcategories...),
		Years:                   append([]int{}, o.Years...),
		InflationIndicatorNames: append([]string{}, o.InflationIndicatorNames...),
		InflationYears:          append([]int{}, o.InflationYears...),
		Statuses:                append([]models.Status{}, o.Statuses...),
	}
}
