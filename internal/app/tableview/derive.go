// internal/app/tableview/derive.go
package tableview

import (
	"sort"
	"strings"

	"github.com/dalemusser/stratadata/internal/domain/models"
)

// Result is the visible page of a table plus its pagination metadata.
type Result struct {
	Page       []models.IndicatorDataRecord `json:"records"`
	Pagination models.Pagination            `json:"pagination"`
}

// Derive filters, sorts and paginates records according to state.
//
// It is a pure function: records is never modified and the same inputs
// always produce the same output. Steps run in a fixed order: search,
// field filters, stable sort, then pagination.
//
// A page beyond the last page yields an empty slice; Derive does not clamp.
// A non-positive limit also yields an empty slice.
func Derive(records []models.IndicatorDataRecord, state ViewState, searchFields []Field) Result {
	filtered := filterBySearch(records, state.Search, searchFields)
	filtered = filterByFields(filtered, state.Filters)
	if state.Sort != nil && sortableFields[state.Sort.Field] {
		sortRecords(filtered, *state.Sort)
	}
	return paginate(filtered, state.Page, state.Limit)
}

// filterBySearch keeps records whose searchable fields contain the
// case-folded search text. It always returns a fresh slice.
func filterBySearch(records []models.IndicatorDataRecord, search string, fields []Field) []models.IndicatorDataRecord {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]models.IndicatorDataRecord, 0, len(records))
	for i := range records {
		if needle == "" || matchesSearch(&records[i], needle, fields) {
			out = append(out, records[i])
		}
	}
	return out
}

func matchesSearch(r *models.IndicatorDataRecord, needle string, fields []Field) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(stringValue(r, f)), needle) {
			return true
		}
	}
	return false
}

// filterByFields applies every meaningful field filter. Filters are
// compiled in a fixed field order so the result never depends on map
// iteration.
func filterByFields(records []models.IndicatorDataRecord, filters map[Field]string) []models.IndicatorDataRecord {
	var matchers []fieldMatcher
	for _, f := range filterOrder {
		if m := compileFilter(f, filters[f]); m != nil {
			matchers = append(matchers, m)
		}
	}
	if len(matchers) == 0 {
		return records
	}
	out := records[:0:0]
	for i := range records {
		keep := true
		for _, m := range matchers {
			if !m(&records[i]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, records[i])
		}
	}
	return out
}

var filterOrder = []Field{FieldYear, FieldMonth, FieldIndicatorName, FieldSubcategory, FieldStatus}

// sortRecords stable-sorts records in place. Descending order reverses the
// comparison rather than the result, so tied records keep source order in
// both directions.
func sortRecords(records []models.IndicatorDataRecord, s Sort) {
	cmp := comparator(s.Field)
	desc := s.Direction == Desc
	sort.SliceStable(records, func(i, j int) bool {
		c := cmp(&records[i], &records[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func comparator(f Field) func(a, b *models.IndicatorDataRecord) int {
	if numericFields[f] {
		return func(a, b *models.IndicatorDataRecord) int {
			return numericValue(a, f).Cmp(numericValue(b, f))
		}
	}
	if f == FieldStatus {
		return func(a, b *models.IndicatorDataRecord) int {
			return a.Status.Rank() - b.Status.Rank()
		}
	}
	return func(a, b *models.IndicatorDataRecord) int {
		return strings.Compare(strings.ToLower(stringValue(a, f)), strings.ToLower(stringValue(b, f)))
	}
}

func paginate(records []models.IndicatorDataRecord, page, limit int) Result {
	total := len(records)
	res := Result{
		Page: []models.IndicatorDataRecord{},
		Pagination: models.Pagination{
			TotalItems:  total,
			TotalPages:  models.TotalPagesFor(total, limit),
			CurrentPage: page,
			PageSize:    limit,
		},
	}
	// Compare page numbers before multiplying so a huge page cannot
	// overflow the start index.
	if limit <= 0 || page < 1 || page > res.Pagination.TotalPages {
		return res
	}
	start := (page - 1) * limit
	end := total
	if total-start > limit {
		end = start + limit
	}
	res.Page = append(res.Page, records[start:end]...)
	return res
}
