// internal/app/tableview/state.go
package tableview

// FilterAll is the sentinel filter value meaning "no filter".
const FilterAll = "all"

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is an optional sort key. A nil *Sort keeps source order.
type Sort struct {
	Field     Field     `json:"field"`
	Direction Direction `json:"direction"`
}

// ViewState is the search, filter, sort and page configuration of one table.
type ViewState struct {
	Search  string           `json:"search"`
	Filters map[Field]string `json:"filters"`
	Sort    *Sort            `json:"sort,omitempty"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}

// NewViewState returns the state a table starts with: no search, no
// filters, source order, page 1.
func NewViewState(limit int) ViewState {
	return ViewState{
		Filters: map[Field]string{},
		Page:    1,
		Limit:   limit,
	}
}

// Clone returns a deep copy so callers cannot mutate shared maps.
func (v ViewState) Clone() ViewState {
	out := v
	out.Filters = make(map[Field]string, len(v.Filters))
	for k, val := range v.Filters {
		out.Filters[k] = val
	}
	if v.Sort != nil {
		s := *v.Sort
		out.Sort = &s
	}
	return out
}
