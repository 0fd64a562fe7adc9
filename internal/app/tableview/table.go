// internal/app/tableview/table.go
package tableview

import "github.com/dalemusser/stratadata/internal/domain/models"

// Kind identifies one of the two tables on a category screen.
type Kind string

const (
	KindAnnual    Kind = "annual"
	KindInflation Kind = "inflation"
)

// ParseKind converts a path segment into a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindAnnual, KindInflation:
		return Kind(s), true
	}
	return "", false
}

// SearchFields returns the fields searched for a table kind. Annual
// tables also search the subcategory; the inflation table has only one.
func SearchFields(k Kind) []Field {
	if k == KindInflation {
		return []Field{FieldIndicatorName, FieldNotes}
	}
	return []Field{FieldIndicatorName, FieldNotes, FieldSubcategory}
}

// Table combines a record set with its controller and selection.
// Every read re-derives the visible page from the current records and
// state; nothing derived is cached.
//
// Table is not safe for concurrent use; the owning screen serializes
// access.
type Table struct {
	kind    Kind
	records []models.IndicatorDataRecord
	ctrl    *Controller
	sel     *Selection
}

// NewTable creates an empty table of the given kind.
func NewTable(kind Kind, defaultLimit int) *Table {
	return &Table{
		kind: kind,
		ctrl: NewController(defaultLimit),
		sel:  NewSelection(),
	}
}

// Kind returns the table kind.
func (t *Table) Kind() Kind { return t.kind }

// Controller returns the table's view-state controller.
func (t *Table) Controller() *Controller { return t.ctrl }

// Selection returns the table's selection tracker.
func (t *Table) Selection() *Selection { return t.sel }

// SetRecords replaces the record set. Selected ids whose records are gone
// are pruned; ids that are merely off-page stay selected. It returns the
// number of pruned ids.
func (t *Table) SetRecords(records []models.IndicatorDataRecord) int {
	t.records = append([]models.IndicatorDataRecord(nil), records...)
	existing := make(map[string]struct{}, len(records))
	for _, r := range records {
		existing[r.ID] = struct{}{}
	}
	return t.sel.Prune(existing)
}

// Len returns the number of records in the table, before filtering.
func (t *Table) Len() int { return len(t.records) }

// Contains reports whether a record with id is in the table.
func (t *Table) Contains(id string) bool {
	for i := range t.records {
		if t.records[i].ID == id {
			return true
		}
	}
	return false
}

// Derive returns the visible page. If the current page lies past the last
// page (for example after a filter shrank the set) the controller is
// moved back to page 1 and the page derived again.
func (t *Table) Derive() Result {
	res := Derive(t.records, t.ctrl.State(), SearchFields(t.kind))
	p := res.Pagination
	if p.CurrentPage > 1 && p.CurrentPage > p.TotalPages {
		t.ctrl.SetPage(1)
		res = Derive(t.records, t.ctrl.State(), SearchFields(t.kind))
	}
	return res
}

// VisibleIDs returns the ids on the current page.
func (t *Table) VisibleIDs() []string {
	return pageIDs(t.Derive().Page)
}

// SelectAllVisible selects every record on the current page.
func (t *Table) SelectAllVisible() {
	t.sel.SelectAllVisible(t.VisibleIDs())
}

// ClearVisible deselects every record on the current page.
func (t *Table) ClearVisible() {
	t.sel.ClearVisible(t.VisibleIDs())
}

// SelectionView is the selection as seen from the current page.
type SelectionView struct {
	IDs                []string `json:"ids"`
	Count              int      `json:"count"`
	AllVisibleSelected bool     `json:"all_visible_selected"`
}

// View is everything a client needs to render one table.
type View struct {
	Kind       Kind                         `json:"kind"`
	Records    []models.IndicatorDataRecord `json:"records"`
	Pagination models.Pagination            `json:"pagination"`
	State      ViewState                    `json:"state"`
	Selection  SelectionView                `json:"selection"`
}

// View derives the current page and reconciles the select-all flag
// against it.
func (t *Table) View() View {
	res := t.Derive()
	return View{
		Kind:       t.kind,
		Records:    res.Page,
		Pagination: res.Pagination,
		State:      t.ctrl.State(),
		Selection: SelectionView{
			IDs:                t.sel.IDs(),
			Count:              t.sel.Len(),
			AllVisibleSelected: t.sel.IsAllVisibleSelected(pageIDs(res.Page)),
		},
	}
}

func pageIDs(records []models.IndicatorDataRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
