// internal/app/tableview/selection.go
package tableview

// Selection is the set of selected record ids of one table.
//
// Ids stay selected when they scroll off the visible page; only Clear,
// ClearVisible, Toggle and Prune ever remove them. The tracker does not
// check permissions, callers decide which ids may be selected.
type Selection struct {
	ids   map[string]struct{}
	order []string
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: map[string]struct{}{}}
}

// Toggle adds id if absent and removes it if present. It reports whether
// id is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if _, ok := s.ids[id]; ok {
		s.remove(id)
		return false
	}
	s.add(id)
	return true
}

// SelectAllVisible adds every visible id. Ids selected on other pages are
// kept. If the visible ids are all selected already this is a no-op.
func (s *Selection) SelectAllVisible(visible []string) {
	for _, id := range visible {
		s.add(id)
	}
}

// ClearVisible removes exactly the visible ids.
func (s *Selection) ClearVisible(visible []string) {
	for _, id := range visible {
		s.remove(id)
	}
}

// IsAllVisibleSelected is true iff visible is non-empty and every visible
// id is selected.
func (s *Selection) IsAllVisibleSelected(visible []string) bool {
	if len(visible) == 0 {
		return false
	}
	for _, id := range visible {
		if _, ok := s.ids[id]; !ok {
			return false
		}
	}
	return true
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = map[string]struct{}{}
	s.order = nil
}

// Remove drops the given ids.
func (s *Selection) Remove(ids ...string) {
	for _, id := range ids {
		s.remove(id)
	}
}

// Prune drops ids that are not in existing and returns how many were
// dropped. Used after a refetch so deleted records do not linger.
func (s *Selection) Prune(existing map[string]struct{}) int {
	dropped := 0
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := existing[id]; ok {
			kept = append(kept, id)
			continue
		}
		delete(s.ids, id)
		dropped++
	}
	s.order = kept
	return dropped
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in the order they were selected.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Selection) add(id string) {
	if _, ok := s.ids[id]; ok {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Selection) remove(id string) {
	if _, ok := s.ids[id]; !ok {
		return
	}
	delete(s.ids, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
