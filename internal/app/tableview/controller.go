// internal/app/tableview/controller.go
package tableview

import (
	"errors"
	"fmt"
)

// DefaultLimit is used when a controller is created without a page size.
const DefaultLimit = 10

var (
	// ErrInvalidLimit is returned by SetLimit for a non-positive page size.
	ErrInvalidLimit = errors.New("page size must be positive")
	// ErrUnknownField is returned for a field that cannot be filtered or sorted.
	ErrUnknownField = errors.New("unknown field")
)

// Controller owns the ViewState of one table and the transitions on it.
// Search and filter changes return the table to page 1. Sorting keeps the
// current page. Changing the page or page size leaves filters alone.
//
// A failed transition leaves the state untouched.
type Controller struct {
	state        ViewState
	defaultLimit int
}

// NewController creates a controller in the initial state.
func NewController(defaultLimit int) *Controller {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Controller{
		state:        NewViewState(defaultLimit),
		defaultLimit: defaultLimit,
	}
}

// State returns a copy of the current view state.
func (c *Controller) State() ViewState {
	return c.state.Clone()
}

// SetSearch sets the search text and returns to page 1.
func (c *Controller) SetSearch(text string) {
	c.state.Search = text
	c.state.Page = 1
}

// SetFieldFilter sets an exact-match filter. An empty value or "all"
// clears the filter. Either way the table returns to page 1.
func (c *Controller) SetFieldFilter(f Field, value string) error {
	if !filterableFields[f] {
		return fmt.Errorf("%w: cannot filter on %q", ErrUnknownField, f)
	}
	if value == "" || value == FilterAll {
		delete(c.state.Filters, f)
	} else {
		c.state.Filters[f] = value
	}
	c.state.Page = 1
	return nil
}

// SetSort sorts by f. Sorting again by the current field flips the
// direction; a new field starts ascending. The page is not reset.
func (c *Controller) SetSort(f Field) error {
	if !sortableFields[f] {
		return fmt.Errorf("%w: cannot sort on %q", ErrUnknownField, f)
	}
	if c.state.Sort != nil && c.state.Sort.Field == f {
		dir := Asc
		if c.state.Sort.Direction == Asc {
			dir = Desc
		}
		c.state.Sort = &Sort{Field: f, Direction: dir}
	} else {
		c.state.Sort = &Sort{Field: f, Direction: Asc}
	}
	return nil
}

// SetPage moves to page n. Pages below 1 become 1; pages past the end are
// accepted and produce an empty view until the table resets them.
func (c *Controller) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	c.state.Page = n
}

// SetLimit changes the page size and returns to page 1.
func (c *Controller) SetLimit(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	c.state.Limit = n
	c.state.Page = 1
	return nil
}

// ResetAll clears search, filters and sort and returns to page 1.
// The page size is kept.
func (c *Controller) ResetAll() {
	limit := c.state.Limit
	if limit <= 0 {
		limit = c.defaultLimit
	}
	c.state = NewViewState(limit)
}
