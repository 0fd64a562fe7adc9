// Package datasource defines the boundary between the management screen
// and whatever stores indicator data: the record source that answers
// queries, and the mutator that applies create/update/delete/verify.
//
// Both Mongo and Postgres backends implement these interfaces.
package datasource

import (
	"context"

	"github.com/dalemusser/stratadata/internal/domain/models"
)

// Query selects indicator data for one category.
//
// Zero values mean "no constraint". Page and Limit are 1-based page
// number and page size; a Limit of 0 lets the source choose.
type Query struct {
	Category           models.Category
	ExcludeSubcategory string
	Subcategory        string
	Page               int
	Limit              int
	Search             string
	Year               int
	Status             models.Status
	IndicatorName      string
}

// Statistics summarize every record matching the category, ignoring
// pagination.
type Statistics struct {
	Total       int `json:"total"`
	Draft       int `json:"draft"`
	Preliminary int `json:"preliminary"`
	Final       int `json:"final"`
	Indicators  int `json:"indicators"`
}

// Result is one page of a query.
type Result struct {
	Data           []models.IndicatorDataRecord `json:"data"`
	Pagination     models.Pagination            `json:"pagination"`
	Statistics     Statistics                   `json:"statistics"`
	AvailableYears []int                        `json:"available_years"`
}

// Source answers indicator data queries.
type Source interface {
	Fetch(ctx context.Context, q Query) (Result, error)
}

// Mutator changes stored indicator data on behalf of an actor.
//
// Errors are classified with KindOf: Create may fail with a
// *ValidationError or *DuplicateError; Update with ErrNotFound or a
// *ValidationError; Delete with ErrNotFound; Verify with ErrNotFound or
// ErrInvalidState. Anything else is an unknown failure.
type Mutator interface {
	Create(ctx context.Context, actor Actor, in NewRecord) (models.IndicatorDataRecord, error)
	Update(ctx context.Context, actor Actor, id string, p Patch) (models.IndicatorDataRecord, error)
	Delete(ctx context.Context, actor Actor, id string) error
	Verify(ctx context.Context, actor Actor, id string) (models.IndicatorDataRecord, error)
}

// Indicators lists the indicators records may belong to.
type Indicators interface {
	ListIndicators(ctx context.Context, category models.Category) ([]models.Indicator, error)
}

// Backend is a complete indicator data store.
type Backend interface {
	Source
	Mutator
	Indicators
}
