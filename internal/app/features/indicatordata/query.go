package indicatordata

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/system/normalize"
	"github.com/dalemusser/stratadata/internal/domain/models"
)

// MaxQueryLimit caps the page size of GET /records.
const MaxQueryLimit = 1000

// parseQuery reads the GET /records parameters. Missing parameters are
// unconstrained; malformed ones are reported per field.
func parseQuery(v url.Values) (datasource.Query, *datasource.ValidationError) {
	verr := &datasource.ValidationError{}
	q := datasource.Query{
		Search:             normalize.Search(v.Get("search")),
		IndicatorName:      normalize.Name(v.Get("indicator_name")),
		Subcategory:        normalize.Name(v.Get("subcategory")),
		ExcludeSubcategory: normalize.Name(v.Get("exclude_subcategory")),
	}

	q.Page = intParam(v, "page", 1, verr)
	if q.Page < 1 {
		verr.Add("page", "Page must be 1 or more.")
	}
	q.Limit = intParam(v, "limit", 10, verr)
	if q.Limit < 1 || q.Limit > MaxQueryLimit {
		verr.Add("limit", fmt.Sprintf("Limit must be between 1 and %d.", MaxQueryLimit))
	} else if q.Page > 1 && q.Page-1 > math.MaxInt64/q.Limit {
		// The store offset is (page-1)*limit and must fit in an int64.
		verr.Add("page", "Page is too large.")
	}
	if raw := v.Get("year"); raw != "" && raw != "all" {
		q.Year = intParam(v, "year", 0, verr)
		if q.Year < models.MinYear || q.Year > models.MaxYear {
			verr.Add("year", fmt.Sprintf("Year must be between %d and %d.", models.MinYear, models.MaxYear))
		}
	}
	if raw := normalize.Status(v.Get("status")); raw != "" && raw != "all" {
		q.Status = models.Status(raw)
		if !q.Status.Valid() {
			verr.Add("status", "Status must be draft, preliminary or final.")
		}
	}

	if verr.HasErrors() {
		return datasource.Query{}, verr
	}
	return q, nil
}

func intParam(v url.Values, key string, def int, verr *datasource.ValidationError) int {
	raw := normalize.QueryParam(v.Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		verr.Add(key, fmt.Sprintf("%s must be a whole number.", key))
		return def
	}
	return n
}
