// internal/app/store/storeutil/storeutil.go
package storeutil

import "math"

// DefaultPageSize applies when a query asks for no particular page size.
const DefaultPageSize = 10

// Window returns skip/limit for a 1-based page. Non-positive limits fall
// back to DefaultPageSize and pages below 1 are treated as page 1. A skip
// that would overflow saturates at math.MaxInt64.
func Window(page, limit int) (skip, lim int64) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	if int64(page-1) > math.MaxInt64/int64(limit) {
		return math.MaxInt64, int64(limit)
	}
	return int64(page-1) * int64(limit), int64(limit)
}

// EffectivePage mirrors Window's clamping so callers can report the page
// that was actually served.
func EffectivePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// EffectiveLimit mirrors Window's limit defaulting.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return limit
}
