package medicine

import (
	"net/url"
	"strconv"
	"strings"
)

// Sort orders for catalog listings.
const (
	SortName      = "name"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListQuery captures the search/sort/pagination parameters every listing
// surface shares. The zero value lists the first page, sorted by name.
type ListQuery struct {
	// Search matches case-insensitively against name and category.
	Search string
	// Category filters to an exact category when non-empty.
	Category string
	// Sort is one of the Sort* constants.
	Sort string
	// Page is 1-based.
	Page     int
	PageSize int
}

// ParseListQuery reads a ListQuery from URL query parameters, clamping
// pagination to sane bounds and falling back to defaults on anything
// unparseable.
func ParseListQuery(values url.Values) ListQuery {
	q := ListQuery{
		Search:   strings.TrimSpace(values.Get("search")),
		Category: strings.TrimSpace(values.Get("category")),
		Sort:     values.Get("sort"),
		Page:     1,
		PageSize: defaultPageSize,
	}

	switch q.Sort {
	case SortName, SortPriceAsc, SortPriceDesc, SortNewest:
	default:
		q.Sort = SortName
	}

	if p, err := strconv.Atoi(values.Get("page")); err == nil && p > 0 {
		q.Page = p
	}
	if ps, err := strconv.Atoi(values.Get("limit")); err == nil && ps > 0 {
		q.PageSize = min(ps, maxPageSize)
	}
	return q
}

// Offset returns the row offset for the query's page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}
