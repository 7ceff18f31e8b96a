package shared

import "strings"

// Filter represents query filter options
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// MaxPageSize caps page sizes requested by callers
const MaxPageSize = 100

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
}

// Normalize clamps page and page size into their valid ranges
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// ApplyOrdering sets OrderBy and OrderDir from an ordering parameter such as
// "name" or "-created_at". Empty input keeps the current ordering.
func (f *Filter) ApplyOrdering(ordering string) {
	ordering = strings.TrimSpace(ordering)
	if ordering == "" {
		return
	}
	if strings.HasPrefix(ordering, "-") {
		f.OrderBy = ordering[1:]
		f.OrderDir = "desc"
		return
	}
	f.OrderBy = ordering
	f.OrderDir = "asc"
}

// Offset returns the row offset for the current page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	return Paginated[T]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}

// HasNext reports whether a page follows this one
func (p Paginated[T]) HasNext() bool {
	return int64(p.Page*p.PageSize) < p.Total
}

// HasPrevious reports whether a page precedes this one
func (p Paginated[T]) HasPrevious() bool {
	return p.Page > 1
}
