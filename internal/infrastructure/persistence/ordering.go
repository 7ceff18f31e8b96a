package persistence

import (
	"strings"

	"gorm.io/gorm"
)

// sortable whitelists the fields a listing can be ordered by. Each field maps
// to the SQL expression used in ORDER BY, so request input never reaches the
// query text.
type sortable struct {
	columns  map[string]string
	fallback string
}

func columns(names ...string) map[string]string {
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[n] = n
	}
	return m
}

var clientSorting = sortable{
	columns:  columns("id", "created_at", "updated_at", "name", "email", "company_name", "city"),
	fallback: "created_at",
}

var taskSorting = sortable{
	columns: func() map[string]string {
		m := columns("id", "created_at", "updated_at", "title", "status", "due_date")
		m["priority"] = "CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END"
		return m
	}(),
	fallback: "created_at",
}

var collectionSorting = sortable{
	columns:  columns("id", "created_at", "updated_at", "contact_date", "next_contact_date", "status"),
	fallback: "contact_date",
}

// apply orders query by field, falling back to the default field for unknown
// input. Direction is DESC unless dir is "asc". id breaks ties so paging is
// stable.
func (s sortable) apply(query *gorm.DB, field, dir string) *gorm.DB {
	expr, ok := s.columns[strings.TrimSpace(field)]
	if !ok {
		expr = s.columns[s.fallback]
	}
	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		direction = "ASC"
	}
	query = query.Order(expr + " " + direction)
	if expr != "id" {
		query = query.Order("id " + direction)
	}
	return query
}

// applyPage limits query to the requested page
func applyPage(query *gorm.DB, page, pageSize int) *gorm.DB {
	if page > 0 && pageSize > 0 {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}
	return query
}
