package search

import (
	"log/slog"

	"patentflow/caseflow/schema"

	"gorm.io/gorm"
)

const DefaultPageSize = 20

// Page is one page of query results plus the totals the table view renders.
type Page struct {
	Records    []schema.Project
	TotalCount int64
	TotalPages int
}

// Paginate counts the rows matching the query's predicates, then fetches the
// requested page. The two statements share predicates but not a snapshot, so
// a concurrent writer can make the count and the page drift slightly.
func Paginate(query *gorm.DB, page, pageSize int, sortKey string, sortDesc bool) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	// Default sort is newest first, i.e. descending by row number.
	order := "row_number DESC"
	if col, ok := columns[sortKey]; ok {
		order = col.name
		if sortDesc {
			order += " DESC"
		}
	}

	var total int64
	result := query.Session(&gorm.Session{}).Model(&schema.Project{}).Count(&total)
	if result.Error != nil {
		slog.Error("sql error counting projects", "error", result.Error)
		return Page{}, schema.ErrDbAccessFailed
	}

	var records []schema.Project
	result = query.Session(&gorm.Session{}).
		Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records)
	if result.Error != nil {
		slog.Error("sql error fetching project page", "page", page, "error", result.Error)
		return Page{}, schema.ErrDbAccessFailed
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return Page{Records: records, TotalCount: total, TotalPages: totalPages}, nil
}
