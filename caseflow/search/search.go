// Package search compiles quick-search terms, advanced criteria, and
// role-based visibility scopes into gorm query predicates, and pages the
// results.
package search

import (
	"strings"
	"time"

	"patentflow/caseflow/schema"

	"gorm.io/gorm"
)

const (
	OpEquals     = "equals"
	OpDateEquals = "dateEquals"
	OpIn         = "in"
	OpStartsWith = "startsWith"
	OpContains   = "contains"
	OpBlank      = "blank"
)

// prefixSentinel bounds the range scan used for startsWith/contains: a value
// matches when it falls in [v, v+sentinel). This is a prefix-match
// approximation, not substring containment; contains is deliberately encoded
// the same way as startsWith.
const prefixSentinel = "￿"

// Criterion is one (field, operator, value) predicate from the advanced
// search form. All criteria are ANDed.
type Criterion struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// Request is the search specification submitted by the project list view.
type Request struct {
	Quick      string      `json:"quick"`
	QuickField string      `json:"quick_field"`
	Criteria   []Criterion `json:"criteria"`

	SortKey  string `json:"sort_key"`
	SortDesc bool   `json:"sort_desc"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type column struct {
	name   string
	isDate bool
}

// columns whitelists every searchable/sortable field. Field names from the
// client resolve through this map and are never interpolated into SQL
// directly; unknown fields are dropped.
var columns = map[string]column{
	"row_number":        {name: "row_number"},
	"client_name":       {name: "client_name"},
	"process":           {name: "process"},
	"country":           {name: "country"},
	"document_type":     {name: "document_type"},
	"renewal_agent":     {name: "renewal_agent"},
	"processor":         {name: "processor"},
	"qa_operator":       {name: "qa_operator"},
	"case_manager":      {name: "case_manager"},
	"subject_line":      {name: "subject_line"},
	"remarks":           {name: "remarks"},
	"error_description": {name: "error_description"},
	"rework_reason":     {name: "rework_reason"},
	"workflow_status":   {name: "workflow_status"},
	"processing_status": {name: "processing_status"},
	"qa_status":         {name: "qa_status"},

	"received_date":        {name: "received_date", isDate: true},
	"allocation_date":      {name: "allocation_date", isDate: true},
	"processing_date":      {name: "processing_date", isDate: true},
	"qa_date":              {name: "qa_date", isDate: true},
	"report_out_date":      {name: "report_out_date", isDate: true},
	"client_response_date": {name: "client_response_date", isDate: true},
}

// defaultQuickColumns is the field set a quick search term matches against
// when no column is chosen.
var defaultQuickColumns = []string{
	"row_number", "client_name", "subject_line", "country", "processor", "qa_operator", "case_manager",
}

// Column reports whether field names a searchable column, and its SQL name.
func Column(field string) (string, bool) {
	col, ok := columns[field]
	return col.name, ok
}

// Scope confines the query to the rows the user may see. Processors, QA
// operators, and case managers see only projects assigned to them; managers
// and admins see everything. Applied before any user-supplied criteria.
func Scope(query *gorm.DB, user *schema.User) *gorm.DB {
	switch user.HighestRole() {
	case schema.RoleAdmin, schema.RoleManager:
		return query
	case schema.RoleQA:
		return query.Where("qa_operator = ?", user.Username)
	case schema.RoleCaseManager:
		return query.Where("case_manager = ?", user.Username)
	default:
		return query.Where("processor = ?", user.Username)
	}
}

// ApplyCriteria ANDs the well-formed criteria onto the query. Criteria with a
// missing field or operator, or naming an unknown field, are dropped silently.
func ApplyCriteria(query *gorm.DB, criteria []Criterion) *gorm.DB {
	for _, c := range criteria {
		if c.Field == "" || c.Operator == "" {
			continue
		}
		col, ok := columns[c.Field]
		if !ok {
			continue
		}
		query = applyCriterion(query, col, c)
	}
	return query
}

func applyCriterion(query *gorm.DB, col column, c Criterion) *gorm.DB {
	switch c.Operator {
	case OpEquals, OpDateEquals:
		if col.isDate {
			return applyDayRange(query, col, c.Value)
		}
		return query.Where(col.name+" = ?", c.Value)

	case OpIn:
		values := splitList(c.Value)
		if len(values) == 0 {
			return query
		}
		return query.Where(col.name+" IN ?", values)

	case OpStartsWith, OpContains:
		return query.Where("("+col.name+" >= ? AND "+col.name+" < ?)", c.Value, c.Value+prefixSentinel)

	case OpBlank:
		return query.Where("(" + col.name + " IS NULL OR " + col.name + " = '')")

	default:
		// Unknown operators fall through like malformed criteria.
		return query
	}
}

// ApplyQuick binds a free-text term to one chosen column, or to the default
// column set when field is empty or "any". Text columns use the prefix-range
// encoding; date columns match the literal calendar day.
func ApplyQuick(query *gorm.DB, field, term string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" {
		return query
	}

	if field != "" && field != "any" {
		col, ok := columns[field]
		if !ok {
			return query
		}
		if col.isDate {
			return applyDayRange(query, col, term)
		}
		return query.Where("("+col.name+" >= ? AND "+col.name+" < ?)", term, term+prefixSentinel)
	}

	conds := make([]string, 0, len(defaultQuickColumns))
	args := make([]interface{}, 0, 2*len(defaultQuickColumns))
	for _, name := range defaultQuickColumns {
		conds = append(conds, "("+name+" >= ? AND "+name+" < ?)")
		args = append(args, term, term+prefixSentinel)
	}
	return query.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// applyDayRange converts a yyyy-mm-dd value into a [start-of-day, next-day)
// instant pair. Unparseable dates drop the criterion.
func applyDayRange(query *gorm.DB, col column, value string) *gorm.DB {
	day, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return query
	}
	start := day
	end := day.AddDate(0, 0, 1)
	return query.Where("("+col.name+" >= ? AND "+col.name+" < ?)", start, end)
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}
