package services

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"patentflow/caseflow/auth"
	"patentflow/caseflow/schema"
	"patentflow/caseflow/search"
)

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

type exportColumn struct {
	name  string
	value func(p *schema.Project) string
}

var exportColumns = []exportColumn{
	{"row_number", func(p *schema.Project) string { return p.RowNumber }},
	{"client_name", func(p *schema.Project) string { return p.ClientName }},
	{"process", func(p *schema.Project) string { return p.Process }},
	{"country", func(p *schema.Project) string { return p.Country }},
	{"document_type", func(p *schema.Project) string { return p.DocumentType }},
	{"renewal_agent", func(p *schema.Project) string { return p.RenewalAgent }},
	{"processor", func(p *schema.Project) string { return p.Processor }},
	{"qa_operator", func(p *schema.Project) string { return p.QAOperator }},
	{"case_manager", func(p *schema.Project) string { return p.CaseManager }},
	{"subject_line", func(p *schema.Project) string { return p.SubjectLine }},
	{"remarks", func(p *schema.Project) string { return p.Remarks }},
	{"error_description", func(p *schema.Project) string { return p.ErrorDescription }},
	{"rework_reason", func(p *schema.Project) string { return p.ReworkReason }},
	{"workflow_status", func(p *schema.Project) string { return p.WorkflowStatus }},
	{"processing_status", func(p *schema.Project) string { return p.ProcessingStatus }},
	{"qa_status", func(p *schema.Project) string { return p.QAStatus }},
	{"received_date", func(p *schema.Project) string { return formatDate(p.ReceivedDate) }},
	{"allocation_date", func(p *schema.Project) string { return formatDate(p.AllocationDate) }},
	{"processing_date", func(p *schema.Project) string { return formatDate(p.ProcessingDate) }},
	{"qa_date", func(p *schema.Project) string { return formatDate(p.QADate) }},
	{"report_out_date", func(p *schema.Project) string { return formatDate(p.ReportOutDate) }},
	{"client_response_date", func(p *schema.Project) string { return formatDate(p.ClientResponseDate) }},
}

// Export streams the caller's visible projects as CSV. An optional
// comma-separated ?columns= parameter restricts the output to a subset;
// unknown column names are rejected.
func (s *ProjectService) Export(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	columns := exportColumns
	if param := r.URL.Query().Get("columns"); param != "" {
		requested := strings.Split(param, ",")
		columns = nil
		for _, name := range requested {
			name = strings.TrimSpace(name)
			idx := slices.IndexFunc(exportColumns, func(c exportColumn) bool { return c.name == name })
			if idx < 0 {
				http.Error(w, fmt.Sprintf("unknown export column '%v'", name), http.StatusUnprocessableEntity)
				return
			}
			columns = append(columns, exportColumns[idx])
		}
	}

	var projects []schema.Project
	query := search.Scope(s.db.Model(&schema.Project{}), &user)
	result := query.Order("row_number DESC").Find(&projects)
	if result.Error != nil {
		slog.Error("sql error listing projects for export", "user_id", user.Id, "error", result.Error)
		http.Error(w, "unable to export projects", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("projects_export_%v.csv", time.Now().Format(time.DateOnly))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	writer := csv.NewWriter(w)

	header := make([]string, 0, len(columns))
	for _, c := range columns {
		header = append(header, c.name)
	}
	if err := writer.Write(header); err != nil {
		slog.Error("error writing export header", "error", err)
		return
	}

	row := make([]string, len(columns))
	for i := range projects {
		for j, c := range columns {
			row[j] = c.value(&projects[i])
		}
		if err := writer.Write(row); err != nil {
			slog.Error("error writing export row", "error", err)
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Error("error flushing export", "error", err)
	}
}
