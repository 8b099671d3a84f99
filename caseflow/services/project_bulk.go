package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"patentflow/caseflow/schema"
	"patentflow/caseflow/sequence"
	"patentflow/caseflow/workflow"
	"patentflow/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// copyableFields are the source-project fields add-rows may carry over into
// the new rows. Statuses, dates stamped by the workflow, and the row number
// itself never copy.
var copyableFields = []string{
	"client_name", "process", "country", "document_type", "renewal_agent",
	"processor", "qa_operator", "case_manager",
	"subject_line", "remarks", "received_date", "allocation_date",
}

type addRowsRequest struct {
	SourceProjectId uuid.UUID `json:"source_project_id"`
	CopyFields      []string  `json:"copy_fields"`
	Count           int       `json:"count"`
}

type addRowsResponse struct {
	ProjectIds []uuid.UUID `json:"project_ids"`
	RowNumbers []string    `json:"row_numbers"`
}

func copyField(dst, src *schema.Project, field string) {
	switch field {
	case "client_name":
		dst.ClientName = src.ClientName
	case "process":
		dst.Process = src.Process
	case "country":
		dst.Country = src.Country
	case "document_type":
		dst.DocumentType = src.DocumentType
	case "renewal_agent":
		dst.RenewalAgent = src.RenewalAgent
	case "processor":
		dst.Processor = src.Processor
	case "qa_operator":
		dst.QAOperator = src.QAOperator
	case "case_manager":
		dst.CaseManager = src.CaseManager
	case "subject_line":
		dst.SubjectLine = src.SubjectLine
	case "remarks":
		dst.Remarks = src.Remarks
	case "received_date":
		dst.ReceivedDate = src.ReceivedDate
	case "allocation_date":
		dst.AllocationDate = src.AllocationDate
	}
}

// AddRows creates count new projects seeded from a source project. Row
// numbers come from the sequencer inside the same transaction, so a failure
// anywhere leaves neither rows nor a counter gap visible to the caller.
func (s *ProjectService) AddRows(w http.ResponseWriter, r *http.Request) {
	var params addRowsRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.SourceProjectId == uuid.Nil {
		http.Error(w, "source_project_id must be specified", http.StatusUnprocessableEntity)
		return
	}
	if params.Count < 1 || params.Count > 100 {
		http.Error(w, "count must be between 1 and 100", http.StatusUnprocessableEntity)
		return
	}
	for _, field := range params.CopyFields {
		if !slices.Contains(copyableFields, field) {
			http.Error(w, fmt.Sprintf("field '%v' cannot be copied", field), http.StatusUnprocessableEntity)
			return
		}
	}

	var response addRowsResponse

	err := s.db.Transaction(func(txn *gorm.DB) error {
		source, err := schema.GetProject(params.SourceProjectId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrProjectNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		template := schema.Project{
			WorkflowStatus:   schema.WithProcessor,
			ProcessingStatus: schema.ProcessingPending,
			QAStatus:         schema.QAPending,
		}
		for _, field := range params.CopyFields {
			copyField(&template, &source, field)
		}

		if err := workflow.CheckAssignees(&template); err != nil {
			return CodedError(err, http.StatusUnprocessableEntity)
		}

		rowNumbers, err := sequence.Next(txn, time.Now().UTC(), params.Count)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}

		rows := make([]schema.Project, 0, params.Count)
		ids := make([]uuid.UUID, 0, params.Count)
		for _, rowNumber := range rowNumbers {
			row := template
			row.Id = uuid.New()
			row.RowNumber = rowNumber
			rows = append(rows, row)
			ids = append(ids, row.Id)
		}

		result := txn.Create(&rows)
		if result.Error != nil {
			slog.Error("sql error creating projects", "count", params.Count, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		response = addRowsResponse{ProjectIds: ids, RowNumbers: rowNumbers}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error adding rows: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("projects added", "source_project_id", params.SourceProjectId, "count", params.Count)

	utils.WriteJsonResponse(w, response)
}

// bulkUpdatableColumns maps the fields bulk-update accepts onto columns.
var bulkUpdatableColumns = map[string]string{
	"client_name":       "client_name",
	"process":           "process",
	"country":           "country",
	"document_type":     "document_type",
	"renewal_agent":     "renewal_agent",
	"processor":         "processor",
	"qa_operator":       "qa_operator",
	"case_manager":      "case_manager",
	"remarks":           "remarks",
	"processing_status": "processing_status",
	"qa_status":         "qa_status",
}

type bulkUpdateRequest struct {
	ProjectIds []uuid.UUID `json:"project_ids"`
	Field      string      `json:"field"`
	Value      string      `json:"value"`
}

// BulkUpdate sets one field to one value across a set of projects. The write
// is all or nothing: if any id is missing the whole batch is rejected.
func (s *ProjectService) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var params bulkUpdateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if len(params.ProjectIds) == 0 {
		http.Error(w, "project_ids must be specified", http.StatusUnprocessableEntity)
		return
	}

	column, ok := bulkUpdatableColumns[params.Field]
	if !ok {
		http.Error(w, fmt.Sprintf("field '%v' cannot be bulk updated", params.Field), http.StatusUnprocessableEntity)
		return
	}

	switch params.Field {
	case "processor", "qa_operator":
		// Projects past allocation must keep both assignees.
		if strings.TrimSpace(params.Value) == "" {
			http.Error(w, fmt.Sprintf("field '%v' cannot be cleared", params.Field), http.StatusUnprocessableEntity)
			return
		}
	case "processing_status":
		if err := schema.CheckValidProcessingStatus(params.Value); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	case "qa_status":
		if err := schema.CheckValidQAStatus(params.Value); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		var count int64
		result := txn.Model(&schema.Project{}).Where("id IN ?", params.ProjectIds).Count(&count)
		if result.Error != nil {
			slog.Error("sql error counting projects for bulk update", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if count != int64(len(params.ProjectIds)) {
			return CodedError(fmt.Errorf("%d of %d projects not found", int64(len(params.ProjectIds))-count, len(params.ProjectIds)), http.StatusNotFound)
		}

		result = txn.Model(&schema.Project{}).Where("id IN ?", params.ProjectIds).Update(column, params.Value)
		if result.Error != nil {
			slog.Error("sql error applying bulk update", "field", params.Field, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error applying bulk update: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("bulk update applied", "field", params.Field, "count", len(params.ProjectIds))

	utils.WriteSuccess(w)
}
