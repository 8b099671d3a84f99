package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"patentflow/caseflow/auth"
	"patentflow/caseflow/schema"
	"patentflow/caseflow/workflow"
	"patentflow/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EntryUpdate struct {
	ApplicationNumber string `json:"application_number"`
	PatentNumber      string `json:"patent_number"`
	Country           string `json:"country"`
	Status            string `json:"status"`
	Notes             string `json:"notes"`
}

// projectActionRequest carries a workflow action plus the field edits that
// ride along with it. The processing, qa, and client-response dates are
// stamped by the workflow package from the server clock and are deliberately
// absent here. An empty action means a plain save.
type projectActionRequest struct {
	Action       string `json:"action"`
	ReworkReason string `json:"rework_reason"`

	ClientName   *string `json:"client_name"`
	Process      *string `json:"process"`
	Country      *string `json:"country"`
	DocumentType *string `json:"document_type"`
	RenewalAgent *string `json:"renewal_agent"`

	Processor   *string `json:"processor"`
	QAOperator  *string `json:"qa_operator"`
	CaseManager *string `json:"case_manager"`

	SubjectLine      *string `json:"subject_line"`
	Remarks          *string `json:"remarks"`
	ErrorDescription *string `json:"error_description"`

	ProcessingStatus *string `json:"processing_status"`
	QAStatus         *string `json:"qa_status"`

	ReceivedDate   *string `json:"received_date"`
	AllocationDate *string `json:"allocation_date"`
	ReportOutDate  *string `json:"report_out_date"`

	Entries *[]EntryUpdate `json:"entries"`
}

// roleEditableFields lists the fields each non-manager role may edit. The
// actor's roles come from the verified session; a client-declared role never
// widens this set. Managers and admins may edit everything.
var roleEditableFields = map[string]map[string]struct{}{
	schema.RoleProcessor: {
		"processing_status": {}, "error_description": {}, "remarks": {}, "subject_line": {}, "entries": {},
	},
	schema.RoleQA: {
		"qa_status": {}, "error_description": {}, "remarks": {},
	},
	schema.RoleCaseManager: {
		"remarks": {},
	},
}

func canEditField(user *schema.User, field string) bool {
	if user.HasRole(schema.RoleAdmin) || user.HasRole(schema.RoleManager) {
		return true
	}
	for _, role := range user.RoleNames() {
		if fields, ok := roleEditableFields[role]; ok {
			if _, ok := fields[field]; ok {
				return true
			}
		}
	}
	return false
}

func parseDateField(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return nil, CodedError(fmt.Errorf("invalid date '%v' for field %v", value, field), http.StatusUnprocessableEntity)
	}
	return &day, nil
}

// applyEdits copies the supplied fields onto the project, rejecting any field
// the actor's roles do not allow.
func applyEdits(project *schema.Project, params *projectActionRequest, user *schema.User) error {
	type edit struct {
		field string
		set   func() error
	}

	edits := []edit{
		{"client_name", func() error { project.ClientName = *params.ClientName; return nil }},
		{"process", func() error { project.Process = *params.Process; return nil }},
		{"country", func() error { project.Country = *params.Country; return nil }},
		{"document_type", func() error { project.DocumentType = *params.DocumentType; return nil }},
		{"renewal_agent", func() error { project.RenewalAgent = *params.RenewalAgent; return nil }},
		{"processor", func() error { project.Processor = *params.Processor; return nil }},
		{"qa_operator", func() error { project.QAOperator = *params.QAOperator; return nil }},
		{"case_manager", func() error { project.CaseManager = *params.CaseManager; return nil }},
		{"subject_line", func() error { project.SubjectLine = *params.SubjectLine; return nil }},
		{"remarks", func() error { project.Remarks = *params.Remarks; return nil }},
		{"error_description", func() error { project.ErrorDescription = *params.ErrorDescription; return nil }},
		{"processing_status", func() error {
			if err := schema.CheckValidProcessingStatus(*params.ProcessingStatus); err != nil {
				return CodedError(err, http.StatusUnprocessableEntity)
			}
			project.ProcessingStatus = *params.ProcessingStatus
			return nil
		}},
		{"qa_status", func() error {
			if err := schema.CheckValidQAStatus(*params.QAStatus); err != nil {
				return CodedError(err, http.StatusUnprocessableEntity)
			}
			project.QAStatus = *params.QAStatus
			return nil
		}},
		{"received_date", func() error {
			date, err := parseDateField("received_date", *params.ReceivedDate)
			if err != nil {
				return err
			}
			project.ReceivedDate = date
			return nil
		}},
		{"allocation_date", func() error {
			date, err := parseDateField("allocation_date", *params.AllocationDate)
			if err != nil {
				return err
			}
			project.AllocationDate = date
			return nil
		}},
		{"report_out_date", func() error {
			date, err := parseDateField("report_out_date", *params.ReportOutDate)
			if err != nil {
				return err
			}
			project.ReportOutDate = date
			return nil
		}},
	}

	supplied := map[string]bool{
		"client_name":       params.ClientName != nil,
		"process":           params.Process != nil,
		"country":           params.Country != nil,
		"document_type":     params.DocumentType != nil,
		"renewal_agent":     params.RenewalAgent != nil,
		"processor":         params.Processor != nil,
		"qa_operator":       params.QAOperator != nil,
		"case_manager":      params.CaseManager != nil,
		"subject_line":      params.SubjectLine != nil,
		"remarks":           params.Remarks != nil,
		"error_description": params.ErrorDescription != nil,
		"processing_status": params.ProcessingStatus != nil,
		"qa_status":         params.QAStatus != nil,
		"received_date":     params.ReceivedDate != nil,
		"allocation_date":   params.AllocationDate != nil,
		"report_out_date":   params.ReportOutDate != nil,
	}

	for _, e := range edits {
		if !supplied[e.field] {
			continue
		}
		if !canEditField(user, e.field) {
			return CodedError(fmt.Errorf("role does not permit editing field %v", e.field), http.StatusForbidden)
		}
		if err := e.set(); err != nil {
			return err
		}
	}

	if params.Entries != nil && !canEditField(user, "entries") {
		return CodedError(errors.New("role does not permit editing entries"), http.StatusForbidden)
	}

	return nil
}

func replaceEntries(txn *gorm.DB, projectId uuid.UUID, entries []EntryUpdate) error {
	result := txn.Where("project_id = ?", projectId).Delete(&schema.ProjectEntry{})
	if result.Error != nil {
		slog.Error("sql error deleting project entries", "project_id", projectId, "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	if len(entries) == 0 {
		return nil
	}

	records := make([]schema.ProjectEntry, 0, len(entries))
	for _, e := range entries {
		records = append(records, schema.ProjectEntry{
			Id:                uuid.New(),
			ProjectId:         projectId,
			ApplicationNumber: e.ApplicationNumber,
			PatentNumber:      e.PatentNumber,
			Country:           e.Country,
			Status:            e.Status,
			Notes:             e.Notes,
		})
	}

	result = txn.Create(&records)
	if result.Error != nil {
		slog.Error("sql error creating project entries", "project_id", projectId, "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return nil
}

func workflowErrorCode(err error) int {
	switch {
	case errors.Is(err, workflow.ErrRoleNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrWrongStage),
		errors.Is(err, workflow.ErrMissingReworkReason),
		errors.Is(err, workflow.ErrInconsistentStatus),
		errors.Is(err, workflow.ErrMissingAssignee),
		errors.Is(err, workflow.ErrUnknownAction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *ProjectService) Action(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	projectId, err := utils.URLParamUUID(r, "project_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params projectActionRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	// An empty action is a plain edit with no stage transition; the field
	// permission checks still apply. An explicit save is a manager action.
	action := workflow.Action(params.Action)

	var updated schema.Project

	err = s.db.Transaction(func(txn *gorm.DB) error {
		project, err := schema.GetProject(projectId, txn, true)
		if err != nil {
			if errors.Is(err, schema.ErrProjectNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if !canView(&user, &project) {
			return CodedError(schema.ErrProjectNotFound, http.StatusNotFound)
		}

		if err := applyEdits(&project, &params, &user); err != nil {
			return err
		}

		if action != "" {
			if err := workflow.Apply(&project, action, user.RoleNames(), params.ReworkReason, time.Now().UTC()); err != nil {
				return CodedError(err, workflowErrorCode(err))
			}
		}

		if err := workflow.CheckConsistent(project.WorkflowStatus, project.ProcessingStatus, project.QAStatus); err != nil {
			return CodedError(err, workflowErrorCode(err))
		}

		if err := workflow.CheckAssignees(&project); err != nil {
			return CodedError(err, workflowErrorCode(err))
		}

		result := txn.Omit("Entries").Save(&project)
		if result.Error != nil {
			slog.Error("sql error updating project", "project_id", projectId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if params.Entries != nil {
			if err := replaceEntries(txn, projectId, *params.Entries); err != nil {
				return err
			}
		}

		updated, err = schema.GetProject(projectId, txn, true)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating project %v: %v", projectId, err), GetResponseCode(err))
		return
	}

	slog.Info("project updated", "project_id", projectId, "action", action, "user_id", user.Id)

	info := convertToProjectInfo(&updated)
	utils.WriteJsonResponse(w, info)
}
