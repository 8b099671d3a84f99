package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"patentflow/caseflow/auth"
	"patentflow/caseflow/schema"
	"patentflow/caseflow/search"
	"patentflow/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *ProjectService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Post("/list", s.List)
		r.Get("/export", s.Export)
		r.Get("/{project_id}", s.Info)
		r.Post("/{project_id}/action", s.Action)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.RequireRole(schema.RoleAdmin, schema.RoleManager))

		r.Post("/add-rows", s.AddRows)
		r.Post("/bulk-update", s.BulkUpdate)
	})

	return r
}

type EntryInfo struct {
	Id                uuid.UUID `json:"id"`
	ApplicationNumber string    `json:"application_number"`
	PatentNumber      string    `json:"patent_number"`
	Country           string    `json:"country"`
	Status            string    `json:"status"`
	Notes             string    `json:"notes"`
}

type ProjectInfo struct {
	Id        uuid.UUID `json:"id"`
	RowNumber string    `json:"row_number"`

	ClientName   string `json:"client_name"`
	Process      string `json:"process"`
	Country      string `json:"country"`
	DocumentType string `json:"document_type"`
	RenewalAgent string `json:"renewal_agent"`

	Processor   string `json:"processor"`
	QAOperator  string `json:"qa_operator"`
	CaseManager string `json:"case_manager"`

	SubjectLine      string `json:"subject_line"`
	Remarks          string `json:"remarks"`
	ErrorDescription string `json:"error_description"`
	ReworkReason     string `json:"rework_reason"`

	WorkflowStatus   string `json:"workflow_status"`
	ProcessingStatus string `json:"processing_status"`
	QAStatus         string `json:"qa_status"`

	ReceivedDate       *time.Time `json:"received_date"`
	AllocationDate     *time.Time `json:"allocation_date"`
	ProcessingDate     *time.Time `json:"processing_date"`
	QADate             *time.Time `json:"qa_date"`
	ReportOutDate      *time.Time `json:"report_out_date"`
	ClientResponseDate *time.Time `json:"client_response_date"`

	Entries []EntryInfo `json:"entries,omitempty"`
}

func convertToProjectInfo(p *schema.Project) ProjectInfo {
	entries := make([]EntryInfo, 0, len(p.Entries))
	for _, e := range p.Entries {
		entries = append(entries, EntryInfo{
			Id:                e.Id,
			ApplicationNumber: e.ApplicationNumber,
			PatentNumber:      e.PatentNumber,
			Country:           e.Country,
			Status:            e.Status,
			Notes:             e.Notes,
		})
	}

	return ProjectInfo{
		Id:                 p.Id,
		RowNumber:          p.RowNumber,
		ClientName:         p.ClientName,
		Process:            p.Process,
		Country:            p.Country,
		DocumentType:       p.DocumentType,
		RenewalAgent:       p.RenewalAgent,
		Processor:          p.Processor,
		QAOperator:         p.QAOperator,
		CaseManager:        p.CaseManager,
		SubjectLine:        p.SubjectLine,
		Remarks:            p.Remarks,
		ErrorDescription:   p.ErrorDescription,
		ReworkReason:       p.ReworkReason,
		WorkflowStatus:     p.WorkflowStatus,
		ProcessingStatus:   p.ProcessingStatus,
		QAStatus:           p.QAStatus,
		ReceivedDate:       p.ReceivedDate,
		AllocationDate:     p.AllocationDate,
		ProcessingDate:     p.ProcessingDate,
		QADate:             p.QADate,
		ReportOutDate:      p.ReportOutDate,
		ClientResponseDate: p.ClientResponseDate,
		Entries:            entries,
	}
}

type ProjectListResponse struct {
	Records    []ProjectInfo `json:"records"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}

func (s *ProjectService) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params search.Request
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	query := search.Scope(s.db.Model(&schema.Project{}), &user)
	query = search.ApplyQuick(query, params.QuickField, params.Quick)
	query = search.ApplyCriteria(query, params.Criteria)

	page, err := search.Paginate(query, params.Page, params.PageSize, params.SortKey, params.SortDesc)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing projects: %v", err), http.StatusInternalServerError)
		return
	}

	records := make([]ProjectInfo, 0, len(page.Records))
	for _, p := range page.Records {
		records = append(records, convertToProjectInfo(&p))
	}

	utils.WriteJsonResponse(w, ProjectListResponse{
		Records:    records,
		TotalCount: page.TotalCount,
		TotalPages: page.TotalPages,
	})
}

// canView mirrors the list visibility scope for single-record reads.
func canView(user *schema.User, p *schema.Project) bool {
	switch user.HighestRole() {
	case schema.RoleAdmin, schema.RoleManager:
		return true
	case schema.RoleQA:
		return p.QAOperator == user.Username
	case schema.RoleCaseManager:
		return p.CaseManager == user.Username
	default:
		return p.Processor == user.Username
	}
}

func (s *ProjectService) Info(w http.ResponseWriter, r *http.Request) {
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

	project, err := schema.GetProject(projectId, s.db, true)
	if err != nil {
		if errors.Is(err, schema.ErrProjectNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting project: %v", err), http.StatusInternalServerError)
		return
	}

	// Records outside the caller's visibility scope read as absent.
	if !canView(&user, &project) {
		http.Error(w, schema.ErrProjectNotFound.Error(), http.StatusNotFound)
		return
	}

	info := convertToProjectInfo(&project)
	utils.WriteJsonResponse(w, info)
}
