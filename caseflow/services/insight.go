package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"patentflow/caseflow/auth"
	"patentflow/caseflow/insight"
	"patentflow/caseflow/schema"
	"patentflow/caseflow/search"
	"patentflow/utils"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// insightRecordLimit caps how many projects are serialized into the prompt.
const insightRecordLimit = 500

const insightTimeout = 30 * time.Second

const insightSystemPrompt = `You are an analyst for a patent and trademark case tracking system.
You will be given a set of case records and a question about them.
Answer with a single JSON object in one of two forms:
{"responseType": "text", "data": "<answer>"} for a textual answer, or
{"responseType": "chart", "data": [{"name": "<label>", "value": <number>}, ...]} when the answer is a breakdown or comparison.
Base the answer only on the records provided.`

// InsightService answers free-form questions about the caller's visible
// projects using an LLM. The dataset sent to the model is scoped exactly
// like the list endpoint, so a processor's question can only see their rows.
type InsightService struct {
	db *gorm.DB

	userAuth auth.IdentityProvider

	apiKey string
	model  string
}

func (s *InsightService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Post("/", s.Query)
	})

	return r
}

type insightRequest struct {
	Query string `json:"query"`
}

func summarizeProject(p *schema.Project) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v | client=%v | process=%v | country=%v | document_type=%v | renewal_agent=%v",
		p.RowNumber, p.ClientName, p.Process, p.Country, p.DocumentType, p.RenewalAgent)
	fmt.Fprintf(&sb, " | processor=%v | qa_operator=%v | case_manager=%v",
		p.Processor, p.QAOperator, p.CaseManager)
	fmt.Fprintf(&sb, " | workflow_status=%v | processing_status=%v | qa_status=%v",
		p.WorkflowStatus, p.ProcessingStatus, p.QAStatus)
	fmt.Fprintf(&sb, " | received=%v | allocated=%v | processed=%v | qa=%v | report_out=%v",
		formatDate(p.ReceivedDate), formatDate(p.AllocationDate), formatDate(p.ProcessingDate),
		formatDate(p.QADate), formatDate(p.ReportOutDate))
	return sb.String()
}

func (s *InsightService) Query(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params insightRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	query := strings.TrimSpace(params.Query)
	if query == "" {
		http.Error(w, "query must be specified", http.StatusUnprocessableEntity)
		return
	}

	var projects []schema.Project
	result := search.Scope(s.db.Model(&schema.Project{}), &user).
		Order("row_number DESC").Limit(insightRecordLimit).Find(&projects)
	if result.Error != nil {
		slog.Error("sql error loading projects for insight query", "user_id", user.Id, "error", result.Error)
		http.Error(w, "unable to load projects", http.StatusInternalServerError)
		return
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Records (%d):\n", len(projects))
	for i := range projects {
		prompt.WriteString(summarizeProject(&projects[i]))
		prompt.WriteByte('\n')
	}
	fmt.Fprintf(&prompt, "\nQuestion: %v", query)

	provider, err := insight.NewProvider(s.apiKey, s.model)
	if err != nil {
		slog.Error("error creating insight provider", "error", err)
		http.Error(w, "insight provider is unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), insightTimeout)
	defer cancel()

	output, err := provider.Complete(ctx, insightSystemPrompt, prompt.String())
	if err != nil {
		slog.Error("error completing insight query", "user_id", user.Id, "error", err)
		if errors.Is(err, insight.ErrEmptyResponse) {
			http.Error(w, err.Error(), http.StatusBadGateway)
		} else {
			http.Error(w, "error completing insight query", http.StatusBadGateway)
		}
		return
	}

	utils.WriteJsonResponse(w, insight.Parse(output))
}
