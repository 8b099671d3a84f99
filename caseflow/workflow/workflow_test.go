package workflow

import (
	"errors"
	"testing"
	"time"

	"patentflow/caseflow/schema"
)

var testNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func TestApplyTransitions(t *testing.T) {
	tests := []struct {
		name       string
		action     Action
		roles      []string
		reason     string
		start      string
		wantStatus string
		wantErr    error
	}{
		{
			name:   "processor submits for qa",
			action: SubmitForQA, roles: []string{schema.RoleProcessor},
			start: schema.WithProcessor, wantStatus: schema.WithQA,
		},
		{
			name:   "qa cannot submit for qa",
			action: SubmitForQA, roles: []string{schema.RoleQA},
			start: schema.WithProcessor, wantErr: ErrRoleNotAllowed,
		},
		{
			name:   "manager cannot submit for qa",
			action: SubmitForQA, roles: []string{schema.RoleManager},
			start: schema.WithProcessor, wantErr: ErrRoleNotAllowed,
		},
		{
			name:   "submit for qa requires processing stage",
			action: SubmitForQA, roles: []string{schema.RoleProcessor},
			start: schema.WithQA, wantErr: ErrWrongStage,
		},
		{
			name:   "qa completes review",
			action: SubmitQA, roles: []string{schema.RoleQA},
			start: schema.WithQA, wantStatus: schema.Completed,
		},
		{
			name:   "processor cannot complete review",
			action: SubmitQA, roles: []string{schema.RoleProcessor},
			start: schema.WithQA, wantErr: ErrRoleNotAllowed,
		},
		{
			name:   "submit qa requires qa stage",
			action: SubmitQA, roles: []string{schema.RoleQA},
			start: schema.Completed, wantErr: ErrWrongStage,
		},
		{
			name:   "qa sends rework",
			action: SendRework, roles: []string{schema.RoleQA}, reason: "wrong patent number",
			start: schema.WithQA, wantStatus: schema.WithProcessor,
		},
		{
			name:   "rework requires a reason",
			action: SendRework, roles: []string{schema.RoleQA}, reason: "   ",
			start: schema.WithQA, wantErr: ErrMissingReworkReason,
		},
		{
			name:   "rework requires qa stage",
			action: SendRework, roles: []string{schema.RoleQA}, reason: "x",
			start: schema.WithProcessor, wantErr: ErrWrongStage,
		},
		{
			name:   "case manager records client response",
			action: ClientSubmit, roles: []string{schema.RoleCaseManager},
			start: schema.Completed, wantStatus: schema.WithQA,
		},
		{
			name:   "processor cannot record client response",
			action: ClientSubmit, roles: []string{schema.RoleProcessor},
			start: schema.Completed, wantErr: ErrRoleNotAllowed,
		},
		{
			name:   "manager saves",
			action: Save, roles: []string{schema.RoleManager},
			start: schema.WithProcessor, wantStatus: schema.WithProcessor,
		},
		{
			name:   "admin saves",
			action: Save, roles: []string{schema.RoleAdmin},
			start: schema.WithQA, wantStatus: schema.WithQA,
		},
		{
			name:   "processor cannot save",
			action: Save, roles: []string{schema.RoleProcessor},
			start: schema.WithProcessor, wantErr: ErrRoleNotAllowed,
		},
		{
			name:   "unknown action",
			action: Action("archive"), roles: []string{schema.RoleAdmin},
			start: schema.WithProcessor, wantErr: ErrUnknownAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := schema.Project{RowNumber: "PF2600001", WorkflowStatus: tt.start}

			err := Apply(&p, tt.action, tt.roles, tt.reason, testNow)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if p.WorkflowStatus != tt.start {
					t.Fatalf("failed action must not mutate project: %v", p.WorkflowStatus)
				}
				return
			}

			if err != nil {
				t.Fatal(err)
			}
			if p.WorkflowStatus != tt.wantStatus {
				t.Fatalf("expected status %v, got %v", tt.wantStatus, p.WorkflowStatus)
			}
		})
	}
}

func TestApplyStampsDates(t *testing.T) {
	p := schema.Project{WorkflowStatus: schema.WithProcessor}

	if err := Apply(&p, SubmitForQA, []string{schema.RoleProcessor}, "", testNow); err != nil {
		t.Fatal(err)
	}
	if p.ProcessingDate == nil || !p.ProcessingDate.Equal(testNow) {
		t.Fatalf("processing date should be stamped with the given clock: %v", p.ProcessingDate)
	}

	if err := Apply(&p, SubmitQA, []string{schema.RoleQA}, "", testNow); err != nil {
		t.Fatal(err)
	}
	if p.QADate == nil || !p.QADate.Equal(testNow) {
		t.Fatalf("qa date should be stamped: %v", p.QADate)
	}

	if err := Apply(&p, ClientSubmit, []string{schema.RoleCaseManager}, "", testNow); err != nil {
		t.Fatal(err)
	}
	if p.ClientResponseDate == nil || p.QAStatus != schema.QAPending {
		t.Fatalf("client submit should stamp the response date and reopen qa: %v", p)
	}
}

func TestSendReworkSetsStatuses(t *testing.T) {
	p := schema.Project{
		WorkflowStatus:   schema.WithQA,
		ProcessingStatus: schema.ProcessingProcessed,
	}

	err := Apply(&p, SendRework, []string{schema.RoleQA}, "  missing filing date  ", testNow)
	if err != nil {
		t.Fatal(err)
	}

	if p.ProcessingStatus != schema.ProcessingRework {
		t.Fatalf("rework should reset processing status: %v", p.ProcessingStatus)
	}
	if p.ReworkReason != "missing filing date" {
		t.Fatalf("reason should be trimmed: '%v'", p.ReworkReason)
	}
}

func TestCheckConsistent(t *testing.T) {
	if err := CheckConsistent(schema.Completed, schema.ProcessingProcessed, schema.QAComplete); err != nil {
		t.Fatal(err)
	}
	if err := CheckConsistent(schema.WithProcessor, schema.ProcessingRework, schema.QAPending); err != nil {
		t.Fatal(err)
	}

	err := CheckConsistent(schema.WithQA, schema.ProcessingProcessed, schema.QAComplete)
	if !errors.Is(err, ErrInconsistentStatus) {
		t.Fatalf("qa complete requires a completed project: %v", err)
	}

	err = CheckConsistent(schema.WithQA, schema.ProcessingRework, schema.QAPending)
	if !errors.Is(err, ErrInconsistentStatus) {
		t.Fatalf("rework requires the project to be with its processor: %v", err)
	}
}

func TestCheckAssignees(t *testing.T) {
	unassigned := schema.Project{WorkflowStatus: schema.PendingAllocation}
	if err := CheckAssignees(&unassigned); err != nil {
		t.Fatalf("unallocated projects need no assignees: %v", err)
	}

	inflight := schema.Project{WorkflowStatus: schema.WithProcessor, Processor: "alice"}
	err := CheckAssignees(&inflight)
	if !errors.Is(err, ErrMissingAssignee) {
		t.Fatalf("qa operator is required once allocated: %v", err)
	}

	inflight.QAOperator = "bob"
	if err := CheckAssignees(&inflight); err != nil {
		t.Fatal(err)
	}
}
