// Package workflow governs how a project moves between processing stages.
// It is pure validation and mutation over the in-memory record; persistence
// and HTTP concerns stay in the services layer.
package workflow

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"patentflow/caseflow/schema"
)

type Action string

const (
	// SubmitForQA hands a project from its processor to QA.
	SubmitForQA Action = "submit_for_qa"
	// SubmitQA completes QA review and closes the project.
	SubmitQA Action = "submit_qa"
	// SendRework returns a project from QA to its processor.
	SendRework Action = "send_rework"
	// ClientSubmit records a client response and re-queues the project for QA.
	ClientSubmit Action = "client_submit"
	// Save applies field edits without a stage transition.
	Save Action = "save"
)

var (
	ErrUnknownAction       = errors.New("unknown workflow action")
	ErrRoleNotAllowed      = errors.New("role is not permitted to perform this action")
	ErrWrongStage          = errors.New("project is not in the required workflow stage")
	ErrMissingReworkReason = errors.New("a rework reason is required to send a project back")
	ErrInconsistentStatus  = errors.New("workflow status and fine-grained statuses are inconsistent")
	ErrMissingAssignee     = errors.New("project must have a processor and qa operator assigned")
)

func hasAnyRole(roles []string, want ...string) bool {
	for _, r := range want {
		if slices.Contains(roles, r) {
			return true
		}
	}
	return false
}

func requireStage(p *schema.Project, stage string, action Action) error {
	if p.WorkflowStatus != stage {
		return fmt.Errorf("%w: %v requires status '%v', project %v has '%v'", ErrWrongStage, action, stage, p.RowNumber, p.WorkflowStatus)
	}
	return nil
}

func requireRole(roles []string, action Action, want ...string) error {
	if !hasAnyRole(roles, want...) {
		return fmt.Errorf("%w: %v requires one of (%v)", ErrRoleNotAllowed, action, strings.Join(want, ", "))
	}
	return nil
}

// Apply validates the (actor role, current stage) precondition for action and
// mutates p accordingly. Stamped dates always use now, which must come from
// the server clock, never from client-supplied values.
func Apply(p *schema.Project, action Action, actorRoles []string, reworkReason string, now time.Time) error {
	switch action {
	case SubmitForQA:
		if err := requireRole(actorRoles, action, schema.RoleProcessor); err != nil {
			return err
		}
		if err := requireStage(p, schema.WithProcessor, action); err != nil {
			return err
		}
		p.WorkflowStatus = schema.WithQA
		t := now
		p.ProcessingDate = &t

	case SubmitQA:
		if err := requireRole(actorRoles, action, schema.RoleQA); err != nil {
			return err
		}
		if err := requireStage(p, schema.WithQA, action); err != nil {
			return err
		}
		p.WorkflowStatus = schema.Completed
		t := now
		p.QADate = &t

	case SendRework:
		if err := requireRole(actorRoles, action, schema.RoleQA); err != nil {
			return err
		}
		if err := requireStage(p, schema.WithQA, action); err != nil {
			return err
		}
		reason := strings.TrimSpace(reworkReason)
		if reason == "" {
			return ErrMissingReworkReason
		}
		p.WorkflowStatus = schema.WithProcessor
		p.ProcessingStatus = schema.ProcessingRework
		p.ReworkReason = reason

	case ClientSubmit:
		if err := requireRole(actorRoles, action, schema.RoleCaseManager); err != nil {
			return err
		}
		p.WorkflowStatus = schema.WithQA
		p.QAStatus = schema.QAPending
		t := now
		p.ClientResponseDate = &t

	case Save:
		if err := requireRole(actorRoles, action, schema.RoleManager, schema.RoleAdmin); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: '%v'", ErrUnknownAction, action)
	}

	return nil
}

// CheckConsistent rejects status combinations that cannot be reached through
// the transition table: a QA verdict of Complete exists only on completed
// projects, and Re-Work only while the project is back with its processor.
func CheckConsistent(workflowStatus, processingStatus, qaStatus string) error {
	if qaStatus == schema.QAComplete && workflowStatus != schema.Completed {
		return fmt.Errorf("%w: qa status '%v' with workflow status '%v'", ErrInconsistentStatus, qaStatus, workflowStatus)
	}
	if processingStatus == schema.ProcessingRework && workflowStatus != schema.WithProcessor {
		return fmt.Errorf("%w: processing status '%v' with workflow status '%v'", ErrInconsistentStatus, processingStatus, workflowStatus)
	}
	return nil
}

// CheckAssignees enforces that a project carries a processor and a qa operator
// once it has left allocation.
func CheckAssignees(p *schema.Project) error {
	if p.WorkflowStatus == schema.PendingAllocation {
		return nil
	}
	if p.Processor == "" || p.QAOperator == "" {
		return fmt.Errorf("%w: project %v has status '%v'", ErrMissingAssignee, p.RowNumber, p.WorkflowStatus)
	}
	return nil
}
