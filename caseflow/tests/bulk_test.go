package tests

import (
	"net/http"
	"testing"

	"patentflow/caseflow/schema"
	"patentflow/caseflow/search"

	"github.com/google/uuid"
)

func TestBulkUpdate(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.newUser("mgr", schema.RoleManager)
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for i := 0; i < 5; i++ {
		p := env.createProject(t, schema.Project{Processor: "alice", QAOperator: "bob"})
		ids = append(ids, p.Id.String())
	}

	err = manager.bulkUpdate(ids, "processor", "carol")
	if err != nil {
		t.Fatal(err)
	}

	list, err := manager.listProjects(search.Request{
		Criteria: []search.Criterion{{Field: "processor", Operator: search.OpEquals, Value: "carol"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if list.TotalCount != 5 {
		t.Fatalf("all 5 projects should be reassigned, got %d", list.TotalCount)
	}
}

func TestBulkUpdateIsAllOrNothing(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.newUser("mgr", schema.RoleManager)
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		p := env.createProject(t, schema.Project{Processor: "alice", QAOperator: "bob"})
		ids = append(ids, p.Id.String())
	}
	ids = append(ids, uuid.NewString())

	err = manager.bulkUpdate(ids, "processor", "carol")
	if !statusErrorIs(err, http.StatusNotFound) {
		t.Fatalf("a missing id should reject the batch: %v", err)
	}

	list, err := manager.listProjects(search.Request{
		Criteria: []search.Criterion{{Field: "processor", Operator: search.OpEquals, Value: "carol"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if list.TotalCount != 0 {
		t.Fatalf("no project should be updated when the batch fails, got %d", list.TotalCount)
	}
}

func TestBulkUpdateValidation(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.newUser("mgr", schema.RoleManager)
	if err != nil {
		t.Fatal(err)
	}
	processor, err := env.newUser("alice", schema.RoleProcessor)
	if err != nil {
		t.Fatal(err)
	}

	p := env.createProject(t, schema.Project{Processor: "alice", QAOperator: "bob"})
	ids := []string{p.Id.String()}

	err = processor.bulkUpdate(ids, "processor", "carol")
	if !statusErrorIs(err, http.StatusForbidden) {
		t.Fatalf("bulk update is a manager action: %v", err)
	}

	err = manager.bulkUpdate(ids, "row_number", "PF2699999")
	if !statusErrorIs(err, http.StatusUnprocessableEntity) {
		t.Fatalf("row_number can never be bulk updated: %v", err)
	}

	err = manager.bulkUpdate(ids, "processing_status", "Done")
	if !statusErrorIs(err, http.StatusUnprocessableEntity) {
		t.Fatalf("status values must be valid: %v", err)
	}

	err = manager.bulkUpdate(nil, "processor", "carol")
	if !statusErrorIs(err, http.StatusUnprocessableEntity) {
		t.Fatalf("empty id list should be rejected: %v", err)
	}

	err = manager.bulkUpdate(ids, "processing_status", schema.ProcessingOnHold)
	if err != nil {
		t.Fatal(err)
	}
}

func TestBulkUpdateCannotClearAssignees(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.newUser("mgr", schema.RoleManager)
	if err != nil {
		t.Fatal(err)
	}

	p := env.createProject(t, schema.Project{
		WorkflowStatus: schema.WithProcessor, Processor: "alice", QAOperator: "bob",
	})
	ids := []string{p.Id.String()}

	err = manager.bulkUpdate(ids, "processor", "")
	if !statusErrorIs(err, http.StatusUnprocessableEntity) {
		t.Fatalf("an allocated project must keep its processor: %v", err)
	}
	err = manager.bulkUpdate(ids, "qa_operator", "  ")
	if !statusErrorIs(err, http.StatusUnprocessableEntity) {
		t.Fatalf("an allocated project must keep its qa operator: %v", err)
	}

	info, err := manager.projectInfo(p.Id.String())
	if err != nil {
		t.Fatal(err)
	}
	if info.Processor != "alice" || info.QAOperator != "bob" {
		t.Fatalf("assignees should be untouched, got %v/%v", info.Processor, info.QAOperator)
	}

	err = manager.bulkUpdate(ids, "processor", "carol")
	if err != nil {
		t.Fatal(err)
	}
}
