package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"patentflow/caseflow/insight"
	"patentflow/caseflow/schema"
)

type stubProvider struct {
	output string
	err    error

	lastUserPrompt string
}

func (s *stubProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.lastUserPrompt = userPrompt
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

func withStubProvider(t *testing.T, stub *stubProvider) {
	original := insight.NewProvider
	insight.NewProvider = func(apiKey, model string) (insight.Provider, error) {
		return stub, nil
	}
	t.Cleanup(func() { insight.NewProvider = original })
}

func TestInsightTextResponse(t *testing.T) {
	env := setupTestEnv(t)
	stub := &stubProvider{output: `{"responseType": "text", "data": "12 projects are overdue"}`}
	withStubProvider(t, stub)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	res, err := admin.insightQuery("how many projects are overdue?")
	if err != nil {
		t.Fatal(err)
	}
	if res.ResponseType != "text" || res.Data != "12 projects are overdue" {
		t.Fatalf("unexpected response %v", res)
	}
}

func TestInsightChartResponse(t *testing.T) {
	env := setupTestEnv(t)
	stub := &stubProvider{output: `{"responseType": "chart", "data": [{"name": "US", "value": 3}, {"name": "EP", "value": 7}]}`}
	withStubProvider(t, stub)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	res, err := admin.insightQuery("projects per country?")
	if err != nil {
		t.Fatal(err)
	}
	if res.ResponseType != "chart" {
		t.Fatalf("unexpected response type %v", res.ResponseType)
	}
	points, ok := res.Data.([]interface{})
	if !ok || len(points) != 2 {
		t.Fatalf("unexpected chart data %v", res.Data)
	}
}

func TestInsightMalformedOutputBecomesText(t *testing.T) {
	env := setupTestEnv(t)
	stub := &stubProvider{output: "  The answer is 7.  "}
	withStubProvider(t, stub)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	res, err := admin.insightQuery("how many?")
	if err != nil {
		t.Fatal(err)
	}
	if res.ResponseType != "text" || res.Data != "The answer is 7." {
		t.Fatalf("non-json output should be wrapped as text: %v", res)
	}
}

func TestInsightEmptyResponse(t *testing.T) {
	env := setupTestEnv(t)
	stub := &stubProvider{err: insight.ErrEmptyResponse}
	withStubProvider(t, stub)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	_, err = admin.insightQuery("anything")
	if !statusErrorIs(err, http.StatusBadGateway) {
		t.Fatalf("empty model output should be a gateway error: %v", err)
	}
}

func TestInsightValidation(t *testing.T) {
	env := setupTestEnv(t)
	stub := &stubProvider{output: `{"responseType": "text", "data": "x"}`}
	withStubProvider(t, stub)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	_, err = admin.insightQuery("   ")
	if !statusErrorIs(err, http.StatusUnprocessableEntity) {
		t.Fatalf("blank queries are rejected: %v", err)
	}
}

func TestInsightDatasetIsScoped(t *testing.T) {
	env := setupTestEnv(t)
	stub := &stubProvider{output: `{"responseType": "text", "data": "ok"}`}
	withStubProvider(t, stub)

	alice, err := env.newUser("alice", schema.RoleProcessor)
	if err != nil {
		t.Fatal(err)
	}

	mine := env.createProject(t, schema.Project{Processor: "alice", ClientName: "Mine"})
	other := env.createProject(t, schema.Project{Processor: "zed", ClientName: "Other"})

	_, err = alice.insightQuery("what do I have?")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(stub.lastUserPrompt, mine.RowNumber) {
		t.Fatal("prompt should contain the caller's project")
	}
	if strings.Contains(stub.lastUserPrompt, other.RowNumber) {
		t.Fatal("prompt must not contain projects outside the caller's scope")
	}
}
