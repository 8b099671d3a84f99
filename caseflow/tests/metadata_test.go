package tests

import (
	"net/http"
	"testing"

	"patentflow/caseflow/schema"
)

func TestMetadataCrud(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	for _, kind := range []string{"client", "process", "country", "document_type", "renewal_agent"} {
		items, err := admin.listMetadata(kind)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 0 {
			t.Fatalf("%v collection should start empty", kind)
		}
	}

	created, err := admin.createMetadata("client", "Acme IP Holdings")
	if err != nil {
		t.Fatal(err)
	}

	_, err = admin.createMetadata("client", "Acme IP Holdings")
	if !statusErrorIs(err, http.StatusConflict) {
		t.Fatalf("duplicate names within a kind are rejected: %v", err)
	}

	// Same name under a different kind is fine.
	_, err = admin.createMetadata("renewal_agent", "Acme IP Holdings")
	if err != nil {
		t.Fatal(err)
	}

	err = admin.renameMetadata("client", created.Id.String(), "Acme Global IP")
	if err != nil {
		t.Fatal(err)
	}

	items, err := admin.listMetadata("client")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != "Acme Global IP" {
		t.Fatalf("rename not applied: %v", items)
	}

	err = admin.deleteMetadata("client", created.Id.String())
	if err != nil {
		t.Fatal(err)
	}
	err = admin.deleteMetadata("client", created.Id.String())
	if !statusErrorIs(err, http.StatusNotFound) {
		t.Fatalf("deleting twice should 404: %v", err)
	}

	items, err = admin.listMetadata("client")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("collection should be empty after delete: %v", items)
	}

	_, err = admin.listMetadata("widgets")
	if !statusErrorIs(err, http.StatusNotFound) {
		t.Fatalf("unknown kinds should 404: %v", err)
	}
}

func TestMetadataRoleGating(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	processor, err := env.newUser("alice", schema.RoleProcessor)
	if err != nil {
		t.Fatal(err)
	}

	created, err := admin.createMetadata("country", "US")
	if err != nil {
		t.Fatal(err)
	}

	// Any authenticated user may read the collections.
	items, err := processor.listMetadata("country")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	_, err = processor.createMetadata("country", "EP")
	if !statusErrorIs(err, http.StatusForbidden) {
		t.Fatalf("writes are admin only: %v", err)
	}
	err = processor.renameMetadata("country", created.Id.String(), "USA")
	if !statusErrorIs(err, http.StatusForbidden) {
		t.Fatalf("writes are admin only: %v", err)
	}
	err = processor.deleteMetadata("country", created.Id.String())
	if !statusErrorIs(err, http.StatusForbidden) {
		t.Fatalf("writes are admin only: %v", err)
	}

	anon := env.newClient()
	_, err = anon.listMetadata("country")
	if !statusErrorIs(err, http.StatusUnauthorized) {
		t.Fatalf("reads require a session: %v", err)
	}
}
