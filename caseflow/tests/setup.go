package tests

import (
	"bytes"
	"fmt"
	"testing"

	"patentflow/caseflow/auth"
	"patentflow/caseflow/schema"
	"patentflow/caseflow/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	caseflow services.CaseFlow
	api      chi.Router
	db       *gorm.DB

	nextRow int
}

var testSecret = []byte("290zcv02ai249")

const (
	adminUsername = "admin123"
	adminEmail    = "admin123@mail.com"
	adminPassword = "admin_password123"
)

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(
		&schema.Project{}, &schema.ProjectEntry{}, &schema.User{},
		&schema.UserRole{}, &schema.LookupItem{}, &schema.RowCounter{},
	)
	if err != nil {
		t.Fatal(err)
	}

	userAuth, err := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(new(bytes.Buffer)),
		auth.BasicProviderArgs{
			Secret:        testSecret,
			AdminUsername: adminUsername,
			AdminEmail:    adminEmail,
			AdminPassword: adminPassword,
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	caseflow := services.NewCaseFlow(db, userAuth, services.Options{})

	return &testEnv{caseflow: caseflow, api: caseflow.Routes(), db: db, nextRow: 1}
}

func (env *testEnv) newClient() client {
	return client{api: env.api}
}

func (env *testEnv) adminClient() (client, error) {
	c := env.newClient()
	err := c.login(loginInfo{Email: adminEmail, Password: adminPassword})
	return c, err
}

// newUser creates a user with the given roles via the admin api and returns
// a client logged in as that user.
func (env *testEnv) newUser(username string, roles ...string) (client, error) {
	admin, err := env.adminClient()
	if err != nil {
		return client{}, err
	}

	login, err := admin.createUser(username, username+"@mail.com", username+"_password", roles)
	if err != nil {
		return client{}, err
	}

	c := env.newClient()
	err = c.login(login)
	if err != nil {
		return client{}, err
	}

	return c, nil
}

// createProject inserts a project directly into the db, bypassing the api.
// Used to stage data for search, visibility, and workflow tests.
func (env *testEnv) createProject(t *testing.T, p schema.Project) schema.Project {
	if p.Id == uuid.Nil {
		p.Id = uuid.New()
	}
	if p.RowNumber == "" {
		p.RowNumber = fmt.Sprintf("PF26%05d", env.nextRow)
		env.nextRow++
	}
	if p.WorkflowStatus == "" {
		p.WorkflowStatus = schema.PendingAllocation
	}
	if p.ProcessingStatus == "" {
		p.ProcessingStatus = schema.ProcessingPending
	}
	if p.QAStatus == "" {
		p.QAStatus = schema.QAPending
	}

	result := env.db.Create(&p)
	if result.Error != nil {
		t.Fatal(result.Error)
	}

	return p
}
