package services

import (
	"log"
	"net/http"
	"os"

	"patentflow/caseflow/auth"
	"patentflow/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type CaseFlow struct {
	user     UserService
	project  ProjectService
	metadata MetadataService
	insight  InsightService

	db *gorm.DB
}

type Options struct {
	OpenAIKey    string
	InsightModel string
}

func NewCaseFlow(db *gorm.DB, userAuth auth.IdentityProvider, opts Options) CaseFlow {
	return CaseFlow{
		user:     UserService{db: db, userAuth: userAuth},
		project:  ProjectService{db: db, userAuth: userAuth},
		metadata: MetadataService{db: db, userAuth: userAuth},
		insight: InsightService{
			db:       db,
			userAuth: userAuth,
			apiKey:   opts.OpenAIKey,
			model:    opts.InsightModel,
		},
		db: db,
	}
}

func (c *CaseFlow) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/user", c.user.Routes())
	r.Mount("/project", c.project.Routes())
	r.Mount("/metadata", c.metadata.Routes())
	r.Mount("/insight", c.insight.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}
