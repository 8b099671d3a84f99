package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"patentflow/caseflow/schema"
	"patentflow/caseflow/seed"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Seeds the metadata collections from a yaml file plus whatever values are
// already present on existing projects. Safe to rerun; existing items are
// left untouched.
func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	seedFile := flag.String("file", "", "Yaml file containing metadata values to seed.")

	flag.Parse()

	if *envFile != "" {
		err := godotenv.Load(*envFile)
		if err != nil {
			log.Fatalf("error loading .env file '%v': %v", *envFile, err)
		}
	}

	databaseUri := os.Getenv("DATABASE_URI")
	if databaseUri == "" {
		log.Fatal("DATABASE_URI env var must be specified")
	}

	parts, err := url.Parse(databaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	dsn := fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	err = db.AutoMigrate(&schema.LookupItem{})
	if err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	var data seed.Data
	if *seedFile != "" {
		data, err = seed.Load(*seedFile)
		if err != nil {
			log.Fatalf("error loading seed file '%v': %v", *seedFile, err)
		}
	}

	inserted, err := seed.Apply(db, data)
	if err != nil {
		log.Fatalf("error applying seed data: %v", err)
	}

	slog.Info("seed complete", "inserted", inserted)
}
