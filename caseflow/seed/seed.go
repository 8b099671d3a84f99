// Package seed populates the metadata lookup collections. It replaces the
// original system's lazy first-read seeding with an explicit, idempotent step
// run at deploy time (see cmd/seed).
package seed

import (
	"fmt"
	"log/slog"
	"os"

	"patentflow/caseflow/schema"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Data lists the seed values per metadata kind.
type Data struct {
	Clients       []string `yaml:"clients"`
	Processes     []string `yaml:"processes"`
	Countries     []string `yaml:"countries"`
	DocumentTypes []string `yaml:"document_types"`
	RenewalAgents []string `yaml:"renewal_agents"`
}

func Load(path string) (Data, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("error reading seed file '%v': %w", path, err)
	}

	var data Data
	if err := yaml.Unmarshal(content, &data); err != nil {
		return Data{}, fmt.Errorf("error parsing seed file '%v': %w", path, err)
	}
	return data, nil
}

// projectColumns maps each lookup kind to the project column whose distinct
// values supplement the seed file.
var projectColumns = map[string]string{
	schema.LookupClient:       "client_name",
	schema.LookupProcess:      "process",
	schema.LookupCountry:      "country",
	schema.LookupDocumentType: "document_type",
	schema.LookupRenewalAgent: "renewal_agent",
}

// Apply merges the seed data and the distinct values already present in
// projects into the lookup table. Existing (kind, name) pairs are left
// untouched, so running it repeatedly is safe. Returns the number of items
// inserted.
func Apply(db *gorm.DB, data Data) (int, error) {
	byKind := map[string][]string{
		schema.LookupClient:       data.Clients,
		schema.LookupProcess:      data.Processes,
		schema.LookupCountry:      data.Countries,
		schema.LookupDocumentType: data.DocumentTypes,
		schema.LookupRenewalAgent: data.RenewalAgents,
	}

	inserted := 0
	err := db.Transaction(func(txn *gorm.DB) error {
		for kind, names := range byKind {
			column := projectColumns[kind]

			var observed []string
			result := txn.Model(&schema.Project{}).
				Distinct(column).
				Where(column+" <> ''").
				Pluck(column, &observed)
			if result.Error != nil {
				slog.Error("sql error listing distinct project values", "column", column, "error", result.Error)
				return schema.ErrDbAccessFailed
			}

			n, err := insertMissing(txn, kind, append(names, observed...))
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

func insertMissing(txn *gorm.DB, kind string, names []string) (int, error) {
	seen := map[string]struct{}{}
	items := make([]schema.LookupItem, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		items = append(items, schema.LookupItem{Id: uuid.New(), Kind: kind, Name: name})
	}

	if len(items) == 0 {
		return 0, nil
	}

	result := txn.Clauses(clause.OnConflict{DoNothing: true}).Create(&items)
	if result.Error != nil {
		slog.Error("sql error seeding metadata items", "kind", kind, "error", result.Error)
		return 0, schema.ErrDbAccessFailed
	}

	return int(result.RowsAffected), nil
}
