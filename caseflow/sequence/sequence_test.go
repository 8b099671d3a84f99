package sequence

import (
	"slices"
	"testing"
	"time"

	"patentflow/caseflow/schema"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDb(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(&schema.Project{}, &schema.RowCounter{})
	if err != nil {
		t.Fatal(err)
	}

	return db
}

func TestFormat(t *testing.T) {
	if got := Format(24, 1); got != "PF2400001" {
		t.Fatalf("unexpected format %v", got)
	}
	if got := Format(7, 12345); got != "PF0712345" {
		t.Fatalf("unexpected format %v", got)
	}
}

func TestNext(t *testing.T) {
	db := setupDb(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	numbers, err := Next(db, now, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(numbers, []string{"PF2400001", "PF2400002", "PF2400003"}) {
		t.Fatalf("unexpected numbers %v", numbers)
	}

	numbers, err = Next(db, now, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(numbers, []string{"PF2400004", "PF2400005"}) {
		t.Fatalf("allocation should continue the sequence: %v", numbers)
	}
}

func TestNextContinuesLegacyNumbers(t *testing.T) {
	db := setupDb(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	result := db.Create(&schema.Project{Id: uuid.New(), RowNumber: "PF2400041"})
	if result.Error != nil {
		t.Fatal(result.Error)
	}

	numbers, err := Next(db, now, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(numbers, []string{"PF2400042"}) {
		t.Fatalf("sequence should continue after existing rows: %v", numbers)
	}
}

func TestNextRestartsEachYear(t *testing.T) {
	db := setupDb(t)

	numbers, err := Next(db, time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC), 1)
	if err != nil {
		t.Fatal(err)
	}
	if numbers[0] != "PF2400001" {
		t.Fatalf("unexpected number %v", numbers[0])
	}

	numbers, err = Next(db, time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC), 1)
	if err != nil {
		t.Fatal(err)
	}
	if numbers[0] != "PF2500001" {
		t.Fatalf("new year should restart the sequence: %v", numbers[0])
	}
}

func TestNextZeroCount(t *testing.T) {
	db := setupDb(t)

	numbers, err := Next(db, time.Now(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(numbers) != 0 {
		t.Fatalf("expected no numbers, got %v", numbers)
	}
}
