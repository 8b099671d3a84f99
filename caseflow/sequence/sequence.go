// Package sequence assigns the human-facing row numbers (PF{yy}{00001..})
// given to new projects. Numbers are unique and strictly increasing within a
// year prefix.
package sequence

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"patentflow/caseflow/schema"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const Prefix = "PF"

// Format renders one row number, e.g. Format(24, 1) == "PF2400001".
func Format(year2, seq int) string {
	return fmt.Sprintf("%s%02d%05d", Prefix, year2, seq)
}

// Next allocates n consecutive row numbers for the year of now. It must run
// inside the same transaction as the insert that consumes the numbers: the
// counter row is bumped with a single relative UPDATE, so concurrent batches
// serialize on the row lock and can never observe the same sequence value.
func Next(txn *gorm.DB, now time.Time, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	year := now.Year() % 100

	var counter schema.RowCounter
	result := txn.Limit(1).Find(&counter, "year = ?", year)
	if result.Error != nil {
		slog.Error("sql error reading row counter", "year", year, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	if result.RowsAffected == 0 {
		// First allocation for this year. Start from the highest row number
		// already stored with this prefix so legacy data keeps its sequence.
		last, err := legacyMax(txn, year)
		if err != nil {
			return nil, err
		}
		create := txn.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&schema.RowCounter{Year: year, LastSeq: last})
		if create.Error != nil {
			slog.Error("sql error creating row counter", "year", year, "error", create.Error)
			return nil, schema.ErrDbAccessFailed
		}
	}

	update := txn.Model(&schema.RowCounter{}).
		Where("year = ?", year).
		UpdateColumn("last_seq", gorm.Expr("last_seq + ?", n))
	if update.Error != nil {
		slog.Error("sql error incrementing row counter", "year", year, "error", update.Error)
		return nil, schema.ErrDbAccessFailed
	}

	read := txn.First(&counter, "year = ?", year)
	if read.Error != nil {
		slog.Error("sql error reading incremented row counter", "year", year, "error", read.Error)
		return nil, schema.ErrDbAccessFailed
	}

	numbers := make([]string, 0, n)
	for seq := counter.LastSeq - n + 1; seq <= counter.LastSeq; seq++ {
		numbers = append(numbers, Format(year, seq))
	}
	return numbers, nil
}

func legacyMax(txn *gorm.DB, year int) (int, error) {
	prefix := fmt.Sprintf("%s%02d", Prefix, year)

	var project schema.Project
	result := txn.Where("row_number LIKE ?", prefix+"%").
		Order("row_number DESC").
		Limit(1).
		Find(&project)
	if result.Error != nil {
		slog.Error("sql error finding max legacy row number", "year", year, "error", result.Error)
		return 0, schema.ErrDbAccessFailed
	}
	if result.RowsAffected == 0 {
		return 0, nil
	}

	seq, err := strconv.Atoi(strings.TrimPrefix(project.RowNumber, prefix))
	if err != nil {
		return 0, fmt.Errorf("malformed row number '%v': %w", project.RowNumber, err)
	}
	return seq, nil
}
