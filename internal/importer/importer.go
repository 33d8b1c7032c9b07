// Package importer loads vocabulary batches from spreadsheet files. Each row
// is validated independently through the scheduler's bulk path, so one
// malformed row never aborts a whole import.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pendlerapp/vokabel/internal/domain"
	"github.com/pendlerapp/vokabel/internal/scheduler"
)

// Config maps spreadsheet columns (by letter) onto item fields.
type Config struct {
	WordColumn        string
	TranslationColumn string
	ExampleColumn     string
	CategoryColumn    string
	DifficultyColumn  string
	Sheet             string
	StartRow          int // 1-based row to start importing from
}

// DefaultConfig returns the conventional column layout: word, translation,
// example, category, difficulty in columns A through E, header in row 1.
func DefaultConfig() Config {
	return Config{
		WordColumn:        "A",
		TranslationColumn: "B",
		ExampleColumn:     "C",
		CategoryColumn:    "D",
		DifficultyColumn:  "E",
		Sheet:             "Sheet1",
		StartRow:          2,
	}
}

// Result holds the outcome of an import operation.
type Result struct {
	TotalProcessed int      `json:"total_processed"`
	Accepted       int      `json:"accepted"`
	Errors         []string `json:"errors,omitempty"`
}

// ImportFile imports vocabulary from an .xlsx or .csv file into the
// scheduler's collection.
func ImportFile(path string, sched *scheduler.Scheduler, cfg Config) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".csv" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer f.Close()
		return ImportCSV(f, sched, cfg)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	return importSheet(f, sched, cfg)
}

// ImportXLSX imports vocabulary from xlsx data with the same column mapping
// as the file path.
func ImportXLSX(r io.Reader, sched *scheduler.Scheduler, cfg Config) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel data: %w", err)
	}
	defer f.Close()

	return importSheet(f, sched, cfg)
}

func importSheet(f *excelize.File, sched *scheduler.Scheduler, cfg Config) (*Result, error) {
	rows, err := f.GetRows(cfg.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", cfg.Sheet, err)
	}
	return importRows(rows, sched, cfg)
}

// ImportCSV imports vocabulary from CSV data with the same column mapping as
// the Excel path.
func ImportCSV(r io.Reader, sched *scheduler.Scheduler, cfg Config) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may have trailing columns missing

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return importRows(rows, sched, cfg)
}

func importRows(rows [][]string, sched *scheduler.Scheduler, cfg Config) (*Result, error) {
	cols, err := columnIndexes(cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var drafts []scheduler.Draft
	var rowNumbers []int

	for i, row := range rows {
		rowNum := i + 1
		if rowNum < cfg.StartRow {
			continue
		}
		if isEmptyRow(row) {
			continue
		}
		result.TotalProcessed++

		drafts = append(drafts, scheduler.Draft{
			Word:        cell(row, cols.word),
			Translation: cell(row, cols.translation),
			Example:     cell(row, cols.example),
			Category:    cell(row, cols.category),
			Difficulty:  domain.Difficulty(strings.ToLower(cell(row, cols.difficulty))),
		})
		rowNumbers = append(rowNumbers, rowNum)
	}

	report := sched.BulkAdd(drafts)
	result.Accepted = report.Accepted
	for _, rej := range report.Rejected {
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rowNumbers[rej.Index], rej.Reason))
	}
	return result, nil
}

type indexes struct {
	word, translation, example, category, difficulty int
}

func columnIndexes(cfg Config) (indexes, error) {
	toIndex := func(name string) (int, error) {
		if name == "" {
			return -1, nil
		}
		n, err := excelize.ColumnNameToNumber(name)
		if err != nil {
			return 0, fmt.Errorf("invalid column %q: %w", name, err)
		}
		return n - 1, nil
	}

	var (
		cols indexes
		err  error
	)
	if cols.word, err = toIndex(cfg.WordColumn); err != nil {
		return cols, err
	}
	if cols.translation, err = toIndex(cfg.TranslationColumn); err != nil {
		return cols, err
	}
	if cols.example, err = toIndex(cfg.ExampleColumn); err != nil {
		return cols, err
	}
	if cols.category, err = toIndex(cfg.CategoryColumn); err != nil {
		return cols, err
	}
	cols.difficulty, err = toIndex(cfg.DifficultyColumn)
	return cols, err
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
