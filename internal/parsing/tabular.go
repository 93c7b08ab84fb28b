package parsing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dvloznov/credit-assessor/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Table is an uploaded sheet: a header row and the data rows below it.
// Blank rows are dropped; rows may be shorter than the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable picks a reader from the file extension. Unknown or missing
// extensions are read as CSV.
func ReadTable(filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return ReadCSV(r)
	}
}

// ReadCSV reads a comma separated table. A UTF-8 byte order mark on the
// first header cell is stripped.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // rows may be ragged
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ReadCSV: %v: %w", err, domain.ErrMalformedInput)
	}
	return newTable(records)
}

// ReadXLSX reads the first sheet of an Excel workbook.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ReadXLSX: open workbook: %v: %w", err, domain.ErrMalformedInput)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("ReadXLSX: workbook has no sheets: %w", domain.ErrMalformedInput)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ReadXLSX: read sheet %q: %v: %w", sheet, err, domain.ErrMalformedInput)
	}
	return newTable(rows)
}

func newTable(records [][]string) (*Table, error) {
	var rows [][]string
	for _, rec := range records {
		if isBlankRow(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row: %w", domain.ErrMalformedInput)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	return &Table{Header: header, Rows: rows[1:]}, nil
}

func isBlankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// errColumnMissing is wrapped with the column name by Columns.
var errColumnMissing = errors.New("required column missing")

// Columns resolves each wanted header name to its index, matching
// case-insensitively. Every name must be present.
func (t *Table) Columns(names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		key := normalizeHeader(h)
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}

	out := make(map[string]int, len(names))
	var missing []string
	for _, n := range names {
		i, ok := idx[normalizeHeader(n)]
		if !ok {
			missing = append(missing, n)
			continue
		}
		out[n] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", errColumnMissing, strings.Join(missing, ", "), domain.ErrMalformedInput)
	}
	return out, nil
}

// OptionalColumn returns the index of name, or -1.
func (t *Table) OptionalColumn(name string) int {
	want := normalizeHeader(name)
	for i, h := range t.Header {
		if normalizeHeader(h) == want {
			return i
		}
	}
	return -1
}

func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// cell returns the trimmed value at i, or "" when the row is short or i < 0.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
