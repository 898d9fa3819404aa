// Package loader reads a tabular export (CSV or XLSX) into untyped rows.
// It knows nothing about tickets or logins: every cell stays a string keyed by
// its header.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// RawRow is one data row. Line is the 1-based position of the row among the
// data rows of the source (the header is line 0).
type RawRow struct {
	Line  int
	Cells map[string]string
}

// Get returns the raw cell under header, or "" when absent.
func (r RawRow) Get(header string) string {
	return r.Cells[header]
}

// ParseWarning is a non-fatal defect found while reading the file.
type ParseWarning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// RawTable is the loader output: ordered headers and rows.
type RawTable struct {
	Source   string
	Sheet    string
	Encoding string
	Headers  []string
	Rows     []RawRow
	Warnings []ParseWarning
}

// FormatError means the source cannot be read as tabular data at all.
type FormatError struct {
	Source string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

type format int

const (
	formatUnknown format = iota
	formatCSV
	formatXLSX
	formatLegacyXLS
)

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// LoadFile opens path and loads it.
func LoadFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(filepath.Base(path), f)
}

// Load reads the whole source and parses it. name is used for format
// detection by extension and for error messages.
func Load(name string, r io.Reader) (*RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &FormatError{Source: name, Reason: "read failed", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &FormatError{Source: name, Reason: "empty file"}
	}
	switch detectFormat(name, data) {
	case formatXLSX:
		return readXLSX(name, data)
	case formatCSV:
		return readCSV(name, data)
	case formatLegacyXLS:
		return nil, &FormatError{Source: name, Reason: "legacy .xls workbooks are not supported, save as .xlsx"}
	default:
		return nil, &FormatError{Source: name, Reason: "unsupported file format"}
	}
}

func detectFormat(name string, data []byte) format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return formatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return formatLegacyXLS
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		// not a zip container, so the workbook is corrupt
		return formatXLSX
	case ".csv", ".tsv", ".txt", "":
		return formatCSV
	}
	if bytes.IndexByte(data, 0) < 0 || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		return formatCSV
	}
	return formatUnknown
}

// buildTable turns the first non-blank record into headers and the rest into
// rows. Repeated headers get a ".N" suffix, blank headers become "column_N".
// Short rows are padded with empty cells and, unless trimmed is set, warned
// about. Workbook readers drop trailing empty cells, so they pass trimmed.
func buildTable(t *RawTable, records [][]string, firstLine int, trimmed bool) {
	start := -1
	for i, rec := range records {
		if !blank(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return
	}
	t.Headers = uniqueHeaders(records[start])
	width := len(t.Headers)
	for i, rec := range records[start+1:] {
		line := firstLine + i
		if blank(rec) {
			continue
		}
		if len(rec) > width {
			extra := rec[width:]
			if !blank(extra) {
				t.Warnings = append(t.Warnings, ParseWarning{
					Line:    line,
					Message: fmt.Sprintf("row has %d columns, expected %d; truncating extra columns", len(rec), width),
				})
			}
			rec = rec[:width]
		}
		if len(rec) < width && !trimmed {
			t.Warnings = append(t.Warnings, ParseWarning{
				Line:    line,
				Message: fmt.Sprintf("row has %d columns, expected %d; missing columns read as empty", len(rec), width),
			})
		}
		cells := make(map[string]string, width)
		for j, h := range t.Headers {
			if j < len(rec) {
				cells[h] = rec[j]
			} else {
				cells[h] = ""
			}
		}
		t.Rows = append(t.Rows, RawRow{Line: line, Cells: cells})
	}
}

func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
