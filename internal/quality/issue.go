// Package quality holds the data-quality taxonomy shared by every pipeline
// stage: row and cell issues, their severity, and the report handed to the
// presentation layer next to the best-effort dataset.
package quality

import (
	"fmt"
	"sort"
)

// Severity separates issues that exclude a row from issues that only flag it.
type Severity string

const (
	Fatal    Severity = "fatal"
	Advisory Severity = "advisory"
)

// Kind classifies an issue.
type Kind string

const (
	MissingRequired  Kind = "missing_required"
	DuplicateID      Kind = "duplicate_id"
	OrderingAnomaly  Kind = "ordering_anomaly"
	UnknownCategory  Kind = "unknown_category"
	Coercion         Kind = "coercion"
	NegativeDuration Kind = "negative_duration"
	UnmappedColumn   Kind = "unmapped_column"
	MalformedRow     Kind = "malformed_row"
)

// Issue is one detected defect. Row is the 1-based data row of the source file
// (0 for column-level issues); Related lists further rows involved, such as the
// other rows sharing a duplicated id.
type Issue struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Row      int      `json:"row,omitempty"`
	Related  []int    `json:"related,omitempty"`
	Column   string   `json:"column,omitempty"`
	Value    string   `json:"value,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Row > 0 {
		return fmt.Sprintf("%s %s row %d: %s", i.Severity, i.Kind, i.Row, i.Message)
	}
	return fmt.Sprintf("%s %s: %s", i.Severity, i.Kind, i.Message)
}

// Report accumulates every issue found while loading one file.
type Report struct {
	Source       string  `json:"source"`
	TotalRows    int     `json:"total_rows"`
	ValidRows    int     `json:"valid_rows"`
	ExcludedRows []int   `json:"excluded_rows"`
	Issues       []Issue `json:"issues"`
}

// Add appends issues to the report.
func (r *Report) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// Summary is the count view of a Report used for user-facing feedback.
type Summary struct {
	Source    string       `json:"source"`
	TotalRows int          `json:"total_rows"`
	ValidRows int          `json:"valid_rows"`
	Excluded  int          `json:"excluded"`
	Fatal     int          `json:"fatal"`
	Advisory  int          `json:"advisory"`
	ByKind    map[Kind]int `json:"by_kind"`
}

// Summary counts issues by severity and kind.
func (r *Report) Summary() Summary {
	s := Summary{
		Source:    r.Source,
		TotalRows: r.TotalRows,
		ValidRows: r.ValidRows,
		Excluded:  len(r.ExcludedRows),
		ByKind:    make(map[Kind]int),
	}
	for _, issue := range r.Issues {
		switch issue.Severity {
		case Fatal:
			s.Fatal++
		case Advisory:
			s.Advisory++
		}
		s.ByKind[issue.Kind]++
	}
	return s
}

// Filter returns the issues of the given kind, ordered by row.
func (r *Report) Filter(kind Kind) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Row < out[b].Row })
	return out
}
