// Package validate checks a normalized table against its schema. Defects never
// abort the batch: rows missing a required value are excluded and counted,
// every other defect keeps the row and flags it.
package validate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ticket-kpi-exporter/internal/normalize"
	"ticket-kpi-exporter/internal/quality"
	"ticket-kpi-exporter/internal/schema"
)

// Result carries the valid subset and the accumulated report.
type Result struct {
	Rows   []normalize.Row
	Report *quality.Report
}

// orderedStages is the lifecycle order checked on ticket rows. The
// first-response instant is created_at plus first_response_time.
var orderedStages = []string{
	schema.FieldCreatedAt,
	schema.FieldFirstResponseTime,
	schema.FieldResolvedAt,
	schema.FieldClosedAt,
}

// Validate runs the row checks. Issues already raised by the normalizer are
// carried into the report first.
func Validate(t *normalize.Table, reg *schema.Registry) Result {
	report := &quality.Report{Source: t.Source, TotalRows: len(t.Rows)}
	report.Add(t.Issues...)

	required := reg.RequiredFields()
	_, checkIDs := reg.Field(schema.FieldID)
	_, checkOrder := reg.Field(schema.FieldCreatedAt)

	rows := make([]normalize.Row, len(t.Rows))
	copy(rows, t.Rows)
	excluded := make(map[int]bool)

	for i := range rows {
		row := &rows[i]
		for _, name := range required {
			if !row.Has(name) {
				report.Add(quality.Issue{
					Kind:     quality.MissingRequired,
					Severity: quality.Fatal,
					Row:      row.Line,
					Column:   name,
					Message:  fmt.Sprintf("required field %s is empty; row excluded", name),
				})
				excluded[i] = true
			}
		}
		for _, name := range sortedFields(row.Values) {
			v := row.Values[name]
			if v.Type == schema.TypeCategory && !v.Known {
				report.Add(quality.Issue{
					Kind:     quality.UnknownCategory,
					Severity: quality.Advisory,
					Row:      row.Line,
					Column:   name,
					Value:    v.Raw,
					Message:  fmt.Sprintf("%s value %q is not a known category", name, v.Raw),
				})
				row.Flag(quality.UnknownCategory)
			}
		}
		if checkOrder {
			if issue, ok := checkOrdering(*row); ok {
				report.Add(issue)
				row.Flag(quality.OrderingAnomaly)
			}
		}
	}

	if checkIDs {
		report.Add(duplicateIDs(rows, excluded)...)
	}

	valid := make([]normalize.Row, 0, len(rows))
	for i, row := range rows {
		if excluded[i] {
			report.ExcludedRows = append(report.ExcludedRows, row.Line)
			continue
		}
		valid = append(valid, row)
	}
	report.ValidRows = len(valid)
	return Result{Rows: valid, Report: report}
}

// duplicateIDs emits one issue per id shared by several retained rows and
// flags every row involved. Excluded rows take no part, so a flagged row
// always has a flagged twin in the dataset.
func duplicateIDs(rows []normalize.Row, excluded map[int]bool) []quality.Issue {
	byID := make(map[string][]int)
	var order []string
	for i, row := range rows {
		if excluded[i] {
			continue
		}
		v, ok := row.Values[schema.FieldID]
		if !ok {
			continue
		}
		if _, seen := byID[v.Str]; !seen {
			order = append(order, v.Str)
		}
		byID[v.Str] = append(byID[v.Str], i)
	}
	var issues []quality.Issue
	for _, id := range order {
		idx := byID[id]
		if len(idx) < 2 {
			continue
		}
		lines := make([]int, len(idx))
		for j, i := range idx {
			rows[i].Flag(quality.DuplicateID)
			lines[j] = rows[i].Line
		}
		issues = append(issues, quality.Issue{
			Kind:     quality.DuplicateID,
			Severity: quality.Advisory,
			Row:      lines[0],
			Related:  lines[1:],
			Column:   schema.FieldID,
			Value:    id,
			Message:  fmt.Sprintf("ticket id %q appears in %d rows", id, len(lines)),
		})
	}
	return issues
}

type stage struct {
	name string
	at   time.Time
}

// checkOrdering reports the first out-of-order pair among the lifecycle
// timestamps present on the row.
func checkOrdering(row normalize.Row) (quality.Issue, bool) {
	var present []stage
	created, hasCreated := row.Values[schema.FieldCreatedAt]
	for _, name := range orderedStages {
		v, ok := row.Values[name]
		if !ok {
			continue
		}
		at := v.Time
		if name == schema.FieldFirstResponseTime {
			if !hasCreated {
				continue
			}
			at = created.Time.Add(v.Dur)
		}
		present = append(present, stage{name: name, at: at})
	}
	var broken []string
	for i := 1; i < len(present); i++ {
		if present[i].at.Before(present[i-1].at) {
			broken = append(broken, fmt.Sprintf("%s before %s", present[i].name, present[i-1].name))
		}
	}
	if len(broken) == 0 {
		return quality.Issue{}, false
	}
	return quality.Issue{
		Kind:     quality.OrderingAnomaly,
		Severity: quality.Advisory,
		Row:      row.Line,
		Message:  "timestamps out of order: " + strings.Join(broken, ", "),
	}, true
}

func sortedFields(m map[string]normalize.Value) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
