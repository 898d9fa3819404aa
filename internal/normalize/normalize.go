// Package normalize maps raw headers onto canonical fields and coerces every
// cell to the semantic type the schema declares for it.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"ticket-kpi-exporter/internal/loader"
	"ticket-kpi-exporter/internal/quality"
	"ticket-kpi-exporter/internal/schema"
)

// PassthroughPrefix prefixes the synthetic key under which an unmapped
// column's cells are preserved.
const PassthroughPrefix = "raw:"

// dupSuffix matches the ".N" suffix the loader appends to repeated headers.
var dupSuffix = regexp.MustCompile(`\.\d+$`)

// placeholders are cell values that mean "no value" in the exports.
var placeholders = map[string]bool{"": true, "nan": true, "nat": true, "null": true, "no product": true}

// Value is a typed cell. Only the member matching Type is meaningful.
type Value struct {
	Type  schema.SemanticType
	Raw   string
	Str   string
	Time  time.Time
	Num   float64
	Int   int64
	Dur   time.Duration
	Tags  []string
	Known bool
}

// Row is one normalized record. A canonical field absent from Values is
// missing. Flags lists the advisory issue kinds attached to the row.
type Row struct {
	Line   int
	Values map[string]Value
	Extra  map[string]string
	Flags  []quality.Kind
}

// Flag attaches kind to the row once.
func (r *Row) Flag(kind quality.Kind) {
	for _, k := range r.Flags {
		if k == kind {
			return
		}
	}
	r.Flags = append(r.Flags, kind)
}

// Has reports whether the field is present and non-missing.
func (r Row) Has(field string) bool {
	_, ok := r.Values[field]
	return ok
}

// UnmappedColumn is a raw header kept as passthrough instead of a canonical field.
type UnmappedColumn struct {
	Header string `json:"header"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Table is the normalizer output.
type Table struct {
	Kind     string
	Source   string
	Columns  map[string]string
	Rows     []Row
	Unmapped []UnmappedColumn
	Issues   []quality.Issue
}

// Options configures accepted encodings.
type Options struct {
	DateLayouts []string
	MonthNames  map[int]string
	Location    *time.Location
}

// Normalizer is safe for concurrent use once built.
type Normalizer struct {
	layouts []string
	months  map[string]int
	loc     *time.Location
}

// DefaultDateLayouts lists the accepted textual date layouts, tried in order.
// Slash and dash dates are read day-first as the exports are Spanish-locale.
var DefaultDateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006",
}

var englishMonths = []string{"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december"}

// New builds a normalizer. Empty options fall back to DefaultDateLayouts,
// English month names and UTC.
func New(opts Options) *Normalizer {
	n := &Normalizer{
		layouts: opts.DateLayouts,
		months:  make(map[string]int),
		loc:     opts.Location,
	}
	if len(n.layouts) == 0 {
		n.layouts = DefaultDateLayouts
	}
	if n.loc == nil {
		n.loc = time.UTC
	}
	for i, name := range englishMonths {
		n.months[name] = i + 1
	}
	for num, name := range opts.MonthNames {
		key := schema.NormalizeKey(name)
		n.months[key] = num
		if len(key) > 3 {
			n.months[key[:3]] = num
		}
	}
	return n
}

// Normalize resolves the headers of raw against reg and coerces every cell.
// A required field that no header resolves to aborts with
// *schema.MismatchError; cell-level failures only add coercion issues.
func (n *Normalizer) Normalize(raw *loader.RawTable, reg *schema.Registry) (*Table, error) {
	t := &Table{
		Kind:    reg.Kind(),
		Source:  raw.Source,
		Columns: make(map[string]string),
	}

	candidates := make(map[string][]string)
	var unresolved []string
	for _, h := range raw.Headers {
		name, ok := reg.ResolveAlias(h)
		if !ok {
			name, ok = reg.ResolveAlias(dupSuffix.ReplaceAllString(h, ""))
		}
		if !ok {
			unresolved = append(unresolved, h)
			continue
		}
		candidates[name] = append(candidates[name], h)
	}

	for _, name := range sortedNames(candidates) {
		headers := candidates[name]
		chosen := pickColumn(raw, headers)
		t.Columns[name] = chosen
		for _, h := range headers {
			if h != chosen {
				t.addUnmapped(h, fmt.Sprintf("duplicate of %s (column %q kept)", name, chosen))
			}
		}
	}
	for _, h := range unresolved {
		t.addUnmapped(h, "no matching field")
	}

	var missing []string
	for _, name := range reg.RequiredFields() {
		if _, ok := t.Columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &schema.MismatchError{Kind: reg.Kind(), Missing: missing}
	}

	index := newCategoryIndex(reg)
	fields := reg.Fields()
	t.Rows = make([]Row, 0, len(raw.Rows))
	for _, rr := range raw.Rows {
		row := Row{Line: rr.Line, Values: make(map[string]Value, len(t.Columns))}
		for _, f := range fields {
			header, ok := t.Columns[f.Name]
			if !ok {
				continue
			}
			cell := strings.TrimSpace(rr.Get(header))
			if isPlaceholder(cell) {
				continue
			}
			v, err := n.coerce(f, index, cell)
			if err != nil {
				t.Issues = append(t.Issues, quality.Issue{
					Kind:     quality.Coercion,
					Severity: quality.Advisory,
					Row:      rr.Line,
					Column:   f.Name,
					Value:    cell,
					Message:  fmt.Sprintf("%s as %s: %v", f.Name, f.Type, err),
				})
				continue
			}
			row.Values[f.Name] = v
		}
		for _, u := range t.Unmapped {
			if cell := strings.TrimSpace(rr.Get(u.Header)); cell != "" {
				if row.Extra == nil {
					row.Extra = make(map[string]string)
				}
				row.Extra[u.Key] = cell
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func (t *Table) addUnmapped(header, reason string) {
	u := UnmappedColumn{Header: header, Key: PassthroughPrefix + header, Reason: reason}
	t.Unmapped = append(t.Unmapped, u)
	t.Issues = append(t.Issues, quality.Issue{
		Kind:     quality.UnmappedColumn,
		Severity: quality.Advisory,
		Column:   header,
		Message:  fmt.Sprintf("column %q preserved as %q: %s", header, u.Key, reason),
	})
}

// pickColumn chooses among headers resolving to the same field the one with
// the most meaningful cells, leftmost on ties.
func pickColumn(raw *loader.RawTable, headers []string) string {
	best, bestScore := headers[0], -1
	for _, h := range headers {
		score := 0
		for _, row := range raw.Rows {
			if !isPlaceholder(strings.TrimSpace(row.Get(h))) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = h, score
		}
	}
	return best
}

func isPlaceholder(cell string) bool {
	return placeholders[strings.ToLower(cell)]
}

func sortedNames(m map[string][]string) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
