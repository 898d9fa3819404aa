// Package filter narrows the base dataset to a view. Dimensions combine
// with AND, the values selected within one dimension combine with OR, and
// an empty dimension does not restrict anything.
package filter

import (
	"sort"
	"strconv"
	"strings"

	"ticket-kpi-exporter/internal/schema"
)

// Spec is the user's filter selection.
type Spec struct {
	Years          []int    `json:"years,omitempty" form:"year"`
	ResolvedYears  []int    `json:"resolved_years,omitempty" form:"resolved_year"`
	Clients        []string `json:"clients,omitempty" form:"client"`
	Teams          []string `json:"teams,omitempty" form:"team"`
	Priorities     []string `json:"priorities,omitempty" form:"priority"`
	Modules        []string `json:"modules,omitempty" form:"module"`
	Environments   []string `json:"environments,omitempty" form:"environment"`
	Types          []string `json:"types,omitempty" form:"type"`
	ProductiveOnly bool     `json:"productive_only,omitempty" form:"productive_only"`

	// empty is set when And intersected a dimension down to nothing.
	empty bool
}

// IsZero reports whether the spec restricts nothing.
func (s Spec) IsZero() bool {
	return !s.empty && !s.ProductiveOnly &&
		len(s.Years) == 0 && len(s.ResolvedYears) == 0 &&
		len(s.Clients) == 0 && len(s.Teams) == 0 && len(s.Priorities) == 0 &&
		len(s.Modules) == 0 && len(s.Environments) == 0 && len(s.Types) == 0
}

// And returns the conjunction of s and o. On a dimension both restrict, the
// result keeps the values selected by both.
func (s Spec) And(o Spec) Spec {
	out := Spec{
		ProductiveOnly: s.ProductiveOnly || o.ProductiveOnly,
		empty:          s.empty || o.empty,
	}
	var ok [8]bool
	out.Years, ok[0] = intersectInts(s.Years, o.Years)
	out.ResolvedYears, ok[1] = intersectInts(s.ResolvedYears, o.ResolvedYears)
	out.Clients, ok[2] = intersectStrings(s.Clients, o.Clients)
	out.Teams, ok[3] = intersectStrings(s.Teams, o.Teams)
	out.Priorities, ok[4] = intersectStrings(s.Priorities, o.Priorities)
	out.Modules, ok[5] = intersectStrings(s.Modules, o.Modules)
	out.Environments, ok[6] = intersectStrings(s.Environments, o.Environments)
	out.Types, ok[7] = intersectStrings(s.Types, o.Types)
	for _, v := range ok {
		if !v {
			out.empty = true
		}
	}
	return out
}

// Key is a canonical form of the spec, equal for specs that select the
// same records.
func (s Spec) Key() string {
	if s.empty {
		return "empty"
	}
	var b strings.Builder
	writeInts(&b, "year", s.Years)
	writeInts(&b, "resolved_year", s.ResolvedYears)
	writeStrings(&b, "client", s.Clients)
	writeStrings(&b, "team", s.Teams)
	writeStrings(&b, "priority", s.Priorities)
	writeStrings(&b, "module", s.Modules)
	writeStrings(&b, "environment", s.Environments)
	writeStrings(&b, "type", s.Types)
	if s.ProductiveOnly {
		b.WriteString("productive_only;")
	}
	return b.String()
}

func writeInts(b *strings.Builder, name string, values []int) {
	if len(values) == 0 {
		return
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	b.WriteString(name)
	b.WriteByte('=')
	for i, v := range sorted {
		if i > 0 && sorted[i-1] == v {
			continue
		}
		b.WriteString(strconv.Itoa(v))
		b.WriteByte(',')
	}
	b.WriteByte(';')
}

func writeStrings(b *strings.Builder, name string, values []string) {
	keys := newKeySet(values)
	if len(keys) == 0 {
		return
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(strings.Join(sorted, ","))
	b.WriteByte(';')
}

// intersectInts returns the common values and false when both sides
// restrict and share nothing.
func intersectInts(a, b []int) ([]int, bool) {
	if len(a) == 0 {
		return b, true
	}
	if len(b) == 0 {
		return a, true
	}
	var out []int
	for _, x := range a {
		for _, y := range b {
			if x == y {
				out = append(out, x)
				break
			}
		}
	}
	return out, len(out) > 0
}

func intersectStrings(a, b []string) ([]string, bool) {
	if len(a) == 0 {
		return b, true
	}
	if len(b) == 0 {
		return a, true
	}
	keys := newKeySet(b)
	var out []string
	for _, x := range a {
		if keys.has(x) {
			out = append(out, x)
		}
	}
	return out, len(out) > 0
}

// keySet holds normalized values for case, whitespace and accent
// insensitive membership.
type keySet map[string]struct{}

func newKeySet(values []string) keySet {
	set := make(keySet, len(values))
	for _, v := range values {
		if k := schema.NormalizeKey(v); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func (s keySet) has(v string) bool {
	_, ok := s[schema.NormalizeKey(v)]
	return ok
}
