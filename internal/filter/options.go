package filter

import (
	"sort"
	"strings"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/schema"
)

// TeamCatalog unifies the support teams under one label.
type TeamCatalog struct {
	SupportKeywords []string
	SupportLabel    string
}

// DefaultTeamCatalog groups every team containing "soporte" or "support".
func DefaultTeamCatalog() TeamCatalog {
	return TeamCatalog{SupportKeywords: []string{"soporte", "support"}, SupportLabel: "Soporte"}
}

func (c TeamCatalog) isSupport(team string) bool {
	key := schema.NormalizeKey(team)
	for _, kw := range c.SupportKeywords {
		if kw = schema.NormalizeKey(kw); kw != "" && strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// Label returns the display label of a raw team value.
func (c TeamCatalog) Label(team string) string {
	if c.SupportLabel != "" && c.isSupport(team) {
		return c.SupportLabel
	}
	return strings.TrimSpace(team)
}

// TeamOptions lists the team labels present in tickets, support teams
// unified, sorted.
func TeamOptions(tickets []dataset.Ticket, c TeamCatalog) []string {
	seen := make(map[string]struct{})
	for _, t := range tickets {
		if strings.TrimSpace(t.TeamAssigned) == "" {
			continue
		}
		seen[c.Label(t.TeamAssigned)] = struct{}{}
	}
	return sortedSet(seen)
}

// ResolveTeamLabels expands selected labels to the raw team values of
// tickets, for use in Spec.Teams.
func ResolveTeamLabels(labels []string, tickets []dataset.Ticket, c TeamCatalog) []string {
	selected := newKeySet(labels)
	raw := make(map[string]struct{})
	for _, t := range tickets {
		if t.TeamAssigned == "" {
			continue
		}
		if selected.has(c.Label(t.TeamAssigned)) {
			raw[t.TeamAssigned] = struct{}{}
		}
	}
	return sortedSet(raw)
}

// Options lists the values of a ticket attribute present in tickets.
func Options(tickets []dataset.Ticket, value func(dataset.Ticket) string) []string {
	seen := make(map[string]struct{})
	for _, t := range tickets {
		if v := strings.TrimSpace(value(t)); v != "" {
			seen[v] = struct{}{}
		}
	}
	return sortedSet(seen)
}

// YearOptions lists the creation years present in tickets, newest first.
func YearOptions(tickets []dataset.Ticket) []int {
	seen := make(map[int]struct{})
	for _, t := range tickets {
		if !t.Derived.Period.IsZero() {
			seen[t.Derived.Period.Year] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// ComparisonYears is the year-over-year window ending at year.
func ComparisonYears(year int) []int {
	return []int{year - 1, year}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
