// Package preprocess derives the computed ticket fields: periods, status
// classes, SLA state and durations. Derivation reads raw fields only, so
// running it twice yields the same tickets.
package preprocess

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/quality"
	"ticket-kpi-exporter/internal/schema"
)

// NoPriorityRank sorts tickets without a known priority last.
const NoPriorityRank = 99

// Options are the catalogs the preprocessor depends on.
type Options struct {
	// ResolvedStatuses are status or resolution-status values meaning the
	// ticket is done.
	ResolvedStatuses []string
	// ProductiveEnvironments is the whitelist of production-grade environments.
	ProductiveEnvironments []string
	// StatusLabels are the canonical status labels; other values are title-cased.
	StatusLabels []string
	// PriorityOrder lists priority labels most urgent first.
	PriorityOrder []string
	BusinessHours BusinessHours
	// AsOf is the reference instant for the age of open tickets.
	AsOf time.Time
}

// DefaultOptions returns the built-in catalogs evaluated as of asOf.
func DefaultOptions(asOf time.Time) Options {
	opts := Options{
		ResolvedStatuses:       []string{"resuelto", "cerrado", "solucionado", "resueltos", "resolved", "closed"},
		ProductiveEnvironments: []string{"prod (cliente)", "produccion", "prod"},
		AsOf:                   asOf,
	}
	for _, v := range schema.StatusValues() {
		opts.StatusLabels = append(opts.StatusLabels, v.Label)
	}
	for _, v := range schema.PriorityValues() {
		opts.PriorityOrder = append(opts.PriorityOrder, v.Label)
	}
	return opts
}

type Preprocessor struct {
	resolved   map[string]struct{}
	productive map[string]struct{}
	labels     map[string]struct{}
	rank       map[string]int
	hours      BusinessHours
	asOf       time.Time
}

func New(opts Options) *Preprocessor {
	p := &Preprocessor{
		resolved:   keySet(opts.ResolvedStatuses),
		productive: keySet(opts.ProductiveEnvironments),
		labels:     make(map[string]struct{}, len(opts.StatusLabels)),
		rank:       make(map[string]int, len(opts.PriorityOrder)),
		hours:      opts.BusinessHours,
		asOf:       opts.AsOf,
	}
	for _, l := range opts.StatusLabels {
		p.labels[l] = struct{}{}
	}
	for i, l := range opts.PriorityOrder {
		p.rank[schema.NormalizeKey(l)] = i
	}
	return p
}

// At returns a copy of p that measures ages as of t.
func (p *Preprocessor) At(t time.Time) *Preprocessor {
	cp := *p
	cp.asOf = t
	return &cp
}

func keySet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[schema.NormalizeKey(v)] = struct{}{}
	}
	return set
}

// Derive returns enriched copies of tickets plus the anomalies found while
// computing durations. The input slice is not modified.
func (p *Preprocessor) Derive(tickets []dataset.Ticket) ([]dataset.Ticket, []quality.Issue) {
	out := make([]dataset.Ticket, len(tickets))
	var issues []quality.Issue
	for i, t := range tickets {
		d, found := p.derive(t)
		t.Derived = d
		for _, issue := range found {
			t.Flags = withFlag(t.Flags, issue.Kind)
		}
		issues = append(issues, found...)
		out[i] = t
	}
	return out, issues
}

func (p *Preprocessor) derive(t dataset.Ticket) (dataset.Derived, []quality.Issue) {
	var issues []quality.Issue
	negative := func(column string, d time.Duration) {
		issues = append(issues, quality.Issue{
			Kind:     quality.NegativeDuration,
			Severity: quality.Advisory,
			Row:      t.Line,
			Column:   column,
			Value:    d.String(),
			Message:  fmt.Sprintf("negative %s left empty", column),
		})
	}

	d := dataset.Derived{
		Period:       dataset.PeriodOf(t.CreatedAt),
		StatusGroup:  p.statusGroup(t.Status),
		PriorityRank: p.priorityRank(t.Priority),
		Owner:        firstNonBlank(t.Responsible, t.Agent),
		Client:       firstNonBlank(t.Group, t.Company),
		Productive:   p.isProductive(t.Environment),
	}
	d.IsResolved = p.isResolved(t)
	d.CommercialStatus = commercialStatus(d.StatusGroup, d.IsResolved)

	terminal := t.Terminal()
	if terminal != nil {
		d.ResolvedPeriod = dataset.PeriodOf(*terminal)
	}

	switch {
	case t.DueAt == nil:
		d.SLA = dataset.SLANotApplicable
	case terminal == nil:
		d.SLA = dataset.SLAPending
	case terminal.After(*t.DueAt):
		d.SLA = dataset.SLAMissed
	default:
		d.SLA = dataset.SLAMet
	}

	if t.FirstResponseTime != nil {
		at := t.CreatedAt.Add(*t.FirstResponseTime)
		d.FirstResponseAt = &at
	}

	switch {
	case t.ResolutionTimeHours != nil:
		if h := *t.ResolutionTimeHours; h >= 0 {
			d.ResolutionHours = &h
		} else {
			negative(schema.FieldResolutionTimeHours, time.Duration(h*float64(time.Hour)))
		}
	case terminal != nil:
		if span := terminal.Sub(t.CreatedAt); span >= 0 {
			h := span.Hours()
			d.ResolutionHours = &h
		} else {
			negative("resolution_time", span)
		}
	}

	if terminal != nil && p.hours.Enabled() && !terminal.Before(t.CreatedAt) {
		h := p.hours.Between(t.CreatedAt, *terminal).Hours()
		d.BusinessResolutionHours = &h
	}

	if !d.IsResolved && terminal == nil && !p.asOf.IsZero() {
		if age := p.asOf.Sub(t.CreatedAt); age >= 0 {
			days := int(math.Floor(age.Hours() / 24))
			d.AgeDays = &days
		} else {
			negative("age", age)
		}
	}
	return d, issues
}

func (p *Preprocessor) isResolved(t dataset.Ticket) bool {
	if _, ok := p.resolved[schema.NormalizeKey(t.Status)]; ok {
		return true
	}
	if t.Status == schema.StatusResolved {
		return true
	}
	_, ok := p.resolved[schema.NormalizeKey(t.ResolutionStatus)]
	return ok
}

func (p *Preprocessor) isProductive(env string) bool {
	_, ok := p.productive[schema.NormalizeKey(env)]
	return ok
}

func (p *Preprocessor) statusGroup(status string) string {
	if status == "" {
		return ""
	}
	if _, ok := p.resolved[schema.NormalizeKey(status)]; ok {
		return schema.StatusResolved
	}
	if _, ok := p.labels[status]; ok {
		return status
	}
	return cases.Title(language.Spanish).String(status)
}

func (p *Preprocessor) priorityRank(priority string) int {
	if r, ok := p.rank[schema.NormalizeKey(priority)]; ok {
		return r
	}
	return NoPriorityRank
}

// commercialStatus buckets a status into Pendiente, En progreso or Resuelto.
// Other statuses have no commercial bucket.
func commercialStatus(group string, resolved bool) string {
	key := schema.NormalizeKey(group)
	switch {
	case resolved || key == schema.NormalizeKey(schema.StatusResolved):
		return schema.StatusResolved
	case strings.Contains(key, "progreso"):
		return schema.StatusInProgress
	case strings.Contains(key, "pendiente"):
		return schema.StatusPending
	}
	return ""
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func withFlag(flags []quality.Kind, kind quality.Kind) []quality.Kind {
	for _, k := range flags {
		if k == kind {
			return flags
		}
	}
	out := make([]quality.Kind, len(flags), len(flags)+1)
	copy(out, flags)
	return append(out, kind)
}
