// Package metrics computes KPIs over a filtered view. Every function is
// pure and returns zero values, empty series or nil rates on an empty view.
package metrics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/filter"
)

// BlankKey groups tickets whose dimension value is empty.
const BlankKey = "Sin valor"

// Dimension extracts the grouping value of a ticket.
type Dimension func(t dataset.Ticket) string

var (
	ByStatus           Dimension = func(t dataset.Ticket) string { return t.Derived.StatusGroup }
	ByCommercialStatus Dimension = func(t dataset.Ticket) string { return t.Derived.CommercialStatus }
	ByModule           Dimension = func(t dataset.Ticket) string { return t.Module }
	ByEnvironment      Dimension = func(t dataset.Ticket) string { return t.Environment }
	ByTeam             Dimension = func(t dataset.Ticket) string { return t.TeamAssigned }
	ByPriority         Dimension = func(t dataset.Ticket) string { return t.Priority }
	ByClient           Dimension = func(t dataset.Ticket) string { return t.Derived.Client }
	ByOwner            Dimension = func(t dataset.Ticket) string { return t.Derived.Owner }
	ByType             Dimension = func(t dataset.Ticket) string { return t.Type }
	ByOrigin           Dimension = func(t dataset.Ticket) string { return t.Origin }
	ByResolutionStatus Dimension = func(t dataset.Ticket) string { return t.ResolutionStatus }
)

// Dimensions maps the names accepted by the HTTP layer.
var Dimensions = map[string]Dimension{
	"status":            ByStatus,
	"commercial_status": ByCommercialStatus,
	"module":            ByModule,
	"environment":       ByEnvironment,
	"team":              ByTeam,
	"priority":          ByPriority,
	"client":            ByClient,
	"owner":             ByOwner,
	"type":              ByType,
	"origin":            ByOrigin,
	"resolution_status": ByResolutionStatus,
}

func keyOf(dim Dimension, t dataset.Ticket) string {
	if v := strings.TrimSpace(dim(t)); v != "" {
		return v
	}
	return BlankKey
}

// Rate is hits over total. Percent is nil when total is zero.
type Rate struct {
	Hits    int      `json:"hits"`
	Total   int      `json:"total"`
	Percent *float64 `json:"percent"`
}

func NewRate(hits, total int) Rate {
	r := Rate{Hits: hits, Total: total}
	if total > 0 {
		p := decimal.NewFromInt(int64(hits)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(total))).
			Round(2).
			InexactFloat64()
		r.Percent = &p
	}
	return r
}

// Count is the number of distinct ticket ids sharing a key.
type Count struct {
	Key   string `json:"key"`
	Value int    `json:"value"`
}

// distinct counts ticket ids, so duplicate rows count once.
type distinct map[string]struct{}

func (d distinct) add(id string) { d[id] = struct{}{} }

// eachTicket visits the view once per ticket id. The first row of a
// duplicated id wins.
func eachTicket(v filter.View, fn func(t dataset.Ticket)) {
	seen := make(distinct, v.Len())
	v.Each(func(t dataset.Ticket) {
		if _, ok := seen[t.ID]; ok {
			return
		}
		seen.add(t.ID)
		fn(t)
	})
}

// CountBy counts distinct tickets per dimension value, largest first.
func CountBy(v filter.View, dim Dimension) []Count {
	groups := make(map[string]distinct)
	v.Each(func(t dataset.Ticket) {
		k := keyOf(dim, t)
		if groups[k] == nil {
			groups[k] = make(distinct)
		}
		groups[k].add(t.ID)
	})
	out := make([]Count, 0, len(groups))
	for k, ids := range groups {
		out = append(out, Count{Key: k, Value: len(ids)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// VolumeStats summarises ticket volume.
type VolumeStats struct {
	Total      int  `json:"total"`
	Resolved   int  `json:"resolved"`
	Open       int  `json:"open"`
	Productive int  `json:"productive"`
	Resolution Rate `json:"resolution_rate"`
}

// Volume counts distinct tickets in the view.
func Volume(v filter.View) VolumeStats {
	all, resolved, productive := make(distinct), make(distinct), make(distinct)
	v.Each(func(t dataset.Ticket) {
		all.add(t.ID)
		if t.Derived.IsResolved {
			resolved.add(t.ID)
		}
		if t.Derived.Productive {
			productive.add(t.ID)
		}
	})
	return VolumeStats{
		Total:      len(all),
		Resolved:   len(resolved),
		Open:       len(all) - len(resolved),
		Productive: len(productive),
		Resolution: NewRate(len(resolved), len(all)),
	}
}

// SLAStats counts tickets per SLA state. Rate only considers tickets whose
// compliance is determinable.
type SLAStats struct {
	Met           int  `json:"met"`
	Missed        int  `json:"missed"`
	Pending       int  `json:"pending"`
	NotApplicable int  `json:"not_applicable"`
	Rate          Rate `json:"rate"`
}

func (s *SLAStats) add(state dataset.SLAState) {
	switch state {
	case dataset.SLAMet:
		s.Met++
	case dataset.SLAMissed:
		s.Missed++
	case dataset.SLAPending:
		s.Pending++
	default:
		s.NotApplicable++
	}
}

// SLACompliance returns the share of met SLAs among met and missed ones.
// Pending and not applicable tickets are counted apart. Each ticket id
// counts once.
func SLACompliance(v filter.View) SLAStats {
	var s SLAStats
	eachTicket(v, func(t dataset.Ticket) { s.add(t.Derived.SLA) })
	s.Rate = NewRate(s.Met, s.Met+s.Missed)
	return s
}

// Summary is the set of KPI cards of a view.
type Summary struct {
	Volume     VolumeStats   `json:"volume"`
	SLA        SLAStats      `json:"sla"`
	Resolution DurationStats `json:"resolution_hours"`
	ByStatus   []Count       `json:"by_status"`
	ByModule   []Count       `json:"by_module"`
	ByEnv      []Count       `json:"by_environment"`
	ByTeam     []Count       `json:"by_team"`
}

func Summarize(v filter.View) Summary {
	return Summary{
		Volume:     Volume(v),
		SLA:        SLACompliance(v),
		Resolution: ResolutionStats(v),
		ByStatus:   CountBy(v, ByStatus),
		ByModule:   CountBy(v, ByModule),
		ByEnv:      CountBy(v, ByEnvironment),
		ByTeam:     CountBy(v, ByTeam),
	}
}
