package metrics

import (
	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/filter"
)

// Basis selects the timestamp a ticket is bucketed by.
type Basis string

const (
	// Created buckets by creation period: tickets opened in a month.
	Created Basis = "created"
	// Resolved buckets by resolved_at, else closed_at: tickets resolved in a month.
	Resolved Basis = "resolved"
)

func (b Basis) period(t dataset.Ticket) dataset.Period {
	if b == Resolved {
		return t.Derived.ResolvedPeriod
	}
	return t.Derived.Period
}

// Point is one entry of a trend series.
type Point struct {
	Period dataset.Period `json:"period"`
	Value  int            `json:"value"`
}

// RatePoint is one entry of a rate series.
type RatePoint struct {
	Period dataset.Period `json:"period"`
	Rate   Rate           `json:"rate"`
}

// periodRange returns every month between the earliest and latest observed
// period, in order.
func periodRange(seen map[dataset.Period]struct{}) []dataset.Period {
	var lo, hi dataset.Period
	first := true
	for p := range seen {
		if first || p.Before(lo) {
			lo = p
		}
		if first || hi.Before(p) {
			hi = p
		}
		first = false
	}
	if first {
		return nil
	}
	out := make([]dataset.Period, 0, hi.Index()-lo.Index()+1)
	for p := lo; !hi.Before(p); p = p.Next() {
		out = append(out, p)
	}
	return out
}

// Trend counts distinct tickets per period, chronologically, with zero
// entries for empty months inside the observed range.
func Trend(v filter.View, basis Basis) []Point {
	buckets := make(map[dataset.Period]distinct)
	seen := make(map[dataset.Period]struct{})
	v.Each(func(t dataset.Ticket) {
		p := basis.period(t)
		if p.IsZero() {
			return
		}
		seen[p] = struct{}{}
		if buckets[p] == nil {
			buckets[p] = make(distinct)
		}
		buckets[p].add(t.ID)
	})
	periods := periodRange(seen)
	out := make([]Point, 0, len(periods))
	for _, p := range periods {
		out = append(out, Point{Period: p, Value: len(buckets[p])})
	}
	return out
}

// SLATrend is the SLA compliance rate per creation period. Months without a
// determinable ticket carry a nil percent.
func SLATrend(v filter.View) []RatePoint {
	stats := make(map[dataset.Period]*SLAStats)
	seen := make(map[dataset.Period]struct{})
	eachTicket(v, func(t dataset.Ticket) {
		p := t.Derived.Period
		if p.IsZero() {
			return
		}
		seen[p] = struct{}{}
		if stats[p] == nil {
			stats[p] = &SLAStats{}
		}
		stats[p].add(t.Derived.SLA)
	})
	periods := periodRange(seen)
	out := make([]RatePoint, 0, len(periods))
	for _, p := range periods {
		var met, missed int
		if s := stats[p]; s != nil {
			met, missed = s.Met, s.Missed
		}
		out = append(out, RatePoint{Period: p, Rate: NewRate(met, met+missed)})
	}
	return out
}
