package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/filter"
)

// Measure extracts an optional duration in hours.
type Measure func(t dataset.Ticket) *float64

var (
	ResolutionHours         Measure = func(t dataset.Ticket) *float64 { return t.Derived.ResolutionHours }
	BusinessResolutionHours Measure = func(t dataset.Ticket) *float64 { return t.Derived.BusinessResolutionHours }
	FirstResponseHours      Measure = func(t dataset.Ticket) *float64 { return t.FirstResponseHours }
)

// Measures maps the names accepted by the HTTP layer.
var Measures = map[string]Measure{
	"resolution":          ResolutionHours,
	"business_resolution": BusinessResolutionHours,
	"first_response":      FirstResponseHours,
}

// DurationStats describes the non-null values of a measure. Mean and Median
// are nil when Count is zero.
type DurationStats struct {
	Key    string   `json:"key,omitempty"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
}

// ResolutionStats is the mean and median resolution time of the view.
func ResolutionStats(v filter.View) DurationStats {
	var values []float64
	eachTicket(v, func(t dataset.Ticket) {
		if h := ResolutionHours(t); h != nil {
			values = append(values, *h)
		}
	})
	return describe("", values)
}

// DurationsBy groups a measure by dimension, sorted by key. Tickets with a
// null measure are left out of their group; a duplicated id counts once.
func DurationsBy(v filter.View, dim Dimension, m Measure) []DurationStats {
	groups := make(map[string][]float64)
	eachTicket(v, func(t dataset.Ticket) {
		if h := m(t); h != nil {
			k := keyOf(dim, t)
			groups[k] = append(groups[k], *h)
		}
	})
	out := make([]DurationStats, 0, len(groups))
	for k, values := range groups {
		out = append(out, describe(k, values))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func describe(key string, values []float64) DurationStats {
	s := DurationStats{Key: key, Count: len(values)}
	if len(values) == 0 {
		return s
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2).InexactFloat64()
	s.Mean = &mean

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	med := decimal.NewFromFloat(sorted[mid])
	if len(sorted)%2 == 0 {
		med = med.Add(decimal.NewFromFloat(sorted[mid-1])).Div(decimal.NewFromInt(2))
	}
	median := med.Round(2).InexactFloat64()
	s.Median = &median
	return s
}
