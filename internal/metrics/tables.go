package metrics

import (
	"sort"
	"strings"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/filter"
	"ticket-kpi-exporter/internal/schema"
)

// Months is a January..December row.
type Months [12]int

func (m Months) Total() int {
	var n int
	for _, v := range m {
		n += v
	}
	return n
}

// CrossRow is one dimension value of a cross-tab.
type CrossRow struct {
	Key    string `json:"key"`
	Months Months `json:"months"`
	Total  int    `json:"total"`
}

// CrossTab counts distinct tickets per dimension value and calendar month.
// OutOfSLA is only set by ResolutionCrossTab.
type CrossTab struct {
	Rows     []CrossRow   `json:"rows"`
	Totals   Months       `json:"totals"`
	Total    int          `json:"total"`
	OutOfSLA *OutOfSLARow `json:"out_of_sla,omitempty"`
}

// OutOfSLARow is violated over within-SLA tickets per month, as a percent.
// A month without within-SLA tickets reads 0.
type OutOfSLARow struct {
	Months [12]float64 `json:"months"`
	Total  float64     `json:"total"`
}

// MonthTable builds the cross-tab of dim by month of basis. Rows are sorted
// by key and the totals add the row counts.
func MonthTable(v filter.View, dim Dimension, basis Basis) CrossTab {
	cells := make(map[string]*[12]distinct)
	v.Each(func(t dataset.Ticket) {
		p := basis.period(t)
		if p.IsZero() {
			return
		}
		k := keyOf(dim, t)
		row := cells[k]
		if row == nil {
			row = &[12]distinct{}
			cells[k] = row
		}
		m := int(p.Month) - 1
		if row[m] == nil {
			row[m] = make(distinct)
		}
		row[m].add(t.ID)
	})

	tab := CrossTab{Rows: make([]CrossRow, 0, len(cells))}
	for k, row := range cells {
		cr := CrossRow{Key: k}
		for m, ids := range row {
			cr.Months[m] = len(ids)
			tab.Totals[m] += len(ids)
		}
		cr.Total = cr.Months.Total()
		tab.Rows = append(tab.Rows, cr)
	}
	sort.Slice(tab.Rows, func(i, j int) bool { return tab.Rows[i].Key < tab.Rows[j].Key })
	tab.Total = tab.Totals.Total()
	return tab
}

// ResolutionCrossTab is the resolution status by creation month table with
// the out of SLA row appended.
func ResolutionCrossTab(v filter.View) CrossTab {
	tab := MonthTable(v, ByResolutionStatus, Created)
	var violated, within Months
	for _, row := range tab.Rows {
		switch classifyResolution(row.Key) {
		case schema.ResolutionViolated:
			violated = row.Months
		case schema.ResolutionWithinSLA:
			within = row.Months
		}
	}
	out := &OutOfSLARow{}
	for m := range out.Months {
		out.Months[m] = percentOrZero(violated[m], within[m])
	}
	out.Total = percentOrZero(violated.Total(), within.Total())
	tab.OutOfSLA = out
	return tab
}

func percentOrZero(hits, total int) float64 {
	if p := NewRate(hits, total).Percent; p != nil {
		return *p
	}
	return 0
}

func classifyResolution(label string) string {
	key := schema.NormalizeKey(label)
	switch {
	case strings.Contains(key, "incumpl"), strings.Contains(key, "no cumplido"),
		strings.Contains(key, "sla") && strings.Contains(key, "violat"):
		return schema.ResolutionViolated
	case strings.Contains(key, "cumplido"), strings.Contains(key, "within"):
		return schema.ResolutionWithinSLA
	}
	return ""
}

// Flow is tickets created against tickets resolved per month of one year.
type Flow struct {
	Year     int    `json:"year"`
	Created  Months `json:"created"`
	Resolved Months `json:"resolved"`
}

func (f Flow) CreatedTotal() int  { return f.Created.Total() }
func (f Flow) ResolvedTotal() int { return f.Resolved.Total() }

// MonthlyFlow counts distinct tickets created in and resolved in each month
// of year. A zero year counts every year by calendar month.
func MonthlyFlow(v filter.View, year int) Flow {
	var created, resolved [12]distinct
	add := func(set *[12]distinct, p dataset.Period, id string) {
		if p.IsZero() || (year != 0 && p.Year != year) {
			return
		}
		m := int(p.Month) - 1
		if set[m] == nil {
			set[m] = make(distinct)
		}
		set[m].add(id)
	}
	v.Each(func(t dataset.Ticket) {
		add(&created, t.Derived.Period, t.ID)
		if t.Derived.IsResolved {
			add(&resolved, t.Derived.ResolvedPeriod, t.ID)
		}
	})
	f := Flow{Year: year}
	for m := 0; m < 12; m++ {
		f.Created[m] = len(created[m])
		f.Resolved[m] = len(resolved[m])
	}
	return f
}
