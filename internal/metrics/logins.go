package metrics

import (
	"sort"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/filter"
	"ticket-kpi-exporter/internal/schema"
)

// LoginTotal is the number of logins of a client in a period.
type LoginTotal struct {
	Client string         `json:"client"`
	Period dataset.Period `json:"period"`
	Logins int64          `json:"logins"`
}

type usageKey struct {
	client string
	period dataset.Period
}

// LoginTotals sums logins per client and period, ordered by client then
// period. Clients are matched by normalized name; the first spelling seen
// is kept.
func LoginTotals(logins []dataset.Login) []LoginTotal {
	sums := make(map[usageKey]*LoginTotal)
	for _, l := range logins {
		k := usageKey{client: clientKey(l), period: l.Period()}
		lt := sums[k]
		if lt == nil {
			lt = &LoginTotal{Client: l.Client, Period: k.period}
			sums[k] = lt
		}
		lt.Logins += l.Count
	}
	out := make([]LoginTotal, 0, len(sums))
	for _, lt := range sums {
		out = append(out, *lt)
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := schema.NormalizeKey(out[i].Client), schema.NormalizeKey(out[j].Client)
		if ki != kj {
			return ki < kj
		}
		return out[i].Period.Before(out[j].Period)
	})
	return out
}

// ClientUsage is the logins of one client per calendar month of a year.
type ClientUsage struct {
	Client string    `json:"client"`
	Months [12]int64 `json:"months"`
	Total  int64     `json:"total"`
}

// YearUsage is the client by month pivot of one year.
type YearUsage struct {
	Year    int           `json:"year"`
	Clients []ClientUsage `json:"clients"`
}

// LoginPivot sums logins per client and calendar month, one block per year
// in the order of years, busiest client first. Nil years means every year
// present in logins, oldest first. Years without logins are left out.
func LoginPivot(logins []dataset.Login, years []int) []YearUsage {
	type pivotKey struct {
		year   int
		client string
	}
	rows := make(map[pivotKey]*ClientUsage)
	observed := make(map[int]struct{})
	for _, l := range logins {
		if l.Month < 1 || l.Month > 12 {
			continue
		}
		observed[l.Year] = struct{}{}
		k := pivotKey{year: l.Year, client: clientKey(l)}
		row := rows[k]
		if row == nil {
			row = &ClientUsage{Client: l.Client}
			rows[k] = row
		}
		row.Months[l.Month-1] += l.Count
		row.Total += l.Count
	}
	if years == nil {
		for y := range observed {
			years = append(years, y)
		}
		sort.Ints(years)
	}

	out := make([]YearUsage, 0, len(years))
	for _, y := range years {
		if _, ok := observed[y]; !ok {
			continue
		}
		block := YearUsage{Year: y}
		for k, row := range rows {
			if k.year == y {
				block.Clients = append(block.Clients, *row)
			}
		}
		sort.Slice(block.Clients, func(i, j int) bool {
			a, b := block.Clients[i], block.Clients[j]
			if a.Total != b.Total {
				return a.Total > b.Total
			}
			return a.Client < b.Client
		})
		out = append(out, block)
	}
	return out
}

// UsageRow joins ticket volume and logins of a client in a period. Logins
// is nil when the logins report has no row for the pair.
type UsageRow struct {
	Client  string         `json:"client"`
	Period  dataset.Period `json:"period"`
	Tickets int            `json:"tickets"`
	Logins  *int64         `json:"logins"`
}

// JoinUsage joins ticket volume per (client, creation period) with logins.
// The join is a left join from the ticket side. A login centric join keeps
// every login row instead, with zero tickets where none match. Rows are
// ordered by client then period.
func JoinUsage(v filter.View, logins []dataset.Login, loginCentric bool) []UsageRow {
	tickets := make(map[usageKey]distinct)
	names := make(map[string]string)
	v.Each(func(t dataset.Ticket) {
		if t.Derived.Period.IsZero() || t.Derived.Client == "" {
			return
		}
		ck := schema.NormalizeKey(t.Derived.Client)
		k := usageKey{client: ck, period: t.Derived.Period}
		if tickets[k] == nil {
			tickets[k] = make(distinct)
		}
		tickets[k].add(t.ID)
		if _, ok := names[ck]; !ok {
			names[ck] = t.Derived.Client
		}
	})

	used := make(map[usageKey]int64)
	for _, lt := range LoginTotals(logins) {
		k := usageKey{client: schema.NormalizeKey(lt.Client), period: lt.Period}
		used[k] = lt.Logins
		if _, ok := names[k.client]; !ok {
			names[k.client] = lt.Client
		}
	}

	var out []UsageRow
	row := func(k usageKey) UsageRow {
		r := UsageRow{Client: names[k.client], Period: k.period, Tickets: len(tickets[k])}
		if n, ok := used[k]; ok {
			n := n
			r.Logins = &n
		}
		return r
	}
	if loginCentric {
		out = make([]UsageRow, 0, len(used))
		for k := range used {
			out = append(out, row(k))
		}
	} else {
		out = make([]UsageRow, 0, len(tickets))
		for k := range tickets {
			out = append(out, row(k))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := schema.NormalizeKey(out[i].Client), schema.NormalizeKey(out[j].Client)
		if ki != kj {
			return ki < kj
		}
		return out[i].Period.Before(out[j].Period)
	})
	return out
}

func clientKey(l dataset.Login) string {
	if l.ClientKey != "" {
		return l.ClientKey
	}
	return schema.NormalizeKey(l.Client)
}
