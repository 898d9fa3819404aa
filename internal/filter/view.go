package filter

import (
	"ticket-kpi-exporter/internal/dataset"
)

// View is a logical subset of a base ticket slice. It never writes to the
// base.
type View struct {
	base []dataset.Ticket
	idx  []int
}

// All returns the view over every ticket of base.
func All(base []dataset.Ticket) View {
	idx := make([]int, len(base))
	for i := range base {
		idx[i] = i
	}
	return View{base: base, idx: idx}
}

// Apply filters base by spec. A zero spec yields every ticket.
func Apply(base []dataset.Ticket, spec Spec) View {
	return All(base).Filter(spec)
}

// Filter narrows the view further. Filtering by A then by B is the same as
// filtering by A.And(B).
func (v View) Filter(spec Spec) View {
	if spec.IsZero() {
		return v
	}
	m := compile(spec)
	out := View{base: v.base, idx: make([]int, 0, len(v.idx))}
	for _, i := range v.idx {
		if m.match(&v.base[i]) {
			out.idx = append(out.idx, i)
		}
	}
	return out
}

func (v View) Len() int { return len(v.idx) }

// At returns a copy of the i-th ticket of the view.
func (v View) At(i int) dataset.Ticket { return v.base[v.idx[i]] }

// Each calls fn with a copy of every ticket, in base order.
func (v View) Each(fn func(t dataset.Ticket)) {
	for _, i := range v.idx {
		fn(v.base[i])
	}
}

// Records returns copies of the tickets in the view. Pointer fields are
// shared with the base and must be treated as read-only.
func (v View) Records() []dataset.Ticket {
	out := make([]dataset.Ticket, len(v.idx))
	for n, i := range v.idx {
		out[n] = v.base[i]
	}
	return out
}

type matcher struct {
	years, resolvedYears map[int]struct{}
	clients, teams       keySet
	priorities, modules  keySet
	environments, types  keySet
	productiveOnly       bool
	none                 bool
}

func compile(s Spec) matcher {
	return matcher{
		years:          intSet(s.Years),
		resolvedYears:  intSet(s.ResolvedYears),
		clients:        newKeySet(s.Clients),
		teams:          newKeySet(s.Teams),
		priorities:     newKeySet(s.Priorities),
		modules:        newKeySet(s.Modules),
		environments:   newKeySet(s.Environments),
		types:          newKeySet(s.Types),
		productiveOnly: s.ProductiveOnly,
		none:           s.empty,
	}
}

func intSet(values []int) map[int]struct{} {
	set := make(map[int]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func (m matcher) match(t *dataset.Ticket) bool {
	if m.none {
		return false
	}
	if m.productiveOnly && !t.Derived.Productive {
		return false
	}
	return matchInt(m.years, t.Derived.Period.Year) &&
		matchInt(m.resolvedYears, t.Derived.ResolvedPeriod.Year) &&
		matchKey(m.clients, t.Derived.Client) &&
		matchKey(m.teams, t.TeamAssigned) &&
		matchKey(m.priorities, t.Priority) &&
		matchKey(m.modules, t.Module) &&
		matchKey(m.environments, t.Environment) &&
		matchKey(m.types, t.Type)
}

func matchInt(set map[int]struct{}, v int) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[v]
	return ok
}

func matchKey(set keySet, v string) bool {
	return len(set) == 0 || set.has(v)
}
