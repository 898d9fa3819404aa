package filter

import (
	"ticket-kpi-exporter/internal/dataset"
)

// ApplyLogins filters login rows by the dimensions they carry: years and
// clients. The other dimensions do not restrict logins.
func ApplyLogins(logins []dataset.Login, spec Spec) []dataset.Login {
	if spec.empty {
		return []dataset.Login{}
	}
	years := intSet(spec.Years)
	clients := newKeySet(spec.Clients)
	out := make([]dataset.Login, 0, len(logins))
	for _, l := range logins {
		if matchInt(years, l.Year) && matchKey(clients, l.Client) {
			out = append(out, l)
		}
	}
	return out
}
