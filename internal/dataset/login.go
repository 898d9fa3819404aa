package dataset

import (
	"time"

	"ticket-kpi-exporter/internal/quality"
)

// Login is one (client, month, year) row of the logins report.
type Login struct {
	Line      int            `json:"line"`
	Client    string         `json:"client"`
	ClientKey string         `json:"-"`
	Count     int64          `json:"logins"`
	Year      int            `json:"year"`
	Month     time.Month     `json:"month"`
	Flags     []quality.Kind `json:"flags,omitempty"`
}

func (l Login) Period() Period {
	return Period{Year: l.Year, Month: l.Month}
}
