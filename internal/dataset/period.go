package dataset

import (
	"fmt"
	"time"
)

// Period is a (year, month) bucket.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// PeriodOf buckets t by its calendar month. The zero time yields the zero Period.
func PeriodOf(t time.Time) Period {
	if t.IsZero() {
		return Period{}
	}
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) IsZero() bool { return p.Year == 0 && p.Month == 0 }

// Index is a monotonically increasing month number, handy for ranges.
func (p Period) Index() int { return p.Year*12 + int(p.Month) - 1 }

func (p Period) Before(o Period) bool { return p.Index() < o.Index() }

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// String formats as "2006-01".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MarshalText lets periods key JSON maps.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
