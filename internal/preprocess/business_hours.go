package preprocess

import (
	"fmt"
	"time"
)

// BusinessHours counts time inside a daily work window, skipping weekends
// and holidays. The zero value is disabled.
type BusinessHours struct {
	start, end time.Duration
	holidays   map[string]struct{}
	enabled    bool
}

// NewBusinessHours parses "15:04" work hours and "2006-01-02" holidays.
// Empty start and end disable business-hour accounting.
func NewBusinessHours(workStart, workEnd string, holidays []string) (BusinessHours, error) {
	if workStart == "" && workEnd == "" {
		return BusinessHours{}, nil
	}
	ws, err := time.Parse("15:04", workStart)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("parse work start %q: %w", workStart, err)
	}
	we, err := time.Parse("15:04", workEnd)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("parse work end %q: %w", workEnd, err)
	}
	b := BusinessHours{
		start:    time.Duration(ws.Hour())*time.Hour + time.Duration(ws.Minute())*time.Minute,
		end:      time.Duration(we.Hour())*time.Hour + time.Duration(we.Minute())*time.Minute,
		holidays: make(map[string]struct{}, len(holidays)),
		enabled:  true,
	}
	if b.end <= b.start {
		return BusinessHours{}, fmt.Errorf("work end %s is not after work start %s", workEnd, workStart)
	}
	for _, h := range holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return BusinessHours{}, fmt.Errorf("parse holiday %q: %w", h, err)
		}
		b.holidays[h] = struct{}{}
	}
	return b, nil
}

func (b BusinessHours) Enabled() bool { return b.enabled }

// IsWorkday reports whether day is neither a weekend nor a holiday.
func (b BusinessHours) IsWorkday(day time.Time) bool {
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := b.holidays[day.Format("2006-01-02")]
	return !holiday
}

// Between returns the working time in [start, end). It returns 0 when end
// is before start or accounting is disabled.
func (b BusinessHours) Between(start, end time.Time) time.Duration {
	if !b.enabled || !end.After(start) {
		return 0
	}
	var total time.Duration
	for day := midnight(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		if !b.IsWorkday(day) {
			continue
		}
		from, to := day.Add(b.start), day.Add(b.end)
		if start.After(from) {
			from = start
		}
		if end.Before(to) {
			to = end
		}
		if to.After(from) {
			total += to.Sub(from)
		}
	}
	return total
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
