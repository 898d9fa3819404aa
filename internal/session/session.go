// Package session holds the base dataset of the running process and
// memoises metric evaluations per filter selection.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/filter"
	"ticket-kpi-exporter/internal/metrics"
	"ticket-kpi-exporter/internal/normalize"
	"ticket-kpi-exporter/internal/pipeline"
	"ticket-kpi-exporter/internal/quality"
)

// ErrNoDataset is returned by Evaluate before any file was loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// Dataset is one immutable snapshot of both reports.
type Dataset struct {
	ID       uuid.UUID
	LoadedAt time.Time

	Tickets        []dataset.Ticket
	TicketReport   *quality.Report
	TicketUnmapped []normalize.UnmappedColumn

	Logins        []dataset.Login
	LoginReport   *quality.Report
	LoginUnmapped []normalize.UnmappedColumn
}

// Result is the evaluation of one filter selection.
type Result struct {
	DatasetID     uuid.UUID             `json:"dataset_id"`
	Spec          filter.Spec           `json:"filters"`
	View          filter.View           `json:"-"`
	Logins        []dataset.Login       `json:"-"`
	Summary       metrics.Summary       `json:"summary"`
	CreatedTrend  []metrics.Point       `json:"created_trend"`
	ResolvedTrend []metrics.Point       `json:"resolved_trend"`
	SLATrend      []metrics.RatePoint   `json:"sla_trend"`
	Usage         []metrics.UsageRow    `json:"usage"`
	LoginPivot    []metrics.YearUsage   `json:"login_pivot"`
}

type Session struct {
	mu      sync.RWMutex
	current *Dataset
	cache   map[string]*Result
	now     func() time.Time

	uploadedTickets bool
	uploadedLogins  bool
}

func New() *Session {
	return &Session{cache: make(map[string]*Result), now: time.Now}
}

// Replace installs a new snapshot and drops every cached evaluation. A nil
// result keeps the previous records of that report.
func (s *Session) Replace(tickets *pipeline.TicketResult, logins *pipeline.LoginResult) *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(tickets, logins)
}

// Upload installs reports received from a user. An uploaded report is no
// longer touched by Refresh.
func (s *Session) Upload(tickets *pipeline.TicketResult, logins *pipeline.LoginResult) *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tickets != nil {
		s.uploadedTickets = true
	}
	if logins != nil {
		s.uploadedLogins = true
	}
	return s.replace(tickets, logins)
}

// Refresh installs reports read from the configured files, skipping the
// ones that were uploaded. It returns nil when nothing was replaced.
func (s *Session) Refresh(tickets *pipeline.TicketResult, logins *pipeline.LoginResult) *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadedTickets {
		tickets = nil
	}
	if s.uploadedLogins {
		logins = nil
	}
	if tickets == nil && logins == nil {
		return nil
	}
	return s.replace(tickets, logins)
}

// Uploaded reports which reports came from an upload.
func (s *Session) Uploaded() (tickets, logins bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploadedTickets, s.uploadedLogins
}

func (s *Session) replace(tickets *pipeline.TicketResult, logins *pipeline.LoginResult) *Dataset {
	ds := &Dataset{ID: uuid.New(), LoadedAt: s.now()}
	if prev := s.current; prev != nil {
		ds.Tickets, ds.TicketReport, ds.TicketUnmapped = prev.Tickets, prev.TicketReport, prev.TicketUnmapped
		ds.Logins, ds.LoginReport, ds.LoginUnmapped = prev.Logins, prev.LoginReport, prev.LoginUnmapped
	}
	if tickets != nil {
		ds.Tickets, ds.TicketReport, ds.TicketUnmapped = tickets.Tickets, tickets.Report, tickets.Unmapped
	}
	if logins != nil {
		ds.Logins, ds.LoginReport, ds.LoginUnmapped = logins.Logins, logins.Report, logins.Unmapped
	}
	s.current = ds
	s.cache = make(map[string]*Result)
	return ds
}

// Current returns the installed snapshot, or nil.
func (s *Session) Current() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Evaluate filters the current snapshot and computes its metrics. Results
// are cached by the canonical form of spec until the next Replace.
func (s *Session) Evaluate(spec filter.Spec) (*Result, error) {
	key := spec.Key()
	s.mu.RLock()
	ds := s.current
	if res, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return res, nil
	}
	s.mu.RUnlock()
	if ds == nil {
		return nil, ErrNoDataset
	}

	res := evaluate(ds, spec)

	s.mu.Lock()
	if s.current == ds {
		s.cache[key] = res
	}
	s.mu.Unlock()
	return res, nil
}

func evaluate(ds *Dataset, spec filter.Spec) *Result {
	v := filter.Apply(ds.Tickets, spec)
	logins := filter.ApplyLogins(ds.Logins, spec)
	return &Result{
		DatasetID:     ds.ID,
		Spec:          spec,
		View:          v,
		Logins:        logins,
		Summary:       metrics.Summarize(v),
		CreatedTrend:  metrics.Trend(v, metrics.Created),
		ResolvedTrend: metrics.Trend(v, metrics.Resolved),
		SLATrend:      metrics.SLATrend(v),
		Usage:         metrics.JoinUsage(v, logins, false),
		LoginPivot:    loginPivot(ds.Logins, spec),
	}
}

// loginPivot compares the latest selected year with the one before it.
// Without a year selection every year in the logins report is shown.
func loginPivot(logins []dataset.Login, spec filter.Spec) []metrics.YearUsage {
	var years []int
	if len(spec.Years) > 0 {
		latest := spec.Years[0]
		for _, y := range spec.Years[1:] {
			if y > latest {
				latest = y
			}
		}
		years = filter.ComparisonYears(latest)
	}
	byClient := spec
	byClient.Years = nil
	return metrics.LoginPivot(filter.ApplyLogins(logins, byClient), years)
}
