package exporter

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/quality"
	"ticket-kpi-exporter/internal/session"
)

func hours(h float64) *float64 { return &h }

func sample() *session.Dataset {
	derived := func(state dataset.SLAState, h *float64) dataset.Derived {
		d := dataset.Derived{StatusGroup: "Resuelto", Client: "ACME", SLA: state, ResolutionHours: h}
		if h != nil {
			d.BusinessResolutionHours = hours(*h / 2)
		}
		return d
	}
	return &session.Dataset{
		LoadedAt: time.Unix(1700000000, 0),
		Tickets: []dataset.Ticket{
			{ID: "1", Priority: "Alta", Module: "Agenda", Derived: derived(dataset.SLAMet, hours(4))},
			{ID: "1", Priority: "Alta", Module: "Agenda", Derived: derived(dataset.SLAMet, hours(4))},
			{ID: "2", Priority: "Alta", Module: "Agenda", Derived: derived(dataset.SLAMissed, hours(8))},
			{ID: "3", Priority: "", Module: "Agenda", Derived: derived(dataset.SLAPending, nil)},
		},
		TicketReport: &quality.Report{Source: "tickets.csv", TotalRows: 5, ValidRows: 4, ExcludedRows: []int{5}, Issues: []quality.Issue{
			{Kind: quality.MissingRequired, Severity: quality.Fatal, Row: 5},
			{Kind: quality.DuplicateID, Severity: quality.Advisory, Row: 1, Related: []int{2}},
		}},
		Logins: []dataset.Login{{Client: "ACME", Year: 2024, Month: time.January, Count: 12}},
	}
}

func TestUpdate(t *testing.T) {
	e := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, e.Register(reg))

	e.Update(sample())

	assert.Equal(t, 2.0, testutil.ToFloat64(e.ticketCount.WithLabelValues("Resuelto", "Alta", "Agenda", "Sin valor", "Sin valor", "ACME")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.slaTickets.WithLabelValues("Alta", "missed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.slaTickets.WithLabelValues("Alta", "met")), "duplicate id counts once")
	assert.Equal(t, 1.0, testutil.ToFloat64(e.slaTickets.WithLabelValues("Sin valor", "pending")))
	assert.Equal(t, 50.0, testutil.ToFloat64(e.slaCompliance.WithLabelValues("Alta")))
	assert.Equal(t, 1, testutil.CollectAndCount(e.slaCompliance))
	assert.Equal(t, 6.0, testutil.ToFloat64(e.resolutionHours.WithLabelValues("Agenda", "calendar", "mean")))
	assert.Equal(t, 3.0, testutil.ToFloat64(e.resolutionHours.WithLabelValues("Agenda", "business", "mean")))
	assert.Equal(t, 12.0, testutil.ToFloat64(e.logins.WithLabelValues("ACME", "2024-01")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.sourceRows.WithLabelValues("tickets.csv", "excluded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.issues.WithLabelValues("tickets.csv", "duplicate_id", "advisory")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(e.loadedAt))
}

func TestUpdateResets(t *testing.T) {
	e := New()
	e.Update(sample())
	e.Update(&session.Dataset{})

	assert.Equal(t, 0, testutil.CollectAndCount(e.ticketCount))
	assert.Equal(t, 0, testutil.CollectAndCount(e.logins))
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, New().Register(reg))
	assert.Error(t, New().Register(reg))
}
