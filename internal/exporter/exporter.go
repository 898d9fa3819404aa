// Package exporter mirrors the KPIs of the unfiltered dataset as Prometheus
// gauges.
package exporter

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/filter"
	"ticket-kpi-exporter/internal/metrics"
	"ticket-kpi-exporter/internal/quality"
	"ticket-kpi-exporter/internal/session"
)

type Exporter struct {
	ticketCount     *prometheus.GaugeVec
	slaTickets      *prometheus.GaugeVec
	slaCompliance   *prometheus.GaugeVec
	resolutionHours *prometheus.GaugeVec
	logins          *prometheus.GaugeVec
	sourceRows      *prometheus.GaugeVec
	issues          *prometheus.GaugeVec
	loadedAt        prometheus.Gauge
}

func New() *Exporter {
	return &Exporter{
		ticketCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kpi_ticket_count",
				Help: "Number of distinct tickets by status, priority, module, environment, team and client.",
			},
			[]string{"status", "priority", "module", "environment", "team", "client"},
		),
		slaTickets: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kpi_ticket_sla",
				Help: "Tickets by priority and SLA state (met, missed, pending, not_applicable).",
			},
			[]string{"priority", "state"},
		),
		slaCompliance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kpi_sla_compliance_percent",
				Help: "Met over determinable SLAs by priority. Absent when nothing is determinable.",
			},
			[]string{"priority"},
		),
		resolutionHours: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kpi_resolution_hours",
				Help: "Mean and median resolution time in hours by module, in calendar or business hours.",
			},
			[]string{"module", "clock", "stat"},
		),
		logins: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kpi_logins",
				Help: "Logins by client and period.",
			},
			[]string{"client", "period"},
		),
		sourceRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kpi_source_rows",
				Help: "Rows read from each source file by outcome (total, valid, excluded).",
			},
			[]string{"source", "outcome"},
		),
		issues: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kpi_validation_issues",
				Help: "Data quality issues by source, kind and severity.",
			},
			[]string{"source", "kind", "severity"},
		),
		loadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kpi_dataset_loaded_timestamp_seconds",
			Help: "Unix time the current dataset was loaded.",
		}),
	}
}

// Register adds every collector to reg.
func (e *Exporter) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		e.ticketCount, e.slaTickets, e.slaCompliance, e.resolutionHours,
		e.logins, e.sourceRows, e.issues, e.loadedAt,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Update resets the gauges and fills them from ds.
func (e *Exporter) Update(ds *session.Dataset) {
	e.ticketCount.Reset()
	e.slaTickets.Reset()
	e.slaCompliance.Reset()
	e.resolutionHours.Reset()
	e.logins.Reset()
	e.sourceRows.Reset()
	e.issues.Reset()
	if ds == nil {
		return
	}
	e.loadedAt.Set(float64(ds.LoadedAt.Unix()))

	type ticketLabels [6]string
	counted := make(map[ticketLabels]map[string]struct{})
	byPriority := make(map[string][]dataset.Ticket)
	for _, t := range ds.Tickets {
		key := ticketLabels{
			label(t.Derived.StatusGroup), label(t.Priority), label(t.Module),
			label(t.Environment), label(t.TeamAssigned), label(t.Derived.Client),
		}
		if counted[key] == nil {
			counted[key] = make(map[string]struct{})
		}
		counted[key][t.ID] = struct{}{}
		byPriority[key[1]] = append(byPriority[key[1]], t)
	}
	for key, ids := range counted {
		e.ticketCount.WithLabelValues(key[:]...).Set(float64(len(ids)))
	}

	for prio, tickets := range byPriority {
		sla := metrics.SLACompliance(filter.All(tickets))
		e.slaTickets.WithLabelValues(prio, string(dataset.SLAMet)).Set(float64(sla.Met))
		e.slaTickets.WithLabelValues(prio, string(dataset.SLAMissed)).Set(float64(sla.Missed))
		e.slaTickets.WithLabelValues(prio, string(dataset.SLAPending)).Set(float64(sla.Pending))
		e.slaTickets.WithLabelValues(prio, string(dataset.SLANotApplicable)).Set(float64(sla.NotApplicable))
		if sla.Rate.Percent != nil {
			e.slaCompliance.WithLabelValues(prio).Set(*sla.Rate.Percent)
		}
	}

	all := filter.All(ds.Tickets)
	for clock, m := range map[string]metrics.Measure{
		"calendar": metrics.ResolutionHours,
		"business": metrics.BusinessResolutionHours,
	} {
		for _, d := range metrics.DurationsBy(all, metrics.ByModule, m) {
			e.resolutionHours.WithLabelValues(d.Key, clock, "mean").Set(*d.Mean)
			e.resolutionHours.WithLabelValues(d.Key, clock, "median").Set(*d.Median)
		}
	}

	for _, lt := range metrics.LoginTotals(ds.Logins) {
		e.logins.WithLabelValues(lt.Client, lt.Period.String()).Set(float64(lt.Logins))
	}

	e.report(ds.TicketReport)
	e.report(ds.LoginReport)
}

func (e *Exporter) report(r *quality.Report) {
	if r == nil {
		return
	}
	s := r.Summary()
	e.sourceRows.WithLabelValues(s.Source, "total").Set(float64(s.TotalRows))
	e.sourceRows.WithLabelValues(s.Source, "valid").Set(float64(s.ValidRows))
	e.sourceRows.WithLabelValues(s.Source, "excluded").Set(float64(s.Excluded))
	for _, issue := range r.Issues {
		e.issues.WithLabelValues(s.Source, string(issue.Kind), string(issue.Severity)).Inc()
	}
}

func label(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return metrics.BlankKey
	}
	return v
}
