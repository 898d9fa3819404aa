// Package pipeline chains the loader, normalizer, validator and
// preprocessor over one uploaded file.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/loader"
	"ticket-kpi-exporter/internal/normalize"
	"ticket-kpi-exporter/internal/preprocess"
	"ticket-kpi-exporter/internal/quality"
	"ticket-kpi-exporter/internal/schema"
	"ticket-kpi-exporter/internal/validate"
)

type Options struct {
	Tickets      *schema.Registry
	Logins       *schema.Registry
	Normalizer   *normalize.Normalizer
	Preprocessor *preprocess.Preprocessor
	Logger       logrus.FieldLogger
	// Clock, when set, dates each ticket file as of the time it is processed.
	Clock func() time.Time
}

type Pipeline struct {
	tickets, logins *schema.Registry
	normalizer      *normalize.Normalizer
	pre             *preprocess.Preprocessor
	log             logrus.FieldLogger
	clock           func() time.Time
}

func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Pipeline{
		tickets:    opts.Tickets,
		logins:     opts.Logins,
		normalizer: opts.Normalizer,
		pre:        opts.Preprocessor,
		log:        log,
		clock:      opts.Clock,
	}
}

// TicketResult is the enriched valid subset of a commercial report and the
// account of everything skipped or flagged.
type TicketResult struct {
	Tickets  []dataset.Ticket
	Report   *quality.Report
	Unmapped []normalize.UnmappedColumn
}

// LoginResult is the valid subset of a logins report.
type LoginResult struct {
	Logins   []dataset.Login
	Report   *quality.Report
	Unmapped []normalize.UnmappedColumn
}

// Tickets runs a commercial report through every stage. Only a file that
// cannot be read as a table or lacks a required column returns an error.
func (p *Pipeline) Tickets(name string, r io.Reader) (*TicketResult, error) {
	res, err := p.run(name, r, p.tickets)
	if err != nil {
		return nil, err
	}
	pre := p.pre
	if p.clock != nil {
		pre = pre.At(p.clock())
	}
	tickets, issues := pre.Derive(dataset.TicketsFromRows(res.Rows))
	res.Report.Add(issues...)
	p.logReport(res.Report)
	return &TicketResult{Tickets: tickets, Report: res.Report, Unmapped: res.unmapped}, nil
}

// Logins runs a logins report through the loader, normalizer and validator.
func (p *Pipeline) Logins(name string, r io.Reader) (*LoginResult, error) {
	res, err := p.run(name, r, p.logins)
	if err != nil {
		return nil, err
	}
	p.logReport(res.Report)
	return &LoginResult{Logins: dataset.LoginsFromRows(res.Rows), Report: res.Report, Unmapped: res.unmapped}, nil
}

func (p *Pipeline) TicketsFile(path string) (*TicketResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Tickets(filepath.Base(path), f)
}

func (p *Pipeline) LoginsFile(path string) (*LoginResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Logins(filepath.Base(path), f)
}

type validated struct {
	validate.Result
	unmapped []normalize.UnmappedColumn
}

func (p *Pipeline) run(name string, r io.Reader, reg *schema.Registry) (*validated, error) {
	log := p.log.WithFields(logrus.Fields{"source": name, "kind": reg.Kind()})

	raw, err := loader.Load(name, r)
	if err != nil {
		log.WithError(err).Error("load failed")
		return nil, err
	}
	log.WithFields(logrus.Fields{"rows": len(raw.Rows), "encoding": raw.Encoding, "sheet": raw.Sheet}).Debug("loaded")

	table, err := p.normalizer.Normalize(raw, reg)
	if err != nil {
		log.WithError(err).Error("normalize failed")
		return nil, fmt.Errorf("normalize %s: %w", name, err)
	}
	for _, w := range raw.Warnings {
		table.Issues = append(table.Issues, quality.Issue{
			Kind:     quality.MalformedRow,
			Severity: quality.Advisory,
			Row:      w.Line,
			Message:  w.Message,
		})
	}
	for _, u := range table.Unmapped {
		log.WithFields(logrus.Fields{"header": u.Header, "reason": u.Reason}).Debug("unmapped column")
	}

	return &validated{Result: validate.Validate(table, reg), unmapped: table.Unmapped}, nil
}

func (p *Pipeline) logReport(r *quality.Report) {
	s := r.Summary()
	log := p.log.WithFields(logrus.Fields{
		"source":   s.Source,
		"rows":     s.TotalRows,
		"valid":    s.ValidRows,
		"excluded": s.Excluded,
		"fatal":    s.Fatal,
		"advisory": s.Advisory,
	})
	if s.Excluded > 0 {
		log.Warn("rows excluded")
		return
	}
	log.Info("file processed")
}
