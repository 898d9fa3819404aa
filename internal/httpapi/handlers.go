package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ticket-kpi-exporter/internal/dataset"
	"ticket-kpi-exporter/internal/export"
	"ticket-kpi-exporter/internal/filter"
	"ticket-kpi-exporter/internal/loader"
	"ticket-kpi-exporter/internal/metrics"
	"ticket-kpi-exporter/internal/pipeline"
	"ticket-kpi-exporter/internal/schema"
	"ticket-kpi-exporter/internal/session"
)

// Loaded is called after an upload replaced the dataset.
type Loaded func(ds *session.Dataset)

// Handlers serves the session over HTTP. It only translates query
// parameters and serialises results.
type Handlers struct {
	session  *session.Session
	pipeline *pipeline.Pipeline
	teams    filter.TeamCatalog
	book     *export.Builder
	onLoad   Loaded
	log      logrus.FieldLogger
}

// NewHandlers builds the handlers. A nil book labels exported months by
// number.
func NewHandlers(s *session.Session, p *pipeline.Pipeline, teams filter.TeamCatalog, book *export.Builder, onLoad Loaded, log logrus.FieldLogger) *Handlers {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if book == nil {
		book = export.NewBuilder(nil)
	}
	return &Handlers{session: s, pipeline: p, teams: teams, book: book, onLoad: onLoad, log: log}
}

// HealthCheck returns the health status and the loaded dataset id.
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := gin.H{"status": "healthy", "service": "ticket-kpi-exporter"}
	if ds := h.session.Current(); ds != nil {
		resp["dataset_id"] = ds.ID.String()
		resp["loaded_at"] = ds.LoadedAt
	}
	c.JSON(http.StatusOK, resp)
}

// spec binds the filter query. Team values are display labels and are
// expanded to the raw team names of the dataset.
func (h *Handlers) spec(c *gin.Context, ds *session.Dataset) (filter.Spec, bool) {
	var spec filter.Spec
	if err := c.ShouldBindQuery(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return spec, false
	}
	if len(spec.Teams) > 0 {
		if raw := filter.ResolveTeamLabels(spec.Teams, ds.Tickets, h.teams); len(raw) > 0 {
			spec.Teams = raw
		}
	}
	return spec, true
}

func (h *Handlers) evaluate(c *gin.Context) (*session.Result, bool) {
	ds := h.session.Current()
	if ds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": session.ErrNoDataset.Error()})
		return nil, false
	}
	spec, ok := h.spec(c, ds)
	if !ok {
		return nil, false
	}
	res, err := h.session.Evaluate(spec)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return nil, false
	}
	return res, true
}

// GetKPIs returns the KPI cards and trend series of the filtered view.
func (h *Handlers) GetKPIs(c *gin.Context) {
	res, ok := h.evaluate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": res})
}

// GetTickets returns a page of the filtered records.
func (h *Handlers) GetTickets(c *gin.Context) {
	res, ok := h.evaluate(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit", 100)
	if err != nil {
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		return
	}
	records := res.View.Records()
	total := len(records)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"total":  total,
		"data":   records[offset:end],
	})
}

type tableQuery struct {
	dimension string
	dim       metrics.Dimension
	basis     metrics.Basis
	measure   metrics.Measure
	flowYear  int
}

// tables parses the cross-tab parameters: dimension, basis, measure and
// flow_year.
func tables(c *gin.Context) (tableQuery, bool) {
	q := tableQuery{dimension: c.DefaultQuery("dimension", "module")}
	var found bool
	if q.dim, found = metrics.Dimensions[q.dimension]; !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown dimension"})
		return q, false
	}
	q.basis = metrics.Basis(c.DefaultQuery("basis", string(metrics.Created)))
	if q.basis != metrics.Created && q.basis != metrics.Resolved {
		c.JSON(http.StatusBadRequest, gin.H{"error": "basis must be created or resolved"})
		return q, false
	}
	if q.measure, found = metrics.Measures[c.DefaultQuery("measure", "resolution")]; !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown measure"})
		return q, false
	}
	var err error
	if q.flowYear, err = intQuery(c, "flow_year", 0); err != nil {
		return q, false
	}
	return q, true
}

// GetTables returns the monthly cross-tabs of the filtered view.
func (h *Handlers) GetTables(c *gin.Context) {
	res, ok := h.evaluate(c)
	if !ok {
		return
	}
	q, ok := tables(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"data": gin.H{
			"cross_tab":  metrics.MonthTable(res.View, q.dim, q.basis),
			"resolution": metrics.ResolutionCrossTab(res.View),
			"flow":       metrics.MonthlyFlow(res.View, q.flowYear),
			"durations":  metrics.DurationsBy(res.View, q.dim, q.measure),
		},
	})
}

// GetExport downloads the tables of the filtered view as one xlsx sheet.
func (h *Handlers) GetExport(c *gin.Context) {
	res, ok := h.evaluate(c)
	if !ok {
		return
	}
	q, ok := tables(c)
	if !ok {
		return
	}
	blocks := []export.Table{
		h.book.Flow("Tickets creados y resueltos por mes", metrics.MonthlyFlow(res.View, q.flowYear)),
		h.book.CrossTab("Tickets por "+q.dimension+" y mes", q.dimension, metrics.MonthTable(res.View, q.dim, q.basis)),
		h.book.CrossTab("Estado de resolución por mes", "Estado de resolución", metrics.ResolutionCrossTab(res.View)),
	}
	blocks = append(blocks, h.book.Usage("Logins por cliente", res.LoginPivot)...)

	var buf bytes.Buffer
	if err := export.Write(&buf, blocks); err != nil {
		h.log.WithError(err).Error("export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="kpi.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// GetOptions lists the selectable filter values of the dataset.
func (h *Handlers) GetOptions(c *gin.Context) {
	ds := h.session.Current()
	if ds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": session.ErrNoDataset.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"data": gin.H{
			"years":        filter.YearOptions(ds.Tickets),
			"clients":      filter.Options(ds.Tickets, func(t dataset.Ticket) string { return t.Derived.Client }),
			"teams":        filter.TeamOptions(ds.Tickets, h.teams),
			"priorities":   filter.Options(ds.Tickets, func(t dataset.Ticket) string { return t.Priority }),
			"modules":      filter.Options(ds.Tickets, func(t dataset.Ticket) string { return t.Module }),
			"environments": filter.Options(ds.Tickets, func(t dataset.Ticket) string { return t.Environment }),
			"types":        filter.Options(ds.Tickets, func(t dataset.Ticket) string { return t.Type }),
		},
	})
}

// GetValidation returns the data quality report of both files.
func (h *Handlers) GetValidation(c *gin.Context) {
	ds := h.session.Current()
	if ds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": session.ErrNoDataset.Error()})
		return
	}
	data := gin.H{}
	if ds.TicketReport != nil {
		data["tickets"] = gin.H{"summary": ds.TicketReport.Summary(), "issues": ds.TicketReport.Issues, "unmapped": ds.TicketUnmapped}
	}
	if ds.LoginReport != nil {
		data["logins"] = gin.H{"summary": ds.LoginReport.Summary(), "issues": ds.LoginReport.Issues, "unmapped": ds.LoginUnmapped}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "dataset_id": ds.ID.String(), "data": data})
}

// UploadTickets replaces the commercial report with the uploaded file. The
// configured tickets file is not reloaded afterwards.
func (h *Handlers) UploadTickets(c *gin.Context) {
	h.upload(c, func(name string, r io.Reader) (*session.Dataset, error) {
		res, err := h.pipeline.Tickets(name, r)
		if err != nil {
			return nil, err
		}
		return h.session.Upload(res, nil), nil
	})
}

// UploadLogins replaces the logins report with the uploaded file. The
// configured logins file is not reloaded afterwards.
func (h *Handlers) UploadLogins(c *gin.Context) {
	h.upload(c, func(name string, r io.Reader) (*session.Dataset, error) {
		res, err := h.pipeline.Logins(name, r)
		if err != nil {
			return nil, err
		}
		return h.session.Upload(nil, res), nil
	})
}

func (h *Handlers) upload(c *gin.Context, load func(name string, r io.Reader) (*session.Dataset, error)) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	ds, err := load(fh.Filename, f)
	if err != nil {
		var format *loader.FormatError
		var mismatch *schema.MismatchError
		switch {
		case errors.As(err, &mismatch):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "missing": mismatch.Missing})
		case errors.As(err, &format):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			h.log.WithError(err).Error("upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	h.log.WithFields(logrus.Fields{"source": fh.Filename, "dataset_id": ds.ID.String()}).Info("dataset replaced")
	if h.onLoad != nil {
		h.onLoad(ds)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "dataset_id": ds.ID.String()})
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		if err == nil {
			err = errors.New("must not be negative")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": key + ": " + err.Error()})
		return 0, err
	}
	return n, nil
}
