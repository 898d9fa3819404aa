package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ticket-kpi-exporter/internal/config"
	"ticket-kpi-exporter/internal/export"
	"ticket-kpi-exporter/internal/exporter"
	"ticket-kpi-exporter/internal/normalize"
	"ticket-kpi-exporter/internal/pipeline"
	"ticket-kpi-exporter/internal/preprocess"
	"ticket-kpi-exporter/internal/session"
)

const ticketsCSV = `ID del ticket,Estado,Prioridad,Hora de creación,Tiempo de vencimiento,Hora de resolución,Team Asignado,Grupo
1,Resuelto,Alta,2024-01-05 09:00,2024-01-10 18:00,2024-01-08 12:00,Soporte N1,ACME
2,Resuelto,Media,2024-01-06 09:00,2024-01-10 18:00,2024-01-12 12:00,Support L2,ACME
3,Abierto,Baja,2024-02-01 09:00,2024-02-05 18:00,,Desarrollo,Beta
4,Abierto,Baja,2023-02-01 09:00,,,Desarrollo,Beta
`

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	c := config.Default()
	tickets, logins, err := c.Registries()
	require.NoError(t, err)
	nopts, err := c.NormalizerOptions()
	require.NoError(t, err)
	popts, err := c.PreprocessOptions(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	p := pipeline.New(pipeline.Options{
		Tickets:      tickets,
		Logins:       logins,
		Normalizer:   normalize.New(nopts),
		Preprocessor: preprocess.New(popts),
	})

	reg := prometheus.NewRegistry()
	exp := exporter.New()
	require.NoError(t, exp.Register(reg))

	h := NewHandlers(session.New(), p, c.TeamCatalog(), export.NewBuilder(c.MonthNames), exp.Update, nil)
	return NewRouter(h, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func upload(t *testing.T, r *gin.Engine, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestBeforeUpload(t *testing.T) {
	r := newRouter(t)

	w := get(r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "dataset_id")

	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/api/kpis").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/api/validation").Code)
}

func TestUploadAndQuery(t *testing.T) {
	r := newRouter(t)

	w := upload(t, r, "/api/upload/tickets", "reporte.csv", ticketsCSV)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["dataset_id"])

	w = get(r, "/api/kpis?year=2024")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	volume := summary["volume"].(map[string]interface{})
	assert.Equal(t, 3.0, volume["total"])
	sla := summary["sla"].(map[string]interface{})
	rate := sla["rate"].(map[string]interface{})
	assert.Equal(t, 50.0, rate["percent"])
	assert.Len(t, data["created_trend"], 2)

	w = get(r, "/api/kpis?team=Soporte")
	require.Equal(t, http.StatusOK, w.Code)
	volume = decode(t, w)["data"].(map[string]interface{})["summary"].(map[string]interface{})["volume"].(map[string]interface{})
	assert.Equal(t, 2.0, volume["total"])

	w = get(r, "/api/tickets?client=beta&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, 2.0, page["total"])
	assert.Len(t, page["data"], 1)

	w = get(r, "/api/options")
	require.Equal(t, http.StatusOK, w.Code)
	opts := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"Desarrollo", "Soporte"}, opts["teams"])
	assert.Equal(t, []interface{}{2024.0, 2023.0}, opts["years"])

	w = get(r, "/api/validation")
	require.Equal(t, http.StatusOK, w.Code)
	tickets := decode(t, w)["data"].(map[string]interface{})["tickets"].(map[string]interface{})
	assert.Equal(t, 4.0, tickets["summary"].(map[string]interface{})["valid_rows"])

	w = get(r, "/api/tables?dimension=priority&flow_year=2024")
	require.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kpi_ticket_count")
	assert.Contains(t, w.Body.String(), `kpi_source_rows{outcome="valid",source="reporte.csv"} 4`)
}

func TestBadRequests(t *testing.T) {
	r := newRouter(t)
	require.Equal(t, http.StatusOK, upload(t, r, "/api/upload/tickets", "reporte.csv", ticketsCSV).Code)

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/kpis?year=dos-mil").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/tickets?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/tables?dimension=color").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/tables?measure=latency").Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/tables?measure=business_resolution").Code)

	w := upload(t, r, "/api/upload/logins", "logins.csv", "Cliente,Logins\nACME,1\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []interface{}{"month", "year"}, decode(t, w)["missing"])

	w = upload(t, r, "/api/upload/tickets", "reporte.xls", "\xd0\xcf\x11\xe0\xa1\xb1\x1a\xe1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/upload/tickets", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportWorkbook(t *testing.T) {
	r := newRouter(t)
	require.Equal(t, http.StatusOK, upload(t, r, "/api/upload/tickets", "reporte.csv", ticketsCSV).Code)
	logins := "Cliente,Logins,Mes,Año\nACME,120,1,2024\nACME,50,1,2023\n"
	require.Equal(t, http.StatusOK, upload(t, r, "/api/upload/logins", "logins.csv", logins).Code)

	w := get(r, "/api/export.xlsx?year=2024&dimension=priority")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "kpi.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)

	var titles []string
	for _, row := range rows {
		if len(row) > 0 {
			titles = append(titles, row[0])
		}
	}
	assert.Equal(t, "Tickets creados y resueltos por mes", titles[0])
	assert.Contains(t, titles, "Tickets por priority y mes")
	assert.Contains(t, titles, "% Fuera de SLA")
	assert.Contains(t, titles, "Logins por cliente 2023")
	assert.Contains(t, titles, "Logins por cliente 2024")
	assert.Equal(t, []string{"Tickets", "Enero", "Febrero"}, rows[1][:3])
}
