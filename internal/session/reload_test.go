package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-kpi-exporter/internal/config"
	"ticket-kpi-exporter/internal/normalize"
	"ticket-kpi-exporter/internal/pipeline"
	"ticket-kpi-exporter/internal/preprocess"
)

const reportCSV = `ID del ticket,Estado,Prioridad,Hora de creación,Grupo
1,Abierto,Alta,2024-01-05 09:00,ACME
2,Abierto,Baja,2024-01-06 09:00,ACME
`

const loginsCSV = "Cliente,Logins,Mes,Año\nACME,120,1,2024\n"

func newPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	c := config.Default()
	tickets, logins, err := c.Registries()
	require.NoError(t, err)
	nopts, err := c.NormalizerOptions()
	require.NoError(t, err)
	popts, err := c.PreprocessOptions(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return pipeline.New(pipeline.Options{
		Tickets:      tickets,
		Logins:       logins,
		Normalizer:   normalize.New(nopts),
		Preprocessor: preprocess.New(popts),
	})
}

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestReloadSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	ticketsPath := filepath.Join(dir, "tickets.csv")
	loginsPath := filepath.Join(dir, "logins.csv")
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	writeFile(t, ticketsPath, reportCSV, base)
	writeFile(t, loginsPath, loginsCSV, base)

	s := New()
	r := NewReloader(s, newPipeline(t), ticketsPath, loginsPath)

	first, err := r.Reload()
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Len(t, first.Tickets, 2)
	assert.Len(t, first.Logins, 1)

	again, err := r.Reload()
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Same(t, first, s.Current())

	writeFile(t, ticketsPath, reportCSV+"3,Abierto,Media,2024-02-01 09:00,Beta\n", base.Add(time.Minute))
	changed, err := r.Reload()
	require.NoError(t, err)
	require.NotNil(t, changed)
	assert.Len(t, changed.Tickets, 3)
	assert.Len(t, changed.Logins, 1)
}

func TestReloadKeepsUploadedReport(t *testing.T) {
	dir := t.TempDir()
	ticketsPath := filepath.Join(dir, "tickets.csv")
	loginsPath := filepath.Join(dir, "logins.csv")
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	writeFile(t, ticketsPath, reportCSV, base)
	writeFile(t, loginsPath, loginsCSV, base)

	p := newPipeline(t)
	s := New()
	r := NewReloader(s, p, ticketsPath, loginsPath)
	_, err := r.Reload()
	require.NoError(t, err)

	uploaded, err := p.Tickets("upload.csv", strings.NewReader(`ID del ticket,Estado,Prioridad,Hora de creación,Grupo
9,Abierto,Alta,2024-05-05 09:00,Beta
`))
	require.NoError(t, err)
	s.Upload(uploaded, nil)

	writeFile(t, ticketsPath, reportCSV+"3,Abierto,Media,2024-02-01 09:00,Beta\n", base.Add(time.Minute))
	ds, err := r.Reload()
	require.NoError(t, err)
	assert.Nil(t, ds)
	require.Len(t, s.Current().Tickets, 1)
	assert.Equal(t, "9", s.Current().Tickets[0].ID)

	writeFile(t, loginsPath, loginsCSV+"Beta,5,2,2024\n", base.Add(time.Minute))
	ds, err = r.Reload()
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Len(t, ds.Logins, 2)
	require.Len(t, ds.Tickets, 1)
	assert.Equal(t, "9", ds.Tickets[0].ID)
}

func TestReloadWithoutFiles(t *testing.T) {
	ds, err := NewReloader(New(), nil, "", "").Reload()
	require.NoError(t, err)
	assert.Nil(t, ds)
}
