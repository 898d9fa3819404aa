package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-kpi-exporter/internal/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadShippedCatalog(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", DefaultPath))
	require.NoError(t, err)

	assert.Equal(t, ":9100", c.ListenAddr)
	assert.Equal(t, "Diciembre", c.MonthNames[12])

	tickets, logins, err := c.Registries()
	require.NoError(t, err)

	name, ok := tickets.ResolveAlias("MÓDULO AFECTADO")
	require.True(t, ok)
	assert.Equal(t, schema.FieldModule, name)
	name, ok = logins.ResolveAlias("Nombre Cliente")
	require.True(t, ok)
	assert.Equal(t, schema.FieldClient, name)

	interval, err := c.Interval()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, interval)

	opts, err := c.PreprocessOptions(time.Now())
	require.NoError(t, err)
	assert.True(t, opts.BusinessHours.Enabled())
	assert.Equal(t, []string{"Urgente", "Alta", "Media", "Baja"}, opts.PriorityOrder)
}

func TestLoadKeepsDefaultsForMissingSections(t *testing.T) {
	path := writeFile(t, "catalog.yaml", "listen_addr: \":8080\"\nproductive_environments: [live]\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, []string{"live"}, c.ProductiveEnvironments)
	assert.Equal(t, Default().ResolvedStates, c.ResolvedStates)
	assert.Equal(t, "Soporte", c.TeamCatalog().SupportLabel)

	opts, err := c.PreprocessOptions(time.Now())
	require.NoError(t, err)
	assert.False(t, opts.BusinessHours.Enabled())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "listen_addr: [unclosed\n"))
	assert.Error(t, err)

	c := Default()
	c.Columns.Tickets = map[string][]string{"no_such_field": {"x"}}
	_, _, err = c.Registries()
	assert.Error(t, err)

	c = Default()
	c.ReloadInterval = "often"
	_, err = c.Interval()
	assert.Error(t, err)
}

func TestRegistriesExtendResolvedStatuses(t *testing.T) {
	c := Default()
	c.ResolvedStates = append(c.ResolvedStates, "finalizado")

	tickets, _, err := c.Registries()
	require.NoError(t, err)
	status, ok := tickets.Field(schema.FieldStatus)
	require.True(t, ok)
	for _, v := range status.Values {
		if v.Label == schema.StatusResolved {
			assert.Contains(t, v.Synonyms, "finalizado")
		}
	}
}

func TestHolidaysFile(t *testing.T) {
	path := writeFile(t, "holidays.txt", "# feriados\n2024-01-01\n\n 2024-05-01 \n")

	holidays, err := LoadHolidaysFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-05-01"}, holidays)

	c := Default()
	c.WorkHours.Start, c.WorkHours.End = "09:00", "18:00"
	c.HolidaysFile = path
	opts, err := c.PreprocessOptions(time.Now())
	require.NoError(t, err)
	assert.False(t, opts.BusinessHours.IsWorkday(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	c.HolidaysFile = filepath.Join(t.TempDir(), "none.txt")
	_, err = c.PreprocessOptions(time.Now())
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := writeFile(t, ".env", "KPI_LOGINS_FILE=/data/logins.csv\n")
	t.Setenv(EnvTicketsFile, "/data/tickets.csv")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLoginsFile, "")
	os.Unsetenv(EnvLoginsFile)

	require.NoError(t, LoadDotEnv(env, filepath.Join(t.TempDir(), "absent.env")))
	t.Cleanup(func() { os.Unsetenv(EnvLoginsFile) })

	c := Default()
	c.ApplyEnv()
	assert.Equal(t, "/data/tickets.csv", c.TicketsFile)
	assert.Equal(t, "/data/logins.csv", c.LoginsFile)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, ":9100", c.ListenAddr)
}
