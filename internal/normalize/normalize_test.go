package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-kpi-exporter/internal/loader"
	"ticket-kpi-exporter/internal/quality"
	"ticket-kpi-exporter/internal/schema"
)

func rawTable(headers []string, rows ...[]string) *loader.RawTable {
	t := &loader.RawTable{Source: "test", Headers: headers}
	for i, r := range rows {
		cells := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(r) {
				cells[h] = r[j]
			}
		}
		t.Rows = append(t.Rows, loader.RawRow{Line: i + 1, Cells: cells})
	}
	return t
}

func mustRegistry(t *testing.T, kind string, fields []schema.Field) *schema.Registry {
	t.Helper()
	reg, err := schema.New(kind, fields)
	require.NoError(t, err)
	return reg
}

func TestNormalizeLoginsTrailingSpaceHeader(t *testing.T) {
	reg := mustRegistry(t, "logins", schema.DefaultLoginFields())
	n := New(Options{MonthNames: map[int]string{1: "Enero", 2: "Febrero"}})

	table, err := n.Normalize(rawTable(
		[]string{"Cliente", "Logins ", "Mes", "AÑO", "Comentarios"},
		[]string{"Acme", "120", "Enero", "2024", "ok"},
		[]string{"Beta", "1.234,0", "2", "2024"},
	), reg)
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	count := table.Rows[0].Values[schema.FieldLoginCount]
	assert.Equal(t, schema.TypeInteger, count.Type)
	assert.Equal(t, int64(120), count.Int)
	assert.Equal(t, int64(1), table.Rows[0].Values[schema.FieldMonth].Int)
	assert.Equal(t, int64(2024), table.Rows[0].Values[schema.FieldYear].Int)
	assert.Equal(t, int64(1234), table.Rows[1].Values[schema.FieldLoginCount].Int)

	require.Len(t, table.Unmapped, 1)
	assert.Equal(t, "Comentarios", table.Unmapped[0].Header)
	assert.Equal(t, "raw:Comentarios", table.Unmapped[0].Key)
	assert.Equal(t, "ok", table.Rows[0].Extra["raw:Comentarios"])
	assert.Len(t, table.Issues, 1)
	assert.Equal(t, quality.UnmappedColumn, table.Issues[0].Kind)
}

func TestNormalizeMissingRequiredColumn(t *testing.T) {
	reg := mustRegistry(t, "logins", schema.DefaultLoginFields())

	_, err := New(Options{}).Normalize(rawTable([]string{"cliente", "logins"}), reg)

	var mismatch *schema.MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{schema.FieldMonth, schema.FieldYear}, mismatch.Missing)
}

func TestNormalizeTicketCoercionIsSoft(t *testing.T) {
	reg := mustRegistry(t, "tickets", schema.DefaultTicketFields())

	table, err := New(Options{}).Normalize(rawTable(
		[]string{"ID del ticket", "Hora de creación", "Tiempo de vencimiento", "Estado", "Prioridad", "Etiquetas", "Interacciones del agente"},
		[]string{"T-1", "2024-01-05 09:30:00", "mañana", "Resuelto", "high", "vip; billing, vip", "-2"},
		[]string{"T-2", "45296.5", "", "Waiting on customer", "Altísima"},
	), reg)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	assert.Equal(t, time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC), first.Values[schema.FieldCreatedAt].Time)
	assert.False(t, first.Has(schema.FieldDueAt))
	assert.False(t, first.Has(schema.FieldAgentInteractions))
	assert.Equal(t, schema.StatusResolved, first.Values[schema.FieldStatus].Str)
	assert.Equal(t, schema.PriorityHigh, first.Values[schema.FieldPriority].Str)
	assert.Equal(t, []string{"vip", "billing"}, first.Values[schema.FieldTags].Tags)

	second := table.Rows[1]
	assert.Equal(t, time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), second.Values[schema.FieldCreatedAt].Time)
	assert.Equal(t, schema.StatusOnHold, second.Values[schema.FieldStatus].Str)
	prio := second.Values[schema.FieldPriority]
	assert.False(t, prio.Known)
	assert.Equal(t, "Altísima", prio.Str)

	var coercions []quality.Issue
	for _, is := range table.Issues {
		if is.Kind == quality.Coercion {
			coercions = append(coercions, is)
		}
	}
	require.Len(t, coercions, 2)
	assert.Equal(t, schema.FieldDueAt, coercions[0].Column)
	assert.Equal(t, 1, coercions[0].Row)
	assert.Equal(t, schema.FieldAgentInteractions, coercions[1].Column)
}

func TestNormalizeDuplicateColumnsPreferPopulated(t *testing.T) {
	reg := mustRegistry(t, "tickets", schema.DefaultTicketFields())

	table, err := New(Options{}).Normalize(rawTable(
		[]string{"ID del ticket", "Hora de creacion", "Producto", "Modulo", "Producto.1"},
		[]string{"T-1", "2024-01-05", "No product", "Ventas", "ERP"},
		[]string{"T-2", "2024-01-06", "", "Compras", "CRM"},
	), reg)
	require.NoError(t, err)

	assert.Equal(t, "Producto.1", table.Columns[schema.FieldProduct])
	assert.Equal(t, "ERP", table.Rows[0].Values[schema.FieldProduct].Str)
	require.Len(t, table.Unmapped, 1)
	assert.Equal(t, "Producto", table.Unmapped[0].Header)
	assert.Contains(t, table.Unmapped[0].Reason, "duplicate of product")
}

func TestParseDecimal(t *testing.T) {
	cases := map[string]string{
		"120":       "120",
		"1,5":       "1.5",
		"1.5":       "1.5",
		"1.234,56":  "1234.56",
		"1,234.56":  "1234.56",
		"1.234.567": "1234567",
		"1 234,5":   "1234.5",
		"-3,25":     "-3.25",
	}
	for in, want := range cases {
		d, err := ParseDecimal(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}
	_, err := ParseDecimal("doce")
	assert.Error(t, err)
}

func TestCoerceDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"02:30":    2*time.Hour + 30*time.Minute,
		"26:00:15": 26*time.Hour + 15*time.Second,
		"4h30m":    4*time.Hour + 30*time.Minute,
		"1,5":      90 * time.Minute,
		"0.25":     15 * time.Minute,
	}
	for in, want := range cases {
		v, err := coerceDuration(nil, schema.Field{}, nil, in)
		require.NoError(t, err, in)
		assert.Equal(t, want, v.Dur, in)
	}
	for _, bad := range []string{"-1", "-2h", "ayer"} {
		_, err := coerceDuration(nil, schema.Field{}, nil, bad)
		assert.Error(t, err, bad)
	}
}

func TestCoerceMonth(t *testing.T) {
	n := New(Options{MonthNames: map[int]string{3: "Marzo", 9: "Septiembre"}})
	for in, want := range map[string]int64{"3": 3, "marzo": 3, "SEPTIEMBRE": 9, "sep": 9, "October": 10} {
		v, err := coerceMonth(n, schema.Field{}, nil, in)
		require.NoError(t, err, in)
		assert.Equal(t, want, v.Int, in)
	}
	for _, bad := range []string{"13", "0", "2.5", "Brumario"} {
		_, err := coerceMonth(n, schema.Field{}, nil, bad)
		assert.Error(t, err, bad)
	}
}
