package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-kpi-exporter/internal/normalize"
	"ticket-kpi-exporter/internal/quality"
	"ticket-kpi-exporter/internal/schema"
)

func ts(s string) normalize.Value {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return normalize.Value{Type: schema.TypeTimestamp, Time: t, Known: true}
}

func id(s string) normalize.Value {
	return normalize.Value{Type: schema.TypeString, Str: s, Raw: s, Known: true}
}

func ticketRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.New("tickets", schema.DefaultTicketFields())
	require.NoError(t, err)
	return reg
}

func TestValidateExcludesRowsMissingRequiredValues(t *testing.T) {
	table := &normalize.Table{Source: "tickets.xlsx", Rows: []normalize.Row{
		{Line: 1, Values: map[string]normalize.Value{schema.FieldID: id("T-1"), schema.FieldCreatedAt: ts("2024-01-05 10:00")}},
		{Line: 2, Values: map[string]normalize.Value{schema.FieldID: id("T-2")}},
		{Line: 3, Values: map[string]normalize.Value{schema.FieldCreatedAt: ts("2024-01-06 10:00")}},
	}}

	res := Validate(table, ticketRegistry(t))

	require.Len(t, res.Rows, 1)
	assert.Equal(t, 1, res.Rows[0].Line)
	assert.Equal(t, []int{2, 3}, res.Report.ExcludedRows)
	assert.Equal(t, 3, res.Report.TotalRows)
	assert.Equal(t, 1, res.Report.ValidRows)

	missing := res.Report.Filter(quality.MissingRequired)
	require.Len(t, missing, 2)
	assert.Equal(t, schema.FieldCreatedAt, missing[0].Column)
	assert.Equal(t, schema.FieldID, missing[1].Column)
	assert.Equal(t, quality.Fatal, missing[0].Severity)
}

func TestValidateDuplicateIDsRetainedWithOneIssue(t *testing.T) {
	table := &normalize.Table{Rows: []normalize.Row{
		{Line: 1, Values: map[string]normalize.Value{schema.FieldID: id("T-1"), schema.FieldCreatedAt: ts("2024-01-05 10:00")}},
		{Line: 2, Values: map[string]normalize.Value{schema.FieldID: id("T-2"), schema.FieldCreatedAt: ts("2024-01-05 11:00")}},
		{Line: 3, Values: map[string]normalize.Value{schema.FieldID: id("T-1"), schema.FieldCreatedAt: ts("2024-01-07 10:00")}},
	}}

	res := Validate(table, ticketRegistry(t))

	require.Len(t, res.Rows, 3)
	dups := res.Report.Filter(quality.DuplicateID)
	require.Len(t, dups, 1)
	assert.Equal(t, 1, dups[0].Row)
	assert.Equal(t, []int{3}, dups[0].Related)
	assert.Equal(t, "T-1", dups[0].Value)
	assert.Equal(t, quality.Advisory, dups[0].Severity)

	assert.Equal(t, []quality.Kind{quality.DuplicateID}, res.Rows[0].Flags)
	assert.Empty(t, res.Rows[1].Flags)
	assert.Equal(t, []quality.Kind{quality.DuplicateID}, res.Rows[2].Flags)
	// the normalizer's table is left untouched
	assert.Empty(t, table.Rows[0].Flags)
}

func TestValidateDuplicateOfExcludedRowIsNotFlagged(t *testing.T) {
	table := &normalize.Table{Rows: []normalize.Row{
		{Line: 1, Values: map[string]normalize.Value{schema.FieldID: id("T-1"), schema.FieldCreatedAt: ts("2024-01-05 10:00")}},
		{Line: 2, Values: map[string]normalize.Value{schema.FieldID: id("T-1")}},
	}}

	res := Validate(table, ticketRegistry(t))

	require.Len(t, res.Rows, 1)
	assert.Equal(t, []int{2}, res.Report.ExcludedRows)
	assert.Empty(t, res.Report.Filter(quality.DuplicateID))
	assert.Empty(t, res.Rows[0].Flags)
}

func TestValidateOrderingAnomalyIsAdvisory(t *testing.T) {
	table := &normalize.Table{Rows: []normalize.Row{
		{Line: 1, Values: map[string]normalize.Value{
			schema.FieldID:                id("T-1"),
			schema.FieldCreatedAt:         ts("2024-01-05 10:00"),
			schema.FieldFirstResponseTime: {Type: schema.TypeDuration, Dur: 2 * time.Hour, Known: true},
			schema.FieldResolvedAt:        ts("2024-01-05 11:00"),
			schema.FieldClosedAt:          ts("2024-01-06 10:00"),
		}},
		{Line: 2, Values: map[string]normalize.Value{
			schema.FieldID:         id("T-2"),
			schema.FieldCreatedAt:  ts("2024-01-05 10:00"),
			schema.FieldResolvedAt: ts("2024-01-05 12:00"),
			schema.FieldClosedAt:   ts("2024-01-05 13:00"),
		}},
	}}

	res := Validate(table, ticketRegistry(t))

	require.Len(t, res.Rows, 2)
	anomalies := res.Report.Filter(quality.OrderingAnomaly)
	require.Len(t, anomalies, 1)
	assert.Equal(t, 1, anomalies[0].Row)
	assert.Contains(t, anomalies[0].Message, "resolved_at before first_response_time")
	assert.Contains(t, res.Rows[0].Flags, quality.OrderingAnomaly)
}

func TestValidateUnknownCategoryAndCarriedIssues(t *testing.T) {
	table := &normalize.Table{
		Issues: []quality.Issue{{Kind: quality.Coercion, Severity: quality.Advisory, Row: 1, Column: schema.FieldDueAt}},
		Rows: []normalize.Row{{Line: 1, Values: map[string]normalize.Value{
			schema.FieldID:        id("T-1"),
			schema.FieldCreatedAt: ts("2024-01-05 10:00"),
			schema.FieldPriority:  {Type: schema.TypeCategory, Raw: "Altísima", Str: "Altísima"},
		}}},
	}

	res := Validate(table, ticketRegistry(t))

	s := res.Report.Summary()
	assert.Equal(t, 0, s.Fatal)
	assert.Equal(t, 2, s.Advisory)
	assert.Equal(t, 1, s.ByKind[quality.UnknownCategory])
	assert.Equal(t, 1, s.ByKind[quality.Coercion])
	assert.Equal(t, []quality.Kind{quality.UnknownCategory}, res.Rows[0].Flags)
}
