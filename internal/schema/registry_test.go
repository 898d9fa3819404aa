package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		" AÑO ":                                  "ano",
		"Año":                                    "ano",
		"Hora de creación":                       "hora de creacion",
		"Tiempo de resolucion (en horas)":        "tiempo de resolucion en horas",
		"Hora  de\tÚltima actualización":         "hora de ultima actualizacion",
		"Logins ":                                "logins",
		"HabilidadÃ±":                            "habilidadn",
		"Modulo.1":                               "modulo 1",
		"":                                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeKey(in), "NormalizeKey(%q)", in)
	}
}

func TestResolveAliasIsCaseWhitespaceAndDiacriticInsensitive(t *testing.T) {
	logins, err := New("logins", DefaultLoginFields())
	require.NoError(t, err)

	for _, header := range []string{"AÑO", "año", " Año ", "anio", "ANIO", "ano"} {
		name, ok := logins.ResolveAlias(header)
		assert.True(t, ok, header)
		assert.Equal(t, FieldYear, name, header)
	}

	name, ok := logins.ResolveAlias("Logins ")
	require.True(t, ok)
	assert.Equal(t, FieldLoginCount, name)

	_, ok = logins.ResolveAlias("comentarios")
	assert.False(t, ok)
}

func TestDefaultTicketRegistry(t *testing.T) {
	tickets, err := New("tickets", DefaultTicketFields())
	require.NoError(t, err)

	assert.Equal(t, []string{FieldID, FieldCreatedAt}, tickets.RequiredFields())
	assert.Contains(t, tickets.OptionalFields(), FieldDueAt)
	assert.NotContains(t, tickets.OptionalFields(), FieldID)

	for header, want := range map[string]string{
		"ID del ticket":                          FieldID,
		"Hora de creación":                       FieldCreatedAt,
		"HORA DE RESOLUCION":                     FieldResolvedAt,
		"Tiempo de resolución (en horas)":        FieldResolutionTimeHours,
		"Team Asignado":                          FieldTeamAssigned,
		"Módulo":                                 FieldModule,
		"created_at":                             FieldCreatedAt,
	} {
		got, ok := tickets.ResolveAlias(header)
		assert.True(t, ok, header)
		assert.Equal(t, want, got, header)
	}

	f, ok := tickets.Field(FieldStatus)
	require.True(t, ok)
	assert.Equal(t, TypeCategory, f.Type)
	assert.NotEmpty(t, f.Values)
}

func TestNewRejectsAliasCollision(t *testing.T) {
	_, err := New("tickets", []Field{
		{Name: "a", Aliases: []string{"Código"}},
		{Name: "b", Aliases: []string{"codigo"}},
	})
	assert.Error(t, err)

	_, err = New("tickets", []Field{{Name: "a"}, {Name: "a"}})
	assert.Error(t, err)
}

func TestOverride(t *testing.T) {
	fields, err := Override(DefaultLoginFields(), map[string][]string{FieldClient: {"Razón social"}}, nil)
	require.NoError(t, err)
	reg, err := New("logins", fields)
	require.NoError(t, err)

	name, ok := reg.ResolveAlias("RAZON SOCIAL")
	require.True(t, ok)
	assert.Equal(t, FieldClient, name)

	// the defaults stay untouched
	base, err := New("logins", DefaultLoginFields())
	require.NoError(t, err)
	_, ok = base.ResolveAlias("razon social")
	assert.False(t, ok)

	_, err = Override(DefaultLoginFields(), map[string][]string{"nope": {"x"}}, nil)
	assert.Error(t, err)

	_, err = Override(DefaultLoginFields(), nil, map[string][]CategoryValue{FieldClient: {{Label: "x"}}})
	assert.Error(t, err)
}

func TestMismatchErrorNamesFields(t *testing.T) {
	err := &MismatchError{Kind: "logins", Missing: []string{FieldMonth, FieldYear}}
	assert.Equal(t, "logins report: required column(s) not found: month, year", err.Error())
}
