package dataset

import (
	"time"

	"ticket-kpi-exporter/internal/normalize"
	"ticket-kpi-exporter/internal/schema"
)

type rowReader struct {
	normalize.Row
}

func (r rowReader) str(name string) string {
	return r.Values[name].Str
}

func (r rowReader) time(name string) *time.Time {
	v, ok := r.Values[name]
	if !ok {
		return nil
	}
	t := v.Time
	return &t
}

func (r rowReader) dur(name string) *time.Duration {
	v, ok := r.Values[name]
	if !ok {
		return nil
	}
	d := v.Dur
	return &d
}

func (r rowReader) num(name string) *float64 {
	v, ok := r.Values[name]
	if !ok {
		return nil
	}
	n := v.Num
	return &n
}

// TicketsFromRows builds tickets from validated rows. Derived fields are left
// for the preprocessor.
func TicketsFromRows(rows []normalize.Row) []Ticket {
	out := make([]Ticket, 0, len(rows))
	for _, row := range rows {
		r := rowReader{row}
		t := Ticket{
			Line:                 row.Line,
			ID:                   r.str(schema.FieldID),
			Subject:              r.str(schema.FieldSubject),
			Status:               r.str(schema.FieldStatus),
			Priority:             r.str(schema.FieldPriority),
			Origin:               r.str(schema.FieldOrigin),
			Type:                 r.str(schema.FieldType),
			Agent:                r.str(schema.FieldAgent),
			Group:                r.str(schema.FieldGroup),
			DueAt:                r.time(schema.FieldDueAt),
			ResolvedAt:           r.time(schema.FieldResolvedAt),
			ClosedAt:             r.time(schema.FieldClosedAt),
			LastUpdateAt:         r.time(schema.FieldLastUpdateAt),
			FirstResponseTime:    r.dur(schema.FieldFirstResponseTime),
			ElapsedTime:          r.dur(schema.FieldElapsedTime),
			FirstResponseHours:   r.num(schema.FieldFirstResponseHours),
			ResolutionTimeHours:  r.num(schema.FieldResolutionTimeHours),
			AgentInteractions:    row.Values[schema.FieldAgentInteractions].Int,
			CustomerInteractions: row.Values[schema.FieldCustomerInteractions].Int,
			ResolutionStatus:     r.str(schema.FieldResolutionStatus),
			FirstResponseStatus:  r.str(schema.FieldFirstResponseStatus),
			Tags:                 row.Values[schema.FieldTags].Tags,
			SurveyResult:         r.str(schema.FieldSurveyResult),
			Skill:                r.str(schema.FieldSkill),
			AssociationType:      r.str(schema.FieldAssociationType),
			ResponseStatus:       r.str(schema.FieldResponseStatus),
			Product:              r.str(schema.FieldProduct),
			Module:               r.str(schema.FieldModule),
			Environment:          r.str(schema.FieldEnvironment),
			TeamAssigned:         r.str(schema.FieldTeamAssigned),
			Responsible:          r.str(schema.FieldResponsible),
			AffectedURL:          r.str(schema.FieldAffectedURL),
			EstimatedDate:        r.time(schema.FieldEstimatedDate),
			EffortHours:          r.num(schema.FieldEffortHours),
			Contact:              r.str(schema.FieldContact),
			ContactID:            r.str(schema.FieldContactID),
			Company:              r.str(schema.FieldCompany),
			Extra:                row.Extra,
			Flags:                row.Flags,
		}
		if created := r.time(schema.FieldCreatedAt); created != nil {
			t.CreatedAt = *created
		}
		out = append(out, t)
	}
	return out
}

// LoginsFromRows builds login records from validated rows.
func LoginsFromRows(rows []normalize.Row) []Login {
	out := make([]Login, 0, len(rows))
	for _, row := range rows {
		client := row.Values[schema.FieldClient].Str
		out = append(out, Login{
			Line:      row.Line,
			Client:    client,
			ClientKey: schema.NormalizeKey(client),
			Count:     row.Values[schema.FieldLoginCount].Int,
			Year:      int(row.Values[schema.FieldYear].Int),
			Month:     time.Month(row.Values[schema.FieldMonth].Int),
			Flags:     row.Flags,
		})
	}
	return out
}
