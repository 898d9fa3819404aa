package schema

// Canonical ticket field names.
const (
	FieldID                   = "id"
	FieldSubject              = "subject"
	FieldStatus               = "status"
	FieldPriority             = "priority"
	FieldOrigin               = "origin"
	FieldType                 = "type"
	FieldAgent                = "agent"
	FieldGroup                = "group"
	FieldCreatedAt            = "created_at"
	FieldDueAt                = "due_at"
	FieldResolvedAt           = "resolved_at"
	FieldClosedAt             = "closed_at"
	FieldLastUpdateAt         = "last_update_at"
	FieldFirstResponseTime    = "first_response_time"
	FieldElapsedTime          = "elapsed_time"
	FieldFirstResponseHours   = "first_response_hours"
	FieldResolutionTimeHours  = "resolution_time_hours"
	FieldAgentInteractions    = "agent_interactions"
	FieldCustomerInteractions = "customer_interactions"
	FieldResolutionStatus     = "resolution_status"
	FieldFirstResponseStatus  = "first_response_status"
	FieldTags                 = "tags"
	FieldSurveyResult         = "survey_result"
	FieldSkill                = "skill"
	FieldAssociationType      = "association_type"
	FieldResponseStatus       = "response_status"
	FieldProduct              = "product"
	FieldEnvironment          = "environment"
	FieldTeamAssigned         = "team_assigned"
	FieldResponsible          = "responsible"
	FieldAffectedURL          = "affected_url"
	FieldEstimatedDate        = "estimated_date"
	FieldEffortHours          = "effort_hours"
	FieldModule               = "module"
	FieldContact              = "contact"
	FieldContactID            = "contact_id"
	FieldCompany              = "company"
)

// Canonical login field names.
const (
	FieldClient     = "client"
	FieldLoginCount = "login_count"
	FieldMonth      = "month"
	FieldYear       = "year"
)

// Canonical labels shared with the preprocessor and metrics.
const (
	StatusResolved   = "Resuelto"
	StatusPending    = "Pendiente"
	StatusOpen       = "Abierto"
	StatusNew        = "Nuevo"
	StatusInProgress = "En progreso"
	StatusOnHold     = "En espera"
	StatusCancelled  = "Cancelado"
	StatusReopened   = "Reabierto"

	ResolutionWithinSLA = "Cumplido"
	ResolutionViolated  = "Incumplido"
	ResolutionResolved  = "Resuelto"

	PriorityUrgent = "Urgente"
	PriorityHigh   = "Alta"
	PriorityMedium = "Media"
	PriorityLow    = "Baja"
)

// StatusValues is the default canonical status set.
func StatusValues() []CategoryValue {
	return []CategoryValue{
		{Label: StatusResolved, Synonyms: []string{"resuelto", "resueltos", "resolved", "cerrado", "closed", "solucionado"}},
		{Label: StatusPending, Synonyms: []string{"pendiente", "pending"}, Keywords: []string{"pendient", "pending"}},
		{Label: StatusOpen, Synonyms: []string{"abierto", "open"}},
		{Label: StatusNew, Synonyms: []string{"nuevo", "new"}},
		{Label: StatusInProgress, Synonyms: []string{"en progreso", "in progress"}, Keywords: []string{"progreso", "progress"}},
		{Label: StatusOnHold, Synonyms: []string{"en espera", "on hold", "hold"}, Keywords: []string{"espera", "waiting", "hold"}},
		{Label: StatusCancelled, Synonyms: []string{"cancelado", "cancelada", "cancelled", "canceled"}, Keywords: []string{"cancel"}},
		{Label: StatusReopened, Synonyms: []string{"reabierto", "re opened", "reopened"}, Keywords: []string{"reabiert", "reopen"}},
	}
}

// ResolutionValues is the default canonical resolution-status set.
func ResolutionValues() []CategoryValue {
	return []CategoryValue{
		{Label: ResolutionWithinSLA, Synonyms: []string{"within sla", "cumplido", "en sla", "dentro de sla"}, Keywords: []string{"within sla", "dentro de sla"}},
		{Label: ResolutionViolated, Synonyms: []string{"sla violated", "incumplido", "fuera de sla", "no cumplido"}, Keywords: []string{"violat", "incumpl", "fuera de sla"}},
		{Label: ResolutionResolved, Synonyms: []string{"resuelto", "resolved", "solucionado", "cerrado", "closed"}},
	}
}

// PriorityValues is the default canonical priority set, most urgent first.
func PriorityValues() []CategoryValue {
	return []CategoryValue{
		{Label: PriorityUrgent, Synonyms: []string{"urgente", "urgent", "critica", "critical"}},
		{Label: PriorityHigh, Synonyms: []string{"alta", "high"}},
		{Label: PriorityMedium, Synonyms: []string{"media", "medium"}},
		{Label: PriorityLow, Synonyms: []string{"baja", "low"}},
	}
}

// DefaultTicketFields mirrors the columns of the commercial ticket export.
// Only id and created_at are required to load the file.
func DefaultTicketFields() []Field {
	return []Field{
		{Name: FieldID, Type: TypeString, Required: true, Aliases: []string{"ID del ticket", "ticket id", "ticket", "nro ticket"}},
		{Name: FieldSubject, Type: TypeText, Aliases: []string{"Asunto", "subject", "titulo"}},
		{Name: FieldStatus, Type: TypeCategory, Aliases: []string{"Estado", "status"}, Values: StatusValues()},
		{Name: FieldPriority, Type: TypeCategory, Aliases: []string{"Prioridad", "priority", "criticidad"}, Values: PriorityValues()},
		{Name: FieldOrigin, Type: TypeCategory, Aliases: []string{"Origen", "origin", "source"}},
		{Name: FieldType, Type: TypeCategory, Aliases: []string{"Tipo", "ticket type"}},
		{Name: FieldAgent, Type: TypeString, Aliases: []string{"Agente"}},
		{Name: FieldGroup, Type: TypeCategory, Aliases: []string{"Grupo"}},
		{Name: FieldCreatedAt, Type: TypeTimestamp, Required: true, Aliases: []string{"Hora de creacion", "fecha de creacion", "created time", "created"}},
		{Name: FieldDueAt, Type: TypeTimestamp, Aliases: []string{"Tiempo de vencimiento", "fecha de vencimiento", "due by time", "due"}},
		{Name: FieldResolvedAt, Type: TypeTimestamp, Aliases: []string{"Hora de resolucion", "fecha de resolucion", "resolved time"}},
		{Name: FieldClosedAt, Type: TypeTimestamp, Aliases: []string{"Hora de cierre", "fecha de cierre", "closed time"}},
		{Name: FieldLastUpdateAt, Type: TypeTimestamp, Aliases: []string{"Hora de Ultima actualizacion", "last update time"}},
		{Name: FieldFirstResponseTime, Type: TypeDuration, Aliases: []string{"Tiempo de respuesta inicial", "initial response time"}},
		{Name: FieldElapsedTime, Type: TypeDuration, Aliases: []string{"Tiempo transcurrido", "time tracked"}},
		{Name: FieldFirstResponseHours, Type: TypeNumber, Aliases: []string{"Tiempo de primera respuesta (en horas)", "first response time in hrs"}},
		{Name: FieldResolutionTimeHours, Type: TypeNumber, Aliases: []string{"Tiempo de resolucion (en horas)", "resolution time in hrs"}},
		{Name: FieldAgentInteractions, Type: TypeInteger, Aliases: []string{"Interacciones del agente", "agent interactions"}},
		{Name: FieldCustomerInteractions, Type: TypeInteger, Aliases: []string{"Interacciones del cliente", "customer interactions"}},
		{Name: FieldResolutionStatus, Type: TypeCategory, Aliases: []string{"Estado de resolucion", "resolution status"}, Values: ResolutionValues()},
		{Name: FieldFirstResponseStatus, Type: TypeCategory, Aliases: []string{"Estado de primera respuesta", "first response status"}, Values: ResolutionValues()},
		{Name: FieldTags, Type: TypeTags, Aliases: []string{"Etiquetas"}},
		{Name: FieldSurveyResult, Type: TypeCategory, Aliases: []string{"Resultados de la encuesta", "survey results"}},
		{Name: FieldSkill, Type: TypeCategory, Aliases: []string{"Habilidad"}},
		{Name: FieldAssociationType, Type: TypeCategory, Aliases: []string{"Tipo de asociacion"}},
		{Name: FieldResponseStatus, Type: TypeCategory, Aliases: []string{"El estado de cada respuesta", "every response status"}},
		{Name: FieldProduct, Type: TypeCategory, Aliases: []string{"Producto"}},
		{Name: FieldEnvironment, Type: TypeCategory, Aliases: []string{"Ambiente", "entorno"}},
		{Name: FieldTeamAssigned, Type: TypeCategory, Aliases: []string{"Team Asignado", "equipo asignado", "assigned team"}},
		{Name: FieldResponsible, Type: TypeString, Aliases: []string{"Responsable Tk", "responsable"}},
		{Name: FieldAffectedURL, Type: TypeString, Aliases: []string{"Url afectada"}},
		{Name: FieldEstimatedDate, Type: TypeDate, Aliases: []string{"Fecha Estimada"}},
		{Name: FieldEffortHours, Type: TypeNumber, Aliases: []string{"Esfuerzo en Horas"}},
		{Name: FieldModule, Type: TypeCategory, Aliases: []string{"Modulo"}},
		{Name: FieldContact, Type: TypeString, Aliases: []string{"Nombre completo", "full name", "contacto"}},
		{Name: FieldContactID, Type: TypeString, Aliases: []string{"ID del contacto", "contact id"}},
		{Name: FieldCompany, Type: TypeString, Aliases: []string{"Empresa", "compania", "company name"}},
	}
}

// DefaultLoginFields mirrors the logins export (cliente, logins, mes, año).
func DefaultLoginFields() []Field {
	return []Field{
		{Name: FieldClient, Type: TypeString, Required: true, Aliases: []string{"cliente", "customer"}},
		{Name: FieldLoginCount, Type: TypeInteger, Required: true, Aliases: []string{"logins", "login", "ingresos", "cantidad de logins"}},
		{Name: FieldMonth, Type: TypeMonth, Required: true, Aliases: []string{"mes"}},
		{Name: FieldYear, Type: TypeInteger, Required: true, Aliases: []string{"año", "anio", "ano"}},
	}
}
