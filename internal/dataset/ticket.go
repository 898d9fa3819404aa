// Package dataset holds the typed records built from validated rows: tickets
// of the commercial report and rows of the logins report.
package dataset

import (
	"time"

	"ticket-kpi-exporter/internal/quality"
)

// SLAState replaces a nullable boolean: only Met and Missed are determinable.
type SLAState string

const (
	// SLANotApplicable means the ticket has no due date.
	SLANotApplicable SLAState = "not_applicable"
	// SLAPending means a due date exists but the ticket is neither resolved nor closed.
	SLAPending SLAState = "pending"
	SLAMet     SLAState = "met"
	SLAMissed  SLAState = "missed"
)

// Determinable reports whether the state counts in an SLA rate denominator.
func (s SLAState) Determinable() bool {
	return s == SLAMet || s == SLAMissed
}

// Ticket is one row of the commercial report. Optional timestamps and
// measures are pointers; nil means the source cell was empty or unreadable.
type Ticket struct {
	Line int    `json:"line"`
	ID   string `json:"id"`

	Subject  string `json:"subject,omitempty"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Origin   string `json:"origin,omitempty"`
	Type     string `json:"type,omitempty"`
	Agent    string `json:"agent,omitempty"`
	Group    string `json:"group,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	DueAt        *time.Time `json:"due_at,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	LastUpdateAt *time.Time `json:"last_update_at,omitempty"`

	FirstResponseTime   *time.Duration `json:"first_response_time,omitempty"`
	ElapsedTime         *time.Duration `json:"elapsed_time,omitempty"`
	FirstResponseHours  *float64       `json:"first_response_hours,omitempty"`
	ResolutionTimeHours *float64       `json:"resolution_time_hours,omitempty"`

	AgentInteractions    int64 `json:"agent_interactions"`
	CustomerInteractions int64 `json:"customer_interactions"`

	ResolutionStatus    string   `json:"resolution_status,omitempty"`
	FirstResponseStatus string   `json:"first_response_status,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	SurveyResult        string   `json:"survey_result,omitempty"`
	Skill               string   `json:"skill,omitempty"`
	AssociationType     string   `json:"association_type,omitempty"`
	ResponseStatus      string   `json:"response_status,omitempty"`
	Product             string   `json:"product,omitempty"`
	Module              string   `json:"module,omitempty"`
	Environment         string   `json:"environment,omitempty"`
	TeamAssigned        string   `json:"team_assigned,omitempty"`
	Responsible         string   `json:"responsible,omitempty"`
	AffectedURL         string   `json:"affected_url,omitempty"`

	EstimatedDate *time.Time `json:"estimated_date,omitempty"`
	EffortHours   *float64   `json:"effort_hours,omitempty"`

	Contact   string `json:"contact,omitempty"`
	ContactID string `json:"contact_id,omitempty"`
	Company   string `json:"company,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
	Flags []quality.Kind    `json:"flags,omitempty"`

	Derived Derived `json:"derived"`
}

// Derived holds the fields computed by the preprocessor. They are a pure
// function of the raw fields above.
type Derived struct {
	Period                  Period     `json:"period"`
	ResolvedPeriod          Period     `json:"resolved_period"`
	IsResolved              bool       `json:"is_resolved"`
	StatusGroup             string     `json:"status_group"`
	CommercialStatus        string     `json:"commercial_status,omitempty"`
	PriorityRank            int        `json:"priority_rank"`
	Owner                   string     `json:"owner,omitempty"`
	Client                  string     `json:"client,omitempty"`
	Productive              bool       `json:"productive"`
	SLA                     SLAState   `json:"sla"`
	FirstResponseAt         *time.Time `json:"first_response_at,omitempty"`
	ResolutionHours         *float64   `json:"resolution_hours,omitempty"`
	BusinessResolutionHours *float64   `json:"business_resolution_hours,omitempty"`
	AgeDays                 *int       `json:"age_days,omitempty"`
}

// Terminal returns resolved_at, falling back to closed_at.
func (t Ticket) Terminal() *time.Time {
	if t.ResolvedAt != nil {
		return t.ResolvedAt
	}
	return t.ClosedAt
}

// SLAMet returns the compliance flag and whether it is defined.
func (t Ticket) SLAMet() (met bool, ok bool) {
	switch t.Derived.SLA {
	case SLAMet:
		return true, true
	case SLAMissed:
		return false, true
	}
	return false, false
}

// HasFlag reports whether validation attached kind to the ticket.
func (t Ticket) HasFlag(kind quality.Kind) bool {
	for _, k := range t.Flags {
		if k == kind {
			return true
		}
	}
	return false
}
