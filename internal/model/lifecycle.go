package model

import "time"

type Action string

const (
	ActionAcknowledge   Action = "acknowledge"
	ActionStartProgress Action = "start_progress"
	ActionResolve       Action = "resolve"
	ActionEscalate      Action = "escalate"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAcknowledge, ActionStartProgress, ActionResolve, ActionEscalate:
		return true
	}
	return false
}

type ActorKind string

const (
	ActorCitizen    ActorKind = "citizen"
	ActorDepartment ActorKind = "department"
	ActorSystem     ActorKind = "system"
)

type Actor struct {
	Kind       ActorKind `json:"kind"`
	ID         string    `json:"id"`
	Department string    `json:"department,omitempty"`
}

// SystemActor is the identity the escalation sweep acts under.
var SystemActor = Actor{Kind: ActorSystem, ID: "escalation-engine"}

type Milestone string

const (
	MilestoneFiled        Milestone = "filed"
	MilestoneAcknowledged Milestone = "acknowledged"
	MilestoneInProgress   Milestone = "in_progress"
	MilestoneEscalated    Milestone = "escalated"
	MilestoneResolved     Milestone = "resolved"
)

func (m Milestone) Label() string {
	switch m {
	case MilestoneFiled:
		return "Filed"
	case MilestoneAcknowledged:
		return "Acknowledged"
	case MilestoneInProgress:
		return "Action Started"
	case MilestoneEscalated:
		return "Escalated"
	case MilestoneResolved:
		return "Resolved"
	}
	return string(m)
}

type TimelineEntry struct {
	Milestone Milestone  `json:"milestone"`
	Label     string     `json:"label"`
	Reached   bool       `json:"reached"`
	At        *time.Time `json:"at,omitempty"`
}

type TrackingView struct {
	Complaint           *Complaint      `json:"complaint"`
	Timeline            []TimelineEntry `json:"timeline"`
	Overdue             bool            `json:"overdue"`
	SLARemainingSeconds int64           `json:"sla_remaining_seconds"`
	NextActions         []Action        `json:"next_actions"`
}

type WardStats struct {
	Ward     string `json:"ward"`
	Total    int    `json:"total"`
	Resolved int    `json:"resolved"`
	Pending  int    `json:"pending"`
	Delayed  int    `json:"delayed"`
}

type AggregateStats struct {
	Total                        int              `json:"total"`
	ByStatus                     map[Status]int   `json:"by_status"`
	ByCategory                   map[Category]int `json:"by_category"`
	EscalatedCount               int              `json:"escalated_count"`
	ResolutionRate               float64          `json:"resolution_rate"`
	AverageTimeToAcknowledgeSecs float64          `json:"average_time_to_acknowledge_seconds"`
	Wards                        []WardStats      `json:"wards"`
	GeneratedFrom                int              `json:"generated_from"`
}
