package model

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryCivic      Category = "civic"
	CategoryGovernance Category = "governance"
	CategorySafety     Category = "safety"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryCivic, CategoryGovernance, CategorySafety}

func (c Category) Valid() bool {
	switch c {
	case CategoryCivic, CategoryGovernance, CategorySafety:
		return true
	}
	return false
}

func (c Category) Label() string {
	switch c {
	case CategoryCivic:
		return "Civic Infrastructure"
	case CategoryGovernance:
		return "Governance Negligence"
	case CategorySafety:
		return "Public Safety & Crime"
	}
	return string(c)
}

// SubCategories returns the labels offered by the intake form for c.
// Labels outside this list are still accepted.
func (c Category) SubCategories() []string {
	switch c {
	case CategoryCivic:
		return []string{"Potholes", "Garbage", "Streetlights", "Water Leakage", "Drainage"}
	case CategoryGovernance:
		return []string{"Service Delay", "Officer Misconduct", "Corruption Indicator", "Pending Files"}
	case CategorySafety:
		return []string{"Harassment", "Public Violence", "Illegal Activities", "Theft", "Emergency"}
	}
	return nil
}

type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityHigh Severity = "high"
)

// SeverityFor derives severity from category. Only safety complaints are high.
func SeverityFor(c Category) Severity {
	if c == CategorySafety {
		return SeverityHigh
	}
	return SeverityLow
}

type Status string

const (
	StatusPending      Status = "pending"
	StatusAcknowledged Status = "acknowledged"
	StatusInProgress   Status = "in_progress"
	StatusResolved     Status = "resolved"
	StatusEscalated    Status = "escalated"
)

var Statuses = []Status{StatusPending, StatusAcknowledged, StatusInProgress, StatusResolved, StatusEscalated}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAcknowledged, StatusInProgress, StatusResolved, StatusEscalated:
		return true
	}
	return false
}

// Active reports whether a complaint in this status still runs against the SLA.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusAcknowledged, StatusInProgress:
		return true
	}
	return false
}

// Rank orders the handled path. Escalated has no rank of its own.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusAcknowledged:
		return 1
	case StatusInProgress:
		return 2
	case StatusResolved:
		return 3
	}
	return -1
}

const UnassignedWard = "Unassigned"

type Complaint struct {
	ID              string     `json:"id"`
	Category        Category   `json:"category"`
	SubCategory     string     `json:"sub_category"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	LocationAddress string     `json:"location_address"`
	Ward            string     `json:"ward"`
	Anonymous       bool       `json:"anonymous"`
	ReporterID      *string    `json:"reporter_id,omitempty"`   // never set when anonymous
	ReporterName    *string    `json:"reporter_name,omitempty"` // never set when anonymous
	Severity        Severity   `json:"severity"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	InProgressAt    *time.Time `json:"in_progress_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	SLADeadline     time.Time  `json:"sla_deadline"`
	ActionDeadline  *time.Time `json:"action_deadline,omitempty"`
	EscalatedAt     *time.Time `json:"escalated_at,omitempty"`
	Version         int64      `json:"version"`
}

// Clone returns a deep copy so callers never share pointers with the store.
func (c *Complaint) Clone() *Complaint {
	if c == nil {
		return nil
	}
	out := *c
	out.ReporterID = cloneString(c.ReporterID)
	out.ReporterName = cloneString(c.ReporterName)
	out.AcknowledgedAt = cloneTime(c.AcknowledgedAt)
	out.InProgressAt = cloneTime(c.InProgressAt)
	out.ResolvedAt = cloneTime(c.ResolvedAt)
	out.ActionDeadline = cloneTime(c.ActionDeadline)
	out.EscalatedAt = cloneTime(c.EscalatedAt)
	return &out
}

// Public returns a copy with reporter identity removed.
func (c *Complaint) Public() *Complaint {
	out := c.Clone()
	if out == nil {
		return nil
	}
	out.ReporterID = nil
	out.ReporterName = nil
	return out
}

func (c *Complaint) IsEscalated() bool {
	return c.EscalatedAt != nil
}

// HighestStage is the furthest handled-path status the complaint has reached,
// judged by the milestone timestamps rather than the current status.
func (c *Complaint) HighestStage() Status {
	switch {
	case c.ResolvedAt != nil:
		return StatusResolved
	case c.InProgressAt != nil:
		return StatusInProgress
	case c.AcknowledgedAt != nil:
		return StatusAcknowledged
	}
	return StatusPending
}

// Matches reports whether text occurs in the title or description, ignoring case.
func (c *Complaint) Matches(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Title), text) ||
		strings.Contains(strings.ToLower(c.Description), text)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Request/Response DTOs
type SubmitComplaintRequest struct {
	Category        Category `json:"category" binding:"required"`
	SubCategory     string   `json:"sub_category"`
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description" binding:"required"`
	LocationAddress string   `json:"location_address" binding:"required"`
	Ward            string   `json:"ward"`
	Anonymous       bool     `json:"anonymous"`
	ReporterID      *string  `json:"-"`
	ReporterName    *string  `json:"-"`
}

type TransitionRequest struct {
	Action Action `json:"action" binding:"required"`
}

type PublicFilter struct {
	Category      Category `form:"category"`
	Status        Status   `form:"status"`
	Ward          string   `form:"ward"`
	EscalatedOnly bool     `form:"escalated"`
	Search        string   `form:"search"`
	Limit         int      `form:"limit"`
	Offset        int      `form:"offset"`
}

// Accept reports whether c passes every filter criterion except paging.
func (f PublicFilter) Accept(c *Complaint) bool {
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Ward != "" && !strings.EqualFold(c.Ward, f.Ward) {
		return false
	}
	if f.EscalatedOnly && !c.IsEscalated() {
		return false
	}
	return c.Matches(f.Search)
}

type ComplaintListResponse struct {
	Complaints []*Complaint `json:"complaints"`
	Total      int          `json:"total"`
}
