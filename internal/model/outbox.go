package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
	OutboxFailed    OutboxStatus = "failed"
)

// MaxOutboxRetries is how many publish attempts a message gets before it is parked as failed.
const MaxOutboxRetries = 5

const (
	RoutingKeyComplaintFiled     = "complaint.filed"
	RoutingKeyStatusUpdated      = "complaint.status.updated"
	RoutingKeyComplaintEscalated = "complaint.escalated"
)

type OutboxMessage struct {
	ID          uuid.UUID       `json:"id"`
	RoutingKey  string          `json:"routing_key"`
	Payload     json.RawMessage `json:"payload"`
	Status      OutboxStatus    `json:"status"`
	RetryCount  int             `json:"retry_count"`
	LastError   *string         `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// ComplaintEvent is the broker payload. It never carries reporter identity.
type ComplaintEvent struct {
	ComplaintID string   `json:"complaint_id"`
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Ward        string   `json:"ward"`
	FromStatus  Status   `json:"from_status,omitempty"`
	ToStatus    Status   `json:"to_status"`
	Timestamp   int64    `json:"timestamp"`
}

// NewComplaintEvent builds an outbox message for a change of c from the given status.
func NewComplaintEvent(routingKey string, c *Complaint, from Status, at time.Time) (*OutboxMessage, error) {
	payload, err := json.Marshal(ComplaintEvent{
		ComplaintID: c.ID,
		Title:       c.Title,
		Category:    c.Category,
		Ward:        c.Ward,
		FromStatus:  from,
		ToStatus:    c.Status,
		Timestamp:   at.Unix(),
	})
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		ID:         uuid.New(),
		RoutingKey: routingKey,
		Payload:    payload,
		Status:     OutboxPending,
		CreatedAt:  at,
	}, nil
}

type OutboxStats struct {
	Pending   int `json:"pending"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}
