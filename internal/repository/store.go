package repository

import (
	"context"
	"errors"
	"iter"
	"time"

	"accountability-service/internal/model"

	"github.com/google/uuid"
)

// ErrNoChange is returned by a MutateFunc that decided nothing needs writing.
// Update passes it through together with the current complaint.
var ErrNoChange = errors.New("no change")

// MutateFunc edits a private copy of a complaint while its id is locked. A
// returned outbox message is stored atomically with the change. Returning an
// error discards the copy.
type MutateFunc func(c *model.Complaint) (*model.OutboxMessage, error)

type ComplaintStore interface {
	Create(ctx context.Context, c *model.Complaint, event *model.OutboxMessage) error
	Get(ctx context.Context, id string) (*model.Complaint, error)
	Update(ctx context.Context, id string, mutate MutateFunc) (*model.Complaint, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*model.Complaint, error)
	ListPublic(ctx context.Context, filter model.PublicFilter) iter.Seq2[*model.Complaint, error]
	Snapshot(ctx context.Context) ([]*model.Complaint, error)
}

type OutboxStore interface {
	PendingOutbox(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, id uuid.UUID) error
	MarkOutboxFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	DeletePublishedOutbox(ctx context.Context, olderThan time.Duration) (int64, error)
	OutboxStats(ctx context.Context) (model.OutboxStats, error)
}

type Store interface {
	ComplaintStore
	OutboxStore
	Close() error
}

// pastDeadline is the listing predicate for the sweep: an active, unescalated
// complaint whose acknowledgment deadline went by unmet.
func pastDeadline(c *model.Complaint, now time.Time) bool {
	if !c.Status.Active() || c.IsEscalated() {
		return false
	}
	return c.SLADeadline.Before(now) && (c.AcknowledgedAt == nil || !c.AcknowledgedAt.Before(c.SLADeadline))
}

const defaultPageSize = 50
const maxPageSize = 200

func pageBounds(f model.PublicFilter) (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
