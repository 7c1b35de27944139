package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"accountability-service/internal/model"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process. Writes to one complaint are
// serialized by a per-id mutex; mu only guards the maps themselves.
type MemoryStore struct {
	mu         sync.RWMutex
	complaints map[string]*model.Complaint
	locks      map[string]*sync.Mutex
	outbox     []*model.OutboxMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		complaints: make(map[string]*model.Complaint),
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) Create(ctx context.Context, c *model.Complaint, event *model.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.complaints[c.ID]; exists {
		return fmt.Errorf("complaint %s already exists", c.ID)
	}
	stored := c.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	s.complaints[c.ID] = stored
	s.locks[c.ID] = &sync.Mutex{}
	s.appendOutbox(event)
	c.Version = stored.Version
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Complaint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.complaints[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, mutate MutateFunc) (*model.Complaint, error) {
	s.mu.RLock()
	lock, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	working := s.complaints[id].Clone()
	s.mu.RUnlock()

	event, err := mutate(working)
	if err != nil {
		if errors.Is(err, ErrNoChange) {
			current, _ := s.Get(context.Background(), id)
			return current, err
		}
		return nil, err
	}

	working.ID = id
	working.Version++

	s.mu.Lock()
	s.complaints[id] = working
	s.appendOutbox(event)
	s.mu.Unlock()

	return working.Clone(), nil
}

func (s *MemoryStore) ListOverdue(ctx context.Context, now time.Time) ([]*model.Complaint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Complaint
	for _, c := range s.complaints {
		if pastDeadline(c, now) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SLADeadline.Equal(out[j].SLADeadline) {
			return out[i].ID < out[j].ID
		}
		return out[i].SLADeadline.Before(out[j].SLADeadline)
	})
	return out, nil
}

func (s *MemoryStore) ListPublic(ctx context.Context, filter model.PublicFilter) iter.Seq2[*model.Complaint, error] {
	return func(yield func(*model.Complaint, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}

		s.mu.RLock()
		matched := make([]*model.Complaint, 0, len(s.complaints))
		for _, c := range s.complaints {
			if filter.Accept(c) {
				matched = append(matched, c.Public())
			}
		}
		s.mu.RUnlock()

		sortNewestFirst(matched)
		limit, offset := pageBounds(filter)
		if offset >= len(matched) {
			return
		}
		matched = matched[offset:]
		if len(matched) > limit {
			matched = matched[:limit]
		}
		for _, c := range matched {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) Snapshot(ctx context.Context) ([]*model.Complaint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Complaint, 0, len(s.complaints))
	for _, c := range s.complaints {
		out = append(out, c.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) appendOutbox(event *model.OutboxMessage) {
	if event == nil {
		return
	}
	msg := *event
	if msg.Status == "" {
		msg.Status = model.OutboxPending
	}
	s.outbox = append(s.outbox, &msg)
}

func (s *MemoryStore) PendingOutbox(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.OutboxMessage
	for _, m := range s.outbox {
		if m.Status != model.OutboxPending {
			continue
		}
		out = append(out, *m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkOutboxPublished(ctx context.Context, id uuid.UUID) error {
	return s.withOutbox(id, func(m *model.OutboxMessage) {
		now := time.Now().UTC()
		m.Status = model.OutboxPublished
		m.PublishedAt = &now
	})
}

func (s *MemoryStore) MarkOutboxFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return s.withOutbox(id, func(m *model.OutboxMessage) {
		m.RetryCount++
		m.LastError = &errMsg
		if m.RetryCount >= model.MaxOutboxRetries {
			m.Status = model.OutboxFailed
		}
	})
}

func (s *MemoryStore) withOutbox(id uuid.UUID, fn func(*model.OutboxMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.outbox {
		if m.ID == id {
			fn(m)
			return nil
		}
	}
	return fmt.Errorf("outbox message %s not found", id)
}

func (s *MemoryStore) DeletePublishedOutbox(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.outbox[:0]
	var deleted int64
	for _, m := range s.outbox {
		if m.Status == model.OutboxPublished && m.PublishedAt != nil && m.PublishedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	s.outbox = kept
	return deleted, nil
}

func (s *MemoryStore) OutboxStats(ctx context.Context) (model.OutboxStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats model.OutboxStats
	for _, m := range s.outbox {
		switch m.Status {
		case model.OutboxPending:
			stats.Pending++
		case model.OutboxPublished:
			stats.Published++
		case model.OutboxFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func sortNewestFirst(cs []*model.Complaint) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].ID < cs[j].ID
		}
		return cs[i].CreatedAt.After(cs[j].CreatedAt)
	})
}
