package sla

import (
	"time"

	"accountability-service/internal/model"
)

// Canonical normalizes an instant to whole seconds in UTC. Every timestamp the
// service stores or compares goes through it.
func Canonical(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

type Clock struct {
	policy *Policy
	now    func() time.Time
}

// NewClock returns a clock over policy. A nil policy means DefaultPolicy and a
// nil now means time.Now.
func NewClock(policy *Policy, now func() time.Time) *Clock {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{policy: policy, now: now}
}

func (k *Clock) Now() time.Time {
	return Canonical(k.now())
}

func (k *Clock) Policy() *Policy {
	return k.policy
}

// Deadlines computes the acknowledgment deadline and, when the category has
// one, the first-action deadline. Severity is a function of category, so the
// category alone selects the window.
func (k *Clock) Deadlines(cat model.Category, createdAt time.Time) (time.Time, *time.Time) {
	w, ok := k.policy.Window(cat)
	if !ok {
		w = DefaultPolicy().windows[model.CategoryCivic]
	}
	createdAt = Canonical(createdAt)
	sla := createdAt.Add(w.Acknowledge)
	if w.Action <= 0 {
		return sla, nil
	}
	action := createdAt.Add(w.Action)
	return sla, &action
}

// IsOverdue reports whether c missed its acknowledgment deadline at now and
// has not been escalated for it yet. A complaint acknowledged before the
// deadline is never overdue. The action deadline is a published target only.
func (k *Clock) IsOverdue(c *model.Complaint, now time.Time) bool {
	if c.IsEscalated() || !c.Status.Active() {
		return false
	}
	now = Canonical(now)
	return !now.Before(c.SLADeadline) && !metBefore(c.AcknowledgedAt, c.SLADeadline)
}

// Remaining is the time left until the next deadline the complaint has not met.
// It is zero once that deadline has passed or the complaint is no longer active.
func (k *Clock) Remaining(c *model.Complaint, now time.Time) time.Duration {
	if !c.Status.Active() {
		return 0
	}
	now = Canonical(now)
	var next time.Time
	switch {
	case c.AcknowledgedAt == nil:
		next = c.SLADeadline
	case c.ActionDeadline != nil && c.InProgressAt == nil:
		next = *c.ActionDeadline
	default:
		return 0
	}
	if d := next.Sub(now); d > 0 {
		return d
	}
	return 0
}

func metBefore(at *time.Time, deadline time.Time) bool {
	return at != nil && at.Before(deadline)
}
