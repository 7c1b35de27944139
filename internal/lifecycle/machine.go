package lifecycle

import (
	"time"

	"accountability-service/internal/model"
	"accountability-service/internal/sla"
)

// Machine owns every change to a complaint's status. Nothing else writes
// Status or the milestone timestamps.
type Machine struct {
	clock *sla.Clock
}

func New(clock *sla.Clock) *Machine {
	if clock == nil {
		clock = sla.NewClock(nil, nil)
	}
	return &Machine{clock: clock}
}

// Target returns the status an action moves a complaint into.
func Target(a model.Action) (model.Status, bool) {
	switch a {
	case model.ActionAcknowledge:
		return model.StatusAcknowledged, true
	case model.ActionStartProgress:
		return model.StatusInProgress, true
	case model.ActionResolve:
		return model.StatusResolved, true
	case model.ActionEscalate:
		return model.StatusEscalated, true
	}
	return "", false
}

// Apply performs action on c at now. It reports whether c changed; a request
// for the state c is already in succeeds without changing anything. On error
// c is left untouched.
func (m *Machine) Apply(c *model.Complaint, action model.Action, actor model.Actor, now time.Time) (bool, error) {
	to, ok := Target(action)
	if !ok {
		return false, &model.TransitionError{From: c.Status, Action: action, Reason: "unknown action"}
	}
	if action == model.ActionEscalate && actor.Kind != model.ActorSystem {
		return false, &model.TransitionError{From: c.Status, To: to, Action: action, Reason: "escalation is performed by the sweep only"}
	}
	if c.Status == to {
		return false, nil
	}
	if err := m.check(c, action, to, actor, now); err != nil {
		return false, err
	}

	now = sla.Canonical(now)
	c.Status = to
	c.UpdatedAt = now
	switch to {
	case model.StatusAcknowledged:
		c.AcknowledgedAt = stamp(c.AcknowledgedAt, now)
	case model.StatusInProgress:
		c.InProgressAt = stamp(c.InProgressAt, now)
	case model.StatusResolved:
		c.ResolvedAt = stamp(c.ResolvedAt, now)
	case model.StatusEscalated:
		c.EscalatedAt = stamp(c.EscalatedAt, now)
	}
	return true, nil
}

func (m *Machine) check(c *model.Complaint, action model.Action, to model.Status, actor model.Actor, now time.Time) error {
	reject := func(reason string) error {
		return &model.TransitionError{From: c.Status, To: to, Action: action, Reason: reason}
	}

	if action == model.ActionEscalate {
		if actor.Kind != model.ActorSystem {
			return reject("escalation is performed by the sweep only")
		}
		if c.IsEscalated() {
			return reject("already escalated")
		}
		if !c.Status.Active() {
			return reject("complaint is not active")
		}
		if !m.clock.IsOverdue(c, now) {
			return reject("deadline not breached")
		}
		return nil
	}

	if actor.Kind != model.ActorDepartment {
		return reject("only the responsible department may " + string(action))
	}

	switch c.Status {
	case model.StatusPending, model.StatusAcknowledged, model.StatusInProgress:
		if to.Rank() != c.Status.Rank()+1 {
			return reject("")
		}
	case model.StatusEscalated:
		if to.Rank() < c.HighestStage().Rank() {
			return reject("cannot move below a stage already reached")
		}
	default:
		return reject("")
	}
	return nil
}

// NextActions lists the department actions legal from c's current state.
func (m *Machine) NextActions(c *model.Complaint) []model.Action {
	var out []model.Action
	for _, a := range []model.Action{model.ActionAcknowledge, model.ActionStartProgress, model.ActionResolve} {
		to, _ := Target(a)
		if to == c.Status {
			continue
		}
		if m.check(c, a, to, model.Actor{Kind: model.ActorDepartment}, time.Time{}) == nil {
			out = append(out, a)
		}
	}
	return out
}

func stamp(existing *time.Time, now time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	return &now
}
