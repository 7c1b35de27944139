package lifecycle

import (
	"errors"
	"testing"
	"time"

	"accountability-service/internal/model"
	"accountability-service/internal/sla"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0         = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	department = model.Actor{Kind: model.ActorDepartment, ID: "officer-1", Department: "civic"}
	citizen    = model.Actor{Kind: model.ActorCitizen, ID: "citizen-1"}
)

func newComplaint(cat model.Category) *model.Complaint {
	k := sla.NewClock(nil, nil)
	deadline, action := k.Deadlines(cat, t0)
	return &model.Complaint{
		ID:             "c1",
		Category:       cat,
		Severity:       model.SeverityFor(cat),
		Status:         model.StatusPending,
		CreatedAt:      t0,
		UpdatedAt:      t0,
		SLADeadline:    deadline,
		ActionDeadline: action,
	}
}

func TestHappyPath(t *testing.T) {
	m := New(nil)
	c := newComplaint(model.CategoryCivic)

	steps := []struct {
		action model.Action
		want   model.Status
	}{
		{model.ActionAcknowledge, model.StatusAcknowledged},
		{model.ActionStartProgress, model.StatusInProgress},
		{model.ActionResolve, model.StatusResolved},
	}
	for i, s := range steps {
		changed, err := m.Apply(c, s.action, department, t0.Add(time.Duration(i+1)*time.Hour))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, s.want, c.Status)
	}

	require.NotNil(t, c.AcknowledgedAt)
	require.NotNil(t, c.InProgressAt)
	require.NotNil(t, c.ResolvedAt)
	assert.Equal(t, t0.Add(time.Hour), *c.AcknowledgedAt)
	assert.Equal(t, t0.Add(2*time.Hour), *c.InProgressAt)
	assert.Equal(t, t0.Add(3*time.Hour), *c.ResolvedAt)
	assert.Nil(t, c.EscalatedAt)
}

func TestSameStateIsNoop(t *testing.T) {
	m := New(nil)
	c := newComplaint(model.CategoryCivic)
	_, err := m.Apply(c, model.ActionAcknowledge, department, t0.Add(time.Hour))
	require.NoError(t, err)

	changed, err := m.Apply(c, model.ActionAcknowledge, department, t0.Add(5*time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, t0.Add(time.Hour), *c.AcknowledgedAt)
}

func TestResolvedIsTerminal(t *testing.T) {
	m := New(nil)
	c := newComplaint(model.CategoryCivic)
	for _, a := range []model.Action{model.ActionAcknowledge, model.ActionStartProgress, model.ActionResolve} {
		_, err := m.Apply(c, a, department, t0.Add(time.Hour))
		require.NoError(t, err)
	}

	for _, a := range []model.Action{model.ActionAcknowledge, model.ActionStartProgress} {
		_, err := m.Apply(c, a, department, t0.Add(2*time.Hour))
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
	}
	_, err := m.Apply(c, model.ActionEscalate, model.SystemActor, t0.Add(500*time.Hour))
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Equal(t, model.StatusResolved, c.Status)
}

func TestSkippingStagesRejected(t *testing.T) {
	m := New(nil)
	c := newComplaint(model.CategoryCivic)

	_, err := m.Apply(c, model.ActionResolve, department, t0.Add(time.Hour))
	var te *model.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, model.StatusPending, te.From)
	assert.Equal(t, model.StatusResolved, te.To)
	assert.Equal(t, model.StatusPending, c.Status)
	assert.Nil(t, c.ResolvedAt)
}

func TestEscalateRequiresSystemActor(t *testing.T) {
	m := New(nil)
	c := newComplaint(model.CategoryCivic)
	late := t0.Add(100 * time.Hour)

	for _, actor := range []model.Actor{citizen, department} {
		_, err := m.Apply(c, model.ActionEscalate, actor, late)
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
	}
	assert.Equal(t, model.StatusPending, c.Status)
	assert.Nil(t, c.EscalatedAt)
}

func TestEscalateRequiresBreach(t *testing.T) {
	m := New(nil)
	c := newComplaint(model.CategoryCivic)

	_, err := m.Apply(c, model.ActionEscalate, model.SystemActor, t0.Add(71*time.Hour))
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	changed, err := m.Apply(c, model.ActionEscalate, model.SystemActor, t0.Add(72*time.Hour+time.Second))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.StatusEscalated, c.Status)
	require.NotNil(t, c.EscalatedAt)
	assert.Equal(t, t0.Add(72*time.Hour+time.Second), *c.EscalatedAt)
}

func TestRecoveryFromEscalated(t *testing.T) {
	m := New(nil)
	c := newComplaint(model.CategorySafety)
	// acknowledged after the 24h window, so the breach stands
	_, err := m.Apply(c, model.ActionAcknowledge, department, t0.Add(30*time.Hour))
	require.NoError(t, err)
	_, err = m.Apply(c, model.ActionEscalate, model.SystemActor, t0.Add(31*time.Hour))
	require.NoError(t, err)
	escalatedAt := *c.EscalatedAt

	// the acknowledged stage was already reached, so pending is out of reach
	// and acknowledged may be re-entered.
	_, err = m.Apply(c, model.ActionStartProgress, department, t0.Add(80*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, c.Status)
	assert.Equal(t, t0.Add(30*time.Hour), *c.AcknowledgedAt)

	_, err = m.Apply(c, model.ActionResolve, department, t0.Add(90*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, escalatedAt, *c.EscalatedAt)

	// escalation is never repeated
	_, err = m.Apply(c, model.ActionEscalate, model.SystemActor, t0.Add(500*time.Hour))
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestEscalatedCannotRegress(t *testing.T) {
	m := New(nil)
	c := newComplaint(model.CategoryCivic)
	inProgress := t0.Add(time.Hour)
	ack := t0.Add(30 * time.Minute)
	c.AcknowledgedAt = &ack
	c.InProgressAt = &inProgress
	esc := t0.Add(80 * time.Hour)
	c.EscalatedAt = &esc
	c.Status = model.StatusEscalated

	_, err := m.Apply(c, model.ActionAcknowledge, department, t0.Add(81*time.Hour))
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Equal(t, []model.Action{model.ActionStartProgress, model.ActionResolve}, m.NextActions(c))
}

func TestUnknownAction(t *testing.T) {
	m := New(nil)
	c := newComplaint(model.CategoryCivic)
	_, err := m.Apply(c, model.Action("reopen"), department, t0)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

// Every (status, action, actor) combination either follows a legal edge or
// fails with an invalid transition and leaves the complaint untouched.
func TestTransitionTable(t *testing.T) {
	m := New(nil)
	late := t0.Add(200 * time.Hour)

	legal := map[model.Status]map[model.Action]model.ActorKind{
		model.StatusPending:      {model.ActionAcknowledge: model.ActorDepartment, model.ActionEscalate: model.ActorSystem},
		model.StatusAcknowledged: {model.ActionStartProgress: model.ActorDepartment, model.ActionEscalate: model.ActorSystem},
		model.StatusInProgress:   {model.ActionResolve: model.ActorDepartment, model.ActionEscalate: model.ActorSystem},
		model.StatusEscalated: {
			model.ActionAcknowledge:   model.ActorDepartment,
			model.ActionStartProgress: model.ActorDepartment,
			model.ActionResolve:       model.ActorDepartment,
		},
		model.StatusResolved: {},
	}
	actors := []model.Actor{citizen, department, model.SystemActor}
	actions := []model.Action{model.ActionAcknowledge, model.ActionStartProgress, model.ActionResolve, model.ActionEscalate}

	for _, from := range model.Statuses {
		for _, action := range actions {
			for _, actor := range actors {
				c := newComplaint(model.CategoryCivic)
				c.Status = from
				if from == model.StatusEscalated {
					esc := t0.Add(73 * time.Hour)
					c.EscalatedAt = &esc
				}
				if from == model.StatusResolved {
					c.ResolvedAt = &t0
				}
				before := *c

				to, _ := Target(action)
				changed, err := m.Apply(c, action, actor, late)

				if to == from && (action != model.ActionEscalate || actor.Kind == model.ActorSystem) {
					assert.NoError(t, err)
					assert.False(t, changed)
					continue
				}
				if kind, ok := legal[from][action]; ok && kind == actor.Kind {
					assert.NoError(t, err, "%s --%s/%s-->", from, action, actor.Kind)
					assert.Equal(t, to, c.Status)
					continue
				}
				assert.ErrorIs(t, err, model.ErrInvalidTransition, "%s --%s/%s-->", from, action, actor.Kind)
				assert.Equal(t, before, *c)
			}
		}
	}
}
