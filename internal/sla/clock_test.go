package sla

import (
	"testing"
	"time"

	"accountability-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func complaintAt(k *Clock, cat model.Category, created time.Time) *model.Complaint {
	sla, action := k.Deadlines(cat, created)
	return &model.Complaint{
		ID:             "c1",
		Category:       cat,
		Severity:       model.SeverityFor(cat),
		Status:         model.StatusPending,
		CreatedAt:      created,
		SLADeadline:    sla,
		ActionDeadline: action,
	}
}

func TestCanonicalTruncatesToSecondsUTC(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2024, 3, 1, 14, 30, 5, 999_000_000, loc)

	out := Canonical(in)
	assert.Equal(t, time.UTC, out.Location())
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 5, 0, time.UTC), out)
}

func TestDeadlines(t *testing.T) {
	k := NewClock(nil, nil)

	tests := []struct {
		cat        model.Category
		wantAck    time.Duration
		wantAction time.Duration
	}{
		{model.CategorySafety, 24 * time.Hour, 72 * time.Hour},
		{model.CategoryGovernance, 72 * time.Hour, 0},
		{model.CategoryCivic, 72 * time.Hour, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			sla, action := k.Deadlines(tt.cat, t0)
			assert.Equal(t, t0.Add(tt.wantAck), sla)
			if tt.wantAction == 0 {
				assert.Nil(t, action)
				return
			}
			require.NotNil(t, action)
			assert.Equal(t, t0.Add(tt.wantAction), *action)
		})
	}
}

func TestDeadlineIgnoresSubSecondCreation(t *testing.T) {
	k := NewClock(nil, nil)
	sla, _ := k.Deadlines(model.CategoryCivic, t0.Add(750*time.Millisecond))
	assert.Equal(t, t0.Add(72*time.Hour), sla)
}

func TestIsOverdueBoundaries(t *testing.T) {
	k := NewClock(nil, nil)
	c := complaintAt(k, model.CategoryCivic, t0)

	assert.False(t, k.IsOverdue(c, t0.Add(72*time.Hour-time.Second)))
	assert.True(t, k.IsOverdue(c, t0.Add(72*time.Hour)))
	assert.True(t, k.IsOverdue(c, t0.Add(72*time.Hour+time.Second)))
}

func TestIsOverdueAcknowledgedInTime(t *testing.T) {
	k := NewClock(nil, nil)
	c := complaintAt(k, model.CategoryGovernance, t0)
	ack := t0.Add(time.Hour)
	c.Status = model.StatusAcknowledged
	c.AcknowledgedAt = &ack

	assert.False(t, k.IsOverdue(c, t0.Add(100*time.Hour)))
}

func TestIsOverdueLateAcknowledgmentStillBreaches(t *testing.T) {
	k := NewClock(nil, nil)
	c := complaintAt(k, model.CategoryCivic, t0)
	ack := t0.Add(73 * time.Hour)
	c.Status = model.StatusAcknowledged
	c.AcknowledgedAt = &ack

	assert.True(t, k.IsOverdue(c, t0.Add(74*time.Hour)))
}

// The first-action target never makes an acknowledged complaint overdue.
func TestIsOverdueIgnoresActionDeadline(t *testing.T) {
	k := NewClock(nil, nil)
	c := complaintAt(k, model.CategorySafety, t0)
	ack := t0.Add(2 * time.Hour)
	c.Status = model.StatusAcknowledged
	c.AcknowledgedAt = &ack

	assert.False(t, k.IsOverdue(c, t0.Add(71*time.Hour)))
	assert.False(t, k.IsOverdue(c, t0.Add(72*time.Hour)))
	assert.False(t, k.IsOverdue(c, t0.Add(200*time.Hour)))
	assert.Equal(t, 62*time.Hour, k.Remaining(c, t0.Add(10*time.Hour)))
}

func TestIsOverdueTerminalAndEscalated(t *testing.T) {
	k := NewClock(nil, nil)
	c := complaintAt(k, model.CategorySafety, t0)
	late := t0.Add(500 * time.Hour)

	esc := t0.Add(25 * time.Hour)
	c.EscalatedAt = &esc
	c.Status = model.StatusEscalated
	assert.False(t, k.IsOverdue(c, late))

	c.EscalatedAt = nil
	c.Status = model.StatusResolved
	assert.False(t, k.IsOverdue(c, late))
}

// Safety complaints get a 24h window whatever the time of filing.
func TestSafetyWindowProperty(t *testing.T) {
	k := NewClock(nil, nil)
	for i := 0; i < 200; i++ {
		created := t0.Add(time.Duration(i*7919) * time.Second)
		c := complaintAt(k, model.CategorySafety, created)
		assert.Equal(t, model.SeverityHigh, c.Severity)
		assert.Equal(t, 24*time.Hour, c.SLADeadline.Sub(c.CreatedAt))
		assert.False(t, k.IsOverdue(c, created.Add(24*time.Hour-time.Second)))
		assert.True(t, k.IsOverdue(c, created.Add(24*time.Hour)))
	}
}

func TestRemaining(t *testing.T) {
	k := NewClock(nil, nil)
	c := complaintAt(k, model.CategorySafety, t0)

	assert.Equal(t, 20*time.Hour, k.Remaining(c, t0.Add(4*time.Hour)))
	assert.Zero(t, k.Remaining(c, t0.Add(30*time.Hour)))

	ack := t0.Add(time.Hour)
	c.AcknowledgedAt = &ack
	c.Status = model.StatusAcknowledged
	assert.Equal(t, 62*time.Hour, k.Remaining(c, t0.Add(10*time.Hour)))

	c.Status = model.StatusResolved
	assert.Zero(t, k.Remaining(c, t0))
}

func TestClockNowUsesInjectedSource(t *testing.T) {
	k := NewClock(nil, func() time.Time { return t0.Add(1500 * time.Millisecond) })
	assert.Equal(t, t0.Add(time.Second), k.Now())
}
