package service

import (
	"context"
	"sort"
	"time"

	"accountability-service/internal/lifecycle"
	"accountability-service/internal/model"
	"accountability-service/internal/repository"
	"accountability-service/internal/sla"
)

// TrackingService answers citizen lookups by tracking id. It never writes.
type TrackingService struct {
	store   repository.ComplaintStore
	machine *lifecycle.Machine
	clock   *sla.Clock
}

func NewTrackingService(store repository.ComplaintStore, machine *lifecycle.Machine, clock *sla.Clock) *TrackingService {
	return &TrackingService{store: store, machine: machine, clock: clock}
}

func (s *TrackingService) Timeline(ctx context.Context, id string) ([]model.TimelineEntry, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(c), nil
}

func (s *TrackingService) Track(ctx context.Context, id string) (*model.TrackingView, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	actions := s.machine.NextActions(c)
	if actions == nil {
		actions = []model.Action{}
	}
	return &model.TrackingView{
		Complaint:           c.Public(),
		Timeline:            BuildTimeline(c),
		Overdue:             s.clock.IsOverdue(c, now),
		SLARemainingSeconds: int64(s.clock.Remaining(c, now) / time.Second),
		NextActions:         actions,
	}, nil
}

// handledPath is the order milestones are listed in when timestamps tie and
// the order of the unreached tail.
var handledPath = []model.Milestone{
	model.MilestoneFiled,
	model.MilestoneAcknowledged,
	model.MilestoneInProgress,
	model.MilestoneEscalated,
	model.MilestoneResolved,
}

// BuildTimeline lists reached milestones oldest first, then the handled-path
// milestones still ahead. Escalated only appears once it has happened, and a
// resolved complaint has nothing ahead: stages skipped on the way to
// resolution can no longer be reached.
func BuildTimeline(c *model.Complaint) []model.TimelineEntry {
	stamps := map[model.Milestone]*time.Time{
		model.MilestoneFiled:        &c.CreatedAt,
		model.MilestoneAcknowledged: c.AcknowledgedAt,
		model.MilestoneInProgress:   c.InProgressAt,
		model.MilestoneEscalated:    c.EscalatedAt,
		model.MilestoneResolved:     c.ResolvedAt,
	}
	rank := make(map[model.Milestone]int, len(handledPath))
	for i, m := range handledPath {
		rank[m] = i
	}

	var reached, ahead []model.TimelineEntry
	for _, m := range handledPath {
		at := stamps[m]
		if at != nil {
			v := *at
			reached = append(reached, model.TimelineEntry{Milestone: m, Label: m.Label(), Reached: true, At: &v})
			continue
		}
		if m != model.MilestoneEscalated && c.ResolvedAt == nil {
			ahead = append(ahead, model.TimelineEntry{Milestone: m, Label: m.Label()})
		}
	}
	sort.SliceStable(reached, func(i, j int) bool {
		if reached[i].At.Equal(*reached[j].At) {
			return rank[reached[i].Milestone] < rank[reached[j].Milestone]
		}
		return reached[i].At.Before(*reached[j].At)
	})
	return append(reached, ahead...)
}
