package dashboard

import (
	"sort"

	"accountability-service/internal/model"
)

// Project folds a snapshot into the public aggregates. It reads nothing but
// its argument, so equal snapshots always give equal results.
func Project(snapshot []*model.Complaint) model.AggregateStats {
	stats := model.AggregateStats{
		ByStatus:      make(map[model.Status]int, len(model.Statuses)),
		ByCategory:    make(map[model.Category]int, len(model.Categories)),
		Wards:         []model.WardStats{},
		GeneratedFrom: len(snapshot),
	}
	for _, s := range model.Statuses {
		stats.ByStatus[s] = 0
	}
	for _, c := range model.Categories {
		stats.ByCategory[c] = 0
	}

	wards := make(map[string]*model.WardStats)
	var ackSeconds int64
	var acked, resolved int

	for _, c := range snapshot {
		if c == nil {
			continue
		}
		stats.Total++
		stats.ByStatus[c.Status]++
		stats.ByCategory[c.Category]++

		ward := c.Ward
		if ward == "" {
			ward = model.UnassignedWard
		}
		w, ok := wards[ward]
		if !ok {
			w = &model.WardStats{Ward: ward}
			wards[ward] = w
		}
		w.Total++

		switch {
		case c.Status == model.StatusResolved:
			resolved++
			w.Resolved++
		case c.IsEscalated():
			w.Delayed++
		case c.Status.Active():
			w.Pending++
		}
		if c.IsEscalated() {
			stats.EscalatedCount++
		}
		if c.AcknowledgedAt != nil {
			acked++
			ackSeconds += int64(c.AcknowledgedAt.Sub(c.CreatedAt).Seconds())
		}
	}

	if stats.Total > 0 {
		stats.ResolutionRate = float64(resolved) / float64(stats.Total)
	}
	if acked > 0 {
		stats.AverageTimeToAcknowledgeSecs = float64(ackSeconds) / float64(acked)
	}

	for _, w := range wards {
		stats.Wards = append(stats.Wards, *w)
	}
	sort.Slice(stats.Wards, func(i, j int) bool {
		return stats.Wards[i].Ward < stats.Wards[j].Ward
	})
	return stats
}
