package service

import (
	"context"
	"log"

	"accountability-service/internal/dashboard"
	"accountability-service/internal/model"
	"accountability-service/internal/repository"
)

type DashboardService struct {
	store repository.ComplaintStore
	cache dashboard.Cache
}

func NewDashboardService(store repository.ComplaintStore, cache dashboard.Cache) *DashboardService {
	if cache == nil {
		cache = dashboard.NoopCache{}
	}
	return &DashboardService{store: store, cache: cache}
}

// Aggregates serves the cached projection when there is one. Cache faults are
// logged and the projection is rebuilt from the store. The rebuilt projection
// is stored under the generation read before the snapshot, so a write that
// invalidates in between leaves it unreachable.
func (s *DashboardService) Aggregates(ctx context.Context) (*model.AggregateStats, error) {
	cached, gen, ok, cacheErr := s.cache.Get(ctx)
	if cacheErr != nil {
		log.Printf("dashboard: cache get: %v", cacheErr)
	}
	if ok {
		return cached, nil
	}

	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := dashboard.Project(snapshot)

	// unknown generation
	if cacheErr != nil {
		return &stats, nil
	}
	if err := s.cache.Set(ctx, gen, &stats); err != nil {
		log.Printf("dashboard: cache set: %v", err)
	}
	return &stats, nil
}
