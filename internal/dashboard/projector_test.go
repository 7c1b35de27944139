package dashboard

import (
	"context"
	"math/rand"
	"os"
	"testing"
	"time"

	"accountability-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	v := t0.Add(d)
	return &v
}

func fixture() []*model.Complaint {
	return []*model.Complaint{
		{ID: "1", Category: model.CategoryCivic, Ward: "Ward 02", Status: model.StatusPending, CreatedAt: t0},
		{ID: "2", Category: model.CategoryCivic, Ward: "Ward 02", Status: model.StatusResolved, CreatedAt: t0,
			AcknowledgedAt: at(2 * time.Hour), InProgressAt: at(3 * time.Hour), ResolvedAt: at(5 * time.Hour)},
		{ID: "3", Category: model.CategorySafety, Ward: "Ward 01", Status: model.StatusEscalated, CreatedAt: t0,
			EscalatedAt: at(25 * time.Hour)},
		{ID: "4", Category: model.CategoryGovernance, Ward: "", Status: model.StatusAcknowledged, CreatedAt: t0,
			AcknowledgedAt: at(4 * time.Hour)},
		{ID: "5", Category: model.CategoryCivic, Ward: "Ward 01", Status: model.StatusResolved, CreatedAt: t0,
			AcknowledgedAt: at(80 * time.Hour), ResolvedAt: at(90 * time.Hour), EscalatedAt: at(73 * time.Hour)},
	}
}

func TestProject(t *testing.T) {
	stats := Project(fixture())

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 5, stats.GeneratedFrom)
	assert.Equal(t, map[model.Status]int{
		model.StatusPending:      1,
		model.StatusAcknowledged: 1,
		model.StatusInProgress:   0,
		model.StatusResolved:     2,
		model.StatusEscalated:    1,
	}, stats.ByStatus)
	assert.Equal(t, map[model.Category]int{
		model.CategoryCivic:      3,
		model.CategoryGovernance: 1,
		model.CategorySafety:     1,
	}, stats.ByCategory)
	assert.Equal(t, 2, stats.EscalatedCount)
	assert.InDelta(t, 0.4, stats.ResolutionRate, 1e-9)
	// (2h + 4h + 80h) / 3
	assert.InDelta(t, float64(86*3600)/3, stats.AverageTimeToAcknowledgeSecs, 1e-6)

	assert.Equal(t, []model.WardStats{
		{Ward: "Unassigned", Total: 1, Pending: 1},
		{Ward: "Ward 01", Total: 2, Resolved: 1, Delayed: 1},
		{Ward: "Ward 02", Total: 2, Resolved: 1, Pending: 1},
	}, stats.Wards)
}

func TestProjectEmpty(t *testing.T) {
	stats := Project(nil)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.ResolutionRate)
	assert.Zero(t, stats.AverageTimeToAcknowledgeSecs)
	assert.Empty(t, stats.Wards)
	assert.Len(t, stats.ByStatus, len(model.Statuses))
}

func TestProjectIgnoresSnapshotOrder(t *testing.T) {
	base := Project(fixture())
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		snap := fixture()
		r.Shuffle(len(snap), func(a, b int) { snap[a], snap[b] = snap[b], snap[a] })
		assert.Equal(t, base, Project(snap))
	}
}

func TestNoopCache(t *testing.T) {
	var c Cache = NoopCache{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, 0, &model.AggregateStats{Total: 1}))
	got, _, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, c.Invalidate(ctx))
}

// Needs a scratch Redis, e.g. ACCOUNTABILITY_TEST_REDIS=localhost:6379.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("ACCOUNTABILITY_TEST_REDIS")
	if addr == "" {
		t.Skip("ACCOUNTABILITY_TEST_REDIS not set")
	}
	ctx := context.Background()
	rdb, err := ConnectRedis(ctx, addr, "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	cache := NewRedisCache(rdb, "accountability:test:"+t.Name(), time.Minute)
	require.NoError(t, cache.Invalidate(ctx))

	_, gen, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := Project(fixture())
	require.NoError(t, cache.Set(ctx, gen, &want))
	got, _, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, *got)

	// a projection built before an invalidation lands under the old generation
	stale, gen, _, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.Set(ctx, gen, stale))
	_, _, ok, _ = cache.Get(ctx)
	assert.False(t, ok)
}
