package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

type societyStoreStub struct {
	society *models.Society
	blocks  []models.Block
}

func (s *societyStoreStub) GetByID(ctx context.Context, id string) (*models.Society, error) {
	copied := *s.society
	return &copied, nil
}

func (s *societyStoreStub) ListBlocks(ctx context.Context, societyID string) ([]models.Block, error) {
	return s.blocks, nil
}

type unitCounterStub struct {
	perBlock map[string]int
	total    int
	occupied int
}

func (u *unitCounterStub) CountByBlock(ctx context.Context, blockID string) (int, error) {
	return u.perBlock[blockID], nil
}

func (u *unitCounterStub) CountBySociety(ctx context.Context, societyID string) (int, int, error) {
	return u.total, u.occupied, nil
}

func (u *unitCounterStub) ListByBlock(ctx context.Context, blockID string) ([]models.Unit, error) {
	return nil, nil
}

type visitorCounterStub struct {
	counts map[models.VisitorStatus]int
	calls  int
	mu     sync.Mutex
}

func (v *visitorCounterStub) CountByStatusOnDate(ctx context.Context, societyID string, date time.Time) (map[models.VisitorStatus]int, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	return v.counts, nil
}

type issueCounterStub struct {
	open int
}

func (i *issueCounterStub) CountOpen(ctx context.Context, societyID string) (int, error) {
	return i.open, nil
}

// mapCache is an in-memory stand-in for the redis-backed summary cache.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func newSocietyFixture(t *testing.T, cache summaryCache) (*SocietyService, *visitorCounterStub) {
	t.Helper()
	societies := &societyStoreStub{
		society: &models.Society{ID: "soc-1", Name: "Green Meadows"},
		blocks: []models.Block{
			{ID: "block-a", SocietyID: "soc-1", Name: "A"},
			{ID: "block-b", SocietyID: "soc-1", Name: "B"},
		},
	}
	units := &unitCounterStub{
		perBlock: map[string]int{"block-a": 40, "block-b": 32},
		total:    72,
		occupied: 60,
	}
	visitors := &visitorCounterStub{counts: map[models.VisitorStatus]int{
		models.VisitorStatusPending:    2,
		models.VisitorStatusApproved:   5,
		models.VisitorStatusCheckedIn:  3,
		models.VisitorStatusCheckedOut: 4,
		models.VisitorStatusDenied:     1,
	}}
	issues := &issueCounterStub{open: 6}
	svc := NewSocietyService(societies, units, visitors, issues, cache, nil, time.Minute)
	return svc, visitors
}

func TestDashboardAggregates(t *testing.T) {
	svc, _ := newSocietyFixture(t, nil)

	summary, err := svc.Dashboard(context.Background(), "soc-1")
	require.NoError(t, err)
	require.Equal(t, "Green Meadows", summary.Society.Name)
	require.Len(t, summary.Blocks, 2)
	require.Equal(t, 72, summary.TotalUnits)
	require.Equal(t, 60, summary.OccupiedUnits)
	require.Equal(t, dto.VisitorCounts{
		Expected:   7, // pending plus approved
		CheckedIn:  3,
		CheckedOut: 4,
		Denied:     1,
	}, summary.VisitorsToday)
	require.Equal(t, 6, summary.OpenIssues)
}

func TestDashboardServedFromCache(t *testing.T) {
	cache := newMapCache()
	svc, visitors := newSocietyFixture(t, cache)

	first, err := svc.Dashboard(context.Background(), "soc-1")
	require.NoError(t, err)

	second, err := svc.Dashboard(context.Background(), "soc-1")
	require.NoError(t, err)
	require.Equal(t, first.TotalUnits, second.TotalUnits)
	require.Equal(t, first.VisitorsToday, second.VisitorsToday)
	require.Equal(t, 1, visitors.calls)
}

func TestBlocksCarryUnitCounts(t *testing.T) {
	svc, _ := newSocietyFixture(t, nil)

	blocks, err := svc.Blocks(context.Background(), "soc-1")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	counts := map[string]int{}
	for _, b := range blocks {
		counts[b.Name] = b.UnitCount
	}
	require.Equal(t, map[string]int{"A": 40, "B": 32}, counts)
}
