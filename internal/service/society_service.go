package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

type societyStore interface {
	GetByID(ctx context.Context, id string) (*models.Society, error)
	ListBlocks(ctx context.Context, societyID string) ([]models.Block, error)
}

type unitCounter interface {
	CountByBlock(ctx context.Context, blockID string) (int, error)
	CountBySociety(ctx context.Context, societyID string) (total int, occupied int, err error)
	ListByBlock(ctx context.Context, blockID string) ([]models.Unit, error)
}

type visitorCounter interface {
	CountByStatusOnDate(ctx context.Context, societyID string, date time.Time) (map[models.VisitorStatus]int, error)
}

type issueCounter interface {
	CountOpen(ctx context.Context, societyID string) (int, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheRecorder interface {
	RecordCacheOperation(hit bool)
}

// SocietyService serves the directory and the manager dashboard. Summary
// aggregates are fanned out concurrently and cached; a cache failure only
// costs the recomputation.
type SocietyService struct {
	societies societyStore
	units     unitCounter
	visitors  visitorCounter
	issues    issueCounter
	cache     summaryCache
	metrics   cacheRecorder
	logger    *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// SetMetrics attaches the cache hit counters. Optional.
func (s *SocietyService) SetMetrics(m cacheRecorder) {
	s.metrics = m
}

// NewSocietyService constructs the service.
func NewSocietyService(societies societyStore, units unitCounter, visitors visitorCounter, issues issueCounter, cache summaryCache, logger *zap.Logger, cacheTTL time.Duration) *SocietyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &SocietyService{
		societies: societies,
		units:     units,
		visitors:  visitors,
		issues:    issues,
		cache:     cache,
		logger:    logger,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// Get returns one society.
func (s *SocietyService) Get(ctx context.Context, id string) (*models.Society, error) {
	society, err := s.societies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load society")
	}
	return society, nil
}

// Blocks returns the society's blocks with unit counts.
func (s *SocietyService) Blocks(ctx context.Context, societyID string) ([]models.BlockSummary, error) {
	blocks, err := s.societies.ListBlocks(ctx, societyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocks")
	}
	summaries := make([]models.BlockSummary, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	for i := range blocks {
		i := i
		summaries[i].Block = blocks[i]
		g.Go(func() error {
			count, err := s.units.CountByBlock(gctx, blocks[i].ID)
			if err != nil {
				return err
			}
			summaries[i].UnitCount = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count block units")
	}
	return summaries, nil
}

// Units returns the units of one block.
func (s *SocietyService) Units(ctx context.Context, blockID string) ([]models.Unit, error) {
	units, err := s.units.ListByBlock(ctx, blockID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list units")
	}
	return units, nil
}

// Dashboard assembles the manager summary for one society.
func (s *SocietyService) Dashboard(ctx context.Context, societyID string) (*dto.DashboardSummary, error) {
	cacheKey := "dashboard:" + societyID
	if s.cache != nil {
		var cached dto.DashboardSummary
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	summary := &dto.DashboardSummary{GeneratedAt: s.now().UTC()}
	today := summary.GeneratedAt.Truncate(24 * time.Hour)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		society, err := s.societies.GetByID(gctx, societyID)
		if err != nil {
			return err
		}
		summary.Society = society
		return nil
	})
	g.Go(func() error {
		blocks, err := s.Blocks(gctx, societyID)
		if err != nil {
			return err
		}
		summary.Blocks = blocks
		return nil
	})
	g.Go(func() error {
		total, occupied, err := s.units.CountBySociety(gctx, societyID)
		if err != nil {
			return err
		}
		summary.TotalUnits = total
		summary.OccupiedUnits = occupied
		return nil
	})
	g.Go(func() error {
		counts, err := s.visitors.CountByStatusOnDate(gctx, societyID, today)
		if err != nil {
			return err
		}
		summary.VisitorsToday = dto.VisitorCounts{
			Expected:   counts[models.VisitorStatusPending] + counts[models.VisitorStatusApproved],
			CheckedIn:  counts[models.VisitorStatusCheckedIn],
			CheckedOut: counts[models.VisitorStatusCheckedOut],
			Denied:     counts[models.VisitorStatusDenied],
		}
		return nil
	})
	g.Go(func() error {
		open, err := s.issues.CountOpen(gctx, societyID)
		if err != nil {
			return err
		}
		summary.OpenIssues = open
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}
