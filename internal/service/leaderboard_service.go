package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type leaderboardRepository interface {
	Top(ctx context.Context, filter models.LeaderboardFilter) ([]models.LeaderboardEntry, error)
	FindByUser(ctx context.Context, userID string) (*models.LeaderboardEntry, error)
	AddPoints(ctx context.Context, userID string, delta int) error
	SetAchievements(ctx context.Context, userID string, achievements []byte) error
	RecomputeRanks(ctx context.Context) error
}

// Awards at or above this size mint a badge on the entry.
const achievementThreshold = 50

// LeaderboardConfig governs read caching.
type LeaderboardConfig struct {
	CacheTTL time.Duration
}

// LeaderboardService serves ranked point listings with a short-lived Redis
// cache in front of the store.
type LeaderboardService struct {
	repo   leaderboardRepository
	cache  *CacheService
	logger *zap.Logger
	config LeaderboardConfig
}

// NewLeaderboardService constructs a LeaderboardService instance.
func NewLeaderboardService(repo leaderboardRepository, cache *CacheService, logger *zap.Logger, config LeaderboardConfig) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Minute
	}
	return &LeaderboardService{repo: repo, cache: cache, logger: logger, config: config}
}

// Top returns the highest ranked users for a period, optionally scoped to a
// district. The boolean reports whether the listing came from cache.
func (s *LeaderboardService) Top(ctx context.Context, filter models.LeaderboardFilter) ([]models.LeaderboardEntry, bool, error) {
	key := s.cacheKey(filter)
	if s.cache.Enabled() {
		var cached []models.LeaderboardEntry
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	entries, err := s.repo.Top(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}

	if err := s.cache.Set(ctx, key, entries, s.config.CacheTTL); err != nil {
		s.logger.Warn("leaderboard cache write failed", zap.Error(err))
	}
	return entries, false, nil
}

// Rank returns the entry of a single user.
func (s *LeaderboardService) Rank(ctx context.Context, userID string) (*models.LeaderboardEntry, error) {
	entry, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no leaderboard entry for user")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard entry")
	}
	return entry, nil
}

// AwardPoints grants a manual point adjustment to a user, creating the entry
// when absent. Awards of achievementThreshold points or more append a badge
// to the entry's achievements blob.
func (s *LeaderboardService) AwardPoints(ctx context.Context, userID string, delta int, badge string) (*models.LeaderboardEntry, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "userId is required")
	}
	if delta == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "points must be non-zero")
	}

	if err := s.repo.AddPoints(ctx, userID, delta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to award points")
	}

	entry, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard entry")
	}

	if delta >= achievementThreshold {
		if badge == "" {
			badge = fmt.Sprintf("civic-award-%d", delta)
		}
		var achievements []models.Achievement
		if len(entry.Achievements) > 0 {
			if err := json.Unmarshal(entry.Achievements, &achievements); err != nil {
				s.logger.Warn("corrupt achievements blob, resetting", zap.String("user_id", userID), zap.Error(err))
				achievements = nil
			}
		}
		achievements = append(achievements, models.Achievement{Badge: badge, EarnedAt: time.Now().UTC()})
		blob, err := json.Marshal(achievements)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode achievements")
		}
		if err := s.repo.SetAchievements(ctx, userID, blob); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store achievements")
		}
		entry.Achievements = blob
	}

	if err := s.cache.Invalidate(ctx, "leaderboard:*"); err != nil {
		s.logger.Warn("failed to invalidate leaderboard cache", zap.Error(err))
	}
	return entry, nil
}

// RecomputeRanks refreshes the rank column and clears cached listings.
func (s *LeaderboardService) RecomputeRanks(ctx context.Context) error {
	if err := s.repo.RecomputeRanks(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute ranks")
	}
	if err := s.cache.Invalidate(ctx, "leaderboard:*"); err != nil {
		s.logger.Warn("failed to invalidate leaderboard cache", zap.Error(err))
	}
	return nil
}

func (s *LeaderboardService) cacheKey(filter models.LeaderboardFilter) string {
	period := filter.Period
	if period == "" {
		period = "all"
	}
	district := filter.DistrictID
	if district == "" {
		district = "global"
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return fmt.Sprintf("leaderboard:%s:%s:%d", period, district, limit)
}
