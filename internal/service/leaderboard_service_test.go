package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type fakeBoardRepo struct {
	entries    map[string]*models.LeaderboardEntry
	topCalls   int
	recomputed bool
}

func newFakeBoardRepo() *fakeBoardRepo {
	return &fakeBoardRepo{entries: map[string]*models.LeaderboardEntry{}}
}

func (f *fakeBoardRepo) Top(_ context.Context, _ models.LeaderboardFilter) ([]models.LeaderboardEntry, error) {
	f.topCalls++
	var out []models.LeaderboardEntry
	for _, entry := range f.entries {
		out = append(out, *entry)
	}
	return out, nil
}

func (f *fakeBoardRepo) FindByUser(_ context.Context, userID string) (*models.LeaderboardEntry, error) {
	if entry, ok := f.entries[userID]; ok {
		copied := *entry
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBoardRepo) AddPoints(_ context.Context, userID string, delta int) error {
	entry, ok := f.entries[userID]
	if !ok {
		entry = &models.LeaderboardEntry{ID: "lb-" + userID, UserID: userID}
		f.entries[userID] = entry
	}
	entry.Points += delta
	entry.MonthlyPoints += delta
	entry.YearlyPoints += delta
	return nil
}

func (f *fakeBoardRepo) SetAchievements(_ context.Context, userID string, achievements []byte) error {
	entry, ok := f.entries[userID]
	if !ok {
		return sql.ErrNoRows
	}
	entry.Achievements = achievements
	return nil
}

func (f *fakeBoardRepo) RecomputeRanks(context.Context) error {
	f.recomputed = true
	return nil
}

type memoryCacheRepo struct {
	values map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	m.values = map[string][]byte{}
	return nil
}

func newBoardService(repo *fakeBoardRepo, cacheRepo CacheRepository) *LeaderboardService {
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	}
	return NewLeaderboardService(repo, cache, nil, LeaderboardConfig{CacheTTL: time.Minute})
}

func TestTopServesSecondReadFromCache(t *testing.T) {
	repo := newFakeBoardRepo()
	require.NoError(t, repo.AddPoints(context.Background(), "u1", 10))
	svc := newBoardService(repo, newMemoryCacheRepo())

	entries, fromCache, err := svc.Top(context.Background(), models.LeaderboardFilter{})
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Len(t, entries, 1)

	entries, fromCache, err = svc.Top(context.Background(), models.LeaderboardFilter{})
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, repo.topCalls)
}

func TestAwardPointsCreatesEntry(t *testing.T) {
	repo := newFakeBoardRepo()
	svc := newBoardService(repo, nil)

	entry, err := svc.AwardPoints(context.Background(), "u1", 10, "")
	require.NoError(t, err)
	assert.Equal(t, 10, entry.Points)
	assert.Empty(t, entry.Achievements)
}

func TestAwardPointsMintsBadgeForBigAwards(t *testing.T) {
	repo := newFakeBoardRepo()
	svc := newBoardService(repo, nil)

	entry, err := svc.AwardPoints(context.Background(), "u1", 75, "community-champion")
	require.NoError(t, err)
	assert.Equal(t, 75, entry.Points)

	var achievements []models.Achievement
	require.NoError(t, json.Unmarshal(entry.Achievements, &achievements))
	require.Len(t, achievements, 1)
	assert.Equal(t, "community-champion", achievements[0].Badge)
}

func TestAwardPointsRejectsZeroDelta(t *testing.T) {
	svc := newBoardService(newFakeBoardRepo(), nil)

	_, err := svc.AwardPoints(context.Background(), "u1", 0, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRankUnknownUser(t *testing.T) {
	svc := newBoardService(newFakeBoardRepo(), nil)

	_, err := svc.Rank(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecomputeRanksInvalidatesCache(t *testing.T) {
	repo := newFakeBoardRepo()
	cacheRepo := newMemoryCacheRepo()
	svc := newBoardService(repo, cacheRepo)

	_, _, err := svc.Top(context.Background(), models.LeaderboardFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, cacheRepo.values)

	require.NoError(t, svc.RecomputeRanks(context.Background()))
	assert.True(t, repo.recomputed)
	assert.Empty(t, cacheRepo.values)
}
