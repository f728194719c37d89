package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civicnet/civicconnect-api/internal/models"
)

// LeaderboardRepository provides database access for the points leaderboard.
type LeaderboardRepository struct {
	db *sqlx.DB
}

// NewLeaderboardRepository creates a new instance of LeaderboardRepository.
func NewLeaderboardRepository(db *sqlx.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// AddPoints upserts the entry for a user and bumps every period counter.
func (r *LeaderboardRepository) AddPoints(ctx context.Context, userID string, delta int) error {
	const query = `INSERT INTO leaderboard_entries (id, user_id, points, monthly_points, yearly_points, updated_at)
		VALUES ($1, $2, $3, $3, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			points = leaderboard_entries.points + $3,
			monthly_points = leaderboard_entries.monthly_points + $3,
			yearly_points = leaderboard_entries.yearly_points + $3,
			updated_at = $4`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, delta, time.Now().UTC()); err != nil {
		return fmt.Errorf("add leaderboard points: %w", err)
	}
	return nil
}

// FindByUser returns the leaderboard entry of a user.
func (r *LeaderboardRepository) FindByUser(ctx context.Context, userID string) (*models.LeaderboardEntry, error) {
	const query = `SELECT l.id, l.user_id, l.points, l.monthly_points, l.yearly_points, l.rank, l.achievements, l.updated_at, u.name AS user_name, u.district_name
		FROM leaderboard_entries l JOIN users u ON u.id = l.user_id WHERE l.user_id = $1 LIMIT 1`
	var entry models.LeaderboardEntry
	if err := r.db.GetContext(ctx, &entry, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find leaderboard entry: %w", err)
	}
	return &entry, nil
}

// Top returns the highest ranked entries for the requested period.
func (r *LeaderboardRepository) Top(ctx context.Context, filter models.LeaderboardFilter) ([]models.LeaderboardEntry, error) {
	column := "l.points"
	switch filter.Period {
	case "monthly":
		column = "l.monthly_points"
	case "yearly":
		column = "l.yearly_points"
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := `SELECT l.id, l.user_id, l.points, l.monthly_points, l.yearly_points, l.rank, l.achievements, l.updated_at, u.name AS user_name, u.district_name
		FROM leaderboard_entries l JOIN users u ON u.id = l.user_id WHERE u.is_active = TRUE`
	var args []interface{}
	if filter.DistrictID != "" {
		query += ` AND u.district_id = $1`
		args = append(args, filter.DistrictID)
	}
	query += fmt.Sprintf(" ORDER BY %s DESC, l.updated_at ASC LIMIT %d", column, limit)

	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}
	return entries, nil
}

// RecomputeRanks rewrites the dense rank column from the all-time points
// ordering.
func (r *LeaderboardRepository) RecomputeRanks(ctx context.Context) error {
	const query = `UPDATE leaderboard_entries l SET rank = ranked.new_rank
		FROM (SELECT id, DENSE_RANK() OVER (ORDER BY points DESC) AS new_rank FROM leaderboard_entries) ranked
		WHERE l.id = ranked.id`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("recompute ranks: %w", err)
	}
	return nil
}

// SetAchievements replaces the achievements blob of an entry.
func (r *LeaderboardRepository) SetAchievements(ctx context.Context, userID string, achievements []byte) error {
	const query = `UPDATE leaderboard_entries SET achievements = $2, updated_at = $3 WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, achievements, time.Now().UTC()); err != nil {
		return fmt.Errorf("set achievements: %w", err)
	}
	return nil
}

// ResetPeriod zeroes a period counter. The scheduler calls this at month and
// year boundaries.
func (r *LeaderboardRepository) ResetPeriod(ctx context.Context, period string) error {
	var column string
	switch period {
	case "monthly":
		column = "monthly_points"
	case "yearly":
		column = "yearly_points"
	default:
		return fmt.Errorf("unknown leaderboard period %q", period)
	}
	query := fmt.Sprintf(`UPDATE leaderboard_entries SET %s = 0, updated_at = $1`, column)
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC()); err != nil {
		return fmt.Errorf("reset leaderboard period: %w", err)
	}
	return nil
}
