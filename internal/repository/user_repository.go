package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civicnet/civicconnect-api/internal/models"
)

const userColumns = `id, name, username, email, password_hash, role, district_id, approval_status, district_name, state, phone_number, aadhar_number, language, points, profile_picture, is_active, last_login, created_at, updated_at`

// UserRepository provides database access for citizen and admin accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address, matched case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByUsername returns a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, name, username, email, password_hash, role, district_id, approval_status, district_name, state, phone_number, aadhar_number, language, points, profile_picture, is_active, last_login, created_at, updated_at) VALUES (:id, :name, :username, :email, :password_hash, :role, :district_id, :approval_status, :district_name, :state, :phone_number, :aadhar_number, :language, :points, :profile_picture, :is_active, :last_login, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates mutable profile fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET name = :name, phone_number = :phone_number, language = :language, district_name = :district_name, state = :state, profile_picture = :profile_picture, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetDistrictAdmin promotes a user to approved admin of the given district
// and records the district name and state on the account.
func (r *UserRepository) SetDistrictAdmin(ctx context.Context, userID, districtID, districtName, state string) error {
	const query = `UPDATE users SET role = $2, district_id = $3, approval_status = $4, district_name = $5, state = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, models.RoleAdmin, districtID, models.ApprovalApproved, districtName, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("set district admin: %w", err)
	}
	return nil
}

// SetApprovalStatus records the moderation decision on an account.
func (r *UserRepository) SetApprovalStatus(ctx context.Context, userID string, status models.ApprovalStatus) error {
	const query = `UPDATE users SET approval_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set approval status: %w", err)
	}
	return nil
}

// AddPoints increments a user's points balance.
func (r *UserRepository) AddPoints(ctx context.Context, userID string, delta int) error {
	const query = `UPDATE users SET points = points + $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, delta, time.Now().UTC()); err != nil {
		return fmt.Errorf("add points: %w", err)
	}
	return nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.DistrictID != nil {
		conditions = append(conditions, fmt.Sprintf("district_id = $%d", len(args)+1))
		args = append(args, *filter.DistrictID)
	}
	if filter.ApprovalStatus != nil {
		conditions = append(conditions, fmt.Sprintf("approval_status = $%d", len(args)+1))
		args = append(args, *filter.ApprovalStatus)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(name) LIKE $%d OR LOWER(username) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"email":      true,
		"name":       true,
		"points":     true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", userColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Stats aggregates a user's civic activity across issues and upvotes.
func (r *UserRepository) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM issues WHERE reporter_id = $1) AS issues_created,
		(SELECT COUNT(*) FROM issues WHERE reporter_id = $1 AND status = 'resolved') AS issues_resolved,
		(SELECT COALESCE(SUM(upvotes), 0) FROM issues WHERE reporter_id = $1) AS upvotes_received,
		(SELECT COUNT(*) FROM issue_upvotes WHERE user_id = $1) AS upvotes_given,
		(SELECT COALESCE(points, 0) FROM users WHERE id = $1) AS total_points`
	var stats struct {
		IssuesCreated   int `db:"issues_created"`
		IssuesResolved  int `db:"issues_resolved"`
		UpvotesReceived int `db:"upvotes_received"`
		UpvotesGiven    int `db:"upvotes_given"`
		TotalPoints     int `db:"total_points"`
	}
	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return &models.UserStats{
		IssuesCreated:   stats.IssuesCreated,
		IssuesResolved:  stats.IssuesResolved,
		UpvotesReceived: stats.UpvotesReceived,
		UpvotesGiven:    stats.UpvotesGiven,
		TotalPoints:     stats.TotalPoints,
	}, nil
}

// Delete performs a soft delete by marking the user inactive.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE users SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
