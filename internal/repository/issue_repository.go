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

const issueColumns = `i.id, i.title, i.description, i.category, i.priority, i.status, i.reporter_id, i.district_id, i.lat, i.lng, i.address, i.image_url, i.upvotes, i.resolved_at, i.resolved_by, i.created_at, i.updated_at, u.name AS reporter_name`

// IssueRepository provides database access for reported civic issues.
type IssueRepository struct {
	db *sqlx.DB
}

// NewIssueRepository creates a new instance of IssueRepository.
func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create inserts a new issue record.
func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	issue.UpdatedAt = now
	if issue.Status == "" {
		issue.Status = models.IssuePending
	}

	if issue.Priority == "" {
		issue.Priority = models.PriorityMedium
	}

	const query = `INSERT INTO issues (id, title, description, category, priority, status, reporter_id, district_id, lat, lng, address, image_url, upvotes, resolved_at, resolved_by, created_at, updated_at) VALUES (:id, :title, :description, :category, :priority, :status, :reporter_id, :district_id, :lat, :lng, :address, :image_url, :upvotes, :resolved_at, :resolved_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, issue); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	return nil
}

// FindByID returns an issue with its reporter name joined in.
func (r *IssueRepository) FindByID(ctx context.Context, id string) (*models.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM issues i JOIN users u ON u.id = i.reporter_id WHERE i.id = $1 LIMIT 1`, issueColumns)
	var issue models.Issue
	if err := r.db.GetContext(ctx, &issue, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find issue by id: %w", err)
	}
	return &issue, nil
}

// List returns issues based on filters with total count.
func (r *IssueRepository) List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, int, error) {
	baseQuery := `FROM issues i JOIN users u ON u.id = i.reporter_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("i.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("i.priority = $%d", len(args)+1))
		args = append(args, filter.Priority)
	}
	if filter.DistrictID != "" {
		conditions = append(conditions, fmt.Sprintf("i.district_id = $%d", len(args)+1))
		args = append(args, filter.DistrictID)
	}
	if filter.ReporterID != "" {
		conditions = append(conditions, fmt.Sprintf("i.reporter_id = $%d", len(args)+1))
		args = append(args, filter.ReporterID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(i.title) LIKE $%d OR LOWER(i.description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY i.created_at DESC LIMIT %d OFFSET %d", issueColumns, baseQuery, pageSize, offset)

	var issues []models.Issue
	if err := r.db.SelectContext(ctx, &issues, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list issues: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", err)
	}

	return issues, total, nil
}

// UpdateStatus moves an issue through its lifecycle. Resolution metadata is
// stamped when the target status is resolved.
func (r *IssueRepository) UpdateStatus(ctx context.Context, id string, status models.IssueStatus, resolvedBy *string) error {
	now := time.Now().UTC()
	if status == models.IssueResolved {
		const query = `UPDATE issues SET status = $2, resolved_at = $3, resolved_by = $4, updated_at = $3 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, status, now, resolvedBy); err != nil {
			return fmt.Errorf("update issue status: %w", err)
		}
		return nil
	}
	const query = `UPDATE issues SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, now); err != nil {
		return fmt.Errorf("update issue status: %w", err)
	}
	return nil
}

// Update updates mutable fields of an issue.
func (r *IssueRepository) Update(ctx context.Context, issue *models.Issue) error {
	issue.UpdatedAt = time.Now().UTC()
	const query = `UPDATE issues SET title = :title, description = :description, category = :category, lat = :lat, lng = :lng, address = :address, image_url = :image_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, issue); err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	return nil
}

// Delete removes an issue permanently.
func (r *IssueRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM issues WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	return nil
}

// HasUpvoted reports whether a user already upvoted an issue.
func (r *IssueRepository) HasUpvoted(ctx context.Context, issueID, userID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM issue_upvotes WHERE issue_id = $1 AND user_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, issueID, userID); err != nil {
		return false, fmt.Errorf("check upvote: %w", err)
	}
	return count > 0, nil
}

// Upvote records an upvote and bumps the denormalised counter in one
// transaction.
func (r *IssueRepository) Upvote(ctx context.Context, issueID, userID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upvote tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO issue_upvotes (issue_id, user_id, created_at) VALUES ($1, $2, $3)`, issueID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert upvote: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE issues SET upvotes = upvotes + 1, updated_at = $2 WHERE id = $1`, issueID, time.Now().UTC()); err != nil {
		return fmt.Errorf("increment upvotes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upvote tx: %w", err)
	}
	return nil
}

// StatusCounts aggregates issue counts by status, optionally scoped to a
// district.
func (r *IssueRepository) StatusCounts(ctx context.Context, districtID string) (*models.IssueStats, error) {
	query := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'pending') AS pending,
		COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress,
		COUNT(*) FILTER (WHERE status = 'resolved') AS resolved,
		COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
	FROM issues`
	var args []interface{}
	if districtID != "" {
		query += ` WHERE district_id = $1`
		args = append(args, districtID)
	}

	var stats models.IssueStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("issue status counts: %w", err)
	}
	return &stats, nil
}

// RecentByDistrict returns the newest issues of a district.
func (r *IssueRepository) RecentByDistrict(ctx context.Context, districtID string, limit int) ([]models.Issue, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM issues i JOIN users u ON u.id = i.reporter_id WHERE i.district_id = $1 ORDER BY i.created_at DESC LIMIT %d`, issueColumns, limit)
	var issues []models.Issue
	if err := r.db.SelectContext(ctx, &issues, query, districtID); err != nil {
		return nil, fmt.Errorf("recent issues by district: %w", err)
	}
	return issues, nil
}
