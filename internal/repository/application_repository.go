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

const applicationColumns = `id, name, state, country, pincode, address, lat, lng, admin_name, admin_username, admin_email, admin_phone_number, admin_aadhar_number, admin_password_hash, status, decision_reason, created_at, updated_at`

// ApplicationRepository provides database access for district applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a new instance of ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a new pending application.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.DistrictApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = models.ApprovalPending
	}

	const query = `INSERT INTO district_applications (id, name, state, country, pincode, address, lat, lng, admin_name, admin_username, admin_email, admin_phone_number, admin_aadhar_number, admin_password_hash, status, decision_reason, created_at, updated_at) VALUES (:id, :name, :state, :country, :pincode, :address, :lat, :lng, :admin_name, :admin_username, :admin_email, :admin_phone_number, :admin_aadhar_number, :admin_password_hash, :status, :decision_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID returns an application by identifier.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.DistrictApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM district_applications WHERE id = $1 LIMIT 1`, applicationColumns)
	var app models.DistrictApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find application by id: %w", err)
	}
	return &app, nil
}

// FindByAdminEmail returns the most recent application for an applicant
// email, pending first. Serves the login pending-check.
func (r *ApplicationRepository) FindByAdminEmail(ctx context.Context, email string) (*models.DistrictApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM district_applications WHERE LOWER(admin_email) = LOWER($1) ORDER BY CASE status WHEN 'pending' THEN 0 ELSE 1 END, created_at DESC LIMIT 1`, applicationColumns)
	var app models.DistrictApplication
	if err := r.db.GetContext(ctx, &app, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find application by admin email: %w", err)
	}
	return &app, nil
}

// FindPendingByAdminUsername returns a pending application matching the
// applicant username.
func (r *ApplicationRepository) FindPendingByAdminUsername(ctx context.Context, username string) (*models.DistrictApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM district_applications WHERE admin_username = $1 AND status = 'pending' LIMIT 1`, applicationColumns)
	var app models.DistrictApplication
	if err := r.db.GetContext(ctx, &app, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find pending application by username: %w", err)
	}
	return &app, nil
}

// List returns applications based on filters with total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.DistrictApplication, int, error) {
	baseQuery := `FROM district_applications WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Status == models.ApprovalPending {
		// An application whose district exists was approved; a crash before
		// the cleanup delete must not resurface it as pending.
		conditions = append(conditions, "NOT EXISTS (SELECT 1 FROM districts WHERE districts.source_application_id = district_applications.id)")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", applicationColumns, baseQuery, pageSize, offset)

	var apps []models.DistrictApplication
	if err := r.db.SelectContext(ctx, &apps, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	return apps, total, nil
}

// UpdateDecision records the moderation outcome on an application.
func (r *ApplicationRepository) UpdateDecision(ctx context.Context, id string, status models.ApprovalStatus, reason *string) error {
	const query = `UPDATE district_applications SET status = $2, decision_reason = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("update application decision: %w", err)
	}
	return nil
}

// Delete removes an application permanently. Approval consumes the
// application this way once the district exists.
func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM district_applications WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}
