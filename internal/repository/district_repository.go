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

const districtColumns = `id, name, state, verified, admin_id, admin_name, admin_username, admin_email, admin_phone_number, admin_aadhar_number, admin_password_hash, lat, lng, country, pincode, address, source_application_id, is_active, created_at, updated_at`

// DistrictRepository provides database access for districts.
type DistrictRepository struct {
	db *sqlx.DB
}

// NewDistrictRepository creates a new instance of DistrictRepository.
func NewDistrictRepository(db *sqlx.DB) *DistrictRepository {
	return &DistrictRepository{db: db}
}

// Create inserts a new district record.
func (r *DistrictRepository) Create(ctx context.Context, district *models.District) error {
	if district.ID == "" {
		district.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if district.CreatedAt.IsZero() {
		district.CreatedAt = now
	}
	district.UpdatedAt = now

	const query = `INSERT INTO districts (id, name, state, verified, admin_id, admin_name, admin_username, admin_email, admin_phone_number, admin_aadhar_number, admin_password_hash, lat, lng, country, pincode, address, source_application_id, is_active, created_at, updated_at) VALUES (:id, :name, :state, :verified, :admin_id, :admin_name, :admin_username, :admin_email, :admin_phone_number, :admin_aadhar_number, :admin_password_hash, :lat, :lng, :country, :pincode, :address, :source_application_id, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, district); err != nil {
		return fmt.Errorf("create district: %w", err)
	}
	return nil
}

// FindByID returns a district by identifier.
func (r *DistrictRepository) FindByID(ctx context.Context, id string) (*models.District, error) {
	query := fmt.Sprintf(`SELECT %s FROM districts WHERE id = $1 LIMIT 1`, districtColumns)
	var district models.District
	if err := r.db.GetContext(ctx, &district, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find district by id: %w", err)
	}
	return &district, nil
}

// FindByName returns a district by case-insensitive name match.
func (r *DistrictRepository) FindByName(ctx context.Context, name string) (*models.District, error) {
	query := fmt.Sprintf(`SELECT %s FROM districts WHERE LOWER(name) = LOWER($1) LIMIT 1`, districtColumns)
	var district models.District
	if err := r.db.GetContext(ctx, &district, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find district by name: %w", err)
	}
	return &district, nil
}

// FindByNameAndState returns a district matched case-insensitively by name
// and state. Serves the moderation path, which resolves districts by the
// pair rather than by id.
func (r *DistrictRepository) FindByNameAndState(ctx context.Context, name, state string) (*models.District, error) {
	query := fmt.Sprintf(`SELECT %s FROM districts WHERE LOWER(name) = LOWER($1) AND LOWER(state) = LOWER($2) LIMIT 1`, districtColumns)
	var district models.District
	if err := r.db.GetContext(ctx, &district, query, name, state); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find district by name and state: %w", err)
	}
	return &district, nil
}

// FindByAdminUsername returns the district whose embedded admin has the
// given username. Serves the district-admin login path.
func (r *DistrictRepository) FindByAdminUsername(ctx context.Context, username string) (*models.District, error) {
	query := fmt.Sprintf(`SELECT %s FROM districts WHERE admin_username = $1 LIMIT 1`, districtColumns)
	var district models.District
	if err := r.db.GetContext(ctx, &district, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find district by admin username: %w", err)
	}
	return &district, nil
}

// FindByAdminEmail returns the verified district whose embedded admin has the
// given email address. Unverified districts cannot be logged into.
func (r *DistrictRepository) FindByAdminEmail(ctx context.Context, email string) (*models.District, error) {
	query := fmt.Sprintf(`SELECT %s FROM districts WHERE LOWER(admin_email) = LOWER($1) AND verified = TRUE LIMIT 1`, districtColumns)
	var district models.District
	if err := r.db.GetContext(ctx, &district, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find district by admin email: %w", err)
	}
	return &district, nil
}

// FindBySourceApplication returns the district created from a given
// application, making approval idempotent.
func (r *DistrictRepository) FindBySourceApplication(ctx context.Context, applicationID string) (*models.District, error) {
	query := fmt.Sprintf(`SELECT %s FROM districts WHERE source_application_id = $1 LIMIT 1`, districtColumns)
	var district models.District
	if err := r.db.GetContext(ctx, &district, query, applicationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find district by source application: %w", err)
	}
	return &district, nil
}

// List returns districts based on filters with total count.
func (r *DistrictRepository) List(ctx context.Context, filter models.DistrictFilter) ([]models.District, int, error) {
	baseQuery := `FROM districts WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(state) = LOWER($%d)", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.Verified != nil {
		conditions = append(conditions, fmt.Sprintf("verified = $%d", len(args)+1))
		args = append(args, *filter.Verified)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(state) LIKE $%d)", len(args)+1, len(args)+1))
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", districtColumns, baseQuery, pageSize, offset)

	var districts []models.District
	if err := r.db.SelectContext(ctx, &districts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list districts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count districts: %w", err)
	}

	return districts, total, nil
}

// ListWithCoordinates returns all active districts that carry coordinates,
// for nearest-district resolution.
func (r *DistrictRepository) ListWithCoordinates(ctx context.Context) ([]models.District, error) {
	query := fmt.Sprintf(`SELECT %s FROM districts WHERE is_active = TRUE AND lat IS NOT NULL AND lng IS NOT NULL`, districtColumns)
	var districts []models.District
	if err := r.db.SelectContext(ctx, &districts, query); err != nil {
		return nil, fmt.Errorf("list districts with coordinates: %w", err)
	}
	return districts, nil
}

// Update updates mutable fields of a district.
func (r *DistrictRepository) Update(ctx context.Context, district *models.District) error {
	district.UpdatedAt = time.Now().UTC()
	const query = `UPDATE districts SET name = :name, state = :state, verified = :verified, lat = :lat, lng = :lng, country = :country, pincode = :pincode, address = :address, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, district); err != nil {
		return fmt.Errorf("update district: %w", err)
	}
	return nil
}

// SetVerified flips the verification flag of a district.
func (r *DistrictRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	const query = `UPDATE districts SET verified = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, verified, time.Now().UTC()); err != nil {
		return fmt.Errorf("set district verified: %w", err)
	}
	return nil
}

// SetReferencedAdmin points the district at a user account as its admin.
func (r *DistrictRepository) SetReferencedAdmin(ctx context.Context, districtID, userID string) error {
	const query = `UPDATE districts SET admin_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, districtID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set referenced admin: %w", err)
	}
	return nil
}

// ClearReferencedAdmin removes the user reference from the district.
func (r *DistrictRepository) ClearReferencedAdmin(ctx context.Context, districtID string) error {
	const query = `UPDATE districts SET admin_id = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, districtID, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear referenced admin: %w", err)
	}
	return nil
}

// UpdateAdminPassword updates the embedded admin password hash.
func (r *DistrictRepository) UpdateAdminPassword(ctx context.Context, districtID, passwordHash string) error {
	const query = `UPDATE districts SET admin_password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, districtID, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	return nil
}

// Delete removes a district permanently.
func (r *DistrictRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM districts WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete district: %w", err)
	}
	return nil
}

// Stats aggregates user and issue counts for a district.
func (r *DistrictRepository) Stats(ctx context.Context, districtID string) (*models.DistrictStats, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM users WHERE district_id = $1) AS total_users,
		(SELECT COUNT(*) FROM issues WHERE district_id = $1) AS total_issues,
		(SELECT COUNT(*) FROM issues WHERE district_id = $1 AND status = 'resolved') AS resolved_issues,
		(SELECT COUNT(*) FROM issues WHERE district_id = $1 AND status = 'pending') AS pending_issues`
	var row struct {
		TotalUsers     int `db:"total_users"`
		TotalIssues    int `db:"total_issues"`
		ResolvedIssues int `db:"resolved_issues"`
		PendingIssues  int `db:"pending_issues"`
	}
	if err := r.db.GetContext(ctx, &row, query, districtID); err != nil {
		return nil, fmt.Errorf("district stats: %w", err)
	}

	stats := &models.DistrictStats{
		TotalUsers:     row.TotalUsers,
		TotalIssues:    row.TotalIssues,
		ResolvedIssues: row.ResolvedIssues,
		PendingIssues:  row.PendingIssues,
	}
	if stats.TotalIssues > 0 {
		stats.ResolutionRate = float64(stats.ResolvedIssues) / float64(stats.TotalIssues) * 100
	}
	return stats, nil
}
