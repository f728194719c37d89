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

const superAdminColumns = `id, name, email, password_hash, phone_number, aadhar_number, lat, lng, profile_picture, is_active, last_login, singleton, created_at, updated_at`

// SuperAdminRepository provides database access for the singleton super
// admin account.
type SuperAdminRepository struct {
	db *sqlx.DB
}

// NewSuperAdminRepository creates a new instance of SuperAdminRepository.
func NewSuperAdminRepository(db *sqlx.DB) *SuperAdminRepository {
	return &SuperAdminRepository{db: db}
}

// Create inserts the super admin. The unique index on the singleton column
// makes a second insert fail at the store level.
func (r *SuperAdminRepository) Create(ctx context.Context, admin *models.SuperAdmin) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = now
	}
	admin.UpdatedAt = now
	admin.Singleton = true

	const query = `INSERT INTO super_admins (id, name, email, password_hash, phone_number, aadhar_number, lat, lng, profile_picture, is_active, last_login, singleton, created_at, updated_at) VALUES (:id, :name, :email, :password_hash, :phone_number, :aadhar_number, :lat, :lng, :profile_picture, :is_active, :last_login, :singleton, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}
	return nil
}

// Find returns the singleton super admin if one exists.
func (r *SuperAdminRepository) Find(ctx context.Context) (*models.SuperAdmin, error) {
	query := fmt.Sprintf(`SELECT %s FROM super_admins LIMIT 1`, superAdminColumns)
	var admin models.SuperAdmin
	if err := r.db.GetContext(ctx, &admin, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find super admin: %w", err)
	}
	return &admin, nil
}

// FindByEmail returns the super admin by email address.
func (r *SuperAdminRepository) FindByEmail(ctx context.Context, email string) (*models.SuperAdmin, error) {
	query := fmt.Sprintf(`SELECT %s FROM super_admins WHERE LOWER(email) = LOWER($1) LIMIT 1`, superAdminColumns)
	var admin models.SuperAdmin
	if err := r.db.GetContext(ctx, &admin, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find super admin by email: %w", err)
	}
	return &admin, nil
}

// Exists reports whether a super admin account has been created.
func (r *SuperAdminRepository) Exists(ctx context.Context) (bool, error) {
	const query = `SELECT COUNT(*) FROM super_admins`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return false, fmt.Errorf("count super admins: %w", err)
	}
	return count > 0, nil
}

// Update updates mutable profile fields.
func (r *SuperAdminRepository) Update(ctx context.Context, admin *models.SuperAdmin) error {
	admin.UpdatedAt = time.Now().UTC()
	const query = `UPDATE super_admins SET name = :name, phone_number = :phone_number, lat = :lat, lng = :lng, profile_picture = :profile_picture, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		return fmt.Errorf("update super admin: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp.
func (r *SuperAdminRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE super_admins SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update super admin last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *SuperAdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE super_admins SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update super admin password: %w", err)
	}
	return nil
}
