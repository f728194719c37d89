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

const sosColumns = `id, district_id, name, type, phone_number, alt_phone_number, address, lat, lng, emergency_level, available_24x7, opens_at, closes_at, is_active, created_at, updated_at`

// SOSRepository provides database access for district emergency directories.
type SOSRepository struct {
	db *sqlx.DB
}

// NewSOSRepository creates a new instance of SOSRepository.
func NewSOSRepository(db *sqlx.DB) *SOSRepository {
	return &SOSRepository{db: db}
}

// Create inserts an emergency contact.
func (r *SOSRepository) Create(ctx context.Context, contact *models.SOSContact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now

	const query = `INSERT INTO sos_contacts (id, district_id, name, type, phone_number, alt_phone_number, address, lat, lng, emergency_level, available_24x7, opens_at, closes_at, is_active, created_at, updated_at) VALUES (:id, :district_id, :name, :type, :phone_number, :alt_phone_number, :address, :lat, :lng, :emergency_level, :available_24x7, :opens_at, :closes_at, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, contact); err != nil {
		return fmt.Errorf("create sos contact: %w", err)
	}
	return nil
}

// FindByID returns an emergency contact by identifier.
func (r *SOSRepository) FindByID(ctx context.Context, id string) (*models.SOSContact, error) {
	query := fmt.Sprintf(`SELECT %s FROM sos_contacts WHERE id = $1 LIMIT 1`, sosColumns)
	var contact models.SOSContact
	if err := r.db.GetContext(ctx, &contact, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find sos contact by id: %w", err)
	}
	return &contact, nil
}

// List returns emergency contacts matching the filter, most critical first.
func (r *SOSRepository) List(ctx context.Context, filter models.SOSFilter) ([]models.SOSContact, error) {
	baseQuery := `FROM sos_contacts WHERE district_id = $1`
	args := []interface{}{filter.DistrictID}
	var conditions []string

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.EmergencyLevel != "" {
		conditions = append(conditions, fmt.Sprintf("emergency_level = $%d", len(args)+1))
		args = append(args, filter.EmergencyLevel)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s %s ORDER BY CASE emergency_level WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, name ASC`, sosColumns, baseQuery)

	var contacts []models.SOSContact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, fmt.Errorf("list sos contacts: %w", err)
	}
	return contacts, nil
}

// Update updates mutable fields of an emergency contact.
func (r *SOSRepository) Update(ctx context.Context, contact *models.SOSContact) error {
	contact.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sos_contacts SET name = :name, type = :type, phone_number = :phone_number, alt_phone_number = :alt_phone_number, address = :address, lat = :lat, lng = :lng, emergency_level = :emergency_level, available_24x7 = :available_24x7, opens_at = :opens_at, closes_at = :closes_at, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, contact); err != nil {
		return fmt.Errorf("update sos contact: %w", err)
	}
	return nil
}

// Delete removes an emergency contact permanently.
func (r *SOSRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sos_contacts WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete sos contact: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
