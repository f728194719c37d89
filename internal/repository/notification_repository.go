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

const notificationColumns = `id, recipient_kind, recipient_id, type, title, message, related_id, is_read, created_at`

// NotificationRepository provides database access for notification inboxes.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification record.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO notifications (id, recipient_kind, recipient_id, type, title, message, related_id, is_read, created_at) VALUES (:id, :recipient_kind, :recipient_id, :type, :title, :message, :related_id, :is_read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// FindByID returns a notification by identifier.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE id = $1 LIMIT 1`, notificationColumns)
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find notification by id: %w", err)
	}
	return &n, nil
}

// List returns notifications for a recipient with total count.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	baseQuery := `FROM notifications WHERE recipient_kind = $1 AND recipient_id = $2`
	args := []interface{}{filter.RecipientKind, filter.RecipientID}
	var conditions []string

	if filter.UnreadOnly {
		conditions = append(conditions, "is_read = FALSE")
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", notificationColumns, baseQuery, pageSize, offset)

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	return notifications, total, nil
}

// CountUnread returns the number of unread notifications for a recipient.
func (r *NotificationRepository) CountUnread(ctx context.Context, kind models.RecipientKind, recipientID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE recipient_kind = $1 AND recipient_id = $2 AND is_read = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, kind, recipientID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks a single notification as read, scoped to its recipient.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, kind models.RecipientKind, recipientID string) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_kind = $2 AND recipient_id = $3`
	res, err := r.db.ExecContext(ctx, query, id, kind, recipientID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead marks every notification of a recipient as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, kind models.RecipientKind, recipientID string) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE recipient_kind = $1 AND recipient_id = $2 AND is_read = FALSE`
	if _, err := r.db.ExecContext(ctx, query, kind, recipientID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Delete removes a notification, scoped to its recipient.
func (r *NotificationRepository) Delete(ctx context.Context, id string, kind models.RecipientKind, recipientID string) error {
	const query = `DELETE FROM notifications WHERE id = $1 AND recipient_kind = $2 AND recipient_id = $3`
	res, err := r.db.ExecContext(ctx, query, id, kind, recipientID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
