package models

import "time"

// Notification recipients are addressed by kind plus id so user and
// super-admin inboxes stay separate without a shared principals table.
type RecipientKind string

const (
	RecipientUser       RecipientKind = "user"
	RecipientSuperAdmin RecipientKind = "superAdmin"
)

type NotificationType string

const (
	NotificationIssueUpdate   NotificationType = "issue_update"
	NotificationIssueResolved NotificationType = "issue_resolved"
	NotificationPointsEarned  NotificationType = "points_earned"
	NotificationBadgeEarned   NotificationType = "badge_earned"
	NotificationSOSAlert      NotificationType = "sos_alert"
	NotificationSystem        NotificationType = "system"
	NotificationAdmin         NotificationType = "admin"
)

type Notification struct {
	ID            string           `db:"id" json:"id"`
	RecipientKind RecipientKind    `db:"recipient_kind" json:"-"`
	RecipientID   string           `db:"recipient_id" json:"-"`
	Type          NotificationType `db:"type" json:"type"`
	Title         string           `db:"title" json:"title"`
	Message       string           `db:"message" json:"message"`
	RelatedID     *string          `db:"related_id" json:"relatedId,omitempty"`
	IsRead        bool             `db:"is_read" json:"isRead"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
}

type NotificationFilter struct {
	RecipientKind RecipientKind
	RecipientID   string
	UnreadOnly    bool
	Type          NotificationType
	Page          int
	PageSize      int
}
