package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
	"github.com/civicnet/civicconnect-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, kind models.RecipientKind, recipientID string) (int, error)
	MarkRead(ctx context.Context, id string, kind models.RecipientKind, recipientID string) error
	MarkAllRead(ctx context.Context, kind models.RecipientKind, recipientID string) error
	Delete(ctx context.Context, id string, kind models.RecipientKind, recipientID string) error
}

// NotificationService manages per-recipient inboxes. Writes triggered by
// other services go through a background queue so the originating request
// never fails on notification problems.
type NotificationService struct {
	repo   notificationRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService instance. Call
// Start before use and Stop on shutdown.
func NewNotificationService(repo notificationRepository, logger *zap.Logger, queueCfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, logger: logger}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handleJob, queueCfg)
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify queues a notification for asynchronous persistence. Failures are
// logged, never surfaced to the caller.
func (s *NotificationService) Notify(n models.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: string(n.Type), Payload: n})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", string(n.Type)),
			zap.Error(err))
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	return s.repo.Create(ctx, &n)
}

// List returns a page of notifications for a recipient.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return notifications, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UnreadCount returns the unread badge count for a recipient.
func (s *NotificationService) UnreadCount(ctx context.Context, kind models.RecipientKind, recipientID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, kind, recipientID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return count, nil
}

// MarkRead marks one notification as read for its recipient.
func (s *NotificationService) MarkRead(ctx context.Context, id string, kind models.RecipientKind, recipientID string) error {
	if err := s.repo.MarkRead(ctx, id, kind, recipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every notification of a recipient as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, kind models.RecipientKind, recipientID string) error {
	if err := s.repo.MarkAllRead(ctx, kind, recipientID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

// Delete removes a notification from the recipient inbox.
func (s *NotificationService) Delete(ctx context.Context, id string, kind models.RecipientKind, recipientID string) error {
	if err := s.repo.Delete(ctx, id, kind, recipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	return nil
}
