package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type issueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, id string) (*models.Issue, error)
	List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, int, error)
	UpdateStatus(ctx context.Context, id string, status models.IssueStatus, resolvedBy *string) error
	Update(ctx context.Context, issue *models.Issue) error
	Delete(ctx context.Context, id string) error
	HasUpvoted(ctx context.Context, issueID, userID string) (bool, error)
	Upvote(ctx context.Context, issueID, userID string) error
	StatusCounts(ctx context.Context, districtID string) (*models.IssueStats, error)
}

type issuePointsRepository interface {
	AddPoints(ctx context.Context, userID string, delta int) error
}

type issueLeaderboard interface {
	AddPoints(ctx context.Context, userID string, delta int) error
}

// IssueService manages reported issues, their lifecycle, and the civic
// points awarded for participation. Points and notifications are side
// effects; their failures are logged without failing the request.
type IssueService struct {
	issues        issueRepository
	users         issuePointsRepository
	leaderboard   issueLeaderboard
	notifications *NotificationService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewIssueService constructs an IssueService instance.
func NewIssueService(issues issueRepository, users issuePointsRepository, leaderboard issueLeaderboard, notifications *NotificationService, validate *validator.Validate, logger *zap.Logger) *IssueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &IssueService{
		issues:        issues,
		users:         users,
		leaderboard:   leaderboard,
		notifications: notifications,
		validator:     validate,
		logger:        logger,
	}
}

// Create files a new issue and awards reporting points.
func (s *IssueService) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	if issue.Title == "" || issue.Description == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title and description are required")
	}
	if issue.Category == "" {
		issue.Category = models.IssueOther
	}
	if issue.Priority == "" {
		issue.Priority = models.PriorityMedium
	}
	issue.Status = models.IssuePending

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create issue")
	}

	s.awardPoints(ctx, issue.ReporterID, models.PointsCreateIssue,
		fmt.Sprintf("You earned %d points for reporting an issue.", models.PointsCreateIssue), issue.ID)

	return issue, nil
}

// Get returns an issue by id.
func (s *IssueService) Get(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "issue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch issue")
	}
	return issue, nil
}

// List returns issues matching the filter.
func (s *IssueService) List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, *models.Pagination, error) {
	issues, total, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list issues")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return issues, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UpdateStatus moves an issue along its lifecycle. Resolution pays out
// points to the reporter.
func (s *IssueService) UpdateStatus(ctx context.Context, id string, status models.IssueStatus, actorID string) (*models.Issue, error) {
	switch status {
	case models.IssuePending, models.IssueInProgress, models.IssueResolved, models.IssueRejected:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown issue status")
	}

	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.Status == status {
		return issue, nil
	}
	if issue.Status == models.IssueResolved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "issue already resolved")
	}

	var resolvedBy *string
	if status == models.IssueResolved {
		resolvedBy = &actorID
	}
	if err := s.issues.UpdateStatus(ctx, id, status, resolvedBy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update issue status")
	}
	issue.Status = status

	if status == models.IssueResolved {
		s.awardPoints(ctx, issue.ReporterID, models.PointsIssueResolved,
			fmt.Sprintf("Your issue %q was resolved. You earned %d points.", issue.Title, models.PointsIssueResolved), issue.ID)
		s.notify(issue.ReporterID, models.NotificationIssueResolved, "Issue resolved",
			fmt.Sprintf("Your issue %q has been resolved.", issue.Title), issue.ID)
	} else {
		s.notify(issue.ReporterID, models.NotificationIssueUpdate, "Issue status updated",
			fmt.Sprintf("Your issue %q is now %s.", issue.Title, status), issue.ID)
	}

	return issue, nil
}

// Upvote registers a supporting vote. Both sides earn points; voting twice
// or voting for yourself is rejected.
func (s *IssueService) Upvote(ctx context.Context, issueID, userID string) (*models.Issue, error) {
	issue, err := s.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.ReporterID == userID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot upvote your own issue")
	}

	voted, err := s.issues.HasUpvoted(ctx, issueID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check upvote")
	}
	if voted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already upvoted")
	}

	if err := s.issues.Upvote(ctx, issueID, userID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record upvote")
	}
	issue.Upvotes++

	s.awardPoints(ctx, userID, models.PointsUpvoteIssue,
		fmt.Sprintf("You earned %d points for supporting an issue.", models.PointsUpvoteIssue), issue.ID)
	s.awardPoints(ctx, issue.ReporterID, models.PointsReceiveUpvote,
		fmt.Sprintf("Your issue %q received an upvote.", issue.Title), issue.ID)

	return issue, nil
}

// Delete removes an issue. Only the reporter or an admin may do so; the
// handler passes the caller's identity.
func (s *IssueService) Delete(ctx context.Context, id, actorID string, actorRole models.UserRole) error {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if issue.ReporterID != actorID && actorRole != models.RoleAdmin && actorRole != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this issue")
	}
	if err := s.issues.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete issue")
	}
	return nil
}

// Stats aggregates issue counts, optionally scoped to a district.
func (s *IssueService) Stats(ctx context.Context, districtID string) (*models.IssueStats, error) {
	stats, err := s.issues.StatusCounts(ctx, districtID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute issue stats")
	}
	return stats, nil
}

func (s *IssueService) awardPoints(ctx context.Context, userID string, delta int, message, relatedID string) {
	if err := s.users.AddPoints(ctx, userID, delta); err != nil {
		s.logger.Warn("failed to award user points", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if s.leaderboard != nil {
		if err := s.leaderboard.AddPoints(ctx, userID, delta); err != nil {
			s.logger.Warn("failed to update leaderboard", zap.String("user_id", userID), zap.Error(err))
		}
	}
	s.notify(userID, models.NotificationPointsEarned, "Points earned", message, relatedID)
}

func (s *IssueService) notify(userID string, kind models.NotificationType, title, message, relatedID string) {
	if s.notifications == nil {
		return
	}
	related := relatedID
	s.notifications.Notify(models.Notification{
		RecipientKind: models.RecipientUser,
		RecipientID:   userID,
		Type:          kind,
		Title:         title,
		Message:       message,
		RelatedID:     &related,
	})
}
