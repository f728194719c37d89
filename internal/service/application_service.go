package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type applicationRepository interface {
	FindByID(ctx context.Context, id string) (*models.DistrictApplication, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.DistrictApplication, int, error)
	UpdateDecision(ctx context.Context, id string, status models.ApprovalStatus, reason *string) error
	Delete(ctx context.Context, id string) error
}

type applicationDistrictRepository interface {
	Create(ctx context.Context, district *models.District) error
	FindBySourceApplication(ctx context.Context, applicationID string) (*models.District, error)
}

const (
	defaultRejectionReason = "Rejected by super admin"
	approvalReason         = "Approved and created district"
)

// ApplicationService owns the district application workflow. Approval turns
// an application into a verified district with the applicant embedded as its
// admin and consumes the application; rejection retains it with a reason.
type ApplicationService struct {
	applications applicationRepository
	districts    applicationDistrictRepository
	mailer       mailer
	logger       *zap.Logger
}

// NewApplicationService constructs an ApplicationService instance.
func NewApplicationService(applications applicationRepository, districts applicationDistrictRepository, mail mailer, logger *zap.Logger) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{applications: applications, districts: districts, mailer: mail, logger: logger}
}

// List returns applications matching the filter.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.DistrictApplication, *models.Pagination, error) {
	apps, total, err := s.applications.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return apps, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a single application.
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.DistrictApplication, error) {
	app, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch application")
	}
	return app, nil
}

// Approve creates a verified district from the application. The district is
// keyed on the application id, so replaying an approval returns the district
// created the first time instead of minting a duplicate.
func (s *ApplicationService) Approve(ctx context.Context, id string) (*models.District, error) {
	if existing, err := s.districts.FindBySourceApplication(ctx, id); err == nil {
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing district")
	}

	app, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch application")
	}

	district := &models.District{
		Verified:            true,
		Lat:                 app.Lat,
		Lng:                 app.Lng,
		Country:             app.Country,
		Pincode:             app.Pincode,
		Address:             app.Address,
		SourceApplicationID: &app.ID,
		IsActive:            true,
	}
	if app.Name != nil {
		district.Name = *app.Name
	}
	if district.Name == "" {
		district.Name = app.AdminName + "'s district"
	}
	if app.State != nil {
		district.State = *app.State
	}
	district.SetEmbeddedAdmin(app.AdminProfile())

	if err := s.districts.Create(ctx, district); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create district")
	}

	// Record the terminal status before removing the row, so a failed delete
	// leaves an approved application instead of a pending one.
	reason := approvalReason
	if err := s.applications.UpdateDecision(ctx, app.ID, models.ApprovalApproved, &reason); err != nil {
		s.logger.Warn("failed to mark application approved",
			zap.String("application_id", app.ID),
			zap.Error(err))
	}

	if err := s.applications.Delete(ctx, app.ID); err != nil {
		s.logger.Warn("failed to delete approved application",
			zap.String("application_id", app.ID),
			zap.Error(err))
	}

	s.notifyApplicant(app.AdminEmail, "District application approved",
		fmt.Sprintf("Hello %s,\n\nYour application for %s has been approved. You can now sign in as district admin.", app.AdminName, district.Name))

	return district, nil
}

// Reject marks the application rejected and keeps it around so the applicant
// sees the reason on their next login attempt.
func (s *ApplicationService) Reject(ctx context.Context, id string, reason string) (*models.DistrictApplication, error) {
	// An application that already produced a district is consumed, even when
	// the delete after approval did not go through.
	if _, err := s.districts.FindBySourceApplication(ctx, id); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application already approved")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing district")
	}

	app, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch application")
	}

	if app.Status != models.ApprovalPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application already decided")
	}

	if reason == "" {
		reason = defaultRejectionReason
	}
	if err := s.applications.UpdateDecision(ctx, app.ID, models.ApprovalRejected, &reason); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject application")
	}
	app.Status = models.ApprovalRejected
	app.DecisionReason = &reason

	s.notifyApplicant(app.AdminEmail, "District application rejected",
		fmt.Sprintf("Hello %s,\n\nYour district application was rejected: %s", app.AdminName, reason))

	return app, nil
}

func (s *ApplicationService) notifyApplicant(email, subject, body string) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(email, subject, body); err != nil {
		s.logger.Warn("failed to email applicant", zap.String("email", email), zap.Error(err))
	}
}
