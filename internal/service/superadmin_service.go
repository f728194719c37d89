package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type superAdminRepository interface {
	Exists(ctx context.Context) (bool, error)
	Find(ctx context.Context) (*models.SuperAdmin, error)
	Update(ctx context.Context, admin *models.SuperAdmin) error
}

// SuperAdminService exposes the singleton account: an existence probe for
// the signup flow and profile reads for the dashboard.
type SuperAdminService struct {
	repo   superAdminRepository
	logger *zap.Logger
}

// NewSuperAdminService constructs a SuperAdminService instance.
func NewSuperAdminService(repo superAdminRepository, logger *zap.Logger) *SuperAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuperAdminService{repo: repo, logger: logger}
}

// Exists reports whether the super admin account has been created. The
// frontend uses this to decide whether to offer super admin registration.
func (s *SuperAdminService) Exists(ctx context.Context) (bool, error) {
	exists, err := s.repo.Exists(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check super admin")
	}
	return exists, nil
}

// Profile returns the super admin account.
func (s *SuperAdminService) Profile(ctx context.Context) (*models.SuperAdmin, error) {
	admin, err := s.repo.Find(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "super admin not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch super admin")
	}
	return admin, nil
}

// UpdateProfile applies mutable profile changes.
func (s *SuperAdminService) UpdateProfile(ctx context.Context, name, phone *string, lat, lng *float64) (*models.SuperAdmin, error) {
	admin, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}

	if name != nil && *name != "" {
		admin.Name = *name
	}
	if phone != nil && *phone != "" {
		admin.PhoneNumber = *phone
	}
	if lat != nil {
		admin.Lat = lat
	}
	if lng != nil {
		admin.Lng = lng
	}

	if err := s.repo.Update(ctx, admin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update super admin")
	}
	return admin, nil
}
