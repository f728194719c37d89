package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	SetDistrictAdmin(ctx context.Context, userID, districtID, districtName, state string) error
	SetApprovalStatus(ctx context.Context, userID string, status models.ApprovalStatus) error
	Stats(ctx context.Context, userID string) (*models.UserStats, error)
	Delete(ctx context.Context, id string) error
}

type userDistrictRepository interface {
	FindByNameAndState(ctx context.Context, name, state string) (*models.District, error)
	Create(ctx context.Context, district *models.District) error
	SetReferencedAdmin(ctx context.Context, districtID, userID string) error
	SetVerified(ctx context.Context, id string, verified bool) error
}

// UserService provides account management and the moderation path that
// promotes a registered user to district admin.
type UserService struct {
	users         userRepository
	districts     userDistrictRepository
	notifications *NotificationService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(users userRepository, districts userDistrictRepository, notifications *NotificationService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, districts: districts, notifications: notifications, validator: validate, logger: logger}
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	return user, nil
}

// UpdateProfile applies mutable profile changes for the user themselves.
func (s *UserService) UpdateProfile(ctx context.Context, id string, name, phone, language *string) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != nil && *name != "" {
		user.Name = *name
	}
	if phone != nil && *phone != "" {
		user.PhoneNumber = phone
	}
	if language != nil && *language != "" {
		user.Language = *language
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// Stats returns a user's civic activity aggregates.
func (s *UserService) Stats(ctx context.Context, id string) (*models.UserStats, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	stats, err := s.users.Stats(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute user stats")
	}
	return stats, nil
}

// ModerateAdmin decides a pending admin account. Rejection marks the account
// rejected and leaves it otherwise untouched. Approval resolves a district by
// name and state, creating a verified one when none exists; a district already
// bound to a different admin refuses the bind.
func (s *UserService) ModerateAdmin(ctx context.Context, userID string, req models.ModerateAdminRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid moderation payload")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot moderate the super admin")
	}

	if req.Action == models.DecisionReject {
		if err := s.users.SetApprovalStatus(ctx, user.ID, models.ApprovalRejected); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject admin request")
		}
		user.ApprovalStatus = models.ApprovalRejected
		s.notifyModeration(user.ID, models.NotificationAdmin, "Admin request rejected",
			"Your district admin request has been rejected.")
		return user, nil
	}

	name, state := resolveDistrictTarget(user, req)
	if name == "" || state == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "district name and state are required to approve")
	}

	district, err := s.districts.FindByNameAndState(ctx, name, state)
	switch {
	case err == nil:
		if district.AdminID != nil && *district.AdminID != "" && *district.AdminID != user.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "district already has an admin")
		}
		if err := s.districts.SetReferencedAdmin(ctx, district.ID, user.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach district admin")
		}
		district.AdminID = &user.ID
		if !district.Verified {
			if err := s.districts.SetVerified(ctx, district.ID, true); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify district")
			}
			district.Verified = true
		}
	case errors.Is(err, sql.ErrNoRows):
		district = &models.District{
			Name:     name,
			State:    state,
			Verified: true,
			AdminID:  &user.ID,
			IsActive: true,
		}
		if err := s.districts.Create(ctx, district); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create district")
		}
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch district")
	}

	if err := s.users.SetDistrictAdmin(ctx, user.ID, district.ID, district.Name, district.State); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote user")
	}

	user.Role = models.RoleAdmin
	user.ApprovalStatus = models.ApprovalApproved
	user.DistrictID = &district.ID
	user.DistrictName = &district.Name
	user.State = &district.State
	s.notifyModeration(user.ID, models.NotificationAdmin, "You are now a district admin",
		"You have been made the admin of "+district.Name+".")
	return user, nil
}

// resolveDistrictTarget prefers the district named in the request over the
// values the user stored at signup.
func resolveDistrictTarget(user *models.User, req models.ModerateAdminRequest) (string, string) {
	name, state := "", ""
	if req.DistrictName != nil {
		name = *req.DistrictName
	}
	if name == "" && user.DistrictName != nil {
		name = *user.DistrictName
	}
	if req.State != nil {
		state = *req.State
	}
	if state == "" && user.State != nil {
		state = *user.State
	}
	return name, state
}

// SetActive toggles account availability.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsActive = active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user status")
	}
	return user, nil
}

// Delete soft-deletes a user account.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	return nil
}

func (s *UserService) notifyModeration(userID string, kind models.NotificationType, title, message string) {
	if s.notifications == nil {
		return
	}
	s.notifications.Notify(models.Notification{
		RecipientKind: models.RecipientUser,
		RecipientID:   userID,
		Type:          kind,
		Title:         title,
		Message:       message,
	})
}
