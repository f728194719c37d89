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

type sosRepository interface {
	Create(ctx context.Context, contact *models.SOSContact) error
	FindByID(ctx context.Context, id string) (*models.SOSContact, error)
	List(ctx context.Context, filter models.SOSFilter) ([]models.SOSContact, error)
	Update(ctx context.Context, contact *models.SOSContact) error
	Delete(ctx context.Context, id string) error
}

type sosDistrictRepository interface {
	FindByID(ctx context.Context, id string) (*models.District, error)
}

// SOSService manages per-district emergency contact directories. Writes are
// restricted to the owning district's admin; the handler passes claims.
type SOSService struct {
	contacts  sosRepository
	districts sosDistrictRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSOSService constructs an SOSService instance.
func NewSOSService(contacts sosRepository, districts sosDistrictRepository, validate *validator.Validate, logger *zap.Logger) *SOSService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SOSService{contacts: contacts, districts: districts, validator: validate, logger: logger}
}

// List returns a district's emergency directory, most critical first.
func (s *SOSService) List(ctx context.Context, filter models.SOSFilter) ([]models.SOSContact, error) {
	if filter.DistrictID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "district id is required")
	}
	contacts, err := s.contacts.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sos contacts")
	}
	return contacts, nil
}

// Get returns one emergency contact.
func (s *SOSService) Get(ctx context.Context, id string) (*models.SOSContact, error) {
	contact, err := s.contacts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sos contact not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch sos contact")
	}
	return contact, nil
}

// Create adds an emergency contact to a district directory.
func (s *SOSService) Create(ctx context.Context, contact *models.SOSContact, claims *models.JWTClaims) (*models.SOSContact, error) {
	if contact.Name == "" || contact.PhoneNumber == "" || contact.DistrictID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name, phone number and district are required")
	}
	if err := s.authorize(claims, contact.DistrictID); err != nil {
		return nil, err
	}

	if _, err := s.districts.FindByID(ctx, contact.DistrictID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "district not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch district")
	}

	if contact.EmergencyLevel == "" {
		contact.EmergencyLevel = models.EmergencyMedium
	}
	contact.IsActive = true

	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sos contact")
	}
	return contact, nil
}

// Update modifies an emergency contact.
func (s *SOSService) Update(ctx context.Context, contact *models.SOSContact, claims *models.JWTClaims) (*models.SOSContact, error) {
	current, err := s.Get(ctx, contact.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(claims, current.DistrictID); err != nil {
		return nil, err
	}

	if contact.Name != "" {
		current.Name = contact.Name
	}
	if contact.Type != "" {
		current.Type = contact.Type
	}
	if contact.PhoneNumber != "" {
		current.PhoneNumber = contact.PhoneNumber
	}
	if contact.AltPhoneNumber != nil {
		current.AltPhoneNumber = contact.AltPhoneNumber
	}
	if contact.Address != nil {
		current.Address = contact.Address
	}
	if contact.Lat != nil {
		current.Lat = contact.Lat
	}
	if contact.Lng != nil {
		current.Lng = contact.Lng
	}
	if contact.EmergencyLevel != "" {
		current.EmergencyLevel = contact.EmergencyLevel
	}
	current.Available24x7 = contact.Available24x7
	if contact.OpensAt != nil {
		current.OpensAt = contact.OpensAt
	}
	if contact.ClosesAt != nil {
		current.ClosesAt = contact.ClosesAt
	}

	if err := s.contacts.Update(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sos contact")
	}
	return current, nil
}

// Delete removes an emergency contact.
func (s *SOSService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(claims, current.DistrictID); err != nil {
		return err
	}
	if err := s.contacts.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sos contact not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete sos contact")
	}
	return nil
}

// authorize allows the super admin everywhere and district admins only
// inside their own district.
func (s *SOSService) authorize(claims *models.JWTClaims, districtID string) error {
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing credentials")
	}
	if claims.Role == models.RoleSuperAdmin {
		return nil
	}
	if claims.Role == models.RoleAdmin && claims.DistrictID != nil && *claims.DistrictID == districtID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this district's directory")
}
