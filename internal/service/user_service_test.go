package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type fakeModUserRepo struct {
	byID         map[string]*models.User
	promoted     map[string]string
	approvals    map[string]models.ApprovalStatus
	deleted      []string
	updatedUsers []*models.User
}

func newFakeModUserRepo(users ...*models.User) *fakeModUserRepo {
	repo := &fakeModUserRepo{
		byID:      map[string]*models.User{},
		promoted:  map[string]string{},
		approvals: map[string]models.ApprovalStatus{},
	}
	for _, user := range users {
		repo.byID[user.ID] = user
	}
	return repo
}

func (f *fakeModUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeModUserRepo) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	var users []models.User
	for _, user := range f.byID {
		users = append(users, *user)
	}
	return users, len(users), nil
}

func (f *fakeModUserRepo) Update(_ context.Context, user *models.User) error {
	f.updatedUsers = append(f.updatedUsers, user)
	f.byID[user.ID] = user
	return nil
}

func (f *fakeModUserRepo) SetDistrictAdmin(_ context.Context, userID, districtID, _, _ string) error {
	f.promoted[userID] = districtID
	return nil
}

func (f *fakeModUserRepo) SetApprovalStatus(_ context.Context, userID string, status models.ApprovalStatus) error {
	f.approvals[userID] = status
	return nil
}

func (f *fakeModUserRepo) Stats(_ context.Context, _ string) (*models.UserStats, error) {
	return &models.UserStats{}, nil
}

func (f *fakeModUserRepo) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.byID, id)
	return nil
}

type fakeModDistrictRepo struct {
	districts []*models.District
	created   []*models.District
	attached  map[string]string
	verified  []string
}

func newFakeModDistrictRepo(districts ...*models.District) *fakeModDistrictRepo {
	return &fakeModDistrictRepo{districts: districts, attached: map[string]string{}}
}

func (f *fakeModDistrictRepo) FindByNameAndState(_ context.Context, name, state string) (*models.District, error) {
	for _, district := range f.districts {
		if strings.EqualFold(district.Name, name) && strings.EqualFold(district.State, state) {
			return district, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeModDistrictRepo) Create(_ context.Context, district *models.District) error {
	district.ID = "district-new"
	f.created = append(f.created, district)
	f.districts = append(f.districts, district)
	return nil
}

func (f *fakeModDistrictRepo) SetReferencedAdmin(_ context.Context, districtID, userID string) error {
	f.attached[districtID] = userID
	return nil
}

func (f *fakeModDistrictRepo) SetVerified(_ context.Context, id string, verified bool) error {
	if verified {
		f.verified = append(f.verified, id)
	}
	return nil
}

func citizen(id string) *models.User {
	return &models.User{ID: id, Name: "User " + id, Role: models.RoleUser, IsActive: true}
}

func pendingAdmin(id, districtName, state string) *models.User {
	user := citizen(id)
	user.Role = models.RoleAdmin
	user.ApprovalStatus = models.ApprovalPending
	user.DistrictName = &districtName
	user.State = &state
	return user
}

func TestModerateAdminApproveCreatesDistrict(t *testing.T) {
	users := newFakeModUserRepo(pendingAdmin("u1", "Pune", "Maharashtra"))
	districts := newFakeModDistrictRepo()
	svc := NewUserService(users, districts, nil, nil, nil)

	approved, err := svc.ModerateAdmin(context.Background(), "u1", models.ModerateAdminRequest{Action: models.DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, approved.Role)
	assert.Equal(t, models.ApprovalApproved, approved.ApprovalStatus)
	require.Len(t, districts.created, 1)
	assert.Equal(t, "Pune", districts.created[0].Name)
	assert.True(t, districts.created[0].Verified)
	require.NotNil(t, districts.created[0].AdminID)
	assert.Equal(t, "u1", *districts.created[0].AdminID)
	assert.Equal(t, districts.created[0].ID, users.promoted["u1"])
	require.NotNil(t, approved.DistrictID)
	assert.Equal(t, districts.created[0].ID, *approved.DistrictID)
}

func TestModerateAdminApproveBindsExistingDistrict(t *testing.T) {
	users := newFakeModUserRepo(pendingAdmin("u1", "Pune", "Maharashtra"))
	districts := newFakeModDistrictRepo(&models.District{ID: "d1", Name: "Pune", State: "Maharashtra"})
	svc := NewUserService(users, districts, nil, nil, nil)

	approved, err := svc.ModerateAdmin(context.Background(), "u1", models.ModerateAdminRequest{Action: models.DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, "u1", districts.attached["d1"])
	assert.Contains(t, districts.verified, "d1")
	assert.Empty(t, districts.created)
	require.NotNil(t, approved.DistrictID)
	assert.Equal(t, "d1", *approved.DistrictID)
}

func TestModerateAdminSecondAdminForSameDistrictConflicts(t *testing.T) {
	incumbentID := "u0"
	users := newFakeModUserRepo(pendingAdmin("u1", "Pune", "Maharashtra"))
	districts := newFakeModDistrictRepo(&models.District{ID: "d1", Name: "Pune", State: "Maharashtra", Verified: true, AdminID: &incumbentID})
	svc := NewUserService(users, districts, nil, nil, nil)

	_, err := svc.ModerateAdmin(context.Background(), "u1", models.ModerateAdminRequest{Action: models.DecisionApprove})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.NotContains(t, users.promoted, "u1")
	assert.NotContains(t, districts.attached, "d1")
}

func TestModerateAdminApproveUsesRequestDistrict(t *testing.T) {
	users := newFakeModUserRepo(citizen("u1"))
	districts := newFakeModDistrictRepo()
	svc := NewUserService(users, districts, nil, nil, nil)

	name, state := "Nagpur", "Maharashtra"
	approved, err := svc.ModerateAdmin(context.Background(), "u1", models.ModerateAdminRequest{
		Action:       models.DecisionApprove,
		DistrictName: &name,
		State:        &state,
	})
	require.NoError(t, err)
	require.Len(t, districts.created, 1)
	assert.Equal(t, "Nagpur", districts.created[0].Name)
	require.NotNil(t, approved.DistrictName)
	assert.Equal(t, "Nagpur", *approved.DistrictName)
}

func TestModerateAdminRejectMarksAccount(t *testing.T) {
	users := newFakeModUserRepo(pendingAdmin("u1", "Pune", "Maharashtra"))
	svc := NewUserService(users, newFakeModDistrictRepo(), nil, nil, nil)

	rejected, err := svc.ModerateAdmin(context.Background(), "u1", models.ModerateAdminRequest{Action: models.DecisionReject})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, rejected.ApprovalStatus)
	assert.Equal(t, models.ApprovalRejected, users.approvals["u1"])
	assert.Equal(t, models.RoleAdmin, rejected.Role)
	assert.Empty(t, users.promoted)
}

func TestModerateAdminApproveWithoutDistrictTarget(t *testing.T) {
	users := newFakeModUserRepo(citizen("u1"))
	svc := NewUserService(users, newFakeModDistrictRepo(), nil, nil, nil)

	_, err := svc.ModerateAdmin(context.Background(), "u1", models.ModerateAdminRequest{Action: models.DecisionApprove})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestModerateAdminRefusesSuperAdmin(t *testing.T) {
	root := &models.User{ID: "u1", Role: models.RoleSuperAdmin, IsActive: true}
	users := newFakeModUserRepo(root)
	svc := NewUserService(users, newFakeModDistrictRepo(), nil, nil, nil)

	_, err := svc.ModerateAdmin(context.Background(), "u1", models.ModerateAdminRequest{Action: models.DecisionReject})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestModerateAdminUnknownAction(t *testing.T) {
	users := newFakeModUserRepo(citizen("u1"))
	svc := NewUserService(users, newFakeModDistrictRepo(), nil, nil, nil)

	_, err := svc.ModerateAdmin(context.Background(), "u1", models.ModerateAdminRequest{Action: "promote"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateProfileIgnoresEmptyFields(t *testing.T) {
	user := citizen("u1")
	user.Language = "en"
	users := newFakeModUserRepo(user)
	svc := NewUserService(users, newFakeModDistrictRepo(), nil, nil, nil)

	name, empty := "New Name", ""
	updated, err := svc.UpdateProfile(context.Background(), "u1", &name, nil, &empty)
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "en", updated.Language)
}

func TestSetActiveTogglesFlag(t *testing.T) {
	users := newFakeModUserRepo(citizen("u1"))
	svc := NewUserService(users, newFakeModDistrictRepo(), nil, nil, nil)

	updated, err := svc.SetActive(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	require.Len(t, users.updatedUsers, 1)
}
