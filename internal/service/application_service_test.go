package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type fakeApplicationRepo struct {
	byID      map[string]*models.DistrictApplication
	decisions map[string]models.ApprovalStatus
	reasons   map[string]*string
	deleted   []string
	deleteErr error
}

func newFakeApplicationRepo(apps ...*models.DistrictApplication) *fakeApplicationRepo {
	repo := &fakeApplicationRepo{
		byID:      map[string]*models.DistrictApplication{},
		decisions: map[string]models.ApprovalStatus{},
		reasons:   map[string]*string{},
	}
	for _, app := range apps {
		repo.byID[app.ID] = app
	}
	return repo
}

func (f *fakeApplicationRepo) FindByID(_ context.Context, id string) (*models.DistrictApplication, error) {
	if app, ok := f.byID[id]; ok {
		return app, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeApplicationRepo) List(_ context.Context, _ models.ApplicationFilter) ([]models.DistrictApplication, int, error) {
	var apps []models.DistrictApplication
	for _, app := range f.byID {
		apps = append(apps, *app)
	}
	return apps, len(apps), nil
}

func (f *fakeApplicationRepo) UpdateDecision(_ context.Context, id string, status models.ApprovalStatus, reason *string) error {
	f.decisions[id] = status
	f.reasons[id] = reason
	return nil
}

func (f *fakeApplicationRepo) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	delete(f.byID, id)
	return nil
}

type fakeAppDistrictRepo struct {
	bySource map[string]*models.District
	created  []*models.District
}

func (f *fakeAppDistrictRepo) Create(_ context.Context, district *models.District) error {
	district.ID = "district-1"
	f.created = append(f.created, district)
	if f.bySource == nil {
		f.bySource = map[string]*models.District{}
	}
	if district.SourceApplicationID != nil {
		f.bySource[*district.SourceApplicationID] = district
	}
	return nil
}

func (f *fakeAppDistrictRepo) FindBySourceApplication(_ context.Context, applicationID string) (*models.District, error) {
	if f.bySource == nil {
		return nil, sql.ErrNoRows
	}
	if district, ok := f.bySource[applicationID]; ok {
		return district, nil
	}
	return nil, sql.ErrNoRows
}

func pendingApplication() *models.DistrictApplication {
	name, state := "Pune", "Maharashtra"
	return &models.DistrictApplication{
		ID:            "app-1",
		Name:          &name,
		State:         &state,
		AdminName:     "Ravi",
		AdminUsername: "ravi",
		AdminEmail:    "ravi@example.com",
		AdminPhone:    "8888888888",
		AdminAadhar:   "444455556666",
		AdminPassword: "hashed",
		Status:        models.ApprovalPending,
	}
}

func TestApproveCreatesVerifiedDistrict(t *testing.T) {
	apps := newFakeApplicationRepo(pendingApplication())
	districts := &fakeAppDistrictRepo{}
	mail := &fakeMailer{}
	svc := NewApplicationService(apps, districts, mail, nil)

	district, err := svc.Approve(context.Background(), "app-1")
	require.NoError(t, err)
	assert.True(t, district.Verified)
	assert.Equal(t, "Pune", district.Name)
	require.NotNil(t, district.SourceApplicationID)
	assert.Equal(t, "app-1", *district.SourceApplicationID)
	assert.Equal(t, models.BindingEmbedded, district.AdminBinding().Kind)
	assert.Equal(t, []string{"app-1"}, apps.deleted)
	assert.Equal(t, []string{"ravi@example.com"}, mail.sent)
}

func TestApproveIsIdempotent(t *testing.T) {
	apps := newFakeApplicationRepo(pendingApplication())
	districts := &fakeAppDistrictRepo{}
	svc := NewApplicationService(apps, districts, &fakeMailer{}, nil)

	first, err := svc.Approve(context.Background(), "app-1")
	require.NoError(t, err)

	// Replay after the application row is gone.
	second, err := svc.Approve(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, districts.created, 1)
}

func TestApproveRecordsDecisionBeforeCleanup(t *testing.T) {
	apps := newFakeApplicationRepo(pendingApplication())
	svc := NewApplicationService(apps, &fakeAppDistrictRepo{}, &fakeMailer{}, nil)

	_, err := svc.Approve(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, apps.decisions["app-1"])
	require.NotNil(t, apps.reasons["app-1"])
	assert.Equal(t, "Approved and created district", *apps.reasons["app-1"])
}

func TestApproveSurvivesApplicationDeleteFailure(t *testing.T) {
	apps := newFakeApplicationRepo(pendingApplication())
	apps.deleteErr = sql.ErrConnDone
	districts := &fakeAppDistrictRepo{}
	svc := NewApplicationService(apps, districts, &fakeMailer{}, nil)

	district, err := svc.Approve(context.Background(), "app-1")
	require.NoError(t, err)
	assert.True(t, district.Verified)
	assert.Equal(t, models.ApprovalApproved, apps.decisions["app-1"])

	// The leftover row is consumed: it can no longer be rejected.
	_, err = svc.Reject(context.Background(), "app-1", "changed my mind")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApproveMissingApplication(t *testing.T) {
	svc := NewApplicationService(newFakeApplicationRepo(), &fakeAppDistrictRepo{}, &fakeMailer{}, nil)

	_, err := svc.Approve(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRejectDefaultsReason(t *testing.T) {
	apps := newFakeApplicationRepo(pendingApplication())
	svc := NewApplicationService(apps, &fakeAppDistrictRepo{}, &fakeMailer{}, nil)

	app, err := svc.Reject(context.Background(), "app-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, app.Status)
	require.NotNil(t, app.DecisionReason)
	assert.Equal(t, "Rejected by super admin", *app.DecisionReason)
	assert.Equal(t, models.ApprovalRejected, apps.decisions["app-1"])
}

func TestRejectKeepsProvidedReason(t *testing.T) {
	apps := newFakeApplicationRepo(pendingApplication())
	svc := NewApplicationService(apps, &fakeAppDistrictRepo{}, &fakeMailer{}, nil)

	app, err := svc.Reject(context.Background(), "app-1", "incomplete documents")
	require.NoError(t, err)
	assert.Equal(t, "incomplete documents", *app.DecisionReason)
}

func TestRejectAlreadyDecided(t *testing.T) {
	app := pendingApplication()
	app.Status = models.ApprovalRejected
	svc := NewApplicationService(newFakeApplicationRepo(app), &fakeAppDistrictRepo{}, &fakeMailer{}, nil)

	_, err := svc.Reject(context.Background(), "app-1", "again")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
