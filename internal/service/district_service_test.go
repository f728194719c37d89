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

type fakeDistrictRepo struct {
	byID      map[string]*models.District
	byName    map[string]*models.District
	withCoord []models.District
	verified  map[string]bool
	stats     *models.DistrictStats
}

func newFakeDistrictRepo(districts ...*models.District) *fakeDistrictRepo {
	repo := &fakeDistrictRepo{
		byID:     map[string]*models.District{},
		byName:   map[string]*models.District{},
		verified: map[string]bool{},
	}
	for _, district := range districts {
		repo.byID[district.ID] = district
		repo.byName[district.Name] = district
		if district.Lat != nil && district.Lng != nil {
			repo.withCoord = append(repo.withCoord, *district)
		}
	}
	return repo
}

func (f *fakeDistrictRepo) Create(_ context.Context, district *models.District) error {
	if district.ID == "" {
		district.ID = "district-" + district.Name
	}
	f.byID[district.ID] = district
	f.byName[district.Name] = district
	return nil
}

func (f *fakeDistrictRepo) FindByID(_ context.Context, id string) (*models.District, error) {
	if district, ok := f.byID[id]; ok {
		return district, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDistrictRepo) FindByName(_ context.Context, name string) (*models.District, error) {
	if district, ok := f.byName[name]; ok {
		return district, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDistrictRepo) List(_ context.Context, _ models.DistrictFilter) ([]models.District, int, error) {
	var districts []models.District
	for _, district := range f.byID {
		districts = append(districts, *district)
	}
	return districts, len(districts), nil
}

func (f *fakeDistrictRepo) ListWithCoordinates(_ context.Context) ([]models.District, error) {
	return f.withCoord, nil
}

func (f *fakeDistrictRepo) Update(_ context.Context, district *models.District) error {
	f.byID[district.ID] = district
	return nil
}

func (f *fakeDistrictRepo) SetVerified(_ context.Context, id string, verified bool) error {
	f.verified[id] = verified
	return nil
}

func (f *fakeDistrictRepo) Delete(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeDistrictRepo) Stats(_ context.Context, _ string) (*models.DistrictStats, error) {
	if f.stats != nil {
		return f.stats, nil
	}
	return &models.DistrictStats{}, nil
}

type fakeDistrictIssueRepo struct {
	issues []models.Issue
	recent []models.Issue
}

func (f *fakeDistrictIssueRepo) List(_ context.Context, _ models.IssueFilter) ([]models.Issue, int, error) {
	return f.issues, len(f.issues), nil
}

func (f *fakeDistrictIssueRepo) RecentByDistrict(_ context.Context, _ string, _ int) ([]models.Issue, error) {
	return f.recent, nil
}

func coordDistrict(id, name string, lat, lng float64) *models.District {
	return &models.District{ID: id, Name: name, State: "Maharashtra", Lat: &lat, Lng: &lng, IsActive: true}
}

func TestCreateDistrictStartsUnverified(t *testing.T) {
	repo := newFakeDistrictRepo()
	svc := NewDistrictService(repo, &fakeDistrictIssueRepo{}, nil, nil)

	created, err := svc.Create(context.Background(), &models.District{Name: " Pune ", State: "Maharashtra", Verified: true})
	require.NoError(t, err)
	assert.Equal(t, "Pune", created.Name)
	assert.False(t, created.Verified)
	assert.True(t, created.IsActive)
	assert.NotEmpty(t, created.ID)
}

func TestCreateDistrictRequiresNameAndState(t *testing.T) {
	svc := NewDistrictService(newFakeDistrictRepo(), &fakeDistrictIssueRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), &models.District{Name: "Pune"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResolveByCoordinatesRejectsInvalid(t *testing.T) {
	svc := NewDistrictService(newFakeDistrictRepo(), &fakeDistrictIssueRepo{}, nil, nil)

	_, err := svc.ResolveByCoordinates(context.Background(), 120.0, 73.85)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResolveByCoordinatesExactNameMatch(t *testing.T) {
	pune := coordDistrict("d1", "Pune", 18.52, 73.85)
	geo := &fakeGeocoder{loc: &models.ResolvedLocation{DistrictName: "Pune", State: "Maharashtra"}}
	svc := NewDistrictService(newFakeDistrictRepo(pune), &fakeDistrictIssueRepo{}, geo, nil)

	resolved, err := svc.ResolveByCoordinates(context.Background(), 18.52, 73.85)
	require.NoError(t, err)
	require.NotNil(t, resolved.Nearest)
	assert.Equal(t, "d1", resolved.Nearest.ID)
	require.NotNil(t, resolved.DistanceKm)
	assert.Zero(t, *resolved.DistanceKm)
}

func TestResolveByCoordinatesNearestWithinRange(t *testing.T) {
	pune := coordDistrict("d1", "Pune", 18.52, 73.85)
	mumbai := coordDistrict("d2", "Mumbai", 19.08, 72.88)
	svc := NewDistrictService(newFakeDistrictRepo(pune, mumbai), &fakeDistrictIssueRepo{}, nil, nil)

	// Point a few km outside Pune; Mumbai is ~120km away.
	resolved, err := svc.ResolveByCoordinates(context.Background(), 18.60, 73.90)
	require.NoError(t, err)
	require.NotNil(t, resolved.Nearest)
	assert.Equal(t, "d1", resolved.Nearest.ID)
	require.NotNil(t, resolved.DistanceKm)
	assert.Greater(t, *resolved.DistanceKm, 0.0)
	assert.Less(t, *resolved.DistanceKm, 50.0)
}

func TestResolveByCoordinatesNothingInRange(t *testing.T) {
	mumbai := coordDistrict("d2", "Mumbai", 19.08, 72.88)
	svc := NewDistrictService(newFakeDistrictRepo(mumbai), &fakeDistrictIssueRepo{}, nil, nil)

	// Chennai is far outside the 50km cutoff from Mumbai.
	resolved, err := svc.ResolveByCoordinates(context.Background(), 13.08, 80.27)
	require.NoError(t, err)
	assert.Nil(t, resolved.Nearest)
	assert.Nil(t, resolved.DistanceKm)
}

func TestResolveByCoordinatesGeocoderFailureStillResolves(t *testing.T) {
	pune := coordDistrict("d1", "Pune", 18.52, 73.85)
	geo := &fakeGeocoder{err: sql.ErrConnDone}
	svc := NewDistrictService(newFakeDistrictRepo(pune), &fakeDistrictIssueRepo{}, geo, nil)

	resolved, err := svc.ResolveByCoordinates(context.Background(), 18.52, 73.85)
	require.NoError(t, err)
	require.NotNil(t, resolved.Nearest)
	assert.Equal(t, "d1", resolved.Nearest.ID)
}

func TestVerifyFlipsFlag(t *testing.T) {
	district := coordDistrict("d1", "Pune", 18.52, 73.85)
	repo := newFakeDistrictRepo(district)
	svc := NewDistrictService(repo, &fakeDistrictIssueRepo{}, nil, nil)

	updated, err := svc.Verify(context.Background(), "d1", true)
	require.NoError(t, err)
	assert.True(t, updated.Verified)
	assert.True(t, repo.verified["d1"])
}

func TestIssueReportCSV(t *testing.T) {
	district := coordDistrict("d1", "Pune", 18.52, 73.85)
	issues := &fakeDistrictIssueRepo{issues: []models.Issue{
		{Title: "Pothole", Category: models.IssueRoads, Status: models.IssuePending, ReporterName: "Asha", Upvotes: 3},
	}}
	svc := NewDistrictService(newFakeDistrictRepo(district), issues, nil, nil)

	payload, contentType, err := svc.IssueReport(context.Background(), "d1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Title,Category,Status,Reporter,Upvotes,Created"))
	assert.Contains(t, body, "Pothole")
}

func TestIssueReportDefaultsToPDF(t *testing.T) {
	district := coordDistrict("d1", "Pune", 18.52, 73.85)
	svc := NewDistrictService(newFakeDistrictRepo(district), &fakeDistrictIssueRepo{}, nil, nil)

	payload, contentType, err := svc.IssueReport(context.Background(), "d1", "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.NotEmpty(t, payload)
}

func TestIssueReportUnknownFormat(t *testing.T) {
	district := coordDistrict("d1", "Pune", 18.52, 73.85)
	svc := NewDistrictService(newFakeDistrictRepo(district), &fakeDistrictIssueRepo{}, nil, nil)

	_, _, err := svc.IssueReport(context.Background(), "d1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
