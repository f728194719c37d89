package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
	"github.com/civicnet/civicconnect-api/pkg/export"
	"github.com/civicnet/civicconnect-api/pkg/geo"
)

// Districts beyond this distance are not considered "nearest".
const nearestDistrictMaxKm = 50.0

type districtRepository interface {
	Create(ctx context.Context, district *models.District) error
	FindByID(ctx context.Context, id string) (*models.District, error)
	FindByName(ctx context.Context, name string) (*models.District, error)
	List(ctx context.Context, filter models.DistrictFilter) ([]models.District, int, error)
	ListWithCoordinates(ctx context.Context) ([]models.District, error)
	Update(ctx context.Context, district *models.District) error
	SetVerified(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, districtID string) (*models.DistrictStats, error)
}

type districtIssueRepository interface {
	List(ctx context.Context, filter models.IssueFilter) ([]models.Issue, int, error)
	RecentByDistrict(ctx context.Context, districtID string, limit int) ([]models.Issue, error)
}

// DistrictService provides district lookups, verification, statistics, the
// coordinates-to-district resolver, and issue report exports.
type DistrictService struct {
	districts districtRepository
	issues    districtIssueRepository
	geocoder  geocoder
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewDistrictService constructs a DistrictService instance.
func NewDistrictService(districts districtRepository, issues districtIssueRepository, geocode geocoder, logger *zap.Logger) *DistrictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistrictService{
		districts: districts,
		issues:    issues,
		geocoder:  geocode,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// List returns districts matching the filter.
func (s *DistrictService) List(ctx context.Context, filter models.DistrictFilter) ([]models.District, *models.Pagination, error) {
	districts, total, err := s.districts.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list districts")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return districts, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create registers a new district. Districts created here start unverified;
// verification is a separate super-admin action.
func (s *DistrictService) Create(ctx context.Context, district *models.District) (*models.District, error) {
	district.Name = strings.TrimSpace(district.Name)
	district.State = strings.TrimSpace(district.State)
	if district.Name == "" || district.State == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name and state are required")
	}
	district.Verified = false
	district.IsActive = true
	if err := s.districts.Create(ctx, district); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create district")
	}
	return district, nil
}

// Get returns a district by id.
func (s *DistrictService) Get(ctx context.Context, id string) (*models.District, error) {
	district, err := s.districts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "district not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch district")
	}
	return district, nil
}

// Update applies mutable field changes to a district.
func (s *DistrictService) Update(ctx context.Context, district *models.District) (*models.District, error) {
	current, err := s.Get(ctx, district.ID)
	if err != nil {
		return nil, err
	}

	if district.Name != "" {
		current.Name = district.Name
	}
	if district.State != "" {
		current.State = district.State
	}
	if district.Lat != nil {
		current.Lat = district.Lat
	}
	if district.Lng != nil {
		current.Lng = district.Lng
	}
	if district.Country != nil {
		current.Country = district.Country
	}
	if district.Pincode != nil {
		current.Pincode = district.Pincode
	}
	if district.Address != nil {
		current.Address = district.Address
	}

	if err := s.districts.Update(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update district")
	}
	return current, nil
}

// Verify flips the verification flag.
func (s *DistrictService) Verify(ctx context.Context, id string, verified bool) (*models.District, error) {
	district, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.districts.SetVerified(ctx, id, verified); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update district verification")
	}
	district.Verified = verified
	return district, nil
}

// Delete removes a district.
func (s *DistrictService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.districts.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete district")
	}
	return nil
}

// Stats returns activity aggregates plus the most recent issues.
func (s *DistrictService) Stats(ctx context.Context, id string) (*models.DistrictStats, error) {
	district, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.districts.Stats(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute district stats")
	}
	stats.District = district.Name

	recent, err := s.issues.RecentByDistrict(ctx, id, 5)
	if err != nil {
		s.logger.Warn("failed to load recent issues", zap.String("district_id", id), zap.Error(err))
	} else {
		stats.RecentIssues = recent
	}

	return stats, nil
}

// ResolveByCoordinates maps a coordinate pair to an administrative location.
// The reverse geocoder supplies the address; the nearest registered district
// within range is attached when its name does not already match.
func (s *DistrictService) ResolveByCoordinates(ctx context.Context, lat, lng float64) (*models.ResolvedLocation, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "coordinates out of range")
	}

	resolved := &models.ResolvedLocation{}
	if s.geocoder != nil {
		loc, err := s.geocoder.Reverse(ctx, lat, lng)
		if err != nil {
			s.logger.Warn("reverse geocode failed", zap.Error(err))
		} else {
			resolved = loc
		}
	}

	if resolved.DistrictName != "" {
		if district, err := s.districts.FindByName(ctx, resolved.DistrictName); err == nil {
			resolved.Nearest = district
			zero := 0.0
			resolved.DistanceKm = &zero
			return resolved, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up district")
		}
	}

	candidates, err := s.districts.ListWithCoordinates(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load districts")
	}

	var nearest *models.District
	best := nearestDistrictMaxKm
	for i := range candidates {
		d := candidates[i]
		distance := geo.DistanceKm(lat, lng, *d.Lat, *d.Lng)
		if distance <= best {
			best = distance
			nearest = &candidates[i]
		}
	}
	if nearest != nil {
		resolved.Nearest = nearest
		resolved.DistanceKm = &best
	}

	return resolved, nil
}

// IssueReport renders the district's issues as CSV or PDF bytes.
func (s *DistrictService) IssueReport(ctx context.Context, id, format string) ([]byte, string, error) {
	district, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	issues, _, err := s.issues.List(ctx, models.IssueFilter{DistrictID: id, PageSize: 100})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load issues")
	}

	dataset := export.Dataset{
		Headers: []string{"Title", "Category", "Status", "Reporter", "Upvotes", "Created"},
	}
	for _, issue := range issues {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Title":    issue.Title,
			"Category": string(issue.Category),
			"Status":   string(issue.Status),
			"Reporter": issue.ReporterName,
			"Upvotes":  fmt.Sprintf("%d", issue.Upvotes),
			"Created":  issue.CreatedAt.Format(time.RFC3339),
		})
	}

	switch strings.ToLower(format) {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "", "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("%s issue report", district.Name))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
}
