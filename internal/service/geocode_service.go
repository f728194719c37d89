package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/civicnet/civicconnect-api/internal/models"
)

// GeocodeConfig configures the reverse-geocoding provider endpoint.
type GeocodeConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// GeocodeService resolves coordinates to an administrative address using a
// LocationIQ-compatible reverse endpoint.
type GeocodeService struct {
	client *http.Client
	logger *zap.Logger
	config GeocodeConfig
}

// NewGeocodeService constructs a GeocodeService instance.
func NewGeocodeService(client *http.Client, logger *zap.Logger, config GeocodeConfig) *GeocodeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &GeocodeService{client: client, logger: logger, config: config}
}

type reverseGeocodeResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		StateDistrict string `json:"state_district"`
		County        string `json:"county"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		State         string `json:"state"`
		Country       string `json:"country"`
		Postcode      string `json:"postcode"`
	} `json:"address"`
}

// Reverse looks up the district-level address for a coordinate pair.
func (s *GeocodeService) Reverse(ctx context.Context, lat, lng float64) (*models.ResolvedLocation, error) {
	endpoint, err := url.Parse(s.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse geocode base url: %w", err)
	}

	q := endpoint.Query()
	q.Set("key", s.config.APIKey)
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("format", "json")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reverse geocode returned status %d", resp.StatusCode)
	}

	var payload reverseGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	// Rural coordinates often carry only a town or village component.
	district := payload.Address.StateDistrict
	for _, fallback := range []string{payload.Address.County, payload.Address.City, payload.Address.Town, payload.Address.Village} {
		if district != "" {
			break
		}
		district = fallback
	}

	return &models.ResolvedLocation{
		DistrictName: district,
		State:        payload.Address.State,
		Country:      payload.Address.Country,
		Pincode:      payload.Address.Postcode,
		Address:      payload.DisplayName,
	}, nil
}
