package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geocodeServer(t *testing.T, addressJSON string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"display_name":"somewhere","address":%s}`, addressJSON)
	}))
}

func TestReversePrefersStateDistrict(t *testing.T) {
	srv := geocodeServer(t, `{"state_district":"Pune","county":"Pune County","state":"Maharashtra","country":"India","postcode":"411001"}`)
	defer srv.Close()

	svc := NewGeocodeService(srv.Client(), nil, GeocodeConfig{BaseURL: srv.URL, APIKey: "test"})
	loc, err := svc.Reverse(context.Background(), 18.52, 73.85)
	require.NoError(t, err)
	assert.Equal(t, "Pune", loc.DistrictName)
	assert.Equal(t, "Maharashtra", loc.State)
	assert.Equal(t, "411001", loc.Pincode)
}

func TestReverseFallbackChain(t *testing.T) {
	cases := []struct {
		name    string
		address string
		want    string
	}{
		{"county", `{"county":"Thrissur","state":"Kerala"}`, "Thrissur"},
		{"city", `{"city":"Nagpur","state":"Maharashtra"}`, "Nagpur"},
		{"town", `{"town":"Karjat","state":"Maharashtra"}`, "Karjat"},
		{"village", `{"village":"Mawlynnong","state":"Meghalaya"}`, "Mawlynnong"},
		{"county wins over town", `{"county":"Thrissur","town":"Karjat"}`, "Thrissur"},
		{"empty", `{"state":"Kerala"}`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := geocodeServer(t, tc.address)
			defer srv.Close()

			svc := NewGeocodeService(srv.Client(), nil, GeocodeConfig{BaseURL: srv.URL, APIKey: "test"})
			loc, err := svc.Reverse(context.Background(), 10.0, 76.0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, loc.DistrictName)
		})
	}
}

func TestReverseNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := NewGeocodeService(srv.Client(), nil, GeocodeConfig{BaseURL: srv.URL, APIKey: "test"})
	_, err := svc.Reverse(context.Background(), 10.0, 76.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
