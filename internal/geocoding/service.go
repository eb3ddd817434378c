// Package geocoding resolves French postal addresses to coordinates through
// the OSM Nominatim search API.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"serrupro_backend/platform/apperr"
	"serrupro_backend/platform/config"
	"serrupro_backend/platform/logger"
)

// Service is the Nominatim-backed geocoder.
type Service struct {
	client    *http.Client
	baseURL   string
	userAgent string
	log       *logger.Logger
}

func NewService(cfg config.GeocodingConfig, log *logger.Logger) *Service {
	return &Service{
		client:    &http.Client{Timeout: 5 * time.Second},
		baseURL:   cfg.GetGeocodingBaseURL(),
		userAgent: cfg.GetGeocodingUserAgent(),
		log:       log,
	}
}

// Resolve geocodes a French address. A lookup that returns no usable result
// is a not-found error, which callers treat as "location unresolved", not as
// an outage.
func (s *Service) Resolve(ctx context.Context, street, postalCode, city string) (float64, float64, error) {
	params := url.Values{}
	params.Add("q", buildQuery(street, postalCode, city))
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("limit", "1")
	params.Add("countrycodes", "fr")

	reqURL := fmt.Sprintf("%s?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("nominatim request failed", "error", err)
		return 0, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.log.Error("nominatim upstream error", "status", resp.StatusCode)
		return 0, 0, fmt.Errorf("upstream api error: %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		s.log.Error("failed to decode nominatim payload", "error", err)
		return 0, 0, err
	}

	if len(results) == 0 {
		return 0, 0, apperr.NotFound("address could not be resolved")
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, apperr.NotFound("address resolved to an unusable position")
	}
	return lat, lon, nil
}

func buildQuery(street, postalCode, city string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{street, postalCode, city} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
