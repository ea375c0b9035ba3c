// internal/geo/geocoder.go
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	stderrors "marketfeed/internal/common/errors"
	commonhttp "marketfeed/internal/common/http"
	"marketfeed/internal/common/logger"
)

// Geocoder resolves a free-text address to coordinates. It is used only as a
// fallback reference location when the caller's own location is unknown.
type Geocoder struct {
	baseURL string
	apiKey  string
	client  *commonhttp.Client
	logger  logger.Logger
}

func NewGeocoder(baseURL, apiKey string, timeout time.Duration, log logger.Logger) *Geocoder {
	return &Geocoder{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  commonhttp.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"component": "geocoder"}),
	}
}

type geocodeResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocode resolves address to coordinates. Failures are returned to the caller,
// which treats them as "no reference location" rather than a user-facing error.
func (g *Geocoder) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	if address == "" {
		return nil, stderrors.NewGeocodingFailedError(address, fmt.Errorf("empty address"))
	}

	endpoint := fmt.Sprintf("%s/geocode?q=%s", g.baseURL, url.QueryEscape(address))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, stderrors.NewGeocodingFailedError(address, err)
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.DoWithContext(ctx, req)
	if err != nil {
		g.logger.Warn("geocode request failed", map[string]interface{}{
			"address": address,
			"error":   err,
		})
		return nil, stderrors.NewGeocodingFailedError(address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, stderrors.NewGeocodingFailedError(address, fmt.Errorf("status %d", resp.StatusCode))
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, stderrors.NewGeocodingFailedError(address, err)
	}

	return &Coordinates{Latitude: body.Latitude, Longitude: body.Longitude}, nil
}
