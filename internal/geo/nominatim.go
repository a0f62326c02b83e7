package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietdata/tourism-pipeline/internal/domain"
	"github.com/vietdata/tourism-pipeline/internal/observability"
)

// NominatimClient implements domain.Geocoder against the OSM Nominatim
// search API. The public instance allows one request per second, enforced
// here with a limiter.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewNominatimClient creates a geocoding client for Vietnamese place names.
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *NominatimClient {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &NominatimClient{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		metrics:    metrics,
		logger:     logger,
	}
}

type nominatimHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves a place name to coordinates. A place Nominatim does not
// know yields an empty result, not an error.
func (c *NominatimClient) Geocode(ctx context.Context, place string) (domain.GeocodingResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.GeocodingResult{}, err
	}

	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("countrycodes", "vn")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("nominatim error: status %d: %s", resp.StatusCode, body)
	}

	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(hits) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("place not found", "place", place)
		return domain.GeocodingResult{}, nil
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse latitude %q: %w", hits[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse longitude %q: %w", hits[0].Lon, err)
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return domain.GeocodingResult{
		Lat:         lat,
		Lon:         lon,
		DisplayName: hits[0].DisplayName,
	}, nil
}
