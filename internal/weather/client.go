// Package weather downloads daily temperature and rainfall history for each
// province's representative coordinate from the Open-Meteo archive and folds
// it into monthly aggregates for the merge stage.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vietdata/tourism-pipeline/internal/domain"
)

// archiveResponse mirrors the Open-Meteo archive JSON.
type archiveResponse struct {
	Daily struct {
		Time          []string  `json:"time"`
		TempMean      []float64 `json:"temperature_2m_mean"`
		Precipitation []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Client fetches daily history from the Open-Meteo archive API.
type Client struct {
	baseURL    string
	timezone   string
	maxRetries int
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient builds an archive client.
func NewClient(baseURL, timezone string, maxRetries int, timeout time.Duration, logger *slog.Logger) *Client {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Client{
		baseURL:    baseURL,
		timezone:   timezone,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
		clock:      domain.Clock(),
		logger:     logger,
	}
}

const rateLimitBase = 30 * time.Second

// FetchDaily downloads one coordinate's daily series for [start, end]. The
// archive rate-limits aggressively; a 429 backs off 30s, 60s, 120s, ...
func (c *Client) FetchDaily(ctx context.Context, province string, lat, lon float64, start, end time.Time) ([]domain.WeatherDay, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := rateLimitBase * (1 << (attempt - 1))
			c.logger.Warn("archive rate limited, backing off", "province", province, "attempt", attempt, "delay", delay)
			if err := sleep(ctx, c.clock, delay); err != nil {
				return nil, err
			}
		}

		days, err := c.fetchOnce(ctx, province, lat, lon, start, end)
		if err == nil {
			return days, nil
		}
		lastErr = err
		if se, ok := err.(*statusError); !ok || se.code != http.StatusTooManyRequests {
			return nil, err
		}
	}
	return nil, fmt.Errorf("archive fetch for %s: %w", province, lastErr)
}

type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

func (c *Client) fetchOnce(ctx context.Context, province string, lat, lon float64, start, end time.Time) ([]domain.WeatherDay, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("start_date", start.Format("2006-01-02"))
	q.Set("end_date", end.Format("2006-01-02"))
	q.Set("daily", "temperature_2m_mean,precipitation_sum")
	q.Set("timezone", c.timezone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode}
	}

	var parsed archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode archive response: %w", err)
	}

	n := len(parsed.Daily.Time)
	if len(parsed.Daily.TempMean) != n || len(parsed.Daily.Precipitation) != n {
		return nil, fmt.Errorf("archive response arrays disagree: %d dates, %d temps, %d rain",
			n, len(parsed.Daily.TempMean), len(parsed.Daily.Precipitation))
	}

	days := make([]domain.WeatherDay, 0, n)
	for i := 0; i < n; i++ {
		date, err := time.Parse("2006-01-02", parsed.Daily.Time[i])
		if err != nil {
			return nil, fmt.Errorf("parse archive date %q: %w", parsed.Daily.Time[i], err)
		}
		days = append(days, domain.WeatherDay{
			Province: province,
			Date:     date,
			TempAvg:  parsed.Daily.TempMean[i],
			Rainfall: parsed.Daily.Precipitation[i],
			Lat:      lat,
			Lon:      lon,
		})
	}
	return days, nil
}

// PoliteDelay sleeps a random interval inside [min, max] so back-to-back
// province fetches do not trip the archive's rate limiter.
func PoliteDelay(ctx context.Context, rng *rand.Rand, min, max time.Duration) error {
	if max <= min {
		return sleep(ctx, domain.Clock(), min)
	}
	jitter := time.Duration(rng.Int63n(int64(max - min)))
	return sleep(ctx, domain.Clock(), min+jitter)
}

func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
