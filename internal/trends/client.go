// Package trends collects monthly search-interest scores for destination
// keywords. Scores are relative within one request, so keywords are fetched
// in small groups that each include a shared anchor keyword; group scores are
// rescaled onto the anchor's scale before they are combined.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// interestResponse is the JSON shape of the interest-over-time endpoint.
type interestResponse struct {
	Timeline []struct {
		Date   string             `json:"date"` // "2006-01"
		Values map[string]float64 `json:"values"`
	} `json:"timeline"`
}

// GroupSeries holds one group's scores: per keyword, per month.
type GroupSeries struct {
	Dates  []time.Time
	Scores map[string][]float64 // keyword -> score per date
}

// Client fetches interest-over-time series for keyword groups.
type Client struct {
	baseURL    string
	timeframe  string
	retryDelay time.Duration
	maxRetries int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a search-interest client.
func NewClient(baseURL, timeframe string, retryDelay time.Duration, maxRetries int, logger *slog.Logger) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		baseURL:    baseURL,
		timeframe:  timeframe,
		retryDelay: retryDelay,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// FetchGroup requests monthly scores for up to five keywords at once. Rate
// limit responses (429) back off linearly on retryDelay before retrying.
func (c *Client) FetchGroup(ctx context.Context, keywords []string) (*GroupSeries, error) {
	if len(keywords) == 0 || len(keywords) > 5 {
		return nil, fmt.Errorf("group size %d out of range 1..5", len(keywords))
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(attempt)
			c.logger.Warn("interest request retrying", "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		series, err := c.fetchOnce(ctx, keywords)
		if err == nil {
			return series, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("interest request failed after %d retries: %w", c.maxRetries, lastErr)
}

type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

func retryable(err error) bool {
	se, ok := err.(*statusError)
	if !ok {
		return true // transport errors are worth retrying
	}
	return se.code == http.StatusTooManyRequests || se.code >= 500
}

func (c *Client) fetchOnce(ctx context.Context, keywords []string) (*GroupSeries, error) {
	q := url.Values{}
	q.Set("keywords", strings.Join(keywords, ","))
	q.Set("timeframe", c.timeframe)
	q.Set("geo", "VN")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/interest-over-time?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("interest request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode}
	}

	var parsed interestResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode interest response: %w", err)
	}
	return toSeries(keywords, parsed)
}

func toSeries(keywords []string, parsed interestResponse) (*GroupSeries, error) {
	if len(parsed.Timeline) == 0 {
		return nil, fmt.Errorf("empty interest timeline")
	}

	series := &GroupSeries{Scores: make(map[string][]float64, len(keywords))}
	sort.Slice(parsed.Timeline, func(i, j int) bool {
		return parsed.Timeline[i].Date < parsed.Timeline[j].Date
	})
	for _, point := range parsed.Timeline {
		date, err := time.Parse("2006-01", point.Date)
		if err != nil {
			return nil, fmt.Errorf("parse timeline date %q: %w", point.Date, err)
		}
		series.Dates = append(series.Dates, date)
		for _, kw := range keywords {
			series.Scores[kw] = append(series.Scores[kw], point.Values[kw])
		}
	}
	return series, nil
}
