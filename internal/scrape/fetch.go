package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client fetches directory pages over HTTP with polite rate limiting.
type Client struct {
	baseURL    string
	slug       string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a page fetcher for one directory section. delay is the
// minimum interval between requests.
func NewClient(baseURL string, source Source, userAgent string, delay, timeout time.Duration) *Client {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Client{
		baseURL:    baseURL,
		slug:       source.Slug,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
	}
}

// FetchPage downloads one listing page. Page 1 is the bare section URL; later
// pages use the ?page=N query, matching the site's pagination.
func (c *Client) FetchPage(ctx context.Context, page int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, c.slug)
	if page > 1 {
		url = fmt.Sprintf("%s?page=%d", url, page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page %d: status %d", page, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read page %d: %w", page, err)
	}
	return string(body), nil
}
