// Package youtube measures short-term tourism buzz per province: recent
// "du lịch <province>" search results and their view counts from the
// YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the YouTube Data API v3.
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

// NewClient builds an API client. maxResults caps each search page (the API
// allows 50).
func NewClient(apiKey, baseURL string, maxResults int) *Client {
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 50
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type searchResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string    `json:"title"`
			PublishedAt time.Time `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// SearchResult is one hit from the search endpoint, statistics not yet
// attached.
type SearchResult struct {
	VideoID     string
	Title       string
	PublishedAt time.Time
}

// maxSearchPages bounds the page-token walk so one viral province cannot eat
// the whole daily quota.
const maxSearchPages = 10

// Search returns recent videos matching the query, newest first, following
// nextPageToken until the results run out.
func (c *Client) Search(ctx context.Context, query string, publishedAfter time.Time) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("q", query)
	q.Set("type", "video")
	q.Set("order", "date")
	q.Set("regionCode", "VN")
	q.Set("relevanceLanguage", "vi")
	q.Set("maxResults", strconv.Itoa(c.maxResults))
	q.Set("publishedAfter", publishedAfter.UTC().Format(time.RFC3339))
	q.Set("key", c.apiKey)

	var results []SearchResult
	for page := 0; page < maxSearchPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var parsed searchResponse
		if err := c.get(ctx, "/search", q, &parsed); err != nil {
			return nil, err
		}
		for _, item := range parsed.Items {
			if item.ID.VideoID == "" {
				continue
			}
			results = append(results, SearchResult{
				VideoID:     item.ID.VideoID,
				Title:       item.Snippet.Title,
				PublishedAt: item.Snippet.PublishedAt,
			})
		}
		if parsed.NextPageToken == "" {
			break
		}
		q.Set("pageToken", parsed.NextPageToken)
	}
	return results, nil
}

// Statistics holds one video's engagement counters.
type Statistics struct {
	Views    int64
	Likes    int64
	Comments int64
}

// Stats fetches view counters for up to 50 video IDs in one call.
func (c *Client) Stats(ctx context.Context, videoIDs []string) (map[string]Statistics, error) {
	if len(videoIDs) == 0 {
		return map[string]Statistics{}, nil
	}
	if len(videoIDs) > 50 {
		return nil, fmt.Errorf("videos request limited to 50 ids, got %d", len(videoIDs))
	}

	q := url.Values{}
	q.Set("part", "statistics")
	q.Set("id", strings.Join(videoIDs, ","))
	q.Set("key", c.apiKey)

	var parsed videosResponse
	if err := c.get(ctx, "/videos", q, &parsed); err != nil {
		return nil, err
	}

	stats := make(map[string]Statistics, len(parsed.Items))
	for _, item := range parsed.Items {
		stats[item.ID] = Statistics{
			Views:    parseCount(item.Statistics.ViewCount),
			Likes:    parseCount(item.Statistics.LikeCount),
			Comments: parseCount(item.Statistics.CommentCount),
		}
	}
	return stats, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("youtube %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("youtube %s: quota exceeded or invalid key (403)", path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode youtube %s: %w", path, err)
	}
	return nil
}

// parseCount tolerates the API omitting counters on some videos.
func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
