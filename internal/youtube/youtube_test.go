package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdata/tourism-pipeline/internal/domain"
)

func TestClientSearch(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://yt.example/v3/search",
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			assert.Equal(t, "du lịch Khánh Hòa", q.Get("q"))
			assert.Equal(t, "VN", q.Get("regionCode"))
			assert.Equal(t, "test-key", q.Get("key"))
			return httpmock.NewStringResponse(200, `{
				"items": [
					{"id": {"videoId": "abc"}, "snippet": {"title": "Nha Trang vlog", "publishedAt": "2025-08-20T10:00:00Z"}},
					{"id": {}, "snippet": {"title": "channel hit, no video id"}}
				]
			}`), nil
		})

	c := NewClient("test-key", "https://yt.example/v3", 50)
	results, err := c.Search(context.Background(), "du lịch Khánh Hòa", time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "abc", results[0].VideoID)
	assert.Equal(t, "Nha Trang vlog", results[0].Title)
}

func TestClientSearchFollowsPageTokens(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://yt.example/v3/search",
		func(req *http.Request) (*http.Response, error) {
			switch req.URL.Query().Get("pageToken") {
			case "":
				return httpmock.NewStringResponse(200, `{
					"nextPageToken": "page-2",
					"items": [{"id": {"videoId": "abc"}, "snippet": {"title": "part 1"}}]
				}`), nil
			case "page-2":
				return httpmock.NewStringResponse(200, `{
					"items": [{"id": {"videoId": "def"}, "snippet": {"title": "part 2"}}]
				}`), nil
			default:
				return httpmock.NewStringResponse(400, `{}`), nil
			}
		})

	c := NewClient("test-key", "https://yt.example/v3", 50)
	results, err := c.Search(context.Background(), "du lịch Huế", time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "abc", results[0].VideoID)
	assert.Equal(t, "def", results[1].VideoID)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestClientStats(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://yt.example/v3/videos",
		httpmock.NewStringResponder(200, `{
			"items": [
				{"id": "abc", "statistics": {"viewCount": "1200", "likeCount": "34", "commentCount": "5"}},
				{"id": "def", "statistics": {"viewCount": "88"}}
			]
		}`))

	c := NewClient("test-key", "https://yt.example/v3", 50)
	stats, err := c.Stats(context.Background(), []string{"abc", "def"})
	require.NoError(t, err)
	assert.Equal(t, Statistics{Views: 1200, Likes: 34, Comments: 5}, stats["abc"])
	// Likes and comments can be hidden; they read as zero.
	assert.Equal(t, Statistics{Views: 88}, stats["def"])
}

func TestClientQuotaError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://yt.example/v3/search",
		httpmock.NewStringResponder(http.StatusForbidden, `{"error": {"code": 403}}`))

	c := NewClient("bad-key", "https://yt.example/v3", 50)
	_, err := c.Search(context.Background(), "du lịch Huế", time.Now())
	assert.ErrorContains(t, err, "quota")
}

type fakeAPI struct {
	results map[string][]SearchResult
	stats   map[string]Statistics
	failFor string
	batches []int
}

func (f *fakeAPI) Search(ctx context.Context, query string, publishedAfter time.Time) ([]SearchResult, error) {
	if f.failFor != "" && query == "du lịch "+f.failFor {
		return nil, errors.New("quota exceeded")
	}
	return f.results[query], nil
}

func (f *fakeAPI) Stats(ctx context.Context, videoIDs []string) (map[string]Statistics, error) {
	if len(videoIDs) > 50 {
		return nil, errors.New("too many ids")
	}
	f.batches = append(f.batches, len(videoIDs))
	out := map[string]Statistics{}
	for _, id := range videoIDs {
		out[id] = f.stats[id]
	}
	return out, nil
}

func TestCollectProvince(t *testing.T) {
	now := time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		results: map[string][]SearchResult{
			"du lịch Khánh Hòa": {
				{VideoID: "abc", Title: "Nha Trang", PublishedAt: now.AddDate(0, 0, -1)},
			},
		},
		stats: map[string]Statistics{"abc": {Views: 500, Likes: 10, Comments: 2}},
	}

	c := NewCollector(api, 7, slog.New(slog.NewTextHandler(io.Discard, nil)))
	videos, err := c.CollectProvince(context.Background(), "Khánh Hòa", now)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "Khánh Hòa", videos[0].Province)
	assert.Equal(t, int64(500), videos[0].Views)
}

func TestCollectProvinceBatchesStats(t *testing.T) {
	now := time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC)
	var results []SearchResult
	stats := map[string]Statistics{}
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("vid-%02d", i)
		results = append(results, SearchResult{VideoID: id, PublishedAt: now})
		stats[id] = Statistics{Views: int64(i)}
	}
	api := &fakeAPI{
		results: map[string][]SearchResult{"du lịch Khánh Hòa": results},
		stats:   stats,
	}

	c := NewCollector(api, 7, slog.New(slog.NewTextHandler(io.Discard, nil)))
	videos, err := c.CollectProvince(context.Background(), "Khánh Hòa", now)
	require.NoError(t, err)
	require.Len(t, videos, 60)
	assert.Equal(t, []int{50, 10}, api.batches)
	assert.Equal(t, int64(59), videos[59].Views)
}

func TestCollectAllSkipsFailingProvince(t *testing.T) {
	now := time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		results: map[string][]SearchResult{
			"du lịch Khánh Hòa": {{VideoID: "abc", PublishedAt: now}},
		},
		stats:   map[string]Statistics{"abc": {Views: 1}},
		failFor: "Lâm Đồng",
	}

	c := NewCollector(api, 7, slog.New(slog.NewTextHandler(io.Discard, nil)))
	videos, err := c.CollectAll(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "Khánh Hòa", videos[0].Province)
}

func TestAggregate(t *testing.T) {
	videos := []domain.VideoStat{
		{Province: "Khánh Hòa", Views: 100, Likes: 5, Comments: 1},
		{Province: "Khánh Hòa", Views: 200, Likes: 10, Comments: 2},
		{Province: "Lâm Đồng", Views: 400, Likes: 1, Comments: 0},
	}

	aggs := Aggregate(videos)
	require.Len(t, aggs, 2)
	assert.Equal(t, domain.ProvinceVideoAggregate{Province: "Lâm Đồng", Videos: 1, Views: 400, Likes: 1}, aggs[0])
	assert.Equal(t, domain.ProvinceVideoAggregate{Province: "Khánh Hòa", Videos: 2, Views: 300, Likes: 15, Comments: 3}, aggs[1])
}
