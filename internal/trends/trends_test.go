package trends

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anchor = "Thành phố Hà Nội"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientFetchGroup(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://trends.example/api/interest-over-time",
		httpmock.NewStringResponder(200, `{
			"timeline": [
				{"date": "2025-02", "values": {"Vịnh Hạ Long": 40, "Thành phố Hà Nội": 80}},
				{"date": "2025-01", "values": {"Vịnh Hạ Long": 55, "Thành phố Hà Nội": 90}}
			]
		}`))

	c := NewClient("https://trends.example/api", "today 12-m", time.Millisecond, 3, testLogger())
	series, err := c.FetchGroup(context.Background(), []string{"Vịnh Hạ Long", anchor})
	require.NoError(t, err)

	// Timeline comes back sorted even when the server is not.
	require.Len(t, series.Dates, 2)
	assert.Equal(t, time.January, series.Dates[0].Month())
	assert.Equal(t, []float64{55, 40}, series.Scores["Vịnh Hạ Long"])
	assert.Equal(t, []float64{90, 80}, series.Scores[anchor])
}

func TestClientRetriesOnRateLimit(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, "https://trends.example/api/interest-over-time",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(http.StatusTooManyRequests, ""), nil
			}
			return httpmock.NewStringResponse(200,
				`{"timeline": [{"date": "2025-01", "values": {"Huế": 10, "`+anchor+`": 50}}]}`), nil
		})

	c := NewClient("https://trends.example/api", "today 12-m", time.Millisecond, 5, testLogger())
	series, err := c.FetchGroup(context.Background(), []string{"Huế", anchor})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []float64{10}, series.Scores["Huế"])
}

func TestClientGivesUpOnClientError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://trends.example/api/interest-over-time",
		httpmock.NewStringResponder(http.StatusBadRequest, ""))

	c := NewClient("https://trends.example/api", "today 12-m", time.Millisecond, 5, testLogger())
	_, err := c.FetchGroup(context.Background(), []string{"Huế", anchor})
	require.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

type fakeFetcher struct {
	series map[string]*GroupSeries // keyed by first keyword
	calls  [][]string
}

func (f *fakeFetcher) FetchGroup(ctx context.Context, keywords []string) (*GroupSeries, error) {
	f.calls = append(f.calls, append([]string(nil), keywords...))
	s, ok := f.series[keywords[0]]
	if !ok {
		return nil, fmt.Errorf("unexpected group %v", keywords)
	}
	return s, nil
}

func groupSeries(dates []time.Time, scores map[string][]float64) *GroupSeries {
	copied := make(map[string][]float64, len(scores))
	for k, v := range scores {
		copied[k] = append([]float64(nil), v...)
	}
	return &GroupSeries{Dates: dates, Scores: copied}
}

func TestCollectorGroupsAndRescales(t *testing.T) {
	dates := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	fetcher := &fakeFetcher{series: map[string]*GroupSeries{
		"A": groupSeries(dates, map[string][]float64{
			"A": {10, 20}, "B": {30, 40}, anchor: {80, 80},
		}),
		// Anchor scores half here, so this group scales by 2.
		"C": groupSeries(dates, map[string][]float64{
			"C": {5, 15}, anchor: {40, 40},
		}),
	}}

	c := NewCollector(fetcher, t.TempDir(), anchor, 2, testLogger())
	points, err := c.Collect(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)

	// Two groups of at most 2 destinations, anchor appended to each.
	require.Len(t, fetcher.calls, 2)
	assert.Equal(t, []string{"A", "B", anchor}, fetcher.calls[0])
	assert.Equal(t, []string{"C", anchor}, fetcher.calls[1])

	byDest := map[string][]float64{}
	for _, p := range points {
		byDest[p.Destination] = append(byDest[p.Destination], p.Traffic)
	}
	assert.NotContains(t, byDest, anchor)
	assert.Equal(t, []float64{10, 20}, byDest["A"])
	assert.Equal(t, []float64{10, 30}, byDest["C"])
}

func TestCollectorResumesFromCheckpoint(t *testing.T) {
	dates := []time.Time{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	rawDir := t.TempDir()

	first := &fakeFetcher{series: map[string]*GroupSeries{
		"A": groupSeries(dates, map[string][]float64{"A": {42}, anchor: {70}}),
	}}
	c := NewCollector(first, rawDir, anchor, 4, testLogger())
	_, err := c.Collect(context.Background(), []string{"A"})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(rawDir, "group_001.csv"))

	// Second run finds the checkpoint and never calls the fetcher.
	second := &fakeFetcher{}
	c = NewCollector(second, rawDir, anchor, 4, testLogger())
	points, err := c.Collect(context.Background(), []string{"A"})
	require.NoError(t, err)
	assert.Empty(t, second.calls)
	require.Len(t, points, 1)
	assert.Equal(t, 42.0, points[0].Traffic)
}

func TestCollectorZeroAnchorInReferenceGroup(t *testing.T) {
	dates := []time.Time{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{series: map[string]*GroupSeries{
		"A": groupSeries(dates, map[string][]float64{"A": {42}, anchor: {0}}),
	}}
	c := NewCollector(fetcher, t.TempDir(), anchor, 4, testLogger())
	_, err := c.Collect(context.Background(), []string{"A"})
	assert.ErrorContains(t, err, "anchor")
}
