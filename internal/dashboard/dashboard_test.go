package dashboard

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/merge"
	"github.com/vietdata/tourism-pipeline/internal/model"
	"github.com/vietdata/tourism-pipeline/internal/observability"
)

func writeMaster(t *testing.T, dir string) {
	t.Helper()
	rows := [][]string{
		{"destination", "date", "year", "month", "traffic", "province", "region"},
		{"Vịnh Hạ Long", "2025-01-01", "2025", "1", "80", "Quảng Ninh", "Đồng bằng sông Hồng"},
		{"Vịnh Hạ Long", "2025-02-01", "2025", "2", "90", "Quảng Ninh", "Đồng bằng sông Hồng"},
		{"Phố cổ Hội An", "2025-01-01", "2025", "1", "60", "TP. Đà Nẵng", "Bắc Trung Bộ và Duyên hải miền Trung"},
		{"Phố cổ Hội An", "2025-02-01", "2025", "2", "70", "TP. Đà Nẵng", "Bắc Trung Bộ và Duyên hải miền Trung"},
	}
	require.NoError(t, csvio.WriteFile(filepath.Join(dir, merge.OutputFile), rows, csvio.Options{Delimiter: ';'}))
}

func writePredictions(t *testing.T, dir string) {
	t.Helper()
	rows := [][]string{
		{"destination", "province", "region", "date", "traffic", "predicted_traffic", "predicted_change_pct"},
		{"Vịnh Hạ Long", "Quảng Ninh", "Đồng bằng sông Hồng", "2025-02-01", "90.00", "99.00", "10.0"},
		{"Phố cổ Hội An", "TP. Đà Nẵng", "Bắc Trung Bộ và Duyên hải miền Trung", "2025-02-01", "70.00", "63.00", "-10.0"},
	}
	require.NoError(t, csvio.WriteFile(filepath.Join(dir, model.PredictionsFile), rows, csvio.Options{Delimiter: ';'}))
}

func newTestServer(t *testing.T) (*Server, *Store) {
	t.Helper()
	normDir := t.TempDir()
	modelsDir := t.TempDir()
	writeMaster(t, normDir)
	writePredictions(t, modelsDir)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	store := NewStore(normDir, modelsDir, time.Minute, logger, metrics)
	require.NoError(t, store.Load())
	return NewServer(":0", store, logger, metrics), store
}

func get(t *testing.T, s *Server, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestOverviewEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	var o Overview
	rec := get(t, s, "/api/overview", &o)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, o.Destinations)
	assert.Equal(t, 2, o.Provinces)
	assert.Equal(t, 4, o.Rows)
	assert.Equal(t, "2025-01-01", o.FirstMonth)
	assert.Equal(t, "2025-02-01", o.LastMonth)
	assert.Equal(t, 75.0, o.MeanTraffic)
	assert.Equal(t, 2, o.Predictions)
}

func TestTrafficEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	var series []SeriesPoint
	rec := get(t, s, "/api/traffic", &series)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, series, 2)
	assert.Equal(t, SeriesPoint{Date: "2025-01-01", Traffic: 70}, series[0])
	assert.Equal(t, SeriesPoint{Date: "2025-02-01", Traffic: 80}, series[1])

	// Filtered to one destination.
	rec = get(t, s, "/api/traffic?destination=V%E1%BB%8Bnh+H%E1%BA%A1+Long", &series)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, series, 2)
	assert.Equal(t, 80.0, series[0].Traffic)
}

func TestTopProvincesEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	var ranks []ProvinceRank
	rec := get(t, s, "/api/provinces/top?limit=1", &ranks)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ranks, 1)
	assert.Equal(t, "Quảng Ninh", ranks[0].Province)
	assert.Equal(t, 85.0, ranks[0].MeanTraffic)
	assert.Equal(t, 1, ranks[0].Destinations)

	rec = get(t, s, "/api/provinces/top?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeasonalEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	var seasonal []SeasonalPoint
	rec := get(t, s, "/api/seasonal", &seasonal)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, seasonal, 2)
	assert.Equal(t, SeasonalPoint{Month: 1, MeanTraffic: 70}, seasonal[0])
	assert.Equal(t, SeasonalPoint{Month: 2, MeanTraffic: 80}, seasonal[1])

	// Filtered to one province.
	rec = get(t, s, "/api/seasonal?province=Qu%E1%BA%A3ng+Ninh", &seasonal)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, seasonal, 2)
	assert.Equal(t, SeasonalPoint{Month: 1, MeanTraffic: 80}, seasonal[0])
	assert.Equal(t, SeasonalPoint{Month: 2, MeanTraffic: 90}, seasonal[1])
}

func TestPredictionsEndpointSortsByGrowth(t *testing.T) {
	s, _ := newTestServer(t)

	var preds []map[string]any
	rec := get(t, s, "/api/predictions", &preds)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, preds, 2)
	assert.Equal(t, "Vịnh Hạ Long", preds[0]["Destination"])
}

func TestIndexPage(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Du lịch Việt Nam")
	assert.Contains(t, body, "Quảng Ninh")
	assert.Contains(t, body, "Vịnh Hạ Long")
}

func TestHealthAndReadiness(t *testing.T) {
	s, store := newTestServer(t)

	rec := get(t, s, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A store with nothing loaded is not ready.
	store.mu.Lock()
	store.rows = nil
	store.mu.Unlock()
	rec = get(t, s, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStoreRequiresMaster(t *testing.T) {
	store := NewStore(t.TempDir(), t.TempDir(), time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	assert.Error(t, store.Load())
	assert.Error(t, store.CheckReadiness())
}

func TestStoreCacheFlushOnReload(t *testing.T) {
	normDir := t.TempDir()
	modelsDir := t.TempDir()
	writeMaster(t, normDir)

	store := NewStore(normDir, modelsDir, time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	require.NoError(t, store.Load())
	assert.Equal(t, 4, store.GetOverview().Rows)

	// Rewrite the table with one extra row and reload.
	rows := [][]string{
		{"destination", "date", "year", "month", "traffic", "province", "region"},
		{"Huế", "2025-01-01", "2025", "1", "50", "TP. Huế", "Bắc Trung Bộ và Duyên hải miền Trung"},
	}
	require.NoError(t, csvio.WriteFile(filepath.Join(normDir, merge.OutputFile), rows, csvio.Options{Delimiter: ';'}))
	require.NoError(t, store.Load())
	assert.Equal(t, 1, store.GetOverview().Rows)
}
