// Package dashboard serves the merged dataset and model predictions over
// HTTP: JSON endpoints for the charts plus a small server-rendered page.
package dashboard

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gocache "github.com/patrickmn/go-cache"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/domain"
	"github.com/vietdata/tourism-pipeline/internal/merge"
	"github.com/vietdata/tourism-pipeline/internal/model"
	"github.com/vietdata/tourism-pipeline/internal/observability"
)

// masterRow is one row of the modeling table, the slice the dashboard needs.
type masterRow struct {
	Destination string
	Province    string
	Region      string
	Date        string
	Month       int
	Traffic     float64
}

// Store holds the dashboard's in-memory dataset. A filesystem watcher
// reloads it when the pipeline rewrites the files; computed aggregates are
// memoized with a TTL so chart endpoints stay cheap.
type Store struct {
	normalizedDir string
	modelsDir     string
	logger        *slog.Logger
	metrics       *observability.Metrics

	mu          sync.RWMutex
	rows        []masterRow
	predictions []domain.Prediction
	loadedAt    time.Time

	cache   *gocache.Cache
	watcher *fsnotify.Watcher
}

// NewStore builds a store over the pipeline's output directories.
func NewStore(normalizedDir, modelsDir string, cacheTTL time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Store{
		normalizedDir: normalizedDir,
		modelsDir:     modelsDir,
		logger:        logger,
		metrics:       metrics,
		cache:         gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// Load reads the modeling table and the predictions export. Predictions are
// optional; the table is not.
func (s *Store) Load() error {
	rows, err := s.loadMaster()
	if err != nil {
		return err
	}

	preds, err := model.ReadPredictions(filepath.Join(s.modelsDir, model.PredictionsFile))
	if err != nil {
		s.logger.Warn("predictions unavailable", "error", err)
		preds = nil
	}

	s.mu.Lock()
	s.rows = rows
	s.predictions = preds
	s.loadedAt = domain.Clock().Now()
	s.mu.Unlock()
	s.cache.Flush()

	s.logger.Info("dataset loaded", "rows", len(rows), "predictions", len(preds))
	return nil
}

func (s *Store) loadMaster() ([]masterRow, error) {
	path := filepath.Join(s.normalizedDir, merge.OutputFile)
	records, err := csvio.ReadFile(path, csvio.Options{Delimiter: ';'})
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("modeling table %s is empty", path)
	}

	header := records[0]
	col := func(name string) int { return csvio.Column(header, name) }
	destCol, dateCol, monthCol := col("destination"), col("date"), col("month")
	provCol, regionCol, trafficCol := col("province"), col("region"), col("traffic")
	if destCol < 0 || dateCol < 0 || trafficCol < 0 {
		return nil, fmt.Errorf("modeling table misses destination/date/traffic columns")
	}

	rows := make([]masterRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		get := func(i int) string {
			if i >= 0 && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		traffic, err := strconv.ParseFloat(get(trafficCol), 64)
		if err != nil {
			continue
		}
		month, _ := strconv.Atoi(get(monthCol))
		rows = append(rows, masterRow{
			Destination: get(destCol),
			Province:    get(provCol),
			Region:      get(regionCol),
			Date:        get(dateCol),
			Month:       month,
			Traffic:     traffic,
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("modeling table %s has no numeric traffic rows", path)
	}
	return rows, nil
}

// Watch reloads the dataset whenever the pipeline rewrites its outputs.
// Returns a stop function.
func (s *Store) Watch() (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	s.watcher = watcher

	for _, dir := range []string{s.normalizedDir, s.modelsDir} {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				base := filepath.Base(event.Name)
				if base != merge.OutputFile && base != model.PredictionsFile {
					continue
				}
				s.logger.Info("dataset file changed, reloading", "file", base)
				if err := s.Load(); err != nil {
					s.logger.Error("reload failed", "error", err)
					continue
				}
				s.metrics.DatasetReloads.Inc()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("watcher error", "error", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

// CheckReadiness reports whether a dataset is loaded.
func (s *Store) CheckReadiness() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.rows) == 0 {
		return fmt.Errorf("dataset not loaded")
	}
	return nil
}

// Overview summarizes the loaded dataset.
type Overview struct {
	Destinations int     `json:"destinations"`
	Provinces    int     `json:"provinces"`
	Rows         int     `json:"rows"`
	FirstMonth   string  `json:"first_month"`
	LastMonth    string  `json:"last_month"`
	MeanTraffic  float64 `json:"mean_traffic"`
	Predictions  int     `json:"predictions"`
	LoadedAt     string  `json:"loaded_at"`
}

// GetOverview computes (or serves the memoized) dataset summary.
func (s *Store) GetOverview() Overview {
	if v, ok := s.cache.Get("overview"); ok {
		return v.(Overview)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dests := map[string]bool{}
	provs := map[string]bool{}
	var sum float64
	first, last := "", ""
	for _, r := range s.rows {
		dests[r.Destination] = true
		if r.Province != "" {
			provs[r.Province] = true
		}
		sum += r.Traffic
		if first == "" || r.Date < first {
			first = r.Date
		}
		if r.Date > last {
			last = r.Date
		}
	}

	o := Overview{
		Destinations: len(dests),
		Provinces:    len(provs),
		Rows:         len(s.rows),
		FirstMonth:   first,
		LastMonth:    last,
		Predictions:  len(s.predictions),
		LoadedAt:     s.loadedAt.UTC().Format(time.RFC3339),
	}
	if len(s.rows) > 0 {
		o.MeanTraffic = round2(sum / float64(len(s.rows)))
	}
	s.cache.SetDefault("overview", o)
	return o
}

// SeriesPoint is one month of a traffic series.
type SeriesPoint struct {
	Date    string  `json:"date"`
	Traffic float64 `json:"traffic"`
}

// GetTraffic returns the mean monthly traffic, optionally for one
// destination.
func (s *Store) GetTraffic(destination string) []SeriesPoint {
	key := "traffic:" + destination
	if v, ok := s.cache.Get(key); ok {
		return v.([]SeriesPoint)
	}

	s.mu.RLock()
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range s.rows {
		if destination != "" && r.Destination != destination {
			continue
		}
		sums[r.Date] += r.Traffic
		counts[r.Date]++
	}
	s.mu.RUnlock()

	dates := make([]string, 0, len(sums))
	for d := range sums {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]SeriesPoint, 0, len(dates))
	for _, d := range dates {
		out = append(out, SeriesPoint{Date: d, Traffic: round2(sums[d] / float64(counts[d]))})
	}
	s.cache.SetDefault(key, out)
	return out
}

// ProvinceRank is one province's standing by mean traffic.
type ProvinceRank struct {
	Province     string  `json:"province"`
	Region       string  `json:"region"`
	MeanTraffic  float64 `json:"mean_traffic"`
	Destinations int     `json:"destinations"`
}

// GetTopProvinces ranks provinces by mean traffic, strongest first.
func (s *Store) GetTopProvinces(limit int) []ProvinceRank {
	key := fmt.Sprintf("top:%d", limit)
	if v, ok := s.cache.Get(key); ok {
		return v.([]ProvinceRank)
	}

	s.mu.RLock()
	type agg struct {
		region string
		sum    float64
		n      int
		dests  map[string]bool
	}
	byProv := map[string]*agg{}
	for _, r := range s.rows {
		if r.Province == "" {
			continue
		}
		a, ok := byProv[r.Province]
		if !ok {
			a = &agg{region: r.Region, dests: map[string]bool{}}
			byProv[r.Province] = a
		}
		a.sum += r.Traffic
		a.n++
		a.dests[r.Destination] = true
	}
	s.mu.RUnlock()

	out := make([]ProvinceRank, 0, len(byProv))
	for prov, a := range byProv {
		out = append(out, ProvinceRank{
			Province:     prov,
			Region:       a.region,
			MeanTraffic:  round2(a.sum / float64(a.n)),
			Destinations: len(a.dests),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeanTraffic != out[j].MeanTraffic {
			return out[i].MeanTraffic > out[j].MeanTraffic
		}
		return out[i].Province < out[j].Province
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	s.cache.SetDefault(key, out)
	return out
}

// SeasonalPoint is the average traffic for one calendar month.
type SeasonalPoint struct {
	Month       int     `json:"month"`
	MeanTraffic float64 `json:"mean_traffic"`
}

// GetSeasonal averages traffic per calendar month across all years,
// optionally within one province.
func (s *Store) GetSeasonal(province string) []SeasonalPoint {
	key := "seasonal:" + province
	if v, ok := s.cache.Get(key); ok {
		return v.([]SeasonalPoint)
	}

	s.mu.RLock()
	sums := [13]float64{}
	counts := [13]int{}
	for _, r := range s.rows {
		if province != "" && r.Province != province {
			continue
		}
		if r.Month >= 1 && r.Month <= 12 {
			sums[r.Month] += r.Traffic
			counts[r.Month]++
		}
	}
	s.mu.RUnlock()

	out := make([]SeasonalPoint, 0, 12)
	for m := 1; m <= 12; m++ {
		if counts[m] == 0 {
			continue
		}
		out = append(out, SeasonalPoint{Month: m, MeanTraffic: round2(sums[m] / float64(counts[m]))})
	}
	s.cache.SetDefault(key, out)
	return out
}

// GetPredictions returns the scored rows, biggest predicted growth first.
func (s *Store) GetPredictions(limit int) []domain.Prediction {
	s.mu.RLock()
	preds := append([]domain.Prediction(nil), s.predictions...)
	s.mu.RUnlock()

	sort.Slice(preds, func(i, j int) bool {
		return preds[i].PredictedChange > preds[j].PredictedChange
	})
	if limit > 0 && limit < len(preds) {
		preds = preds[:limit]
	}
	return preds
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
