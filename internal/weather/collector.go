package weather

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/domain"
	"github.com/vietdata/tourism-pipeline/internal/geo"
	"github.com/vietdata/tourism-pipeline/internal/province"
)

// DailyFetcher downloads one coordinate's daily history.
type DailyFetcher interface {
	FetchDaily(ctx context.Context, province string, lat, lon float64, start, end time.Time) ([]domain.WeatherDay, error)
}

// Collector walks the canonical provinces and gathers their monthly history.
type Collector struct {
	fetcher  DailyFetcher
	start    time.Time
	end      time.Time
	minDelay time.Duration
	maxDelay time.Duration
	coords   map[string]geo.Point
	rng      *rand.Rand
	logger   *slog.Logger
}

// NewCollector builds a province-by-province history collector covering
// [startYear, endYear].
func NewCollector(fetcher DailyFetcher, startYear, endYear int, minDelay, maxDelay time.Duration, logger *slog.Logger) *Collector {
	return &Collector{
		fetcher:  fetcher,
		start:    time.Date(startYear, 1, 1, 0, 0, 0, 0, time.UTC),
		end:      time.Date(endYear, 12, 31, 0, 0, 0, 0, time.UTC),
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(domain.Clock().Now().UnixNano())),
		logger:   logger,
	}
}

// UseCoordinates overrides the built-in province coordinates, typically with
// the geocoded table from the geocode stage.
func (c *Collector) UseCoordinates(coords map[string]geo.Point) {
	c.coords = coords
}

// Collect fetches all provinces and returns monthly aggregates. Provinces
// that fail after the client's retries are skipped and counted.
func (c *Collector) Collect(ctx context.Context) ([]domain.MonthlyWeather, error) {
	end := c.end
	if now := domain.Clock().Now().UTC(); end.After(now) {
		end = now.AddDate(0, 0, -1)
	}

	var allDays []domain.WeatherDay
	skipped := 0
	for i, info := range province.Canonical() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if i > 0 {
			if err := PoliteDelay(ctx, c.rng, c.minDelay, c.maxDelay); err != nil {
				return nil, err
			}
		}

		lat, lon := info.Lat, info.Lon
		if p, ok := c.coords[info.Name]; ok {
			lat, lon = p.Lat, p.Lon
		}
		days, err := c.fetcher.FetchDaily(ctx, info.Name, lat, lon, c.start, end)
		if err != nil {
			skipped++
			c.logger.Warn("province skipped", "province", info.Name, "error", err)
			continue
		}
		allDays = append(allDays, days...)
		c.logger.Info("province fetched", "province", info.Name, "days", len(days))
	}

	if len(allDays) == 0 {
		return nil, fmt.Errorf("no weather data collected (%d provinces skipped)", skipped)
	}
	if skipped > 0 {
		c.logger.Warn("collection finished with skips", "skipped", skipped)
	}
	return Monthly(allDays), nil
}

// WriteMonthly saves the monthly aggregates consumed by the merge stage.
func WriteMonthly(path string, months []domain.MonthlyWeather) error {
	rows := make([][]string, 0, len(months)+1)
	rows = append(rows, []string{
		"province", "year", "month",
		"temp_mean", "temp_min", "temp_max", "temp_amplitude", "temp_std",
		"rainfall_total", "rainfall_max_daily", "rainfall_mean_daily", "rainfall_days",
		"lat", "lon",
	})
	for _, m := range months {
		rows = append(rows, []string{
			m.Province,
			strconv.Itoa(m.Year),
			strconv.Itoa(m.Month),
			formatFloat(m.TempMean),
			formatFloat(m.TempMin),
			formatFloat(m.TempMax),
			formatFloat(m.TempAmplitude),
			formatFloat(m.TempStd),
			formatFloat(m.RainfallTotal),
			formatFloat(m.RainfallMaxDaily),
			formatFloat(m.RainfallMeanDaily),
			strconv.Itoa(m.RainfallDays),
			formatFloat(m.Lat),
			formatFloat(m.Lon),
		})
	}
	return csvio.WriteFile(path, rows, csvio.Options{Delimiter: ';'})
}

// ReadMonthly loads a monthly aggregate file written by WriteMonthly.
func ReadMonthly(path string) ([]domain.MonthlyWeather, error) {
	rows, err := csvio.ReadFile(path, csvio.Options{Delimiter: ';'})
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("monthly weather file %s is empty", path)
	}

	header := rows[0]
	col := func(name string) int { return csvio.Column(header, name) }
	need := []string{"province", "year", "month", "temp_mean", "rainfall_total"}
	for _, name := range need {
		if col(name) < 0 {
			return nil, fmt.Errorf("monthly weather file %s misses column %q", path, name)
		}
	}

	out := make([]domain.MonthlyWeather, 0, len(rows)-1)
	for _, row := range rows[1:] {
		get := func(name string) string {
			if i := col(name); i >= 0 && i < len(row) {
				return row[i]
			}
			return ""
		}
		year, _ := strconv.Atoi(get("year"))
		month, _ := strconv.Atoi(get("month"))
		days, _ := strconv.Atoi(get("rainfall_days"))
		m := domain.MonthlyWeather{
			Province:          get("province"),
			Year:              year,
			Month:             month,
			TempMean:          parseFloat(get("temp_mean")),
			TempMin:           parseFloat(get("temp_min")),
			TempMax:           parseFloat(get("temp_max")),
			TempAmplitude:     parseFloat(get("temp_amplitude")),
			TempStd:           parseFloat(get("temp_std")),
			RainfallTotal:     parseFloat(get("rainfall_total")),
			RainfallMaxDaily:  parseFloat(get("rainfall_max_daily")),
			RainfallMeanDaily: parseFloat(get("rainfall_mean_daily")),
			RainfallDays:      days,
			Lat:               parseFloat(get("lat")),
			Lon:               parseFloat(get("lon")),
		}
		out = append(out, m)
	}
	return out, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
