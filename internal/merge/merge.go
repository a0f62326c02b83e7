// Package merge assembles the modeling table: monthly search traffic per
// destination, joined with the destination's province, facility counts,
// weather, video buzz, economy figures, and gateway distances.
package merge

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/dataset"
	"github.com/vietdata/tourism-pipeline/internal/geo"
	"github.com/vietdata/tourism-pipeline/internal/observability"
	"github.com/vietdata/tourism-pipeline/internal/province"
)

// OutputFile is the merged modeling table name.
const OutputFile = "tourism_master.csv"

// facilitySources maps normalized facility files to their count column, in
// output column order.
var facilitySources = []struct{ file, col string }{
	{"vietnam_accommodation.csv", "count_accommodation"},
	{"vietnam_entertainment.csv", "count_entertainment"},
	{"vietnam_healthcare.csv", "count_healthcare"},
	{"vietnam_restaurants.csv", "count_restaurants"},
	{"vietnam_shops.csv", "count_shops"},
}

// Merger joins the normalized datasets into one table.
type Merger struct {
	dataDir       string
	normalizedDir string
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// New builds a merger over the collected and normalized directories.
func New(dataDir, normalizedDir string, logger *slog.Logger, metrics *observability.Metrics) *Merger {
	return &Merger{dataDir: dataDir, normalizedDir: normalizedDir, logger: logger, metrics: metrics}
}

var semicolon = csvio.Options{Delimiter: ';'}

// Run performs the full merge and writes the modeling table into the
// normalized directory. Optional inputs that are missing join as empty
// columns rather than failing the run.
func (m *Merger) Run() (dataframe.DataFrame, error) {
	df, series, err := m.loadTraffic()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load traffic: %w", err)
	}
	m.logger.Info("traffic loaded", "rows", df.Nrow())

	destProv, err := m.loadDestinationProvinces()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load destination provinces: %w", err)
	}
	df = df.LeftJoin(destProv, "destination")
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("join provinces: %w", df.Err)
	}

	for _, src := range facilitySources {
		counts, err := m.loadFacilityCounts(src.file, src.col)
		if err != nil {
			m.logger.Warn("facility counts unavailable", "file", src.file, "error", err)
			continue
		}
		df = df.LeftJoin(counts, "province")
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("join %s: %w", src.col, df.Err)
		}
	}

	if weather, err := m.loadWeather(); err != nil {
		m.logger.Warn("weather unavailable", "error", err)
	} else {
		df = df.LeftJoin(weather, "province", "year", "month")
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("join weather: %w", df.Err)
		}
	}

	df = df.LeftJoin(seasonalPatterns(series), "destination")
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("join seasonal patterns: %w", df.Err)
	}

	if buzz, err := m.loadVideoBuzz(); err != nil {
		m.logger.Warn("video buzz unavailable", "error", err)
	} else {
		df = df.LeftJoin(buzz, "province")
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("join video buzz: %w", df.Err)
		}
	}

	df = df.LeftJoin(m.provinceInfo(), "province")
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("join province info: %w", df.Err)
	}

	for _, econ := range []struct{ file, col string }{
		{"grdp.csv", "grdp"},
		{"population.csv", "population"},
	} {
		table, err := m.loadEconomy(econ.file, econ.col)
		if err != nil {
			m.logger.Warn("economy table unavailable", "file", econ.file, "error", err)
			continue
		}
		df = df.LeftJoin(table, "province")
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("join %s: %w", econ.col, df.Err)
		}
	}

	df = df.LeftJoin(destinationStats(series), "destination")
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("join destination stats: %w", df.Err)
	}

	df = df.Arrange(dataframe.Sort("destination"), dataframe.Sort("date"))
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	records := dataset.Sanitize(df.Records())
	m.logCoverage(records, "count_accommodation", "temp_mean", "seasonal_amplitude",
		"yt_views", "grdp", "population", "dest_mean_traffic")

	outPath := filepath.Join(m.normalizedDir, OutputFile)
	if err := dataset.WriteCSV(outPath, df, semicolon); err != nil {
		return dataframe.DataFrame{}, err
	}
	m.metrics.RowsMerged.Add(float64(df.Nrow()))
	m.logger.Info("modeling table written", "path", outPath, "rows", df.Nrow(), "columns", len(df.Names()))
	return df, nil
}

// destSeries accumulates one destination's monthly traffic for the derived
// seasonal and statistics tables.
type destSeries struct {
	months []int
	values []float64
}

// loadTraffic reads the long-format traffic file and splits the month label
// into ISO date, year, month, and quarter key columns. It also returns each
// destination's raw series for the derived per-destination tables.
func (m *Merger) loadTraffic() (dataframe.DataFrame, map[string]*destSeries, error) {
	rows, err := csvio.ReadFile(filepath.Join(m.dataDir, "dest_traffic.csv"), semicolon)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	if len(rows) < 2 {
		return dataframe.DataFrame{}, nil, fmt.Errorf("traffic file is empty")
	}

	header := rows[0]
	destCol := csvio.Column(header, "destination")
	dateCol := csvio.Column(header, "date")
	trafficCol := csvio.Column(header, "traffic")
	if destCol < 0 || dateCol < 0 || trafficCol < 0 {
		return dataframe.DataFrame{}, nil, fmt.Errorf("traffic file misses destination/date/traffic columns")
	}

	out := [][]string{{"destination", "date", "year", "month", "quarter", "traffic"}}
	series := map[string]*destSeries{}
	skipped := 0
	for _, row := range rows[1:] {
		date, err := ParseMonthLabel(row[dateCol])
		if err != nil {
			skipped++
			continue
		}
		month := int(date.Month())
		out = append(out, []string{
			row[destCol],
			date.Format("2006-01-02"),
			strconv.Itoa(date.Year()),
			strconv.Itoa(month),
			strconv.Itoa((month-1)/3 + 1),
			row[trafficCol],
		})
		if traffic, err := strconv.ParseFloat(row[trafficCol], 64); err == nil {
			s := series[row[destCol]]
			if s == nil {
				s = &destSeries{}
				series[row[destCol]] = s
			}
			s.months = append(s.months, month)
			s.values = append(s.values, traffic)
		}
	}
	if skipped > 0 {
		m.logger.Warn("traffic rows with bad month labels skipped", "skipped", skipped)
	}
	df, err := loadStringRecords(out)
	return df, series, err
}

// Strong-seasonality thresholds: a calendar month is strong when its median
// sits at least 30% above the destination's overall median, and a destination
// counts as strongly seasonal when its peak/trough ratio reaches 1.5.
const (
	strongMonthFactor = 1.3
	strongAmplitude   = 1.5
)

// seasonalPatterns derives each destination's seasonal profile from its
// traffic series: peak/trough amplitude of monthly medians, coefficient of
// variation, the primary peak month, the list of strong months, and the
// strong-month count. Seasonal columns stay blank for destinations without
// strong seasonality.
func seasonalPatterns(series map[string]*destSeries) dataframe.DataFrame {
	out := [][]string{{"destination",
		"seasonal_amplitude", "seasonal_cv", "peak_month", "peak_months",
		"num_strong_months", "has_strong_seasonality"}}
	for _, dest := range sortedKeys(series) {
		s := series[dest]
		monthly := monthlyMedians(s)
		if len(monthly) < 2 {
			out = append(out, []string{dest, "", "", "", "", "", "0"})
			continue
		}

		meds := make([]float64, 0, len(monthly))
		peakMonth, peak, trough := 0, math.Inf(-1), math.Inf(1)
		for month, med := range monthly {
			meds = append(meds, med)
			if med > peak {
				peak, peakMonth = med, month
			}
			if med < trough {
				trough = med
			}
		}
		overall := median(meds)

		var strongMonths []int
		for month := 1; month <= 12; month++ {
			if med, ok := monthly[month]; ok && overall > 0 && med >= strongMonthFactor*overall {
				strongMonths = append(strongMonths, month)
			}
		}

		if trough <= 0 || overall <= 0 || peak/trough < strongAmplitude {
			out = append(out, []string{dest, "", "", "", "", "", "0"})
			continue
		}
		peaks := strongMonths
		if len(peaks) == 0 {
			peaks = []int{peakMonth}
		}
		out = append(out, []string{
			dest,
			strconv.FormatFloat(peak/trough, 'f', 2, 64),
			strconv.FormatFloat(stat.StdDev(meds, nil)/overall, 'f', 3, 64),
			strconv.Itoa(peakMonth),
			joinMonths(peaks),
			strconv.Itoa(len(strongMonths)),
			"1",
		})
	}
	df, _ := loadStringRecords(out)
	return df
}

// joinMonths renders month numbers as a comma list, e.g. "6,7,8".
func joinMonths(months []int) string {
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = strconv.Itoa(m)
	}
	return strings.Join(parts, ",")
}

// destinationStats tabulates each destination's traffic distribution plus the
// share of months with any measured interest.
func destinationStats(series map[string]*destSeries) dataframe.DataFrame {
	out := [][]string{{"destination",
		"dest_mean_traffic", "dest_median_traffic", "dest_max_traffic",
		"dest_std_traffic", "dest_coverage_pct"}}
	for _, dest := range sortedKeys(series) {
		s := series[dest]
		if len(s.values) == 0 {
			continue
		}
		covered := 0
		maxV := s.values[0]
		for _, v := range s.values {
			if v > 0 {
				covered++
			}
			if v > maxV {
				maxV = v
			}
		}
		std := 0.0
		if len(s.values) > 1 {
			std = stat.StdDev(s.values, nil)
		}
		out = append(out, []string{
			dest,
			strconv.FormatFloat(stat.Mean(s.values, nil), 'f', 2, 64),
			strconv.FormatFloat(median(s.values), 'f', 2, 64),
			strconv.FormatFloat(maxV, 'f', 2, 64),
			strconv.FormatFloat(std, 'f', 2, 64),
			strconv.FormatFloat(100*float64(covered)/float64(len(s.values)), 'f', 1, 64),
		})
	}
	df, _ := loadStringRecords(out)
	return df
}

// monthlyMedians groups a series by calendar month and takes each month's
// median.
func monthlyMedians(s *destSeries) map[int]float64 {
	byMonth := map[int][]float64{}
	for i, month := range s.months {
		byMonth[month] = append(byMonth[month], s.values[i])
	}
	out := make(map[int]float64, len(byMonth))
	for month, vals := range byMonth {
		out[month] = median(vals)
	}
	return out
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func sortedKeys(m map[string]*destSeries) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// logCoverage reports how many rows carry a value in each joined column, the
// quickest signal that an input file was stale or its provinces unresolved.
func (m *Merger) logCoverage(records [][]string, cols ...string) {
	if len(records) < 2 {
		return
	}
	header := records[0]
	for _, name := range cols {
		c := csvio.Column(header, name)
		if c < 0 {
			continue
		}
		filled := 0
		for _, row := range records[1:] {
			if c < len(row) && row[c] != "" {
				filled++
			}
		}
		pct := 100 * float64(filled) / float64(len(records)-1)
		m.logger.Info("column coverage", "column", name, "pct", fmt.Sprintf("%.1f", pct))
	}
}

// loadDestinationProvinces maps each destination to its canonical province
// using the normalized tourism directory. First occurrence wins.
func (m *Merger) loadDestinationProvinces() (dataframe.DataFrame, error) {
	rows, err := csvio.ReadFile(filepath.Join(m.normalizedDir, "vietnam_tourism.csv"), semicolon)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(rows) < 2 {
		return dataframe.DataFrame{}, fmt.Errorf("normalized tourism file is empty")
	}

	header := rows[0]
	nameCol := csvio.Column(header, "name")
	provCol := csvio.Column(header, "province_normalized")
	if nameCol < 0 || provCol < 0 {
		return dataframe.DataFrame{}, fmt.Errorf("normalized tourism file misses name/province_normalized")
	}

	seen := map[string]bool{}
	out := [][]string{{"destination", "province"}}
	for _, row := range rows[1:] {
		name := row[nameCol]
		if name == "" || seen[name] || row[provCol] == "" {
			continue
		}
		seen[name] = true
		out = append(out, []string{name, row[provCol]})
	}
	return loadStringRecords(out)
}

func (m *Merger) loadFacilityCounts(file, col string) (dataframe.DataFrame, error) {
	df, err := dataset.ReadCSV(filepath.Join(m.normalizedDir, file), semicolon)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	counts, err := dataset.CountBy(df, "province_normalized")
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	out := [][]string{{"province", col}}
	for _, c := range counts {
		if c[0] == "" {
			continue
		}
		out = append(out, []string{c[0], c[1]})
	}
	return loadStringRecords(out)
}

func (m *Merger) loadWeather() (dataframe.DataFrame, error) {
	rows, err := csvio.ReadFile(filepath.Join(m.normalizedDir, "weather_monthly.csv"), semicolon)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(rows) < 2 {
		return dataframe.DataFrame{}, fmt.Errorf("weather file is empty")
	}

	header := rows[0]
	keep := []string{
		"year", "month",
		"temp_mean", "temp_min", "temp_max", "temp_amplitude", "temp_std",
		"rainfall_total", "rainfall_max_daily", "rainfall_mean_daily", "rainfall_days",
	}
	provCol := csvio.Column(header, "province_normalized")
	if provCol < 0 {
		// Weather collected by this pipeline is already canonical.
		provCol = csvio.Column(header, "province")
	}
	if provCol < 0 {
		return dataframe.DataFrame{}, fmt.Errorf("weather file misses province column")
	}
	cols := make([]int, len(keep))
	for i, name := range keep {
		cols[i] = csvio.Column(header, name)
		if cols[i] < 0 {
			return dataframe.DataFrame{}, fmt.Errorf("weather file misses column %q", name)
		}
	}

	out := [][]string{append([]string{"province"}, keep...)}
	for _, row := range rows[1:] {
		if row[provCol] == "" {
			continue
		}
		rec := make([]string, 0, len(keep)+1)
		rec = append(rec, row[provCol])
		for _, c := range cols {
			rec = append(rec, row[c])
		}
		out = append(out, rec)
	}
	return loadStringRecords(out)
}

func (m *Merger) loadVideoBuzz() (dataframe.DataFrame, error) {
	rows, err := csvio.ReadFile(filepath.Join(m.normalizedDir, "youtube_provinces.csv"), semicolon)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(rows) < 2 {
		return dataframe.DataFrame{}, fmt.Errorf("youtube file is empty")
	}

	header := rows[0]
	provCol := csvio.Column(header, "province_normalized")
	if provCol < 0 {
		provCol = csvio.Column(header, "province")
	}
	videosCol := csvio.Column(header, "videos")
	viewsCol := csvio.Column(header, "views")
	likesCol := csvio.Column(header, "likes")
	commentsCol := csvio.Column(header, "comments")
	if provCol < 0 || videosCol < 0 || viewsCol < 0 {
		return dataframe.DataFrame{}, fmt.Errorf("youtube file misses province/videos/views columns")
	}

	out := [][]string{{"province", "yt_videos", "yt_views", "yt_likes", "yt_comments"}}
	for _, row := range rows[1:] {
		if row[provCol] == "" {
			continue
		}
		likes, comments := "0", "0"
		if likesCol >= 0 {
			likes = row[likesCol]
		}
		if commentsCol >= 0 {
			comments = row[commentsCol]
		}
		out = append(out, []string{row[provCol], row[videosCol], row[viewsCol], likes, comments})
	}
	return loadStringRecords(out)
}

// provinceInfo tabulates region and gateway distances for every canonical
// province. Geocoded coordinates from the geocode stage override the
// built-in table when present.
func (m *Merger) provinceInfo() dataframe.DataFrame {
	resolved, err := geo.ReadCoords(filepath.Join(m.dataDir, geo.CoordsFile))
	if err != nil {
		resolved = nil
	} else {
		m.logger.Info("using geocoded province coordinates", "provinces", len(resolved))
	}

	out := [][]string{{"province", "region", "lat", "lon", "dist_to_hanoi", "dist_to_hcmc", "dist_to_gateway"}}
	for _, info := range province.Canonical() {
		p := geo.Point{Lat: info.Lat, Lon: info.Lon}
		if r, ok := resolved[info.Name]; ok {
			p = r
		}
		d := geo.Gateways(p)
		out = append(out, []string{
			info.Name,
			info.Region,
			strconv.FormatFloat(p.Lat, 'f', 4, 64),
			strconv.FormatFloat(p.Lon, 'f', 4, 64),
			strconv.FormatFloat(d.ToHanoi, 'f', 1, 64),
			strconv.FormatFloat(d.ToHoChiMinh, 'f', 1, 64),
			strconv.FormatFloat(d.ToNearest, 'f', 1, 64),
		})
	}
	df, _ := loadStringRecords(out)
	return df
}

// loadEconomy reads a two-column province table exported from the statistics
// office workbooks.
func (m *Merger) loadEconomy(file, col string) (dataframe.DataFrame, error) {
	path := filepath.Join(m.dataDir, file)
	if _, err := os.Stat(path); err != nil {
		return dataframe.DataFrame{}, err
	}
	rows, err := csvio.ReadFile(path, semicolon)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(rows) < 2 {
		return dataframe.DataFrame{}, fmt.Errorf("%s is empty", file)
	}

	header := rows[0]
	provCol := csvio.Column(header, "province")
	valCol := csvio.Column(header, "value")
	if valCol < 0 {
		valCol = csvio.Column(header, col)
	}
	if provCol < 0 || valCol < 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%s misses province/value columns", file)
	}

	out := [][]string{{"province", col}}
	for _, row := range rows[1:] {
		canonical := province.Normalize(row[provCol])
		if canonical == "" {
			continue
		}
		out = append(out, []string{canonical, row[valCol]})
	}
	return loadStringRecords(out)
}

func loadStringRecords(records [][]string) (dataframe.DataFrame, error) {
	df := dataframe.LoadRecords(records, dataframe.DefaultType(series.String), dataframe.DetectTypes(false))
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	return df, nil
}
