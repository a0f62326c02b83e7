package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
)

// Matrix is the feature table in numeric form, with the row labels needed
// for reporting.
type Matrix struct {
	FeatureNames []string
	X            [][]float64 // NaN marks missing
	Y            []float64   // traffic
	Destinations []string
	Provinces    []string
	Regions      []string
	Dates        []string // ISO first-of-month
}

// identity columns carried through to predictions rather than modeled.
// peak_months is a text list already encoded into is_peak_month.
var identityColumns = map[string]bool{
	"destination": true,
	"date":        true,
	"province":    true,
	"region":      true,
	"source":      true,
	"traffic":     true,
	"peak_months": true,
}

// LoadMatrix reads the feature table, keeping only rows with a known target
// and a full year of history (traffic_lag_12m present); younger rows cannot
// be scored fairly against the seasonal baseline.
func LoadMatrix(path string) (*Matrix, error) {
	rows, err := csvio.ReadFile(path, csvio.Options{Delimiter: ';'})
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("feature table %s is empty", path)
	}

	header := rows[0]
	destCol := csvio.Column(header, "destination")
	dateCol := csvio.Column(header, "date")
	provCol := csvio.Column(header, "province")
	regionCol := csvio.Column(header, "region")
	trafficCol := csvio.Column(header, "traffic")
	lag12Col := csvio.Column(header, "traffic_lag_12m")
	if destCol < 0 || dateCol < 0 || trafficCol < 0 || lag12Col < 0 {
		return nil, fmt.Errorf("feature table misses destination/date/traffic/traffic_lag_12m columns")
	}

	var featureCols []int
	m := &Matrix{}
	for i, name := range header {
		if identityColumns[name] {
			continue
		}
		featureCols = append(featureCols, i)
		m.FeatureNames = append(m.FeatureNames, name)
	}

	for _, row := range rows[1:] {
		traffic, okT := parseCell(row, trafficCol)
		_, okLag := parseCell(row, lag12Col)
		if !okT || !okLag {
			continue
		}

		x := make([]float64, len(featureCols))
		for j, c := range featureCols {
			if v, ok := parseCell(row, c); ok {
				x[j] = v
			} else {
				x[j] = math.NaN()
			}
		}
		m.X = append(m.X, x)
		m.Y = append(m.Y, traffic)
		m.Destinations = append(m.Destinations, cellAt(row, destCol))
		m.Provinces = append(m.Provinces, cellAt(row, provCol))
		m.Regions = append(m.Regions, cellAt(row, regionCol))
		m.Dates = append(m.Dates, cellAt(row, dateCol))
	}

	if len(m.X) == 0 {
		return nil, fmt.Errorf("feature table %s has no usable rows (need 12 months of history)", path)
	}
	return m, nil
}

// SplitByDate holds-out the last testMonths distinct dates as the test set,
// the time-aware split the forecaster is judged on.
func (m *Matrix) SplitByDate(testMonths int) (train, test *Matrix, err error) {
	distinct := map[string]bool{}
	for _, d := range m.Dates {
		distinct[d] = true
	}
	dates := make([]string, 0, len(distinct))
	for d := range distinct {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	if testMonths <= 0 || testMonths >= len(dates) {
		return nil, nil, fmt.Errorf("test window of %d months needs more than %d distinct months", testMonths, len(dates))
	}
	cutoff := dates[len(dates)-testMonths]

	train = &Matrix{FeatureNames: m.FeatureNames}
	test = &Matrix{FeatureNames: m.FeatureNames}
	for i := range m.X {
		dst := train
		if m.Dates[i] >= cutoff {
			dst = test
		}
		dst.X = append(dst.X, m.X[i])
		dst.Y = append(dst.Y, m.Y[i])
		dst.Destinations = append(dst.Destinations, m.Destinations[i])
		dst.Provinces = append(dst.Provinces, m.Provinces[i])
		dst.Regions = append(dst.Regions, m.Regions[i])
		dst.Dates = append(dst.Dates, m.Dates[i])
	}
	if len(train.X) == 0 || len(test.X) == 0 {
		return nil, nil, fmt.Errorf("date split produced an empty side")
	}
	return train, test, nil
}

// ImputeMeans replaces NaNs with per-column training means and returns the
// means for reuse at prediction time.
func (m *Matrix) ImputeMeans() []float64 {
	cols := len(m.FeatureNames)
	sums := make([]float64, cols)
	counts := make([]int, cols)
	for _, x := range m.X {
		for j, v := range x {
			if !math.IsNaN(v) {
				sums[j] += v
				counts[j]++
			}
		}
	}
	means := make([]float64, cols)
	for j := range means {
		if counts[j] > 0 {
			means[j] = sums[j] / float64(counts[j])
		}
	}
	for _, x := range m.X {
		for j, v := range x {
			if math.IsNaN(v) {
				x[j] = means[j]
			}
		}
	}
	return means
}

// ApplyImpute fills NaNs with previously computed means.
func (m *Matrix) ApplyImpute(means []float64) {
	for _, x := range m.X {
		for j, v := range x {
			if math.IsNaN(v) && j < len(means) {
				x[j] = means[j]
			}
		}
	}
}

func parseCell(row []string, col int) (float64, bool) {
	s := cellAt(row, col)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
