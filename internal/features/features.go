// Package features derives the modeling features from the merged table:
// traffic lags and rolling statistics per destination, calendar encodings,
// and weather comfort scores.
package features

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
)

// OutputFile is the feature table written next to the merged table.
const OutputFile = "tourism_features.csv"

// Lags are the traffic lag horizons in months.
var Lags = []int{1, 2, 3, 6, 12}

// RollingWindows are the rolling mean/std window sizes in months.
var RollingWindows = []int{3, 6, 12}

// fallbackPeakMonths flag the Tet holidays and the school summer break, used
// for destinations whose seasonal profile carries no peak-month list.
var fallbackPeakMonths = map[int]bool{1: true, 2: true, 6: true, 7: true, 8: true}

// Engineer computes the feature table from a merged table file.
type Engineer struct {
	logger *slog.Logger
}

// New builds a feature engineer.
func New(logger *slog.Logger) *Engineer {
	return &Engineer{logger: logger}
}

var semicolon = csvio.Options{Delimiter: ';'}

// Run reads the merged table, appends the feature columns, and writes the
// feature table. Rows stay in destination/date order.
func (e *Engineer) Run(inPath, outPath string) error {
	rows, err := csvio.ReadFile(inPath, semicolon)
	if err != nil {
		return err
	}
	if len(rows) < 2 {
		return fmt.Errorf("merged table %s is empty", inPath)
	}

	header := rows[0]
	destCol := csvio.Column(header, "destination")
	dateCol := csvio.Column(header, "date")
	trafficCol := csvio.Column(header, "traffic")
	monthCol := csvio.Column(header, "month")
	tempCol := csvio.Column(header, "temp_mean")
	rainTotalCol := csvio.Column(header, "rainfall_total")
	rainDaysCol := csvio.Column(header, "rainfall_days")
	peaksCol := csvio.Column(header, "peak_months")
	if destCol < 0 || dateCol < 0 || trafficCol < 0 || monthCol < 0 {
		return fmt.Errorf("merged table misses destination/date/traffic/month columns")
	}

	body := rows[1:]
	sort.SliceStable(body, func(i, j int) bool {
		if body[i][destCol] != body[j][destCol] {
			return body[i][destCol] < body[j][destCol]
		}
		return body[i][dateCol] < body[j][dateCol]
	})

	// Group row indexes per destination, already date-sorted.
	groups := map[string][]int{}
	var order []string
	for i, row := range body {
		dest := row[destCol]
		if _, ok := groups[dest]; !ok {
			order = append(order, dest)
		}
		groups[dest] = append(groups[dest], i)
	}

	outHeader := append([]string{}, header...)
	for _, lag := range Lags {
		outHeader = append(outHeader, fmt.Sprintf("traffic_lag_%dm", lag))
	}
	for _, w := range RollingWindows {
		outHeader = append(outHeader, fmt.Sprintf("traffic_roll_mean_%dm", w))
		outHeader = append(outHeader, fmt.Sprintf("traffic_roll_std_%dm", w))
	}
	outHeader = append(outHeader,
		"traffic_yoy_pct", "month_sin", "month_cos", "is_peak_month",
		"weather_comfort", "rainfall_intensity")

	out := make([][]string, 0, len(body)+1)
	out = append(out, outHeader)

	for _, dest := range order {
		idxs := groups[dest]
		traffic := make([]float64, len(idxs))
		valid := make([]bool, len(idxs))
		for pos, i := range idxs {
			traffic[pos], valid[pos] = parseFloat(body[i][trafficCol])
		}

		for pos, i := range idxs {
			row := append([]string{}, body[i]...)

			for _, lag := range Lags {
				row = append(row, lagValue(traffic, valid, pos, lag))
			}
			for _, w := range RollingWindows {
				mean, std := rolling(traffic, valid, pos, w)
				row = append(row, mean, std)
			}
			row = append(row, yoy(traffic, valid, pos))

			month, _ := strconv.Atoi(body[i][monthCol])
			angle := 2 * math.Pi * float64(month) / 12
			peaks := ""
			if peaksCol >= 0 && peaksCol < len(body[i]) {
				peaks = body[i][peaksCol]
			}
			row = append(row,
				formatFloat(math.Sin(angle)),
				formatFloat(math.Cos(angle)),
				boolFlag(isPeakMonth(month, peaks)))

			row = append(row, comfort(body[i], tempCol))
			row = append(row, rainfallIntensity(body[i], rainTotalCol, rainDaysCol))

			out = append(out, row)
		}
	}

	if err := csvio.WriteFile(outPath, out, semicolon); err != nil {
		return err
	}
	e.logger.Info("feature table written", "path", outPath,
		"rows", len(out)-1, "columns", len(outHeader), "destinations", len(order))
	return nil
}

// lagValue is the traffic lag months back within one destination's series.
// Positional, matching the monthly cadence of the collected data.
func lagValue(traffic []float64, valid []bool, pos, lag int) string {
	j := pos - lag
	if j < 0 || !valid[j] {
		return ""
	}
	return formatFloat(traffic[j])
}

// rolling computes mean and std over the window ending at the previous
// month, so the current value never leaks into its own features. A partial
// window still yields a mean as long as one prior value exists; the sample
// std needs at least two.
func rolling(traffic []float64, valid []bool, pos, window int) (string, string) {
	lo := pos - window
	if lo < 0 {
		lo = 0
	}
	vals := make([]float64, 0, window)
	for j := lo; j < pos; j++ {
		if valid[j] {
			vals = append(vals, traffic[j])
		}
	}
	if len(vals) == 0 {
		return "", ""
	}
	mean := formatFloat(stat.Mean(vals, nil))
	if len(vals) < 2 {
		return mean, ""
	}
	return mean, formatFloat(stat.StdDev(vals, nil))
}

// isPeakMonth checks month against the destination's comma-joined peak list
// from the seasonal profile, falling back to the holiday calendar when the
// destination has none.
func isPeakMonth(month int, peaks string) bool {
	if peaks == "" {
		return fallbackPeakMonths[month]
	}
	for _, part := range strings.Split(peaks, ",") {
		if p, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && p == month {
			return true
		}
	}
	return false
}

// yoy is the percent change against the same month last year.
func yoy(traffic []float64, valid []bool, pos int) string {
	j := pos - 12
	if j < 0 || !valid[j] || !valid[pos] || traffic[j] == 0 {
		return ""
	}
	return formatFloat((traffic[pos] - traffic[j]) / traffic[j] * 100)
}

// comfort scores how close the month sits to the 25°C sweet spot.
func comfort(row []string, tempCol int) string {
	if tempCol < 0 || tempCol >= len(row) {
		return ""
	}
	temp, ok := parseFloat(row[tempCol])
	if !ok {
		return ""
	}
	return formatFloat(100 - math.Abs(temp-25))
}

// rainfallIntensity is the average rainfall on the days it actually rained.
func rainfallIntensity(row []string, totalCol, daysCol int) string {
	if totalCol < 0 || daysCol < 0 || totalCol >= len(row) || daysCol >= len(row) {
		return ""
	}
	total, okT := parseFloat(row[totalCol])
	days, okD := parseFloat(row[daysCol])
	if !okT || !okD {
		return ""
	}
	if days <= 0 {
		return "0"
	}
	return formatFloat(total / days)
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
