package trends

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/domain"
)

// GroupFetcher fetches one keyword group's monthly scores.
type GroupFetcher interface {
	FetchGroup(ctx context.Context, keywords []string) (*GroupSeries, error)
}

// Collector walks destination keywords in anchored groups, checkpoints each
// group to its own CSV, and rescales all groups onto the first group's
// anchor scale. Re-runs resume from the per-group checkpoints.
type Collector struct {
	fetcher   GroupFetcher
	rawDir    string
	anchor    string
	groupSize int
	logger    *slog.Logger
}

// NewCollector builds a grouped search-interest collector. groupSize counts
// destination keywords per request; the anchor is added on top.
func NewCollector(fetcher GroupFetcher, rawDir, anchor string, groupSize int, logger *slog.Logger) *Collector {
	if groupSize < 1 {
		groupSize = 4
	}
	if groupSize > 4 {
		groupSize = 4
	}
	return &Collector{
		fetcher:   fetcher,
		rawDir:    rawDir,
		anchor:    anchor,
		groupSize: groupSize,
		logger:    logger,
	}
}

// Collect fetches scores for all destinations and returns long-format traffic
// points, anchor excluded.
func (c *Collector) Collect(ctx context.Context, destinations []string) ([]domain.TrafficPoint, error) {
	groups := c.split(destinations)
	series := make([]*GroupSeries, 0, len(groups))

	for i, group := range groups {
		s, err := c.fetchOrResume(ctx, i, group)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i+1, err)
		}
		series = append(series, s)
	}

	rescaled, err := c.rescale(series)
	if err != nil {
		return nil, err
	}

	var points []domain.TrafficPoint
	for _, s := range rescaled {
		for _, kw := range sortedKeywords(s.Scores) {
			if kw == c.anchor {
				continue
			}
			scores := s.Scores[kw]
			for i, date := range s.Dates {
				points = append(points, domain.TrafficPoint{
					Destination: kw,
					Date:        date,
					Traffic:     scores[i],
				})
			}
		}
	}
	return points, nil
}

// split chunks destinations into groups of at most groupSize, each with the
// anchor keyword appended.
func (c *Collector) split(destinations []string) [][]string {
	var groups [][]string
	for start := 0; start < len(destinations); start += c.groupSize {
		end := start + c.groupSize
		if end > len(destinations) {
			end = len(destinations)
		}
		group := make([]string, 0, end-start+1)
		group = append(group, destinations[start:end]...)
		group = append(group, c.anchor)
		groups = append(groups, group)
	}
	return groups
}

func (c *Collector) fetchOrResume(ctx context.Context, index int, keywords []string) (*GroupSeries, error) {
	path := c.groupFile(index)
	if _, err := os.Stat(path); err == nil {
		c.logger.Info("group resumed from checkpoint", "group", index+1, "file", path)
		return readGroupFile(path, keywords)
	}

	series, err := c.fetcher.FetchGroup(ctx, keywords)
	if err != nil {
		return nil, err
	}
	if err := writeGroupFile(path, keywords, series); err != nil {
		return nil, err
	}
	c.logger.Info("group fetched", "group", index+1, "keywords", len(keywords)-1, "months", len(series.Dates))
	return series, nil
}

func (c *Collector) groupFile(index int) string {
	return filepath.Join(c.rawDir, fmt.Sprintf("group_%03d.csv", index+1))
}

// rescale maps every group onto the first group's scale using the anchor's
// mean score as the common yardstick.
func (c *Collector) rescale(series []*GroupSeries) ([]*GroupSeries, error) {
	if len(series) == 0 {
		return series, nil
	}
	refMean := mean(series[0].Scores[c.anchor])
	if refMean == 0 {
		return nil, fmt.Errorf("anchor %q scored zero in reference group", c.anchor)
	}

	for i, s := range series[1:] {
		m := mean(s.Scores[c.anchor])
		if m == 0 {
			c.logger.Warn("anchor scored zero, group left unscaled", "group", i+2)
			continue
		}
		factor := refMean / m
		for kw, scores := range s.Scores {
			for j := range scores {
				scores[j] *= factor
			}
			s.Scores[kw] = scores
		}
	}
	return series, nil
}

func sortedKeywords(scores map[string][]float64) []string {
	kws := make([]string, 0, len(scores))
	for kw := range scores {
		kws = append(kws, kw)
	}
	sort.Strings(kws)
	return kws
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Group checkpoints are wide CSVs: date column, then one column per keyword.

func writeGroupFile(path string, keywords []string, series *GroupSeries) error {
	rows := make([][]string, 0, len(series.Dates)+1)
	header := append([]string{"date"}, keywords...)
	rows = append(rows, header)
	for i, date := range series.Dates {
		row := make([]string, 0, len(keywords)+1)
		row = append(row, date.Format("2006-01"))
		for _, kw := range keywords {
			row = append(row, strconv.FormatFloat(series.Scores[kw][i], 'f', -1, 64))
		}
		rows = append(rows, row)
	}
	return csvio.WriteFile(path, rows, csvio.Options{Delimiter: ';'})
}

func readGroupFile(path string, keywords []string) (*GroupSeries, error) {
	rows, err := csvio.ReadFile(path, csvio.Options{Delimiter: ';'})
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("group checkpoint %s is empty", path)
	}

	header := rows[0]
	series := &GroupSeries{Scores: make(map[string][]float64, len(keywords))}
	for _, row := range rows[1:] {
		date, err := time.Parse("2006-01", row[0])
		if err != nil {
			return nil, fmt.Errorf("parse checkpoint date %q: %w", row[0], err)
		}
		series.Dates = append(series.Dates, date)
		for _, kw := range keywords {
			col := csvio.Column(header, kw)
			if col < 0 || col >= len(row) {
				return nil, fmt.Errorf("group checkpoint %s misses keyword %q", path, kw)
			}
			score, err := strconv.ParseFloat(row[col], 64)
			if err != nil {
				return nil, fmt.Errorf("parse checkpoint score %q: %w", row[col], err)
			}
			series.Scores[kw] = append(series.Scores[kw], score)
		}
	}
	return series, nil
}

// WriteTraffic saves the combined long-format series as the destination
// traffic dataset consumed by the merge stage.
func WriteTraffic(path string, points []domain.TrafficPoint) error {
	rows := make([][]string, 0, len(points)+1)
	rows = append(rows, []string{"destination", "date", "traffic"})
	for _, p := range points {
		rows = append(rows, []string{
			p.Destination,
			p.Date.Format("2006-01-02"),
			strconv.FormatFloat(p.Traffic, 'f', -1, 64),
		})
	}
	return csvio.WriteFile(path, rows, csvio.Options{Delimiter: ';'})
}
