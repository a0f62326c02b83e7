package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/domain"
	"github.com/vietdata/tourism-pipeline/internal/province"
)

// API is the slice of the Data API the collector needs.
type API interface {
	Search(ctx context.Context, query string, publishedAfter time.Time) ([]SearchResult, error)
	Stats(ctx context.Context, videoIDs []string) (map[string]Statistics, error)
}

// Collector gathers recent video engagement per province.
type Collector struct {
	api        API
	windowDays int
	logger     *slog.Logger
}

// NewCollector builds a per-province buzz collector. windowDays bounds how
// far back the search looks.
func NewCollector(client API, windowDays int, logger *slog.Logger) *Collector {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Collector{api: client, windowDays: windowDays, logger: logger}
}

// CollectProvince fetches stats for one province's recent tourism videos.
func (c *Collector) CollectProvince(ctx context.Context, prov string, now time.Time) ([]domain.VideoStat, error) {
	query := "du lịch " + prov
	after := now.AddDate(0, 0, -c.windowDays)

	results, err := c.api.Search(ctx, query, after)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.VideoID)
	}
	// The videos endpoint takes at most 50 ids per call.
	stats := make(map[string]Statistics, len(ids))
	for start := 0; start < len(ids); start += 50 {
		end := start + 50
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := c.api.Stats(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("stats for %q: %w", query, err)
		}
		for id, s := range batch {
			stats[id] = s
		}
	}

	videos := make([]domain.VideoStat, 0, len(results))
	for _, r := range results {
		s := stats[r.VideoID]
		videos = append(videos, domain.VideoStat{
			VideoID:     r.VideoID,
			Province:    prov,
			Title:       r.Title,
			PublishedAt: r.PublishedAt,
			Views:       s.Views,
			Likes:       s.Likes,
			Comments:    s.Comments,
		})
	}
	return videos, nil
}

// CollectAll walks every canonical province. A province that fails is skipped
// and counted so a quota blip cannot lose the rest of the run.
func (c *Collector) CollectAll(ctx context.Context, now time.Time) ([]domain.VideoStat, error) {
	var all []domain.VideoStat
	skipped := 0
	for _, info := range province.Canonical() {
		if ctx.Err() != nil {
			return all, ctx.Err()
		}
		videos, err := c.CollectProvince(ctx, info.Name, now)
		if err != nil {
			skipped++
			c.logger.Warn("province skipped", "province", info.Name, "error", err)
			continue
		}
		all = append(all, videos...)
		c.logger.Info("province collected", "province", info.Name, "videos", len(videos))
	}
	if skipped > 0 {
		c.logger.Warn("collection finished with skips", "skipped", skipped)
	}
	return all, nil
}

// Aggregate sums video counters per province, sorted by views descending.
func Aggregate(videos []domain.VideoStat) []domain.ProvinceVideoAggregate {
	byProvince := map[string]*domain.ProvinceVideoAggregate{}
	for _, v := range videos {
		agg, ok := byProvince[v.Province]
		if !ok {
			agg = &domain.ProvinceVideoAggregate{Province: v.Province}
			byProvince[v.Province] = agg
		}
		agg.Videos++
		agg.Views += v.Views
		agg.Likes += v.Likes
		agg.Comments += v.Comments
	}

	out := make([]domain.ProvinceVideoAggregate, 0, len(byProvince))
	for _, agg := range byProvince {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Views != out[j].Views {
			return out[i].Views > out[j].Views
		}
		return out[i].Province < out[j].Province
	})
	return out
}

// WriteVideos saves the per-video dataset.
func WriteVideos(path string, videos []domain.VideoStat) error {
	rows := make([][]string, 0, len(videos)+1)
	rows = append(rows, []string{"video_id", "province", "title", "published_at", "views", "likes", "comments"})
	for _, v := range videos {
		rows = append(rows, []string{
			v.VideoID,
			v.Province,
			v.Title,
			v.PublishedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(v.Views, 10),
			strconv.FormatInt(v.Likes, 10),
			strconv.FormatInt(v.Comments, 10),
		})
	}
	return csvio.WriteFile(path, rows, csvio.Options{Delimiter: ';'})
}

// WriteAggregates saves the per-province summary.
func WriteAggregates(path string, aggs []domain.ProvinceVideoAggregate) error {
	rows := make([][]string, 0, len(aggs)+1)
	rows = append(rows, []string{"province", "videos", "views", "likes", "comments"})
	for _, a := range aggs {
		rows = append(rows, []string{
			a.Province,
			strconv.Itoa(a.Videos),
			strconv.FormatInt(a.Views, 10),
			strconv.FormatInt(a.Likes, 10),
			strconv.FormatInt(a.Comments, 10),
		})
	}
	return csvio.WriteFile(path, rows, csvio.Options{Delimiter: ';'})
}
