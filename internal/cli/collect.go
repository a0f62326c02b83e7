package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/domain"
	"github.com/vietdata/tourism-pipeline/internal/geo"
	"github.com/vietdata/tourism-pipeline/internal/scrape"
	"github.com/vietdata/tourism-pipeline/internal/trends"
	"github.com/vietdata/tourism-pipeline/internal/weather"
	"github.com/vietdata/tourism-pipeline/internal/xlsximport"
	"github.com/vietdata/tourism-pipeline/internal/youtube"
)

func (a *app) scrapeCmd() *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Walk the tourism database directories into checkpoint CSVs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.timed("scrape", func() error {
				sources := scrape.Sources
				if only != "" {
					s, err := scrape.SourceByName(only)
					if err != nil {
						return err
					}
					sources = []scrape.Source{s}
				}
				return a.runScrape(cmd.Context(), sources)
			})
		},
	}
	cmd.Flags().StringVar(&only, "source", "", "scrape a single directory section (e.g. tourism)")
	return cmd
}

// runScrape walks the sections concurrently; each has its own rate limiter
// so the combined load stays polite.
func (a *app) runScrape(ctx context.Context, sources []scrape.Source) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, source := range sources {
		source := source
		g.Go(func() error {
			client := scrape.NewClient(a.cfg.Scrape.BaseURL, source, a.cfg.Scrape.UserAgent,
				a.cfg.Scrape.Delay, a.cfg.Scrape.Timeout)
			runner := scrape.NewRunner(client, &scrape.ListingParser{Source: source.Name},
				scrape.NewCSVSink(a.cfg.DataDir, source), a.logger, a.metrics,
				scrape.RunnerOptions{
					Source:         source.Name,
					StartPage:      a.cfg.Scrape.StartPage,
					MaxPages:       a.cfg.Scrape.MaxPages,
					CheckpointEach: a.cfg.Scrape.CheckpointEach,
				})
			_, err := runner.Run(ctx)
			return err
		})
	}
	return g.Wait()
}

func (a *app) trendsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Collect monthly search interest for the scraped destinations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.timed("trends", func() error {
				destinations, err := a.loadDestinations(limit)
				if err != nil {
					return err
				}
				client := trends.NewClient(a.cfg.Trends.BaseURL, a.cfg.Trends.Timeframe,
					a.cfg.Trends.RetryDelay, a.cfg.Trends.MaxRetries, a.logger)
				collector := trends.NewCollector(client, a.cfg.Trends.RawDir,
					a.cfg.Trends.AnchorKeyword, a.cfg.Trends.GroupSize, a.logger)

				points, err := collector.Collect(cmd.Context(), destinations)
				if err != nil {
					return err
				}
				return trends.WriteTraffic(filepath.Join(a.cfg.DataDir, "dest_traffic.csv"), points)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of destinations to track")
	return cmd
}

// loadDestinations takes the first distinct destination names from the
// scraped tourism directory.
func (a *app) loadDestinations(limit int) ([]string, error) {
	path := filepath.Join(a.cfg.DataDir, "vietnam_tourism.csv")
	rows, err := csvio.ReadFile(path, csvio.Options{Delimiter: ';'})
	if err != nil {
		return nil, fmt.Errorf("load destinations (run scrape first): %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no destinations in %s", path)
	}
	nameCol := csvio.Column(rows[0], "name")
	if nameCol < 0 {
		return nil, fmt.Errorf("%s misses name column", path)
	}

	seen := map[string]bool{}
	var out []string
	for _, row := range rows[1:] {
		name := row[nameCol]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no destinations in %s", path)
	}
	return out, nil
}

func (a *app) youtubeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "youtube",
		Short: "Collect recent tourism video engagement per province",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.timed("youtube", func() error {
				if a.cfg.YouTube.APIKey == "" {
					return fmt.Errorf("youtube.api_key is not set (VNTOURISM_YOUTUBE_API_KEY)")
				}
				client := youtube.NewClient(a.cfg.YouTube.APIKey, a.cfg.YouTube.BaseURL, a.cfg.YouTube.MaxResults)
				collector := youtube.NewCollector(client, a.cfg.YouTube.WindowDays, a.logger)

				videos, err := collector.CollectAll(cmd.Context(), domain.Clock().Now())
				if err != nil {
					return err
				}
				if err := youtube.WriteVideos(filepath.Join(a.cfg.DataDir, "youtube_videos.csv"), videos); err != nil {
					return err
				}
				return youtube.WriteAggregates(filepath.Join(a.cfg.DataDir, "youtube_provinces.csv"),
					youtube.Aggregate(videos))
			})
		},
	}
}

func (a *app) weatherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weather",
		Short: "Download weather history for every province",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.timed("weather", func() error {
				client := weather.NewClient(a.cfg.Weather.BaseURL, a.cfg.Weather.Timezone,
					a.cfg.Weather.MaxRetries, durationOrDefault(a.cfg.Weather.Timeout, 30*time.Second), a.logger)
				collector := weather.NewCollector(client, a.cfg.Weather.StartYear, a.cfg.Weather.EndYear,
					a.cfg.Weather.MinDelay, a.cfg.Weather.MaxDelay, a.logger)
				if coords, err := geo.ReadCoords(filepath.Join(a.cfg.DataDir, geo.CoordsFile)); err == nil {
					a.logger.Info("using geocoded province coordinates", "provinces", len(coords))
					collector.UseCoordinates(coords)
				}

				months, err := collector.Collect(cmd.Context())
				if err != nil {
					return err
				}
				return weather.WriteMonthly(filepath.Join(a.cfg.DataDir, "weather_monthly.csv"), months)
			})
		},
	}
}

func (a *app) geocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode",
		Short: "Resolve province coordinates through Nominatim",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.timed("geocode", func() error {
				client := geo.NewNominatimClient(a.cfg.Geo.BaseURL, a.cfg.Geo.UserAgent,
					a.cfg.Geo.Timeout, a.metrics, a.logger)
				geocoder := geo.NewCachedGeocoder(client, a.cfg.Geo.CacheSize, a.metrics)

				coords, err := geo.ResolveProvinces(cmd.Context(), geocoder, a.logger)
				if err != nil {
					return err
				}
				return geo.WriteCoords(filepath.Join(a.cfg.DataDir, geo.CoordsFile), coords)
			})
		},
	}
}

func (a *app) convertCmd() *cobra.Command {
	var in, out string
	var valueCol int
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a statistics workbook into a province/value CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.timed("convert", func() error {
				if out == "" {
					base := filepath.Base(in)
					out = filepath.Join(a.cfg.DataDir, base[:len(base)-len(filepath.Ext(base))]+".csv")
				}
				return xlsximport.New(a.logger).Convert(in, out, valueCol)
			})
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "workbook path (.xlsx)")
	cmd.Flags().StringVar(&out, "out", "", "output CSV path (default <data_dir>/<name>.csv)")
	cmd.Flags().IntVar(&valueCol, "value-col", 1, "zero-based column holding the figure")
	cmd.MarkFlagRequired("in")
	return cmd
}
