package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietdata/tourism-pipeline/internal/domain"
	"github.com/vietdata/tourism-pipeline/internal/observability"
)

// PageFetcher downloads one listing page by number.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (string, error)
}

// Parser converts a page into destination records.
type Parser interface {
	Parse(page string) []domain.DestinationRecord
}

// Sink persists the accumulated records. Write replaces the previous
// checkpoint so re-runs stay idempotent.
type Sink interface {
	Write(records []domain.DestinationRecord) error
}

// Runner orchestrates the fetch-parse-checkpoint walk over one directory.
type Runner struct {
	fetcher PageFetcher
	parser  Parser
	sink    Sink
	logger  *slog.Logger
	metrics *observability.Metrics

	source         string
	startPage      int
	maxPages       int
	checkpointEach int
}

// RunnerOptions bound the pagination walk.
type RunnerOptions struct {
	Source         string
	StartPage      int
	MaxPages       int
	CheckpointEach int
}

// NewRunner wires a directory walk.
func NewRunner(f PageFetcher, p Parser, s Sink, logger *slog.Logger, metrics *observability.Metrics, opts RunnerOptions) *Runner {
	if opts.StartPage < 1 {
		opts.StartPage = 1
	}
	if opts.CheckpointEach <= 0 {
		opts.CheckpointEach = 10
	}
	return &Runner{
		fetcher:        f,
		parser:         p,
		sink:           s,
		logger:         logger,
		metrics:        metrics,
		source:         opts.Source,
		startPage:      opts.StartPage,
		maxPages:       opts.MaxPages,
		checkpointEach: opts.CheckpointEach,
	}
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	fetchAttempts  = 3
	emptyPageStop  = 2
)

// Run walks pages until two consecutive empty pages, the max-page bound, or
// context cancellation. A page that still fails after retries is skipped and
// counted; the walk continues so one bad page cannot abort a long crawl.
func (r *Runner) Run(ctx context.Context) ([]domain.DestinationRecord, error) {
	r.logger.Info("scrape started", "source", r.source, "start_page", r.startPage, "max_pages", r.maxPages)

	var all []domain.DestinationRecord
	emptyCount := 0

	for page := r.startPage; r.maxPages <= 0 || page < r.startPage+r.maxPages; page++ {
		if ctx.Err() != nil {
			break
		}

		content, err := r.fetchWithRetry(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			r.logger.Warn("page skipped after retries", "source", r.source, "page", page, "error", err)
			r.metrics.FetchErrors.WithLabelValues(r.source).Inc()
			continue
		}
		r.metrics.PagesFetched.WithLabelValues(r.source).Inc()

		records := r.parser.Parse(content)
		if len(records) == 0 {
			emptyCount++
			r.logger.Info("empty page", "source", r.source, "page", page)
			if emptyCount >= emptyPageStop {
				break
			}
			continue
		}
		emptyCount = 0
		all = append(all, records...)
		r.metrics.RecordsScraped.WithLabelValues(r.source).Add(float64(len(records)))
		r.logger.Info("page parsed", "source", r.source, "page", page, "records", len(records))

		if (page-r.startPage+1)%r.checkpointEach == 0 {
			if err := r.checkpoint(all); err != nil {
				return all, err
			}
		}
	}

	if err := r.checkpoint(all); err != nil {
		return all, err
	}
	r.logger.Info("scrape finished", "source", r.source, "records", len(all))
	return all, nil
}

func (r *Runner) fetchWithRetry(ctx context.Context, page int) (string, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		content, err := r.fetcher.FetchPage(ctx, page)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !sleepWithContext(ctx, backoff) {
			return "", ctx.Err()
		}
		backoff = nextBackoff(backoff)
	}
	return "", lastErr
}

func (r *Runner) checkpoint(records []domain.DestinationRecord) error {
	if err := r.sink.Write(records); err != nil {
		r.logger.Error("checkpoint failed", "source", r.source, "error", err)
		return err
	}
	r.metrics.CheckpointWrites.Inc()
	r.logger.Info("checkpoint saved", "source", r.source, "records", len(records))
	return nil
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
