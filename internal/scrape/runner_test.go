package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdata/tourism-pipeline/internal/csvio"
	"github.com/vietdata/tourism-pipeline/internal/domain"
	"github.com/vietdata/tourism-pipeline/internal/observability"
)

type stubFetcher struct {
	pages    map[int]string
	failures map[int]int // page -> remaining failures before success
	calls    []int
}

func (f *stubFetcher) FetchPage(ctx context.Context, page int) (string, error) {
	f.calls = append(f.calls, page)
	if n := f.failures[page]; n > 0 {
		f.failures[page] = n - 1
		return "", errors.New("boom")
	}
	return f.pages[page], nil
}

type stubParser struct{}

func (stubParser) Parse(page string) []domain.DestinationRecord {
	if page == "" {
		return nil
	}
	return []domain.DestinationRecord{{Name: page, Source: "tourism"}}
}

type recordingSink struct {
	writes [][]domain.DestinationRecord
	err    error
}

func (s *recordingSink) Write(records []domain.DestinationRecord) error {
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, append([]domain.DestinationRecord(nil), records...))
	return nil
}

func newTestRunner(f PageFetcher, s Sink, opts RunnerOptions) *Runner {
	if opts.Source == "" {
		opts.Source = "tourism"
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(f, stubParser{}, s, logger, observability.NewMetricsForTesting(), opts)
}

func TestRunnerStopsAfterTwoEmptyPages(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]string{
		1: "p1", 2: "p2", 3: "", 4: "",
		5: "never reached",
	}}
	sink := &recordingSink{}
	r := newTestRunner(fetcher, sink, RunnerOptions{})

	records, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, []int{1, 2, 3, 4}, fetcher.calls)
}

func TestRunnerEmptyPageGapDoesNotStop(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]string{
		1: "p1", 2: "", 3: "p3", 4: "", 5: "",
	}}
	sink := &recordingSink{}
	r := newTestRunner(fetcher, sink, RunnerOptions{})

	records, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRunnerRetriesTransientFailures(t *testing.T) {
	fetcher := &stubFetcher{
		pages:    map[int]string{1: "p1", 2: "", 3: ""},
		failures: map[int]int{1: 2},
	}
	sink := &recordingSink{}
	r := newTestRunner(fetcher, sink, RunnerOptions{})

	records, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p1", records[0].Name)
}

func TestRunnerSkipsPageAfterRetriesExhausted(t *testing.T) {
	fetcher := &stubFetcher{
		pages:    map[int]string{1: "p1", 2: "p2", 3: "", 4: ""},
		failures: map[int]int{1: 10},
	}
	sink := &recordingSink{}
	r := newTestRunner(fetcher, sink, RunnerOptions{})

	records, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p2", records[0].Name)
}

func TestRunnerHonorsMaxPages(t *testing.T) {
	pages := make(map[int]string)
	for i := 1; i <= 20; i++ {
		pages[i] = fmt.Sprintf("p%d", i)
	}
	fetcher := &stubFetcher{pages: pages}
	sink := &recordingSink{}
	r := newTestRunner(fetcher, sink, RunnerOptions{MaxPages: 5})

	records, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, fetcher.calls)
}

func TestRunnerCheckpointsPeriodically(t *testing.T) {
	pages := make(map[int]string)
	for i := 1; i <= 7; i++ {
		pages[i] = fmt.Sprintf("p%d", i)
	}
	fetcher := &stubFetcher{pages: pages}
	sink := &recordingSink{}
	r := newTestRunner(fetcher, sink, RunnerOptions{MaxPages: 7, CheckpointEach: 3})

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// Pages 3 and 6 trigger checkpoints; the final write covers all 7.
	require.Len(t, sink.writes, 3)
	assert.Len(t, sink.writes[0], 3)
	assert.Len(t, sink.writes[1], 6)
	assert.Len(t, sink.writes[2], 7)
}

func TestRunnerSinkErrorAborts(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]string{1: "p1", 2: ""}}
	sink := &recordingSink{err: errors.New("disk full")}
	r := newTestRunner(fetcher, sink, RunnerOptions{CheckpointEach: 1})

	_, err := r.Run(context.Background())
	assert.ErrorContains(t, err, "disk full")
}

func TestRunnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &stubFetcher{pages: map[int]string{1: "p1"}}
	sink := &recordingSink{}
	r := newTestRunner(fetcher, sink, RunnerOptions{})

	records, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, fetcher.calls)
}

func TestCSVSinkWritesCheckpoint(t *testing.T) {
	dir := t.TempDir()
	src, err := SourceByName("tourism")
	require.NoError(t, err)

	sink := NewCSVSink(dir, src)
	require.NoError(t, sink.Write([]domain.DestinationRecord{
		{Name: "Vịnh Hạ Long", RawProvince: "Quảng Ninh", Source: "tourism"},
	}))

	assert.Equal(t, filepath.Join(dir, "vietnam_tourism.csv"), sink.Path())

	rows, err := csvio.ReadFile(sink.Path(), csvio.Options{Delimiter: ';'})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"name", "province", "source"}, rows[0])
	assert.Equal(t, []string{"Vịnh Hạ Long", "Quảng Ninh", "tourism"}, rows[1])
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 400*time.Millisecond, nextBackoff(200*time.Millisecond))
	assert.Equal(t, maxBackoff, nextBackoff(3*time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(maxBackoff))
}
