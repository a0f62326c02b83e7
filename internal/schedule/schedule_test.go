package schedule

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdata/tourism-pipeline/internal/observability"
)

func newTestScheduler() *Scheduler {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestAddRejectsBadSpec(t *testing.T) {
	s := newTestScheduler()
	err := s.Add("not a cron spec", Job{Name: "refresh", Run: func() error { return nil }})
	assert.Error(t, err)
}

func TestAddRejectsNilJob(t *testing.T) {
	s := newTestScheduler()
	err := s.Add("@daily", Job{Name: "refresh"})
	assert.ErrorContains(t, err, "no work")
}

func TestScheduledJobRuns(t *testing.T) {
	s := newTestScheduler()

	var runs atomic.Int32
	require.NoError(t, s.Add("@every 10ms", Job{
		Name: "tick",
		Run: func() error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
}
