package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ykihara/commentguard/internal/model"
)

func TestSchedulerRunsAndStops(t *testing.T) {
	var runs atomic.Int64
	run := func(_ context.Context) *model.BatchResult {
		runs.Add(1)
		return &model.BatchResult{}
	}

	s := New(time.Minute, run, slog.Default())
	// Shrink the interval under test; the constructor floor guards
	// production configs, not this loop.
	s.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	s.Wait()

	settled := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, runs.Load(), "no batches after stop")
}

func TestSchedulerEnforcesMinimumInterval(t *testing.T) {
	s := New(time.Second, func(_ context.Context) *model.BatchResult {
		return &model.BatchResult{}
	}, slog.Default())
	assert.Equal(t, time.Minute, s.interval)
}
