package inbound

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingSweeper struct {
	mu      sync.Mutex
	calls   []time.Time
	release chan struct{}
	entered chan struct{}
	err     error
}

func (b *blockingSweeper) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	b.calls = append(b.calls, now)
	b.mu.Unlock()

	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.release != nil {
		<-b.release
	}
	return 2, b.err
}

func (b *blockingSweeper) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func TestSweepJob_RunOnceSkipsOverlap(t *testing.T) {
	// Arrange
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	s := &blockingSweeper{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	job := NewSweepJob(s, clock.Func(func() time.Time { return now }), goroutine.NewManager(4), time.Minute)
	done := make(chan bool)

	// Act
	go func() { done <- job.RunOnce(context.Background()) }()
	<-s.entered
	overlapped := job.RunOnce(context.Background())
	close(s.release)
	first := <-done

	// Assert
	assert.True(t, first)
	assert.False(t, overlapped)
	assert.EqualValues(t, 1, job.Skipped())
	assert.Equal(t, 1, s.count())
	assert.Equal(t, now, s.calls[0])
}

func TestSweepJob_RunOnceLogsFailure(t *testing.T) {
	s := &blockingSweeper{err: errors.New("db down")}
	job := NewSweepJob(s, clock.New(), goroutine.NewManager(1), 0)

	ran := job.RunOnce(context.Background())

	assert.True(t, ran)
	assert.Equal(t, defaultSweepInterval, job.interval)
}

func TestSweepJob_StartStopsWithContext(t *testing.T) {
	// Arrange
	s := &blockingSweeper{}
	gm := goroutine.NewManager(4)
	job := NewSweepJob(s, clock.New(), gm, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	// Act
	started := job.Start(ctx)
	require.Eventually(t, func() bool { return s.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	// Assert
	assert.True(t, started)
	assert.NoError(t, gm.Wait())
}
