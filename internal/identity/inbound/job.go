package inbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"go.uber.org/atomic"
)

const defaultSweepInterval = time.Hour

type sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// SweepJob periodically deletes expired OTP records. A tick that fires while
// the previous sweep is still running is skipped.
type SweepJob struct {
	engine   sweeper
	clock    clock.Clocker
	routine  *goroutine.Manager
	interval time.Duration
	running  atomic.Bool
	skipped  atomic.Int64
}

func NewSweepJob(engine sweeper, clk clock.Clocker, routine *goroutine.Manager, interval time.Duration) *SweepJob {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &SweepJob{engine: engine, clock: clk, routine: routine, interval: interval}
}

// Start runs the ticker loop on the manager until ctx is done. Every sweep is
// a task of its own, so Wait on the manager also drains a sweep in flight.
func (j *SweepJob) Start(ctx context.Context) bool {
	return j.routine.Go(ctx, func(pCtx context.Context) error {
		slog.InfoContext(pCtx, "Running job for sweeping expired otp", "interval", j.interval.String())

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-pCtx.Done():
				return nil
			case <-ticker.C:
				j.routine.Go(pCtx, func(c context.Context) error {
					j.RunOnce(c)
					return nil
				})
			}
		}
	})
}

// RunOnce sweeps once and reports whether it actually ran.
func (j *SweepJob) RunOnce(ctx context.Context) bool {
	if !j.running.CompareAndSwap(false, true) {
		j.skipped.Inc()
		slog.WarnContext(ctx, "previous otp sweep still running, skipping tick")
		return false
	}
	defer j.running.Store(false)

	n, err := j.engine.SweepExpired(ctx, j.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to sweep expired otp", "error", err)
		return true
	}

	slog.InfoContext(ctx, "expired otp swept", "deleted", n)
	return true
}

// Skipped counts ticks dropped because a sweep was in progress.
func (j *SweepJob) Skipped() int64 {
	return j.skipped.Load()
}
