package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager gets a
// non-positive limit.
const DefaultMaxGoroutine int = 100

// Manager runs background work under a concurrency cap and recovers panics.
// Errors returned by tasks are joined and returned from Wait.
type Manager struct {
	mu      sync.Mutex
	errs    []error
	wg      sync.WaitGroup
	sema    chan struct{}
	stateMu sync.RWMutex
	closed  bool

	active   atomic.Int64
	rejected atomic.Int64
}

// NewManager creates a Manager that runs at most maxGoroutine tasks at once.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go runs f in a new goroutine when a slot is free. It reports false when the
// manager is closed or full; f is not run in that case.
func (g *Manager) Go(pCtx context.Context, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed {
		slog.WarnContext(pCtx, "goroutine manager is closed, skipping new goroutine")
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		g.rejected.Inc()
		slog.WarnContext(pCtx, "maximum goroutine limit reached, failed to start new goroutine")
		return false
	}

	g.active.Inc()
	g.wg.Go(func() {
		defer func() {
			g.active.Dec()
			<-g.sema

			if rvr := recover(); rvr != nil {
				stack := debug.Stack()
				if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
					slog.ErrorContext(pCtx, "panic occurred in goroutine", "panic", rvr, "stack", paths)
				} else {
					slog.ErrorContext(pCtx, "panic occurred in goroutine", "panic", rvr, "stack", string(stack))
				}
			}
		}()

		if err := pCtx.Err(); err != nil {
			slog.WarnContext(pCtx, "goroutine canceled", "because", err)
			return
		}

		if err := f(pCtx); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
	})

	return true
}

// Active returns the number of running tasks.
func (g *Manager) Active() int64 {
	return g.active.Load()
}

// Rejected returns how many tasks were dropped because the manager was full.
func (g *Manager) Rejected() int64 {
	return g.rejected.Load()
}

// Wait closes the manager to new work, blocks until running tasks finish and
// returns their joined errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()

	return errors.Join(g.errs...)
}
