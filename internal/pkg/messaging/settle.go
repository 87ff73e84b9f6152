package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

// settler is implemented by driver messages.
type settler interface {
	Message
	ack(ctx context.Context) error
	nack(ctx context.Context) error
}

// once guards a message against being settled twice.
type once struct{ done atomic.Bool }

func (o *once) first() bool { return !o.done.Swap(true) }

// deliver runs handler with panic recovery and then acks or nacks.
func deliver(ctx context.Context, driver string, handler Handler, msg settler) error {
	herr := callWithRecover(ctx, driver, func() error { return handler(ctx, msg) })
	if herr != nil {
		slog.WarnContext(ctx, "message handler failed", "driver", driver, "topic", msg.Topic(), "id", msg.ID(), "error", herr)
		return msg.nack(ctx)
	}
	return msg.ack(ctx)
}

func callWithRecover(ctx context.Context, driver string, fn func() error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
		}
	}()

	return fn()
}
