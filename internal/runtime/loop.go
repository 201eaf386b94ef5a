package runtime

import (
	"context"
	"log/slog"

	"github.com/roach88/weft/internal/ir"
)

// Enqueue schedules ev for the Run loop. Safe from any goroutine.
// Returns false after Close.
func (r *Runtime) Enqueue(ev ir.Event) bool {
	return r.queue.Enqueue(ev)
}

// Close stops accepting events. Run returns once the queue is drained.
func (r *Runtime) Close() {
	r.queue.Close()
}

// Run dispatches queued events one at a time, in arrival order, until ctx
// is cancelled or the runtime is closed and drained. Each event runs to
// completion before the next starts.
func (r *Runtime) Run(ctx context.Context) error {
	slog.Debug("event loop started", "session", r.session)
	defer slog.Debug("event loop stopped", "session", r.session)

	for {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			ev, ok := r.queue.TryDequeue()
			if !ok {
				break
			}
			r.Dispatch(ctx, ev)
		}

		if r.queue.Drained() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.queue.Wait():
		}
	}
}
