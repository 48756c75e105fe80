package workerpool

import (
	"context"
	"fmt"
)

// Handle is the pending result of a submitted task. It resolves exactly once.
type Handle[R any] struct {
	done   chan struct{}
	result R
	err    error
}

func newHandle[R any]() *Handle[R] {
	return &Handle[R]{done: make(chan struct{})}
}

func (h *Handle[R]) resolve(result R, err error) {
	h.result = result
	h.err = err
	close(h.done)
}

// Done is closed once the task has finished.
func (h *Handle[R]) Done() <-chan struct{} {
	return h.done
}

// Resolved reports whether the task has finished without blocking.
func (h *Handle[R]) Resolved() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task finishes or ctx ends. The error is non-nil when
// the task panicked or ctx ended first.
func (h *Handle[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Submit schedules fn on the pool and returns immediately. fn receives ctx
// unchanged. A panic in fn resolves the handle with ErrTaskPanicked.
func Submit[R any](ctx context.Context, p *Pool, fn func(context.Context) R) (*Handle[R], error) {
	h := newHandle[R]()

	err := p.submit(func() {
		defer func() {
			if r := recover(); r != nil {
				if c := p.cfg.Metrics.Panics; c != nil {
					c.Inc()
				}
				p.logger.Error().Interface("panic", r).Msg("task panicked")

				var zero R
				h.resolve(zero, fmt.Errorf("%w: %v", ErrTaskPanicked, r))
			}
		}()

		h.resolve(fn(ctx), nil)
	})
	if err != nil {
		return nil, err
	}

	return h, nil
}
