package workerpool

import (
	"context"
	"fmt"
)

// Outcome is the resolution of one handle collected by a Group.
type Outcome[R any] struct {
	Value R
	Err   error
}

// Group collects handles and waits for all of them. Add is meant to be called
// from a single goroutine before Wait; it is not safe for concurrent use.
type Group[R any] struct {
	handles []*Handle[R]
}

// Add retains h for the barrier.
func (g *Group[R]) Add(h *Handle[R]) {
	g.handles = append(g.handles, h)
}

// Len returns the number of retained handles.
func (g *Group[R]) Len() int {
	return len(g.handles)
}

// Pending returns how many retained handles have not resolved yet.
func (g *Group[R]) Pending() int {
	n := 0
	for _, h := range g.handles {
		if !h.Resolved() {
			n++
		}
	}
	return n
}

// Wait blocks until every retained handle resolves and returns their outcomes
// in the order they were added. If ctx ends first, handles that are still
// unresolved yield an Outcome wrapping ErrBarrierTimeout.
func (g *Group[R]) Wait(ctx context.Context) []Outcome[R] {
	out := make([]Outcome[R], len(g.handles))

	for i, h := range g.handles {
		select {
		case <-h.done:
			out[i] = Outcome[R]{Value: h.result, Err: h.err}
			continue
		default:
		}

		select {
		case <-h.done:
			out[i] = Outcome[R]{Value: h.result, Err: h.err}
		case <-ctx.Done():
			out[i] = Outcome[R]{Err: fmt.Errorf("%w: %w", ErrBarrierTimeout, ctx.Err())}
		}
	}

	return out
}
