package workerpool

import "errors"

var (
	ErrPoolClosed     = errors.New("workerpool: pool is closed")
	ErrTaskPanicked   = errors.New("workerpool: task panicked")
	ErrBarrierTimeout = errors.New("workerpool: task did not complete before the barrier deadline")
)
