// Package workerpool runs submitted jobs on an elastic set of goroutines.
// Workers are created on demand, parked when idle and reused by later
// submissions, and retired after a period of disuse.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// DefaultIdleTimeout is how long a parked worker waits for work before it exits.
const DefaultIdleTimeout = 60 * time.Second

// Config controls pool growth and retirement.
type Config struct {
	// MaxWorkers caps concurrently running workers. Zero means unbounded.
	MaxWorkers int
	// MaxIdle caps parked workers. Zero keeps every idle worker until IdleTimeout.
	MaxIdle int
	// IdleTimeout defaults to DefaultIdleTimeout.
	IdleTimeout time.Duration
	// Logger receives worker lifecycle events at debug level. The zero value discards.
	Logger  zerolog.Logger
	Metrics *Metrics
}

// Metrics are optional instruments updated by the pool. Nil fields are skipped.
type Metrics struct {
	Workers  prometheus.Gauge
	Idle     prometheus.Gauge
	InFlight prometheus.Gauge
	Queued   prometheus.Gauge
	Panics   prometheus.Counter
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers  int
	Idle     int
	Queued   int
	InFlight int64
}

type job func()

type worker struct {
	jobs chan job
}

// Pool is an elastic worker pool. It is safe for concurrent use.
type Pool struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	ready   []*worker // parked workers, most recently used last
	queue   []job     // overflow when MaxWorkers is reached
	workers int
	closed  bool

	inflight atomic.Int64
	wg       sync.WaitGroup
}

// New creates a pool. No goroutines are started until the first submission.
func New(cfg Config) *Pool {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxWorkers < 0 {
		cfg.MaxWorkers = 0
	}
	if cfg.MaxIdle < 0 {
		cfg.MaxIdle = 0
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &Metrics{}
	}

	return &Pool{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "workerpool").Logger(),
	}
}

// submit hands j to a parked worker, a new worker, or the overflow queue.
// It never blocks on job execution.
func (p *Pool) submit(j job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}

	p.setGauge(p.cfg.Metrics.InFlight, float64(p.inflight.Add(1)))

	if n := len(p.ready); n > 0 {
		w := p.ready[n-1]
		p.ready[n-1] = nil
		p.ready = p.ready[:n-1]
		// a parked worker's buffer is always empty
		w.jobs <- j
		p.observeLocked()
		p.mu.Unlock()
		return nil
	}

	if p.cfg.MaxWorkers == 0 || p.workers < p.cfg.MaxWorkers {
		p.workers++
		p.wg.Add(1)
		p.observeLocked()
		workers := p.workers
		p.mu.Unlock()

		p.logger.Debug().Int("workers", workers).Msg("worker started")
		go p.run(&worker{jobs: make(chan job, 1)}, j)
		return nil
	}

	p.queue = append(p.queue, j)
	p.observeLocked()
	p.mu.Unlock()
	return nil
}

func (p *Pool) run(w *worker, j job) {
	defer p.wg.Done()

	for j != nil {
		p.execute(j)
		j = p.next(w)
	}
}

func (p *Pool) execute(j job) {
	defer func() {
		p.setGauge(p.cfg.Metrics.InFlight, float64(p.inflight.Add(-1)))
	}()

	j()
}

// next returns the worker's next job, or nil when the worker should exit.
func (p *Pool) next(w *worker) job {
	p.mu.Lock()
	if len(p.queue) > 0 {
		j := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.observeLocked()
		p.mu.Unlock()
		return j
	}

	if p.closed || (p.cfg.MaxIdle > 0 && len(p.ready) >= p.cfg.MaxIdle) {
		p.retireLocked("idle limit")
		p.mu.Unlock()
		return nil
	}

	p.ready = append(p.ready, w)
	p.observeLocked()
	p.mu.Unlock()

	timer := time.NewTimer(p.cfg.IdleTimeout)
	defer timer.Stop()

	select {
	case j := <-w.jobs:
		return p.accept(j)
	case <-timer.C:
	}

	p.mu.Lock()
	if p.removeReadyLocked(w) {
		p.retireLocked("idle timeout")
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// claimed by Submit or Close after the timer fired; the job is already buffered
	return p.accept(<-w.jobs)
}

// accept handles a job received by a parked worker. Close parks nil jobs.
func (p *Pool) accept(j job) job {
	if j == nil {
		p.mu.Lock()
		p.retireLocked("pool closed")
		p.mu.Unlock()
	}
	return j
}

func (p *Pool) retireLocked(reason string) {
	p.workers--
	p.observeLocked()
	p.logger.Debug().Int("workers", p.workers).Str("reason", reason).Msg("worker retired")
}

func (p *Pool) removeReadyLocked(w *worker) bool {
	for i, r := range p.ready {
		if r == w {
			copy(p.ready[i:], p.ready[i+1:])
			p.ready[len(p.ready)-1] = nil
			p.ready = p.ready[:len(p.ready)-1]
			return true
		}
	}
	return false
}

// Close stops accepting submissions, lets busy workers drain the queue and
// waits for them to exit. It returns ctx.Err() if ctx ends first.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for _, w := range p.ready {
			w.jobs <- nil
		}
		p.ready = nil
		p.observeLocked()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug().Msg("pool closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Workers:  p.workers,
		Idle:     len(p.ready),
		Queued:   len(p.queue),
		InFlight: p.inflight.Load(),
	}
}

// Workers returns the number of live workers, busy or parked.
func (p *Pool) Workers() int { return p.Stats().Workers }

// Idle returns the number of parked workers.
func (p *Pool) Idle() int { return p.Stats().Idle }

// Queued returns the number of jobs waiting for a worker.
func (p *Pool) Queued() int { return p.Stats().Queued }

// InFlight returns the number of submitted jobs that have not finished.
func (p *Pool) InFlight() int64 { return p.inflight.Load() }

func (p *Pool) observeLocked() {
	m := p.cfg.Metrics
	p.setGauge(m.Workers, float64(p.workers))
	p.setGauge(m.Idle, float64(len(p.ready)))
	p.setGauge(m.Queued, float64(len(p.queue)))
}

func (p *Pool) setGauge(g prometheus.Gauge, v float64) {
	if g != nil {
		g.Set(v)
	}
}
