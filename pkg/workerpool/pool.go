// Package workerpool runs jobs on a fixed number of goroutines fed by a bounded queue.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/roundup/pkg/logger"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Submit when the queue has no free slot.
	ErrQueueFull = errors.New("workerpool: queue full")
	// ErrPoolStopped is returned by Submit once Stop has been called.
	ErrPoolStopped = errors.New("workerpool: pool stopped")
)

var (
	jobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workerpool_jobs_submitted_total",
		Help: "Jobs accepted into the queue",
	}, []string{"pool"})

	jobsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workerpool_jobs_rejected_total",
		Help: "Jobs rejected because the queue was full or the pool stopped",
	}, []string{"pool", "reason"})

	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workerpool_jobs_processed_total",
		Help: "Jobs that finished running, including ones that panicked",
	}, []string{"pool"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "workerpool_queue_depth",
		Help: "Jobs waiting for a worker",
	}, []string{"pool"})

	inFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "workerpool_jobs_in_flight",
		Help: "Jobs currently running",
	}, []string{"pool"})
)

// Handler processes one job. The context is cancelled only when Stop gives up waiting.
type Handler[T any] func(ctx context.Context, job T)

// Pool is a bounded worker pool.
type Pool[T any] struct {
	name    string
	workers int
	queue   chan T
	handle  Handler[T]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
}

// New creates a pool with the given number of workers and queue capacity.
func New[T any](name string, workers, queueSize int, handle Handler[T]) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool[T]{
		name:    name,
		workers: workers,
		queue:   make(chan T, queueSize),
		handle:  handle,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (p *Pool[T]) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	logger.Info("worker pool started",
		zap.String("pool", p.name),
		zap.Int("workers", p.workers),
		zap.Int("queue_size", cap(p.queue)),
	)
}

// Submit enqueues job without blocking.
func (p *Pool[T]) Submit(job T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		jobsRejected.WithLabelValues(p.name, "stopped").Inc()
		return ErrPoolStopped
	}

	select {
	case p.queue <- job:
		jobsSubmitted.WithLabelValues(p.name).Inc()
		queueDepth.WithLabelValues(p.name).Set(float64(len(p.queue)))
		return nil
	default:
		jobsRejected.WithLabelValues(p.name, "full").Inc()
		return ErrQueueFull
	}
}

// Len returns the number of queued jobs.
func (p *Pool[T]) Len() int {
	return len(p.queue)
}

// Stop stops accepting jobs and waits for queued and running jobs to finish.
// If ctx expires first the handlers' context is cancelled and ctx.Err is returned.
func (p *Pool[T]) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		p.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		logger.Info("worker pool drained", zap.String("pool", p.name))
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("workerpool %s: stop: %w", p.name, ctx.Err())
	}
}

func (p *Pool[T]) run(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		queueDepth.WithLabelValues(p.name).Set(float64(len(p.queue)))
		p.process(id, job)
	}
}

func (p *Pool[T]) process(id int, job T) {
	inFlight.WithLabelValues(p.name).Inc()
	defer func() {
		inFlight.WithLabelValues(p.name).Dec()
		jobsProcessed.WithLabelValues(p.name).Inc()
		if r := recover(); r != nil {
			logger.Error("worker recovered from panic",
				zap.String("pool", p.name),
				zap.Int("worker", id),
				zap.Any("panic", r),
			)
		}
	}()
	p.handle(p.ctx, job)
}
