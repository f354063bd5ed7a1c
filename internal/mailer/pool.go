package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bluecheck/inquiries/internal/apperr"
	"github.com/bluecheck/inquiries/internal/metrics"
)

type job struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan<- error
}

// Pool runs blocking calls on a fixed number of worker goroutines so that
// slow transports never hold up request handlers. Jobs queue in a bounded
// channel; Submit blocks when the queue is full until space frees up or ctx
// is done.
type Pool struct {
	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

// NewPool starts workers goroutines reading from a queue of queueSize jobs.
func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		jobs:   make(chan job, queueSize),
		logger: logger,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		if err := j.ctx.Err(); err != nil {
			j.result <- err
			continue
		}
		metrics.MailWorkerStarted()
		j.result <- p.run(j)
		metrics.MailWorkerFinished()
	}
}

func (p *Pool) run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("mail pool job panicked", slog.Any("panic", r))
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return j.fn(j.ctx)
}

// Submit queues fn and returns a channel that receives its result exactly
// once. After Close the channel yields apperr.ErrPoolClosed.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) error) <-chan error {
	result := make(chan error, 1)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		result <- apperr.ErrPoolClosed
		return result
	}

	select {
	case p.jobs <- job{ctx: ctx, fn: fn, result: result}:
	case <-ctx.Done():
		result <- ctx.Err()
	}
	return result
}

// Close stops accepting jobs, lets the workers drain the queue and waits
// for them to exit. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
