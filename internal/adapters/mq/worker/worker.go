// Package worker runs analysis jobs: fetch the finished batch from the
// pipeline and hand it to the loader.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/tally/internal/adapters/mq/queue"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Fetcher retrieves a finished batch. Satisfied by pipeline.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, sessionID string) (model.Batch, error)
}

// Loader accepts a finished batch into the review store.
type Loader interface {
	LoadBatch(ctx context.Context, batch model.Batch) error
}

// Observer is told when a job starts and finishes.
type Observer interface {
	JobStarted(ctx context.Context, job model.AnalysisJob)
	JobFinished(ctx context.Context, job model.AnalysisJob, err error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its context ends or the queue closes.
type Worker struct {
	queue    Queue
	fetcher  Fetcher
	loader   Loader
	observer Observer
	name     string
	logger   logger.Logger
	done     chan struct{}
}

// NewWorker creates a worker.
func NewWorker(q Queue, fetcher Fetcher, loader Loader, opts ...Option) *Worker {
	w := &Worker{
		queue:   q,
		fetcher: fetcher,
		loader:  loader,
		name:    "worker",
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.Process(ctx, job); err != nil {
				w.logger.Error(ctx, "analysis job failed",
					logger.String("job", job.JobID),
					logger.String("session", job.SessionID),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Process runs a single job. The pipeline is called exactly once.
func (w *Worker) Process(ctx context.Context, job model.AnalysisJob) (err error) {
	start := time.Now()
	if w.observer != nil {
		w.observer.JobStarted(ctx, job)
	}
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordWorkerError()
		}
		if w.observer != nil {
			w.observer.JobFinished(ctx, job, err)
		}
	}()

	batch, err := w.fetcher.Fetch(ctx, job.SessionID)
	if err != nil {
		return err
	}
	if err := w.loader.LoadBatch(ctx, batch); err != nil {
		return fmt.Errorf("load batch for session %s: %w", job.SessionID, err)
	}
	w.logger.Info(ctx, "analysis loaded",
		logger.String("job", job.JobID),
		logger.String("session", job.SessionID),
		logger.Int("records", len(batch.Records)),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*Worker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates count workers sharing one queue.
func NewPool(count int, q Queue, fetcher Fetcher, loader Loader, opts ...Option) *Pool {
	if count < 1 {
		count = 1
	}
	p := &Pool{
		workers: make([]*Worker, count),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewWorker(q, fetcher, loader, wopts...)
	}
	metrics.UpdateWorkerCount(count)
	return p
}

// Start launches all workers. They stop when ctx ends or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Stop cancels all workers and waits for them, up to a timeout.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(poolShutdownTimeout):
		p.logger.Warn(context.Background(), "worker pool shutdown timed out")
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }
