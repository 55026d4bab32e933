// Package worker runs queued analysis jobs against the prediction service.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/voxmood/internal/adapters/predictor"
	"github.com/okian/voxmood/internal/domain/analysis"
	"github.com/okian/voxmood/internal/domain/model"
	"github.com/okian/voxmood/internal/domain/upload"
	"github.com/okian/voxmood/pkg/logger"
	"github.com/okian/voxmood/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = model.Job

// Analyzer performs the remote analysis of one file.
type Analyzer interface {
	Analyze(ctx context.Context, file upload.Candidate) (analysis.Result, error)
}

// Completer receives the outcome of every processed job.
type Completer interface {
	Complete(ctx context.Context, job Job, res analysis.Result, err error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, job Job, res analysis.Result, err error)

func (f CompleterFunc) Complete(ctx context.Context, job Job, res analysis.Result, err error) {
	f(ctx, job, res, err)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand, if any.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	analyzer  Analyzer
	completer Completer
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, analyzer Analyzer, completer Completer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		analyzer:  analyzer,
		completer: completer,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Default().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown signals the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process analyzes one job and hands the outcome to the completer. Failures
// are outcomes, not worker errors.
func (w *InMemoryWorker) process(ctx context.Context, job Job) { //nolint:gocritic // hugeParam: Job is received by value
	metrics.WorkerBusy()
	defer metrics.WorkerIdle()

	start := time.Now()
	res, err := w.analyzer.Analyze(ctx, job.File)
	latency := time.Since(start)

	outcome := Outcome(err)
	metrics.RecordAnalysis(outcome, float64(latency.Milliseconds()))
	if err != nil {
		metrics.RecordErrorByComponent("predictor", outcome)
		w.logger.Warn(ctx, "analysis request failed",
			logger.String("job", job.ID),
			logger.String("session", job.SessionID),
			logger.Duration("latency", latency),
			logger.Error(err))
	} else {
		w.logger.Debug(ctx, "analysis request finished",
			logger.String("job", job.ID),
			logger.String("session", job.SessionID),
			logger.Duration("latency", latency))
	}

	w.completer.Complete(ctx, job, res, err)
}

// Outcome maps an Analyze error to its metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.AnalysisSuccess
	case errors.Is(err, predictor.ErrNetwork):
		return metrics.AnalysisNetworkError
	case errors.Is(err, predictor.ErrServer):
		return metrics.AnalysisServerError
	case errors.Is(err, predictor.ErrMalformedResponse):
		return metrics.AnalysisMalformed
	default:
		return metrics.AnalysisOther
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	stopOnce sync.Once
	logger   logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, analyzer Analyzer, completer Completer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Default().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, analyzer, completer, WithName("worker-"+strconv.Itoa(i)))
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stop stops all workers, waiting up to the pool shutdown timeout.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()
	_ = p.Shutdown(ctx)
}

// Shutdown closes the queue when it can be closed, then stops every worker.
// Jobs still waiting are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	var errs []error
	p.stopOnce.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(err))
			}
		}
		for i, w := range p.workers {
			if err := w.Shutdown(ctx); err != nil {
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
