// Package service owns the browser sessions and the analysis pipeline that
// serves them: a bounded queue drained by a pool of workers calling the
// prediction service.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/voxmood/internal/adapters/mq/queue"
	"github.com/okian/voxmood/internal/adapters/mq/worker"
	"github.com/okian/voxmood/internal/domain/analysis"
	"github.com/okian/voxmood/internal/domain/model"
	"github.com/okian/voxmood/internal/domain/session"
	"github.com/okian/voxmood/pkg/logger"
	"github.com/okian/voxmood/pkg/metrics"
)

const (
	minJanitorInterval = time.Second
	maxJanitorInterval = time.Minute
)

type entry struct {
	machine *session.Machine
	inbox   *inbox
}

// Service implements the session registry used by the web adapter.
type Service struct {
	mu sync.RWMutex

	sessions map[string]*entry

	// Core components
	analyzer worker.Analyzer
	jobs     *queue.InMemoryQueue
	pool     *worker.Pool

	// Configuration
	workerCount int
	queueSize   int
	sessionTTL  time.Duration
	now         func() time.Time

	// State
	started bool
	cancel  context.CancelFunc
	stopCh  chan struct{}
	janitor sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of waiting analyses.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSessionTTL evicts sessions idle for longer than ttl.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithAnalyzer sets the prediction client. Required.
func WithAnalyzer(a worker.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:    make(map[string]*entry),
		workerCount: runtime.NumCPU() * 2,
		queueSize:   1024,
		sessionTTL:  time.Hour,
		now:         time.Now,
		logger:      logger.Default().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the queue and worker pool and starts evicting idle sessions.
// Analyses keep running when ctx is cancelled; Stop ends them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.analyzer == nil {
		return ErrNoAnalyzer
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.stopCh = make(chan struct{})

	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.jobs, s.analyzer, worker.CompleterFunc(s.Complete))
	s.pool.Start(runCtx)

	s.janitor.Add(1)
	go s.evictLoop(runCtx, s.stopCh)

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("sessionTTL", s.sessionTTL),
	)
	return nil
}

// Stop gracefully shuts down the pipeline.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, cancel := s.pool, s.cancel
	close(s.stopCh)
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping analysis service...")
	pool.Stop()
	cancel()
	s.janitor.Wait()
	s.logger.Info(ctx, "analysis service stopped")
}

// Open returns the session for id, creating a fresh one when id is empty or
// unknown. The returned id is the one to hand back to the browser.
func (s *Service) Open(ctx context.Context, id string) (*session.Machine, string, bool) {
	if id != "" {
		s.mu.RLock()
		e, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			return e.machine, id, false
		}
	}

	id = uuid.NewString()
	box := newInbox(s.now)
	m := session.NewMachine(id, box, s,
		session.WithClock(s.now),
		session.WithLogger(s.logger.Named("session")))

	s.mu.Lock()
	s.sessions[id] = &entry{machine: m, inbox: box}
	count := len(s.sessions)
	s.mu.Unlock()

	metrics.UpdateActiveSessions(count)
	s.logger.Debug(ctx, "session opened", logger.String("session", id))
	return m, id, true
}

// Lookup returns an existing session.
func (s *Service) Lookup(id string) (*session.Machine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return e.machine, true
}

// Drain returns and clears the pending notifications of a session.
func (s *Service) Drain(_ context.Context, id string) []session.Notification {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return e.inbox.drain()
}

// Dispatch queues a job for the worker pool. A full or closed queue is
// reported as session.ErrBusy, a service that was never started as
// ErrNotStarted.
func (s *Service) Dispatch(ctx context.Context, job model.Job) error {
	s.mu.RLock()
	jobs, started := s.jobs, s.started
	s.mu.RUnlock()
	if !started {
		s.logger.Warn(ctx, "dispatch before start", logger.String("job", job.ID))
		return ErrNotStarted
	}

	if err := jobs.Enqueue(ctx, job); err != nil {
		s.logger.Warn(ctx, "analysis queue refused job",
			logger.String("job", job.ID),
			logger.String("session", job.SessionID),
			logger.Error(err))
		if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
			return session.ErrBusy
		}
		return err
	}
	return nil
}

// Complete routes a worker outcome to its session. Sessions evicted in the
// meantime make the outcome stale.
func (s *Service) Complete(ctx context.Context, job model.Job, res analysis.Result, err error) {
	m, ok := s.Lookup(job.SessionID)
	if !ok {
		metrics.RecordStaleCompletion()
		s.logger.Debug(ctx, "completion for unknown session",
			logger.String("session", job.SessionID),
			logger.String("job", job.ID))
		return
	}
	m.Complete(ctx, job.Generation, res, err)
}

// Stats describes the pipeline for health output.
type Stats struct {
	Started       bool `json:"started"`
	Sessions      int  `json:"sessions"`
	Workers       int  `json:"workers"`
	QueueLength   int  `json:"queue_length"`
	QueueCapacity int  `json:"queue_capacity"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:       s.started,
		Sessions:      len(s.sessions),
		Workers:       s.workerCount,
		QueueCapacity: s.queueSize,
	}
	if s.started {
		st.QueueLength = s.jobs.Len(context.Background())
	}
	return st
}

// EvictIdle removes sessions idle for longer than the TTL and returns how
// many were removed.
func (s *Service) EvictIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.sessionTTL)

	s.mu.Lock()
	var evicted int
	for id, e := range s.sessions {
		if e.machine.LastSeen().Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	metrics.UpdateActiveSessions(count)
	if evicted > 0 {
		s.logger.Debug(ctx, "evicted idle sessions", logger.Int("evicted", evicted), logger.Int("remaining", count))
	}
	return evicted
}

func (s *Service) evictLoop(ctx context.Context, stop <-chan struct{}) {
	defer s.janitor.Done()

	interval := s.sessionTTL / 4
	if interval < minJanitorInterval {
		interval = minJanitorInterval
	}
	if interval > maxJanitorInterval {
		interval = maxJanitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.EvictIdle(ctx)
		}
	}
}
