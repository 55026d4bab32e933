package session

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/okian/voxmood/internal/domain/analysis"
	"github.com/okian/voxmood/internal/domain/model"
	"github.com/okian/voxmood/internal/domain/upload"
	"github.com/okian/voxmood/pkg/logger"
	"github.com/okian/voxmood/pkg/metrics"
)

// Machine serializes every transition of one session. Dispatching and
// notifying happen outside the lock.
type Machine struct {
	id         string
	notifier   Notifier
	dispatcher Dispatcher
	log        logger.Logger
	now        func() time.Time

	mu       sync.Mutex
	state    State
	gate     upload.Gate
	lastSeen time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the machine logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMachine creates a session in the Idle phase.
func NewMachine(id string, n Notifier, d Dispatcher, opts ...Option) *Machine {
	m := &Machine{
		id:         id,
		notifier:   n,
		dispatcher: d,
		log:        logger.Default().Named("session"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.String("session", id))
	m.lastSeen = m.now()
	return m
}

// ID returns the session id.
func (m *Machine) ID() string { return m.id }

// Offer passes files from either input source through the gate. It reports
// whether the files were considered; while analyzing or showing a result
// they are ignored.
func (m *Machine) Offer(ctx context.Context, src upload.Source, files []upload.Candidate) bool {
	m.mu.Lock()
	m.lastSeen = m.now()
	out, considered := m.gate.Offer(files)
	if !considered {
		disabled := m.gate.Disabled()
		phase := m.state.Phase
		m.mu.Unlock()
		if disabled {
			outcome := metrics.UploadIgnoredBusy
			if phase == PhaseResulted {
				outcome = metrics.UploadIgnoredResult
			}
			metrics.RecordUpload(src.String(), outcome)
			m.log.Debug(ctx, "upload ignored",
				logger.String("source", src.String()),
				logger.String("phase", phase.String()))
		}
		return false
	}
	if !out.Accepted {
		m.state = m.state.Reject(out.Reason)
		m.mu.Unlock()
		metrics.RecordUpload(src.String(), rejectionOutcome(out.Reason))
		m.log.Info(ctx, "upload rejected",
			logger.String("source", src.String()),
			logger.String("reason", out.Reason))
		return true
	}

	next, ok := m.state.Submit(out.File.Name, out.File.Size)
	if !ok {
		// The gate is disabled whenever the phase is not Idle.
		m.mu.Unlock()
		return false
	}
	m.state = next
	m.gate.SetDisabled(true)
	job := model.Job{
		ID:         uuid.NewString(),
		SessionID:  m.id,
		Generation: next.Generation,
		File:       out.File,
		EnqueuedAt: m.now(),
	}
	m.mu.Unlock()

	metrics.RecordUpload(src.String(), metrics.UploadAccepted)
	m.log.Info(ctx, "upload accepted",
		logger.String("source", src.String()),
		logger.String("file", out.File.Name),
		logger.String("size", humanize.IBytes(uint64(out.File.Size))),
		logger.Uint64("generation", job.Generation))

	if err := m.dispatcher.Dispatch(ctx, job); err != nil {
		metrics.RecordAnalysis(metrics.AnalysisDispatch, -1)
		m.Complete(ctx, job.Generation, analysis.Result{}, err)
	}
	return true
}

// Complete applies the outcome of the request tagged gen. Outcomes for any
// other generation, or arriving after a reset, are dropped and false is
// returned. Exactly one notification is emitted per applied outcome.
func (m *Machine) Complete(ctx context.Context, gen uint64, res analysis.Result, err error) bool {
	m.mu.Lock()
	var (
		next State
		ok   bool
	)
	if err != nil {
		next, ok = m.state.Fail(gen)
	} else {
		next, ok = m.state.Succeed(gen, res)
	}
	if !ok {
		current := m.state.Generation
		m.mu.Unlock()
		metrics.RecordStaleCompletion()
		m.log.Debug(ctx, "dropping stale completion",
			logger.Uint64("generation", gen),
			logger.Uint64("current", current))
		return false
	}
	m.state = next
	// a shown result keeps input closed until reset
	m.gate.SetDisabled(next.Phase != PhaseIdle)
	m.mu.Unlock()

	if err != nil {
		m.log.Warn(ctx, "analysis failed", logger.Uint64("generation", gen), logger.Error(err))
		m.notifier.Notify(ctx, KindFailure, FailureMessage(err))
		return true
	}
	m.log.Info(ctx, "analysis complete",
		logger.Uint64("generation", gen),
		logger.String("emotion", res.PrimaryEmotion()))
	m.notifier.Notify(ctx, KindSuccess, SuccessMessage(res.PrimaryEmotion()))
	return true
}

// Reset clears the file, result and rejection and reopens the gate. It is
// refused while a request is in flight, so at most one request per session is
// ever outstanding. It reports whether anything changed.
func (m *Machine) Reset(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen = m.now()
	prev := m.state
	next, ok := prev.Reset()
	if !ok {
		m.log.Debug(ctx, "reset ignored while analyzing", logger.Uint64("generation", prev.Generation))
		return false
	}
	m.state = next
	m.gate.Clear()
	m.gate.SetDisabled(false)
	changed := prev.Phase != PhaseIdle || prev.Rejection != "" || prev.FileName != ""
	if changed {
		m.log.Info(ctx, "session reset", logger.String("from", prev.Phase.String()))
	}
	return changed
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen = m.now()
	s := m.state
	if s.Result != nil {
		r := s.Result.Clone()
		s.Result = &r
	}
	return s
}

// LastSeen is the time of the latest user interaction.
func (m *Machine) LastSeen() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeen
}

func rejectionOutcome(reason string) string {
	if reason == upload.ReasonSize {
		return metrics.UploadRejectedSize
	}
	return metrics.UploadRejectedExtension
}
