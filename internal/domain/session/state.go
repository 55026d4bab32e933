// Package session implements the per-browser interaction lifecycle:
// Idle -> Analyzing -> Resulted -> Idle, with Analyzing falling back to
// Idle on failure.
package session

import (
	"fmt"

	"github.com/okian/voxmood/internal/domain/analysis"
)

// Phase is the lifecycle stage. Exactly one is active.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAnalyzing
	PhaseResulted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseResulted:
		return "resulted"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the single owned value of a session. Transitions return a new
// State and never mutate the receiver. Result is non-nil only in
// PhaseResulted.
type State struct {
	Phase      Phase
	FileName   string
	FileSize   int64
	Rejection  string
	Result     *analysis.Result
	Generation uint64
}

// Submit starts an analysis for an accepted file. Only an Idle state accepts
// a submission: a request in flight or a displayed result refuses it. Any
// rejection is cleared and the generation is advanced so responses for older
// requests become stale.
func (s State) Submit(name string, size int64) (State, bool) {
	if s.Phase != PhaseIdle {
		return s, false
	}
	return State{
		Phase:      PhaseAnalyzing,
		FileName:   name,
		FileSize:   size,
		Generation: s.Generation + 1,
	}, true
}

// Succeed stores result when gen is the request currently in flight.
func (s State) Succeed(gen uint64, result analysis.Result) (State, bool) {
	if s.Phase != PhaseAnalyzing || gen != s.Generation {
		return s, false
	}
	r := result.Clone()
	s.Phase = PhaseResulted
	s.Result = &r
	return s, true
}

// Fail returns to Idle when gen is the request currently in flight. No
// partial result is kept.
func (s State) Fail(gen uint64) (State, bool) {
	if s.Phase != PhaseAnalyzing || gen != s.Generation {
		return s, false
	}
	return State{Phase: PhaseIdle, Generation: s.Generation}, true
}

// Reset leaves a displayed result for the initial Idle state, keeping the
// generation. It is refused while a request is in flight.
func (s State) Reset() (State, bool) {
	if s.Phase == PhaseAnalyzing {
		return s, false
	}
	return State{Phase: PhaseIdle, Generation: s.Generation}, true
}

// Reject records an inline rejection without a phase change.
func (s State) Reject(reason string) State {
	s.Rejection = reason
	return s
}
