package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/voxmood/internal/domain/session"
)

// maxPending bounds undelivered notifications per session. The oldest are
// dropped first.
const maxPending = 16

// inbox collects notifications until the next page render drains them.
type inbox struct {
	mu      sync.Mutex
	pending []session.Notification
	now     func() time.Time
}

func newInbox(now func() time.Time) *inbox {
	return &inbox{now: now}
}

func (b *inbox) Notify(_ context.Context, kind session.Kind, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, session.Notification{Kind: kind, Message: message, At: b.now()})
	if over := len(b.pending) - maxPending; over > 0 {
		b.pending = append([]session.Notification(nil), b.pending[over:]...)
	}
}

func (b *inbox) drain() []session.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}
