package session

import (
	"context"
	"errors"
	"time"

	"github.com/okian/voxmood/internal/domain/model"
)

// ErrBusy is returned by a Dispatcher that cannot take more work.
var ErrBusy = errors.New("analysis queue is full, please try again")

// Kind classifies a notification.
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
)

func (k Kind) String() string {
	if k == KindSuccess {
		return "success"
	}
	return "failure"
}

// Notification is a toast-style message for the user.
type Notification struct {
	Kind    Kind
	Message string
	At      time.Time
}

// Notifier delivers notifications. It must not block.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, message string)
}

// Dispatcher starts the remote analysis for a job. The result arrives later
// through Machine.Complete.
type Dispatcher interface {
	Dispatch(ctx context.Context, job model.Job) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, kind Kind, message string)

func (f NotifierFunc) Notify(ctx context.Context, kind Kind, message string) { f(ctx, kind, message) }

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, job model.Job) error

func (f DispatcherFunc) Dispatch(ctx context.Context, job model.Job) error { return f(ctx, job) }

// userMessager is implemented by errors whose text is not meant for users.
type userMessager interface {
	UserMessage() string
}

// FailureMessage is the text of a failure notification.
func FailureMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		return "Analysis failed: " + um.UserMessage()
	}
	if err == nil {
		return "Analysis failed: Unknown error occurred"
	}
	return "Analysis failed: " + err.Error()
}

// SuccessMessage is the text of a success notification.
func SuccessMessage(emotion string) string {
	return "Analysis complete! Detected primary emotion: " + emotion
}
