package predictor

import (
	"errors"
	"fmt"
)

// Sentinel kinds matched with errors.Is against the typed errors below.
var (
	ErrNetwork           = errors.New("analysis service unreachable")
	ErrServer            = errors.New("analysis service error")
	ErrMalformedResponse = errors.New("malformed analysis response")
)

// NetworkError is a transport failure: no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", ErrNetwork, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ServerError is a non-2xx answer. Body is the trimmed response text or the
// standard reason phrase when the body was empty.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", ErrServer, e.Status, e.Body)
}

func (e *ServerError) Is(target error) bool { return target == ErrServer }

// MalformedResponseError is a 2xx answer whose body could not be decoded.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedResponse, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// UserMessage is shown instead of Error(): the body carries no structured message.
func (e *MalformedResponseError) UserMessage() string { return "Unknown error occurred" }
