package queue

import "errors"

// Sentinel kinds returned by Enqueue.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
