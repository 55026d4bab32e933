package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoAnalyzer = errors.New("no analyzer configured")
	ErrNotStarted = errors.New("service not started")
)
