// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/voxmood/internal/domain/upload"
)

// Job is one accepted file waiting for analysis.
type Job struct {
	ID         string           // unique job id, used in logs
	SessionID  string           // browser session that submitted the file
	Generation uint64           // session generation the job belongs to
	File       upload.Candidate // accepted file
	EnqueuedAt time.Time
}
