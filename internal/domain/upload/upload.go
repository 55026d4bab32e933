// Package upload decides whether a user supplied file may be analyzed.
package upload

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest accepted upload in bytes.
const MaxFileSize int64 = 10 * 1024 * 1024

// Extension is the only accepted file extension, compared case-insensitively.
const Extension = ".wav"

// Rejection reasons shown next to the upload control.
const (
	ReasonExtension = "Please upload a .wav file only."
	ReasonSize      = "File size exceeds 10MB limit."
)

// Candidate is a file offered by the user. Data may be truncated for
// oversized uploads; Size is always the full byte count.
type Candidate struct {
	Name string
	Size int64
	Data []byte
}

// NewCandidate builds a candidate whose size is the length of data.
func NewCandidate(name string, data []byte) Candidate {
	return Candidate{Name: name, Size: int64(len(data)), Data: data}
}

// Source tags how a file reached the gate.
type Source int

const (
	SourcePicker Source = iota
	SourceDrop
)

func (s Source) String() string {
	switch s {
	case SourcePicker:
		return "picker"
	case SourceDrop:
		return "drop"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// ParseSource maps a form value to a Source. Unknown values are treated as
// the picker.
func ParseSource(v string) Source {
	if strings.EqualFold(strings.TrimSpace(v), "drop") {
		return SourceDrop
	}
	return SourcePicker
}

// Outcome is either an accepted file or a rejection reason.
type Outcome struct {
	Accepted bool
	File     Candidate
	Reason   string
}

// Accepted is the outcome forwarding c.
func Accepted(c Candidate) Outcome { return Outcome{Accepted: true, File: c} }

// Rejected is the outcome carrying reason.
func Rejected(reason string) Outcome { return Outcome{Reason: reason} }

// Validate applies the extension and size policy. It performs no I/O.
func Validate(c Candidate) Outcome {
	if !strings.EqualFold(filepath.Ext(c.Name), Extension) {
		return Rejected(ReasonExtension)
	}
	if c.Size > MaxFileSize {
		return Rejected(ReasonSize)
	}
	return Accepted(c)
}
