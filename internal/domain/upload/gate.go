package upload

// Gate holds the inline rejection shown next to the upload control and
// refuses all input while disabled. It is not safe for concurrent use; the
// owner serializes access.
type Gate struct {
	disabled  bool
	rejection string
}

// Offer validates the first of files. The boolean is false when nothing was
// considered: the gate is disabled or files is empty. A rejection is recorded
// and returned but must not be forwarded.
func (g *Gate) Offer(files []Candidate) (Outcome, bool) {
	if g.disabled || len(files) == 0 {
		return Outcome{}, false
	}
	out := Validate(files[0])
	if out.Accepted {
		g.rejection = ""
	} else {
		g.rejection = out.Reason
	}
	return out, true
}

// SetDisabled toggles whether the gate accepts input.
func (g *Gate) SetDisabled(disabled bool) { g.disabled = disabled }

// Disabled reports whether input is currently refused.
func (g *Gate) Disabled() bool { return g.disabled }

// Rejection is the last rejection reason, empty after an accepted file.
func (g *Gate) Rejection() string { return g.rejection }

// Clear drops the recorded rejection.
func (g *Gate) Clear() { g.rejection = "" }
