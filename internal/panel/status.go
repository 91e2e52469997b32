// Package panel renders audit progress: the live status panel, a plain line
// renderer for non-terminal output, and the end-of-run summary card.
package panel

// Status is the display state of a step. A step moves pending -> running ->
// one terminal status, exactly once.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusStrong  Status = "strong"
	StatusFair    Status = "fair"
	StatusWeak    Status = "weak"
	StatusInfo    Status = "info"
	StatusError   Status = "error"
)

// Score thresholds, inclusive.
const (
	StrongScore = 85
	FairScore   = 70
)

// StatusFor derives a terminal status from a step's success flag and its
// optional score.
func StatusFor(score *int, success bool) Status {
	switch {
	case !success:
		return StatusError
	case score == nil:
		return StatusInfo
	case *score >= StrongScore:
		return StatusStrong
	case *score >= FairScore:
		return StatusFair
	default:
		return StatusWeak
	}
}

// Terminal reports whether s is a completed status.
func (s Status) Terminal() bool {
	return s != StatusPending && s != StatusRunning
}
