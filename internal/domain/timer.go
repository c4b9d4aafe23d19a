package domain

import "time"

// Timer is a countdown owned by a session.
type Timer struct {
	ID               string
	SessionID        string
	Label            string
	DurationSeconds  int
	RemainingSeconds int
	Status           TimerStatus
	StepIndex        *int
	AlertMessage     string
	CreatedAt        time.Time
}

// TimerSpec describes a timer to create. ID is optional; when empty the
// timer manager assigns one.
type TimerSpec struct {
	ID              string
	Label           string
	DurationSeconds int
	StepIndex       *int
	AlertMessage    string
}

// TimerStatus tracks the state of a timer.
type TimerStatus int

const (
	TimerActive TimerStatus = iota
	TimerPaused
	TimerDone
	TimerCancelled
)

// String returns a human-readable timer status.
func (s TimerStatus) String() string {
	switch s {
	case TimerActive:
		return "active"
	case TimerPaused:
		return "paused"
	case TimerDone:
		return "completed"
	case TimerCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the timer can no longer change.
func (s TimerStatus) Terminal() bool {
	return s == TimerDone || s == TimerCancelled
}

// TimerStatusFromString parses the String form of a timer status.
func TimerStatusFromString(s string) (TimerStatus, bool) {
	switch s {
	case "active":
		return TimerActive, true
	case "paused":
		return TimerPaused, true
	case "completed":
		return TimerDone, true
	case "cancelled":
		return TimerCancelled, true
	}
	return TimerActive, false
}

// IntPtr returns a pointer to v. Handy for optional step indexes.
func IntPtr(v int) *int { return &v }
