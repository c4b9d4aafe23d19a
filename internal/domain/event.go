package domain

// TimerEvent is produced by the timer manager on tick. The manager never
// acts on these itself; the session controller does.
type TimerEvent interface {
	TimerID() string
	timerEvent()
}

// TimerCompleted is raised exactly once when a timer reaches zero.
type TimerCompleted struct{ Timer Timer }

// TimerAlmostDone is raised once when a timer crosses the warning
// threshold.
type TimerAlmostDone struct{ Timer Timer }

// AlertRequested asks for an audible alarm.
type AlertRequested struct {
	ID        string
	SessionID string
	Label     string
	Message   string
}

// AutoAdvanceRequested asks the controller to move to the next step.
type AutoAdvanceRequested struct {
	ID        string
	SessionID string
	StepIndex *int
}

func (e TimerCompleted) TimerID() string       { return e.Timer.ID }
func (e TimerAlmostDone) TimerID() string      { return e.Timer.ID }
func (e AlertRequested) TimerID() string       { return e.ID }
func (e AutoAdvanceRequested) TimerID() string { return e.ID }

func (TimerCompleted) timerEvent()       {}
func (TimerAlmostDone) timerEvent()      {}
func (AlertRequested) timerEvent()       {}
func (AutoAdvanceRequested) timerEvent() {}
