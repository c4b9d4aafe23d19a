package domain

// Effect is a presentation request emitted by the session controller.
// Presenters render what they can and ignore the rest.
type Effect interface {
	effect()
}

// StepShown carries everything needed to render the current step.
type StepShown struct {
	Step        int
	Total       int
	Instruction string
	Matches     []IngredientMatch
	Ingredients []string
	Checked     map[int]bool
	Completed   map[int]bool
}

// IngredientsShown asks the UI to open the ingredient list.
type IngredientsShown struct {
	Ingredients []string
	Matches     []IngredientMatch
	Checked     map[int]bool
}

// TimersChanged carries the active and paused timers after a change.
type TimersChanged struct{ Timers []Timer }

// VoiceChanged reports the recognizer's listening state.
type VoiceChanged struct{ Listening bool }

// FullscreenToggled asks the UI to flip fullscreen.
type FullscreenToggled struct{}

// SettingsOpened asks the UI to open cook-mode settings.
type SettingsOpened struct{}

// ExitRequested asks the UI to leave cook mode.
type ExitRequested struct{}

// SessionEnded reports a terminal transition.
type SessionEnded struct{ Status SessionStatus }

// ErrorRaised reports a user-visible failure.
type ErrorRaised struct {
	Message string
	Fatal   bool
}

func (StepShown) effect()         {}
func (IngredientsShown) effect()  {}
func (TimersChanged) effect()     {}
func (VoiceChanged) effect()      {}
func (FullscreenToggled) effect() {}
func (SettingsOpened) effect()    {}
func (ExitRequested) effect()     {}
func (SessionEnded) effect()      {}
func (ErrorRaised) effect()       {}
