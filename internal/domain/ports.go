package domain

import "context"

// RecipeSource provides recipes. Implementations can be in-memory,
// file-based, or API-backed.
type RecipeSource interface {
	List(ctx context.Context) ([]RecipeSummary, error)
	Get(ctx context.Context, id string) (*Recipe, error)
	Search(ctx context.Context, query string) ([]RecipeSummary, error)
}

// SessionBackend is the persistence collaborator for cooking sessions.
// Every call is request/response; callers treat failures as recoverable.
type SessionBackend interface {
	StartSession(ctx context.Context, userID, recipeID string, servingsMultiplier float64) (string, error)
	// GetActiveSession returns nil and no error when the user has none.
	GetActiveSession(ctx context.Context, userID string) (*SessionSnapshot, error)
	Navigate(ctx context.Context, userID, sessionID string, nav Navigation) (*NavigationResult, error)
	CompleteSession(ctx context.Context, userID, sessionID string, outcome Outcome) error
	AbandonSession(ctx context.Context, userID, sessionID string) error

	CreateTimer(ctx context.Context, userID, sessionID string, spec TimerSpec) (string, error)
	ListActiveTimers(ctx context.Context, sessionID string) ([]Timer, error)
	CancelTimer(ctx context.Context, id string) error
	UpdateTimerRemaining(ctx context.Context, id string, seconds int) error
	CompleteTimer(ctx context.Context, id string) error
}

// TranscriptSink receives pushes from a speech backend. Calls may arrive
// on any goroutine.
type TranscriptSink interface {
	OnTranscript(text string)
	OnSpeechError(err error)
	// OnSpeechEnd reports that the backend stopped on its own.
	OnSpeechEnd()
}

// SpeechBackend is an external speech-to-text capability.
type SpeechBackend interface {
	Start(ctx context.Context, sink TranscriptSink) error
	Stop() error
}

// Notifier delivers messages to the user. Implementations can write to
// a terminal, a websocket, or use text-to-speech.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// Silencer is implemented by notifiers that can cut speech short.
type Silencer interface {
	Silence()
}

// AlertKind selects the sound to play.
type AlertKind int

const (
	AlertWake AlertKind = iota
	AlertTimer
)

// Alerter plays short non-speech signals.
type Alerter interface {
	Alert(ctx context.Context, kind AlertKind, message string) error
}

// Presenter renders controller effects.
type Presenter interface {
	Present(e Effect)
}
