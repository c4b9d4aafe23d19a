package speech

import (
	"context"
	"errors"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

// ErrNoRecognizer is returned when voice input is not configured.
var ErrNoRecognizer = errors.New("speech recognition is not configured")

// Compile-time interface check.
var _ domain.SpeechBackend = Unavailable{}

// Unavailable is the speech backend used when no recognizer is set up.
// Turning voice on reports why it cannot work.
type Unavailable struct{}

// Start always fails.
func (Unavailable) Start(context.Context, domain.TranscriptSink) error { return ErrNoRecognizer }

// Stop does nothing.
func (Unavailable) Stop() error { return nil }
