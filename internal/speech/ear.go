package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
	"github.com/hammamikhairi/cookmode/internal/voice"
)

// Compile-time interface check.
var _ domain.SpeechBackend = (*Ear)(nil)

// RecordFunc records for d and returns the transcript.
type RecordFunc func(ctx context.Context, d time.Duration) (string, error)

// EarOption configures the Ear.
type EarOption func(*Ear)

// WithClipLength sets how long each recorded clip lasts.
func WithClipLength(d time.Duration) EarOption {
	return func(e *Ear) {
		if d > 0 {
			e.clip = d
		}
	}
}

// WithBusy pauses recording while busy reports true, so the ear does not
// transcribe the speaker.
func WithBusy(fn func() bool) EarOption {
	return func(e *Ear) { e.busy = fn }
}

// WithRecorder replaces the Whisper recorder.
func WithRecorder(fn RecordFunc) EarOption {
	return func(e *Ear) {
		e.record = fn
		e.probe = func() error { return nil }
	}
}

// WithTempDir sets where clips are written before transcription.
func WithTempDir(dir string) EarOption {
	return func(e *Ear) { e.tempDir = dir }
}

// maxFailures is how many clips in a row may fail before the ear gives
// up and reports that it ended.
const maxFailures = 3

// Ear is a speech backend that records the microphone in short clips
// and transcribes them with a local Whisper model. Every non-empty
// transcript goes to the sink; the recognizer decides what is a command.
type Ear struct {
	log     *logger.Logger
	clip    time.Duration
	tempDir string
	busy    func() bool
	record  RecordFunc
	probe   func() error
	backoff time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEar creates a stopped ear for the whisper-cli binary and GGML model.
func NewEar(whisperBin, modelPath string, log *logger.Logger, opts ...EarOption) *Ear {
	e := &Ear{
		log:     log,
		clip:    3 * time.Second,
		tempDir: os.TempDir(),
		busy:    func() bool { return false },
		backoff: 2 * time.Second,
	}
	e.record = e.whisper(whisperBin, modelPath)
	e.probe = func() error {
		if _, err := exec.LookPath(whisperBin); err != nil {
			return fmt.Errorf("whisper binary %q: %w", whisperBin, err)
		}
		if _, err := os.Stat(modelPath); err != nil {
			return fmt.Errorf("whisper model: %w", err)
		}
		return nil
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins recording. Starting a running ear is a no-op.
func (e *Ear) Start(ctx context.Context, sink domain.TranscriptSink) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return nil
	}
	if err := e.probe(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(runCtx, sink, e.done)
	e.log.Info("ear listening (%s clips)", e.clip)
	return nil
}

// Stop ends recording and waits for the current clip to be dropped.
func (e *Ear) Stop() error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	e.log.Info("ear stopped")
	return nil
}

func (e *Ear) run(ctx context.Context, sink domain.TranscriptSink, done chan struct{}) {
	defer close(done)

	failures := 0
	for ctx.Err() == nil {
		if e.busy() {
			sleep(ctx, 200*time.Millisecond)
			continue
		}

		text, err := e.record(ctx, e.clip)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			e.log.Warn("ear: clip %d/%d failed: %v", failures, maxFailures, err)
			sink.OnSpeechError(&domain.SpeechError{Kind: domain.SpeechOther, Message: err.Error()})
			if failures >= maxFailures {
				e.ended(done)
				sink.OnSpeechEnd()
				return
			}
			sleep(ctx, e.backoff)
			continue
		}
		failures = 0

		// The speaker may have started mid-clip.
		if e.busy() {
			continue
		}
		if text = voice.Clean(text); text != "" {
			e.log.Debug("ear heard %q", text)
			sink.OnTranscript(text)
		}
	}
}

// ended forgets a run that stopped by itself so the next Start begins a
// fresh one.
func (e *Ear) ended(done chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done == done {
		e.cancel()
		e.cancel, e.done = nil, nil
	}
}

// whisper records one clip with the microphone and transcribes it.
func (e *Ear) whisper(bin, model string) RecordFunc {
	return func(ctx context.Context, d time.Duration) (string, error) {
		result := make(chan string, 1)
		t, err := audiotranscriber.NewTranscriber(bin, model, e.tempDir, "wav",
			func(text string) { result <- text },
			e.log.GetLevel() >= logger.LevelVerbose)
		if err != nil {
			return "", fmt.Errorf("whisper init: %w", err)
		}
		if err := t.Start(); err != nil {
			return "", fmt.Errorf("recording: %w", err)
		}

		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
		t.Stop()

		select {
		case text := <-result:
			return text, nil
		case <-time.After(30 * time.Second):
			return "", errors.New("whisper did not return a transcript")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
