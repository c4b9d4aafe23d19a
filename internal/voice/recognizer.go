package voice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Compile-time interface check.
var _ domain.TranscriptSink = (*Recognizer)(nil)

// DefaultWakeWords are used when none are configured.
var DefaultWakeWords = []string{"hey chef"}

// Option configures the Recognizer.
type Option func(*Recognizer)

// WithWakeWords overrides the wake phrases.
func WithWakeWords(words ...string) Option {
	return func(r *Recognizer) {
		if len(words) > 0 {
			r.wakeWords = words
		}
	}
}

// WithCommandTimeout sets how long the window stays open after a wake
// phrase.
func WithCommandTimeout(d time.Duration) Option {
	return func(r *Recognizer) { r.timeout = d }
}

// WithMatcher replaces the default phrase table.
func WithMatcher(m *Matcher) Option {
	return func(r *Recognizer) { r.matcher = m }
}

// WithWakeHandler is called (under the recognizer lock, so it must not
// block) whenever a window opens.
func WithWakeHandler(fn func()) Option {
	return func(r *Recognizer) { r.onWake = fn }
}

// WithErrorHandler receives speech errors worth showing. fatal means
// listening has stopped and will not come back on its own.
func WithErrorHandler(fn func(err error, fatal bool)) Option {
	return func(r *Recognizer) { r.onError = fn }
}

// WithStateHandler is told about every listening/awaiting change.
func WithStateHandler(fn func(listening, awaiting bool)) Option {
	return func(r *Recognizer) { r.onState = fn }
}

// WithRestartAttempts sets how many consecutive restarts may fail before
// listening is given up.
func WithRestartAttempts(n int) Option {
	return func(r *Recognizer) {
		if n > 0 {
			r.restartAttempts = n
		}
	}
}

// Recognizer gates a speech backend behind a wake phrase.
//
// States:
//  1. IDLE: transcripts are scanned for a wake phrase only.
//  2. AWAITING: the next matching phrase is emitted as a command. The
//     window closes on a match or after the command timeout. A repeated
//     wake phrase restarts the window.
//
// Every window carries a generation number. The timeout callback and
// the emitting transcript both check it under the lock, so exactly one
// of them closes a given window.
type Recognizer struct {
	backend         domain.SpeechBackend
	emit            func(domain.Command)
	log             *logger.Logger
	matcher         *Matcher
	wakeWords       []string
	timeout         time.Duration
	restartAttempts int
	onWake          func()
	onError         func(error, bool)
	onState         func(bool, bool)

	mu          sync.Mutex
	ctx         context.Context
	listening   bool
	awaiting    bool
	gen         uint64
	timer       *time.Timer
	lastCommand domain.Command
}

// New creates a stopped recognizer. emit must not block; it is called
// with the recognizer lock held.
func New(backend domain.SpeechBackend, emit func(domain.Command), log *logger.Logger, opts ...Option) *Recognizer {
	r := &Recognizer{
		backend:         backend,
		emit:            emit,
		log:             log,
		matcher:         MustMatcher(DefaultMappings()),
		wakeWords:       DefaultWakeWords,
		timeout:         5 * time.Second,
		restartAttempts: 2,
		onWake:          func() {},
		onError:         func(error, bool) {},
		onState:         func(bool, bool) {},
	}
	for _, opt := range opts {
		opt(r)
	}

	words := make([]string, 0, len(r.wakeWords))
	for _, w := range r.wakeWords {
		if w = normalize(w); w != "" {
			words = append(words, w)
		}
	}
	// Longest first so "hey chef" is stripped before "chef".
	sort.SliceStable(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	r.wakeWords = words
	return r
}

// Start begins listening. Calling it while listening is a no-op.
func (r *Recognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.listening {
		r.mu.Unlock()
		return nil
	}
	r.ctx = ctx
	r.listening = true
	r.notifyStateLocked()
	r.mu.Unlock()

	if err := r.backend.Start(ctx, r); err != nil {
		r.mu.Lock()
		r.shutdownLocked()
		r.mu.Unlock()
		r.log.Warn("speech backend failed to start: %v", err)
		return fmt.Errorf("start speech: %w", err)
	}
	r.log.Info("voice commands listening (wake: %s)", strings.Join(r.wakeWords, ", "))
	return nil
}

// Stop ends listening. Once Stop returns no further command is emitted,
// even for transcripts already in flight.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	was := r.listening
	r.shutdownLocked()
	r.mu.Unlock()

	if !was {
		return
	}
	if err := r.backend.Stop(); err != nil {
		r.log.Warn("speech backend stop: %v", err)
	}
	r.log.Info("voice commands stopped")
}

// shutdownLocked clears every piece of recognition state.
func (r *Recognizer) shutdownLocked() {
	r.listening = false
	r.closeWindowLocked()
	r.notifyStateLocked()
}

// Listening reports whether the backend is meant to be running.
func (r *Recognizer) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

// Awaiting reports whether a command window is open.
func (r *Recognizer) Awaiting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.awaiting
}

// LastCommand returns the last emitted command, or nil before the first.
func (r *Recognizer) LastCommand() domain.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCommand
}

// ── TranscriptSink ───────────────────────────────────────────────

// OnTranscript feeds one final transcript into the state machine.
func (r *Recognizer) OnTranscript(text string) {
	text = normalize(Clean(text))
	if text == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.listening {
		return
	}

	if rest, ok := r.stripWakeWord(text); ok {
		r.log.Debug("wake phrase heard in %q", text)
		r.openWindowLocked()
		r.onWake()
		if rest == "" {
			return
		}
		text = rest
	} else if !r.awaiting {
		return
	}

	cmd, ok := r.matcher.Match(text)
	if !ok {
		r.log.Debug("no command in %q, still waiting", text)
		return
	}

	r.closeWindowLocked()
	r.lastCommand = cmd
	r.notifyStateLocked()
	r.log.Info("voice command: %s (%q)", cmd.Kind(), text)
	r.emit(cmd)
}

// Wake opens a command window without a spoken wake phrase, for
// acoustic wake-word detectors.
func (r *Recognizer) Wake() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.listening {
		return
	}
	r.openWindowLocked()
	r.onWake()
}

// OnSpeechError classifies a backend error.
func (r *Recognizer) OnSpeechError(err error) {
	kind := domain.SpeechOther
	var se *domain.SpeechError
	if errors.As(err, &se) {
		kind = se.Kind
	}

	switch kind {
	case domain.SpeechNoSpeech:
		return
	case domain.SpeechAborted:
		r.log.Debug("speech aborted")
		return
	case domain.SpeechPermissionDenied:
		r.mu.Lock()
		was := r.listening
		r.shutdownLocked()
		r.mu.Unlock()
		if was {
			_ = r.backend.Stop()
		}
		r.log.Error("microphone access denied: %v", err)
		r.onError(err, true)
		return
	}

	r.log.Warn("speech error: %v", err)
	r.onError(err, false)
	r.restart()
}

// OnSpeechEnd restarts a backend that ended on its own.
func (r *Recognizer) OnSpeechEnd() {
	r.restart()
}

// restart re-starts the backend while listening. After restartAttempts
// consecutive failures listening stops and the error is fatal.
func (r *Recognizer) restart() {
	var lastErr error
	for attempt := 1; attempt <= r.restartAttempts; attempt++ {
		r.mu.Lock()
		if !r.listening {
			r.mu.Unlock()
			return
		}
		ctx := r.ctx
		r.mu.Unlock()

		lastErr = r.backend.Start(ctx, r)
		if lastErr == nil {
			r.log.Debug("speech backend restarted")
			return
		}
		r.log.Warn("speech restart %d/%d failed: %v", attempt, r.restartAttempts, lastErr)
	}

	r.mu.Lock()
	r.shutdownLocked()
	r.mu.Unlock()
	r.onError(fmt.Errorf("restart speech: %w", lastErr), true)
}

// ── Window ───────────────────────────────────────────────────────

func (r *Recognizer) openWindowLocked() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.awaiting = true
	r.timer = time.AfterFunc(r.timeout, func() { r.expire(gen) })
	r.notifyStateLocked()
}

func (r *Recognizer) closeWindowLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
	r.awaiting = false
}

func (r *Recognizer) expire(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen || !r.awaiting {
		return
	}
	r.awaiting = false
	r.timer = nil
	r.log.Debug("command window timed out")
	r.notifyStateLocked()
}

func (r *Recognizer) notifyStateLocked() {
	r.onState(r.listening, r.awaiting)
}

// stripWakeWord reports whether text contains a wake phrase and returns
// what follows it.
func (r *Recognizer) stripWakeWord(text string) (string, bool) {
	for _, w := range r.wakeWords {
		idx := strings.Index(text, w)
		if idx < 0 {
			continue
		}
		if idx > 0 && text[idx-1] != ' ' {
			continue
		}
		end := idx + len(w)
		if end < len(text) && text[end] != ' ' {
			continue
		}
		return strings.Trim(text[end:], " ,.!?"), true
	}
	return "", false
}
