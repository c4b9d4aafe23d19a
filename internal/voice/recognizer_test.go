package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

// ── Test doubles ─────────────────────────────────────────────────

type fakeBackend struct {
	mu       sync.Mutex
	starts   int
	stops    int
	failNext int
}

func (b *fakeBackend) Start(ctx context.Context, sink domain.TranscriptSink) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts++
	if b.failNext > 0 {
		b.failNext--
		return errors.New("microphone busy")
	}
	return nil
}

func (b *fakeBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	return nil
}

func (b *fakeBackend) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts, b.stops
}

func (b *fakeBackend) failStarts(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = n
}

type recorded struct {
	err   error
	fatal bool
}

type harness struct {
	mu       sync.Mutex
	commands []domain.Command
	wakes    int
	errs     []recorded
}

func (h *harness) emit(c domain.Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, c)
}

func (h *harness) getCommands() []domain.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Command(nil), h.commands...)
}

func (h *harness) getErrs() []recorded {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recorded(nil), h.errs...)
}

func newTestRecognizer(t *testing.T, opts ...Option) (*Recognizer, *fakeBackend, *harness) {
	t.Helper()
	b := &fakeBackend{}
	h := &harness{}
	opts = append([]Option{
		WithWakeHandler(func() { h.wakes++ }),
		WithErrorHandler(func(err error, fatal bool) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.errs = append(h.errs, recorded{err, fatal})
		}),
	}, opts...)
	r := New(b, h.emit, logger.New(logger.LevelOff, nil), opts...)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(r.Stop)
	return r, b, h
}

// ── Tests ────────────────────────────────────────────────────────

func TestWakeThenCommand(t *testing.T) {
	r, _, h := newTestRecognizer(t, WithCommandTimeout(time.Minute))
	assert.Nil(t, r.LastCommand())

	r.OnTranscript("next step")
	assert.Empty(t, h.getCommands(), "commands need a wake phrase")
	assert.False(t, r.Awaiting())

	r.OnTranscript("Hey chef")
	assert.True(t, r.Awaiting())
	assert.Equal(t, 1, h.wakes)

	r.OnTranscript("banana bread")
	assert.True(t, r.Awaiting(), "unmatched text keeps the window open")
	assert.Empty(t, h.getCommands())

	r.OnTranscript("next step")
	assert.Equal(t, []domain.Command{domain.NextStep{}}, h.getCommands())
	assert.False(t, r.Awaiting())
	assert.Equal(t, domain.NextStep{}, r.LastCommand())

	r.OnTranscript("next step")
	assert.Len(t, h.getCommands(), 1, "window closed after one command")
}

func TestCommandInWakeUtterance(t *testing.T) {
	r, _, h := newTestRecognizer(t)

	r.OnTranscript("Hey chef, set a timer for 5 minutes")
	assert.Equal(t, []domain.Command{domain.SetTimer{Seconds: 300}}, h.getCommands())
	assert.False(t, r.Awaiting())
}

func TestWakeWordInsideSentence(t *testing.T) {
	r, _, h := newTestRecognizer(t)

	r.OnTranscript("okay so hey chef go back")
	assert.Equal(t, []domain.Command{domain.PrevStep{}}, h.getCommands())

	r.OnTranscript("they chefed it")
	assert.False(t, r.Awaiting(), "wake phrase must be whole words")
}

func TestWindowTimesOut(t *testing.T) {
	r, _, h := newTestRecognizer(t, WithCommandTimeout(20*time.Millisecond))

	r.OnTranscript("hey chef")
	require.True(t, r.Awaiting())

	assert.Eventually(t, func() bool { return !r.Awaiting() }, time.Second, 5*time.Millisecond)

	r.OnTranscript("next")
	assert.Empty(t, h.getCommands())
}

func TestSecondWakeRestartsWindow(t *testing.T) {
	r, _, _ := newTestRecognizer(t, WithCommandTimeout(200*time.Millisecond))

	r.OnTranscript("hey chef")
	time.Sleep(120 * time.Millisecond)
	r.OnTranscript("hey chef")
	time.Sleep(120 * time.Millisecond)

	assert.True(t, r.Awaiting(), "first deadline passed but the window was restarted")
	assert.Eventually(t, func() bool { return !r.Awaiting() }, time.Second, 5*time.Millisecond)
}

func TestCommandAndTimeoutCloseWindowOnce(t *testing.T) {
	for i := 0; i < 200; i++ {
		var mu sync.Mutex
		opened := false
		closes := 0
		r, _, h := newTestRecognizer(t,
			WithCommandTimeout(time.Millisecond),
			WithStateHandler(func(listening, awaiting bool) {
				mu.Lock()
				defer mu.Unlock()
				switch {
				case listening && awaiting:
					opened = true
				case listening && opened:
					closes++
				}
			}),
		)

		r.Wake()
		var wg sync.WaitGroup
		wg.Add(1)
		go func(delay time.Duration) {
			defer wg.Done()
			time.Sleep(delay)
			r.OnTranscript("next")
		}(time.Duration(i%4) * 400 * time.Microsecond)
		wg.Wait()

		require.Eventually(t, func() bool { return !r.Awaiting() }, time.Second, time.Millisecond)
		// Let a timer that lost the race run to completion.
		time.Sleep(3 * time.Millisecond)

		commands := len(h.getCommands())
		mu.Lock()
		got := closes
		mu.Unlock()
		require.LessOrEqual(t, commands, 1, "iteration %d", i)
		require.Equal(t, 1, got, "iteration %d: window closed by both command and timeout", i)
		if commands == 1 {
			require.Equal(t, domain.NextStep{}, r.LastCommand())
		} else {
			require.Nil(t, r.LastCommand())
		}
		r.Stop()
	}
}

func TestStopDropsLateTranscripts(t *testing.T) {
	r, b, h := newTestRecognizer(t)

	r.OnTranscript("hey chef")
	r.Stop()

	r.OnTranscript("next")
	r.OnTranscript("hey chef next")
	assert.Empty(t, h.getCommands())
	assert.False(t, r.Awaiting())
	assert.False(t, r.Listening())

	_, stops := b.counts()
	assert.Equal(t, 1, stops)

	r.Stop()
	_, stops = b.counts()
	assert.Equal(t, 1, stops, "second Stop does not touch the backend")
}

func TestStartIsIdempotent(t *testing.T) {
	r, b, _ := newTestRecognizer(t)

	require.NoError(t, r.Start(context.Background()))
	starts, _ := b.counts()
	assert.Equal(t, 1, starts)
}

func TestStartFailure(t *testing.T) {
	b := &fakeBackend{failNext: 1}
	r := New(b, func(domain.Command) {}, logger.New(logger.LevelOff, nil))

	assert.Error(t, r.Start(context.Background()))
	assert.False(t, r.Listening())
}

func TestWakeFromDetector(t *testing.T) {
	r, _, h := newTestRecognizer(t)

	r.Wake()
	assert.True(t, r.Awaiting())
	r.OnTranscript("repeat")
	assert.Equal(t, []domain.Command{domain.RepeatStep{}}, h.getCommands())
}

func TestSpeechErrors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		failRestarts  int
		wantListening bool
		wantErrs      int
		wantFatal     bool
		wantStarts    int
	}{
		{"no speech is ignored", &domain.SpeechError{Kind: domain.SpeechNoSpeech}, 0, true, 0, false, 1},
		{"aborted is a normal stop", &domain.SpeechError{Kind: domain.SpeechAborted}, 0, true, 0, false, 1},
		{"permission denied is fatal", &domain.SpeechError{Kind: domain.SpeechPermissionDenied}, 0, false, 1, true, 1},
		{"network error restarts", &domain.SpeechError{Kind: domain.SpeechOther, Message: "network"}, 0, true, 1, false, 2},
		{"plain error restarts", errors.New("boom"), 0, true, 1, false, 2},
		{"one failed restart recovers", errors.New("boom"), 1, true, 1, false, 3},
		{"two failed restarts are fatal", errors.New("boom"), 2, false, 2, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, b, h := newTestRecognizer(t)
			b.failStarts(tt.failRestarts)

			r.OnSpeechError(tt.err)

			assert.Equal(t, tt.wantListening, r.Listening())
			errs := h.getErrs()
			require.Len(t, errs, tt.wantErrs)
			if tt.wantErrs > 0 {
				assert.Equal(t, tt.wantFatal, errs[len(errs)-1].fatal)
			}
			starts, _ := b.counts()
			assert.Equal(t, tt.wantStarts, starts)
		})
	}
}

func TestSpeechEndRestarts(t *testing.T) {
	r, b, _ := newTestRecognizer(t)

	r.OnSpeechEnd()
	starts, _ := b.counts()
	assert.Equal(t, 2, starts)

	r.Stop()
	r.OnSpeechEnd()
	starts, _ = b.counts()
	assert.Equal(t, 2, starts, "no restart once stopped")
}

func TestStateHandler(t *testing.T) {
	var mu sync.Mutex
	var states [][2]bool
	r, _, _ := newTestRecognizer(t, WithStateHandler(func(l, a bool) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, [2]bool{l, a})
	}))

	r.OnTranscript("hey chef")
	r.OnTranscript("next")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][2]bool{{true, false}, {true, true}, {true, false}}, states)
}
