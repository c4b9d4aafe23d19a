package speech

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

type recordingSink struct {
	mu    sync.Mutex
	texts []string
	errs  []error
	ended int
	onEnd func()
}

func (s *recordingSink) OnTranscript(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *recordingSink) OnSpeechError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) OnSpeechEnd() {
	s.mu.Lock()
	s.ended++
	fn := s.onEnd
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *recordingSink) snapshot() ([]string, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...), len(s.errs), s.ended
}

// script returns a recorder that replays clips and then waits for
// cancellation.
func script(clips ...string) RecordFunc {
	var i atomic.Int32
	return func(ctx context.Context, _ time.Duration) (string, error) {
		n := int(i.Add(1)) - 1
		if n < len(clips) {
			return clips[n], nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	}
}

func newTestEar(opts ...EarOption) *Ear {
	e := NewEar("whisper-cli", "model.bin", logger.New(logger.LevelOff, nil), opts...)
	e.backoff = time.Millisecond
	return e
}

func TestEarDeliversCleanTranscripts(t *testing.T) {
	e := newTestEar(WithRecorder(script("[BLANK_AUDIO]", " Hey chef, next step. ", "(keyboard clicking)", "thank you.")))
	sink := &recordingSink{}

	require.NoError(t, e.Start(context.Background(), sink))
	assert.Eventually(t, func() bool {
		texts, _, _ := sink.snapshot()
		return len(texts) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, e.Stop())

	texts, errs, ended := sink.snapshot()
	assert.Equal(t, []string{"Hey chef, next step."}, texts)
	assert.Zero(t, errs)
	assert.Zero(t, ended)
}

func TestEarGivesUpAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	e := newTestEar(WithRecorder(func(context.Context, time.Duration) (string, error) {
		calls.Add(1)
		return "", errors.New("device busy")
	}))
	sink := &recordingSink{}

	require.NoError(t, e.Start(context.Background(), sink))
	assert.Eventually(t, func() bool {
		_, _, ended := sink.snapshot()
		return ended == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, errs, _ := sink.snapshot()
	assert.Equal(t, maxFailures, errs)
	assert.Equal(t, int32(maxFailures), calls.Load())

	// A later Start begins a new run.
	require.NoError(t, e.Start(context.Background(), sink))
	require.NoError(t, e.Stop())
}

func TestEarRestartFromEndHandler(t *testing.T) {
	fail := atomic.Bool{}
	fail.Store(true)
	e := newTestEar(WithRecorder(func(ctx context.Context, _ time.Duration) (string, error) {
		if fail.Load() {
			return "", errors.New("device busy")
		}
		<-ctx.Done()
		return "", ctx.Err()
	}))

	sink := &recordingSink{}
	restarted := make(chan error, 1)
	sink.onEnd = func() {
		fail.Store(false)
		restarted <- e.Start(context.Background(), sink)
	}

	require.NoError(t, e.Start(context.Background(), sink))
	select {
	case err := <-restarted:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ear never ended")
	}
	require.NoError(t, e.Stop())
}

func TestEarSkipsWhileBusy(t *testing.T) {
	var busy atomic.Bool
	busy.Store(true)
	var calls atomic.Int32
	e := newTestEar(
		WithBusy(busy.Load),
		WithRecorder(func(ctx context.Context, _ time.Duration) (string, error) {
			calls.Add(1)
			<-ctx.Done()
			return "", ctx.Err()
		}),
	)

	require.NoError(t, e.Start(context.Background(), &recordingSink{}))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())

	busy.Store(false)
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, e.Stop())
}

func TestEarStartIsIdempotent(t *testing.T) {
	e := newTestEar(WithRecorder(script()))
	sink := &recordingSink{}
	require.NoError(t, e.Start(context.Background(), sink))
	require.NoError(t, e.Start(context.Background(), sink))
	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())
}

func TestEarProbe(t *testing.T) {
	e := NewEar("definitely-not-a-whisper-binary", "missing.bin", logger.New(logger.LevelOff, nil))
	err := e.Start(context.Background(), &recordingSink{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whisper binary")
}

func TestUnavailable(t *testing.T) {
	var b domain.SpeechBackend = Unavailable{}
	assert.ErrorIs(t, b.Start(context.Background(), &recordingSink{}), ErrNoRecognizer)
	assert.NoError(t, b.Stop())
}
