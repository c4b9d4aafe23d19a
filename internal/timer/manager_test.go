package timer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	n := 0
	opts = append([]Option{WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("t%d", n)
	})}, opts...)
	m := NewManager(logger.New(logger.LevelOff, nil), opts...)
	m.Register("s1", "alice")
	return m
}

func TestCreateValidation(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name    string
		user    string
		session string
		seconds int
		wantErr error
	}{
		{"ok", "alice", "s1", 60, nil},
		{"unknown session", "alice", "nope", 60, domain.ErrSessionNotFound},
		{"other user", "bob", "s1", 60, domain.ErrUnauthorized},
		{"zero duration", "alice", "s1", 0, domain.ErrInvalidDuration},
		{"negative duration", "alice", "s1", -5, domain.ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := m.Create(tt.user, tt.session, domain.TimerSpec{Label: "x", DurationSeconds: tt.seconds})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, id)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, id)
		})
	}
}

func TestCreateKeepsPreassignedID(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Create("alice", "s1", domain.TimerSpec{ID: "remote-7", Label: "rice", DurationSeconds: 10})
	require.NoError(t, err)
	assert.Equal(t, "remote-7", id)

	_, err = m.Create("alice", "s1", domain.TimerSpec{ID: "remote-7", Label: "again", DurationSeconds: 10})
	assert.Error(t, err)
}

func TestTimerCompletesAfterExactTicks(t *testing.T) {
	m := newTestManager(t, WithAlmostDoneThreshold(0))
	id, err := m.Create("alice", "s1", domain.TimerSpec{Label: "sauce", DurationSeconds: 300})
	require.NoError(t, err)

	prev := 300
	for i := 1; i < 300; i++ {
		events := m.Tick()
		assert.Empty(t, events, "tick %d", i)

		tm, err := m.Get(id)
		require.NoError(t, err)
		assert.LessOrEqual(t, tm.RemainingSeconds, prev)
		assert.GreaterOrEqual(t, tm.RemainingSeconds, 0)
		assert.Equal(t, domain.TimerActive, tm.Status)
		prev = tm.RemainingSeconds
	}

	events := m.Tick()
	require.Len(t, events, 2)
	completed, ok := events[0].(domain.TimerCompleted)
	require.True(t, ok)
	assert.Equal(t, id, completed.Timer.ID)
	assert.Equal(t, 0, completed.Timer.RemainingSeconds)
	assert.IsType(t, domain.AlertRequested{}, events[1])

	tm, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.TimerDone, tm.Status)

	// Exactly once.
	for i := 0; i < 5; i++ {
		assert.Empty(t, m.Tick())
	}
}

func TestSameTickCompletionsInCreationOrder(t *testing.T) {
	m := newTestManager(t, WithAutoAdvance(true))
	a, _ := m.Create("alice", "s1", domain.TimerSpec{Label: "a", DurationSeconds: 2})
	b, _ := m.Create("alice", "s1", domain.TimerSpec{Label: "b", DurationSeconds: 1})
	c, _ := m.Create("alice", "s1", domain.TimerSpec{Label: "c", DurationSeconds: 2, StepIndex: domain.IntPtr(3)})

	first := m.Tick()
	require.Len(t, first, 3)
	assert.Equal(t, b, first[0].TimerID())

	second := m.Tick()
	require.Len(t, second, 6)
	var completed []string
	for _, ev := range second {
		if tc, ok := ev.(domain.TimerCompleted); ok {
			completed = append(completed, tc.Timer.ID)
		}
	}
	assert.Equal(t, []string{a, c}, completed)

	adv, ok := second[5].(domain.AutoAdvanceRequested)
	require.True(t, ok)
	assert.Equal(t, c, adv.ID)
	require.NotNil(t, adv.StepIndex)
	assert.Equal(t, 3, *adv.StepIndex)
}

func TestPauseResumeCancel(t *testing.T) {
	m := newTestManager(t)
	id, _ := m.Create("alice", "s1", domain.TimerSpec{Label: "pasta", DurationSeconds: 5})

	m.Tick()
	require.NoError(t, m.Pause(id))
	for i := 0; i < 10; i++ {
		assert.Empty(t, m.Tick())
	}
	tm, _ := m.Get(id)
	assert.Equal(t, 4, tm.RemainingSeconds)
	assert.Equal(t, domain.TimerPaused, tm.Status)

	require.NoError(t, m.Resume(id))
	m.Tick()
	tm, _ = m.Get(id)
	assert.Equal(t, 3, tm.RemainingSeconds)

	require.NoError(t, m.Cancel(id))
	tm, _ = m.Get(id)
	assert.Equal(t, domain.TimerCancelled, tm.Status)

	// Terminal timers ignore further transitions.
	assert.NoError(t, m.Pause(id))
	assert.NoError(t, m.Resume(id))
	assert.NoError(t, m.Cancel(id))
	tm, _ = m.Get(id)
	assert.Equal(t, domain.TimerCancelled, tm.Status)

	assert.ErrorIs(t, m.Pause("missing"), domain.ErrTimerNotFound)
	assert.ErrorIs(t, m.Cancel("missing"), domain.ErrTimerNotFound)
}

func TestListActive(t *testing.T) {
	m := newTestManager(t)
	m.Register("s2", "bob")

	a, _ := m.Create("alice", "s1", domain.TimerSpec{Label: "a", DurationSeconds: 10})
	b, _ := m.Create("alice", "s1", domain.TimerSpec{Label: "b", DurationSeconds: 10})
	c, _ := m.Create("alice", "s1", domain.TimerSpec{Label: "c", DurationSeconds: 1})
	_, _ = m.Create("bob", "s2", domain.TimerSpec{Label: "other", DurationSeconds: 10})

	require.NoError(t, m.Pause(b))
	m.Tick() // c completes

	var ids []string
	for _, tm := range m.ListActive("s1") {
		ids = append(ids, tm.ID)
	}
	assert.Equal(t, []string{a, b}, ids)
	assert.NotContains(t, ids, c)
}

func TestAlmostDoneOnce(t *testing.T) {
	m := newTestManager(t, WithAlmostDoneThreshold(30*time.Second))
	_, _ = m.Create("alice", "s1", domain.TimerSpec{Label: "roast", DurationSeconds: 90})
	_, _ = m.Create("alice", "s1", domain.TimerSpec{Label: "short", DurationSeconds: 40})

	var warnings int
	for i := 0; i < 89; i++ {
		for _, ev := range m.Tick() {
			if w, ok := ev.(domain.TimerAlmostDone); ok {
				warnings++
				assert.Equal(t, "roast", w.Timer.Label)
				assert.Equal(t, 30, w.Timer.RemainingSeconds)
			}
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestCloseSession(t *testing.T) {
	m := newTestManager(t)
	a, _ := m.Create("alice", "s1", domain.TimerSpec{Label: "a", DurationSeconds: 1})
	b, _ := m.Create("alice", "s1", domain.TimerSpec{Label: "b", DurationSeconds: 5})
	require.NoError(t, m.Pause(b))

	cancelled := m.CloseSession("s1")
	assert.ElementsMatch(t, []string{a, b}, cancelled)
	assert.Empty(t, m.ListActive("s1"))
	assert.Empty(t, m.Tick(), "closed sessions never complete timers")

	_, err := m.Create("alice", "s1", domain.TimerSpec{Label: "late", DurationSeconds: 5})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRestore(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Restore("alice", domain.Timer{
		ID: "r1", SessionID: "s1", Label: "stock", DurationSeconds: 600,
		RemainingSeconds: 42, Status: domain.TimerPaused,
	}))
	require.NoError(t, m.Restore("alice", domain.Timer{
		ID: "r2", SessionID: "s1", Label: "done", DurationSeconds: 60, Status: domain.TimerDone,
	}))

	active := m.ListActive("s1")
	require.Len(t, active, 1)
	assert.Equal(t, 42, active[0].RemainingSeconds)
	assert.Equal(t, domain.TimerPaused, active[0].Status)
}
