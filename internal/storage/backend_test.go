package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
	"github.com/hammamikhairi/cookmode/internal/recipe"
)

// backends returns a fresh instance of every SessionBackend so the same
// behaviour is checked against each of them.
func backends(t *testing.T) map[string]domain.SessionBackend {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	src := recipe.NewMemorySource(log)

	db, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "cook.db"), src, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]domain.SessionBackend{
		"memory": NewMemoryBackend(src, log),
		"sqlite": db,
	}
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := b.StartSession(ctx, "alice", "chicken-alfredo", 2)
			require.NoError(t, err)
			assert.NotEmpty(t, id)

			snap, err := b.GetActiveSession(ctx, "alice")
			require.NoError(t, err)
			require.NotNil(t, snap)
			assert.Equal(t, id, snap.ID)
			assert.Equal(t, "Chicken Alfredo", snap.RecipeTitle)
			assert.Equal(t, 2.0, snap.ServingsMultiplier)
			assert.Equal(t, 0, snap.CurrentStep)
			assert.Len(t, snap.Instructions, 8)
			assert.Equal(t, "250 g spaghetti", snap.Ingredients[0])
			assert.Equal(t, domain.SessionActive, snap.Status)

			none, err := b.GetActiveSession(ctx, "bob")
			require.NoError(t, err)
			assert.Nil(t, none)
		})
	}
}

func TestStartSessionErrors(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.StartSession(ctx, "", "chicken-alfredo", 1)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)

			_, err = b.StartSession(ctx, "alice", "toast", 1)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestStartSessionAbandonsPrevious(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first, err := b.StartSession(ctx, "alice", "chicken-alfredo", 1)
			require.NoError(t, err)
			_, err = b.CreateTimer(ctx, "alice", first, domain.TimerSpec{Label: "boil", DurationSeconds: 60})
			require.NoError(t, err)

			second, err := b.StartSession(ctx, "alice", "vegetable-stir-fry", 1)
			require.NoError(t, err)

			snap, err := b.GetActiveSession(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, second, snap.ID)

			timers, err := b.ListActiveTimers(ctx, first)
			require.NoError(t, err)
			assert.Empty(t, timers)

			_, err = b.Navigate(ctx, "alice", first, domain.Navigation{Direction: domain.DirNext})
			assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		})
	}
}

func TestNavigate(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := b.StartSession(ctx, "alice", "chicken-alfredo", 1)
			require.NoError(t, err)

			steps := []struct {
				nav      domain.Navigation
				want     int
				complete bool
			}{
				{domain.Navigation{Direction: domain.DirPrev}, 0, false},
				{domain.Navigation{Direction: domain.DirNext}, 1, false},
				{domain.Navigation{Direction: domain.DirRepeat}, 1, false},
				{domain.Navigation{Direction: domain.DirJump, Step: 7}, 7, true},
				{domain.Navigation{Direction: domain.DirNext}, 7, true},
				{domain.Navigation{Direction: domain.DirJump, Step: 3}, 3, false},
			}
			for _, s := range steps {
				res, err := b.Navigate(ctx, "alice", id, s.nav)
				require.NoError(t, err)
				assert.Equal(t, s.want, res.NewStep, "after %s", s.nav.Direction)
				assert.Equal(t, 8, res.TotalSteps)
				assert.Equal(t, s.complete, res.IsComplete)
				assert.NotEmpty(t, res.Instruction)
			}

			snap, err := b.GetActiveSession(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 3, snap.CurrentStep)

			_, err = b.Navigate(ctx, "alice", id, domain.Navigation{Direction: domain.DirJump, Step: 8})
			assert.ErrorIs(t, err, domain.ErrInvalidStep)

			_, err = b.Navigate(ctx, "mallory", id, domain.Navigation{Direction: domain.DirNext})
			assert.ErrorIs(t, err, domain.ErrUnauthorized)

			_, err = b.Navigate(ctx, "alice", "missing", domain.Navigation{Direction: domain.DirNext})
			assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		})
	}
}

func TestCompleteSession(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := b.StartSession(ctx, "alice", "buttermilk-pancakes", 1)
			require.NoError(t, err)
			_, err = b.CreateTimer(ctx, "alice", id, domain.TimerSpec{Label: "rest", DurationSeconds: 300})
			require.NoError(t, err)

			err = b.CompleteSession(ctx, "alice", id, domain.Outcome{Rating: domain.IntPtr(5), Notes: "fluffy"})
			require.NoError(t, err)

			snap, err := b.GetActiveSession(ctx, "alice")
			require.NoError(t, err)
			assert.Nil(t, snap)

			timers, err := b.ListActiveTimers(ctx, id)
			require.NoError(t, err)
			assert.Empty(t, timers)

			err = b.CompleteSession(ctx, "alice", id, domain.Outcome{})
			assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		})
	}
}

func TestAbandonSession(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := b.StartSession(ctx, "alice", "chicken-alfredo", 1)
			require.NoError(t, err)

			assert.ErrorIs(t, b.AbandonSession(ctx, "mallory", id), domain.ErrUnauthorized)
			require.NoError(t, b.AbandonSession(ctx, "alice", id))
			assert.ErrorIs(t, b.AbandonSession(ctx, "alice", id), domain.ErrNotFound)
			assert.ErrorIs(t, b.AbandonSession(ctx, "alice", "missing"), domain.ErrNotFound)
		})
	}
}

func TestTimers(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			sid, err := b.StartSession(ctx, "alice", "chicken-alfredo", 1)
			require.NoError(t, err)

			_, err = b.CreateTimer(ctx, "alice", sid, domain.TimerSpec{Label: "zero"})
			assert.ErrorIs(t, err, domain.ErrInvalidDuration)
			_, err = b.CreateTimer(ctx, "mallory", sid, domain.TimerSpec{Label: "x", DurationSeconds: 5})
			assert.ErrorIs(t, err, domain.ErrUnauthorized)

			boil, err := b.CreateTimer(ctx, "alice", sid, domain.TimerSpec{
				ID: "boil", Label: "Boil", DurationSeconds: 600, StepIndex: domain.IntPtr(0),
			})
			require.NoError(t, err)
			assert.Equal(t, "boil", boil)

			sear, err := b.CreateTimer(ctx, "alice", sid, domain.TimerSpec{
				Label: "Sear", DurationSeconds: 360, AlertMessage: "Flip the chicken.",
			})
			require.NoError(t, err)
			assert.NotEmpty(t, sear)

			require.NoError(t, b.UpdateTimerRemaining(ctx, boil, 540))

			timers, err := b.ListActiveTimers(ctx, sid)
			require.NoError(t, err)
			require.Len(t, timers, 2)
			assert.Equal(t, "Boil", timers[0].Label)
			assert.Equal(t, 540, timers[0].RemainingSeconds)
			require.NotNil(t, timers[0].StepIndex)
			assert.Equal(t, 0, *timers[0].StepIndex)
			assert.Equal(t, "Sear", timers[1].Label)
			assert.Nil(t, timers[1].StepIndex)
			assert.Equal(t, "Flip the chicken.", timers[1].AlertMessage)

			require.NoError(t, b.CompleteTimer(ctx, boil))
			require.NoError(t, b.CancelTimer(ctx, sear))
			// Terminal timers stay terminal.
			require.NoError(t, b.CancelTimer(ctx, boil))

			timers, err = b.ListActiveTimers(ctx, sid)
			require.NoError(t, err)
			assert.Empty(t, timers)

			assert.ErrorIs(t, b.CancelTimer(ctx, "missing"), domain.ErrTimerNotFound)
			assert.ErrorIs(t, b.CompleteTimer(ctx, "missing"), domain.ErrTimerNotFound)
			assert.ErrorIs(t, b.UpdateTimerRemaining(ctx, "missing", 3), domain.ErrTimerNotFound)
		})
	}
}

func TestApplyNavigation(t *testing.T) {
	steps := []string{"a", "b", "c"}
	tests := []struct {
		name    string
		current int
		nav     domain.Navigation
		want    int
		wantErr error
	}{
		{"next", 0, domain.Navigation{Direction: domain.DirNext}, 1, nil},
		{"next saturates", 2, domain.Navigation{Direction: domain.DirNext}, 2, nil},
		{"prev saturates", 0, domain.Navigation{Direction: domain.DirPrev}, 0, nil},
		{"repeat", 1, domain.Navigation{Direction: domain.DirRepeat}, 1, nil},
		{"jump", 0, domain.Navigation{Direction: domain.DirJump, Step: 2}, 2, nil},
		{"jump negative", 0, domain.Navigation{Direction: domain.DirJump, Step: -1}, 0, domain.ErrInvalidStep},
		{"jump past end", 0, domain.Navigation{Direction: domain.DirJump, Step: 3}, 0, domain.ErrInvalidStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := applyNavigation(tt.current, steps, tt.nav)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.NewStep)
			assert.Equal(t, steps[tt.want], res.Instruction)
		})
	}

	_, err := applyNavigation(0, nil, domain.Navigation{Direction: domain.DirNext})
	assert.ErrorIs(t, err, domain.ErrNoInstructions)
}

func TestIsBusy(t *testing.T) {
	assert.True(t, isBusy(assertErr("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, isBusy(assertErr("no such table: sessions")))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
