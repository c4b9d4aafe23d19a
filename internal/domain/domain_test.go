package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigationTarget(t *testing.T) {
	tests := []struct {
		name    string
		nav     Navigation
		current int
		want    int
	}{
		{"next", Navigation{Direction: DirNext}, 2, 3},
		{"next clamps at last", Navigation{Direction: DirNext}, 4, 4},
		{"prev", Navigation{Direction: DirPrev}, 2, 1},
		{"prev clamps at first", Navigation{Direction: DirPrev}, 0, 0},
		{"repeat stays", Navigation{Direction: DirRepeat}, 3, 3},
		{"jump", Navigation{Direction: DirJump, Step: 1}, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.nav.Target(tt.current, 5))
		})
	}
}

func TestDirectionRoundTrip(t *testing.T) {
	for _, d := range []Direction{DirNext, DirPrev, DirRepeat, DirJump} {
		got, ok := DirectionFromString(d.String())
		require.True(t, ok, d.String())
		assert.Equal(t, d, got)
	}
	got, ok := DirectionFromString("back")
	assert.True(t, ok)
	assert.Equal(t, DirPrev, got)
	_, ok = DirectionFromString("sideways")
	assert.False(t, ok)
}

func TestNewCommandKinds(t *testing.T) {
	for name, kind := range commandNames {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, kind.String())
			assert.Equal(t, kind, CommandKindFromString(name))

			cmd, err := NewCommand(kind, 3)
			require.NoError(t, err)
			assert.Equal(t, kind, cmd.Kind())
		})
	}

	_, err := NewCommand(CmdSetTimer, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	_, err = NewCommand(CmdUnknown, 0)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Equal(t, CmdUnknown, CommandKindFromString("dance"))
}

func TestNewCommandArguments(t *testing.T) {
	cmd, err := NewCommand(CmdSetTimer, 90)
	require.NoError(t, err)
	assert.Equal(t, SetTimer{Seconds: 90}, cmd)

	cmd, err = NewCommand(CmdJumpTo, 2)
	require.NoError(t, err)
	assert.Equal(t, JumpTo{Step: 2}, cmd)

	cmd, err = NewCommand(CmdToggleIngredient, 4)
	require.NoError(t, err)
	assert.Equal(t, ToggleIngredient{Index: 4}, cmd)
}

func TestSpeechError(t *testing.T) {
	tests := []struct {
		wire string
		want SpeechErrorKind
	}{
		{"not-allowed", SpeechPermissionDenied},
		{"service-not-allowed", SpeechPermissionDenied},
		{"permission_denied", SpeechPermissionDenied},
		{"no-speech", SpeechNoSpeech},
		{"aborted", SpeechAborted},
		{"network", SpeechOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SpeechErrorKindFromString(tt.wire), tt.wire)
	}

	var err error = &SpeechError{Kind: SpeechNoSpeech}
	assert.Equal(t, "speech: no_speech", err.Error())
	err = &SpeechError{Kind: SpeechOther, Message: "mic unplugged"}
	assert.Equal(t, "speech: other: mic unplugged", err.Error())

	var se *SpeechError
	require.True(t, errors.As(errors.Join(errors.New("wrapped"), err), &se))
	assert.Equal(t, SpeechOther, se.Kind)
}

func TestSessionClone(t *testing.T) {
	s := &Session{
		Instructions:       []string{"a", "b"},
		Ingredients:        []string{"1 egg"},
		CheckedIngredients: map[int]bool{0: true, 1: false},
		CompletedSteps:     map[int]bool{},
	}
	c := s.Clone()
	c.Instructions[0] = "changed"
	c.CheckedIngredients[2] = true

	assert.Equal(t, "a", s.Instructions[0])
	assert.False(t, s.CheckedIngredients[2])
	assert.Equal(t, map[int]bool{0: true}, s.Clone().CheckedIngredients, "false entries are dropped")
	assert.Equal(t, "a", s.Instruction())
	s.CurrentStep = 7
	assert.Equal(t, "", s.Instruction())
}

func TestStatusStrings(t *testing.T) {
	for _, st := range []SessionStatus{SessionActive, SessionCompleted, SessionAbandoned} {
		got, ok := SessionStatusFromString(st.String())
		require.True(t, ok)
		assert.Equal(t, st, got)
	}
	for _, st := range []TimerStatus{TimerActive, TimerPaused, TimerDone, TimerCancelled} {
		got, ok := TimerStatusFromString(st.String())
		require.True(t, ok)
		assert.Equal(t, st, got)
	}
	assert.True(t, TimerCancelled.Terminal())
	assert.False(t, TimerPaused.Terminal())
	assert.True(t, SessionAbandoned.Terminal())
}
