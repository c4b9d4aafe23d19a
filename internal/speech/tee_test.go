package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type lineNotifier struct {
	lines    []string
	urgent   []string
	err      error
	silenced int
}

func (n *lineNotifier) Notify(_ context.Context, msg string) error {
	n.lines = append(n.lines, msg)
	return n.err
}

func (n *lineNotifier) NotifyUrgent(_ context.Context, msg string) error {
	n.urgent = append(n.urgent, msg)
	return n.err
}

func (n *lineNotifier) Silence() { n.silenced++ }

func TestTee(t *testing.T) {
	screen, voice := &lineNotifier{}, &lineNotifier{}
	tee := NewTee(screen, voice)
	ctx := context.Background()

	assert.NoError(t, tee.Notify(ctx, "\x1b[1m[Timer]\x1b[0m Sear is done."))
	assert.NoError(t, tee.NotifyUrgent(ctx, "Burning!"))

	assert.Equal(t, []string{"\x1b[1m[Timer]\x1b[0m Sear is done."}, screen.lines)
	assert.Equal(t, []string{"Sear is done."}, voice.lines)
	assert.Equal(t, []string{"Burning!"}, voice.urgent)

	tee.Silence()
	assert.Equal(t, 1, screen.silenced)
	assert.Equal(t, 1, voice.silenced)
}

func TestTeeJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	tee := NewTee(&lineNotifier{}, &lineNotifier{err: boom})
	assert.ErrorIs(t, tee.Notify(context.Background(), "hi"), boom)
}
