package speech

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

func TestRenderLength(t *testing.T) {
	notes := []note{
		{freq: 440, dur: 100 * time.Millisecond, gap: 50 * time.Millisecond},
		{freq: 880, dur: 100 * time.Millisecond},
	}
	pcm := render(notes, 0.5)
	// 250 ms of 16-bit mono samples.
	assert.Equal(t, SampleRate/4*2, len(pcm))
	assert.Equal(t, []byte{0, 0}, pcm[:2], "notes fade in from silence")
}

func TestChimeSounds(t *testing.T) {
	p := newGatedPlayer(false)
	c := NewChime(p, logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	require.NoError(t, c.Alert(ctx, domain.AlertWake, ""))
	require.NoError(t, c.Alert(ctx, domain.AlertTimer, "Pasta is done"))

	require.Len(t, p.pcm, 2)
	assert.Less(t, len(p.pcm[0]), len(p.pcm[1]), "the timer chime is the longer one")
}

func TestChimeHonoursContext(t *testing.T) {
	p := newGatedPlayer(true)
	c := NewChime(p, logger.New(logger.LevelOff, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Alert(ctx, domain.AlertTimer, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 1, p.stopped)
}
