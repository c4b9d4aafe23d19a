package speech

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Compile-time interface check.
var _ domain.Alerter = (*Chime)(nil)

// note is one beep of a chime.
type note struct {
	freq float64
	dur  time.Duration
	gap  time.Duration
}

// Wake is a single short rising blip; a timer is three louder beeps.
var (
	wakeNotes  = []note{{freq: 880, dur: 90 * time.Millisecond}, {freq: 1320, dur: 90 * time.Millisecond}}
	timerNotes = []note{
		{freq: 988, dur: 180 * time.Millisecond, gap: 120 * time.Millisecond},
		{freq: 988, dur: 180 * time.Millisecond, gap: 120 * time.Millisecond},
		{freq: 1319, dur: 320 * time.Millisecond},
	}
)

// Chime plays synthesized tones for alerts.
type Chime struct {
	player Player
	log    *logger.Logger
	wake   []byte
	timer  []byte
}

// NewChime renders the alert sounds once up front.
func NewChime(player Player, log *logger.Logger) *Chime {
	return &Chime{
		player: player,
		log:    log,
		wake:   render(wakeNotes, 0.25),
		timer:  render(timerNotes, 0.5),
	}
}

// Alert plays the sound for kind. It blocks until the sound finishes or
// ctx is done.
func (c *Chime) Alert(ctx context.Context, kind domain.AlertKind, _ string) error {
	pcm := c.timer
	if kind == domain.AlertWake {
		pcm = c.wake
	}

	done := make(chan error, 1)
	go func() { done <- c.player.PlayPCM(pcm) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		c.player.Stop()
		return ctx.Err()
	}
}

// render synthesizes notes as 16-bit little-endian mono PCM. Each note
// fades in and out over 5 ms so it does not click.
func render(notes []note, volume float64) []byte {
	var out []byte
	fade := SampleRate * 5 / 1000
	for _, n := range notes {
		samples := int(n.dur.Seconds() * SampleRate)
		for i := 0; i < samples; i++ {
			env := 1.0
			if i < fade {
				env = float64(i) / float64(fade)
			} else if tail := samples - i; tail < fade {
				env = float64(tail) / float64(fade)
			}
			v := math.Sin(2*math.Pi*n.freq*float64(i)/SampleRate) * volume * env
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(v*math.MaxInt16)))
		}
		silence := int(n.gap.Seconds() * SampleRate)
		out = append(out, make([]byte, silence*2)...)
	}
	return out
}
