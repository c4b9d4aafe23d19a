package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Player plays audio synchronously. Stop cuts off whatever is playing.
type Player interface {
	Play(wav []byte) error
	PlayPCM(pcm []byte) error
	Stop()
}

// Compile-time interface check.
var _ Player = (*Speakers)(nil)

// Speakers plays 16-bit mono PCM through the default output device.
type Speakers struct {
	ctx *oto.Context
	log *logger.Logger

	mu     sync.Mutex
	active *oto.Player
}

// NewSpeakers opens the audio device. It fails when no output is
// available, in which case callers run without sound.
func NewSpeakers(log *logger.Logger) (*Speakers, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	log.Debug("audio output ready (%d Hz, %d ch)", SampleRate, ChannelCount)
	return &Speakers{ctx: ctx, log: log}, nil
}

// Play plays a WAV file and returns when it has finished or was stopped.
func (s *Speakers) Play(wav []byte) error {
	pcm, err := pcmFromWAV(wav)
	if err != nil {
		return err
	}
	return s.PlayPCM(pcm)
}

// PlayPCM plays raw samples in the output format.
func (s *Speakers) PlayPCM(pcm []byte) error {
	p := s.ctx.NewPlayer(bytes.NewReader(pcm))

	s.mu.Lock()
	s.active = p
	s.mu.Unlock()

	p.Play()
	for p.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	s.mu.Lock()
	if s.active == p {
		s.active = nil
	}
	s.mu.Unlock()
	return p.Close()
}

// Stop interrupts playback. Safe to call when idle.
func (s *Speakers) Stop() {
	s.mu.Lock()
	p := s.active
	s.mu.Unlock()
	if p != nil {
		p.Pause()
	}
}

// pcmFromWAV returns the data chunk of a RIFF/WAVE file.
func pcmFromWAV(wav []byte) ([]byte, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a WAV file")
	}

	pos := 12
	for pos+8 <= len(wav) {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		start := pos + 8
		if id == "data" {
			end := start + size
			if end > len(wav) || end < start {
				end = len(wav)
			}
			return wav[start:end], nil
		}
		pos = start + size + size%2
	}
	return nil, errors.New("WAV has no data chunk")
}
