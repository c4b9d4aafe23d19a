// Package speech speaks to the cook and listens back: Azure text to
// speech played through the sound card, short chimes for alerts and a
// local Whisper transcriber that feeds the voice recognizer.
package speech

import "time"

// DefaultVoice is the Azure neural voice used when none is configured.
const DefaultVoice = "en-US-AvaNeural"

// DefaultAudioFormat is requested from Azure and understood by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Playback parameters matching DefaultAudioFormat.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Priority orders queued speech. Higher speaks first.
type Priority int

const (
	PriorityNormal Priority = iota // step reads, confirmations
	PriorityUrgent                 // timer alerts, failures
)

// request is one queued utterance.
type request struct {
	text     string
	priority Priority
	queuedAt time.Time
}
