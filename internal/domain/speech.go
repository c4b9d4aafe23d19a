package domain

import "fmt"

// SpeechErrorKind classifies failures reported by a speech backend.
type SpeechErrorKind int

const (
	SpeechOther SpeechErrorKind = iota
	SpeechPermissionDenied
	SpeechNoSpeech
	SpeechAborted
)

// String returns the wire name of the kind.
func (k SpeechErrorKind) String() string {
	switch k {
	case SpeechPermissionDenied:
		return "permission_denied"
	case SpeechNoSpeech:
		return "no_speech"
	case SpeechAborted:
		return "aborted"
	default:
		return "other"
	}
}

// SpeechErrorKindFromString parses the wire name; unknown names map to
// SpeechOther. Browser names ("not-allowed", "no-speech") are accepted.
func SpeechErrorKindFromString(s string) SpeechErrorKind {
	switch s {
	case "permission_denied", "not-allowed", "service-not-allowed":
		return SpeechPermissionDenied
	case "no_speech", "no-speech":
		return SpeechNoSpeech
	case "aborted":
		return SpeechAborted
	}
	return SpeechOther
}

// SpeechError is the value carried on a speech backend's error channel.
type SpeechError struct {
	Kind    SpeechErrorKind
	Message string
}

func (e *SpeechError) Error() string {
	if e.Message == "" {
		return "speech: " + e.Kind.String()
	}
	return fmt.Sprintf("speech: %s: %s", e.Kind, e.Message)
}
