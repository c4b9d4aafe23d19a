package speech

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

// Compile-time interface checks.
var (
	_ domain.Notifier = (*Tee)(nil)
	_ domain.Silencer = (*Tee)(nil)
)

// Tee shows every message on screen and reads it aloud.
type Tee struct {
	screen domain.Notifier
	voice  domain.Notifier
}

// NewTee combines a text notifier with a spoken one.
func NewTee(screen, voice domain.Notifier) *Tee {
	return &Tee{screen: screen, voice: voice}
}

// Notify implements domain.Notifier.
func (t *Tee) Notify(ctx context.Context, message string) error {
	return errors.Join(
		t.screen.Notify(ctx, message),
		t.voice.Notify(ctx, spoken(message)),
	)
}

// NotifyUrgent implements domain.Notifier.
func (t *Tee) NotifyUrgent(ctx context.Context, message string) error {
	return errors.Join(
		t.screen.NotifyUrgent(ctx, message),
		t.voice.NotifyUrgent(ctx, spoken(message)),
	)
}

// Silence stops speech on whichever side can be silenced.
func (t *Tee) Silence() {
	for _, n := range []domain.Notifier{t.screen, t.voice} {
		if s, ok := n.(domain.Silencer); ok {
			s.Silence()
		}
	}
}

var (
	ansiCodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	tagPrefix = regexp.MustCompile(`^\[[A-Za-z]+\]\s*`)
)

// spoken strips terminal formatting that should not be read aloud.
func spoken(msg string) string {
	msg = ansiCodes.ReplaceAllString(msg, "")
	msg = tagPrefix.ReplaceAllString(msg, "")
	return strings.TrimSpace(msg)
}
