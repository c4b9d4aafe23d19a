// Package alert provides desktop notifications for timer alarms and a
// fan-out alerter.
package alert

import (
	"context"
	"errors"

	"github.com/gen2brain/beeep"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

const appName = "cookmode"

// Compile-time interface checks.
var (
	_ domain.Alerter = (*Desktop)(nil)
	_ domain.Alerter = multi(nil)
)

// Desktop raises a system notification when a timer goes off. Wake
// acknowledgements are ignored; they would be noise on the desktop.
type Desktop struct {
	enabled bool
	log     *logger.Logger
	notify  func(title, message string) error
}

// NewDesktop creates a desktop alerter.
func NewDesktop(enabled bool, log *logger.Logger) *Desktop {
	return &Desktop{
		enabled: enabled,
		log:     log,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Alert implements domain.Alerter.
func (d *Desktop) Alert(ctx context.Context, kind domain.AlertKind, message string) error {
	if !d.enabled || kind != domain.AlertTimer {
		return nil
	}
	if message == "" {
		message = "Timer done"
	}
	if err := d.notify(appName+": timer", message); err != nil {
		d.log.Debug("desktop notification failed: %v", err)
		return err
	}
	return nil
}

type multi []domain.Alerter

// Multi plays every alert on each of the given alerters. Nil entries are
// skipped.
func Multi(alerters ...domain.Alerter) domain.Alerter {
	var m multi
	for _, a := range alerters {
		if a != nil {
			m = append(m, a)
		}
	}
	return m
}

func (m multi) Alert(ctx context.Context, kind domain.AlertKind, message string) error {
	var errs []error
	for _, a := range m {
		if err := a.Alert(ctx, kind, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
