package alert

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

type sent struct{ title, message string }

func newTestDesktop(enabled bool, err error) (*Desktop, *[]sent) {
	var got []sent
	d := NewDesktop(enabled, logger.New(logger.LevelOff, nil))
	d.notify = func(title, message string) error {
		got = append(got, sent{title, message})
		return err
	}
	return d, &got
}

func TestDesktopAlert(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		kind    domain.AlertKind
		message string
		want    []sent
	}{
		{"timer", true, domain.AlertTimer, "Pasta is done.", []sent{{"cookmode: timer", "Pasta is done."}}},
		{"timer without message", true, domain.AlertTimer, "", []sent{{"cookmode: timer", "Timer done"}}},
		{"wake is ignored", true, domain.AlertWake, "", nil},
		{"disabled", false, domain.AlertTimer, "Pasta is done.", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, got := newTestDesktop(tt.enabled, nil)
			assert.NoError(t, d.Alert(context.Background(), tt.kind, tt.message))
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestDesktopAlertError(t *testing.T) {
	d, _ := newTestDesktop(true, errors.New("no dbus"))
	assert.Error(t, d.Alert(context.Background(), domain.AlertTimer, "x"))
}

type countingAlerter struct {
	calls int
	err   error
}

func (c *countingAlerter) Alert(context.Context, domain.AlertKind, string) error {
	c.calls++
	return c.err
}

func TestMulti(t *testing.T) {
	a := &countingAlerter{}
	b := &countingAlerter{err: errors.New("speaker unplugged")}

	m := Multi(a, nil, b)
	err := m.Alert(context.Background(), domain.AlertTimer, "done")
	assert.ErrorContains(t, err, "speaker unplugged")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	assert.NoError(t, Multi().Alert(context.Background(), domain.AlertWake, ""))
}
