package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/cookmode/internal/config"
	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/gesture"
	"github.com/hammamikhairi/cookmode/internal/session"
	"github.com/hammamikhairi/cookmode/internal/voice"
)

type fakeCommander struct {
	mu       sync.Mutex
	posted   []domain.Command
	outcomes []domain.Outcome
	abandons int
	full     bool
}

func (f *fakeCommander) Post(_ session.Source, cmd domain.Command) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.posted = append(f.posted, cmd)
	return true
}

func (f *fakeCommander) Complete(_ context.Context, o domain.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
	return nil
}

func (f *fakeCommander) Abandon(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandons++
	return nil
}

type fakeHinter struct {
	hints []string
	quit  bool
}

func (f *fakeHinter) PrintHint(text string) { f.hints = append(f.hints, text) }
func (f *fakeHinter) Quit()                 { f.quit = true }

func TestKeyboard(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		posted []domain.Command
		hint   string
	}{
		{name: "next", line: "next", posted: []domain.Command{domain.NextStep{}}},
		{name: "phrase", line: "Go back", posted: []domain.Command{domain.PrevStep{}}},
		{name: "timer", line: "set a timer for 5 minutes", posted: []domain.Command{domain.SetTimer{Seconds: 300}}},
		{name: "jump", line: "go to step 3", posted: []domain.Command{domain.JumpTo{Step: 2}}},
		{name: "unknown", line: "make me a sandwich", hint: "Didn't catch"},
		{name: "blank", line: "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, h := &fakeCommander{}, &fakeHinter{}
			keyboard{ctrl: c, matcher: voice.MustMatcher(voice.DefaultMappings()), ui: h}.handle(context.Background(), tt.line)
			assert.Equal(t, tt.posted, c.posted)
			if tt.hint == "" {
				assert.Empty(t, h.hints)
			} else {
				require.Len(t, h.hints, 1)
				assert.Contains(t, h.hints[0], tt.hint)
			}
		})
	}
}

func TestKeyboardSessionVerbs(t *testing.T) {
	c, h := &fakeCommander{}, &fakeHinter{}
	k := keyboard{ctrl: c, matcher: voice.MustMatcher(voice.DefaultMappings()), ui: h}
	ctx := context.Background()

	k.handle(ctx, "finish 4")
	require.Len(t, c.outcomes, 1)
	require.NotNil(t, c.outcomes[0].Rating)
	assert.Equal(t, 4, *c.outcomes[0].Rating)

	k.handle(ctx, "finish")
	require.Len(t, c.outcomes, 2)
	assert.Nil(t, c.outcomes[1].Rating)

	k.handle(ctx, "finish great")
	assert.Len(t, c.outcomes, 2)
	assert.Contains(t, h.hints, "usage: finish [rating 1-5]")

	k.handle(ctx, "abandon")
	assert.Equal(t, 1, c.abandons)

	k.handle(ctx, "quit")
	assert.True(t, h.quit)

	c.full = true
	k.handle(ctx, "next")
	assert.Contains(t, h.hints, "busy, try again")
}

func TestServerSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Voice.WakeWords = []string{"hey cook"}
	cfg.Voice.CommandTimeout = 8 * time.Second
	cfg.Gestures.Bindings = map[string]string{"tap": "repeat"}
	cfg.Behavior.AutoAdvance = false
	cfg.Behavior.TimerSyncEvery = 5
	cfg.Gestures.QuickTimers = []int{7}

	st, err := serverSettings(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"hey cook"}, st.WakeWords)
	assert.Equal(t, 8*time.Second, st.CommandTimeout)
	assert.Equal(t, gesture.ActRepeat, st.Bindings[gesture.Tap].Kind)
	assert.False(t, st.AutoAdvance)
	assert.Equal(t, 5, st.TimerSyncEvery)
	assert.Equal(t, time.Second, st.TickInterval)
	assert.Equal(t, []gesture.Action{{Kind: gesture.ActStartTimer, Minutes: 7}}, st.QuickTimers)

	cfg.Voice.Phrases = map[string][]string{"dance": {"boogie"}}
	_, err = serverSettings(cfg)
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)
}

func TestPrintRecipes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRecipes(&buf, []domain.RecipeSummary{
		{ID: "chicken-alfredo", Title: "Chicken Alfredo", Servings: 2, Steps: 8, Tags: []string{"pasta", "chicken"}},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "chicken-alfredo")
	assert.Contains(t, lines[1], "pasta, chicken")
}

type sinkRecorder struct{ texts []string }

func (s *sinkRecorder) OnTranscript(text string) { s.texts = append(s.texts, text) }
func (s *sinkRecorder) OnSpeechError(error)      {}
func (s *sinkRecorder) OnSpeechEnd()             {}

func TestHeardSinkEchoes(t *testing.T) {
	var printed []string
	rec := &sinkRecorder{}
	s := heardSink{TranscriptSink: rec, print: func(t string) { printed = append(printed, t) }}
	s.OnTranscript("hey chef next")
	assert.Equal(t, []string{"hey chef next"}, printed)
	assert.Equal(t, []string{"hey chef next"}, rec.texts)
}
