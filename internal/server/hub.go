package server

import (
	"context"
	"sort"
	"sync"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Presenter     = (*hub)(nil)
	_ domain.Notifier      = (*hub)(nil)
	_ domain.Alerter       = (*hub)(nil)
	_ domain.SpeechBackend = (*socketSpeech)(nil)
)

// outbound is one frame sent to websocket clients.
type outbound struct {
	Type        string      `json:"type"`
	Text        string      `json:"text,omitempty"`
	Urgent      bool        `json:"urgent,omitempty"`
	Step        *int        `json:"step,omitempty"`
	Total       int         `json:"total,omitempty"`
	Instruction string      `json:"instruction,omitempty"`
	Ingredients []string    `json:"ingredients,omitempty"`
	Matches     []matchJSON `json:"matches,omitempty"`
	Checked     []int       `json:"checked,omitempty"`
	Completed   []int       `json:"completed,omitempty"`
	Timers      []timerJSON `json:"timers,omitempty"`
	Listening   *bool       `json:"listening,omitempty"`
	Awaiting    *bool       `json:"awaiting,omitempty"`
	Status      string      `json:"status,omitempty"`
	Kind        string      `json:"kind,omitempty"`
	Fatal       bool        `json:"fatal,omitempty"`
}

// encodeEffect turns a controller effect into a frame.
func encodeEffect(e domain.Effect) outbound {
	switch e := e.(type) {
	case domain.StepShown:
		step := e.Step
		return outbound{
			Type:        "step",
			Step:        &step,
			Total:       e.Total,
			Instruction: e.Instruction,
			Ingredients: e.Ingredients,
			Matches:     encodeMatches(e.Matches),
			Checked:     sortedKeys(e.Checked),
			Completed:   sortedKeys(e.Completed),
		}
	case domain.IngredientsShown:
		return outbound{
			Type:        "ingredients",
			Ingredients: e.Ingredients,
			Matches:     encodeMatches(e.Matches),
			Checked:     sortedKeys(e.Checked),
		}
	case domain.TimersChanged:
		return outbound{Type: "timers", Timers: encodeTimers(e.Timers)}
	case domain.VoiceChanged:
		return outbound{Type: "voice", Listening: boolPtr(e.Listening)}
	case domain.FullscreenToggled:
		return outbound{Type: "fullscreen"}
	case domain.SettingsOpened:
		return outbound{Type: "settings"}
	case domain.ExitRequested:
		return outbound{Type: "exit"}
	case domain.SessionEnded:
		return outbound{Type: "ended", Status: e.Status.String()}
	case domain.ErrorRaised:
		return outbound{Type: "error", Text: e.Message, Fatal: e.Fatal}
	}
	return outbound{Type: "unknown"}
}

func boolPtr(b bool) *bool { return &b }

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k, v := range set {
		if v {
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}

// hub fans frames out to every websocket client of one user. Slow
// clients lose frames rather than stall the session.
type hub struct {
	log *logger.Logger

	mu   sync.Mutex
	subs map[chan outbound]struct{}
}

func newHub(log *logger.Logger) *hub {
	return &hub{log: log, subs: make(map[chan outbound]struct{})}
}

// subscribe registers a client. The returned func unregisters it and
// closes the channel.
func (h *hub) subscribe() (<-chan outbound, func()) {
	ch := make(chan outbound, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *hub) clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) broadcast(o outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- o:
		default:
			h.log.Debug("client too slow, dropped %s frame", o.Type)
		}
	}
}

// Present implements domain.Presenter.
func (h *hub) Present(e domain.Effect) {
	h.broadcast(encodeEffect(e))
}

// Notify implements domain.Notifier.
func (h *hub) Notify(_ context.Context, message string) error {
	h.broadcast(outbound{Type: "message", Text: message})
	return nil
}

// NotifyUrgent implements domain.Notifier.
func (h *hub) NotifyUrgent(_ context.Context, message string) error {
	h.broadcast(outbound{Type: "message", Text: message, Urgent: true})
	return nil
}

// Alert implements domain.Alerter; the browser plays the sound.
func (h *hub) Alert(_ context.Context, kind domain.AlertKind, message string) error {
	name := "timer"
	if kind == domain.AlertWake {
		name = "wake"
	}
	h.broadcast(outbound{Type: "alert", Kind: name, Text: message})
	return nil
}

// socketSpeech is a speech backend fed by the browser: recognition runs
// client side and transcripts arrive over the websocket.
type socketSpeech struct {
	hub *hub

	mu   sync.Mutex
	sink domain.TranscriptSink
}

func newSocketSpeech(h *hub) *socketSpeech {
	return &socketSpeech{hub: h}
}

// Start asks clients to begin recognition and routes their transcripts
// to sink.
func (s *socketSpeech) Start(_ context.Context, sink domain.TranscriptSink) error {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
	s.hub.broadcast(outbound{Type: "listen", Listening: boolPtr(true)})
	return nil
}

// Stop asks clients to end recognition. Later transcripts are dropped.
func (s *socketSpeech) Stop() error {
	s.mu.Lock()
	s.sink = nil
	s.mu.Unlock()
	s.hub.broadcast(outbound{Type: "listen", Listening: boolPtr(false)})
	return nil
}

func (s *socketSpeech) current() domain.TranscriptSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}
