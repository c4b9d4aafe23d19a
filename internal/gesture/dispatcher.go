package gesture

import (
	"sync"
	"time"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

// DefaultDoubleTapWindow is how long a tap waits for a second one.
const DefaultDoubleTapWindow = 300 * time.Millisecond

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDoubleTapWindow sets the double tap window.
func WithDoubleTapWindow(d time.Duration) Option {
	return func(g *Dispatcher) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithBindings replaces the default bindings.
func WithBindings(b Bindings) Option {
	return func(g *Dispatcher) { g.bindings = b }
}

// Dispatcher turns gestures into commands.
//
// When a double tap is bound, a single tap is held back for the window:
// a second tap inside it cancels the held tap and fires the double tap
// action instead, so the two never both fire.
type Dispatcher struct {
	emit     func(domain.Command)
	log      *logger.Logger
	bindings Bindings
	window   time.Duration

	mu      sync.Mutex
	pending *time.Timer
	gen     uint64
}

// NewDispatcher creates a dispatcher. emit must not block.
func NewDispatcher(emit func(domain.Command), log *logger.Logger, opts ...Option) *Dispatcher {
	g := &Dispatcher{
		emit:     emit,
		log:      log,
		bindings: DefaultBindings(),
		window:   DefaultDoubleTapWindow,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dispatch handles one gesture.
func (g *Dispatcher) Dispatch(gesture Gesture) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if gesture == DoubleTap {
		// A client that detects double taps itself may still have sent
		// the first tap.
		g.cancelPendingLocked()
	}
	if gesture != Tap {
		g.fireLocked(gesture)
		return
	}

	if g.bindings[DoubleTap].Kind == ActNone {
		g.fireLocked(Tap)
		return
	}

	if g.pending != nil {
		g.cancelPendingLocked()
		g.fireLocked(DoubleTap)
		return
	}

	g.gen++
	gen := g.gen
	g.pending = time.AfterFunc(g.window, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if gen != g.gen || g.pending == nil {
			return
		}
		g.pending = nil
		g.fireLocked(Tap)
	})
}

// Stop discards a held single tap.
func (g *Dispatcher) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelPendingLocked()
}

// Bindings returns the active bindings.
func (g *Dispatcher) Bindings() Bindings {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(Bindings, len(g.bindings))
	for k, v := range g.bindings {
		out[k] = v
	}
	return out
}

func (g *Dispatcher) cancelPendingLocked() {
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	g.gen++
}

func (g *Dispatcher) fireLocked(gesture Gesture) {
	action := g.bindings[gesture]
	cmd, ok := action.Command()
	if !ok {
		g.log.Debug("gesture %s unbound", gesture)
		return
	}
	g.log.Debug("gesture %s -> %s", gesture, action)
	g.emit(cmd)
}
