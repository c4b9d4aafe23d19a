// Package display provides the terminal cook-mode UI using Bubble Tea.
//
// The [UI] keeps a pinned panel at the bottom of the terminal: the
// current step, the ingredients it uses, the timer bar and a prompt.
// Messages from the session are printed above the panel through
// Program.Println so concurrent writes never garble the display.
package display

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/gesture"
)

// Compile-time interface checks.
var (
	_ domain.Presenter = (*UI)(nil)
	_ domain.Notifier  = (*UI)(nil)
)

// Option configures the UI.
type Option func(*UI)

// WithGestureHandler receives the gestures emulated by the keyboard.
func WithGestureHandler(fn func(gesture.Gesture)) Option {
	return func(u *UI) { u.onGesture = fn }
}

// WithLineHandler receives every line typed at the prompt.
func WithLineHandler(fn func(string)) Option {
	return func(u *UI) { u.onLine = fn }
}

// WithQuickTimers binds the number keys 1..n to preset timers. fn runs
// with the preset picked.
func WithQuickTimers(presets []gesture.Action, fn func(gesture.Action)) Option {
	return func(u *UI) {
		u.quickTimers = presets
		u.onQuickTimer = fn
	}
}

// WithTitle sets the recipe title shown above the step.
func WithTitle(title string) Option {
	return func(u *UI) { u.state.title = title }
}

// UI renders controller effects and turns keys into gestures.
//
// Call [New] then [UI.Run] (blocking). Present, Notify and NotifyUrgent
// may be called from any goroutine.
type UI struct {
	onGesture    func(gesture.Gesture)
	onLine       func(string)
	onQuickTimer func(gesture.Action)
	quickTimers  []gesture.Action

	mu    sync.Mutex
	state viewState

	dirty   chan struct{}
	readyCh chan struct{}
	quitCh  chan struct{}
	program *tea.Program
	running atomic.Bool
}

// New creates the display. Call Run to start it.
func New(opts ...Option) *UI {
	u := &UI{
		onGesture:    func(gesture.Gesture) {},
		onLine:       func(string) {},
		onQuickTimer: func(gesture.Action) {},
		dirty:        make(chan struct{}, 1),
		readyCh:      make(chan struct{}),
		quitCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ── Presenter ────────────────────────────────────────────────────

// Present folds an effect into the view state and schedules a redraw.
func (u *UI) Present(e domain.Effect) {
	u.mu.Lock()
	quit := u.state.apply(e)
	u.mu.Unlock()

	if raised, ok := e.(domain.ErrorRaised); ok {
		u.println(urgentStyle.Render("  " + raised.Message))
	}
	u.markDirty()
	if quit {
		u.Quit()
	}
}

// ── Notifier ─────────────────────────────────────────────────────

// Notify prints a message above the panel.
func (u *UI) Notify(_ context.Context, message string) error {
	u.println(chatStyle.Render("  " + message))
	return nil
}

// NotifyUrgent prints a highlighted message above the panel.
func (u *UI) NotifyUrgent(_ context.Context, message string) error {
	u.println(urgentStyle.Render("  " + message))
	return nil
}

// PrintHint prints a dimmed line above the panel.
func (u *UI) PrintHint(text string) {
	u.println(hintStyle.Render("  " + text))
}

// PrintHeard echoes a transcript the ear picked up.
func (u *UI) PrintHeard(text string) {
	u.println(hintStyle.Render("[heard] ") + primaryStyle.Render(text))
}

func (u *UI) println(line string) {
	if u.running.Load() {
		u.program.Println(line)
		return
	}
	fmt.Println(line)
}

func (u *UI) markDirty() {
	select {
	case u.dirty <- struct{}{}:
	default:
	}
}

// SetTitle changes the recipe title shown above the step.
func (u *UI) SetTitle(title string) {
	u.mu.Lock()
	u.state.title = title
	u.mu.Unlock()
	u.markDirty()
}

// snapshot copies the view state for rendering.
func (u *UI) snapshot() viewState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state.clone()
}

// ── Lifecycle ────────────────────────────────────────────────────

// Run starts the Bubble Tea event loop and blocks until quit.
func (u *UI) Run(ctx context.Context) error {
	u.program = tea.NewProgram(newModel(u), tea.WithContext(ctx))
	_, err := u.program.Run()
	u.running.Store(false)
	close(u.quitCh)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// WaitReady blocks until the event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Done is closed when Run returns.
func (u *UI) Done() <-chan struct{} { return u.quitCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.running.Load() {
		go u.program.Quit()
	}
}
