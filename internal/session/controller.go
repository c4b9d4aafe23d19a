// Package session implements the cooking session controller: an actor
// that owns one session and applies every command, timer tick and API
// call to it from a single goroutine.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/ingredient"
	"github.com/hammamikhairi/cookmode/internal/logger"
	"github.com/hammamikhairi/cookmode/internal/timer"
)

// Source identifies where a command came from.
type Source int

const (
	SourceVoice Source = iota
	SourceGesture
	SourceKeyboard
	SourceAPI
	SourceClock
)

func (s Source) String() string {
	switch s {
	case SourceVoice:
		return "voice"
	case SourceGesture:
		return "gesture"
	case SourceKeyboard:
		return "keyboard"
	case SourceAPI:
		return "api"
	case SourceClock:
		return "clock"
	default:
		return "unknown"
	}
}

// Voice is the part of the recognizer the controller drives.
type Voice interface {
	Start(ctx context.Context) error
	Stop()
	Listening() bool
}

// Recorder receives controller metrics.
type Recorder interface {
	SessionStarted()
	SessionEnded(status domain.SessionStatus)
	CommandHandled(src Source, kind domain.CommandKind)
	CommandDropped(src Source)
	TimerCompleted()
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()                           {}
func (nopRecorder) SessionEnded(domain.SessionStatus)         {}
func (nopRecorder) CommandHandled(Source, domain.CommandKind) {}
func (nopRecorder) CommandDropped(Source)                     {}
func (nopRecorder) TimerCompleted()                           {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) error       { return nil }
func (nopNotifier) NotifyUrgent(context.Context, string) error { return nil }

type nopAlerter struct{}

func (nopAlerter) Alert(context.Context, domain.AlertKind, string) error { return nil }

type nopPresenter struct{}

func (nopPresenter) Present(domain.Effect) {}

// Option configures the controller.
type Option func(*Controller)

// WithNotifier sets where spoken and printed messages go.
func WithNotifier(n domain.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithAlerter sets the chime player.
func WithAlerter(a domain.Alerter) Option {
	return func(c *Controller) { c.alerter = a }
}

// WithPresenter sets the effect sink.
func WithPresenter(p domain.Presenter) Option {
	return func(c *Controller) { c.presenter = p }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.rec = r }
}

// WithInboxSize sets the capacity of the command queue.
func WithInboxSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.inboxSize = n
		}
	}
}

// WithTimerSync sets how many ticks pass between pushes of remaining
// timer time to the backend. Zero disables the pushes.
func WithTimerSync(every int) Option {
	return func(c *Controller) { c.syncEvery = every }
}

// View is a read-only picture of the session for renderers.
type View struct {
	Session   *domain.Session
	Timers    []domain.Timer
	Matches   []domain.IngredientMatch
	Listening bool
}

// ── Inbox messages ───────────────────────────────────────────────

type message interface{ message() }

type commandMsg struct {
	src Source
	cmd domain.Command
}

type tickMsg struct{}

type speechErrorMsg struct {
	err   error
	fatal bool
}

type callMsg struct {
	ctx   context.Context
	fn    func(ctx context.Context) error
	reply chan error
}

func (commandMsg) message()     {}
func (tickMsg) message()        {}
func (speechErrorMsg) message() {}
func (callMsg) message()        {}

// Controller owns at most one cooking session at a time. Every mutation
// happens on the goroutine running Run; the exported methods either
// enqueue (Post*) or run a closure there and wait for it.
type Controller struct {
	backend   domain.SessionBackend
	timers    *timer.Manager
	log       *logger.Logger
	notifier  domain.Notifier
	alerter   domain.Alerter
	presenter domain.Presenter
	rec       Recorder
	inboxSize int
	syncEvery int

	inbox chan message
	done  chan struct{}
	// Ticks that found the inbox full; replayed with the next tick.
	lostTicks atomic.Int64

	voiceMu sync.RWMutex
	voice   Voice

	// Owned by the actor goroutine.
	runCtx  context.Context
	session *domain.Session
	ticks   int
	wg      sync.WaitGroup
}

// New creates a controller. Call Run to start processing.
func New(backend domain.SessionBackend, timers *timer.Manager, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		backend:   backend,
		timers:    timers,
		log:       log,
		notifier:  nopNotifier{},
		alerter:   nopAlerter{},
		presenter: nopPresenter{},
		rec:       nopRecorder{},
		inboxSize: 64,
		syncEvery: 10,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.inbox = make(chan message, c.inboxSize)
	return c
}

// SetVoice attaches the recognizer driven by ToggleVoice.
func (c *Controller) SetVoice(v Voice) {
	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()
	c.voice = v
}

func (c *Controller) getVoice() Voice {
	c.voiceMu.RLock()
	defer c.voiceMu.RUnlock()
	return c.voice
}

// Run processes the inbox until ctx is cancelled. Blocking.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	defer func() {
		close(c.done)
		c.wg.Wait()
	}()

	c.log.Info("session controller running")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("session controller stopped")
			return ctx.Err()
		case msg := <-c.inbox:
			c.handle(ctx, msg)
		}
	}
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) handle(ctx context.Context, msg message) {
	switch m := msg.(type) {
	case commandMsg:
		c.handleCommand(ctx, m.src, m.cmd)
	case tickMsg:
		for n := 1 + c.lostTicks.Swap(0); n > 0; n-- {
			c.tick(ctx)
		}
	case speechErrorMsg:
		c.speechError(ctx, m.err, m.fatal)
	case callMsg:
		m.reply <- m.fn(m.ctx)
	}
}

// Post enqueues a command without blocking. It reports false when the
// queue is full or the controller has stopped.
func (c *Controller) Post(src Source, cmd domain.Command) bool {
	if cmd == nil {
		return false
	}
	if !c.enqueue(commandMsg{src: src, cmd: cmd}) {
		c.rec.CommandDropped(src)
		c.log.Warn("dropped %s command %s: inbox full", src, cmd.Kind())
		return false
	}
	return true
}

// PostTick enqueues one timer tick. A tick that finds the inbox full is
// not lost: it is counted and applied together with the next tick that
// gets through, so timers do not fall behind the clock.
func (c *Controller) PostTick() bool {
	if c.enqueue(tickMsg{}) {
		return true
	}
	select {
	case <-c.done:
		return false
	default:
	}
	lost := c.lostTicks.Add(1)
	c.rec.CommandDropped(SourceClock)
	c.log.Warn("inbox full, deferring tick (%d pending)", lost)
	return false
}

// PostSpeechError reports a recognizer error to the user.
func (c *Controller) PostSpeechError(err error, fatal bool) bool {
	return c.enqueue(speechErrorMsg{err: err, fatal: fatal})
}

func (c *Controller) enqueue(m message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.inbox <- m:
		return true
	default:
		return false
	}
}

// call runs fn on the actor goroutine and waits for its result.
func (c *Controller) call(ctx context.Context, fn func(ctx context.Context) error) error {
	reply := make(chan error, 1)
	select {
	case c.inbox <- callMsg{ctx: ctx, fn: fn, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return domain.ErrControllerStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return domain.ErrControllerStopped
	}
}

// ── Synchronous API ──────────────────────────────────────────────

// Begin starts a new session for the user. An active session already
// held by this controller is abandoned first.
func (c *Controller) Begin(ctx context.Context, userID, recipeID string, multiplier float64) (*domain.Session, error) {
	var out *domain.Session
	err := c.call(ctx, func(ctx context.Context) error {
		s, err := c.begin(ctx, userID, recipeID, multiplier)
		if err == nil {
			out = s.Clone()
		}
		return err
	})
	return out, err
}

// ResumeActive loads the user's active session from the backend along
// with its live timers.
func (c *Controller) ResumeActive(ctx context.Context, userID string) (*domain.Session, error) {
	var out *domain.Session
	err := c.call(ctx, func(ctx context.Context) error {
		s, err := c.resumeActive(ctx, userID)
		if err == nil {
			out = s.Clone()
		}
		return err
	})
	return out, err
}

// Navigate moves next, back or re-reads the current step.
func (c *Controller) Navigate(ctx context.Context, dir domain.Direction) (int, error) {
	var step int
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		step, err = c.navigate(ctx, dir)
		return err
	})
	return step, err
}

// JumpTo moves straight to a step.
func (c *Controller) JumpTo(ctx context.Context, step int) error {
	return c.call(ctx, func(ctx context.Context) error {
		return c.jumpTo(ctx, step)
	})
}

// ToggleIngredient flips the checked state of an ingredient line.
func (c *Controller) ToggleIngredient(ctx context.Context, index int) (bool, error) {
	var checked bool
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		checked, err = c.toggleIngredient(index)
		return err
	})
	return checked, err
}

// ToggleStepCompletion flips the completed state of a step.
func (c *Controller) ToggleStepCompletion(ctx context.Context, index int) (bool, error) {
	var done bool
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		done, err = c.toggleStep(index)
		return err
	})
	return done, err
}

// CreateTimer starts a timer in the current session.
func (c *Controller) CreateTimer(ctx context.Context, spec domain.TimerSpec) (string, error) {
	var id string
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		id, err = c.createTimer(ctx, spec)
		return err
	})
	return id, err
}

// PauseTimer pauses one timer of the current session.
func (c *Controller) PauseTimer(ctx context.Context, id string) error {
	return c.call(ctx, func(ctx context.Context) error {
		return c.pauseTimer(ctx, id)
	})
}

// ResumeTimer resumes one timer of the current session.
func (c *Controller) ResumeTimer(ctx context.Context, id string) error {
	return c.call(ctx, func(ctx context.Context) error {
		return c.resumeTimer(id)
	})
}

// CancelTimer cancels one timer of the current session.
func (c *Controller) CancelTimer(ctx context.Context, id string) error {
	return c.call(ctx, func(ctx context.Context) error {
		return c.cancelTimer(ctx, id)
	})
}

// Complete records the outcome and ends the session. Nothing changes
// locally unless the backend accepted the outcome.
func (c *Controller) Complete(ctx context.Context, outcome domain.Outcome) error {
	return c.call(ctx, func(ctx context.Context) error {
		return c.complete(ctx, outcome)
	})
}

// Abandon ends the session without an outcome.
func (c *Controller) Abandon(ctx context.Context) error {
	return c.call(ctx, func(ctx context.Context) error {
		return c.abandon(ctx)
	})
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot(ctx context.Context) (View, error) {
	var v View
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		v, err = c.view()
		return err
	})
	return v, err
}

// ── Commands ─────────────────────────────────────────────────────

func (c *Controller) handleCommand(ctx context.Context, src Source, cmd domain.Command) {
	c.log.Debug("%s command: %s", src, cmd.Kind())

	var err error
	switch cmd := cmd.(type) {
	case domain.NextStep:
		_, err = c.navigate(ctx, domain.DirNext)
	case domain.PrevStep:
		_, err = c.navigate(ctx, domain.DirPrev)
	case domain.RepeatStep:
		_, err = c.navigate(ctx, domain.DirRepeat)
	case domain.ReadStep, domain.ResumeSpeech:
		err = c.readStep(ctx)
	case domain.ReadIngredients:
		err = c.readIngredients(ctx)
	case domain.PauseSpeech:
		c.silence()
	case domain.SetTimer:
		err = c.setTimer(ctx, cmd)
	case domain.StopTimer:
		err = c.stopLatestTimer(ctx)
	case domain.JumpTo:
		err = c.jumpTo(ctx, cmd.Step)
	case domain.ToggleIngredient:
		_, err = c.toggleIngredient(cmd.Index)
	case domain.ToggleStep:
		_, err = c.toggleStep(cmd.Index)
	case domain.OpenIngredients:
		err = c.openIngredients()
	case domain.ToggleVoice:
		err = c.toggleVoice(ctx)
	case domain.ToggleFullscreen:
		c.presenter.Present(domain.FullscreenToggled{})
	case domain.OpenSettings:
		c.presenter.Present(domain.SettingsOpened{})
	case domain.Exit:
		c.presenter.Present(domain.ExitRequested{})
	default:
		c.log.Debug("ignoring command %T", cmd)
		return
	}

	if err != nil {
		c.log.Warn("%s command %s failed: %v", src, cmd.Kind(), err)
		return
	}
	c.rec.CommandHandled(src, cmd.Kind())
}

// ── Operations (actor goroutine only) ────────────────────────────

func (c *Controller) active() (*domain.Session, error) {
	if c.session == nil || c.session.Status.Terminal() {
		return nil, domain.ErrNoActiveSession
	}
	return c.session, nil
}

func (c *Controller) begin(ctx context.Context, userID, recipeID string, multiplier float64) (*domain.Session, error) {
	if multiplier <= 0 {
		multiplier = 1
	}

	if s, err := c.active(); err == nil {
		c.log.Info("abandoning session %s before starting a new one", s.ID)
		if err := c.abandon(ctx); err != nil {
			return nil, err
		}
	}

	id, err := c.backend.StartSession(ctx, userID, recipeID, multiplier)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	snap, err := c.backend.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if snap == nil || snap.ID != id {
		return nil, fmt.Errorf("loading session %s: %w", id, domain.ErrSessionNotFound)
	}

	s := c.install(snap)
	c.rec.SessionStarted()
	c.log.Info("started session %s for recipe %q (x%.2g)", s.ID, s.RecipeTitle, s.ServingsMultiplier)

	c.say(ctx, lineStart(s.RecipeTitle))
	c.showStep(ctx, true)
	c.presentTimers()
	return s, nil
}

func (c *Controller) resumeActive(ctx context.Context, userID string) (*domain.Session, error) {
	snap, err := c.backend.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if snap == nil {
		return nil, domain.ErrNoActiveSession
	}

	if c.session != nil && c.session.ID == snap.ID && !c.session.Status.Terminal() {
		c.showStep(ctx, false)
		return c.session, nil
	}
	if _, err := c.active(); err == nil {
		// A different live session is held locally; the backend's wins.
		c.closeLocal(domain.SessionAbandoned)
	}

	s := c.install(snap)

	timers, err := c.backend.ListActiveTimers(ctx, s.ID)
	if err != nil {
		c.log.Warn("listing timers of session %s: %v", s.ID, err)
	}
	for _, t := range timers {
		if err := c.timers.Restore(s.UserID, t); err != nil {
			c.log.Warn("restoring timer %s: %v", t.ID, err)
		}
	}

	c.log.Info("resumed session %s at step %d/%d", s.ID, s.CurrentStep+1, s.TotalSteps())
	c.showStep(ctx, true)
	c.presentTimers()
	return s, nil
}

// install makes a backend snapshot the current session.
func (c *Controller) install(snap *domain.SessionSnapshot) *domain.Session {
	step := snap.CurrentStep
	if step < 0 || step >= len(snap.Instructions) {
		step = 0
	}
	now := time.Now()
	c.session = &domain.Session{
		ID:                 snap.ID,
		UserID:             snap.UserID,
		RecipeID:           snap.RecipeID,
		RecipeTitle:        snap.RecipeTitle,
		Servings:           snap.Servings,
		ServingsMultiplier: snap.ServingsMultiplier,
		Instructions:       append([]string(nil), snap.Instructions...),
		Ingredients:        ingredient.ScaleAll(snap.Ingredients, snap.ServingsMultiplier),
		CurrentStep:        step,
		CheckedIngredients: make(map[int]bool),
		CompletedSteps:     make(map[int]bool),
		Status:             domain.SessionActive,
		StartedAt:          snap.StartedAt,
		UpdatedAt:          now,
	}
	c.timers.Register(snap.ID, snap.UserID)
	c.ticks = 0
	return c.session
}

func (c *Controller) navigate(ctx context.Context, dir domain.Direction) (int, error) {
	s, err := c.active()
	if err != nil {
		return 0, err
	}
	if dir == domain.DirJump {
		return 0, fmt.Errorf("navigate: use JumpTo for jumps: %w", domain.ErrInvalidStep)
	}

	nav := domain.Navigation{Direction: dir}
	target := nav.Target(s.CurrentStep, s.TotalSteps())
	if err := c.sync(ctx, s, nav); err != nil {
		return s.CurrentStep, err
	}

	moved := target != s.CurrentStep
	s.CurrentStep = target
	s.UpdatedAt = time.Now()

	switch {
	case dir == domain.DirNext && !moved:
		c.say(ctx, lineLastStep())
	case dir == domain.DirPrev && !moved:
		c.say(ctx, lineFirstStep())
	}
	c.showStep(ctx, moved || dir == domain.DirRepeat)
	return s.CurrentStep, nil
}

func (c *Controller) jumpTo(ctx context.Context, step int) error {
	s, err := c.active()
	if err != nil {
		return err
	}
	if step < 0 || step >= s.TotalSteps() {
		return fmt.Errorf("jump to step %d of %d: %w", step+1, s.TotalSteps(), domain.ErrInvalidStep)
	}

	nav := domain.Navigation{Direction: domain.DirJump, Step: step}
	if err := c.sync(ctx, s, nav); err != nil {
		return err
	}
	s.CurrentStep = step
	s.UpdatedAt = time.Now()
	c.showStep(ctx, true)
	return nil
}

// sync tells the backend about a move. On failure the user hears about
// it and the caller keeps the local step.
func (c *Controller) sync(ctx context.Context, s *domain.Session, nav domain.Navigation) error {
	res, err := c.backend.Navigate(ctx, s.UserID, s.ID, nav)
	if err != nil {
		c.log.Warn("backend navigate %s for session %s: %v", nav.Direction, s.ID, err)
		c.say(ctx, lineSyncFailed())
		c.presenter.Present(domain.ErrorRaised{Message: lineSyncFailed()})
		return fmt.Errorf("navigate %s: %w", nav.Direction, err)
	}
	if want := nav.Target(s.CurrentStep, s.TotalSteps()); res != nil && res.NewStep != want {
		c.log.Debug("backend reports step %d, local step %d", res.NewStep, want)
	}
	return nil
}

func (c *Controller) toggleIngredient(index int) (bool, error) {
	s, err := c.active()
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(s.Ingredients) {
		return false, fmt.Errorf("ingredient %d: %w", index, domain.ErrInvalidIngredient)
	}
	checked := flip(s.CheckedIngredients, index)
	s.UpdatedAt = time.Now()
	c.presentStep()
	return checked, nil
}

func (c *Controller) toggleStep(index int) (bool, error) {
	s, err := c.active()
	if err != nil {
		return false, err
	}
	if index < 0 || index >= s.TotalSteps() {
		return false, fmt.Errorf("step %d: %w", index, domain.ErrInvalidStep)
	}
	done := flip(s.CompletedSteps, index)
	s.UpdatedAt = time.Now()
	c.presentStep()
	return done, nil
}

func flip(set map[int]bool, k int) bool {
	if set[k] {
		delete(set, k)
		return false
	}
	set[k] = true
	return true
}

func (c *Controller) readStep(ctx context.Context) error {
	if _, err := c.active(); err != nil {
		return err
	}
	c.showStep(ctx, true)
	return nil
}

func (c *Controller) readIngredients(ctx context.Context) error {
	s, err := c.active()
	if err != nil {
		return err
	}
	matches := ingredient.Match(s.Instruction(), s.Ingredients)
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, s.Ingredients[m.Index])
	}
	c.say(ctx, lineIngredients(lines))
	return nil
}

func (c *Controller) openIngredients() error {
	s, err := c.active()
	if err != nil {
		return err
	}
	c.presenter.Present(domain.IngredientsShown{
		Ingredients: append([]string(nil), s.Ingredients...),
		Matches:     ingredient.Match(s.Instruction(), s.Ingredients),
		Checked:     cloneSet(s.CheckedIngredients),
	})
	return nil
}

func (c *Controller) silence() {
	if sil, ok := c.notifier.(domain.Silencer); ok {
		sil.Silence()
	}
}

func (c *Controller) toggleVoice(ctx context.Context) error {
	v := c.getVoice()
	if v == nil {
		return fmt.Errorf("voice commands are not available")
	}
	if v.Listening() {
		v.Stop()
		c.say(ctx, lineVoiceOff())
		c.presenter.Present(domain.VoiceChanged{Listening: false})
		return nil
	}
	if err := v.Start(c.runCtx); err != nil {
		c.presenter.Present(domain.ErrorRaised{Message: lineVoiceFailed(err)})
		return err
	}
	c.say(ctx, lineVoiceOn())
	c.presenter.Present(domain.VoiceChanged{Listening: true})
	return nil
}

func (c *Controller) speechError(ctx context.Context, err error, fatal bool) {
	c.presenter.Present(domain.ErrorRaised{Message: err.Error(), Fatal: fatal})
	if fatal {
		c.sayUrgent(ctx, lineVoiceFailed(err))
		c.presenter.Present(domain.VoiceChanged{Listening: false})
	}
}

// ── Timers ───────────────────────────────────────────────────────

func (c *Controller) setTimer(ctx context.Context, cmd domain.SetTimer) error {
	s, err := c.active()
	if err != nil {
		return err
	}
	label := cmd.Label
	if label == "" {
		label = lineTimerLabel(s.CurrentStep)
	}
	_, err = c.createTimer(ctx, domain.TimerSpec{
		Label:           label,
		DurationSeconds: cmd.Seconds,
		StepIndex:       domain.IntPtr(s.CurrentStep),
	})
	return err
}

func (c *Controller) createTimer(ctx context.Context, spec domain.TimerSpec) (string, error) {
	s, err := c.active()
	if err != nil {
		return "", err
	}
	if spec.DurationSeconds <= 0 {
		return "", fmt.Errorf("timer %q: %w", spec.Label, domain.ErrInvalidDuration)
	}
	if spec.StepIndex != nil && (*spec.StepIndex < 0 || *spec.StepIndex >= s.TotalSteps()) {
		return "", fmt.Errorf("timer step %d: %w", *spec.StepIndex, domain.ErrInvalidStep)
	}
	if spec.Label == "" {
		spec.Label = "Timer"
	}

	id, err := c.backend.CreateTimer(ctx, s.UserID, s.ID, spec)
	if err != nil {
		return "", fmt.Errorf("creating timer: %w", err)
	}
	spec.ID = id
	if id, err = c.timers.Create(s.UserID, s.ID, spec); err != nil {
		return "", fmt.Errorf("creating timer: %w", err)
	}

	c.say(ctx, lineTimerSet(spec.Label, spec.DurationSeconds))
	c.presentTimers()
	return id, nil
}

// sessionTimer looks up a timer owned by the current session.
func (c *Controller) sessionTimer(id string) (*domain.Session, domain.Timer, error) {
	s, err := c.active()
	if err != nil {
		return nil, domain.Timer{}, err
	}
	t, err := c.timers.Get(id)
	if err != nil {
		return nil, domain.Timer{}, err
	}
	if t.SessionID != s.ID {
		return nil, domain.Timer{}, domain.ErrTimerNotFound
	}
	return s, t, nil
}

func (c *Controller) pauseTimer(ctx context.Context, id string) error {
	if _, _, err := c.sessionTimer(id); err != nil {
		return err
	}
	if err := c.timers.Pause(id); err != nil {
		return err
	}
	if t, err := c.timers.Get(id); err == nil {
		if err := c.backend.UpdateTimerRemaining(ctx, id, t.RemainingSeconds); err != nil {
			c.log.Warn("saving remaining time of timer %s: %v", id, err)
		}
	}
	c.presentTimers()
	return nil
}

func (c *Controller) resumeTimer(id string) error {
	if _, _, err := c.sessionTimer(id); err != nil {
		return err
	}
	if err := c.timers.Resume(id); err != nil {
		return err
	}
	c.presentTimers()
	return nil
}

func (c *Controller) cancelTimer(ctx context.Context, id string) error {
	_, t, err := c.sessionTimer(id)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		return nil
	}
	if err := c.timers.Cancel(id); err != nil {
		return err
	}
	if err := c.backend.CancelTimer(ctx, id); err != nil {
		c.log.Warn("backend cancel timer %s: %v", id, err)
	}
	c.say(ctx, lineTimerCancelled(t.Label))
	c.presentTimers()
	return nil
}

// stopLatestTimer cancels the most recently created live timer.
func (c *Controller) stopLatestTimer(ctx context.Context) error {
	s, err := c.active()
	if err != nil {
		return err
	}
	live := c.timers.ListActive(s.ID)
	if len(live) == 0 {
		c.say(ctx, lineNoTimers())
		return nil
	}
	return c.cancelTimer(ctx, live[len(live)-1].ID)
}

func (c *Controller) tick(ctx context.Context) {
	events := c.timers.Tick()

	s := c.session
	if s == nil || s.Status.Terminal() {
		return
	}
	c.ticks++

	for _, ev := range events {
		if c.eventSession(ev) != s.ID {
			continue
		}
		switch ev := ev.(type) {
		case domain.TimerCompleted:
			c.rec.TimerCompleted()
			if err := c.backend.CompleteTimer(ctx, ev.Timer.ID); err != nil {
				c.log.Warn("backend complete timer %s: %v", ev.Timer.ID, err)
			}
			c.log.Info("timer %s (%s) done", ev.Timer.ID, ev.Timer.Label)
			c.sayUrgent(ctx, lineTimerDone(ev.Timer))
		case domain.TimerAlmostDone:
			c.say(ctx, lineTimerAlmostDone(ev.Timer))
		case domain.AlertRequested:
			c.alert(domain.AlertTimer, ev.Label)
		case domain.AutoAdvanceRequested:
			if ev.StepIndex == nil || *ev.StepIndex == s.CurrentStep {
				if _, err := c.navigate(ctx, domain.DirNext); err != nil {
					c.log.Warn("auto-advance: %v", err)
				}
			}
		}
	}

	live := c.timers.ListActive(s.ID)
	if c.syncEvery > 0 && c.ticks%c.syncEvery == 0 {
		for _, t := range live {
			if t.Status != domain.TimerActive {
				continue
			}
			if err := c.backend.UpdateTimerRemaining(ctx, t.ID, t.RemainingSeconds); err != nil {
				c.log.Debug("sync timer %s: %v", t.ID, err)
			}
		}
	}
	if len(events) > 0 || len(live) > 0 {
		c.presenter.Present(domain.TimersChanged{Timers: live})
	}
}

func (c *Controller) eventSession(ev domain.TimerEvent) string {
	switch ev := ev.(type) {
	case domain.TimerCompleted:
		return ev.Timer.SessionID
	case domain.TimerAlmostDone:
		return ev.Timer.SessionID
	case domain.AlertRequested:
		return ev.SessionID
	case domain.AutoAdvanceRequested:
		return ev.SessionID
	}
	return ""
}

// alert plays a chime off the actor goroutine; chimes can take a second.
func (c *Controller) alert(kind domain.AlertKind, message string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.alerter.Alert(ctx, kind, message); err != nil {
			c.log.Debug("alert: %v", err)
		}
	}()
}

// ── Lifecycle ────────────────────────────────────────────────────

func (c *Controller) complete(ctx context.Context, outcome domain.Outcome) error {
	s := c.session
	if s == nil || s.Status.Terminal() {
		return domain.ErrSessionNotFound
	}
	if outcome.Rating != nil && (*outcome.Rating < 1 || *outcome.Rating > 5) {
		return fmt.Errorf("rating %d: %w", *outcome.Rating, domain.ErrInvalidRating)
	}
	if err := c.backend.CompleteSession(ctx, s.UserID, s.ID, outcome); err != nil {
		return fmt.Errorf("completing session: %w", err)
	}

	c.closeLocal(domain.SessionCompleted)
	c.say(ctx, lineCompleted())
	return nil
}

func (c *Controller) abandon(ctx context.Context) error {
	s := c.session
	if s == nil || s.Status.Terminal() {
		return domain.ErrSessionNotFound
	}

	c.closeLocal(domain.SessionAbandoned)
	if err := c.backend.AbandonSession(ctx, s.UserID, s.ID); err != nil {
		c.log.Warn("backend abandon session %s: %v", s.ID, err)
		c.say(ctx, lineAbandonSyncFailed())
		return nil
	}
	c.say(ctx, lineAbandoned())
	return nil
}

// closeLocal cancels the session's timers and marks it terminal.
func (c *Controller) closeLocal(status domain.SessionStatus) {
	s := c.session
	cancelled := c.timers.CloseSession(s.ID)
	s.Status = status
	s.UpdatedAt = time.Now()
	c.rec.SessionEnded(status)
	c.log.Info("session %s %s (%d timers cancelled)", s.ID, status, len(cancelled))

	c.presenter.Present(domain.TimersChanged{})
	c.presenter.Present(domain.SessionEnded{Status: status})
}

func (c *Controller) view() (View, error) {
	if c.session == nil {
		return View{}, domain.ErrNoActiveSession
	}
	s := c.session
	v := View{
		Session: s.Clone(),
		Matches: ingredient.Match(s.Instruction(), s.Ingredients),
	}
	if !s.Status.Terminal() {
		v.Timers = c.timers.ListActive(s.ID)
	}
	if voice := c.getVoice(); voice != nil {
		v.Listening = voice.Listening()
	}
	return v, nil
}

// ── Output ───────────────────────────────────────────────────────

// showStep presents the current step and, when speak is set, reads it.
func (c *Controller) showStep(ctx context.Context, speak bool) {
	s := c.presentStep()
	if s != nil && speak {
		c.say(ctx, lineStep(s.CurrentStep, s.TotalSteps(), s.Instruction()))
	}
}

func (c *Controller) presentStep() *domain.Session {
	s, err := c.active()
	if err != nil {
		return nil
	}
	c.presenter.Present(domain.StepShown{
		Step:        s.CurrentStep,
		Total:       s.TotalSteps(),
		Instruction: s.Instruction(),
		Matches:     ingredient.Match(s.Instruction(), s.Ingredients),
		Ingredients: append([]string(nil), s.Ingredients...),
		Checked:     cloneSet(s.CheckedIngredients),
		Completed:   cloneSet(s.CompletedSteps),
	})
	return s
}

func (c *Controller) presentTimers() {
	s, err := c.active()
	if err != nil {
		return
	}
	c.presenter.Present(domain.TimersChanged{Timers: c.timers.ListActive(s.ID)})
}

func (c *Controller) say(ctx context.Context, msg string) {
	if err := c.notifier.Notify(ctx, msg); err != nil {
		c.log.Debug("notify: %v", err)
	}
}

func (c *Controller) sayUrgent(ctx context.Context, msg string) {
	if err := c.notifier.NotifyUrgent(ctx, msg); err != nil {
		c.log.Debug("notify: %v", err)
	}
}

func cloneSet(in map[int]bool) map[int]bool {
	out := make(map[int]bool, len(in))
	for k, v := range in {
		if v {
			out[k] = true
		}
	}
	return out
}
