// Package timer implements the countdown timers of a cooking session and
// the single clock that drives them.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Option configures the manager.
type Option func(*Manager)

// WithAutoAdvance makes every completion also request a step advance.
func WithAutoAdvance(enabled bool) Option {
	return func(m *Manager) {
		m.autoAdvance = enabled
	}
}

// WithAlmostDoneThreshold sets how close to expiry a timer must be to
// raise the "almost done" warning. Zero disables the warning.
func WithAlmostDoneThreshold(d time.Duration) Option {
	return func(m *Manager) {
		m.almostDone = int(d / time.Second)
	}
}

// WithIDGenerator replaces the UUID generator. Used by tests.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// WithNow replaces the wall clock used for CreatedAt stamps.
func WithNow(fn func() time.Time) Option {
	return func(m *Manager) {
		m.now = fn
	}
}

// Manager owns every timer of the sessions registered with it. It has no
// goroutines of its own: Tick is called by whoever owns the clock, and the
// resulting events are returned rather than acted on.
type Manager struct {
	log         *logger.Logger
	autoAdvance bool
	almostDone  int
	newID       func() string
	now         func() time.Time

	mu       sync.Mutex
	owners   map[string]string // session id -> user id
	order    []*entry          // creation order
	byID     map[string]*entry
	sequence uint64
}

type entry struct {
	timer  domain.Timer
	seq    uint64
	warned bool
}

// NewManager creates an empty timer manager.
func NewManager(log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		log:        log,
		almostDone: 30,
		newID:      uuid.NewString,
		now:        time.Now,
		owners:     make(map[string]string),
		byID:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register makes a session eligible for timers.
func (m *Manager) Register(sessionID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[sessionID] = userID
}

// Create starts a new active timer for the session.
func (m *Manager) Create(userID, sessionID string, spec domain.TimerSpec) (string, error) {
	if spec.DurationSeconds <= 0 {
		return "", fmt.Errorf("timer %q: %w", spec.Label, domain.ErrInvalidDuration)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.owners[sessionID]
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	if owner != userID {
		return "", domain.ErrUnauthorized
	}

	id := spec.ID
	if id == "" {
		id = m.newID()
	}
	if _, exists := m.byID[id]; exists {
		return "", fmt.Errorf("timer %s already exists", id)
	}

	m.sequence++
	e := &entry{
		seq: m.sequence,
		timer: domain.Timer{
			ID:               id,
			SessionID:        sessionID,
			Label:            spec.Label,
			DurationSeconds:  spec.DurationSeconds,
			RemainingSeconds: spec.DurationSeconds,
			Status:           domain.TimerActive,
			StepIndex:        spec.StepIndex,
			AlertMessage:     spec.AlertMessage,
			CreatedAt:        m.now(),
		},
	}
	m.order = append(m.order, e)
	m.byID[id] = e

	m.log.Debug("timer %s created for session %s (%q, %ds)", id, sessionID, spec.Label, spec.DurationSeconds)
	return id, nil
}

// Restore re-creates a timer loaded from persistence with its remaining
// time and status intact. Terminal timers are ignored.
func (m *Manager) Restore(userID string, t domain.Timer) error {
	if t.Status.Terminal() {
		return nil
	}
	id, err := m.Create(userID, t.SessionID, domain.TimerSpec{
		ID:              t.ID,
		Label:           t.Label,
		DurationSeconds: t.DurationSeconds,
		StepIndex:       t.StepIndex,
		AlertMessage:    t.AlertMessage,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.byID[id]
	if t.RemainingSeconds > 0 && t.RemainingSeconds < t.DurationSeconds {
		e.timer.RemainingSeconds = t.RemainingSeconds
	}
	e.timer.Status = t.Status
	if !t.CreatedAt.IsZero() {
		e.timer.CreatedAt = t.CreatedAt
	}
	return nil
}

// Tick advances every active timer by one second. Events come back in
// timer creation order.
func (m *Manager) Tick() []domain.TimerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []domain.TimerEvent
	for _, e := range m.order {
		t := &e.timer
		if t.Status != domain.TimerActive {
			continue
		}

		t.RemainingSeconds--
		if t.RemainingSeconds <= 0 {
			t.RemainingSeconds = 0
			t.Status = domain.TimerDone
			m.log.Debug("timer %s completed for session %s", t.ID, t.SessionID)

			events = append(events,
				domain.TimerCompleted{Timer: *t},
				domain.AlertRequested{ID: t.ID, SessionID: t.SessionID, Label: t.Label, Message: t.AlertMessage},
			)
			if m.autoAdvance {
				events = append(events, domain.AutoAdvanceRequested{ID: t.ID, SessionID: t.SessionID, StepIndex: t.StepIndex})
			}
			continue
		}

		// "Almost done" warning: once, when remaining crosses the threshold.
		if !e.warned && m.almostDone > 0 && t.RemainingSeconds <= m.almostDone && t.DurationSeconds > m.almostDone*2 {
			e.warned = true
			events = append(events, domain.TimerAlmostDone{Timer: *t})
		}
	}

	m.prune()
	return events
}

// prune drops terminal timers whose session is gone. Caller holds m.mu.
func (m *Manager) prune() {
	n := 0
	for _, e := range m.order {
		if _, live := m.owners[e.timer.SessionID]; !live && e.timer.Status.Terminal() {
			delete(m.byID, e.timer.ID)
			continue
		}
		m.order[n] = e
		n++
	}
	for i := n; i < len(m.order); i++ {
		m.order[i] = nil
	}
	m.order = m.order[:n]
}

// Pause stops the countdown of an active timer.
func (m *Manager) Pause(id string) error {
	return m.transition(id, domain.TimerActive, domain.TimerPaused)
}

// Resume restarts the countdown of a paused timer.
func (m *Manager) Resume(id string) error {
	return m.transition(id, domain.TimerPaused, domain.TimerActive)
}

// Cancel ends a timer without completing it.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byID[id]
	if !ok {
		return domain.ErrTimerNotFound
	}
	if e.timer.Status.Terminal() {
		return nil
	}
	e.timer.Status = domain.TimerCancelled
	m.log.Debug("timer %s cancelled", id)
	return nil
}

func (m *Manager) transition(id string, from, to domain.TimerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byID[id]
	if !ok {
		return domain.ErrTimerNotFound
	}
	if e.timer.Status == from {
		e.timer.Status = to
		m.log.Debug("timer %s %s -> %s", id, from, to)
	}
	return nil
}

// Get returns a copy of a timer.
func (m *Manager) Get(id string) (domain.Timer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byID[id]
	if !ok {
		return domain.Timer{}, domain.ErrTimerNotFound
	}
	return e.timer, nil
}

// ListActive returns the active and paused timers of a session in
// creation order.
func (m *Manager) ListActive(sessionID string) []domain.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Timer
	for _, e := range m.order {
		if e.timer.SessionID == sessionID && !e.timer.Status.Terminal() {
			out = append(out, e.timer)
		}
	}
	return out
}

// CloseSession cancels every live timer of the session and forgets the
// session. It returns the ids it cancelled.
func (m *Manager) CloseSession(sessionID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cancelled []string
	for _, e := range m.order {
		if e.timer.SessionID == sessionID && !e.timer.Status.Terminal() {
			e.timer.Status = domain.TimerCancelled
			cancelled = append(cancelled, e.timer.ID)
		}
	}
	delete(m.owners, sessionID)
	m.prune()

	m.log.Debug("session %s closed, %d timers cancelled", sessionID, len(cancelled))
	return cancelled
}
