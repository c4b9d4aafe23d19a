// Package storage provides the session persistence backends: an
// in-memory one for tests and single-process use, and a SQLite one.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Compile-time interface check.
var _ domain.SessionBackend = (*MemoryBackend)(nil)

type sessionRecord struct {
	snap    domain.SessionSnapshot
	outcome *domain.Outcome
	updated time.Time
}

// MemoryBackend keeps sessions and timers in memory. Safe for concurrent
// access.
type MemoryBackend struct {
	recipes domain.RecipeSource
	log     *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionRecord
	active   map[string]string // user id -> session id
	timers   map[string]*domain.Timer
	order    []string // timer ids in creation order
}

// NewMemoryBackend creates an empty backend reading recipes from src.
func NewMemoryBackend(src domain.RecipeSource, log *logger.Logger) *MemoryBackend {
	return &MemoryBackend{
		recipes:  src,
		log:      log,
		sessions: make(map[string]*sessionRecord),
		active:   make(map[string]string),
		timers:   make(map[string]*domain.Timer),
	}
}

// StartSession opens a session. A user's previous active session is
// abandoned.
func (b *MemoryBackend) StartSession(ctx context.Context, userID, recipeID string, mult float64) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthorized
	}
	r, err := b.recipes.Get(ctx, recipeID)
	if err != nil {
		return "", fmt.Errorf("recipe %s: %w", recipeID, err)
	}
	if len(r.Instructions) == 0 {
		return "", fmt.Errorf("recipe %s: %w", recipeID, domain.ErrNoInstructions)
	}
	if mult <= 0 {
		mult = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.active[userID]; ok {
		b.endLocked(prev, domain.SessionAbandoned)
		b.log.Debug("abandoned previous session %s of user %s", prev, userID)
	}

	now := time.Now()
	id := uuid.NewString()
	b.sessions[id] = &sessionRecord{
		snap: domain.SessionSnapshot{
			ID:                 id,
			UserID:             userID,
			RecipeID:           r.ID,
			RecipeTitle:        r.Title,
			Servings:           r.Servings,
			ServingsMultiplier: mult,
			Instructions:       append([]string(nil), r.Instructions...),
			Ingredients:        append([]string(nil), r.Ingredients...),
			Status:             domain.SessionActive,
			StartedAt:          now,
		},
		updated: now,
	}
	b.active[userID] = id
	b.log.Debug("session %s started for user %s (recipe %s)", id, userID, r.ID)
	return id, nil
}

// GetActiveSession returns nil when the user has no active session.
func (b *MemoryBackend) GetActiveSession(ctx context.Context, userID string) (*domain.SessionSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	id, ok := b.active[userID]
	if !ok {
		return nil, nil
	}
	snap := b.sessions[id].snap
	snap.Instructions = append([]string(nil), snap.Instructions...)
	snap.Ingredients = append([]string(nil), snap.Ingredients...)
	return &snap, nil
}

// Navigate moves the stored step pointer.
func (b *MemoryBackend) Navigate(ctx context.Context, userID, sessionID string, nav domain.Navigation) (*domain.NavigationResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.liveLocked(userID, sessionID)
	if err != nil {
		return nil, err
	}
	res, err := applyNavigation(rec.snap.CurrentStep, rec.snap.Instructions, nav)
	if err != nil {
		return nil, err
	}
	rec.snap.CurrentStep = res.NewStep
	rec.updated = time.Now()
	return res, nil
}

// CompleteSession stores the outcome and closes the session.
func (b *MemoryBackend) CompleteSession(ctx context.Context, userID, sessionID string, outcome domain.Outcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.liveLocked(userID, sessionID)
	if err != nil {
		return err
	}
	rec.outcome = &outcome
	b.endLocked(sessionID, domain.SessionCompleted)
	return nil
}

// AbandonSession closes the session without an outcome.
func (b *MemoryBackend) AbandonSession(ctx context.Context, userID, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.sessions[sessionID]
	if !ok || rec.snap.Status.Terminal() {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	if rec.snap.UserID != userID {
		return domain.ErrUnauthorized
	}
	b.endLocked(sessionID, domain.SessionAbandoned)
	return nil
}

// CreateTimer stores a new active timer.
func (b *MemoryBackend) CreateTimer(ctx context.Context, userID, sessionID string, spec domain.TimerSpec) (string, error) {
	if spec.DurationSeconds <= 0 {
		return "", fmt.Errorf("timer %q: %w", spec.Label, domain.ErrInvalidDuration)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.liveLocked(userID, sessionID); err != nil {
		return "", err
	}
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := b.timers[id]; exists {
		return "", fmt.Errorf("timer %s already exists", id)
	}
	b.timers[id] = &domain.Timer{
		ID:               id,
		SessionID:        sessionID,
		Label:            spec.Label,
		DurationSeconds:  spec.DurationSeconds,
		RemainingSeconds: spec.DurationSeconds,
		Status:           domain.TimerActive,
		StepIndex:        spec.StepIndex,
		AlertMessage:     spec.AlertMessage,
		CreatedAt:        time.Now(),
	}
	b.order = append(b.order, id)
	return id, nil
}

// ListActiveTimers returns a session's live timers in creation order.
func (b *MemoryBackend) ListActiveTimers(ctx context.Context, sessionID string) ([]domain.Timer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []domain.Timer
	for _, id := range b.order {
		t := b.timers[id]
		if t.SessionID == sessionID && !t.Status.Terminal() {
			out = append(out, *t)
		}
	}
	return out, nil
}

// CancelTimer marks a timer cancelled. Terminal timers are left alone.
func (b *MemoryBackend) CancelTimer(ctx context.Context, id string) error {
	return b.setTimerStatus(id, domain.TimerCancelled)
}

// CompleteTimer marks a timer completed.
func (b *MemoryBackend) CompleteTimer(ctx context.Context, id string) error {
	return b.setTimerStatus(id, domain.TimerDone)
}

// UpdateTimerRemaining stores the seconds left on a timer.
func (b *MemoryBackend) UpdateTimerRemaining(ctx context.Context, id string, seconds int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.timers[id]
	if !ok {
		return domain.ErrTimerNotFound
	}
	if seconds < 0 {
		seconds = 0
	}
	t.RemainingSeconds = seconds
	return nil
}

func (b *MemoryBackend) setTimerStatus(id string, status domain.TimerStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.timers[id]
	if !ok {
		return domain.ErrTimerNotFound
	}
	if t.Status.Terminal() {
		return nil
	}
	t.Status = status
	if status == domain.TimerDone {
		t.RemainingSeconds = 0
	}
	return nil
}

// liveLocked returns an active session owned by userID.
func (b *MemoryBackend) liveLocked(userID, sessionID string) (*sessionRecord, error) {
	rec, ok := b.sessions[sessionID]
	if !ok || rec.snap.Status.Terminal() {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if rec.snap.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return rec, nil
}

// endLocked makes a session terminal and cancels its timers.
func (b *MemoryBackend) endLocked(sessionID string, status domain.SessionStatus) {
	rec := b.sessions[sessionID]
	rec.snap.Status = status
	rec.updated = time.Now()
	if b.active[rec.snap.UserID] == sessionID {
		delete(b.active, rec.snap.UserID)
	}
	for _, t := range b.timers {
		if t.SessionID == sessionID && !t.Status.Terminal() {
			t.Status = domain.TimerCancelled
		}
	}
}
