package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Compile-time interface check.
var _ domain.SessionBackend = (*SQLiteBackend)(nil)

// SQLiteBackend persists sessions and timers in a SQLite file.
type SQLiteBackend struct {
	db      *sql.DB
	recipes domain.RecipeSource
	log     *logger.Logger
}

// NewSQLiteBackend opens (creating if needed) the database at dbPath.
func NewSQLiteBackend(dbPath string, src domain.RecipeSource, log *logger.Logger) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL lets the HTTP handlers read while a tick writes.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	b := &SQLiteBackend{db: db, recipes: src, log: log}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	log.Info("sqlite backend ready at %s", dbPath)
	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		recipe_id TEXT NOT NULL,
		recipe_title TEXT NOT NULL,
		servings INTEGER NOT NULL,
		multiplier REAL NOT NULL,
		instructions_json TEXT NOT NULL,
		ingredients_json TEXT NOT NULL,
		current_step INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		rating INTEGER,
		notes TEXT,
		photo_url TEXT,
		started_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_status ON sessions(user_id, status);

	CREATE TABLE IF NOT EXISTS timers (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		label TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		remaining_seconds INTEGER NOT NULL,
		status TEXT NOT NULL,
		step_index INTEGER,
		alert_message TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_timers_session ON timers(session_id, status);
	`
	if _, err := b.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// ── Sessions ─────────────────────────────────────────────────────

// StartSession opens a session, abandoning the user's previous one.
func (b *SQLiteBackend) StartSession(ctx context.Context, userID, recipeID string, mult float64) (string, error) {
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

	instructions, err := json.Marshal(r.Instructions)
	if err != nil {
		return "", fmt.Errorf("encode instructions: %w", err)
	}
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return "", fmt.Errorf("encode ingredients: %w", err)
	}

	id := uuid.NewString()
	err = b.retry(ctx, "start session", func() error {
		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		now := time.Now().Unix()
		if _, err := tx.ExecContext(ctx, `
			UPDATE timers SET status = ?
			WHERE status IN (?, ?) AND session_id IN (
				SELECT id FROM sessions WHERE user_id = ? AND status = ?)`,
			domain.TimerCancelled.String(), domain.TimerActive.String(), domain.TimerPaused.String(),
			userID, domain.SessionActive.String()); err != nil {
			return fmt.Errorf("cancel previous timers: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET status = ?, updated_at = ? WHERE user_id = ? AND status = ?`,
			domain.SessionAbandoned.String(), now, userID, domain.SessionActive.String()); err != nil {
			return fmt.Errorf("abandon previous session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, user_id, recipe_id, recipe_title, servings, multiplier,
				instructions_json, ingredients_json, current_step, status, started_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
			id, userID, r.ID, r.Title, r.Servings, mult,
			string(instructions), string(ingredients), domain.SessionActive.String(), now, now); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	b.log.Debug("session %s started for user %s (recipe %s)", id, userID, r.ID)
	return id, nil
}

// GetActiveSession returns nil when the user has no active session.
func (b *SQLiteBackend) GetActiveSession(ctx context.Context, userID string) (*domain.SessionSnapshot, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, user_id, recipe_id, recipe_title, servings, multiplier,
		       instructions_json, ingredients_json, current_step, status, started_at
		FROM sessions WHERE user_id = ? AND status = ?
		ORDER BY started_at DESC LIMIT 1`,
		userID, domain.SessionActive.String())

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*domain.SessionSnapshot, error) {
	var (
		snap                      domain.SessionSnapshot
		instructions, ingredients string
		status                    string
		startedAt                 int64
	)
	err := row.Scan(
		&snap.ID, &snap.UserID, &snap.RecipeID, &snap.RecipeTitle, &snap.Servings,
		&snap.ServingsMultiplier, &instructions, &ingredients, &snap.CurrentStep,
		&status, &startedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	if err := json.Unmarshal([]byte(instructions), &snap.Instructions); err != nil {
		return nil, fmt.Errorf("decode instructions: %w", err)
	}
	if err := json.Unmarshal([]byte(ingredients), &snap.Ingredients); err != nil {
		return nil, fmt.Errorf("decode ingredients: %w", err)
	}
	snap.Status, _ = domain.SessionStatusFromString(status)
	snap.StartedAt = time.Unix(startedAt, 0)
	return &snap, nil
}

// live loads a session owned by userID and fails unless it is active.
func (b *SQLiteBackend) live(ctx context.Context, userID, sessionID string) (*domain.SessionSnapshot, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, user_id, recipe_id, recipe_title, servings, multiplier,
		       instructions_json, ingredients_json, current_step, status, started_at
		FROM sessions WHERE id = ?`, sessionID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if err != nil {
		return nil, err
	}
	if snap.Status.Terminal() {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if snap.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return snap, nil
}

// Navigate moves the stored step pointer.
func (b *SQLiteBackend) Navigate(ctx context.Context, userID, sessionID string, nav domain.Navigation) (*domain.NavigationResult, error) {
	snap, err := b.live(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	res, err := applyNavigation(snap.CurrentStep, snap.Instructions, nav)
	if err != nil {
		return nil, err
	}
	if res.NewStep == snap.CurrentStep {
		return res, nil
	}

	err = b.retry(ctx, "navigate", func() error {
		_, err := b.db.ExecContext(ctx,
			`UPDATE sessions SET current_step = ?, updated_at = ? WHERE id = ?`,
			res.NewStep, time.Now().Unix(), sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CompleteSession stores the outcome and closes the session.
func (b *SQLiteBackend) CompleteSession(ctx context.Context, userID, sessionID string, outcome domain.Outcome) error {
	if _, err := b.live(ctx, userID, sessionID); err != nil {
		return err
	}

	var rating any
	if outcome.Rating != nil {
		rating = *outcome.Rating
	}
	return b.end(ctx, sessionID, domain.SessionCompleted,
		`UPDATE sessions SET status = ?, rating = ?, notes = ?, photo_url = ?, updated_at = ? WHERE id = ?`,
		domain.SessionCompleted.String(), rating, outcome.Notes, outcome.PhotoURL, time.Now().Unix(), sessionID)
}

// AbandonSession closes the session without an outcome.
func (b *SQLiteBackend) AbandonSession(ctx context.Context, userID, sessionID string) error {
	if _, err := b.live(ctx, userID, sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
		}
		return err
	}
	return b.end(ctx, sessionID, domain.SessionAbandoned,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		domain.SessionAbandoned.String(), time.Now().Unix(), sessionID)
}

// end runs the session update and cancels the session's timers in one
// transaction.
func (b *SQLiteBackend) end(ctx context.Context, sessionID string, status domain.SessionStatus, query string, args ...any) error {
	return b.retry(ctx, "end session "+status.String(), func() error {
		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE timers SET status = ? WHERE session_id = ? AND status IN (?, ?)`,
			domain.TimerCancelled.String(), sessionID,
			domain.TimerActive.String(), domain.TimerPaused.String()); err != nil {
			return fmt.Errorf("cancel timers: %w", err)
		}
		return tx.Commit()
	})
}

// ── Timers ───────────────────────────────────────────────────────

// CreateTimer stores a new active timer.
func (b *SQLiteBackend) CreateTimer(ctx context.Context, userID, sessionID string, spec domain.TimerSpec) (string, error) {
	if spec.DurationSeconds <= 0 {
		return "", fmt.Errorf("timer %q: %w", spec.Label, domain.ErrInvalidDuration)
	}
	if _, err := b.live(ctx, userID, sessionID); err != nil {
		return "", err
	}

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	var step any
	if spec.StepIndex != nil {
		step = *spec.StepIndex
	}

	err := b.retry(ctx, "create timer", func() error {
		_, err := b.db.ExecContext(ctx, `
			INSERT INTO timers (id, session_id, label, duration_seconds, remaining_seconds,
				status, step_index, alert_message, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, sessionID, spec.Label, spec.DurationSeconds, spec.DurationSeconds,
			domain.TimerActive.String(), step, spec.AlertMessage, time.Now().Unix())
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListActiveTimers returns a session's live timers in creation order.
func (b *SQLiteBackend) ListActiveTimers(ctx context.Context, sessionID string) ([]domain.Timer, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, session_id, label, duration_seconds, remaining_seconds, status,
		       step_index, alert_message, created_at
		FROM timers WHERE session_id = ? AND status IN (?, ?)
		ORDER BY rowid`,
		sessionID, domain.TimerActive.String(), domain.TimerPaused.String())
	if err != nil {
		return nil, fmt.Errorf("query timers: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			b.log.Warn("failed to close timer rows: %v", closeErr)
		}
	}()

	var out []domain.Timer
	for rows.Next() {
		var (
			t         domain.Timer
			status    string
			step      sql.NullInt64
			alert     sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Label, &t.DurationSeconds,
			&t.RemainingSeconds, &status, &step, &alert, &createdAt); err != nil {
			return nil, fmt.Errorf("scan timer row: %w", err)
		}
		t.Status, _ = domain.TimerStatusFromString(status)
		if step.Valid {
			t.StepIndex = domain.IntPtr(int(step.Int64))
		}
		t.AlertMessage = alert.String
		t.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timers: %w", err)
	}
	return out, nil
}

// CancelTimer marks a timer cancelled. Terminal timers are left alone.
func (b *SQLiteBackend) CancelTimer(ctx context.Context, id string) error {
	return b.setTimerStatus(ctx, id, domain.TimerCancelled)
}

// CompleteTimer marks a timer completed.
func (b *SQLiteBackend) CompleteTimer(ctx context.Context, id string) error {
	return b.setTimerStatus(ctx, id, domain.TimerDone)
}

func (b *SQLiteBackend) setTimerStatus(ctx context.Context, id string, status domain.TimerStatus) error {
	query := `UPDATE timers SET status = ? WHERE id = ? AND status IN (?, ?)`
	if status == domain.TimerDone {
		query = `UPDATE timers SET status = ?, remaining_seconds = 0 WHERE id = ? AND status IN (?, ?)`
	}

	var affected int64
	err := b.retry(ctx, "timer "+status.String(), func() error {
		res, err := b.db.ExecContext(ctx, query, status.String(), id,
			domain.TimerActive.String(), domain.TimerPaused.String())
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return b.timerExists(ctx, id)
	}
	return nil
}

// UpdateTimerRemaining stores the seconds left on a timer.
func (b *SQLiteBackend) UpdateTimerRemaining(ctx context.Context, id string, seconds int) error {
	if seconds < 0 {
		seconds = 0
	}
	var affected int64
	err := b.retry(ctx, "update timer", func() error {
		res, err := b.db.ExecContext(ctx,
			`UPDATE timers SET remaining_seconds = ? WHERE id = ?`, seconds, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrTimerNotFound
	}
	return nil
}

func (b *SQLiteBackend) timerExists(ctx context.Context, id string) error {
	var n int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM timers WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("lookup timer: %w", err)
	}
	if n == 0 {
		return domain.ErrTimerNotFound
	}
	return nil
}

// ── Retry ────────────────────────────────────────────────────────

const (
	maxRetries = 3
	baseDelay  = 100 * time.Millisecond
)

// retry runs fn, retrying with exponential backoff (100ms, 200ms) while
// SQLite reports the database as busy.
func (b *SQLiteBackend) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !isBusy(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		b.log.Debug("%s: database busy, retrying in %s (attempt %d)", op, delay, i+1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
