package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/session"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes. Anything not
// listed came from a failing backend.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrTimerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidStep),
		errors.Is(err, domain.ErrInvalidIngredient),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrNoInstructions),
		errors.Is(err, domain.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoActiveSession):
		return http.StatusConflict
	case errors.Is(err, domain.ErrControllerStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func fail(w http.ResponseWriter, err error) {
	Error(w, statusFor(err), err.Error())
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ── Wire types ───────────────────────────────────────────────────

type recipeJSON struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Servings     int      `json:"servings"`
	Steps        int      `json:"steps"`
	Tags         []string `json:"tags,omitempty"`
	Ingredients  []string `json:"ingredients,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
}

func encodeSummary(r domain.RecipeSummary) recipeJSON {
	return recipeJSON{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Servings:    r.Servings,
		Steps:       r.Steps,
		Tags:        r.Tags,
	}
}

func encodeRecipe(r *domain.Recipe) recipeJSON {
	out := encodeSummary(r.Summary())
	out.Ingredients = r.Ingredients
	out.Instructions = r.Instructions
	return out
}

type matchJSON struct {
	Index     int    `json:"index"`
	Relevance string `json:"relevance"`
}

func encodeMatches(ms []domain.IngredientMatch) []matchJSON {
	out := make([]matchJSON, 0, len(ms))
	for _, m := range ms {
		out = append(out, matchJSON{Index: m.Index, Relevance: m.Relevance.String()})
	}
	return out
}

type timerJSON struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	Label            string    `json:"label"`
	DurationSeconds  int       `json:"duration_seconds"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Status           string    `json:"status"`
	StepIndex        *int      `json:"step_index,omitempty"`
	AlertMessage     string    `json:"alert_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func encodeTimers(ts []domain.Timer) []timerJSON {
	out := make([]timerJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, timerJSON{
			ID:               t.ID,
			SessionID:        t.SessionID,
			Label:            t.Label,
			DurationSeconds:  t.DurationSeconds,
			RemainingSeconds: t.RemainingSeconds,
			Status:           t.Status.String(),
			StepIndex:        t.StepIndex,
			AlertMessage:     t.AlertMessage,
			CreatedAt:        t.CreatedAt,
		})
	}
	return out
}

type sessionJSON struct {
	ID                 string      `json:"id"`
	RecipeID           string      `json:"recipe_id"`
	RecipeTitle        string      `json:"recipe_title"`
	Servings           int         `json:"servings"`
	ServingsMultiplier float64     `json:"servings_multiplier"`
	Status             string      `json:"status"`
	CurrentStep        int         `json:"current_step"`
	TotalSteps         int         `json:"total_steps"`
	Instruction        string      `json:"instruction"`
	Instructions       []string    `json:"instructions"`
	Ingredients        []string    `json:"ingredients"`
	Matches            []matchJSON `json:"matches"`
	Checked            []int       `json:"checked"`
	Completed          []int       `json:"completed"`
	Timers             []timerJSON `json:"timers"`
	Listening          bool        `json:"listening"`
	StartedAt          time.Time   `json:"started_at"`
}

func encodeView(v session.View) sessionJSON {
	s := v.Session
	return sessionJSON{
		ID:                 s.ID,
		RecipeID:           s.RecipeID,
		RecipeTitle:        s.RecipeTitle,
		Servings:           s.Servings,
		ServingsMultiplier: s.ServingsMultiplier,
		Status:             s.Status.String(),
		CurrentStep:        s.CurrentStep,
		TotalSteps:         s.TotalSteps(),
		Instruction:        s.Instruction(),
		Instructions:       s.Instructions,
		Ingredients:        s.Ingredients,
		Matches:            encodeMatches(v.Matches),
		Checked:            sortedKeys(s.CheckedIngredients),
		Completed:          sortedKeys(s.CompletedSteps),
		Timers:             encodeTimers(v.Timers),
		Listening:          v.Listening,
		StartedAt:          s.StartedAt,
	}
}
