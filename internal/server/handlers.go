package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/session"
)

// ── Recipes ──────────────────────────────────────────────────────

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	var (
		list []domain.RecipeSummary
		err  error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		list, err = s.recipes.Search(r.Context(), q)
	} else {
		list, err = s.recipes.List(r.Context())
	}
	if err != nil {
		fail(w, err)
		return
	}
	out := make([]recipeJSON, 0, len(list))
	for _, rs := range list {
		out = append(out, encodeSummary(rs))
	}
	JSON(w, http.StatusOK, out)
}

func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := s.recipes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	JSON(w, http.StatusOK, encodeRecipe(rec))
}

// ── Session ──────────────────────────────────────────────────────

// userRuntime resolves the caller's runtime, writing the error response
// when that fails.
func (s *Server) userRuntime(w http.ResponseWriter, r *http.Request) (*runtime, bool) {
	rt, err := s.runtimeFor(UserIDFromContext(r.Context()))
	if err != nil {
		fail(w, err)
		return nil, false
	}
	return rt, true
}

// attach loads the user's backend session into a runtime that holds no
// live session, so a restarted server picks up where the user left off.
func (rt *runtime) attach(ctx context.Context) error {
	v, err := rt.ctrl.Snapshot(ctx)
	if err == nil && !v.Session.Status.Terminal() {
		return nil
	}
	if err != nil && !errors.Is(err, domain.ErrNoActiveSession) {
		return err
	}
	if _, err := rt.ctrl.ResumeActive(ctx, rt.userID); err != nil && !errors.Is(err, domain.ErrNoActiveSession) {
		return err
	}
	return nil
}

// withSession runs fn against an attached runtime and replies with the
// resulting session view.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, status int, fn func(ctx context.Context, rt *runtime) error) {
	rt, ok := s.userRuntime(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := rt.attach(ctx); err != nil {
		fail(w, err)
		return
	}
	if err := fn(ctx, rt); err != nil {
		fail(w, err)
		return
	}
	v, err := rt.ctrl.Snapshot(ctx)
	if err != nil {
		fail(w, err)
		return
	}
	JSON(w, status, encodeView(v))
}

type startRequest struct {
	RecipeID           string  `json:"recipe_id"`
	ServingsMultiplier float64 `json:"servings_multiplier"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RecipeID == "" {
		Error(w, http.StatusBadRequest, "recipe_id is required")
		return
	}
	if req.ServingsMultiplier < 0 {
		Error(w, http.StatusBadRequest, "servings_multiplier must be positive")
		return
	}
	rt, ok := s.userRuntime(w, r)
	if !ok {
		return
	}
	if _, err := rt.ctrl.Begin(r.Context(), rt.userID, req.RecipeID, req.ServingsMultiplier); err != nil {
		fail(w, err)
		return
	}
	v, err := rt.ctrl.Snapshot(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	JSON(w, http.StatusCreated, encodeView(v))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.userRuntime(w, r)
	if !ok {
		return
	}
	if err := rt.attach(r.Context()); err != nil {
		fail(w, err)
		return
	}
	v, err := rt.ctrl.Snapshot(r.Context())
	if errors.Is(err, domain.ErrNoActiveSession) {
		Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		fail(w, err)
		return
	}
	JSON(w, http.StatusOK, encodeView(v))
}

type navigateRequest struct {
	Direction string `json:"direction"`
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	dir, ok := domain.DirectionFromString(req.Direction)
	if !ok || dir == domain.DirJump {
		Error(w, http.StatusBadRequest, "direction must be next, back or repeat")
		return
	}
	s.withSession(w, r, http.StatusOK, func(ctx context.Context, rt *runtime) error {
		_, err := rt.ctrl.Navigate(ctx, dir)
		return err
	})
}

type jumpRequest struct {
	Step *int `json:"step"`
}

func (s *Server) jump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := decode(r, &req); err != nil || req.Step == nil {
		Error(w, http.StatusBadRequest, "step is required")
		return
	}
	s.withSession(w, r, http.StatusOK, func(ctx context.Context, rt *runtime) error {
		return rt.ctrl.JumpTo(ctx, *req.Step)
	})
}

func (s *Server) toggleIngredient(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		Error(w, http.StatusBadRequest, "index must be a number")
		return
	}
	s.withSession(w, r, http.StatusOK, func(ctx context.Context, rt *runtime) error {
		_, err := rt.ctrl.ToggleIngredient(ctx, index)
		return err
	})
}

func (s *Server) toggleStep(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		Error(w, http.StatusBadRequest, "index must be a number")
		return
	}
	s.withSession(w, r, http.StatusOK, func(ctx context.Context, rt *runtime) error {
		_, err := rt.ctrl.ToggleStepCompletion(ctx, index)
		return err
	})
}

type completeRequest struct {
	Rating   *int   `json:"rating"`
	Notes    string `json:"notes"`
	PhotoURL string `json:"photo_url"`
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.withSession(w, r, http.StatusOK, func(ctx context.Context, rt *runtime) error {
		return rt.ctrl.Complete(ctx, domain.Outcome{Rating: req.Rating, Notes: req.Notes, PhotoURL: req.PhotoURL})
	})
}

func (s *Server) abandon(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, http.StatusOK, func(ctx context.Context, rt *runtime) error {
		return rt.ctrl.Abandon(ctx)
	})
}

// ── Timers ───────────────────────────────────────────────────────

func (s *Server) listTimers(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.userRuntime(w, r)
	if !ok {
		return
	}
	if err := rt.attach(r.Context()); err != nil {
		fail(w, err)
		return
	}
	v, err := rt.ctrl.Snapshot(r.Context())
	if errors.Is(err, domain.ErrNoActiveSession) {
		JSON(w, http.StatusOK, []timerJSON{})
		return
	}
	if err != nil {
		fail(w, err)
		return
	}
	JSON(w, http.StatusOK, encodeTimers(v.Timers))
}

type presetJSON struct {
	Minutes int    `json:"minutes"`
	Action  string `json:"action"`
}

// timerPresets lists the quick timers a client can offer.
func (s *Server) timerPresets(w http.ResponseWriter, r *http.Request) {
	out := make([]presetJSON, 0, len(s.settings.QuickTimers))
	for _, p := range s.settings.QuickTimers {
		out = append(out, presetJSON{Minutes: p.Minutes, Action: p.String()})
	}
	JSON(w, http.StatusOK, out)
}

type timerRequest struct {
	Label           string `json:"label"`
	DurationSeconds int    `json:"duration_seconds"`
	StepIndex       *int   `json:"step_index"`
	AlertMessage    string `json:"alert_message"`
}

func (s *Server) createTimer(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rt, ok := s.userRuntime(w, r)
	if !ok {
		return
	}
	if err := rt.attach(r.Context()); err != nil {
		fail(w, err)
		return
	}
	id, err := rt.ctrl.CreateTimer(r.Context(), domain.TimerSpec{
		Label:           req.Label,
		DurationSeconds: req.DurationSeconds,
		StepIndex:       req.StepIndex,
		AlertMessage:    req.AlertMessage,
	})
	if err != nil {
		fail(w, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) timerAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var op func(ctx context.Context, rt *runtime) error
	switch chi.URLParam(r, "action") {
	case "pause":
		op = func(ctx context.Context, rt *runtime) error { return rt.ctrl.PauseTimer(ctx, id) }
	case "resume":
		op = func(ctx context.Context, rt *runtime) error { return rt.ctrl.ResumeTimer(ctx, id) }
	case "cancel":
		op = func(ctx context.Context, rt *runtime) error { return rt.ctrl.CancelTimer(ctx, id) }
	default:
		Error(w, http.StatusNotFound, "unknown timer action")
		return
	}
	s.withSession(w, r, http.StatusOK, op)
}

// ── Commands ─────────────────────────────────────────────────────

type commandRequest struct {
	Command string `json:"command"`
	Arg     int    `json:"arg"`
}

// parseCommand accepts a command name ("next_step", "set_timer" with
// arg seconds) or a free-text phrase ("set a timer for 5 minutes").
func (s *Server) parseCommand(req commandRequest) (domain.Command, error) {
	text := strings.TrimSpace(req.Command)
	if kind := domain.CommandKindFromString(text); kind != domain.CmdUnknown {
		return domain.NewCommand(kind, req.Arg)
	}
	if cmd, ok := s.matcher.Match(text); ok {
		return cmd, nil
	}
	return nil, domain.ErrUnknownCommand
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd, err := s.parseCommand(req)
	if err != nil {
		fail(w, err)
		return
	}
	rt, ok := s.userRuntime(w, r)
	if !ok {
		return
	}
	if err := rt.attach(r.Context()); err != nil {
		fail(w, err)
		return
	}
	if !rt.ctrl.Post(session.SourceAPI, cmd) {
		Error(w, http.StatusServiceUnavailable, "command queue full")
		return
	}
	JSON(w, http.StatusAccepted, map[string]string{"command": cmd.Kind().String()})
}
