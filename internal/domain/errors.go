package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTimerNotFound     = errors.New("timer not found")
	ErrInvalidStep       = errors.New("invalid step")
	ErrInvalidIngredient = errors.New("invalid ingredient")
	ErrInvalidDuration   = errors.New("invalid duration")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrNoInstructions    = errors.New("recipe has no instructions")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrNoActiveSession   = errors.New("no active session")
	ErrControllerStopped = errors.New("controller stopped")
)
