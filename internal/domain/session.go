package domain

import "time"

// Session is one user's walk through a recipe.
type Session struct {
	ID                 string
	UserID             string
	RecipeID           string
	RecipeTitle        string
	Servings           int
	ServingsMultiplier float64
	Instructions       []string
	Ingredients        []string // serving-adjusted
	CurrentStep        int
	CheckedIngredients map[int]bool
	CompletedSteps     map[int]bool
	Status             SessionStatus
	StartedAt          time.Time
	UpdatedAt          time.Time
}

// TotalSteps returns the number of instruction steps.
func (s *Session) TotalSteps() int { return len(s.Instructions) }

// Instruction returns the text of the current step.
func (s *Session) Instruction() string {
	if s.CurrentStep < 0 || s.CurrentStep >= len(s.Instructions) {
		return ""
	}
	return s.Instructions[s.CurrentStep]
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *Session) Clone() *Session {
	c := *s
	c.Instructions = append([]string(nil), s.Instructions...)
	c.Ingredients = append([]string(nil), s.Ingredients...)
	c.CheckedIngredients = cloneSet(s.CheckedIngredients)
	c.CompletedSteps = cloneSet(s.CompletedSteps)
	return &c
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

// SessionStatus tracks the lifecycle of a cooking session.
type SessionStatus int

const (
	SessionActive SessionStatus = iota
	SessionCompleted
	SessionAbandoned
)

// String returns a human-readable session status.
func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionCompleted:
		return "completed"
	case SessionAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// SessionStatusFromString parses the String form of a status.
func SessionStatusFromString(s string) (SessionStatus, bool) {
	switch s {
	case "active":
		return SessionActive, true
	case "completed":
		return SessionCompleted, true
	case "abandoned":
		return SessionAbandoned, true
	}
	return SessionActive, false
}

// Direction is a navigation request.
type Direction int

const (
	DirNext Direction = iota
	DirPrev
	DirRepeat
	DirJump
)

// String returns the wire name of the direction.
func (d Direction) String() string {
	switch d {
	case DirNext:
		return "next"
	case DirPrev:
		return "prev"
	case DirRepeat:
		return "repeat"
	case DirJump:
		return "jump"
	default:
		return "unknown"
	}
}

// DirectionFromString parses "next", "prev"/"back", "repeat" or "jump".
func DirectionFromString(s string) (Direction, bool) {
	switch s {
	case "next":
		return DirNext, true
	case "prev", "back", "previous":
		return DirPrev, true
	case "repeat":
		return DirRepeat, true
	case "jump":
		return DirJump, true
	}
	return DirNext, false
}

// Navigation is the argument of SessionBackend.Navigate. Step is only
// read for DirJump.
type Navigation struct {
	Direction Direction
	Step      int
}

// Target applies the navigation to a step pointer, saturating at the
// bounds of a recipe with total steps. Jump targets are not clamped.
func (n Navigation) Target(current, total int) int {
	switch n.Direction {
	case DirNext:
		if current+1 < total {
			return current + 1
		}
		return current
	case DirPrev:
		if current > 0 {
			return current - 1
		}
		return current
	case DirJump:
		return n.Step
	default:
		return current
	}
}

// NavigationResult is what the backend reports after a move.
type NavigationResult struct {
	NewStep     int
	TotalSteps  int
	IsComplete  bool // true when the pointer sits on the last step
	Instruction string
}

// SessionSnapshot is the backend's view of an active session.
type SessionSnapshot struct {
	ID                 string
	UserID             string
	RecipeID           string
	RecipeTitle        string
	Servings           int
	ServingsMultiplier float64
	Instructions       []string
	Ingredients        []string // as written in the recipe, not scaled
	CurrentStep        int
	Status             SessionStatus
	StartedAt          time.Time
}

// Outcome is what the user reports when finishing a recipe.
type Outcome struct {
	Rating   *int
	Notes    string
	PhotoURL string
}
