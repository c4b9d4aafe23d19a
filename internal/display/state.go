package display

import (
	"sort"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

// viewState is everything the panel shows.
type viewState struct {
	title       string
	step        int
	total       int
	instruction string
	ingredients []string
	matches     []domain.IngredientMatch
	checked     map[int]bool
	completed   map[int]bool
	timers      []domain.Timer

	listening  bool
	pantry     bool // full ingredient list open
	fullscreen bool
	settings   bool
	ended      domain.SessionStatus
	hasSession bool
}

// apply folds an effect into the state. It reports whether the UI
// should exit.
func (s *viewState) apply(e domain.Effect) bool {
	switch e := e.(type) {
	case domain.StepShown:
		s.hasSession = true
		s.step, s.total, s.instruction = e.Step, e.Total, e.Instruction
		s.ingredients = e.Ingredients
		s.matches = e.Matches
		s.checked = e.Checked
		s.completed = e.Completed
		s.pantry = false
	case domain.IngredientsShown:
		s.ingredients = e.Ingredients
		s.matches = e.Matches
		s.checked = e.Checked
		s.pantry = true
	case domain.TimersChanged:
		s.timers = append([]domain.Timer(nil), e.Timers...)
		sort.SliceStable(s.timers, func(i, j int) bool {
			return s.timers[i].RemainingSeconds < s.timers[j].RemainingSeconds
		})
	case domain.VoiceChanged:
		s.listening = e.Listening
	case domain.FullscreenToggled:
		s.fullscreen = !s.fullscreen
	case domain.SettingsOpened:
		s.settings = !s.settings
	case domain.SessionEnded:
		s.ended = e.Status
		s.timers = nil
	case domain.ExitRequested:
		return true
	}
	return false
}

func (s viewState) clone() viewState {
	out := s
	out.ingredients = append([]string(nil), s.ingredients...)
	out.matches = append([]domain.IngredientMatch(nil), s.matches...)
	out.timers = append([]domain.Timer(nil), s.timers...)
	out.checked = copySet(s.checked)
	out.completed = copySet(s.completed)
	return out
}

func copySet(in map[int]bool) map[int]bool {
	out := make(map[int]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
