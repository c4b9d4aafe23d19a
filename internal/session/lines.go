package session

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/timer"
)

// Spoken strings. Keep them short; the TTS engine handles inflection.

func lineStart(title string) string {
	return fmt.Sprintf("Cooking %s. Here we go.", title)
}

func lineStep(step, total int, instruction string) string {
	return fmt.Sprintf("Step %d of %d. %s", step+1, total, instruction)
}

func lineLastStep() string {
	return "That's the last step."
}

func lineFirstStep() string {
	return "You're on the first step."
}

func lineIngredients(lines []string) string {
	if len(lines) == 0 {
		return "No specific ingredients highlighted for this step."
	}
	return "Ingredients for this step: " + joinSpoken(lines) + "."
}

func lineTimerSet(label string, seconds int) string {
	return fmt.Sprintf("%s set for %s.", label, timer.Speak(seconds))
}

func lineTimerLabel(step int) string {
	return fmt.Sprintf("Step %d timer", step+1)
}

func lineTimerDone(t domain.Timer) string {
	if t.AlertMessage != "" {
		return t.AlertMessage
	}
	return fmt.Sprintf("%s is done.", t.Label)
}

func lineTimerAlmostDone(t domain.Timer) string {
	return fmt.Sprintf("%s: %s left.", t.Label, timer.Speak(t.RemainingSeconds))
}

func lineTimerCancelled(label string) string {
	return fmt.Sprintf("Cancelled %s.", label)
}

func lineNoTimers() string {
	return "No timers running."
}

func lineSyncFailed() string {
	return "I couldn't save your place. Staying on this step."
}

func lineAbandonSyncFailed() string {
	return "Session closed here, but I couldn't reach the server."
}

func lineCompleted() string {
	return "All done. Enjoy your meal."
}

func lineAbandoned() string {
	return "Session abandoned."
}

func lineVoiceOn() string {
	return "Listening. Say hey chef."
}

func lineVoiceOff() string {
	return "Voice commands off."
}

func lineVoiceFailed(err error) string {
	return fmt.Sprintf("Voice commands stopped: %v", err)
}

// joinSpoken joins items as "a, b, and c".
func joinSpoken(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
