// Package gesture maps touch and key gestures onto cooking commands.
package gesture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

// Gesture is a physical input.
type Gesture int

const (
	Tap Gesture = iota
	DoubleTap
	SwipeLeft
	SwipeRight
	SwipeUp
	SwipeDown
	LongPress
)

var gestureNames = []string{"tap", "double_tap", "swipe_left", "swipe_right", "swipe_up", "swipe_down", "long_press"}

func (g Gesture) String() string {
	if g < 0 || int(g) >= len(gestureNames) {
		return "unknown"
	}
	return gestureNames[g]
}

// ParseGesture converts a snake_case name into a Gesture.
func ParseGesture(s string) (Gesture, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range gestureNames {
		if name == s {
			return Gesture(i), nil
		}
	}
	return 0, fmt.Errorf("unknown gesture %q", s)
}

// ActionKind is what a gesture does.
type ActionKind int

const (
	ActNone ActionKind = iota
	ActNext
	ActPrev
	ActRepeat
	ActStartTimer
	ActOpenIngredients
	ActToggleVoice
	ActToggleFullscreen
	ActOpenSettings
	ActExit
)

var actionNames = []string{"none", "next", "prev", "repeat", "timer", "ingredients", "voice", "fullscreen", "settings", "exit"}

func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[k]
}

// Action is a bound gesture action. Minutes is only used by
// ActStartTimer.
type Action struct {
	Kind    ActionKind
	Minutes int
}

func (a Action) String() string {
	if a.Kind == ActStartTimer {
		return fmt.Sprintf("timer:%d", a.Minutes)
	}
	return a.Kind.String()
}

// ParseAction reads an action name; timers carry minutes as "timer:5".
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	name, arg, hasArg := strings.Cut(s, ":")

	for i, n := range actionNames {
		if n != name {
			continue
		}
		a := Action{Kind: ActionKind(i)}
		if a.Kind != ActStartTimer {
			if hasArg {
				return Action{}, fmt.Errorf("action %q takes no argument", name)
			}
			return a, nil
		}
		a.Minutes = 5
		if hasArg {
			m, err := strconv.Atoi(arg)
			if err != nil || m <= 0 {
				return Action{}, fmt.Errorf("action %q: %w", s, domain.ErrInvalidDuration)
			}
			a.Minutes = m
		}
		return a, nil
	}
	return Action{}, fmt.Errorf("unknown gesture action %q", s)
}

// Command translates the action into a controller command.
func (a Action) Command() (domain.Command, bool) {
	switch a.Kind {
	case ActNext:
		return domain.NextStep{}, true
	case ActPrev:
		return domain.PrevStep{}, true
	case ActRepeat:
		return domain.RepeatStep{}, true
	case ActStartTimer:
		if a.Minutes <= 0 {
			return nil, false
		}
		return domain.SetTimer{Seconds: a.Minutes * 60}, true
	case ActOpenIngredients:
		return domain.OpenIngredients{}, true
	case ActToggleVoice:
		return domain.ToggleVoice{}, true
	case ActToggleFullscreen:
		return domain.ToggleFullscreen{}, true
	case ActOpenSettings:
		return domain.OpenSettings{}, true
	case ActExit:
		return domain.Exit{}, true
	}
	return nil, false
}

// Bindings maps each gesture to its action. Missing gestures do nothing.
type Bindings map[Gesture]Action

// DefaultBindings returns the stock layout.
func DefaultBindings() Bindings {
	return Bindings{
		Tap:        {Kind: ActNext},
		DoubleTap:  {Kind: ActRepeat},
		LongPress:  {Kind: ActToggleVoice},
		SwipeLeft:  {Kind: ActNext},
		SwipeRight: {Kind: ActPrev},
		SwipeUp:    {Kind: ActOpenIngredients},
		SwipeDown:  {Kind: ActStartTimer, Minutes: 5},
	}
}

// DefaultQuickTimers are the preset timer lengths, in minutes.
var DefaultQuickTimers = []int{5, 10, 15, 20, 30}

// QuickTimers turns preset minutes into timer actions, keeping order.
func QuickTimers(minutes []int) ([]Action, error) {
	out := make([]Action, 0, len(minutes))
	for _, m := range minutes {
		a, err := ParseAction(fmt.Sprintf("timer:%d", m))
		if err != nil {
			return nil, fmt.Errorf("quick timer: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseBindings applies name→action overrides on top of the defaults.
func ParseBindings(overrides map[string]string) (Bindings, error) {
	b := DefaultBindings()
	for g, a := range overrides {
		gesture, err := ParseGesture(g)
		if err != nil {
			return nil, err
		}
		action, err := ParseAction(a)
		if err != nil {
			return nil, fmt.Errorf("gesture %s: %w", gesture, err)
		}
		b[gesture] = action
	}
	return b, nil
}
