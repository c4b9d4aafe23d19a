package timer

import "fmt"

// Speak returns a spoken form of a remaining duration. Once a minute or
// more is left it rounds to the nearest minute.
func Speak(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		if seconds == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", seconds)
	}
	m := (seconds + 30) / 60
	if m == 1 {
		return "1 minute"
	}
	if m >= 60 && m%60 == 0 {
		if m == 60 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", m/60)
	}
	return fmt.Sprintf("%d minutes", m)
}

// Clockface renders seconds as "m:ss" (or "h:mm:ss") for displays.
func Clockface(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
