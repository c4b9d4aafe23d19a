package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/gesture"
	"github.com/hammamikhairi/cookmode/internal/timer"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	timerRunStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	timerPausedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#71717a")).
				Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	// BannerStyle is the muted slate of the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0")).
			Bold(true)

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	highStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a")).
			Bold(true)

	checkedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b")).
			Strikethrough(true)
)

// ── Panel ────────────────────────────────────────────────────────

func renderPanel(s viewState, width int) string {
	if width <= 0 {
		width = 80
	}
	if s.ended.Terminal() {
		return hintStyle.Render(fmt.Sprintf("  Session %s. Ctrl+C to leave.", s.ended))
	}
	if !s.hasSession {
		return hintStyle.Render("  No session yet.")
	}

	var b strings.Builder
	b.WriteString(renderHeader(s))
	b.WriteByte('\n')
	b.WriteString(primaryStyle.Width(width - 2).PaddingLeft(2).Render(s.instruction))
	b.WriteByte('\n')

	if s.pantry {
		b.WriteString(renderPantry(s))
	} else if uses := renderUses(s); uses != "" {
		b.WriteByte('\n')
		b.WriteString(uses)
	}
	if s.settings {
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("  space tap · space space repeat · → next · ← back · ↑ ingredients · ↓ timer · tab mic"))
	}
	if len(s.timers) > 0 {
		b.WriteString("\n\n")
		b.WriteString(renderBar(s.timers, width))
	}
	return b.String()
}

// renderQuickTimers lists the preset timers and their keys.
func renderQuickTimers(presets []gesture.Action) string {
	parts := make([]string, 0, len(presets))
	for i, a := range presets {
		parts = append(parts, fmt.Sprintf("%d: %dm", i+1, a.Minutes))
	}
	return hintStyle.Render("  quick timers  " + strings.Join(parts, "  "))
}

func renderHeader(s viewState) string {
	head := fmt.Sprintf("  Step %d/%d", s.step+1, s.total)
	if s.title != "" {
		head += "  " + s.title
	}
	out := stepStyle.Render(head)
	if s.completed[s.step] {
		out += " " + hintStyle.Render("(done)")
	}
	if s.listening {
		out += "  " + chatStyle.Render("● listening")
	} else {
		out += "  " + hintStyle.Render("○ mic off")
	}
	return out
}

// renderUses lists the ingredients the current step mentions, most
// relevant first.
func renderUses(s viewState) string {
	if len(s.matches) == 0 {
		return ""
	}
	matches := append([]domain.IngredientMatch(nil), s.matches...)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Relevance > matches[j].Relevance })

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Index < 0 || m.Index >= len(s.ingredients) {
			continue
		}
		parts = append(parts, ingredientStyle(s, m.Index, m.Relevance).Render(s.ingredients[m.Index]))
	}
	return hintStyle.Render("  uses: ") + strings.Join(parts, sepStyle.Render(" · "))
}

// renderPantry is the full checklist, with this step's ingredients
// highlighted.
func renderPantry(s viewState) string {
	rel := make(map[int]domain.Relevance, len(s.matches))
	for _, m := range s.matches {
		rel[m.Index] = m.Relevance
	}

	var b strings.Builder
	for i, ing := range s.ingredients {
		box := "[ ]"
		if s.checked[i] {
			box = "[x]"
		}
		fmt.Fprintf(&b, "\n  %s %s", hintStyle.Render(box), ingredientStyle(s, i, rel[i]).Render(ing))
	}
	return b.String()
}

func ingredientStyle(s viewState, index int, r domain.Relevance) lipgloss.Style {
	switch {
	case s.checked[index]:
		return checkedStyle
	case r == domain.RelevanceHigh:
		return highStyle
	case r > 0:
		return primaryStyle
	default:
		return hintStyle
	}
}

func renderBar(timers []domain.Timer, width int) string {
	parts := make([]string, 0, len(timers))
	for _, t := range timers {
		left := timer.Clockface(t.RemainingSeconds)
		if t.Status == domain.TimerPaused {
			parts = append(parts, timerPausedStyle.Render(t.Label+": "+left+" paused"))
			continue
		}
		parts = append(parts, labelStyle.Render(t.Label+": ")+timerRunStyle.Render(left))
	}
	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "
	return barBg.Width(width).Render(content)
}

func windowTitle(s viewState) string {
	if len(s.timers) == 0 {
		return "CookMode"
	}
	p := make([]string, 0, len(s.timers))
	for _, t := range s.timers {
		p = append(p, t.Label+": "+timer.Clockface(t.RemainingSeconds))
	}
	return "CookMode | " + strings.Join(p, " | ")
}
