package display

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/cookmode/internal/gesture"
)

const promptText = "chef> "

// redrawMsg tells the model the shared state changed.
type redrawMsg struct{}

type model struct {
	ui         *UI
	input      textinput.Model
	state      viewState
	width      int
	fullscreen bool
}

func newModel(u *UI) model {
	ti := textinput.New()
	// Plain-text prompt keeps the textinput width math right.
	ti.Prompt = promptText
	ti.PromptStyle = promptStyle
	ti.TextStyle = inputStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Placeholder = "space: next  ←/→: steps  ↑: ingredients  ↓: 5 min timer  tab: mic"
	ti.CharLimit = 200
	ti.Width = 60
	ti.Focus()

	return model{ui: u, input: ti, state: u.snapshot()}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.ready(), m.waitDirty())
}

func (m model) ready() tea.Cmd {
	u := m.ui
	return func() tea.Msg {
		u.running.Store(true)
		close(u.readyCh)
		return nil
	}
}

// waitDirty turns the next Present into a redraw.
func (m model) waitDirty() tea.Cmd {
	u := m.ui
	return func() tea.Msg {
		select {
		case <-u.dirty:
			return redrawMsg{}
		case <-u.quitCh:
			return nil
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			onLine := m.ui.onLine
			return m, func() tea.Msg {
				onLine(line)
				return nil
			}
		}
		// Keys act as gestures while nothing is typed.
		if m.input.Value() == "" {
			if g, ok := gestureForKey(msg); ok {
				onGesture := m.ui.onGesture
				return m, func() tea.Msg {
					onGesture(g)
					return nil
				}
			}
			if a, ok := quickTimerForKey(msg, m.ui.quickTimers); ok {
				onQuickTimer := m.ui.onQuickTimer
				return m, func() tea.Msg {
					onQuickTimer(a)
					return nil
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(promptText) {
			m.input.Width = msg.Width - len(promptText)
		}
		return m, nil

	case redrawMsg:
		m.state = m.ui.snapshot()
		cmds := []tea.Cmd{m.waitDirty(), tea.SetWindowTitle(windowTitle(m.state))}
		if m.state.fullscreen != m.fullscreen {
			m.fullscreen = m.state.fullscreen
			if m.fullscreen {
				cmds = append(cmds, tea.EnterAltScreen)
			} else {
				cmds = append(cmds, tea.ExitAltScreen)
			}
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(renderPanel(m.state, m.width))
	if m.state.hasSession && !m.state.ended.Terminal() && len(m.ui.quickTimers) > 0 {
		b.WriteString("\n")
		b.WriteString(renderQuickTimers(m.ui.quickTimers))
	}
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	return b.String()
}

// gestureForKey maps the keyboard onto touch gestures. Space taps, so
// two quick presses are a double tap.
func gestureForKey(k tea.KeyMsg) (gesture.Gesture, bool) {
	switch k.Type {
	case tea.KeySpace:
		return gesture.Tap, true
	case tea.KeyRight:
		return gesture.SwipeLeft, true
	case tea.KeyLeft:
		return gesture.SwipeRight, true
	case tea.KeyUp:
		return gesture.SwipeUp, true
	case tea.KeyDown:
		return gesture.SwipeDown, true
	case tea.KeyTab:
		return gesture.LongPress, true
	}
	return 0, false
}

// quickTimerForKey maps the digits 1..9 onto the timer presets.
func quickTimerForKey(k tea.KeyMsg, presets []gesture.Action) (gesture.Action, bool) {
	if k.Type != tea.KeyRunes || len(k.Runes) != 1 {
		return gesture.Action{}, false
	}
	r := k.Runes[0]
	if r < '1' || r > '9' {
		return gesture.Action{}, false
	}
	i := int(r - '1')
	if i >= len(presets) {
		return gesture.Action{}, false
	}
	return presets[i], true
}
