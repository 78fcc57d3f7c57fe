// Package playui provides the Bubble Tea playback interface.
package playui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/morsekob/kob/internal/session"
	"github.com/morsekob/kob/internal/tui"
)

// Messages pushed into the program from the playback callbacks.
type (
	// CharMsg is one decoded character with its leading gap in dot units.
	CharMsg struct {
		Char    string
		Spacing float64
	}
	// SenderMsg announces a change of sending station.
	SenderMsg struct{ ID string }
	// WireMsg announces a wire change.
	WireMsg struct{ Wire int }
	// DoneMsg announces the end of playback.
	DoneMsg struct{ Err error }
)

type tickMsg time.Time

const wordGapUnits = 5.0

// seekStep is the span one arrow keypress moves.
const seekStep = 15

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	stateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Model implements the Bubble Tea playback UI.
type Model struct {
	player *session.Player
	path   string

	width  int
	height int
	ready  bool

	viewport viewport.Model

	copy      strings.Builder
	curSender string
	wire      int
	done      bool
	playErr   error
}

// NewModel constructs a playback UI model.
func NewModel(p *session.Player, path string) *Model {
	return &Model{player: p, path: path}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		bodyHeight := m.height - 2
		if bodyHeight < 1 {
			bodyHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, bodyHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = bodyHeight
		}
		m.refreshCopy()
		return m, nil

	case CharMsg:
		if msg.Spacing > wordGapUnits && m.copy.Len() > 0 {
			m.copy.WriteByte(' ')
		}
		m.copy.WriteString(msg.Char)
		m.refreshCopy()
		return m, nil

	case SenderMsg:
		m.curSender = msg.ID
		if msg.ID != "" {
			if m.copy.Len() > 0 {
				m.copy.WriteByte('\n')
			}
			m.copy.WriteString(fmt.Sprintf("[%s] ", msg.ID))
			m.refreshCopy()
		}
		return m, nil

	case WireMsg:
		m.wire = msg.Wire
		return m, nil

	case DoneMsg:
		m.done = true
		m.playErr = msg.Err
		return m, nil

	case tickMsg:
		// Playback state changes on its own goroutine; redraw on a timer.
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.player.Stop()
			return m, tea.Quit
		case " ":
			if m.player.State() == session.StatePaused {
				m.player.Resume()
			} else {
				m.player.Pause()
			}
			return m, nil
		case "left":
			m.player.MoveSeconds(-seekStep)
			return m, nil
		case "right":
			m.player.MoveSeconds(seekStep)
			return m, nil
		case "b":
			m.player.MoveToSenderBegin()
			return m, nil
		case "e":
			m.player.MoveToSenderEnd()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) refreshCopy() {
	if !m.ready {
		return
	}
	width := m.viewport.Width
	if width > 80 {
		width = 80
	}
	m.viewport.SetContent(tui.WrapText(m.copy.String(), width))
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return ""
	}
	return strings.Join([]string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderFooter(),
	}, "\n")
}

func (m *Model) renderHeader() string {
	name := filepath.Base(m.path)
	left := headerStyle.Render(name)
	if m.wire != 0 {
		left += mutedStyle.Render(fmt.Sprintf(" · wire %d", m.wire))
	}
	if m.curSender != "" {
		left += mutedStyle.Render(" · " + m.curSender)
	}
	status := m.renderStatus()
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + status
}

func (m *Model) renderStatus() string {
	if m.playErr != nil {
		return errStyle.Render("error")
	}
	if m.done {
		return mutedStyle.Render("done · q to exit")
	}
	return stateStyle.Render(m.player.State().String())
}

func (m *Model) renderFooter() string {
	return footerStyle.Render("space pause · ←/→ seek 15s · b/e sender · q quit")
}
