// Package tui provides the Bubble Tea operator interface.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/morsekob/kob/internal/code"
	"github.com/morsekob/kob/internal/key"
	"github.com/morsekob/kob/internal/morse"
	"github.com/morsekob/kob/internal/relay"
	"github.com/morsekob/kob/internal/stations"
)

// Messages pushed into the program from the relay callbacks.
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
	// ConnMsg announces connect/disconnect.
	ConnMsg struct{ Connected bool }
)

type tickMsg time.Time

// wordGapUnits is the decoded spacing above which a word break is rendered.
const wordGapUnits = 5.0

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	senderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	offlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	stationsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Model implements the Bubble Tea operator UI.
type Model struct {
	router  *relay.Router
	sender  *morse.Sender
	actives *stations.List
	station string
	wire    int

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model

	copy      strings.Builder
	curSender string
	connected bool

	// Screen straight key: ctrl+k toggles the contact, the tick polls for
	// finished bursts.
	keyBuilder *key.Builder
	keyClosed  bool
}

// NewModel constructs an operator UI model.
func NewModel(r *relay.Router, snd *morse.Sender, actives *stations.List, station string, wire int) *Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "type to send"
	ti.Focus()
	return &Model{
		router:     r,
		sender:     snd,
		actives:    actives,
		station:    station,
		wire:       wire,
		input:      ti,
		connected:  r.Connected(),
		keyBuilder: key.NewBuilder(0),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		bodyHeight := m.height - 3
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
		m.input.Width = m.width - len(m.input.Prompt) - 1
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

	case ConnMsg:
		m.connected = msg.Connected
		return m, nil

	case tickMsg:
		if seq := m.keyBuilder.Poll(time.Time(msg)); seq != nil {
			m.router.Route(seq, code.SourceKey)
		}
		return m, tick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			// Take the line back from a stuck remote sender.
			m.router.ResetWireState()
			return m, nil
		case tea.KeyCtrlO:
			m.toggleCircuitCloser()
			return m, nil
		case tea.KeyCtrlK:
			m.keyClosed = !m.keyClosed
			m.keyBuilder.Transition(time.Now(), m.keyClosed)
			return m, nil
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(line) == "" {
				return m, nil
			}
			return m, m.sendLine(line)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// sendLine encodes a typed line and routes it as keyboard code, closing the
// circuit again once the line is out.
func (m *Model) sendLine(line string) tea.Cmd {
	return func() tea.Msg {
		for _, seq := range m.sender.EncodeText(line + " ") {
			m.router.Route(seq, code.SourceKeyboard)
		}
		m.router.Route(code.Latch(), code.SourceKeyboard)
		return nil
	}
}

// toggleCircuitCloser opens or closes the local circuit the way a physical
// closer lever would.
func (m *Model) toggleCircuitCloser() {
	if m.router.CircuitOpen() {
		m.router.Route(code.Latch(), code.SourceKeyboard)
		return
	}
	m.router.Route(code.Sequence{-1000, +2}, code.SourceKeyboard)
}

func (m *Model) refreshCopy() {
	if !m.ready {
		return
	}
	width := m.viewport.Width
	if width > 80 {
		width = 80
	}
	m.viewport.SetContent(WrapText(m.copy.String(), width))
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
		m.input.View(),
		m.renderFooter(),
	}, "\n")
}

func (m *Model) renderHeader() string {
	left := headerStyle.Render(fmt.Sprintf("%s · wire %d", m.station, m.wire))
	var status string
	switch {
	case !m.connected:
		status = offlineStyle.Render("offline")
	case m.router.InternetActive():
		status = senderStyle.Render("line: " + m.curSender)
	case m.router.CircuitOpen():
		status = senderStyle.Render("sending")
	default:
		status = stationsStyle.Render("idle")
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + status
}

func (m *Model) renderFooter() string {
	var ids []string
	for _, st := range m.actives.Active(3 * time.Minute) {
		id := st.ID
		if st.Sending {
			id = "*" + id
		}
		ids = append(ids, id)
	}
	hints := footerStyle.Render("enter send · ctrl+k key · ctrl+o closer · esc take line · ctrl+c quit")
	if len(ids) == 0 {
		return hints
	}
	return stationsStyle.Render(strings.Join(ids, " ")) + "  " + hints
}
