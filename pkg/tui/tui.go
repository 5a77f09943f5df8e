// Package tui provides a terminal user interface for textseq
package tui

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/textseq/pkg/engine"
	"github.com/james-see/textseq/pkg/sequencer"
)

// Acid-inspired color scheme
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2)

	cellStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(acidGreen).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(acidYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(darkGray).
			Padding(0, 1)

	focusedBoxStyle = boxStyle.
			BorderForeground(acidGreen)
)

type keyMap struct {
	Focus key.Binding
	Play  key.Binding
	Sync  key.Binding
	Share key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.Play, k.Sync, k.Share, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Focus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch track")),
	Play:  key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "play/pause")),
	Sync:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "sync")),
	Share: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "share code")),
	Quit:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

// frameMsg signals that the engine stepped or changed state
type frameMsg struct{}

// Model represents the TUI model
type Model struct {
	engine  *engine.Engine
	editors [2]textarea.Model
	focus   int
	help    help.Model

	frame   engine.Frame
	preview string
	share   string
	err     error
	width   int
}

var trackIDs = [2]engine.TrackID{engine.Piano, engine.Beat}

// New creates a TUI over e, with the piano editor focused
func New(e *engine.Engine) Model {
	m := Model{engine: e, help: help.New()}
	for i, id := range trackIDs {
		ta := textarea.New()
		ta.Placeholder = placeholderText(id)
		ta.ShowLineNumbers = true
		ta.CharLimit = 0
		ta.MaxHeight = 0
		ta.MaxWidth = 0
		ta.SetHeight(6)
		ta.SetValue(e.Text(id))
		m.editors[i] = ta
	}
	m.editors[0].Focus()
	m.refresh()
	return m
}

func placeholderText(id engine.TrackID) string {
	if id == engine.Piano {
		return "type on zxcvbnm / asdfghj / qwertyu; Shift plays forte"
	}
	return "letters a-z trigger drum sounds"
}

func waitForFrame(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return frameMsg{}
	}
}

// Init starts listening for engine updates
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForFrame(m.engine.Updates()))
}

// refresh re-renders the preview only when the frame changed
func (m *Model) refresh() bool {
	f := m.engine.Render()
	if m.preview != "" && reflect.DeepEqual(f, m.frame) {
		return false
	}
	m.frame = f
	m.preview = renderPreview(f)
	return true
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		for i := range m.editors {
			m.editors[i].SetWidth(msg.Width - 4)
		}
		return m, nil

	case frameMsg:
		m.refresh()
		return m, waitForFrame(m.engine.Updates())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Focus):
			m.editors[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.editors)
			return m, m.editors[m.focus].Focus()
		case key.Matches(msg, keys.Play):
			m.engine.TogglePlay()
			m.refresh()
			return m, nil
		case key.Matches(msg, keys.Sync):
			m.engine.ToggleSync()
			m.refresh()
			return m, nil
		case key.Matches(msg, keys.Share):
			m.share, m.err = m.engine.Share()
			return m, nil
		}
	}

	var cmd tea.Cmd
	ed := &m.editors[m.focus]
	*ed, cmd = ed.Update(msg)
	if _, typed := msg.(tea.KeyMsg); !typed {
		return m, cmd
	}
	if id := trackIDs[m.focus]; ed.Value() != m.engine.Text(id) {
		m.engine.SetText(id, ed.Value())
		m.share = ""
		m.refresh()
	}
	return m, cmd
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" TEXTSEQ "))
	s.WriteString(" ")
	s.WriteString(m.status())
	s.WriteString("\n\n")

	for i, id := range trackIDs {
		style := boxStyle
		if i == m.focus {
			style = focusedBoxStyle
		}
		s.WriteString(style.Render(strings.ToUpper(string(id)) + "\n" + m.editors[i].View()))
		s.WriteString("\n")
	}

	s.WriteString(m.preview)

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	} else if m.share != "" {
		s.WriteString("\n")
		s.WriteString(statusStyle.Render("share: " + m.share))
	}

	s.WriteString("\n")
	s.WriteString(m.help.View(keys))
	return s.String()
}

func (m Model) status() string {
	play := "STOP"
	if m.frame.Playing {
		play = "PLAY"
	}
	policy := "FREE"
	if m.frame.Sync {
		policy = "SYNC"
	}
	return statusStyle.Render(fmt.Sprintf("%s  %s  step %d", play, policy, m.frame.Step))
}

func renderPreview(f engine.Frame) string {
	var s strings.Builder
	writeTrack(&s, "piano", f.Piano)
	writeTrack(&s, "beat", f.Beat)
	return s.String()
}

func writeTrack(s *strings.Builder, name string, lines []sequencer.RenderLine) {
	s.WriteString(titleStyle.Render(name))
	s.WriteString("\n")
	if len(lines) == 0 {
		s.WriteString(placeholderStyle.Render("  (empty)"))
		s.WriteString("\n")
		return
	}
	for _, line := range lines {
		s.WriteString("  ")
		for _, c := range line.Cells {
			s.WriteString(renderCell(c))
		}
		s.WriteString("\n")
	}
}

func renderCell(c sequencer.Cell) string {
	ch := string(c.Char)
	style := cellStyle
	if c.Char == ' ' || c.Char == '\t' {
		ch = string(engine.Placeholder)
		style = placeholderStyle
	}
	if c.Active {
		style = activeStyle
	}
	return style.Render(ch)
}

// Run starts the TUI application. The caller drives the engine clock.
func Run(e *engine.Engine) error {
	p := tea.NewProgram(New(e), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
