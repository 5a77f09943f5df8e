package tui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/james-see/textseq/pkg/engine"
	"github.com/james-see/textseq/pkg/sequencer"
	"github.com/james-see/textseq/pkg/session"
)

func newModel(t *testing.T, st session.State) (Model, *engine.Engine) {
	t.Helper()
	pitched, err := sequencer.NewPitchedMapper(sequencer.DefaultPitchAlphabet)
	if err != nil {
		t.Fatal(err)
	}
	percussion, err := sequencer.NewPercussionMapper(sequencer.DefaultPercussionAlphabet)
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(&bytes.Buffer{})
	e := engine.New(pitched, percussion, session.NewStore(st, logger), nil, logger)
	return New(e), e
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestTypingUpdatesFocusedTrack(t *testing.T) {
	m, e := newModel(t, session.State{})

	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("as")})
	if got := e.Text(engine.Piano); got != "as" {
		t.Errorf("piano text = %q, want %q", got, "as")
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != 1 {
		t.Fatalf("focus = %d, want 1", m.focus)
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	if got := e.Text(engine.Beat); got != "k" {
		t.Errorf("beat text = %q, want %q", got, "k")
	}
	if e.Text(engine.Piano) != "as" {
		t.Error("piano text changed while beat was focused")
	}
}

func TestTransportKeys(t *testing.T) {
	m, e := newModel(t, session.State{})

	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlP})
	if !e.Clock().Playing() {
		t.Error("ctrl+p should start the transport")
	}
	if !strings.Contains(m.View(), "PLAY") {
		t.Error("status should show PLAY")
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !e.Store().Sync() {
		t.Error("ctrl+s should enable sync")
	}
	if !strings.Contains(m.View(), "SYNC") {
		t.Error("status should show SYNC")
	}
}

func TestShareKey(t *testing.T) {
	m, e := newModel(t, session.State{Piano: "qwe", Beat: "x"})
	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlE})

	want, err := e.Share()
	if err != nil {
		t.Fatal(err)
	}
	if m.share != want || !strings.Contains(m.View(), want) {
		t.Errorf("share = %q, want %q", m.share, want)
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := newModel(t, session.State{})
	for _, k := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		_, cmd := m.Update(tea.KeyMsg{Type: k})
		if cmd == nil {
			t.Fatalf("%v returned no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v should quit", k)
		}
	}
}

func TestFrameRefreshSkipsUnchanged(t *testing.T) {
	m, e := newModel(t, session.State{Beat: "ab"})

	if m.refresh() {
		t.Error("refresh() with no change should be skipped")
	}
	e.Step()
	m = send(m, frameMsg{})
	if m.frame.Step != 1 {
		t.Errorf("frame.Step = %d, want 1", m.frame.Step)
	}
	if m.refresh() {
		t.Error("second refresh() at the same step should be skipped")
	}
}

func TestRenderCell(t *testing.T) {
	space := renderCell(sequencer.Cell{Char: ' '})
	if !strings.Contains(space, string(engine.Placeholder)) {
		t.Errorf("space rendered as %q, want placeholder", space)
	}
	if got := renderCell(sequencer.Cell{Char: 'a'}); !strings.Contains(got, "a") {
		t.Errorf("renderCell(a) = %q", got)
	}
}

type blinkLike struct{}

func TestLongSessionIsNotTruncated(t *testing.T) {
	line := strings.Repeat("asdf ", 150)
	text := strings.TrimSuffix(strings.Repeat(line+"\n", 150), "\n")
	m, e := newModel(t, session.State{Piano: text, Beat: "k"})

	if got := m.editors[0].Value(); got != text {
		t.Fatalf("editor holds %d bytes, want %d", len(got), len(text))
	}

	m = send(m, blinkLike{})
	m = send(m, frameMsg{})
	if got := e.Text(engine.Piano); got != text {
		t.Errorf("engine text changed without typing: %d bytes, want %d", len(got), len(text))
	}
}
