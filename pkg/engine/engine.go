// Package engine binds the pitched and percussion tracks to a session, a clock and a sink
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/james-see/textseq/pkg/audio"
	"github.com/james-see/textseq/pkg/sequencer"
	"github.com/james-see/textseq/pkg/session"
	"github.com/james-see/textseq/pkg/transport"
)

// TrackID names one of the two tracks
type TrackID string

const (
	Piano TrackID = "piano"
	Beat  TrackID = "beat"
)

// ParseTrackID accepts "piano" or "beat"
func ParseTrackID(s string) (TrackID, error) {
	switch TrackID(strings.ToLower(s)) {
	case Piano:
		return Piano, nil
	case Beat:
		return Beat, nil
	}
	return "", fmt.Errorf("unknown track %q (want piano or beat)", s)
}

// Placeholder replaces blank characters in the plain preview
const Placeholder = '·'

// Frame is the render of both tracks at one step
type Frame struct {
	Step    uint64                 `json:"step"`
	Sync    bool                   `json:"sync"`
	Playing bool                   `json:"playing"`
	Piano   []sequencer.RenderLine `json:"piano"`
	Beat    []sequencer.RenderLine `json:"beat"`
}

// String renders a plain-text preview: the active cell is bracketed and
// blanks are shown as Placeholder.
func (f Frame) String() string {
	var b strings.Builder
	writeLines(&b, "piano", f.Piano)
	writeLines(&b, "beat", f.Beat)
	return b.String()
}

func writeLines(b *strings.Builder, name string, lines []sequencer.RenderLine) {
	fmt.Fprintf(b, "%s:\n", name)
	for _, line := range lines {
		b.WriteString("  ")
		for _, c := range line.Cells {
			ch := c.Char
			if ch == ' ' || ch == '\t' {
				ch = Placeholder
			}
			if c.Active {
				fmt.Fprintf(b, "[%c]", ch)
			} else {
				b.WriteRune(ch)
			}
		}
		b.WriteString("\n")
	}
}

// Engine owns both tracks and serializes every tick, render and text update
type Engine struct {
	mu      sync.Mutex
	piano   *sequencer.Track
	beat    *sequencer.Track
	pianoSq *sequencer.StepSequencer
	beatSq  *sequencer.StepSequencer

	store   *session.Store
	sink    audio.Sink
	clock   *transport.Clock
	logger  *log.Logger
	updates chan struct{}
}

// New creates an engine over two mappers. The store's texts are loaded into the tracks.
func New(pitched, percussion sequencer.CharacterMapper, store *session.Store, sink audio.Sink, logger *log.Logger) *Engine {
	if sink == nil {
		sink = audio.Nop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		piano:   sequencer.NewTrack(pitched),
		beat:    sequencer.NewTrack(percussion),
		store:   store,
		sink:    sink,
		clock:   transport.NewClock(),
		logger:  logger,
		updates: make(chan struct{}, 1),
	}
	e.pianoSq = sequencer.NewStepSequencer(e.piano)
	e.beatSq = sequencer.NewStepSequencer(e.beat)

	st := store.State()
	e.piano.Update(st.Piano)
	e.beat.Update(st.Beat)
	if store.Playing() {
		e.clock.Resume()
	}
	e.clock.Add(func() { e.Step() })
	return e
}

// Clock returns the transport clock driving Step
func (e *Engine) Clock() *transport.Clock {
	return e.clock
}

// Store returns the session store
func (e *Engine) Store() *session.Store {
	return e.store
}

// Run drives the clock until ctx is done
func (e *Engine) Run(ctx context.Context) {
	e.clock.Run(ctx)
}

// Updates signals after every step or state change (buffered, coalescing)
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

func (e *Engine) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

// SetText replaces a track's text
func (e *Engine) SetText(id TrackID, text string) {
	e.mu.Lock()
	switch id {
	case Piano:
		e.piano.Update(text)
		e.store.SetPiano(text)
	case Beat:
		e.beat.Update(text)
		e.store.SetBeat(text)
	}
	e.mu.Unlock()
	e.logger.Debug("track updated", "track", id, "lines", e.lines(id))
	e.notify()
}

func (e *Engine) lines(id TrackID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id == Piano {
		return e.piano.Lines()
	}
	return e.beat.Lines()
}

// Text returns a track's current text
func (e *Engine) Text(id TrackID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id == Piano {
		return e.piano.Text()
	}
	return e.beat.Text()
}

// Step ticks both sequencers in lockstep and triggers one sink instance per sound
func (e *Engine) Step() []sequencer.SoundHandle {
	e.mu.Lock()
	synced := e.store.Sync()
	sounds := e.pianoSq.Tick(synced)
	sounds = append(sounds, e.beatSq.Tick(synced)...)
	e.mu.Unlock()

	for _, h := range sounds {
		e.sink.Trigger(h)
	}
	e.notify()
	return sounds
}

// Render returns both tracks at the current step without advancing
func (e *Engine) Render() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	synced := e.store.Sync()
	return Frame{
		Step:    e.pianoSq.Step(),
		Sync:    synced,
		Playing: e.clock.Playing(),
		Piano:   e.pianoSq.Render(synced),
		Beat:    e.beatSq.Render(synced),
	}
}

// TogglePlay flips the transport and returns whether it is now playing
func (e *Engine) TogglePlay() bool {
	playing := e.clock.Toggle()
	e.store.SetPlaying(playing)
	e.logger.Info("transport", "playing", playing)
	e.notify()
	return playing
}

// SetPlaying starts or stops the transport
func (e *Engine) SetPlaying(playing bool) {
	if playing {
		e.clock.Resume()
	} else {
		e.clock.Pause()
	}
	e.store.SetPlaying(playing)
	e.notify()
}

// ToggleSync flips the cycling policy and returns the new value
func (e *Engine) ToggleSync() bool {
	e.mu.Lock()
	synced := e.store.ToggleSync()
	e.mu.Unlock()
	e.logger.Info("cycling policy", "sync", synced)
	e.notify()
	return synced
}

// SetSync sets the cycling policy
func (e *Engine) SetSync(synced bool) {
	e.mu.Lock()
	e.store.SetSync(synced)
	e.mu.Unlock()
	e.notify()
}

// Share returns the share code of the current texts and sync flag
func (e *Engine) Share() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Share()
}

// Load applies a share code. On a malformed code the tracks keep their text.
// The store and both tracks change together under the engine lock.
func (e *Engine) Load(code string) error {
	st, err := session.Decode(code)
	if err != nil {
		e.logger.Warn("ignoring share code", "err", err)
		return err
	}
	e.mu.Lock()
	e.store.Replace(st)
	e.piano.Update(st.Piano)
	e.beat.Update(st.Beat)
	e.mu.Unlock()
	e.notify()
	return nil
}

// Handles lists every sound either track can trigger, for preloading
func Handles(mappers ...sequencer.CharacterMapper) []sequencer.SoundHandle {
	var out []sequencer.SoundHandle
	for _, m := range mappers {
		out = append(out, m.Handles()...)
	}
	return out
}
