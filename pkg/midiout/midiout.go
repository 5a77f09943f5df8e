// Package midiout plays sound handles on an external MIDI instrument
package midiout

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/james-see/textseq/pkg/sequencer"
)

const (
	PianoChannel uint8 = 0
	DrumChannel  uint8 = 9

	ForteVelocity uint8 = 110
	MezzoVelocity uint8 = 70
	DrumVelocity  uint8 = 100

	// Gate is how long a note is held before its note-off
	Gate = 200 * time.Millisecond
)

// DrumNotes maps percussion letters a..z to General MIDI drum notes
var DrumNotes = [26]uint8{
	36, // a kick
	38, // b snare
	42, // c closed hat
	46, // d open hat
	41, // e low floor tom
	43, // f high floor tom
	45, // g low tom
	47, // h low-mid tom
	48, // i hi-mid tom
	50, // j high tom
	49, // k crash
	51, // l ride
	39, // m clap
	37, // n side stick
	56, // o cowbell
	75, // p claves
	70, // q maracas
	54, // r tambourine
	69, // s cabasa
	64, // t low conga
	63, // u open high conga
	62, // v mute high conga
	60, // w high bongo
	61, // x low bongo
	76, // y hi wood block
	81, // z open triangle
}

// Note resolves a handle to channel, key and velocity
func Note(h sequencer.SoundHandle) (channel, key, velocity uint8, ok bool) {
	if note, vel, isNote := sequencer.ParseNote(h); isNote {
		midiKey, valid := note.MIDI()
		if !valid || midiKey < 0 || midiKey > 127 {
			return 0, 0, 0, false
		}
		velocity = MezzoVelocity
		if vel == sequencer.Forte {
			velocity = ForteVelocity
		}
		return PianoChannel, uint8(midiKey), velocity, true
	}
	if letter, isBeat := sequencer.ParsePercussion(h); isBeat {
		idx := int(letter - 'a')
		if idx < 0 || idx >= len(DrumNotes) {
			return 0, 0, 0, false
		}
		return DrumChannel, DrumNotes[idx], DrumVelocity, true
	}
	return 0, 0, 0, false
}

// Sink sends a note-on per trigger and the matching note-off after Gate
type Sink struct {
	send   func(midi.Message) error
	gate   time.Duration
	after  func(time.Duration, func())
	logger *log.Logger

	mu      sync.Mutex
	pending sync.WaitGroup
}

// NewSink wraps a send function such as the one returned by midi.SendTo
func NewSink(send func(midi.Message) error, logger *log.Logger) *Sink {
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{
		send:   send,
		gate:   Gate,
		after:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		logger: logger,
	}
}

// Trigger plays h; unknown handles are ignored
func (s *Sink) Trigger(h sequencer.SoundHandle) {
	ch, key, vel, ok := Note(h)
	if !ok {
		s.logger.Debug("no MIDI note for handle", "handle", h)
		return
	}
	s.write(midi.NoteOn(ch, key, vel))
	s.pending.Add(1)
	s.after(s.gate, func() {
		defer s.pending.Done()
		s.write(midi.NoteOff(ch, key))
	})
}

func (s *Sink) write(msg midi.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.send(msg); err != nil {
		s.logger.Warn("MIDI send failed", "msg", msg.String(), "err", err)
	}
}

// Flush waits for every scheduled note-off
func (s *Sink) Flush() {
	s.pending.Wait()
}

// Ports lists the available MIDI output port names
func Ports() []string {
	var names []string
	for _, p := range midi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

// Open finds an output port by name and returns a sink writing to it
func Open(portName string, logger *log.Logger) (*Sink, drivers.Out, error) {
	out, err := midi.FindOutPort(portName)
	if err != nil {
		return nil, nil, fmt.Errorf("MIDI output port %q not found: %w", portName, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open MIDI output %q: %w", portName, err)
	}
	return NewSink(send, logger), out, nil
}
