// Package sequencer turns lines of text into step-sequenced sound triggers
package sequencer

import (
	"fmt"
	"math"
	"strings"
)

// SoundHandle identifies a loadable sample by a stable key such as "ff/C4" or "beat/q"
type SoundHandle string

// Key returns the sample key of the handle
func (h SoundHandle) Key() string {
	return string(h)
}

// Velocity selects which loudness sample set a pitched character plays
type Velocity string

const (
	Forte      Velocity = "ff"
	MezzoForte Velocity = "mf"
)

// Octaves covered by the pitched instrument, lowest first
var Octaves = []int{3, 4, 5}

// NoteKey is a pitch class plus octave identifying a single piano sample
type NoteKey struct {
	Pitch  rune
	Octave int
}

func (n NoteKey) String() string {
	return fmt.Sprintf("%c%d", n.Pitch, n.Octave)
}

// Handle returns the sound handle of this note at the given velocity
func (n NoteKey) Handle(v Velocity) SoundHandle {
	return SoundHandle(fmt.Sprintf("%s/%s", v, n))
}

// NoteKeys flattens the pitch alphabet against Octaves, octave-major then
// pitch-minor, so index 7*r+p is pitch p of octave r.
func NoteKeys(pitchAlphabet string) []NoteKey {
	pitches := []rune(strings.ToUpper(pitchAlphabet))
	keys := make([]NoteKey, 0, len(pitches)*len(Octaves))
	for _, octave := range Octaves {
		for _, p := range pitches {
			keys = append(keys, NoteKey{Pitch: p, Octave: octave})
		}
	}
	return keys
}

// Cell is one rendered character of a line
type Cell struct {
	Char   rune `json:"char"`
	Active bool `json:"active"`
}

// RenderLine is the rendered state of one line of a track
type RenderLine struct {
	Index int    `json:"index"`
	Cells []Cell `json:"cells"`
}

var semitones = map[rune]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// MIDI returns the MIDI note number with C4 = 60; false for pitches outside A-G
func (n NoteKey) MIDI() (int, bool) {
	semi, ok := semitones[n.Pitch]
	if !ok {
		return 0, false
	}
	return 12*(n.Octave+1) + semi, true
}

// Frequency returns the equal-tempered frequency of the note in Hz (A4 = 440)
func (n NoteKey) Frequency() (float64, bool) {
	midi, ok := n.MIDI()
	if !ok {
		return 0, false
	}
	return 440 * math.Pow(2, float64(midi-69)/12), true
}

// ParseNote splits a pitched handle such as "ff/C4" into note and velocity
func ParseNote(h SoundHandle) (NoteKey, Velocity, bool) {
	vel, note, found := strings.Cut(h.Key(), "/")
	if !found || (Velocity(vel) != Forte && Velocity(vel) != MezzoForte) {
		return NoteKey{}, "", false
	}
	chars := []rune(note)
	if len(chars) != 2 || chars[1] < '0' || chars[1] > '9' {
		return NoteKey{}, "", false
	}
	return NoteKey{Pitch: chars[0], Octave: int(chars[1] - '0')}, Velocity(vel), true
}

// ParsePercussion returns the letter of a percussion handle such as "beat/q"
func ParsePercussion(h SoundHandle) (rune, bool) {
	prefix, letter, found := strings.Cut(h.Key(), "/")
	chars := []rune(letter)
	if !found || prefix != PercussionPrefix || len(chars) != 1 {
		return 0, false
	}
	return chars[0], true
}
