package sequencer

import (
	"errors"
	"fmt"
	"unicode"
)

// DefaultPitchAlphabet is the pitch order of each keyboard row
const DefaultPitchAlphabet = "CDEFGAB"

// DefaultPercussionAlphabet is the letter order of the percussion samples
const DefaultPercussionAlphabet = "abcdefghijklmnopqrstuvwxyz"

// PercussionPrefix prefixes every percussion sample key
const PercussionPrefix = "beat"

// KeyboardRows are the physical keyboard rows bound to octaves, lowest first
var KeyboardRows = [3]string{
	"zxcvbnm",
	"asdfghj",
	"qwertyu",
}

// CharacterMapper maps one character to at most one sound
type CharacterMapper interface {
	Map(r rune) (SoundHandle, bool)
	// Handles lists every handle the mapper can return, for preloading
	Handles() []SoundHandle
}

// PitchedMapper maps keyboard letters to piano notes; letter case picks the velocity
type PitchedMapper struct {
	notes   []NoteKey
	forte   []SoundHandle
	mezzo   []SoundHandle
	rowKeys map[rune]int
}

// NewPitchedMapper creates a mapper for a 7-letter pitch alphabet
func NewPitchedMapper(pitchAlphabet string) (*PitchedMapper, error) {
	pitches := []rune(pitchAlphabet)
	if len(pitches) != len(KeyboardRows[0]) {
		return nil, fmt.Errorf("pitch alphabet %q: want %d letters, got %d", pitchAlphabet, len(KeyboardRows[0]), len(pitches))
	}
	seen := make(map[rune]bool, len(pitches))
	for _, p := range pitches {
		p = unicode.ToUpper(p)
		if !unicode.IsLetter(p) || seen[p] {
			return nil, fmt.Errorf("pitch alphabet %q: letters must be distinct", pitchAlphabet)
		}
		seen[p] = true
	}

	m := &PitchedMapper{
		notes:   NoteKeys(pitchAlphabet),
		rowKeys: make(map[rune]int, len(pitches)*len(KeyboardRows)),
	}
	for _, n := range m.notes {
		m.forte = append(m.forte, n.Handle(Forte))
		m.mezzo = append(m.mezzo, n.Handle(MezzoForte))
	}
	for r, row := range KeyboardRows {
		for p, key := range []rune(row) {
			m.rowKeys[key] = r*len(pitches) + p
		}
	}
	return m, nil
}

// Notes returns the flattened note table
func (m *PitchedMapper) Notes() []NoteKey {
	return append([]NoteKey(nil), m.notes...)
}

// Map returns the note handle bound to r, or false for a rest
func (m *PitchedMapper) Map(r rune) (SoundHandle, bool) {
	handles := m.mezzo
	if unicode.IsUpper(r) {
		handles = m.forte
	}
	idx, ok := m.rowKeys[unicode.ToLower(r)]
	if !ok {
		return "", false
	}
	return handles[idx], true
}

// Handles returns both velocity tiers
func (m *PitchedMapper) Handles() []SoundHandle {
	out := make([]SoundHandle, 0, len(m.forte)+len(m.mezzo))
	out = append(out, m.forte...)
	return append(out, m.mezzo...)
}

// PercussionMapper maps letters to percussion samples
type PercussionMapper struct {
	handles []SoundHandle
	index   map[rune]int
}

// NewPercussionMapper creates a mapper over an alphabet of distinct letters
func NewPercussionMapper(alphabet string) (*PercussionMapper, error) {
	letters := []rune(alphabet)
	if len(letters) == 0 {
		return nil, errors.New("percussion alphabet is empty")
	}
	m := &PercussionMapper{index: make(map[rune]int, len(letters))}
	for i, l := range letters {
		l = unicode.ToLower(l)
		if _, dup := m.index[l]; dup {
			return nil, fmt.Errorf("percussion alphabet %q: duplicate letter %q", alphabet, l)
		}
		m.index[l] = i
		m.handles = append(m.handles, SoundHandle(fmt.Sprintf("%s/%c", PercussionPrefix, l)))
	}
	return m, nil
}

// Map returns the percussion handle for r, or false if r is not in the alphabet
func (m *PercussionMapper) Map(r rune) (SoundHandle, bool) {
	idx, ok := m.index[unicode.ToLower(r)]
	if !ok {
		return "", false
	}
	return m.handles[idx], true
}

// Handles returns one handle per alphabet letter
func (m *PercussionMapper) Handles() []SoundHandle {
	return append([]SoundHandle(nil), m.handles...)
}
