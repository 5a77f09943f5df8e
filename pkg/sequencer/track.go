package sequencer

import "strings"

// step is one character position of a line and the sound it triggers, if any
type step struct {
	char  rune
	sound SoundHandle
	ok    bool
}

// Track owns one text body and derives a sound sequence per line through its mapper
type Track struct {
	mapper CharacterMapper
	text   string
	lines  [][]step
}

// NewTrack creates an empty track bound to a mapper
func NewTrack(mapper CharacterMapper) *Track {
	return &Track{mapper: mapper}
}

// Mapper returns the mapper the track was created with
func (t *Track) Mapper() CharacterMapper {
	return t.mapper
}

// Text returns the stored text exactly as given to Update
func (t *Track) Text() string {
	return t.text
}

// Update replaces the text and rebuilds every line's sound sequence
func (t *Track) Update(text string) {
	t.text = text
	t.lines = nil
	if text == "" {
		return
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		chars := []rune(line)
		steps := make([]step, len(chars))
		for i, c := range chars {
			sound, ok := t.mapper.Map(c)
			steps[i] = step{char: c, sound: sound, ok: ok}
		}
		t.lines = append(t.lines, steps)
	}
}

// Lines returns the number of lines, including empty ones
func (t *Track) Lines() int {
	return len(t.lines)
}

// LineLength returns the character count of line i
func (t *Track) LineLength(i int) int {
	if i < 0 || i >= len(t.lines) {
		return 0
	}
	return len(t.lines[i])
}

// Sounds returns the sound sequence of line i; absent entries are empty handles
func (t *Track) Sounds(i int) []SoundHandle {
	if i < 0 || i >= len(t.lines) {
		return nil
	}
	out := make([]SoundHandle, len(t.lines[i]))
	for j, s := range t.lines[i] {
		if s.ok {
			out[j] = s.sound
		}
	}
	return out
}

// LongestLineLength returns the longest line's character count, 0 if there are none
func (t *Track) LongestLineLength() int {
	longest := 0
	for _, line := range t.lines {
		if len(line) > longest {
			longest = len(line)
		}
	}
	return longest
}
