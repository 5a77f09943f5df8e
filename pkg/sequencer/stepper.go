package sequencer

// StepSequencer advances a playhead through every line of a track
type StepSequencer struct {
	track *Track
	step  uint64
}

// NewStepSequencer creates a sequencer at step 0 over a track it does not copy
func NewStepSequencer(track *Track) *StepSequencer {
	return &StepSequencer{track: track}
}

// Track returns the sequenced track
func (s *StepSequencer) Track() *Track {
	return s.track
}

// Step returns the current step counter
func (s *StepSequencer) Step() uint64 {
	return s.step
}

// activeIndex returns the playhead position in line i. In sync mode every line
// shares the longest line's length as denominator, otherwise each line loops at
// its own length. Empty lines have no position.
func (s *StepSequencer) activeIndex(i int, sync bool, longest int) (int, bool) {
	n := s.track.LineLength(i)
	if n == 0 {
		return 0, false
	}
	denom := n
	if sync {
		denom = longest
	}
	idx := int(s.step % uint64(denom))
	if idx >= n {
		return 0, false
	}
	return idx, true
}

// Tick collects the sounds due at the current step on every line, then advances.
// Lines that share a sound each contribute it; the counter advances even when
// nothing sounds so sequencers on the same clock stay in phase.
func (s *StepSequencer) Tick(sync bool) []SoundHandle {
	var out []SoundHandle
	longest := s.track.LongestLineLength()
	for i, line := range s.track.lines {
		idx, ok := s.activeIndex(i, sync, longest)
		if !ok {
			continue
		}
		if st := line[idx]; st.ok {
			out = append(out, st.sound)
		}
	}
	s.step++
	return out
}

// Render describes every line with the character under the playhead marked active.
// It does not advance the counter.
func (s *StepSequencer) Render(sync bool) []RenderLine {
	longest := s.track.LongestLineLength()
	out := make([]RenderLine, len(s.track.lines))
	for i, line := range s.track.lines {
		cells := make([]Cell, len(line))
		idx, ok := s.activeIndex(i, sync, longest)
		for j, st := range line {
			cells[j] = Cell{Char: st.char, Active: ok && j == idx}
		}
		out[i] = RenderLine{Index: i, Cells: cells}
	}
	return out
}
