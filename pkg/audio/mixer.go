// Package audio mixes triggered samples through a shared compressor into an audio device
package audio

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/james-see/textseq/pkg/samples"
	"github.com/james-see/textseq/pkg/sequencer"
)

// Sink starts playback of a sound. Every call is an independent instance.
type Sink interface {
	Trigger(h sequencer.SoundHandle)
}

// Nop discards every trigger
type Nop struct{}

func (Nop) Trigger(sequencer.SoundHandle) {}

// SampleSource resolves handles to loaded samples
type SampleSource interface {
	Get(h sequencer.SoundHandle) (*samples.Sample, bool)
}

type voice struct {
	data []float32
	pos  int
}

// Mixer sums all sounding voices through one compressor into interleaved stereo float32
type Mixer struct {
	mu      sync.Mutex
	source  SampleSource
	voices  []*voice
	comp    *Compressor
	rate    int
	gain    float32
	dropped int
}

// NewMixer creates a mixer at a sample rate; samples are expected at that rate
func NewMixer(source SampleSource, rate int) *Mixer {
	return &Mixer{
		source: source,
		comp:   NewCompressor(rate),
		rate:   rate,
		gain:   0.8,
	}
}

// Rate returns the output sample rate
func (m *Mixer) Rate() int {
	return m.rate
}

// Trigger starts a new voice for h. A live voice of the same sound keeps playing.
func (m *Mixer) Trigger(h sequencer.SoundHandle) {
	s, ok := m.source.Get(h)
	m.mu.Lock()
	defer m.mu.Unlock()
	if !ok {
		m.dropped++
		return
	}
	m.voices = append(m.voices, &voice{data: s.Data})
}

// Voices returns the number of sounding voices
func (m *Mixer) Voices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Dropped returns how many triggers named an unloaded sound
func (m *Mixer) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Render mixes the next frames into a new interleaved stereo buffer
func (m *Mixer) Render(frames int) []float32 {
	out := make([]float32, frames*2)
	m.mix(out)
	return out
}

func (m *Mixer) mix(out []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frames := len(out) / 2
	for i := 0; i < frames; i++ {
		var sum float32
		for _, v := range m.voices {
			if v.pos < len(v.data) {
				sum += v.data[v.pos]
				v.pos++
			}
		}
		l, r := m.comp.Process(sum*m.gain, sum*m.gain)
		out[2*i] = l
		out[2*i+1] = r
	}

	live := m.voices[:0]
	for _, v := range m.voices {
		if v.pos < len(v.data) {
			live = append(live, v)
		}
	}
	for i := len(live); i < len(m.voices); i++ {
		m.voices[i] = nil
	}
	m.voices = live
}

// Read fills p with float32 little-endian stereo frames, so a Mixer can feed a
// player directly. It never runs dry; silence is produced when nothing sounds.
func (m *Mixer) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	buf := make([]float32, frames*2)
	m.mix(buf)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(v))
	}
	return frames * 8, nil
}
