package samples

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/james-see/textseq/pkg/sequencer"
)

// Synthesize builds a placeholder sample for a handle: a decaying tone for
// pitched notes and a noise burst for percussion letters.
func Synthesize(h sequencer.SoundHandle, rate int) (*Sample, error) {
	if note, vel, ok := sequencer.ParseNote(h); ok {
		freq, ok := note.Frequency()
		if !ok {
			return nil, fmt.Errorf("no frequency for %q", h)
		}
		gain := 0.35
		if vel == sequencer.Forte {
			gain = 0.7
		}
		return &Sample{Key: h.Key(), Rate: rate, Data: tone(freq, gain, 1.2, rate)}, nil
	}
	if letter, ok := sequencer.ParsePercussion(h); ok {
		return &Sample{Key: h.Key(), Rate: rate, Data: hit(letter, rate)}, nil
	}
	return nil, fmt.Errorf("cannot synthesize %q", h)
}

func tone(freq, gain, seconds float64, rate int) []float32 {
	n := int(seconds * float64(rate))
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(rate)
		env := math.Exp(-3*t) * math.Min(1, t*400)
		v := math.Sin(2*math.Pi*freq*t) + 0.3*math.Sin(4*math.Pi*freq*t)
		out[i] = float32(gain * env * v / 1.3)
	}
	return out
}

// hit is a letter-dependent mix of pitched body and noise; later letters are
// shorter and brighter.
func hit(letter rune, rate int) []float32 {
	idx := float64(letter - 'a')
	if idx < 0 {
		idx = 0
	}
	body := 50 + idx*30
	decay := 8 + idx*1.5
	noise := math.Min(1, idx/25)
	n := int(0.5 * float64(rate))
	out := make([]float32, n)

	seed := uint32(letter) * 2654435761
	for i := range out {
		t := float64(i) / float64(rate)
		seed = seed*1664525 + 1013904223
		white := float64(seed)/float64(math.MaxUint32)*2 - 1
		env := math.Exp(-decay * t)
		v := (1-noise)*math.Sin(2*math.Pi*body*t*(1+math.Exp(-30*t))) + noise*white
		out[i] = float32(0.8 * env * v)
	}
	return out
}

// WriteMonoWAV writes 16-bit mono PCM
func WriteMonoWAV(path string, data []float32, sampleRate int) error {
	return writeWAV(path, data, sampleRate, 1)
}

// WriteStereoWAV writes interleaved stereo as 16-bit PCM
func WriteStereoWAV(path string, interleaved []float32, sampleRate int) error {
	return writeWAV(path, interleaved, sampleRate, 2)
}

func writeWAV(path string, data []float32, sampleRate, channels int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return enc.Close()
}

// Generate writes a synthesized WAV for every handle into dir, in the layout DirLoader reads
func Generate(dir string, handles []sequencer.SoundHandle, rate int) error {
	loader := DirLoader{Dir: dir}
	for _, h := range handles {
		s, err := Synthesize(h, rate)
		if err != nil {
			return err
		}
		if err := WriteMonoWAV(loader.Path(h.Key()), s.Data, rate); err != nil {
			return err
		}
	}
	return nil
}

// SynthLoader synthesizes samples in memory instead of reading files
type SynthLoader struct {
	Rate int
}

// Load synthesizes the sample for key
func (l SynthLoader) Load(ctx context.Context, key string) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Key: key, Err: err}
	}
	s, err := Synthesize(sequencer.SoundHandle(key), l.Rate)
	if err != nil {
		return nil, &LoadError{Key: key, Err: err}
	}
	return s, nil
}
