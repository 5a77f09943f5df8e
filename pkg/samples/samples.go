// Package samples loads and stores the audio samples behind sound handles
package samples

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cwbudde/wav"
	"golang.org/x/sync/errgroup"

	"github.com/james-see/textseq/pkg/sequencer"
)

// Sample is mono float PCM for one sound handle
type Sample struct {
	Key  string
	Rate int
	Data []float32
}

// Duration returns the sample length in seconds
func (s *Sample) Duration() float64 {
	if s.Rate == 0 {
		return 0
	}
	return float64(len(s.Data)) / float64(s.Rate)
}

// LoadError reports a sample that could not be fetched or decoded
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load sample %q: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader resolves a sample key to decoded audio
type Loader interface {
	Load(ctx context.Context, key string) (*Sample, error)
}

// DirLoader reads <Dir>/<key>.wav files
type DirLoader struct {
	Dir string
}

// Path returns the file a key is read from
func (l DirLoader) Path(key string) string {
	return filepath.Join(l.Dir, filepath.FromSlash(key)+".wav")
}

// Load decodes the WAV file for key and downmixes it to mono
func (l DirLoader) Load(ctx context.Context, key string) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Key: key, Err: err}
	}
	data, rate, err := ReadWAVMono(l.Path(key))
	if err != nil {
		return nil, &LoadError{Key: key, Err: err}
	}
	return &Sample{Key: key, Rate: rate, Data: data}, nil
}

// ReadWAVMono reads a WAV file and averages its channels
func ReadWAVMono(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("invalid wav sample-rate: %d", buf.Format.SampleRate)
	}

	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += buf.Data[i*ch+c]
		}
		out[i] = sum / float32(ch)
	}
	return out, buf.Format.SampleRate, nil
}

// Bank holds loaded samples by key
type Bank struct {
	mu      sync.RWMutex
	samples map[string]*Sample
	rate    int
}

// NewBank creates an empty bank; samples are resampled to rate when it is non-zero
func NewBank(rate int) *Bank {
	return &Bank{samples: make(map[string]*Sample), rate: rate}
}

// Get returns the sample for a handle
func (b *Bank) Get(h sequencer.SoundHandle) (*Sample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.samples[h.Key()]
	return s, ok
}

// Len returns the number of loaded samples
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// Put stores a sample, resampling it to the bank rate
func (b *Bank) Put(s *Sample) {
	if b.rate > 0 && s.Rate != b.rate {
		s = Resample(s, b.rate)
	}
	b.mu.Lock()
	b.samples[s.Key] = s
	b.mu.Unlock()
}

// Preload loads every handle in parallel. Nothing is stored unless all loads
// succeed; the first failure is returned as a *LoadError.
func (b *Bank) Preload(ctx context.Context, loader Loader, handles []sequencer.SoundHandle) error {
	loaded := make([]*Sample, len(handles))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, h := range handles {
		g.Go(func() error {
			s, err := loader.Load(ctx, h.Key())
			if err != nil {
				var le *LoadError
				if errors.As(err, &le) {
					return err
				}
				return &LoadError{Key: h.Key(), Err: err}
			}
			loaded[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, s := range loaded {
		b.Put(s)
	}
	return nil
}

// Resample converts a sample to a new rate by linear interpolation
func Resample(s *Sample, rate int) *Sample {
	if s.Rate == rate || s.Rate <= 0 || rate <= 0 || len(s.Data) == 0 {
		return &Sample{Key: s.Key, Rate: rate, Data: s.Data}
	}
	ratio := float64(s.Rate) / float64(rate)
	n := int(float64(len(s.Data)) / ratio)
	out := make([]float32, n)
	last := len(s.Data) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = s.Data[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = s.Data[j]*(1-frac) + s.Data[j+1]*frac
	}
	return &Sample{Key: s.Key, Rate: rate, Data: out}
}
