// Package app wires configuration, samples, sinks and the engine in startup order
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/james-see/textseq/pkg/audio"
	"github.com/james-see/textseq/pkg/config"
	"github.com/james-see/textseq/pkg/engine"
	"github.com/james-see/textseq/pkg/midiout"
	"github.com/james-see/textseq/pkg/samples"
	"github.com/james-see/textseq/pkg/sequencer"
	"github.com/james-see/textseq/pkg/session"
)

// Options adjusts Setup for a particular command
type Options struct {
	// Initial is the session the engine starts from
	Initial session.State
	// Offline builds the mixer without opening an audio device (bounce)
	Offline bool
}

// App is a running textseq instance
type App struct {
	Config *config.Config
	Logger *log.Logger
	Engine *engine.Engine
	Bank   *samples.Bank
	Mixer  *audio.Mixer

	closers []func() error
	cancel  context.CancelFunc
	done    chan struct{}
}

// Mappers builds the pitched and percussion mappers from the config
func Mappers(cfg *config.Config) (*sequencer.PitchedMapper, *sequencer.PercussionMapper, error) {
	pitched, err := sequencer.NewPitchedMapper(cfg.PitchAlphabet)
	if err != nil {
		return nil, nil, err
	}
	percussion, err := sequencer.NewPercussionMapper(sequencer.DefaultPercussionAlphabet)
	if err != nil {
		return nil, nil, err
	}
	return pitched, percussion, nil
}

// Loader returns the sample loader for the config; an empty samplesDir synthesizes
func Loader(cfg *config.Config) samples.Loader {
	if cfg.SamplesDir == "" {
		return samples.SynthLoader{Rate: cfg.SampleRate}
	}
	return samples.DirLoader{Dir: cfg.SamplesDir}
}

// Setup builds the mappers, preloads every sample the mappers can produce,
// opens the configured output and creates the engine. The clock is not
// started; call Engine.Run. A *samples.LoadError aborts setup.
func Setup(ctx context.Context, cfg *config.Config, logger *log.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	pitched, percussion, err := Mappers(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}
	output := cfg.Output
	if opts.Offline {
		output = config.OutputAudio
	}

	var sink audio.Sink = audio.Nop{}
	switch output {
	case config.OutputAudio:
		a.Bank = samples.NewBank(cfg.SampleRate)
		handles := engine.Handles(pitched, percussion)
		if err := a.Bank.Preload(ctx, Loader(cfg), handles); err != nil {
			var le *samples.LoadError
			if errors.As(err, &le) {
				logger.Error("sample preload failed", "key", le.Key, "dir", cfg.SamplesDir)
			}
			return nil, err
		}
		logger.Info("samples loaded", "count", a.Bank.Len(), "rate", cfg.SampleRate)

		a.Mixer = audio.NewMixer(a.Bank, cfg.SampleRate)
		sink = a.Mixer
		if !opts.Offline {
			out, err := audio.NewOtoOutput(a.Mixer)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, out.Close)
		}
	case config.OutputMIDI:
		s, port, err := midiout.Open(cfg.MIDIPort, logger)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, midiout.Ports())
		}
		logger.Info("MIDI output open", "port", port.String())
		sink = s
		a.closers = append(a.closers, func() error {
			s.Flush()
			return port.Close()
		})
	case config.OutputNone:
		logger.Info("sound output disabled")
	}

	store := session.NewStore(opts.Initial, logger)
	a.Engine = engine.New(pitched, percussion, store, sink, logger)
	return a, nil
}

// Start runs the engine clock in its own goroutine until ctx is done or Close is called
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	go func() {
		defer close(a.done)
		a.Engine.Run(ctx)
	}()
}

// Close stops the clock, waits for the last step to finish, then releases the
// output device
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
		<-a.done
		a.cancel = nil
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
