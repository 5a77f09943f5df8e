// Package config loads and saves the textseq YAML configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/james-see/textseq/pkg/sequencer"
)

// Output selects where triggered sounds go
type Output string

const (
	OutputAudio Output = "audio"
	OutputMIDI  Output = "midi"
	OutputNone  Output = "none"
)

// ServerConfig holds API server settings
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Config is the main configuration structure
type Config struct {
	SamplesDir    string       `yaml:"samplesDir"`
	PitchAlphabet string       `yaml:"pitchAlphabet"`
	Output        Output       `yaml:"output"`
	MIDIPort      string       `yaml:"midiPort,omitempty"`
	Server        ServerConfig `yaml:"server"`
	LogLevel      string       `yaml:"logLevel"`
	SampleRate    int          `yaml:"sampleRate"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	samples := "samples"
	if dir, err := Dir(); err == nil {
		samples = filepath.Join(dir, "samples")
	}
	return &Config{
		SamplesDir:    samples,
		PitchAlphabet: sequencer.DefaultPitchAlphabet,
		Output:        OutputAudio,
		Server:        ServerConfig{Port: 8080},
		LogLevel:      "info",
		SampleRate:    44100,
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "textseq"), nil
}

// DefaultPath returns the full path to config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config at path, or returns defaults if the file does not exist.
// Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating the directory if needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the output mode, sample rate, port and pitch alphabet
func (c *Config) Validate() error {
	switch c.Output {
	case OutputAudio, OutputMIDI, OutputNone:
	default:
		return fmt.Errorf("output %q: want audio, midi or none", c.Output)
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sampleRate %d out of range", c.SampleRate)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := sequencer.NewPitchedMapper(c.PitchAlphabet); err != nil {
		return err
	}
	return nil
}
