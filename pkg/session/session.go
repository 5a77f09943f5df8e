// Package session encodes the shareable sequencer state and holds the live session flags
package session

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"
)

// ErrMalformedState is wrapped by every Decode failure
var ErrMalformedState = errors.New("malformed session state")

// State is everything a share code carries
type State struct {
	Piano string `json:"p"`
	Beat  string `json:"b"`
	Sync  bool   `json:"s"`
}

var encoding = base64.RawURLEncoding

// Encode serializes the state as compact JSON and base64url-encodes it
func Encode(s State) (string, error) {
	if !utf8.ValidString(s.Piano) || !utf8.ValidString(s.Beat) {
		return "", errors.New("failed to encode session: text is not valid UTF-8")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	return encoding.EncodeToString(data), nil
}

// Decode parses a share code produced by Encode
func Decode(code string) (State, error) {
	code = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(code), "#"))
	if code == "" {
		return State{}, fmt.Errorf("%w: empty code", ErrMalformedState)
	}
	data, err := encoding.DecodeString(code)
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if len(fields) != 3 {
		return State{}, fmt.Errorf("%w: want fields p, b and s, got %d fields", ErrMalformedState, len(fields))
	}
	for _, k := range []string{"p", "b", "s"} {
		raw, ok := fields[k]
		if !ok {
			return State{}, fmt.Errorf("%w: missing field %q", ErrMalformedState, k)
		}
		if string(bytes.TrimSpace(raw)) == "null" {
			return State{}, fmt.Errorf("%w: field %q is null", ErrMalformedState, k)
		}
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	return s, nil
}

// Store is the session-wide state shared by both tracks: their texts, the
// sync flag and the play flag.
type Store struct {
	mu      sync.RWMutex
	state   State
	playing bool
	logger  *log.Logger
}

// NewStore creates a store with initial texts
func NewStore(initial State, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{state: initial, logger: logger}
}

// State returns a snapshot of the shareable fields
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Sync reports whether all lines share one playhead denominator
func (s *Store) Sync() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Sync
}

// SetSync sets the cycling policy
func (s *Store) SetSync(sync bool) {
	s.mu.Lock()
	s.state.Sync = sync
	s.mu.Unlock()
}

// ToggleSync flips the cycling policy and returns the new value
func (s *Store) ToggleSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Sync = !s.state.Sync
	return s.state.Sync
}

// Playing reports the transport play flag
func (s *Store) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

// SetPlaying sets the transport play flag
func (s *Store) SetPlaying(playing bool) {
	s.mu.Lock()
	s.playing = playing
	s.mu.Unlock()
}

// SetPiano stores the pitched track text
func (s *Store) SetPiano(text string) {
	s.mu.Lock()
	s.state.Piano = text
	s.mu.Unlock()
}

// SetBeat stores the percussion track text
func (s *Store) SetBeat(text string) {
	s.mu.Lock()
	s.state.Beat = text
	s.mu.Unlock()
}

// Replace swaps in a decoded state, keeping the play flag
func (s *Store) Replace(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Share returns the share code of the current state
func (s *Store) Share() (string, error) {
	return Encode(s.State())
}

// Apply replaces texts and sync flag from a share code. A malformed code is
// logged and leaves the store unchanged.
func (s *Store) Apply(code string) (State, error) {
	decoded, err := Decode(code)
	if err != nil {
		s.logger.Warn("ignoring share code", "err", err)
		return s.State(), err
	}
	s.Replace(decoded)
	s.logger.Debug("applied share code", "piano", len(decoded.Piano), "beat", len(decoded.Beat), "sync", decoded.Sync)
	return decoded, nil
}
