// Package transport drives sequencers from a fixed-tempo clock
package transport

import (
	"context"
	"sync"
	"time"
)

// BPM is the fixed tempo; one step per beat
const BPM = 240

// Interval is the time between two steps at BPM
const Interval = time.Minute / BPM

// Clock calls every registered step function once per interval while playing
type Clock struct {
	Interval time.Duration

	mu      sync.Mutex
	steps   []func()
	playing bool
	ticks   uint64
}

// NewClock creates a paused clock at the fixed tempo
func NewClock() *Clock {
	return &Clock{Interval: Interval}
}

// Add registers a step function. All registered functions run on the same tick, in order.
func (c *Clock) Add(step func()) {
	c.mu.Lock()
	c.steps = append(c.steps, step)
	c.mu.Unlock()
}

// Playing reports whether ticks are being delivered
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Resume starts delivering ticks
func (c *Clock) Resume() {
	c.mu.Lock()
	c.playing = true
	c.mu.Unlock()
}

// Pause stops future ticks; sounds already started keep playing
func (c *Clock) Pause() {
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
}

// Toggle flips play/pause and returns the new state
func (c *Clock) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = !c.playing
	return c.playing
}

// Ticks returns how many ticks have been delivered
func (c *Clock) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Fire delivers one tick to every step function if the clock is playing
func (c *Clock) Fire() bool {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return false
	}
	c.ticks++
	steps := append([]func(){}, c.steps...)
	c.mu.Unlock()

	for _, step := range steps {
		step()
	}
	return true
}

// Run ticks until ctx is done (blocking - run in goroutine)
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Fire()
		}
	}
}
