package audio

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoOutput plays a Mixer on the default audio device
type OtoOutput struct {
	ctx    *oto.Context
	player *oto.Player
}

// NewOtoOutput opens the audio device at the mixer's rate and starts pulling from it
func NewOtoOutput(m *Mixer) (*OtoOutput, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   m.Rate(),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   40 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(m)
	player.Play()
	return &OtoOutput{ctx: ctx, player: player}, nil
}

// Close stops the player
func (o *OtoOutput) Close() error {
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
