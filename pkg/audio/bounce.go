package audio

import "time"

// maxTail bounds how long Bounce keeps rendering after the last step
const maxTail = 3 * time.Second

// Bounce renders steps ticks offline. step is called at the start of every
// tick and is expected to trigger the mixer; the sounding tail after the last
// tick is included. Returns interleaved stereo at the mixer rate.
func Bounce(m *Mixer, steps int, interval time.Duration, step func()) []float32 {
	framesPerStep := int(interval.Seconds() * float64(m.Rate()))
	out := make([]float32, 0, (steps*framesPerStep)*2)
	for i := 0; i < steps; i++ {
		step()
		out = append(out, m.Render(framesPerStep)...)
	}

	chunk := m.Rate() / 10
	tail := int(maxTail.Seconds() * float64(m.Rate()))
	for rendered := 0; m.Voices() > 0 && rendered < tail && chunk > 0; rendered += chunk {
		out = append(out, m.Render(chunk)...)
	}
	return out
}
