package audio

import "math"

// Compressor is a stereo-linked feed-forward compressor with a soft knee.
// All voices pass through one instance.
type Compressor struct {
	Threshold float64 // dB
	Knee      float64 // dB
	Ratio     float64

	attack  float64
	release float64
	env     float64 // current gain reduction in dB
}

// NewCompressor creates a compressor with threshold -24 dB, knee 30 dB, ratio 12,
// attack 3 ms and release 250 ms.
func NewCompressor(sampleRate int) *Compressor {
	return &Compressor{
		Threshold: -24,
		Knee:      30,
		Ratio:     12,
		attack:    coef(0.003, sampleRate),
		release:   coef(0.250, sampleRate),
	}
}

func coef(seconds float64, rate int) float64 {
	if rate <= 0 || seconds <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * float64(rate)))
}

// Curve returns the static output level in dB for an input level in dB
func (c *Compressor) Curve(x float64) float64 {
	over := x - c.Threshold
	switch {
	case 2*over < -c.Knee:
		return x
	case 2*math.Abs(over) <= c.Knee && c.Knee > 0:
		d := over + c.Knee/2
		return x + (1/c.Ratio-1)*d*d/(2*c.Knee)
	default:
		return c.Threshold + over/c.Ratio
	}
}

// Reduction returns the current smoothed gain reduction in dB
func (c *Compressor) Reduction() float64 {
	return c.env
}

// Process compresses one stereo frame
func (c *Compressor) Process(l, r float32) (float32, float32) {
	peak := math.Max(math.Abs(float64(l)), math.Abs(float64(r)))
	level := -120.0
	if peak > 1e-6 {
		level = 20 * math.Log10(peak)
	}
	target := level - c.Curve(level)

	a := c.release
	if target > c.env {
		a = c.attack
	}
	c.env = a*c.env + (1-a)*target

	g := float32(math.Pow(10, -c.env/20))
	return l * g, r * g
}
