// Package color provides the RGBW value type and the stateless output
// transforms (gamma correction, PWM duty scaling) applied on the way to the
// lamp hardware.
package color

import (
	"fmt"
	"math"
)

// RGBW is a four-channel lamp color. W drives the dedicated white LEDs.
type RGBW struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	W uint8 `json:"w"`
}

// IsZero reports whether all channels are off.
func (c RGBW) IsZero() bool {
	return c.R == 0 && c.G == 0 && c.B == 0 && c.W == 0
}

// HexRGB returns the RGB portion as a #rrggbb string for display.
// The white channel has no CSS equivalent and is omitted.
func (c RGBW) HexRGB() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGBW) String() string {
	return fmt.Sprintf("rgbw(%d,%d,%d,%d)", c.R, c.G, c.B, c.W)
}

// gammaExp is the LED gamma exponent. Linear channel values look washed out
// at the low end on bare LEDs; this curve restores perceptual spacing.
const gammaExp = 2.2

// gammaLUT maps linear channel values to gamma-corrected ones.
var gammaLUT [256]uint8

func init() {
	for i := range gammaLUT {
		v := math.Pow(float64(i)/255.0, gammaExp) * 255.0
		gammaLUT[i] = uint8(math.Round(v))
	}
}

// Gamma returns c with the LED gamma curve applied to every channel.
// Endpoints are preserved: 0 maps to 0 and 255 to 255.
func Gamma(c RGBW) RGBW {
	return RGBW{
		R: gammaLUT[c.R],
		G: gammaLUT[c.G],
		B: gammaLUT[c.B],
		W: gammaLUT[c.W],
	}
}

// Duty scales a channel value onto a PWM period in nanoseconds.
// 0 maps to 0 and 255 to the full period.
func Duty(v uint8, period uint32) uint32 {
	return uint32(uint64(period) * uint64(v) / 255)
}
