// Package ambient turns noisy light-sensor counts into stable [0,1]
// brightness levels.
//
// A Calibration maps raw counts through quantization and a power-law curve;
// a Filter gates jittery samples and eases the level toward its target so
// the lamp and display never step visibly. The filter is pure state driven
// by Observe and Step; the daemon loop owns the cadence.
package ambient

import (
	"fmt"
	"math"

	"wakelight/internal/mathx"
)

// snapEpsilon ends the asymptotic tail: once the eased level is this close
// to the target it locks on exactly, which keeps repeated paints from
// churning on sub-duty-step deltas.
const snapEpsilon = 1e-3

// Calibration converts raw sensor counts to a brightness level. The zero
// value is not usable; load one from config and Validate it first.
type Calibration struct {
	// Offset is added to every raw count before quantization.
	Offset int
	// Grid is the quantization step in counts. Accepted values snap to the
	// nearest multiple, so the set of reachable targets is finite.
	Grid int
	// DeltaThreshold is the minimum raw change, in counts, for a sample to
	// replace the current target. Suppresses jitter and the device lighting
	// its own sensor.
	DeltaThreshold int
	// Scale is the count value that maps to full brightness.
	Scale float64
	// Exponent shapes the response curve; 1 is linear.
	Exponent float64
	// Floor is the minimum level ever emitted, so displays stay readable in
	// the dark.
	Floor float64
}

// Validate reports the first unusable field.
func (c Calibration) Validate() error {
	if c.Grid < 1 {
		return fmt.Errorf("grid %d must be at least 1", c.Grid)
	}
	if c.DeltaThreshold < 0 {
		return fmt.Errorf("delta threshold %d must not be negative", c.DeltaThreshold)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale %g must be positive", c.Scale)
	}
	if c.Exponent <= 0 {
		return fmt.Errorf("exponent %g must be positive", c.Exponent)
	}
	if c.Floor < 0 || c.Floor >= 1 {
		return fmt.Errorf("floor %g must be in [0,1)", c.Floor)
	}
	return nil
}

// Quantize offsets and snaps a raw count onto the calibration grid.
// Negative adjusted counts clamp to zero.
func (c Calibration) Quantize(raw int) int {
	v := raw + c.Offset
	if v < 0 {
		v = 0
	}
	if c.Grid > 1 {
		v = (v + c.Grid/2) / c.Grid * c.Grid
	}
	return v
}

// Level maps a raw count to a brightness level in [Floor, 1] through the
// quantizer and the power-law curve.
func (c Calibration) Level(raw int) float64 {
	q := c.Quantize(raw)
	n := mathx.Clamp01(math.Pow(float64(q)/c.Scale, c.Exponent))
	return c.Floor + (1-c.Floor)*n
}

// Filter holds one channel's gated target and eased level. Not safe for
// concurrent use; the daemon loop is the only caller.
type Filter struct {
	cal   Calibration
	coeff float64

	primed  bool
	lastRaw int
	target  float64
	eased   float64
	vel     float64
}

// NewFilter creates a filter. coeff is the per-tick easing gain in (0,1];
// 0.2 at a 100ms paint cadence settles a full-range step in about two
// seconds.
func NewFilter(cal Calibration, coeff float64) *Filter {
	return &Filter{cal: cal, coeff: coeff}
}

// Observe gates a raw sample and reports whether it was accepted. A sample
// within DeltaThreshold of the last accepted raw value is dropped. The
// first sample always primes the filter, with the eased level jumping
// straight to the target so startup shows no ramp from black.
func (f *Filter) Observe(raw int) bool {
	if f.primed && mathx.Abs(raw-f.lastRaw) <= f.cal.DeltaThreshold {
		return false
	}
	f.lastRaw = raw
	f.target = f.cal.Level(raw)
	if !f.primed {
		f.primed = true
		f.eased = f.target
		f.vel = 0
	}
	return true
}

// Step advances the eased level one paint tick toward the target and
// returns it. The approach is damped: it never overshoots, and each tick
// closes a fixed fraction of the remaining gap until the snap window locks
// it on exactly.
func (f *Filter) Step() float64 {
	f.vel = f.coeff * (f.target - f.eased)
	f.eased += f.vel
	if math.Abs(f.target-f.eased) < snapEpsilon {
		f.eased = f.target
		f.vel = 0
	}
	return f.eased
}

// Level returns the current eased level without advancing it.
func (f *Filter) Level() float64 { return f.eased }

// Target returns the level the filter is easing toward.
func (f *Filter) Target() float64 { return f.target }

// RawTarget returns the last accepted raw count.
func (f *Filter) RawTarget() int { return f.lastRaw }

// Settled reports whether the eased level has locked onto the target.
func (f *Filter) Settled() bool { return f.primed && f.eased == f.target }
