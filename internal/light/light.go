// Package light drives the RGBW lamp output with hardware abstraction.
// The real implementation writes sysfs PWM channels; the fake records
// applied colors for tests.
package light

import "wakelight/internal/color"

// Sink accepts gamma-corrected colors. Close drives the lamp to a safe
// dark state before releasing it.
type Sink interface {
	Apply(c color.RGBW) error
	Close() error
}
