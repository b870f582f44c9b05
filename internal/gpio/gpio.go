// Package gpio delivers debounced input-line events with hardware
// abstraction. The real implementation uses the Linux GPIO character
// device; the fake implementation allows testing without hardware.
package gpio

import "time"

// eventBuffer absorbs the edge bursts of a fast dial spin; a full buffer
// drops edges rather than blocking the producer.
const eventBuffer = 64

// Role identifies which logical input line an event came from.
type Role int

const (
	RoleDialA Role = iota
	RoleDialB
	RoleButton
)

func (r Role) String() string {
	switch r {
	case RoleDialA:
		return "dial-a"
	case RoleDialB:
		return "dial-b"
	case RoleButton:
		return "button"
	}
	return "unknown"
}

// Event is one stable level change on a logical line. Level is the logical
// level after the edge, with the line's polarity already applied.
type Event struct {
	Role  Role
	Level bool
	Time  time.Time
}

// Line describes one input line to request. ActiveLow suits the usual dial
// wiring: contacts shorting to ground against an internal pull-up. Debounce
// is per line because the quadrature pair needs a much shorter period than
// the button to keep up with a fast spin.
type Line struct {
	Pin       int
	Role      Role
	ActiveLow bool
	Debounce  time.Duration
}

// Watcher delivers input events until closed. Levels reports the current
// logical level of each requested line. Close stops delivery but leaves the
// channel open, so a consumer blocked on Events never reads a spurious zero
// Event.
type Watcher interface {
	Events() <-chan Event
	Levels() (map[Role]bool, error)
	Close() error
}
