// Package dial decodes a quadrature rotary encoder with push button into
// rotate and press events. The decoder is pure: callers feed it line levels
// and timestamps, nothing here touches the wall clock.
package dial

import "time"

// EventType identifies a dial event.
type EventType string

const (
	EventRotate  EventType = "ROTATE"
	EventPress   EventType = "PRESS"
	EventRelease EventType = "RELEASE"
)

// Event is a decoded dial action. Delta is -1 or +1 for ROTATE and 0
// otherwise.
type Event struct {
	Time  time.Time
	Type  EventType
	Delta int
}

// quadTable maps (previous<<2 | current) combined channel states to a
// quarter-step delta. States encode as (A<<1 | B). Legal transitions move
// one bit at a time; the four two-bit jumps are illegal and decode to zero,
// as do repeated states.
var quadTable = [16]int{
	0, -1, +1, 0,
	+1, 0, 0, -1,
	-1, 0, 0, +1,
	0, +1, -1, 0,
}

// quartersPerDetent is how many quarter steps make one detent on the
// encoder; a full cycle through all four states is one click.
const quartersPerDetent = 4

// Decoder tracks the combined channel state, the quarter-step accumulator,
// and the button level.
type Decoder struct {
	state   byte
	acc     int
	pressed bool
}

// NewDecoder seeds the decoder from the initial line levels so the first
// real transition is decoded against the true resting state.
func NewDecoder(a, b, pressed bool) *Decoder {
	return &Decoder{
		state:   channelState(a, b),
		pressed: pressed,
	}
}

func channelState(a, b bool) byte {
	var s byte
	if a {
		s |= 2
	}
	if b {
		s |= 1
	}
	return s
}

// Apply consumes the channel levels after a transition on either line and
// returns a rotate event when a full detent cycle completes. Quarter steps
// accumulate, so a direction reversal partway through a cycle cancels out
// and emits nothing, and illegal codes are absorbed silently.
func (d *Decoder) Apply(now time.Time, a, b bool) (Event, bool) {
	curr := channelState(a, b)
	prev := d.state
	d.state = curr

	d.acc += quadTable[prev<<2|curr]

	switch {
	case d.acc >= quartersPerDetent:
		d.acc = 0
		return Event{Time: now, Type: EventRotate, Delta: +1}, true
	case d.acc <= -quartersPerDetent:
		d.acc = 0
		return Event{Time: now, Type: EventRotate, Delta: -1}, true
	}
	return Event{}, false
}

// Button consumes the button level and reports press and release
// transitions. The level is logical: true means pressed regardless of the
// wiring polarity, which the line layer has already applied.
func (d *Decoder) Button(now time.Time, pressed bool) (Event, bool) {
	if pressed == d.pressed {
		return Event{}, false
	}
	d.pressed = pressed

	if pressed {
		return Event{Time: now, Type: EventPress}, true
	}
	return Event{Time: now, Type: EventRelease}, true
}

// Pressed reports the current button level.
func (d *Decoder) Pressed() bool {
	return d.pressed
}

// spinStep records a single detent for velocity detection.
type spinStep struct {
	at    time.Time
	delta int
}

// Spin tracks recent detents so the daemon can detect fast spinning and use
// a coarser wake-time step. Not safe for concurrent use; the daemon loop is
// the only caller.
type Spin struct {
	window time.Duration
	steps  []spinStep
}

// NewSpin creates a tracker counting detents inside the given window.
func NewSpin(window time.Duration) *Spin {
	return &Spin{
		window: window,
		steps:  make([]spinStep, 0, 16),
	}
}

// Add records a detent at now and returns how many detents in the same
// direction, this one included, landed within the window.
func (s *Spin) Add(now time.Time, delta int) int {
	cutoff := now.Add(-s.window)

	kept := s.steps[:0]
	for _, st := range s.steps {
		if st.at.After(cutoff) {
			kept = append(kept, st)
		}
	}
	kept = append(kept, spinStep{at: now, delta: delta})
	s.steps = kept

	same := 0
	for _, st := range kept {
		if st.delta == delta {
			same++
		}
	}
	return same
}
