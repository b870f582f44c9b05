// Package display dims the clock panel to match ambient light.
package display

// Dimmer accepts normalized brightness levels in [0,1].
type Dimmer interface {
	SetLevel(level float64) error
	Close() error
}

// Noop is a Dimmer for headless runs.
type Noop struct{}

func (Noop) SetLevel(float64) error { return nil }
func (Noop) Close() error           { return nil }
