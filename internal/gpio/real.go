//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealWatcher watches input lines on actual hardware through the Linux GPIO
// character device. Edge filtering happens in the kernel: both edges are
// requested with a debounce period, so only stable level changes reach the
// event channel.
type RealWatcher struct {
	chip  *gpiocdev.Chip
	lines map[Role]*gpiocdev.Line
	out   chan Event
}

// NewRealWatcher requests the given lines on the named chip, each as input
// with an internal pull-up and its own debounce period.
func NewRealWatcher(device string, lines []Line) (*RealWatcher, error) {
	chip, err := gpiocdev.NewChip(device)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", device, err)
	}

	w := &RealWatcher{
		chip:  chip,
		lines: make(map[Role]*gpiocdev.Line),
		out:   make(chan Event, eventBuffer),
	}
	for _, l := range lines {
		role := l.Role
		opts := []gpiocdev.LineReqOption{
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithDebounce(l.Debounce),
			gpiocdev.WithEventHandler(func(ev gpiocdev.LineEvent) {
				w.handle(role, ev)
			}),
		}
		if l.ActiveLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}

		line, err := chip.RequestLine(l.Pin, opts...)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", role, l.Pin, err)
		}
		w.lines[role] = line
	}
	return w, nil
}

// Events returns the channel debounced edges are delivered on.
func (w *RealWatcher) Events() <-chan Event { return w.out }

// Levels reads the current logical level of every requested line.
func (w *RealWatcher) Levels() (map[Role]bool, error) {
	levels := make(map[Role]bool, len(w.lines))
	for role, line := range w.lines {
		v, err := line.Value()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", role, err)
		}
		levels[role] = v != 0
	}
	return levels, nil
}

// handle runs on the character device's event goroutine. A rising edge is a
// transition to the active level; with AsActiveLow the kernel has already
// folded the polarity in.
func (w *RealWatcher) handle(role Role, ev gpiocdev.LineEvent) {
	e := Event{
		Role:  role,
		Level: ev.Type == gpiocdev.LineEventRisingEdge,
		Time:  time.Now(),
	}
	select {
	case w.out <- e:
	default:
	}
}

// Close releases the lines and the chip. Lines are reconfigured to plain
// inputs first so edge detection is torn down before release.
func (w *RealWatcher) Close() error {
	var errs []error

	for _, line := range w.lines {
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
