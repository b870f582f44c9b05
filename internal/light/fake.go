package light

import (
	"sync"

	"wakelight/internal/color"
)

// Fake is an in-memory Sink recording every applied color.
type Fake struct {
	mu      sync.Mutex
	history []color.RGBW
	err     error
	closed  bool
}

// NewFake returns an empty fake sink.
func NewFake() *Fake {
	return &Fake{}
}

// Fail makes subsequent Applies return err; nil clears the fault.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Fake) Apply(c color.RGBW) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.history = append(f.history, c)
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Last returns the most recently applied color, or the zero color when
// nothing was applied yet.
func (f *Fake) Last() color.RGBW {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.history) == 0 {
		return color.RGBW{}
	}
	return f.history[len(f.history)-1]
}

// History returns a copy of every applied color in order.
func (f *Fake) History() []color.RGBW {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]color.RGBW(nil), f.history...)
}

// Applies returns how many colors were applied.
func (f *Fake) Applies() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history)
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
