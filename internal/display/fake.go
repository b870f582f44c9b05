package display

import "sync"

// Fake is an in-memory Dimmer recording every level set.
type Fake struct {
	mu     sync.Mutex
	levels []float64
	err    error
	closed bool
}

// NewFake returns an empty fake dimmer.
func NewFake() *Fake {
	return &Fake{}
}

// Fail makes subsequent SetLevels return err; nil clears the fault.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Fake) SetLevel(level float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.levels = append(f.levels, level)
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Last returns the most recent level, or -1 when none was set.
func (f *Fake) Last() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.levels) == 0 {
		return -1
	}
	return f.levels[len(f.levels)-1]
}

// Levels returns a copy of every level in order.
func (f *Fake) Levels() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.levels...)
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
