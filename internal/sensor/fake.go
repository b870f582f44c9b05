package sensor

import "sync"

// Fake is an in-memory Reader for tests and host-side runs. Safe for
// concurrent use so a test can retune it while a Sampler polls.
type Fake struct {
	mu      sync.Mutex
	reading Reading
	err     error
	reads   int
	closed  bool
}

// NewFake returns a fake that serves the given reading.
func NewFake(r Reading) *Fake {
	return &Fake{reading: r}
}

// Set changes the reading served by subsequent Reads.
func (f *Fake) Set(r Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = r
}

// Fail makes subsequent Reads return err; nil clears the fault.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Fake) Read() (Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return Reading{}, f.err
	}
	return f.reading, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Reads returns how many times Read was called.
func (f *Fake) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
