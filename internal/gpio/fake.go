package gpio

import "sync"

// FakeWatcher is a test double that delivers injected events.
type FakeWatcher struct {
	out chan Event

	mu      sync.Mutex
	levels  map[Role]bool
	err     error
	closed  bool
	dropped int
}

// NewFakeWatcher creates a watcher with the same buffering behavior as the
// real one. All lines start at the inactive level.
func NewFakeWatcher() *FakeWatcher {
	return &FakeWatcher{
		out:    make(chan Event, eventBuffer),
		levels: make(map[Role]bool),
	}
}

// Events returns the injected-event channel.
func (f *FakeWatcher) Events() <-chan Event { return f.out }

// Levels returns the current level of each line, as set by SetLevel and
// Inject. Returns the error injected via Fail, if any.
func (f *FakeWatcher) Levels() (map[Role]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	levels := make(map[Role]bool, len(f.levels))
	for role, level := range f.levels {
		levels[role] = level
	}
	return levels, nil
}

// SetLevel sets a line's level without emitting an event.
func (f *FakeWatcher) SetLevel(role Role, level bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels[role] = level
}

// Fail makes subsequent Levels calls return err.
func (f *FakeWatcher) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Inject queues one event and tracks the resulting line level. Like the
// real watcher it drops instead of blocking when the buffer is full, and
// delivers nothing after Close.
func (f *FakeWatcher) Inject(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.levels[e.Role] = e.Level
	select {
	case f.out <- e:
	default:
		f.dropped++
	}
}

// Close marks the watcher closed. The channel stays open, matching the
// real watcher.
func (f *FakeWatcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeWatcher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Dropped returns how many events hit a full buffer.
func (f *FakeWatcher) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
