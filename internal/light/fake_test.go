package light

import (
	"errors"
	"testing"

	"wakelight/internal/color"
)

func TestFakeRecordsHistory(t *testing.T) {
	f := NewFake()
	if got := f.Last(); !got.IsZero() {
		t.Errorf("Last before any apply = %+v, want zero", got)
	}

	f.Apply(color.RGBW{R: 1})
	f.Apply(color.RGBW{R: 2})

	if got := f.Applies(); got != 2 {
		t.Errorf("Applies = %d, want 2", got)
	}
	if got := f.Last(); got != (color.RGBW{R: 2}) {
		t.Errorf("Last = %+v", got)
	}
	hist := f.History()
	if len(hist) != 2 || hist[0] != (color.RGBW{R: 1}) {
		t.Errorf("History = %+v", hist)
	}
}

func TestFakeFailAndClose(t *testing.T) {
	f := NewFake()
	f.Fail(errors.New("wire loose"))
	if err := f.Apply(color.RGBW{R: 1}); err == nil {
		t.Error("expected injected failure")
	}
	if got := f.Applies(); got != 0 {
		t.Errorf("failed apply recorded: %d", got)
	}

	f.Fail(nil)
	if err := f.Apply(color.RGBW{R: 1}); err != nil {
		t.Errorf("Apply after clearing fault: %v", err)
	}

	if f.Closed() {
		t.Error("not closed yet")
	}
	f.Close()
	if !f.Closed() {
		t.Error("Closed should report true after Close")
	}
}
