package ambient

import (
	"math"
	"testing"
)

// linearCal maps 0..1000 counts straight onto [0,1] with no offset, grid,
// or floor, which keeps expected values easy to read.
func linearCal() Calibration {
	return Calibration{Grid: 1, Scale: 1000, Exponent: 1}
}

func TestCalibrationValidate(t *testing.T) {
	cases := []struct {
		name string
		cal  Calibration
	}{
		{"zero grid", Calibration{Grid: 0, Scale: 1000, Exponent: 1}},
		{"negative threshold", Calibration{Grid: 1, DeltaThreshold: -1, Scale: 1000, Exponent: 1}},
		{"zero scale", Calibration{Grid: 1, Scale: 0, Exponent: 1}},
		{"zero exponent", Calibration{Grid: 1, Scale: 1000, Exponent: 0}},
		{"floor too high", Calibration{Grid: 1, Scale: 1000, Exponent: 1, Floor: 1}},
		{"negative floor", Calibration{Grid: 1, Scale: 1000, Exponent: 1, Floor: -0.1}},
	}
	for _, tc := range cases {
		if err := tc.cal.Validate(); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
	if err := linearCal().Validate(); err != nil {
		t.Errorf("valid calibration rejected: %v", err)
	}
}

func TestQuantizeSnapsToGrid(t *testing.T) {
	cal := Calibration{Offset: -20, Grid: 50, Scale: 1000, Exponent: 1}

	cases := []struct {
		raw  int
		want int
	}{
		{1000, 1000}, // 980 rounds up to 1000
		{1026, 1000}, // 1006 rounds down
		{1045, 1050}, // 1025 rounds up
		{10, 0},      // negative after offset clamps to zero
		{20, 0},
		{45, 50}, // 25 rounds up
	}
	for _, tc := range cases {
		if got := cal.Quantize(tc.raw); got != tc.want {
			t.Errorf("Quantize(%d) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestQuantizeUnitGridIsIdentity(t *testing.T) {
	cal := Calibration{Offset: 5, Grid: 1, Scale: 1000, Exponent: 1}
	if got := cal.Quantize(100); got != 105 {
		t.Errorf("Quantize(100) = %d, want 105", got)
	}
}

func TestLevelCurve(t *testing.T) {
	cal := linearCal()

	cases := []struct {
		raw  int
		want float64
	}{
		{0, 0},
		{500, 0.5},
		{1000, 1},
		{2000, 1}, // clamps at full scale
	}
	for _, tc := range cases {
		if got := cal.Level(tc.raw); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Level(%d) = %g, want %g", tc.raw, got, tc.want)
		}
	}
}

func TestLevelFloorRescales(t *testing.T) {
	cal := linearCal()
	cal.Floor = 0.1

	if got := cal.Level(0); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("Level(0) = %g, want floor 0.1", got)
	}
	if got := cal.Level(1000); math.Abs(got-1) > 1e-9 {
		t.Errorf("Level(1000) = %g, want 1", got)
	}
	if got := cal.Level(500); math.Abs(got-0.55) > 1e-9 {
		t.Errorf("Level(500) = %g, want 0.55", got)
	}
}

func TestLevelExponentShapesCurve(t *testing.T) {
	cal := linearCal()
	cal.Exponent = 0.5
	if got := cal.Level(250); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Level(250) = %g, want 0.5", got)
	}
}

func TestLevelMonotonic(t *testing.T) {
	cal := Calibration{Offset: -20, Grid: 50, Scale: 3000, Exponent: 0.8, Floor: 0.05}
	prev := -1.0
	for raw := 0; raw <= 4000; raw += 25 {
		got := cal.Level(raw)
		if got < prev {
			t.Fatalf("Level(%d) = %g dropped below %g", raw, got, prev)
		}
		prev = got
	}
}

func TestObserveGatesSmallDeltas(t *testing.T) {
	cal := linearCal()
	cal.DeltaThreshold = 40
	f := NewFilter(cal, 0.2)

	if !f.Observe(500) {
		t.Fatal("first sample should always be accepted")
	}
	if f.Observe(530) {
		t.Error("delta 30 within threshold should be dropped")
	}
	if !f.Observe(541) {
		t.Error("delta 41 beyond threshold should be accepted")
	}
	if got := f.RawTarget(); got != 541 {
		t.Errorf("RawTarget = %d, want 541", got)
	}
	// The gate compares against the last accepted value, not the last seen.
	if f.Observe(505) {
		t.Error("delta 36 from accepted 541 should be dropped")
	}
	if !f.Observe(600) {
		t.Error("delta 59 from accepted 541 should be accepted")
	}
}

func TestFirstObservePrimesWithoutRamp(t *testing.T) {
	f := NewFilter(linearCal(), 0.2)
	f.Observe(500)

	if got := f.Level(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Level after prime = %g, want 0.5", got)
	}
	if !f.Settled() {
		t.Error("primed filter should report settled")
	}
	if got := f.Step(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Step after prime = %g, want 0.5", got)
	}
}

func TestStepConvergesWithoutOvershoot(t *testing.T) {
	f := NewFilter(linearCal(), 0.2)
	f.Observe(0)
	f.Observe(1000)

	prev := f.Level()
	settledAt := -1
	for i := 0; i < 40; i++ {
		got := f.Step()
		if got > 1 {
			t.Fatalf("step %d overshot: %g", i, got)
		}
		if got < prev {
			t.Fatalf("step %d moved away from target: %g after %g", i, got, prev)
		}
		if i < 20 && got == prev {
			t.Fatalf("step %d stalled before converging: %g", i, got)
		}
		prev = got
		if f.Settled() {
			settledAt = i
			break
		}
	}
	if settledAt < 0 {
		t.Fatalf("never settled; level %g", f.Level())
	}
	if f.Level() != 1 {
		t.Errorf("settled level = %g, want exactly 1", f.Level())
	}
}

func TestStepWithinOnePercentQuickly(t *testing.T) {
	f := NewFilter(linearCal(), 0.2)
	f.Observe(0)
	f.Observe(1000)

	for i := 0; i < 25; i++ {
		f.Step()
	}
	if gap := 1 - f.Level(); gap > 0.01 {
		t.Errorf("gap after 25 steps = %g, want <= 0.01", gap)
	}
}

func TestStepFallingIsMonotonic(t *testing.T) {
	f := NewFilter(linearCal(), 0.2)
	f.Observe(1000)
	f.Observe(0)

	prev := f.Level()
	for i := 0; i < 40; i++ {
		got := f.Step()
		if got < 0 {
			t.Fatalf("step %d undershot: %g", i, got)
		}
		if got > prev {
			t.Fatalf("step %d moved away from target: %g after %g", i, got, prev)
		}
		prev = got
	}
	if f.Level() != 0 {
		t.Errorf("level after fall = %g, want exactly 0", f.Level())
	}
}

func TestRetargetMidEase(t *testing.T) {
	f := NewFilter(linearCal(), 0.2)
	f.Observe(0)
	f.Observe(1000)
	for i := 0; i < 5; i++ {
		f.Step()
	}
	mid := f.Level()

	// New target below the current eased level turns the approach around.
	f.Observe(0)
	if got := f.Step(); got >= mid {
		t.Errorf("step after retarget = %g, want below %g", got, mid)
	}
}
