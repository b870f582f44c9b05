package color

import "testing"

func TestGammaEndpoints(t *testing.T) {
	got := Gamma(RGBW{})
	if !got.IsZero() {
		t.Errorf("Gamma(zero) = %v, want all zero", got)
	}

	got = Gamma(RGBW{R: 255, G: 255, B: 255, W: 255})
	want := RGBW{R: 255, G: 255, B: 255, W: 255}
	if got != want {
		t.Errorf("Gamma(full) = %v, want %v", got, want)
	}
}

func TestGammaMonotonic(t *testing.T) {
	prev := gammaLUT[0]
	for i := 1; i < 256; i++ {
		if gammaLUT[i] < prev {
			t.Fatalf("gamma table decreases at %d: %d -> %d", i, prev, gammaLUT[i])
		}
		prev = gammaLUT[i]
	}
}

func TestGammaDarkensMidtones(t *testing.T) {
	// A 2.2 curve pulls every interior value down.
	for _, v := range []uint8{32, 64, 128, 200} {
		if gammaLUT[v] >= v {
			t.Errorf("gammaLUT[%d] = %d, want < %d", v, gammaLUT[v], v)
		}
	}
}

func TestGammaPerChannel(t *testing.T) {
	in := RGBW{R: 10, G: 128, B: 255, W: 0}
	got := Gamma(in)
	if got.R != gammaLUT[10] || got.G != gammaLUT[128] || got.B != 255 || got.W != 0 {
		t.Errorf("Gamma(%v) = %v", in, got)
	}
}

func TestDuty(t *testing.T) {
	const period = 1_000_000 // 1kHz in ns

	tests := []struct {
		v    uint8
		want uint32
	}{
		{0, 0},
		{255, period},
		{51, period / 5},
	}
	for _, tt := range tests {
		if got := Duty(tt.v, period); got != tt.want {
			t.Errorf("Duty(%d, %d) = %d, want %d", tt.v, period, got, tt.want)
		}
	}
}

func TestDutyNeverExceedsPeriod(t *testing.T) {
	const period = 40_000
	for v := 0; v < 256; v++ {
		if got := Duty(uint8(v), period); got > period {
			t.Fatalf("Duty(%d, %d) = %d exceeds period", v, period, got)
		}
	}
}

func TestHexRGB(t *testing.T) {
	tests := []struct {
		c    RGBW
		want string
	}{
		{RGBW{}, "#000000"},
		{RGBW{R: 255, G: 140, B: 40, W: 120}, "#ff8c28"},
		{RGBW{R: 1, G: 2, B: 3}, "#010203"},
	}
	for _, tt := range tests {
		if got := tt.c.HexRGB(); got != tt.want {
			t.Errorf("HexRGB(%v) = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestIsZero(t *testing.T) {
	if !(RGBW{}).IsZero() {
		t.Error("zero RGBW should report IsZero")
	}
	if (RGBW{W: 1}).IsZero() {
		t.Error("RGBW{W:1} should not report IsZero")
	}
}
