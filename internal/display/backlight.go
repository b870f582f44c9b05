package display

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"wakelight/internal/mathx"
)

// Backlight dims a panel through the kernel backlight class. Levels map
// onto the panel's own brightness range, read once at startup.
type Backlight struct {
	brightnessPath string
	max            int
	lastRaw        int
}

// NewBacklight opens the backlight under the given class directory, for
// example /sys/class/backlight/rpi_backlight.
func NewBacklight(dir string) (*Backlight, error) {
	b, err := os.ReadFile(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return nil, fmt.Errorf("read backlight range: %w", err)
	}
	max, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, fmt.Errorf("parse backlight range: %w", err)
	}
	if max < 1 {
		return nil, fmt.Errorf("backlight range %d is unusable", max)
	}

	return &Backlight{
		brightnessPath: filepath.Join(dir, "brightness"),
		max:            max,
		lastRaw:        -1,
	}, nil
}

// SetLevel writes the level scaled onto the panel range. Levels quantizing
// to the previously written raw value are skipped, so the eased paint
// cadence does not grind sysfs with identical writes.
func (d *Backlight) SetLevel(level float64) error {
	raw := int(math.Round(mathx.Clamp01(level) * float64(d.max)))
	if raw == d.lastRaw {
		return nil
	}
	if err := os.WriteFile(d.brightnessPath, []byte(strconv.Itoa(raw)), 0o644); err != nil {
		return fmt.Errorf("write brightness: %w", err)
	}
	d.lastRaw = raw
	return nil
}

// Close hands the panel back at full brightness so the clock stays
// readable once the daemon is gone.
func (d *Backlight) Close() error {
	if err := os.WriteFile(d.brightnessPath, []byte(strconv.Itoa(d.max)), 0o644); err != nil {
		return fmt.Errorf("restore brightness: %w", err)
	}
	return nil
}
