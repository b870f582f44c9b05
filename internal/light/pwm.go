package light

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"wakelight/internal/color"
)

// PWM drives four sysfs PWM channels, one per color channel in RGBW order.
type PWM struct {
	period   uint32
	chanDirs [4]string
}

// NewPWM exports the four channels under the given pwmchip directory and
// arms them: period set, duty zero, output enabled. Channel indices are in
// RGBW order. Any failure is fatal here so a miswired lamp never reaches
// the daemon loop.
func NewPWM(chipDir string, period uint32, channels [4]int) (*PWM, error) {
	if period == 0 {
		return nil, fmt.Errorf("pwm period must not be zero")
	}

	p := &PWM{period: period}
	for i, ch := range channels {
		dir := filepath.Join(chipDir, fmt.Sprintf("pwm%d", ch))
		if _, err := os.Stat(dir); err != nil {
			if err := writeAttr(filepath.Join(chipDir, "export"), strconv.Itoa(ch)); err != nil {
				return nil, fmt.Errorf("export pwm channel %d: %w", ch, err)
			}
		}
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("pwm channel %d missing after export: %w", ch, err)
		}

		// Duty must stay within the period, so order matters: period first,
		// then duty, then enable.
		if err := writeAttr(filepath.Join(dir, "period"), strconv.FormatUint(uint64(period), 10)); err != nil {
			return nil, fmt.Errorf("set pwm channel %d period: %w", ch, err)
		}
		if err := writeAttr(filepath.Join(dir, "duty_cycle"), "0"); err != nil {
			return nil, fmt.Errorf("zero pwm channel %d duty: %w", ch, err)
		}
		if err := writeAttr(filepath.Join(dir, "enable"), "1"); err != nil {
			return nil, fmt.Errorf("enable pwm channel %d: %w", ch, err)
		}
		p.chanDirs[i] = dir
	}
	return p, nil
}

// Apply writes each channel's duty cycle. The color is expected to be
// gamma-corrected already.
func (p *PWM) Apply(c color.RGBW) error {
	for i, v := range [4]uint8{c.R, c.G, c.B, c.W} {
		duty := color.Duty(v, p.period)
		path := filepath.Join(p.chanDirs[i], "duty_cycle")
		if err := writeAttr(path, strconv.FormatUint(uint64(duty), 10)); err != nil {
			return fmt.Errorf("write duty: %w", err)
		}
	}
	return nil
}

// Close blanks and disables every channel. Channels stay exported so the
// next start finds them in place.
func (p *PWM) Close() error {
	var errs []error
	for _, dir := range p.chanDirs {
		if dir == "" {
			continue
		}
		if err := writeAttr(filepath.Join(dir, "duty_cycle"), "0"); err != nil {
			errs = append(errs, fmt.Errorf("blank %s: %w", dir, err))
		}
		if err := writeAttr(filepath.Join(dir, "enable"), "0"); err != nil {
			errs = append(errs, fmt.Errorf("disable %s: %w", dir, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func writeAttr(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}
