package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sysfs attribute names of the light sensor's channels.
const (
	ambientFile    = "in_illuminance_raw"
	cumulativeFile = "in_intensity_raw"
)

// IIO reads the light sensor through the kernel's industrial-I/O sysfs
// attributes, one small file per channel.
type IIO struct {
	ambientPath    string
	cumulativePath string
}

// NewIIO opens the sensor under the given iio device directory, for example
// /sys/bus/iio/devices/iio:device0. A probe read runs immediately so a
// missing or misconfigured sensor fails at startup rather than mid-loop.
func NewIIO(deviceDir string) (*IIO, error) {
	s := &IIO{
		ambientPath:    filepath.Join(deviceDir, ambientFile),
		cumulativePath: filepath.Join(deviceDir, cumulativeFile),
	}
	if _, err := s.Read(); err != nil {
		return nil, fmt.Errorf("probe light sensor: %w", err)
	}
	return s, nil
}

// Read polls both channels. Counts are 16-bit on this part; anything wider
// is a parse error, not silent truncation.
func (s *IIO) Read() (Reading, error) {
	amb, err := readCount(s.ambientPath)
	if err != nil {
		return Reading{}, err
	}
	cum, err := readCount(s.cumulativePath)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Ambient: amb, Cumulative: cum}, nil
}

// Close satisfies Reader; sysfs attributes hold no state to release.
func (s *IIO) Close() error { return nil }

func readCount(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read sensor channel: %w", err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return int(v), nil
}
