// Package status provides a thread-safe status tracker for the wakelight
// daemon. It is read by HTTP handlers and the MQTT event payloads.
package status

import (
	"sync"
	"time"

	"wakelight/internal/color"
	"wakelight/internal/timeline"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	PaintMs     int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
}

// Counts tallies user and alarm activity since startup.
type Counts struct {
	Rotates  int
	Presses  int
	Sunrises int
}

// Channel is one filtered sensor channel's view: the last accepted raw
// count and the filter's target and eased levels.
type Channel struct {
	Raw    int
	Target float64
	Eased  float64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Enabled       bool
	Phase         timeline.Phase
	WakeOffset    int
	Color         color.RGBW
	Ambient       Channel
	Cumulative    Channel
	Primed        bool
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetAlarm sets the alarm state and current color.
// Called from the daemon loop on every recompute.
func (t *Tracker) SetAlarm(enabled bool, phase timeline.Phase, wakeOffset int, c color.RGBW) {
	t.mu.Lock()
	t.snap.Enabled = enabled
	t.snap.Phase = phase
	t.snap.WakeOffset = wakeOffset
	t.snap.Color = c
	t.mu.Unlock()
}

// SetLevels sets the filtered sensor channels.
// Called from the daemon loop on every paint tick.
func (t *Tracker) SetLevels(ambient, cumulative Channel, primed bool) {
	t.mu.Lock()
	t.snap.Ambient = ambient
	t.snap.Cumulative = cumulative
	t.snap.Primed = primed
	t.mu.Unlock()
}

// SetCounts sets the activity tallies.
func (t *Tracker) SetCounts(c Counts) {
	t.mu.Lock()
	t.snap.Counts = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
