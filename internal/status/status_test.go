package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"wakelight/internal/color"
	"wakelight/internal/timeline"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 500, PaintMs: 100, Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 500 {
		t.Errorf("Config.PollMs: got %d, want 500", snap.Config.PollMs)
	}
	if snap.Config.HTTPPort != ":80" {
		t.Errorf("Config.HTTPPort: got %q, want %q", snap.Config.HTTPPort, ":80")
	}
	if snap.Enabled {
		t.Error("expected Enabled=false initially")
	}
	if snap.Primed {
		t.Error("expected Primed=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestSetAlarmAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetAlarm(true, timeline.PhaseRising, 420, color.RGBW{R: 50, B: 10})

	snap := tr.Snapshot()
	if !snap.Enabled {
		t.Error("expected Enabled=true")
	}
	if snap.Phase != timeline.PhaseRising {
		t.Errorf("Phase: got %q, want RISING", snap.Phase)
	}
	if snap.WakeOffset != 420 {
		t.Errorf("WakeOffset: got %d, want 420", snap.WakeOffset)
	}
	if snap.Color != (color.RGBW{R: 50, B: 10}) {
		t.Errorf("Color: got %+v", snap.Color)
	}
}

func TestSetLevels(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetLevels(Channel{Raw: 1200, Target: 0.6, Eased: 0.55}, Channel{Raw: 40, Target: 0.1, Eased: 0.1}, true)

	snap := tr.Snapshot()
	if snap.Ambient.Raw != 1200 || snap.Ambient.Eased != 0.55 {
		t.Errorf("Ambient: got %+v", snap.Ambient)
	}
	if snap.Cumulative.Raw != 40 {
		t.Errorf("Cumulative: got %+v", snap.Cumulative)
	}
	if !snap.Primed {
		t.Error("expected Primed=true")
	}
}

func TestSetCounts(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetCounts(Counts{Rotates: 7, Presses: 2, Sunrises: 1})

	snap := tr.Snapshot()
	if snap.Counts.Rotates != 7 || snap.Counts.Presses != 2 || snap.Counts.Sunrises != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetAlarm(true, timeline.PhaseRising, 420, color.RGBW{R: 50})

	snap1 := tr.Snapshot()

	tr.SetAlarm(false, timeline.PhaseIdle, 425, color.RGBW{})

	// snap1 should still reflect old state
	if !snap1.Enabled || snap1.WakeOffset != 420 {
		t.Error("snapshot should be a copy; alarm state was modified")
	}
	if snap1.Color != (color.RGBW{R: 50}) {
		t.Error("snapshot should be a copy; color was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Enabled:       true,
		Phase:         timeline.PhaseRising,
		WakeOffset:    420,
		Color:         color.RGBW{R: 50, B: 10},
		Ambient:       Channel{Raw: 1200, Target: 0.61234, Eased: 0.5551},
		Primed:        true,
		Counts:        Counts{Rotates: 5, Presses: 2, Sunrises: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 500, PaintMs: 100, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPPort: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if !parsed.Status.Enabled {
		t.Error("expected enabled=true")
	}
	if parsed.Status.Phase != "RISING" {
		t.Errorf("Phase: got %q, want RISING", parsed.Status.Phase)
	}
	if parsed.Status.WakeTime != "07:00" {
		t.Errorf("WakeTime: got %q, want 07:00", parsed.Status.WakeTime)
	}
	if parsed.Status.Color.Hex != "#32000a" {
		t.Errorf("Color.Hex: got %q, want #32000a", parsed.Status.Color.Hex)
	}
	if parsed.Status.Ambient.Target != 0.612 {
		t.Errorf("Ambient.Target: got %v, want rounded 0.612", parsed.Status.Ambient.Target)
	}
	if parsed.Status.Ambient.Eased != 0.555 {
		t.Errorf("Ambient.Eased: got %v, want rounded 0.555", parsed.Status.Ambient.Eased)
	}
	if !parsed.Status.Ready {
		t.Error("expected Ready=true")
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if parsed.Status.MQTT.Connected != true {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.Rotates != 5 {
		t.Errorf("Counts.Rotates: got %d, want 5", parsed.Status.Counts.Rotates)
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONUnknownPhase(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 3, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Phase != "UNKNOWN" {
		t.Errorf("Phase: got %q, want UNKNOWN", parsed.Status.Phase)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Enabled:       true,
		Phase:         timeline.PhaseFalling,
		WakeOffset:    420,
		Primed:        true,
		Counts:        Counts{Rotates: 3},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 500, Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.Phase != "FALLING" {
		t.Errorf("Phase: got %q, want FALLING", parsed.Status.Phase)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Phase:     timeline.PhaseIdle,
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 3, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		Enabled:   true,
		StartTime: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 3, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.SetAlarm(true, timeline.PhaseRising, 420+i%10, color.RGBW{R: uint8(i)})
			tr.SetLevels(Channel{Raw: i}, Channel{}, true)
			tr.SetCounts(Counts{Rotates: i})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
