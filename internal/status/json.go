package status

import (
	"encoding/json"
	"math"
	"time"

	"wakelight/internal/timeline"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Enabled       bool         `json:"enabled"`
	Phase         string       `json:"phase"`
	WakeTime      string       `json:"wake_time"`
	WakeOffsetMin int          `json:"wake_offset_min"`
	Color         ColorJSON    `json:"color"`
	Ambient       ChannelJSON  `json:"ambient"`
	Cumulative    ChannelJSON  `json:"cumulative"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ColorJSON is the JSON representation of the current lamp color.
type ColorJSON struct {
	R   uint8  `json:"r"`
	G   uint8  `json:"g"`
	B   uint8  `json:"b"`
	W   uint8  `json:"w"`
	Hex string `json:"hex"`
}

// ChannelJSON is the JSON representation of a filtered sensor channel.
type ChannelJSON struct {
	Raw    int     `json:"raw"`
	Target float64 `json:"target"`
	Eased  float64 `json:"eased"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity tallies.
type CountsJSON struct {
	Rotates  int `json:"rotates"`
	Presses  int `json:"presses"`
	Sunrises int `json:"sunrises"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	PaintMs     int64  `json:"paint_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	phase := string(snap.Phase)
	if phase == "" {
		phase = "UNKNOWN"
	}

	return StatusInner{
		Enabled:       snap.Enabled,
		Phase:         phase,
		WakeTime:      timeline.ClockString(snap.WakeOffset),
		WakeOffsetMin: snap.WakeOffset,
		Color: ColorJSON{
			R:   snap.Color.R,
			G:   snap.Color.G,
			B:   snap.Color.B,
			W:   snap.Color.W,
			Hex: snap.Color.HexRGB(),
		},
		Ambient:       channelJSON(snap.Ambient),
		Cumulative:    channelJSON(snap.Cumulative),
		Ready:         snap.Primed,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Rotates:  snap.Counts.Rotates,
			Presses:  snap.Counts.Presses,
			Sunrises: snap.Counts.Sunrises,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			PaintMs:     snap.Config.PaintMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
		},
	}
}

// channelJSON rounds levels to three decimals so payloads stay readable.
func channelJSON(c Channel) ChannelJSON {
	return ChannelJSON{
		Raw:    c.Raw,
		Target: math.Round(c.Target*1000) / 1000,
		Eased:  math.Round(c.Eased*1000) / 1000,
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
