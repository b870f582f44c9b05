// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"wakelight/internal/color"
	"wakelight/internal/timeline"
)

// Topic is the MQTT topic for alarm events.
const Topic = "home/wakelight/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/wakelight/system"

// EventType identifies an alarm event.
type EventType string

const (
	EventSunriseStart  EventType = "SUNRISE_START"
	EventWakeReached   EventType = "WAKE_REACHED"
	EventSunriseEnd    EventType = "SUNRISE_END"
	EventWakeTimeSet   EventType = "WAKE_TIME_SET"
	EventAlarmEnabled  EventType = "ALARM_ENABLED"
	EventAlarmDisabled EventType = "ALARM_DISABLED"
)

// Event is one alarm event: a sunrise phase boundary or a user action.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	WakeOffset int // minutes after midnight
	Enabled    bool
	Color      color.RGBW
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an alarm event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Alarm AlarmPayload `json:"alarm"`
}

// AlarmPayload contains the alarm event details.
type AlarmPayload struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	WakeTime   string `json:"wake_time"`
	WakeOffset int    `json:"wake_offset_min"`
	Enabled    bool   `json:"enabled"`
	Color      string `json:"color"`
	White      uint8  `json:"white"`
}

// FormatPayload creates the JSON payload for an alarm event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Alarm: AlarmPayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			WakeTime:   timeline.ClockString(event.WakeOffset),
			WakeOffset: event.WakeOffset,
			Enabled:    event.Enabled,
			Color:      event.Color.HexRGB(),
			White:      event.Color.W,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
