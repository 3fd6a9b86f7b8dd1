package models

import (
	"iter"
	"time"
)

// Message type tags decoded from the MAVLink stream.
const (
	TypeHeartbeat     = "HEARTBEAT"
	TypeGPSRawInt     = "GPS_RAW_INT"
	TypeAttitude      = "ATTITUDE"
	TypeGlobalPosInt  = "GLOBAL_POSITION_INT"
	TypeRCChannels    = "RC_CHANNELS"
	TypeVFRHUD        = "VFR_HUD"
	TypeBatteryStatus = "BATTERY_STATUS"
	TypeStatusText    = "STATUSTEXT"
)

// TelemetryMessage is one decoded record from a flight log. Fields holds the
// per-type schema (numeric values as float64, text values as string).
type TelemetryMessage struct {
	Type      string         `json:"messageType"`
	Timestamp float64        `json:"timestamp"` // log-relative seconds, non-decreasing
	Fields    map[string]any `json:"fields"`
}

// Float returns a numeric field value, with ok=false when the field is
// absent or not numeric.
func (m TelemetryMessage) Float(name string) (float64, bool) {
	v, ok := m.Fields[name].(float64)
	return v, ok
}

// Text returns a string field value.
func (m TelemetryMessage) Text(name string) (string, bool) {
	v, ok := m.Fields[name].(string)
	return v, ok
}

// TimeRange is the recording span of a flight log in log-relative seconds.
type TimeRange struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// FlightLog is one parsed telemetry recording. It is immutable once built:
// nothing mutates Messages after Parse returns.
type FlightLog struct {
	ID         string             `json:"fileId"`
	Filename   string             `json:"filename"`
	Size       int64              `json:"size"`
	UploadedAt time.Time          `json:"uploadedAt"`
	Messages   []TelemetryMessage `json:"-"`
	TimeRange  TimeRange          `json:"timeRange"`
}

// MessageCount returns the total number of decoded messages.
func (f *FlightLog) MessageCount() int {
	return len(f.Messages)
}

// MessagesOfType yields the messages with an exact type-tag match, in
// original timestamp order. The sequence is restartable and does not copy.
func (f *FlightLog) MessagesOfType(msgType string) iter.Seq[TelemetryMessage] {
	return func(yield func(TelemetryMessage) bool) {
		for _, msg := range f.Messages {
			if msg.Type != msgType {
				continue
			}
			if !yield(msg) {
				return
			}
		}
	}
}

// TypesPresent returns the distinct type tags in first-seen order.
func (f *FlightLog) TypesPresent() []string {
	seen := make(map[string]bool)
	var types []string
	for _, msg := range f.Messages {
		if !seen[msg.Type] {
			seen[msg.Type] = true
			types = append(types, msg.Type)
		}
	}
	return types
}

// TelemetrySummary is the cheap aggregate view of one flight log.
type TelemetrySummary struct {
	FileID        string    `json:"fileId"`
	Filename      string    `json:"filename"`
	TotalMessages int       `json:"totalMessages"`
	MessageTypes  []string  `json:"messageTypes"`
	TimeRange     TimeRange `json:"timeRange"`
}
