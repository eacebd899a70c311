package track

import "time"

type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

type Permission string

const (
	PermissionUndetermined Permission = "undetermined"
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
)

type Kind string

const (
	KindManual Kind = "manual"
	KindAuto   Kind = "auto"
	KindTest   Kind = "test"
)

// Sample is a single point-in-time location reading. Values are never
// mutated after creation.
type Sample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Speed     float64   `json:"speed,omitempty"`
	Heading   float64   `json:"heading,omitempty"`
}

// SentRecord is a sample that was successfully handed to the transport.
type SentRecord struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Sample Sample `json:"sample"`
}

type Stats struct {
	TotalSent      int       `json:"total_sent"`
	SessionStart   time.Time `json:"session_start"`
	LastSentAt     time.Time `json:"last_sent_at,omitempty"`
	AvgAccuracy    float64   `json:"avg_accuracy"`
	TotalDistanceM float64   `json:"total_distance_m"`
	Active         bool      `json:"active"`
}

// Snapshot is an immutable copy of the tracker state for the local API
// and the stream hub.
type Snapshot struct {
	Connection      ConnState    `json:"connection"`
	Permission      Permission   `json:"permission"`
	Tracking        bool         `json:"tracking"`
	IntervalSeconds int          `json:"interval_seconds"`
	Current         *Sample      `json:"current,omitempty"`
	Stats           Stats        `json:"stats"`
	History         []SentRecord `json:"history"`
}
