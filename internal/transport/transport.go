package transport

import (
	"time"

	"agent-fleettrack/internal/track"
)

// Payload is the wire shape of a sendLocation message.
type Payload struct {
	VehicleID string  `json:"vehicleId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
	Accuracy  float64 `json:"accuracy"`
	Speed     float64 `json:"speed"`
	Heading   float64 `json:"heading"`
}

func payloadFrom(vehicleID string, s track.Sample) Payload {
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Payload{
		VehicleID: vehicleID,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Timestamp: ts.UTC().Format(time.RFC3339),
		Accuracy:  s.Accuracy,
		Speed:     s.Speed,
		Heading:   s.Heading,
	}
}
