package track

import "agent-fleettrack/internal/geo"

func distanceM(a, b Sample) float64 {
	return geo.HaversineM(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}
