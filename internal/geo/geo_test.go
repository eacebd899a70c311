package geo

import (
	"math"
	"testing"
)

func TestHaversineM(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := HaversineM(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100000 || d > 140000 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineMZero(t *testing.T) {
	if d := HaversineM(10.0, -75.0, 10.0, -75.0); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}

func TestHaversineMSmallDelta(t *testing.T) {
	// 0.001 degrees of latitude is about 111.19 m on a 6371 km sphere.
	d := HaversineM(10.0, -75.0, 10.001, -75.0)
	if math.Abs(d-111.19) > 0.5 {
		t.Fatalf("unexpected small delta distance: %v", d)
	}
}
