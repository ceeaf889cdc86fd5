package geo

import (
	"math"
	"testing"

	"tourplan/internal/model"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Colosseum to St. Peter's Basilica, roughly 4.1 km apart.
	d := HaversineKm(41.8902, 12.4922, 41.9022, 12.4539)
	if d < 3.0 || d > 5.0 {
		t.Fatalf("implausible distance: %f km", d)
	}
}

func TestHaversineZeroAndSymmetry(t *testing.T) {
	if d := HaversineKm(41.9, 12.5, 41.9, 12.5); d != 0 {
		t.Fatalf("self distance: %f", d)
	}
	ab := HaversineKm(41.89, 12.49, 48.86, 2.35)
	ba := HaversineKm(48.86, 2.35, 41.89, 12.49)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("asymmetric: %f vs %f", ab, ba)
	}
}

func TestTravelHoursDefaultSpeed(t *testing.T) {
	if h := TravelHours(4.0, 0); h != 1.0 {
		t.Fatalf("default speed: got %f hours", h)
	}
	if h := TravelHours(6.0, 3.0); h != 2.0 {
		t.Fatalf("explicit speed: got %f hours", h)
	}
}

func TestMatrix(t *testing.T) {
	pois := []model.POI{
		{ID: "a", Lat: 41.8902, Lng: 12.4922},
		{ID: "b", Lat: 41.9022, Lng: 12.4539},
		{ID: "c", Lat: 41.8986, Lng: 12.4769},
	}
	m := BuildMatrix(pois)
	if m.Km("a", "a") != 0 {
		t.Fatalf("diagonal not zero")
	}
	if math.Abs(m.Km("a", "b")-m.Km("b", "a")) > 1e-12 {
		t.Fatalf("matrix not symmetric")
	}
	if m.Km("a", "b") <= 0 {
		t.Fatalf("expected positive distance")
	}
	if m.Km("a", "zzz") != 0 {
		t.Fatalf("unknown id should be 0")
	}
	if got := len(m.IDs()); got != 3 {
		t.Fatalf("ids: %d", got)
	}
}
