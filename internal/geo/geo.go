// Package geo computes great-circle distances and walking travel times
// between points of interest.
package geo

import (
	"math"

	"tourplan/internal/model"
)

const (
	// EarthRadiusKm is the spherical earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0
	// DefaultWalkSpeedKmh is assumed when a request carries no speed setting.
	DefaultWalkSpeedKmh = 4.0
)

// HaversineKm returns the great-circle distance in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// TravelHours converts a distance to walking time. Non-positive speeds fall
// back to DefaultWalkSpeedKmh.
func TravelHours(km, speedKmh float64) float64 {
	if speedKmh <= 0 {
		speedKmh = DefaultWalkSpeedKmh
	}
	return km / speedKmh
}

// Matrix holds pairwise distances over one candidate POI set. Built once per
// optimization call and read-only afterwards. Symmetric, zero diagonal.
type Matrix struct {
	ids   []string
	index map[string]int
	km    [][]float64
}

// BuildMatrix computes all pairwise haversine distances for the given POIs.
func BuildMatrix(pois []model.POI) *Matrix {
	n := len(pois)
	m := &Matrix{
		ids:   make([]string, n),
		index: make(map[string]int, n),
		km:    make([][]float64, n),
	}
	for i, p := range pois {
		m.ids[i] = p.ID
		m.index[p.ID] = i
		m.km[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := HaversineKm(pois[i].Lat, pois[i].Lng, pois[j].Lat, pois[j].Lng)
			m.km[i][j] = d
			m.km[j][i] = d
		}
	}
	return m
}

// Km returns the stored distance between two POI IDs. Unknown IDs yield 0.
func (m *Matrix) Km(a, b string) float64 {
	i, ok := m.index[a]
	if !ok {
		return 0
	}
	j, ok := m.index[b]
	if !ok {
		return 0
	}
	return m.km[i][j]
}

// Hours returns the walking time between two POI IDs at the given speed.
func (m *Matrix) Hours(a, b string, speedKmh float64) float64 {
	return TravelHours(m.Km(a, b), speedKmh)
}

// IDs returns the POI identities covered by the matrix, in input order.
func (m *Matrix) IDs() []string { return m.ids }
