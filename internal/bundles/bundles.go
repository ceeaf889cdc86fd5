// Package bundles loads ticket-bundle reference data and annotates candidate
// POIs with the bundles they belong to. A bundle groups POIs whose admission
// ticket requires visiting all of them on the same day.
package bundles

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"tourplan/internal/model"
)

// Bundle is a named group of POIs that must share a day when co-scheduled.
type Bundle struct {
	Name    string   `yaml:"name" json:"name"`
	Members []string `yaml:"members" json:"members"`
}

// Source holds per-city bundle definitions, loaded once and shared read-only
// across optimization calls.
type Source struct {
	mu     sync.RWMutex
	cities map[string][]Bundle
}

type bundleFile struct {
	Cities map[string][]Bundle `yaml:"cities"`
}

// Load reads the bundle reference file. An empty path yields an empty source.
func Load(path string) (*Source, error) {
	s := &Source{cities: map[string][]Bundle{}}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundles: read file: %w", err)
	}
	var f bundleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("bundles: parse file: %w", err)
	}
	for city, bs := range f.Cities {
		for i, b := range bs {
			if b.Name == "" {
				return nil, fmt.Errorf("bundles: city %s: bundle %d has no name", city, i)
			}
			if len(b.Members) < 2 {
				return nil, fmt.Errorf("bundles: city %s: bundle %s needs at least 2 members", city, b.Name)
			}
		}
	}
	if f.Cities != nil {
		s.cities = f.Cities
	}
	return s, nil
}

// City returns the bundle definitions for a city, nil when none exist.
func (s *Source) City(city string) []Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cities[city]
}

// Resolve annotates a copy of the candidates with the bundles they belong to
// and returns the bundles that are active for this candidate set. A bundle
// with fewer than two members present imposes no constraint and is dropped;
// members absent from the candidate set are ignored, never an error.
func (s *Source) Resolve(city string, pois []model.POI) ([]model.POI, []Bundle) {
	out := make([]model.POI, len(pois))
	copy(out, pois)
	present := make(map[string]int, len(out))
	for i, p := range out {
		present[p.ID] = i
	}
	var active []Bundle
	for _, b := range s.City(city) {
		var members []string
		for _, id := range b.Members {
			if _, ok := present[id]; ok {
				members = append(members, id)
			}
		}
		if len(members) < 2 {
			continue
		}
		active = append(active, Bundle{Name: b.Name, Members: members})
		for _, id := range members {
			i := present[id]
			out[i].Bundles = append(append([]string(nil), out[i].Bundles...), b.Name)
		}
	}
	return out, active
}
