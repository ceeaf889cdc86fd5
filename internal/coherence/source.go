package coherence

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"tourplan/internal/model"
)

// Source holds per-city POI research metadata loaded once from a YAML file
// and shared read-only across optimization calls.
type Source struct {
	mu     sync.RWMutex
	cities map[string]map[string]Metadata
}

// Metadata is the narrative description of one POI.
type Metadata struct {
	Period    string `yaml:"period"`
	BuildYear int    `yaml:"buildYear"`
	Category  string `yaml:"category"`
}

type metadataFile struct {
	Cities map[string]map[string]Metadata `yaml:"cities"`
}

// LoadSource reads the metadata reference file. An empty path yields an empty
// source, which enriches nothing.
func LoadSource(path string) (*Source, error) {
	s := &Source{cities: map[string]map[string]Metadata{}}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coherence: read metadata file: %w", err)
	}
	var f metadataFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("coherence: parse metadata file: %w", err)
	}
	if f.Cities != nil {
		s.cities = f.Cities
	}
	return s, nil
}

// Enrich returns a copy of the candidates with missing narrative fields filled
// from the reference data for the city. Fields already set on a POI win.
func (s *Source) Enrich(city string, pois []model.POI) []model.POI {
	s.mu.RLock()
	meta := s.cities[city]
	s.mu.RUnlock()
	out := make([]model.POI, len(pois))
	copy(out, pois)
	if meta == nil {
		return out
	}
	for i := range out {
		m, ok := meta[out[i].ID]
		if !ok {
			continue
		}
		if out[i].Period == "" {
			out[i].Period = m.Period
		}
		if out[i].BuildYear == 0 {
			out[i].BuildYear = m.BuildYear
		}
		if out[i].Category == "" {
			out[i].Category = m.Category
		}
	}
	return out
}
