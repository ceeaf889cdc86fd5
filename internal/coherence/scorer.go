// Package coherence scores how well one POI narratively follows another and
// derives an acyclic "visit A before B" preference set from those scores.
package coherence

import (
	"math"

	"tourplan/internal/model"
)

// DefaultThreshold is the minimum score for a pair to yield a precedence edge.
const DefaultThreshold = 0.7

// Weights controls the scoring components. Each component contributes at most
// its weight; the total is capped at 1.0.
type Weights struct {
	Chronology    float64 `json:"chronology"`    // A built no later than B
	SamePeriod    float64 `json:"samePeriod"`    // identical historical period
	DateProximity float64 `json:"dateProximity"` // build dates close together
	SameCategory  float64 `json:"sameCategory"`  // identical descriptive category

	// ProximityHorizonYears is the build-date gap at which the proximity
	// component reaches zero.
	ProximityHorizonYears float64 `json:"proximityHorizonYears"`
}

func DefaultWeights() Weights {
	return Weights{
		Chronology:            0.40,
		SamePeriod:            0.35,
		DateProximity:         0.25,
		SameCategory:          0,
		ProximityHorizonYears: 500,
	}
}

// Score rates visiting b sometime after a, in [0,1]. Pure: identical inputs
// always produce identical scores. The score is directional only through the
// chronology component; period and date similarity are symmetric, so
// Score(a,b) often equals Score(b,a). Downstream consumers must tolerate that.
func Score(a, b model.POI, w Weights) float64 {
	s := 0.0
	if a.BuildYear != 0 && b.BuildYear != 0 {
		if a.BuildYear <= b.BuildYear {
			s += w.Chronology
		}
		horizon := w.ProximityHorizonYears
		if horizon <= 0 {
			horizon = DefaultWeights().ProximityHorizonYears
		}
		gap := math.Abs(float64(a.BuildYear - b.BuildYear))
		if gap < horizon {
			s += w.DateProximity * (1 - gap/horizon)
		}
	}
	if a.Period != "" && a.Period == b.Period {
		s += w.SamePeriod
	}
	if a.Category != "" && a.Category == b.Category {
		s += w.SameCategory
	}
	if s > 1 {
		s = 1
	}
	return s
}

// Scores is the directional coherence matrix over one candidate set.
// Self-pairs are absent. Not guaranteed symmetric nor anti-symmetric.
type Scores struct {
	ids    []string
	scores map[string]map[string]float64
}

// BuildScores evaluates every ordered pair of distinct POIs.
func BuildScores(pois []model.POI, w Weights) *Scores {
	s := &Scores{
		ids:    make([]string, 0, len(pois)),
		scores: make(map[string]map[string]float64, len(pois)),
	}
	for _, p := range pois {
		s.ids = append(s.ids, p.ID)
		s.scores[p.ID] = make(map[string]float64, len(pois)-1)
	}
	for _, a := range pois {
		for _, b := range pois {
			if a.ID == b.ID {
				continue
			}
			s.scores[a.ID][b.ID] = Score(a, b, w)
		}
	}
	return s
}

// ScoresFromMap wraps an externally supplied coherence matrix. Self pairs in
// the input are ignored.
func ScoresFromMap(ids []string, m map[string]map[string]float64) *Scores {
	s := &Scores{ids: ids, scores: make(map[string]map[string]float64, len(ids))}
	for _, id := range ids {
		s.scores[id] = make(map[string]float64)
	}
	for a, row := range m {
		for b, v := range row {
			if a == b {
				continue
			}
			if _, ok := s.scores[a]; ok {
				s.scores[a][b] = v
			}
		}
	}
	return s
}

// Get returns the score for the ordered pair (a,b); 0 for unknown or self pairs.
func (s *Scores) Get(a, b string) float64 {
	if a == b {
		return 0
	}
	return s.scores[a][b]
}

// IDs returns the covered POI identities in input order.
func (s *Scores) IDs() []string { return s.ids }
