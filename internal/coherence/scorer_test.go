package coherence

import (
	"testing"

	"tourplan/internal/model"
)

func TestScoreComponents(t *testing.T) {
	w := DefaultWeights()
	older := model.POI{ID: "forum", Period: "Imperial Rome", BuildYear: 100}
	newer := model.POI{ID: "basilica", Period: "Imperial Rome", BuildYear: 300}

	fwd := Score(older, newer, w)
	// Chronology + same period + proximity (200y gap of 500y horizon).
	want := w.Chronology + w.SamePeriod + w.DateProximity*(1-200.0/500.0)
	if diff := fwd - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("forward score %f, want %f", fwd, want)
	}

	back := Score(newer, older, w)
	if back >= fwd {
		t.Fatalf("reverse should miss the chronology bonus: %f >= %f", back, fwd)
	}
}

func TestScoreCappedAtOne(t *testing.T) {
	w := Weights{Chronology: 0.8, SamePeriod: 0.8, DateProximity: 0.8, ProximityHorizonYears: 500}
	a := model.POI{ID: "a", Period: "p", BuildYear: 100}
	b := model.POI{ID: "b", Period: "p", BuildYear: 100}
	if s := Score(a, b, w); s != 1.0 {
		t.Fatalf("score not capped: %f", s)
	}
}

func TestScoreUnknownDates(t *testing.T) {
	w := DefaultWeights()
	a := model.POI{ID: "a", Period: "baroque"}
	b := model.POI{ID: "b", Period: "baroque", BuildYear: 1650}
	if s := Score(a, b, w); s != w.SamePeriod {
		t.Fatalf("unknown build year must skip date components: %f", s)
	}
}

func TestScoreDeterministic(t *testing.T) {
	w := DefaultWeights()
	a := model.POI{ID: "a", Period: "gothic", BuildYear: 1220, Category: "cathedral"}
	b := model.POI{ID: "b", Period: "gothic", BuildYear: 1350, Category: "cathedral"}
	first := Score(a, b, w)
	for i := 0; i < 10; i++ {
		if got := Score(a, b, w); got != first {
			t.Fatalf("score not deterministic: %f vs %f", got, first)
		}
	}
}

func TestBuildScoresSkipsSelfPairs(t *testing.T) {
	pois := []model.POI{
		{ID: "a", BuildYear: 100},
		{ID: "b", BuildYear: 200},
	}
	s := BuildScores(pois, DefaultWeights())
	if s.Get("a", "a") != 0 {
		t.Fatalf("self pair must be zero")
	}
	if s.Get("a", "b") <= 0 {
		t.Fatalf("expected positive score")
	}
}
