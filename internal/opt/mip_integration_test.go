package opt

import (
	"os"
	"testing"
	"time"

	"tourplan/internal/bundles"
	"tourplan/internal/coherence"
	"tourplan/internal/model"
)

// Exercises the real solver binary, which the nextmv SDK fetches at runtime.

func requireSolver(t *testing.T) {
	t.Helper()
	if os.Getenv("MIP_SOLVER_TEST") == "" {
		t.Skip("MIP_SOLVER_TEST not set; skipping solver integration test")
	}
}

func TestMIPBundleOneDayOptimal(t *testing.T) {
	requireSolver(t)
	pois := []model.POI{
		{ID: "colosseum", Lat: 41.8902, Lng: 12.4922, DurationHours: 2},
		{ID: "forum", Lat: 41.8925, Lng: 12.4853, DurationHours: 2},
		{ID: "palatine", Lat: 41.8894, Lng: 12.4875, DurationHours: 1.5},
	}
	p := testProblem(pois, 2, 7.5)
	p.Bundles = []bundles.Bundle{{Name: "forum-pass", Members: []string{"colosseum", "forum", "palatine"}}}

	res := solveMIP(p, 30*time.Second)
	if res.Status != StatusOptimal && res.Status != StatusFeasible {
		t.Fatalf("status = %s (%s)", res.Status, res.Detail)
	}
	day := res.DayOf["colosseum"]
	for id, d := range res.DayOf {
		if d != day {
			t.Fatalf("bundle split: %s on %d, colosseum on %d", id, d, day)
		}
	}
	if len(res.Dropped) != 0 {
		t.Fatalf("dropped = %v", res.Dropped)
	}
}

func TestMIPInfeasibleWithoutProof(t *testing.T) {
	requireSolver(t)
	// Opening hours shut out one POI only in combination with precedence,
	// which the cheap presolve proofs cannot see.
	pois := []model.POI{
		{ID: "a", Lat: 41.89, Lng: 12.49, DurationHours: 3},
		{ID: "b", Lat: 41.90, Lng: 12.49, DurationHours: 3,
			OpeningHours: map[string][]model.TimeWindow{"monday": {{Open: "09:00", Close: "18:00"}}}},
	}
	p := testProblem(pois, 2, 4)
	p.StartDate = time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC) // Monday start
	p.Precedence = []coherence.Edge{{From: "a", To: "b", Score: 0.9}}

	res := solveMIP(p, 30*time.Second)
	if res.Status != StatusInfeasible {
		t.Fatalf("status = %s (%s)", res.Status, res.Detail)
	}
}

func TestMIPPrecedenceAcrossDays(t *testing.T) {
	requireSolver(t)
	pois := []model.POI{
		{ID: "first", Lat: 41.89, Lng: 12.49, DurationHours: 4},
		{ID: "second", Lat: 41.95, Lng: 12.49, DurationHours: 4},
	}
	p := testProblem(pois, 2, 7.5)
	p.Precedence = []coherence.Edge{{From: "first", To: "second", Score: 0.9}}

	res := solveMIP(p, 30*time.Second)
	if res.Status != StatusOptimal && res.Status != StatusFeasible {
		t.Fatalf("status = %s (%s)", res.Status, res.Detail)
	}
	if res.DayOf["first"] > res.DayOf["second"] {
		t.Fatalf("precedence violated: %v", res.DayOf)
	}
}
