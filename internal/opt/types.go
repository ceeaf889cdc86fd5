// Package opt contains the itinerary optimization core: the MIP schedule
// model, the solve driver, a heuristic fallback engine and the planner facade
// that orchestrates one optimization call end to end.
package opt

import (
	"strings"
	"time"

	"tourplan/internal/bundles"
	"tourplan/internal/coherence"
	"tourplan/internal/geo"
	"tourplan/internal/model"
)

// Status classifies the outcome of one solve.
type Status string

const (
	StatusOptimal          Status = "optimal"
	StatusFeasible         Status = "feasible"
	StatusInfeasible       Status = "infeasible"
	StatusInfeasibleBudget Status = "infeasible_within_budget"
	StatusError            Status = "error"
)

// Constraint families. Each can be disabled independently to diagnose which
// family makes a request infeasible; the routing structure itself (channeling,
// degree, path shape) is not a family and always holds.
const (
	FamilyCapacity     = "capacity"
	FamilyCompleteness = "completeness"
	FamilyHours        = "hours"
	FamilyBundles      = "bundles"
	FamilyPrecedence   = "precedence"
)

// Families lists every toggleable constraint family.
func Families() []string {
	return []string{FamilyCapacity, FamilyCompleteness, FamilyHours, FamilyBundles, FamilyPrecedence}
}

// KnownFamily reports whether name is a toggleable constraint family.
func KnownFamily(name string) bool {
	switch name {
	case FamilyCapacity, FamilyCompleteness, FamilyHours, FamilyBundles, FamilyPrecedence:
		return true
	}
	return false
}

// Solve strategies. Auto tries the exact solver first and falls back to the
// heuristic when the solver itself errors out.
const (
	StrategyMIP       = "mip"
	StrategyHeuristic = "heuristic"
	StrategyAuto      = "auto"
)

// KnownStrategy reports whether name is a selectable solve strategy.
func KnownStrategy(name string) bool {
	switch name {
	case StrategyMIP, StrategyHeuristic, StrategyAuto:
		return true
	}
	return false
}

// Objectives are the soft weights of the solve objective. All non-negative.
type Objectives struct {
	Coherence float64 // reward for coherence along chosen hops
	Priority  float64 // reward for including a POI, scaled by its tier
	Travel    float64 // penalty per walking hour
}

func DefaultObjectives() Objectives {
	return Objectives{Coherence: 1.0, Priority: 2.0, Travel: 0.5}
}

// Problem is one fully prepared optimization instance. All fields are private
// to the call; nothing here is shared between concurrent solves.
type Problem struct {
	POIs       []model.POI
	Dist       *geo.Matrix
	Coherence  *coherence.Scores
	Precedence []coherence.Edge
	Bundles    []bundles.Bundle

	Days           int
	DayBudgetHours float64
	WalkSpeedKmh   float64
	StartDate      time.Time // zero value: opening hours cannot be resolved
	BestEffort     bool      // permit dropping POIs instead of failing

	Disabled   map[string]bool // constraint families switched off
	Objectives Objectives
}

func (p Problem) enabled(family string) bool { return !p.Disabled[family] }

// Result is the uniform outcome contract of every strategy.
type Result struct {
	Status    Status
	Strategy  string
	Objective float64
	SolveTime time.Duration
	DayOf     map[string]int
	Routes    [][]string
	Dropped   []string
	Detail    string
}

// tierWeight maps a priority tier to its objective weight.
func tierWeight(priority string) float64 {
	switch strings.ToLower(priority) {
	case model.PriorityHigh:
		return 3
	case model.PriorityLow:
		return 1
	default:
		return 2
	}
}

// weekdayName returns the lowercase weekday of trip day d (0-based).
func weekdayName(start time.Time, day int) string {
	return strings.ToLower(start.AddDate(0, 0, day).Weekday().String())
}

// openOnDay reports whether the POI can absorb its full visit on trip day d.
// POIs without opening-hours data are always open; with data, a weekday that
// carries no window is closed, and windows shorter in total than the visit
// duration count as closed too. A zero start date leaves all days open, since
// no weekday can be resolved.
func openOnDay(p model.POI, start time.Time, day int) bool {
	if len(p.OpeningHours) == 0 || start.IsZero() {
		return true
	}
	windows, ok := p.OpeningHours[weekdayName(start, day)]
	if !ok || len(windows) == 0 {
		return false
	}
	total := 0.0
	for _, w := range windows {
		total += windowHours(w)
	}
	return total >= p.DurationHours
}

func windowHours(w model.TimeWindow) float64 {
	open, err1 := time.Parse("15:04", w.Open)
	close_, err2 := time.Parse("15:04", w.Close)
	if err1 != nil || err2 != nil || !close_.After(open) {
		return 0
	}
	return close_.Sub(open).Hours()
}

// openDays resolves the assignable-day mask for one POI.
func openDays(p model.POI, prob Problem) []bool {
	mask := make([]bool, prob.Days)
	for d := 0; d < prob.Days; d++ {
		mask[d] = !prob.enabled(FamilyHours) || openOnDay(p, prob.StartDate, d)
	}
	return mask
}
