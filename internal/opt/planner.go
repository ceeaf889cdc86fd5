package opt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tourplan/internal/bundles"
	"tourplan/internal/coherence"
	"tourplan/internal/geo"
	"tourplan/internal/model"
)

// Solve time budget bounds. Requests may tighten the budget but never exceed
// the cap; a solve always returns by its budget with the best result so far.
const (
	DefaultTimeBudget = 10 * time.Second
	MaxTimeBudget     = 2 * time.Minute
)

// DefaultPaceHours is the day budget per pace setting.
func DefaultPaceHours() map[string]float64 {
	return map[string]float64{"relaxed": 6.0, "normal": 7.5, "packed": 9.0}
}

// DefaultToleranceFactors scales the day budget down for visitors who want
// less walking.
func DefaultToleranceFactors() map[string]float64 {
	return map[string]float64{"low": 0.8, "medium": 0.9, "high": 1.0}
}

// Planner is the optimization facade: it owns the reference data and tuning
// defaults and turns one PlanRequest into one Itinerary. Safe for concurrent
// use; every call builds its own private problem instance, and the tuning
// fields are guarded against concurrent Configure calls.
type Planner struct {
	Bundles  *bundles.Source
	Metadata *coherence.Source

	mu sync.RWMutex

	PaceHours        map[string]float64
	ToleranceFactors map[string]float64
	WalkSpeedKmh     float64
	Threshold        float64
	Weights          coherence.Weights
	Objectives       Objectives
}

// NewPlanner returns a planner with default tuning over the given reference
// data. Either source may be nil.
func NewPlanner(b *bundles.Source, meta *coherence.Source) *Planner {
	return &Planner{
		Bundles:          b,
		Metadata:         meta,
		PaceHours:        DefaultPaceHours(),
		ToleranceFactors: DefaultToleranceFactors(),
		WalkSpeedKmh:     geo.DefaultWalkSpeedKmh,
		Threshold:        coherence.DefaultThreshold,
		Weights:          coherence.DefaultWeights(),
		Objectives:       DefaultObjectives(),
	}
}

// Config snapshots the current tuning for the config endpoint.
func (pl *Planner) Config() model.PlannerConfig {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return model.PlannerConfig{
		PaceHours:          copyMap(pl.PaceHours),
		ToleranceFactors:   copyMap(pl.ToleranceFactors),
		WalkSpeedKmh:       pl.WalkSpeedKmh,
		CoherenceThreshold: pl.Threshold,
		CoherenceWeights: map[string]float64{
			"chronology":    pl.Weights.Chronology,
			"samePeriod":    pl.Weights.SamePeriod,
			"dateProximity": pl.Weights.DateProximity,
			"sameCategory":  pl.Weights.SameCategory,
		},
		Objectives: map[string]float64{
			"coherence": pl.Objectives.Coherence,
			"priority":  pl.Objectives.Priority,
			"travel":    pl.Objectives.Travel,
		},
	}
}

// Configure applies stored overrides on top of the current tuning. Zero or
// absent fields keep their value.
func (pl *Planner) Configure(cfg model.PlannerConfig) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for pace, h := range cfg.PaceHours {
		if h > 0 {
			pl.PaceHours[pace] = h
		}
	}
	for tol, f := range cfg.ToleranceFactors {
		if f > 0 && f <= 1 {
			pl.ToleranceFactors[tol] = f
		}
	}
	if cfg.WalkSpeedKmh > 0 {
		pl.WalkSpeedKmh = cfg.WalkSpeedKmh
	}
	if cfg.CoherenceThreshold > 0 && cfg.CoherenceThreshold <= 1 {
		pl.Threshold = cfg.CoherenceThreshold
	}
	if w, ok := cfg.CoherenceWeights["chronology"]; ok {
		pl.Weights.Chronology = w
	}
	if w, ok := cfg.CoherenceWeights["samePeriod"]; ok {
		pl.Weights.SamePeriod = w
	}
	if w, ok := cfg.CoherenceWeights["dateProximity"]; ok {
		pl.Weights.DateProximity = w
	}
	if w, ok := cfg.CoherenceWeights["sameCategory"]; ok {
		pl.Weights.SameCategory = w
	}
	if w, ok := cfg.Objectives["coherence"]; ok && w >= 0 {
		pl.Objectives.Coherence = w
	}
	if w, ok := cfg.Objectives["priority"]; ok && w >= 0 {
		pl.Objectives.Priority = w
	}
	if w, ok := cfg.Objectives["travel"]; ok && w >= 0 {
		pl.Objectives.Travel = w
	}
}

func copyMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ValidateRequest rejects malformed input before any model is built. Bundle
// or precedence references to absent POIs are not errors; they are ignored
// downstream.
func ValidateRequest(req model.PlanRequest) error {
	if req.Days < 1 {
		return fmt.Errorf("days must be at least 1")
	}
	if len(req.POIs) == 0 {
		return fmt.Errorf("pois must not be empty")
	}
	seen := make(map[string]bool, len(req.POIs))
	for i, poi := range req.POIs {
		if poi.ID == "" {
			return fmt.Errorf("pois[%d]: id is required", i)
		}
		if seen[poi.ID] {
			return fmt.Errorf("pois[%d]: duplicate id %q", i, poi.ID)
		}
		seen[poi.ID] = true
		if poi.DurationHours <= 0 {
			return fmt.Errorf("poi %q: durationHours must be positive", poi.ID)
		}
		if poi.Lat < -90 || poi.Lat > 90 || poi.Lng < -180 || poi.Lng > 180 {
			return fmt.Errorf("poi %q: coordinates out of range", poi.ID)
		}
	}
	if req.Pace != "" {
		if _, ok := DefaultPaceHours()[req.Pace]; !ok {
			return fmt.Errorf("unknown pace %q", req.Pace)
		}
	}
	if req.WalkingTolerance != "" {
		if _, ok := DefaultToleranceFactors()[req.WalkingTolerance]; !ok {
			return fmt.Errorf("unknown walkingTolerance %q", req.WalkingTolerance)
		}
	}
	if req.Strategy != "" && !KnownStrategy(req.Strategy) {
		return fmt.Errorf("unknown strategy %q", req.Strategy)
	}
	if req.StartDate != "" {
		if _, err := time.Parse("2006-01-02", req.StartDate); err != nil {
			return fmt.Errorf("startDate: %w", err)
		}
	}
	if req.CoherenceThreshold < 0 || req.CoherenceThreshold > 1 {
		return fmt.Errorf("coherenceThreshold must be within [0,1]")
	}
	for name, w := range req.Objectives {
		switch name {
		case "coherence", "priority", "travel":
		default:
			return fmt.Errorf("unknown objective %q", name)
		}
		if w < 0 {
			return fmt.Errorf("objective %q must be non-negative", name)
		}
	}
	for _, fam := range req.DisableConstraints {
		if !KnownFamily(fam) {
			return fmt.Errorf("unknown constraint family %q", fam)
		}
	}
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be non-negative")
	}
	return nil
}

// Plan runs one optimization call end to end: enrich, resolve bundles, build
// matrices, derive precedence, prove or solve, and shape the itinerary. An
// error means malformed input or a broken precedence derivation; solver
// outcomes, including infeasibility, come back inside the itinerary.
func (pl *Planner) Plan(ctx context.Context, req model.PlanRequest) (model.Itinerary, error) {
	if err := ValidateRequest(req); err != nil {
		return model.Itinerary{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Itinerary{}, err
	}

	pois := req.POIs
	if pl.Metadata != nil {
		pois = pl.Metadata.Enrich(req.City, pois)
	}
	var active []bundles.Bundle
	if pl.Bundles != nil {
		pois, active = pl.Bundles.Resolve(req.City, pois)
	}

	pl.mu.RLock()
	threshold := pl.Threshold
	weights := pl.Weights
	walkSpeed := pl.WalkSpeedKmh
	pl.mu.RUnlock()
	if req.CoherenceThreshold > 0 {
		threshold = req.CoherenceThreshold
	}
	scores := coherence.BuildScores(pois, weights)
	edges, err := coherence.DeriveEdges(scores, threshold)
	if err != nil {
		return model.Itinerary{}, fmt.Errorf("derive precedence: %w", err)
	}

	prob := Problem{
		POIs:           pois,
		Dist:           geo.BuildMatrix(pois),
		Coherence:      scores,
		Precedence:     edges,
		Bundles:        active,
		Days:           req.Days,
		DayBudgetHours: pl.dayBudget(req),
		WalkSpeedKmh:   walkSpeed,
		BestEffort:     req.BestEffort,
		Disabled:       disabledSet(req.DisableConstraints),
		Objectives:     pl.objectives(req),
	}
	if req.StartDate != "" {
		prob.StartDate, _ = time.Parse("2006-01-02", req.StartDate)
	}

	res := pl.solve(prob, req.Strategy, timeBudget(req))
	return buildItinerary(req, prob, res), nil
}

func (pl *Planner) dayBudget(req model.PlanRequest) float64 {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	pace := req.Pace
	if pace == "" {
		pace = "normal"
	}
	budget := pl.PaceHours[pace]
	if req.WalkingTolerance != "" {
		budget *= pl.ToleranceFactors[req.WalkingTolerance]
	}
	return budget
}

func (pl *Planner) objectives(req model.PlanRequest) Objectives {
	pl.mu.RLock()
	obj := pl.Objectives
	pl.mu.RUnlock()
	if w, ok := req.Objectives["coherence"]; ok {
		obj.Coherence = w
	}
	if w, ok := req.Objectives["priority"]; ok {
		obj.Priority = w
	}
	if w, ok := req.Objectives["travel"]; ok {
		obj.Travel = w
	}
	return obj
}

func timeBudget(req model.PlanRequest) time.Duration {
	limit := DefaultTimeBudget
	if req.TimeBudgetMs > 0 {
		limit = time.Duration(req.TimeBudgetMs) * time.Millisecond
	}
	if limit > MaxTimeBudget {
		limit = MaxTimeBudget
	}
	return limit
}

func disabledSet(families []string) map[string]bool {
	if len(families) == 0 {
		return nil
	}
	out := make(map[string]bool, len(families))
	for _, fam := range families {
		out[fam] = true
	}
	return out
}

// solve dispatches the requested strategy. Proven infeasibility short
// circuits every strategy; auto retries with the heuristic when the exact
// solver itself fails.
func (pl *Planner) solve(prob Problem, strategy string, limit time.Duration) Result {
	if detail, proven := proveInfeasible(prob); proven {
		return Result{Status: StatusInfeasible, Strategy: "presolve", Detail: detail}
	}
	switch strategy {
	case StrategyHeuristic:
		return solveHeuristic(prob, limit)
	case StrategyMIP:
		return solveMIP(prob, limit)
	default:
		res := solveMIP(prob, limit)
		if res.Status == StatusError {
			fallback := solveHeuristic(prob, limit)
			if fallback.Detail == "" {
				fallback.Detail = "exact solve failed: " + res.Detail
			}
			return fallback
		}
		return res
	}
}

// buildItinerary shapes a solver result into the externally visible plan.
// Days are 1-based on the wire.
func buildItinerary(req model.PlanRequest, prob Problem, res Result) model.Itinerary {
	it := model.Itinerary{
		City:   req.City,
		Days:   req.Days,
		Status: string(res.Status),
		Outcome: model.Outcome{
			Status:    string(res.Status),
			Strategy:  res.Strategy,
			SolveMs:   res.SolveTime.Milliseconds(),
			Objective: res.Objective,
			Detail:    res.Detail,
		},
		Dropped:   res.Dropped,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if res.Status != StatusOptimal && res.Status != StatusFeasible {
		return it
	}
	durations := make(map[string]float64, len(prob.POIs))
	for _, poi := range prob.POIs {
		durations[poi.ID] = poi.DurationHours
	}
	it.DayOf = make(map[string]int, len(res.DayOf))
	for id, d := range res.DayOf {
		it.DayOf[id] = d + 1
	}
	for d, route := range res.Routes {
		day := model.DayRoute{Day: d + 1, POIs: route}
		for _, id := range route {
			day.VisitHours += durations[id]
		}
		day.TravelHours = routeTravelHours(prob, route)
		it.Routes = append(it.Routes, day)
	}
	return it
}
