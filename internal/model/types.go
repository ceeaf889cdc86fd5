package model

// Core domain types shared by the planner, the store and the API layer.

// Priority tiers. Used as soft objective weights, never as hard constraints.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// TimeWindow is one opening interval within a day, "15:04" wall-clock strings.
type TimeWindow struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// POI is one candidate point of interest, supplied by the upstream selector.
// Immutable for the duration of one optimization call.
type POI struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name,omitempty"`
	Lat           float64                 `json:"lat"`
	Lng           float64                 `json:"lng"`
	DurationHours float64                 `json:"durationHours"`
	Priority      string                  `json:"priority,omitempty"`     // high, medium, low
	OpeningHours  map[string][]TimeWindow `json:"openingHours,omitempty"` // weekday name -> windows
	Bundles       []string                `json:"bundles,omitempty"`      // filled by the bundle resolver

	// Narrative metadata, filled from the metadata source when absent.
	Period    string `json:"period,omitempty"`
	BuildYear int    `json:"buildYear,omitempty"` // negative for BCE
	Category  string `json:"category,omitempty"`
}

// PlanRequest is the body of POST /v1/plans.
type PlanRequest struct {
	City               string             `json:"city"`
	Days               int                `json:"days"`
	Pace               string             `json:"pace,omitempty"`             // relaxed, normal, packed
	WalkingTolerance   string             `json:"walkingTolerance,omitempty"` // low, medium, high
	StartDate          string             `json:"startDate,omitempty"`        // YYYY-MM-DD
	Strategy           string             `json:"strategy,omitempty"`         // mip, heuristic, auto
	BestEffort         bool               `json:"bestEffort,omitempty"`
	TimeBudgetMs       int                `json:"timeBudgetMs,omitempty"`
	CoherenceThreshold float64            `json:"coherenceThreshold,omitempty"`
	Objectives         map[string]float64 `json:"objectives,omitempty"`
	DisableConstraints []string           `json:"disableConstraints,omitempty"`
	POIs               []POI              `json:"pois"`
}

// DayRoute is the ordered visit sequence for one trip day.
type DayRoute struct {
	Day         int      `json:"day"`
	POIs        []string `json:"pois"`
	VisitHours  float64  `json:"visitHours"`
	TravelHours float64  `json:"travelHours"`
}

// Outcome records how the solve went, independent of which strategy ran.
type Outcome struct {
	Status    string  `json:"status"` // optimal, feasible, infeasible, infeasible_within_budget, error
	Strategy  string  `json:"strategy,omitempty"`
	SolveMs   int64   `json:"solveMs"`
	Objective float64 `json:"objective,omitempty"`
	Detail    string  `json:"detail,omitempty"`
}

// Itinerary is the persisted result of one optimization call.
type Itinerary struct {
	ID        string         `json:"id"`
	City      string         `json:"city"`
	Days      int            `json:"days"`
	Status    string         `json:"status"`
	Routes    []DayRoute     `json:"routes,omitempty"`
	DayOf     map[string]int `json:"dayOf,omitempty"`
	Dropped   []string       `json:"dropped,omitempty"`
	Outcome   Outcome        `json:"outcome"`
	CreatedAt string         `json:"createdAt"`
}

// PlannerConfig holds the tunable planner defaults served and updated via
// the config endpoint and persisted in the store.
type PlannerConfig struct {
	PaceHours          map[string]float64 `json:"paceHours,omitempty"`        // pace -> hours per day
	ToleranceFactors   map[string]float64 `json:"toleranceFactors,omitempty"` // tolerance -> budget factor
	WalkSpeedKmh       float64            `json:"walkSpeedKmh,omitempty"`
	CoherenceThreshold float64            `json:"coherenceThreshold,omitempty"`
	CoherenceWeights   map[string]float64 `json:"coherenceWeights,omitempty"`
	Objectives         map[string]float64 `json:"objectives,omitempty"`
}

// SubscriptionRequest registers a webhook endpoint for plan events.
type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}
