package opt

import (
	"sort"
	"time"

	"tourplan/internal/coherence"
	"tourplan/internal/model"
)

// dayState tracks one day's route while the greedy construction runs.
type dayState struct {
	order       []string
	visitHours  float64
	travelHours float64
}

// solveHeuristic is the constructive fallback: place POIs day by day in a
// precedence-respecting order, then shorten each day's walk with 2-opt passes
// that never reorder across a precedence edge. It produces feasible schedules
// quickly but cannot prove infeasibility, so a strict instance it fails to
// complete is reported as infeasible_within_budget rather than infeasible.
func solveHeuristic(p Problem, limit time.Duration) Result {
	start := time.Now()
	deadline := start.Add(limit)
	res := Result{Strategy: StrategyHeuristic}

	order, err := visitOrder(p)
	if err != nil {
		res.Status = StatusError
		res.Detail = "precedence order: " + err.Error()
		res.SolveTime = time.Since(start)
		return res
	}

	pois := make(map[string]model.POI, len(p.POIs))
	for _, poi := range p.POIs {
		pois[poi.ID] = poi
	}
	preds := predecessors(p)
	bundleOf := bundleIndex(p)

	days := make([]dayState, p.Days)
	dayOf := make(map[string]int)
	var dropped []string

	for _, id := range order {
		poi := pois[id]
		d, ok := placementDay(p, poi, days, dayOf, preds[id], bundleOf[id])
		if !ok {
			dropped = append(dropped, id)
			continue
		}
		tt := 0.0
		if last := lastOf(days[d].order); last != "" {
			tt = p.Dist.Hours(last, id, p.WalkSpeedKmh)
		}
		days[d].order = append(days[d].order, id)
		days[d].visitHours += poi.DurationHours
		days[d].travelHours += tt
		dayOf[id] = d
	}

	for d := range days {
		improveDay(p, &days[d], deadline)
	}

	res.SolveTime = time.Since(start)
	res.DayOf = dayOf
	res.Routes = make([][]string, p.Days)
	for d := range days {
		res.Routes[d] = days[d].order
	}
	sort.Strings(dropped)
	res.Dropped = dropped
	res.Objective = scheduleObjective(p, res.Routes, dayOf)

	if len(dropped) > 0 && p.enabled(FamilyCompleteness) && !p.BestEffort {
		res.Status = StatusInfeasibleBudget
		res.Detail = "could not place every point of interest"
		return res
	}
	res.Status = StatusFeasible
	return res
}

// visitOrder yields the construction order: a topological order of the
// precedence graph when that family is active, otherwise priority tiers with
// ID as the tie break.
func visitOrder(p Problem) ([]string, error) {
	ids := make([]string, 0, len(p.POIs))
	for _, poi := range p.POIs {
		ids = append(ids, poi.ID)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := tierWeight(poiByID(p, ids[i]).Priority), tierWeight(poiByID(p, ids[j]).Priority)
		if ti != tj {
			return ti > tj
		}
		return ids[i] < ids[j]
	})
	if !p.enabled(FamilyPrecedence) || len(p.Precedence) == 0 {
		return ids, nil
	}
	return coherence.TopoOrder(ids, p.Precedence)
}

func poiByID(p Problem, id string) model.POI {
	for _, poi := range p.POIs {
		if poi.ID == id {
			return poi
		}
	}
	return model.POI{}
}

// predecessors maps each POI to the POIs that must come before it.
func predecessors(p Problem) map[string][]string {
	m := make(map[string][]string)
	if !p.enabled(FamilyPrecedence) {
		return m
	}
	for _, e := range p.Precedence {
		m[e.To] = append(m[e.To], e.From)
	}
	return m
}

// bundleIndex maps each POI to its bundle's member list.
func bundleIndex(p Problem) map[string][]string {
	m := make(map[string][]string)
	if !p.enabled(FamilyBundles) {
		return m
	}
	for _, b := range p.Bundles {
		for _, id := range b.Members {
			m[id] = b.Members
		}
	}
	return m
}

// placementDay picks the earliest day that satisfies every active family for
// appending poi to that day's route. The boolean is false when no day fits.
func placementDay(p Problem, poi model.POI, days []dayState, dayOf map[string]int, preds, bundle []string) (int, bool) {
	earliest := 0
	for _, pre := range preds {
		if d, ok := dayOf[pre]; ok && d > earliest {
			earliest = d
		}
	}
	forced := -1
	for _, member := range bundle {
		if member == poi.ID {
			continue
		}
		if d, ok := dayOf[member]; ok {
			forced = d
			break
		}
	}
	for d := earliest; d < p.Days; d++ {
		if forced >= 0 && d != forced {
			continue
		}
		if p.enabled(FamilyHours) && !openOnDay(poi, p.StartDate, d) {
			continue
		}
		if p.enabled(FamilyCapacity) {
			tt := 0.0
			if last := lastOf(days[d].order); last != "" {
				tt = p.Dist.Hours(last, poi.ID, p.WalkSpeedKmh)
			}
			load := days[d].visitHours + days[d].travelHours + poi.DurationHours + tt
			if load > p.DayBudgetHours {
				continue
			}
		}
		return d, true
	}
	return 0, false
}

func lastOf(order []string) string {
	if len(order) == 0 {
		return ""
	}
	return order[len(order)-1]
}

// improveDay runs first-improvement 2-opt on one day's route, accepting only
// reversals that shorten the walk and keep every precedence edge ordered.
func improveDay(p Problem, day *dayState, deadline time.Time) {
	if len(day.order) < 3 {
		return
	}
	improved := true
	for improved && time.Now().Before(deadline) {
		improved = false
		for i := 0; i < len(day.order)-1 && !improved; i++ {
			for j := i + 1; j < len(day.order); j++ {
				cand := reversedSegment(day.order, i, j)
				if violatesPrecedence(p, cand) {
					continue
				}
				if walk := routeTravelHours(p, cand); walk < day.travelHours-1e-9 {
					day.order = cand
					day.travelHours = walk
					improved = true
					break
				}
			}
		}
	}
}

func reversedSegment(order []string, i, j int) []string {
	out := make([]string, len(order))
	copy(out, order)
	for a, b := i, j; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	return out
}

// violatesPrecedence reports whether any precedence edge with both endpoints
// in the route runs backwards.
func violatesPrecedence(p Problem, order []string) bool {
	if !p.enabled(FamilyPrecedence) {
		return false
	}
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range p.Precedence {
		i, okFrom := pos[e.From]
		j, okTo := pos[e.To]
		if okFrom && okTo && i > j {
			return true
		}
	}
	return false
}

func routeTravelHours(p Problem, order []string) float64 {
	total := 0.0
	for i := 1; i < len(order); i++ {
		total += p.Dist.Hours(order[i-1], order[i], p.WalkSpeedKmh)
	}
	return total
}

// scheduleObjective scores a finished schedule with the same weights the
// exact model maximizes, so strategies stay comparable.
func scheduleObjective(p Problem, routes [][]string, dayOf map[string]int) float64 {
	total := 0.0
	for _, route := range routes {
		for i := 1; i < len(route); i++ {
			a, b := route[i-1], route[i]
			total += p.Objectives.Coherence * p.Coherence.Get(a, b)
			total -= p.Objectives.Travel * p.Dist.Hours(a, b, p.WalkSpeedKmh)
		}
	}
	for _, poi := range p.POIs {
		if _, ok := dayOf[poi.ID]; ok {
			total += p.Objectives.Priority * tierWeight(poi.Priority)
		}
	}
	return total
}
