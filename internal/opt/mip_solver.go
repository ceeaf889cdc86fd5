package opt

import (
	"sort"
	"time"

	"github.com/nextmv-io/sdk/mip"
)

// solveMIP builds and solves the exact model within the given wall-clock
// budget. A solver that stops without any incumbent is reported as infeasible,
// or as infeasible_within_budget when it ran out of time before it could tell.
func solveMIP(p Problem, limit time.Duration) Result {
	start := time.Now()
	res := Result{Strategy: StrategyMIP}

	sm := buildModel(p)
	solver, err := mip.NewSolver("highs", sm.mip)
	if err != nil {
		res.Status = StatusError
		res.Detail = "solver init: " + err.Error()
		res.SolveTime = time.Since(start)
		return res
	}

	opts := mip.NewSolveOptions()
	if err := opts.SetMaximumDuration(limit); err != nil {
		res.Status = StatusError
		res.Detail = "solve options: " + err.Error()
		res.SolveTime = time.Since(start)
		return res
	}
	if err := opts.SetMIPGapRelative(0); err != nil {
		res.Status = StatusError
		res.Detail = "solve options: " + err.Error()
		res.SolveTime = time.Since(start)
		return res
	}
	opts.SetVerbosity(mip.Off)

	solution, err := solver.Solve(opts)
	res.SolveTime = time.Since(start)
	if err != nil {
		res.Status = StatusError
		res.Detail = "solve: " + err.Error()
		return res
	}
	if solution == nil || !solution.HasValues() {
		if solution != nil && solution.RunTime() >= limit {
			res.Status = StatusInfeasibleBudget
			res.Detail = "no schedule found within the time budget"
		} else {
			res.Status = StatusInfeasible
			res.Detail = "constraints admit no schedule"
		}
		return res
	}

	dayOf := make(map[string]int)
	for _, v := range sm.visits {
		if solution.Value(sm.x.Get(v)) > 0.5 {
			dayOf[v.POI] = v.Day
		}
	}
	var hops []chosenHop
	for _, h := range sm.hops {
		if solution.Value(sm.y.Get(h)) > 0.5 {
			hops = append(hops, chosenHop{From: h.From, To: h.To, Day: h.Day})
		}
	}
	routes, err := assembleRoutes(p.Days, dayOf, hops)
	if err != nil {
		res.Status = StatusError
		res.Detail = "decode: " + err.Error()
		return res
	}

	for _, poi := range p.POIs {
		if _, ok := dayOf[poi.ID]; !ok {
			res.Dropped = append(res.Dropped, poi.ID)
		}
	}
	sort.Strings(res.Dropped)

	res.DayOf = dayOf
	res.Routes = routes
	res.Objective = solution.ObjectiveValue()
	if solution.IsOptimal() {
		res.Status = StatusOptimal
	} else {
		res.Status = StatusFeasible
	}
	return res
}
