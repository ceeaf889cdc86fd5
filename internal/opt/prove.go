package opt

import "fmt"

// proveInfeasible runs cheap lower-bound checks before any solve. A positive
// answer is a proof: no assignment can satisfy the enabled constraint
// families, regardless of solver or time budget. Travel time is non-negative,
// so visit durations alone are a valid lower bound everywhere below.
func proveInfeasible(p Problem) (string, bool) {
	strict := p.enabled(FamilyCompleteness) && !p.BestEffort
	if !strict {
		// Every check below relies on "this POI must be scheduled"; with
		// dropping allowed nothing can be proven this cheaply.
		return "", false
	}

	if p.enabled(FamilyCapacity) {
		total := 0.0
		for _, poi := range p.POIs {
			total += poi.DurationHours
			if poi.DurationHours > p.DayBudgetHours {
				return fmt.Sprintf("poi %s needs %.1fh, above the %.1fh day budget", poi.ID, poi.DurationHours, p.DayBudgetHours), true
			}
		}
		if total > p.DayBudgetHours*float64(p.Days) {
			return fmt.Sprintf("total visit time %.1fh exceeds %d days of %.1fh", total, p.Days, p.DayBudgetHours), true
		}
	}

	if p.enabled(FamilyCapacity) && p.enabled(FamilyBundles) {
		durs := make(map[string]float64, len(p.POIs))
		for _, poi := range p.POIs {
			durs[poi.ID] = poi.DurationHours
		}
		for _, b := range p.Bundles {
			sum := 0.0
			for _, id := range b.Members {
				sum += durs[id]
			}
			if sum > p.DayBudgetHours {
				return fmt.Sprintf("bundle %s needs %.1fh on one day, above the %.1fh budget", b.Name, sum, p.DayBudgetHours), true
			}
		}
	}

	if p.enabled(FamilyHours) {
		for _, poi := range p.POIs {
			open := false
			for d := 0; d < p.Days && !open; d++ {
				open = openOnDay(poi, p.StartDate, d)
			}
			if !open {
				return fmt.Sprintf("poi %s is closed on every trip day", poi.ID), true
			}
		}
	}

	return "", false
}
