package opt

import "sync"

// SolveStats is the per-plan solve record kept for diagnostics.
type SolveStats struct {
	Strategy  string
	Status    Status
	SolveMs   int64
	Objective float64
	Placed    int
	Dropped   int
}

var (
	statsMu sync.Mutex
	stats   = map[string]SolveStats{}
)

// RecordStats stores the solve record for one plan, replacing any prior one.
func RecordStats(planID string, s SolveStats) {
	statsMu.Lock()
	stats[planID] = s
	statsMu.Unlock()
}

// GetStats returns the solve record for a plan, if one was kept.
func GetStats(planID string) (SolveStats, bool) {
	statsMu.Lock()
	defer statsMu.Unlock()
	s, ok := stats[planID]
	return s, ok
}
