package coherence

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
)

// Edge is a derived soft-precedence constraint: prefer visiting From before To.
type Edge struct {
	From  string
	To    string
	Score float64
}

// DeriveEdges turns the coherence matrix into a conflict-free, acyclic edge
// set. Mutual high-score pairs keep only the strictly higher direction; exact
// ties go to the lexically smaller From. Residual cycles of length >= 3 are
// broken by dropping the lowest-scoring edge on the cycle until none remain.
func DeriveEdges(s *Scores, threshold float64) ([]Edge, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	ids := s.IDs()
	var edges []Edge
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			if a > b {
				a, b = b, a
			}
			ab, ba := s.Get(a, b), s.Get(b, a)
			switch {
			case ab >= threshold && ba >= threshold:
				// Mutual conflict: keep one direction only. On a tie the
				// lexically smaller ID wins the From slot, which is stable
				// across runs on the same input.
				if ab >= ba {
					edges = append(edges, Edge{From: a, To: b, Score: ab})
				} else {
					edges = append(edges, Edge{From: b, To: a, Score: ba})
				}
			case ab >= threshold:
				edges = append(edges, Edge{From: a, To: b, Score: ab})
			case ba >= threshold:
				edges = append(edges, Edge{From: b, To: a, Score: ba})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return breakCycles(edges)
}

// breakCycles removes the lowest-scoring edge of each remaining directed
// cycle until the edge set is acyclic. Pairwise conflicts are already
// resolved, so only cycles of length >= 3 can appear here.
func breakCycles(edges []Edge) ([]Edge, error) {
	for {
		g, err := buildGraph(edges)
		if err != nil {
			return nil, err
		}
		found, cycles, err := dfs.DetectCycles(g)
		if err != nil {
			return nil, fmt.Errorf("coherence: cycle detection: %w", err)
		}
		if !found {
			return edges, nil
		}
		victim := lowestCycleEdge(cycles[0], edges)
		if victim < 0 {
			// A reported cycle with no matching edge would mean the graph and
			// the edge set diverged; refuse to loop forever.
			return nil, fmt.Errorf("coherence: cannot resolve cycle %v", cycles[0])
		}
		edges = append(edges[:victim], edges[victim+1:]...)
	}
}

func buildGraph(edges []Edge) (*core.Graph, error) {
	g := core.NewGraph(core.WithDirected(true))
	for _, e := range edges {
		if err := g.AddVertex(e.From); err != nil {
			return nil, fmt.Errorf("coherence: add vertex %s: %w", e.From, err)
		}
		if err := g.AddVertex(e.To); err != nil {
			return nil, fmt.Errorf("coherence: add vertex %s: %w", e.To, err)
		}
		if _, err := g.AddEdge(e.From, e.To, 0); err != nil {
			return nil, fmt.Errorf("coherence: add edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// lowestCycleEdge returns the index into edges of the weakest edge on the
// cycle, or -1 when no cycle edge is present in the set. Detected cycles may
// come back in either orientation relative to the edge directions, so when
// walking the sequence forward matches nothing the reversed walk is tried.
func lowestCycleEdge(cycle []string, edges []Edge) int {
	if best := weakestAlong(cycle, edges, false); best >= 0 {
		return best
	}
	return weakestAlong(cycle, edges, true)
}

func weakestAlong(cycle []string, edges []Edge, reversed bool) int {
	best := -1
	for i := 0; i < len(cycle); i++ {
		from := cycle[i]
		to := cycle[(i+1)%len(cycle)]
		if reversed {
			from, to = to, from
		}
		for ei, e := range edges {
			if e.From == from && e.To == to {
				if best < 0 || e.Score < edges[best].Score {
					best = ei
				}
			}
		}
	}
	return best
}

// TopoOrder returns the ids in an order consistent with every edge. IDs with
// no edges keep their relative input order as a stable fallback.
func TopoOrder(ids []string, edges []Edge) ([]string, error) {
	g := core.NewGraph(core.WithDirected(true))
	for _, id := range ids {
		if err := g.AddVertex(id); err != nil {
			return nil, fmt.Errorf("coherence: add vertex %s: %w", id, err)
		}
	}
	for _, e := range edges {
		if _, err := g.AddEdge(e.From, e.To, 0); err != nil {
			return nil, fmt.Errorf("coherence: add edge %s->%s: %w", e.From, e.To, err)
		}
	}
	order, err := dfs.TopologicalSort(g)
	if err != nil {
		return nil, fmt.Errorf("coherence: topological sort: %w", err)
	}
	return order, nil
}
