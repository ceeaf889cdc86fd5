package opt

import (
	"fmt"
	"sort"
)

// chosenHop is one selected sequencing edge: From immediately precedes To
// within the route of Day.
type chosenHop struct {
	From, To string
	Day      int
}

// assembleRoutes reconstructs the per-day visit order from the chosen hops
// and cross-checks it against the day-assignment map. The two decodings must
// agree on every POI; any mismatch is a decode error, never silently patched.
func assembleRoutes(days int, dayOf map[string]int, hops []chosenHop) ([][]string, error) {
	members := make([][]string, days)
	for id, d := range dayOf {
		if d < 0 || d >= days {
			return nil, fmt.Errorf("opt: poi %s assigned to day %d outside [0,%d)", id, d, days)
		}
		members[d] = append(members[d], id)
	}
	for d := range members {
		sort.Strings(members[d])
	}

	next := make(map[string]string, len(hops))
	hasIn := make(map[string]bool, len(hops))
	perDay := make([]int, days)
	for _, h := range hops {
		if h.Day < 0 || h.Day >= days {
			return nil, fmt.Errorf("opt: hop %s->%s on day %d outside [0,%d)", h.From, h.To, h.Day, days)
		}
		if d, ok := dayOf[h.From]; !ok || d != h.Day {
			return nil, fmt.Errorf("opt: hop %s->%s on day %d disagrees with assignment of %s", h.From, h.To, h.Day, h.From)
		}
		if d, ok := dayOf[h.To]; !ok || d != h.Day {
			return nil, fmt.Errorf("opt: hop %s->%s on day %d disagrees with assignment of %s", h.From, h.To, h.Day, h.To)
		}
		if _, dup := next[h.From]; dup {
			return nil, fmt.Errorf("opt: poi %s has two successors", h.From)
		}
		if hasIn[h.To] {
			return nil, fmt.Errorf("opt: poi %s has two predecessors", h.To)
		}
		next[h.From] = h.To
		hasIn[h.To] = true
		perDay[h.Day]++
	}

	routes := make([][]string, days)
	for d := 0; d < days; d++ {
		if len(members[d]) == 0 {
			routes[d] = []string{}
			continue
		}
		if perDay[d] != len(members[d])-1 {
			return nil, fmt.Errorf("opt: day %d has %d pois but %d hops", d, len(members[d]), perDay[d])
		}
		start := ""
		for _, id := range members[d] {
			if !hasIn[id] {
				if start != "" {
					return nil, fmt.Errorf("opt: day %d has two route starts (%s, %s)", d, start, id)
				}
				start = id
			}
		}
		if start == "" {
			return nil, fmt.Errorf("opt: day %d route has no start", d)
		}
		route := make([]string, 0, len(members[d]))
		seen := map[string]bool{}
		for id := start; id != ""; id = next[id] {
			if seen[id] {
				return nil, fmt.Errorf("opt: day %d route revisits %s", d, id)
			}
			seen[id] = true
			route = append(route, id)
		}
		if len(route) != len(members[d]) {
			return nil, fmt.Errorf("opt: day %d route covers %d of %d pois", d, len(route), len(members[d]))
		}
		routes[d] = route
	}
	return routes, nil
}
