package opt

import (
	"strconv"

	"github.com/nextmv-io/sdk/mip"
	sdkmodel "github.com/nextmv-io/sdk/model"
)

// visit is the index element of the assignment variables: POI p on day d.
type visit struct {
	POI string
	Day int
}

// ID implements sdkmodel.Identifier.
func (v visit) ID() string { return v.POI + "@d" + strconv.Itoa(v.Day) }

// hop is the index element of the sequencing variables: From immediately
// precedes To within day Day's route.
type hop struct {
	From string
	To   string
	Day  int
}

func (h hop) ID() string { return h.From + ">" + h.To + "@d" + strconv.Itoa(h.Day) }

// site indexes the per-POI rank variables used for subtour elimination and
// same-day precedence ordering.
type site struct {
	POI string
}

func (s site) ID() string { return s.POI }

// scheduleModel is one built MIP instance plus the variable handles needed to
// decode its solution.
type scheduleModel struct {
	mip    mip.Model
	prob   Problem
	visits []visit
	hops   []hop
	sites  []site
	x      sdkmodel.MultiMap[mip.Bool, visit]
	y      sdkmodel.MultiMap[mip.Bool, hop]
	rank   sdkmodel.MultiMap[mip.Float, site]
}

// buildModel translates a Problem into a MIP. Two variable families describe
// the schedule: x (POI assigned to day) and y (hop chosen within a day); a
// channeling constraint keeps them consistent, and per-day degree, edge-count
// and rank constraints force each day's chosen hops into a single open path.
// Every constraint family on top of that structure is added only when enabled.
func buildModel(p Problem) *scheduleModel {
	m := mip.NewModel()
	sm := &scheduleModel{mip: m, prob: p}

	for _, poi := range p.POIs {
		sm.sites = append(sm.sites, site{POI: poi.ID})
		for d := 0; d < p.Days; d++ {
			sm.visits = append(sm.visits, visit{POI: poi.ID, Day: d})
		}
	}
	for _, a := range p.POIs {
		for _, b := range p.POIs {
			if a.ID == b.ID {
				continue
			}
			for d := 0; d < p.Days; d++ {
				sm.hops = append(sm.hops, hop{From: a.ID, To: b.ID, Day: d})
			}
		}
	}

	sm.x = sdkmodel.NewMultiMap(
		func(...visit) mip.Bool { return m.NewBool() }, sm.visits)
	sm.y = sdkmodel.NewMultiMap(
		func(...hop) mip.Bool { return m.NewBool() }, sm.hops)
	n := float64(len(p.POIs))
	sm.rank = sdkmodel.NewMultiMap(
		func(...site) mip.Float { return m.NewFloat(0, n-1) }, sm.sites)

	sm.addRouting()
	if p.enabled(FamilyCompleteness) && !p.BestEffort {
		sm.addCompleteness()
	}
	if p.enabled(FamilyCapacity) {
		sm.addCapacity()
	}
	if p.enabled(FamilyHours) {
		sm.addHours()
	}
	if p.enabled(FamilyBundles) {
		sm.addBundles()
	}
	if p.enabled(FamilyPrecedence) {
		sm.addPrecedence()
	}
	sm.addObjective()
	return sm
}

// addRouting adds the structural constraints that make the y variables a
// valid open path per day and tie them to the x variables.
func (sm *scheduleModel) addRouting() {
	p := sm.prob
	n := float64(len(p.POIs))

	// A POI sits on at most one day; the completeness family upgrades this
	// to exactly one.
	for _, poi := range p.POIs {
		c := sm.mip.NewConstraint(mip.LessThanOrEqual, 1)
		for d := 0; d < p.Days; d++ {
			c.NewTerm(1, sm.x.Get(visit{POI: poi.ID, Day: d}))
		}
	}

	// Channeling: a hop can only be chosen when both endpoints sit on its day.
	// Rank ordering (MTZ) rules out cycles among chosen hops.
	for _, h := range sm.hops {
		from := sm.mip.NewConstraint(mip.LessThanOrEqual, 0)
		from.NewTerm(1, sm.y.Get(h))
		from.NewTerm(-1, sm.x.Get(visit{POI: h.From, Day: h.Day}))

		to := sm.mip.NewConstraint(mip.LessThanOrEqual, 0)
		to.NewTerm(1, sm.y.Get(h))
		to.NewTerm(-1, sm.x.Get(visit{POI: h.To, Day: h.Day}))

		mtz := sm.mip.NewConstraint(mip.LessThanOrEqual, n-1)
		mtz.NewTerm(1, sm.rank.Get(site{POI: h.From}))
		mtz.NewTerm(-1, sm.rank.Get(site{POI: h.To}))
		mtz.NewTerm(n, sm.y.Get(h))
	}

	// Degree: at most one predecessor and one successor per POI per day.
	for _, poi := range p.POIs {
		for d := 0; d < p.Days; d++ {
			in := sm.mip.NewConstraint(mip.LessThanOrEqual, 0)
			out := sm.mip.NewConstraint(mip.LessThanOrEqual, 0)
			in.NewTerm(-1, sm.x.Get(visit{POI: poi.ID, Day: d}))
			out.NewTerm(-1, sm.x.Get(visit{POI: poi.ID, Day: d}))
			for _, other := range p.POIs {
				if other.ID == poi.ID {
					continue
				}
				in.NewTerm(1, sm.y.Get(hop{From: other.ID, To: poi.ID, Day: d}))
				out.NewTerm(1, sm.y.Get(hop{From: poi.ID, To: other.ID, Day: d}))
			}
		}
	}

	// Path shape: k POIs on a day need k-1 hops, which together with the
	// degree and rank constraints yields exactly one open path per day.
	for d := 0; d < p.Days; d++ {
		c := sm.mip.NewConstraint(mip.LessThanOrEqual, 1)
		for _, poi := range p.POIs {
			c.NewTerm(1, sm.x.Get(visit{POI: poi.ID, Day: d}))
		}
		for _, h := range sm.hops {
			if h.Day == d {
				c.NewTerm(-1, sm.y.Get(h))
			}
		}
	}
}

// addCompleteness forces every candidate onto exactly one day.
func (sm *scheduleModel) addCompleteness() {
	p := sm.prob
	for _, poi := range p.POIs {
		c := sm.mip.NewConstraint(mip.Equal, 1)
		for d := 0; d < p.Days; d++ {
			c.NewTerm(1, sm.x.Get(visit{POI: poi.ID, Day: d}))
		}
	}
}

// addCapacity bounds each day by visit time plus travel time along chosen hops.
func (sm *scheduleModel) addCapacity() {
	p := sm.prob
	for d := 0; d < p.Days; d++ {
		c := sm.mip.NewConstraint(mip.LessThanOrEqual, p.DayBudgetHours)
		for _, poi := range p.POIs {
			c.NewTerm(poi.DurationHours, sm.x.Get(visit{POI: poi.ID, Day: d}))
		}
		for _, h := range sm.hops {
			if h.Day == d {
				c.NewTerm(p.Dist.Hours(h.From, h.To, p.WalkSpeedKmh), sm.y.Get(h))
			}
		}
	}
}

// addHours zeroes the assignment variables of closed days.
func (sm *scheduleModel) addHours() {
	p := sm.prob
	for _, poi := range p.POIs {
		for d := 0; d < p.Days; d++ {
			if openOnDay(poi, p.StartDate, d) {
				continue
			}
			c := sm.mip.NewConstraint(mip.Equal, 0)
			c.NewTerm(1, sm.x.Get(visit{POI: poi.ID, Day: d}))
		}
	}
}

// addBundles ties the day assignment of every present bundle member to the
// bundle's first member, day by day.
func (sm *scheduleModel) addBundles() {
	p := sm.prob
	known := make(map[string]bool, len(p.POIs))
	for _, poi := range p.POIs {
		known[poi.ID] = true
	}
	for _, b := range p.Bundles {
		var members []string
		for _, id := range b.Members {
			if known[id] {
				members = append(members, id)
			}
		}
		if len(members) < 2 {
			continue
		}
		anchor := members[0]
		for _, id := range members[1:] {
			for d := 0; d < p.Days; d++ {
				c := sm.mip.NewConstraint(mip.Equal, 0)
				c.NewTerm(1, sm.x.Get(visit{POI: anchor, Day: d}))
				c.NewTerm(-1, sm.x.Get(visit{POI: id, Day: d}))
			}
		}
	}
}

// addPrecedence encodes each derived edge (A,B) as: A's day index is at most
// B's, and on a shared day A's rank is strictly below B's. Both constraints
// carry inclusion slack so that an edge touching a dropped POI is vacuous.
func (sm *scheduleModel) addPrecedence() {
	p := sm.prob
	known := make(map[string]bool, len(p.POIs))
	for _, poi := range p.POIs {
		known[poi.ID] = true
	}
	n := float64(len(p.POIs))
	lastDay := float64(p.Days - 1)
	bigM := n * float64(p.Days)
	for _, e := range p.Precedence {
		if !known[e.From] || !known[e.To] {
			continue // edge over an absent POI is a no-op, never an error
		}
		day := sm.mip.NewConstraint(mip.LessThanOrEqual, 2*lastDay)
		order := sm.mip.NewConstraint(mip.LessThanOrEqual, 2*bigM-1)
		order.NewTerm(1, sm.rank.Get(site{POI: e.From}))
		order.NewTerm(-1, sm.rank.Get(site{POI: e.To}))
		for d := 0; d < p.Days; d++ {
			day.NewTerm(float64(d)+lastDay, sm.x.Get(visit{POI: e.From, Day: d}))
			day.NewTerm(-float64(d)+lastDay, sm.x.Get(visit{POI: e.To, Day: d}))
			order.NewTerm(n*float64(d)+bigM, sm.x.Get(visit{POI: e.From, Day: d}))
			order.NewTerm(-n*float64(d)+bigM, sm.x.Get(visit{POI: e.To, Day: d}))
		}
	}
}

// addObjective maximizes coherence along chosen hops and priority-weighted
// inclusion, minus walking time. Weights come from the request configuration.
func (sm *scheduleModel) addObjective() {
	p := sm.prob
	sm.mip.Objective().SetMaximize()
	for _, h := range sm.hops {
		coef := p.Objectives.Coherence*p.Coherence.Get(h.From, h.To) -
			p.Objectives.Travel*p.Dist.Hours(h.From, h.To, p.WalkSpeedKmh)
		if coef != 0 {
			sm.mip.Objective().NewTerm(coef, sm.y.Get(h))
		}
	}
	for _, poi := range p.POIs {
		w := p.Objectives.Priority * tierWeight(poi.Priority)
		if w == 0 {
			continue
		}
		for d := 0; d < p.Days; d++ {
			sm.mip.Objective().NewTerm(w, sm.x.Get(visit{POI: poi.ID, Day: d}))
		}
	}
}
