package timetable

// Weights rank the soft constraints. Slack dominates everything so that a
// missing hour is never traded for layout quality.
type Weights struct {
	Slack        int64
	Gap          int64
	Break        int64
	AdjacentPair int64
}

// DefaultWeights is the production objective.
var DefaultWeights = Weights{Slack: 100000, Gap: 200, Break: 50, AdjacentPair: 80}

// Session is one placed run: requirement Req occupies blocks
// [Start, Start+Len) on Day.
type Session struct {
	Req   int
	Day   int
	Start int
	Len   int
}

// Solution is what the solver hands back to the decoder.
type Solution struct {
	Sessions  []Session
	Status    string
	Objective int64
}

// Solver status labels, kept CP-SAT flavoured.
const (
	StatusOptimal    = "OPTIMAL"
	StatusFeasible   = "FEASIBLE"
	StatusInfeasible = "INFEASIBLE"
)

// Model is the lowered decision model: per-requirement placement candidates
// plus everything the search needs to enforce the hard constraints and
// price the soft ones.
type Model struct {
	Reqs         []Requirement
	Candidates   [][][]int // per requirement: decompositions, each a session-length list
	Availability *Availability
	Blocks       int
	Version      int
	DailyCap     bool
	Weights      Weights
	NoPattern    []bool // requirement counts toward the version-1 day-composition rule
}

// BuildModel lowers the normalised input into the placement model.
func BuildModel(in *Input, reqs []Requirement, av *Availability, dailyCap bool) *Model {
	m := &Model{
		Reqs:         reqs,
		Candidates:   make([][][]int, len(reqs)),
		Availability: av,
		Blocks:       in.Blocks,
		Version:      in.Version,
		DailyCap:     dailyCap,
		Weights:      DefaultWeights,
		NoPattern:    make([]bool, len(reqs)),
	}
	for i, r := range reqs {
		m.Candidates[i] = SessionCandidates(r, in.Rules, in.Version)
		m.NoPattern[i] = r.Pattern == nil
	}
	return m
}

// AssignedHours tallies per-requirement placed blocks for a session list.
func (m *Model) AssignedHours(sessions []Session) []int {
	assigned := make([]int, len(m.Reqs))
	for _, s := range sessions {
		assigned[s.Req] += s.Len
	}
	return assigned
}

// Evaluate prices a solution with the weighted objective: slack, grade-day
// gaps, fragmentation breaks and consecutive-day pairs for long courses.
func (m *Model) Evaluate(sessions []Session) int64 {
	assigned := m.AssignedHours(sessions)

	var obj int64
	for i, r := range m.Reqs {
		obj += m.Weights.Slack * int64(r.Hours-assigned[i])
	}

	// occupancy per grade-day for the gap term
	occupied := make(map[int][]bool)
	for _, s := range sessions {
		grade := m.Reqs[s.Req].GradoID
		if occupied[grade] == nil {
			occupied[grade] = make([]bool, NumDays*m.Blocks)
		}
		for b := s.Start; b < s.Start+s.Len; b++ {
			occupied[grade][s.Day*m.Blocks+b] = true
		}
	}
	for _, bitmap := range occupied {
		for d := 0; d < NumDays; d++ {
			last := -1
			for b := m.Blocks - 1; b >= 0; b-- {
				if bitmap[d*m.Blocks+b] {
					last = b
					break
				}
			}
			for b := 0; b < last; b++ {
				if !bitmap[d*m.Blocks+b] {
					obj += m.Weights.Gap
				}
			}
		}
	}

	// fragmentation: occupied↔idle transitions of each requirement-day run
	for _, s := range sessions {
		if s.Start >= 1 {
			obj += m.Weights.Break
		}
		if s.Start+s.Len-1 < m.Blocks-1 {
			obj += m.Weights.Break
		}
	}

	// consecutive-day pairs for courses above four weekly hours
	dayHas := make(map[int][NumDays]bool)
	for _, s := range sessions {
		if m.Reqs[s.Req].Hours <= 4 {
			continue
		}
		days := dayHas[s.Req]
		days[s.Day] = true
		dayHas[s.Req] = days
	}
	for _, days := range dayHas {
		for d := 0; d < NumDays-1; d++ {
			if days[d] && days[d+1] {
				obj += m.Weights.AdjacentPair
			}
		}
	}

	return obj
}
