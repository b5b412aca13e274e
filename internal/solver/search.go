package solver

import (
	"math"
	"math/rand"
	"sort"

	"github.com/geison-bit/horarios-api/internal/timetable"
)

// searcher runs one worker's randomized constructive search with an
// annealing improvement phase on top, in the spirit of restart-based
// timetable searches.
type searcher struct {
	m   *timetable.Model
	rng *rand.Rand
}

// construct builds a fresh solution: requirements in decreasing-hours order
// with randomized ties, each placed through its candidate decompositions.
func (s *searcher) construct() *grid {
	g := newGrid(s.m)

	order := make([]int, len(s.m.Reqs))
	for i := range order {
		order[i] = i
	}
	s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	sort.SliceStable(order, func(i, j int) bool {
		return s.m.Reqs[order[i]].Hours > s.m.Reqs[order[j]].Hours
	})

	for _, req := range order {
		s.placeRequirement(g, req)
	}

	if s.m.Version == 1 {
		s.repairComposition(g)
	}

	return g
}

// placeRequirement tries each decomposition in preference order and commits
// the first that fits completely; when none does, it places as many sessions
// as fit of the first decomposition compatible with the runs already held
// and lets the remainder surface as slack. Runs the requirement already holds are kept and only the
// missing sessions of a matching decomposition are added.
func (s *searcher) placeRequirement(g *grid, req int) bool {
	candidates := s.m.Candidates[req]
	if len(candidates) == 0 {
		return false
	}

	existing := g.runSizes(req)

	var firstRemainder []int
	for _, cand := range candidates {
		remainder, ok := subtractSizes(cand, existing)
		if !ok {
			continue
		}
		if firstRemainder == nil {
			firstRemainder = remainder
		}
		if len(remainder) == 0 {
			return true
		}
		if s.tryDecomposition(g, req, remainder, false) {
			return true
		}
	}

	if firstRemainder != nil {
		s.tryDecomposition(g, req, firstRemainder, true)
	}
	return false
}

// subtractSizes removes the already-placed multiset from a decomposition.
// ok is false when the placed runs do not fit the decomposition at all.
func subtractSizes(decomposition, placed []int) ([]int, bool) {
	counts := make(map[int]int, len(decomposition))
	for _, size := range decomposition {
		counts[size]++
	}
	for _, size := range placed {
		if counts[size] == 0 {
			return nil, false
		}
		counts[size]--
	}
	var remainder []int
	for _, size := range decomposition {
		if counts[size] > 0 {
			counts[size]--
			remainder = append(remainder, size)
		}
	}
	return remainder, true
}

// tryDecomposition places every session of the decomposition on distinct
// days. With partial=false a failed session unwinds the whole attempt.
func (s *searcher) tryDecomposition(g *grid, req int, decomposition []int, partial bool) bool {
	sizes := append([]int(nil), decomposition...)
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))

	var placedDays []int
	for _, size := range sizes {
		day := s.pickDay(g, req, size)
		if day < 0 {
			if partial {
				continue
			}
			for _, d := range placedDays {
				g.removeRun(req, d)
			}
			return false
		}
		g.place(req, day, size)
		placedDays = append(placedDays, day)
	}
	return len(placedDays) == len(sizes)
}

// pickDay scores the candidate days for a run and returns the best
// admissible one, or -1. Lower score wins.
func (s *searcher) pickDay(g *grid, req, size int) int {
	r := s.m.Reqs[req]
	bestDay := -1
	bestScore := math.MaxFloat64

	for d := 0; d < timetable.NumDays; d++ {
		if !g.canPlace(req, d, size) {
			continue
		}
		score := float64(g.usedHeight(r.GradoID, d)) + s.rng.Float64()

		if s.m.Version == 1 && s.m.NoPattern[req] {
			c := g.gradeComp(r.GradoID)[d]
			switch size {
			case 3:
				// a 3h run belongs on a day that already has 2h company
				if c[2] >= 1 && c[3] == 0 {
					score -= 20
				}
			case 2:
				// a 2h run belongs next to the day's 3h run
				if c[3] == 1 && c[2] < 2 {
					score -= 20
				} else if c[3] == 0 && c[2] == 0 {
					score += 5
				}
			}
		}

		if r.Hours > 4 {
			days := g.reqDays(req, d)
			score += float64(adjacentPairs(days)) * 3
		}

		if score < bestScore {
			bestScore = score
			bestDay = d
		}
	}
	return bestDay
}

// compositionOK tells whether a grade-day honours the version-1 rule:
// either no patternless sessions at all, or exactly one 3h run plus one or
// two 2h runs.
func compositionOK(c [4]int) bool {
	if c[1] == 0 && c[2] == 0 && c[3] == 0 {
		return true
	}
	return c[3] == 1 && c[2] >= 1 && c[2] <= 2
}

// repairComposition relocates or, as a last resort, drops runs until every
// grade-day satisfies the version-1 day-distribution rule.
func (s *searcher) repairComposition(g *grid) {
	for pass := 0; pass < 3; pass++ {
		moved := false
		for grade, stack := range g.stacks {
			for d := 0; d < timetable.NumDays; d++ {
				c := g.gradeComp(grade)[d]
				if compositionOK(c) {
					continue
				}
				for _, rn := range append([]run(nil), stack[d]...) {
					if !s.m.NoPattern[rn.req] {
						continue
					}
					if s.relocateRun(g, rn.req, d) {
						moved = true
						break
					}
				}
			}
		}
		if !moved {
			break
		}
	}

	// whatever still violates is dropped; slack is better than an illegal day
	for grade, stack := range g.stacks {
		for d := 0; d < timetable.NumDays; d++ {
			for !compositionOK(g.gradeComp(grade)[d]) {
				dropped := false
				for _, rn := range append([]run(nil), stack[d]...) {
					if s.m.NoPattern[rn.req] {
						g.removeRun(rn.req, d)
						dropped = true
						break
					}
				}
				if !dropped {
					break
				}
			}
		}
	}
}

// relocateRun moves one run to a day where it improves the composition.
func (s *searcher) relocateRun(g *grid, req, from int) bool {
	size := g.reqDayLen[req][from]
	if size == 0 {
		return false
	}
	grade := s.m.Reqs[req].GradoID

	displaced := g.removeRun(req, from)
	for d := 0; d < timetable.NumDays; d++ {
		if d == from || !g.canPlace(req, d, size) {
			continue
		}
		c := g.gradeComp(grade)[d]
		helpful := (size == 3 && c[2] >= 1) || (size == 2 && c[3] == 1)
		if !helpful {
			continue
		}
		g.place(req, d, size)
		s.replaceAll(g, displaced)
		return true
	}

	// no helpful target: put it back where it was if possible
	if g.canPlace(req, from, size) {
		g.place(req, from, size)
	}
	s.replaceAll(g, displaced)
	return false
}

func (s *searcher) replaceAll(g *grid, reqs []int) {
	for _, req := range reqs {
		s.placeRequirement(g, req)
	}
}

// improve runs a bounded ruin-and-recreate annealing loop over the grid.
func (s *searcher) improve(g *grid, iterations int) (*grid, int64) {
	current := g
	currentObj := s.m.Evaluate(current.sessions())
	best := current.clone()
	bestObj := currentObj

	temperature := 40.0
	const cooling = 0.97

	for i := 0; i < iterations; i++ {
		if currentObj == 0 {
			break
		}

		candidate := current.clone()
		victim := s.rng.Intn(len(s.m.Reqs))
		displaced := candidate.removeReq(victim)
		s.placeRequirement(candidate, victim)
		s.replaceAll(candidate, displaced)
		if s.m.Version == 1 {
			s.repairComposition(candidate)
		}

		obj := s.m.Evaluate(candidate.sessions())
		delta := float64(obj - currentObj)
		if delta <= 0 || s.rng.Float64() < math.Exp(-delta/temperature) {
			current = candidate
			currentObj = obj
			if obj < bestObj {
				best = candidate.clone()
				bestObj = obj
			}
		}
		temperature *= cooling
	}

	return best, bestObj
}
