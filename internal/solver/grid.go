package solver

import (
	"sort"

	"github.com/geison-bit/horarios-api/internal/timetable"
)

type tgKey struct {
	teacher int
	grade   int
	day     int
}

type run struct {
	req  int
	size int
}

// grid is the mutable placement state. Hard constraints are enforced
// structurally: every grade-day is a stack of runs growing from block 0
// (prefix rule, no gaps), a requirement holds at most one run per day
// (contiguity), and each push is checked against teacher availability,
// teacher exclusivity, the per-teacher-per-grade daily cap, the adjacency
// caps for long courses and the version-1 day-composition caps.
type grid struct {
	m      *timetable.Model
	blocks int

	stacks      map[int]*[timetable.NumDays][]run // grade → ordered runs per day
	teacherBusy map[int][]bool                    // teacher → day*blocks bitmap
	tgDay       map[tgKey]int
	reqDayLen   [][]int // req → run length per day, 0 = none
	comp        map[int]*[timetable.NumDays][4]int
}

func newGrid(m *timetable.Model) *grid {
	g := &grid{
		m:           m,
		blocks:      m.Blocks,
		stacks:      make(map[int]*[timetable.NumDays][]run),
		teacherBusy: make(map[int][]bool),
		tgDay:       make(map[tgKey]int),
		reqDayLen:   make([][]int, len(m.Reqs)),
		comp:        make(map[int]*[timetable.NumDays][4]int),
	}
	for i := range m.Reqs {
		g.reqDayLen[i] = make([]int, timetable.NumDays)
	}
	return g
}

func (g *grid) gradeStacks(grade int) *[timetable.NumDays][]run {
	s := g.stacks[grade]
	if s == nil {
		s = &[timetable.NumDays][]run{}
		g.stacks[grade] = s
	}
	return s
}

func (g *grid) teacherMap(teacher int) []bool {
	busy := g.teacherBusy[teacher]
	if busy == nil {
		busy = make([]bool, timetable.NumDays*g.blocks)
		g.teacherBusy[teacher] = busy
	}
	return busy
}

func (g *grid) gradeComp(grade int) *[timetable.NumDays][4]int {
	c := g.comp[grade]
	if c == nil {
		c = &[timetable.NumDays][4]int{}
		g.comp[grade] = c
	}
	return c
}

func (g *grid) usedHeight(grade, day int) int {
	h := 0
	for _, rn := range g.gradeStacks(grade)[day] {
		h += rn.size
	}
	return h
}

func (g *grid) reqDays(req, extraDay int) [timetable.NumDays]bool {
	var days [timetable.NumDays]bool
	for d := 0; d < timetable.NumDays; d++ {
		days[d] = g.reqDayLen[req][d] > 0
	}
	if extraDay >= 0 {
		days[extraDay] = true
	}
	return days
}

func adjacentPairs(days [timetable.NumDays]bool) int {
	pairs := 0
	for d := 0; d < timetable.NumDays-1; d++ {
		if days[d] && days[d+1] {
			pairs++
		}
	}
	return pairs
}

func hasTripleRun(days [timetable.NumDays]bool) bool {
	for d := 0; d+2 < timetable.NumDays; d++ {
		if days[d] && days[d+1] && days[d+2] {
			return true
		}
	}
	return false
}

// canOccupy checks teacher availability and exclusivity over a block range.
func (g *grid) canOccupy(teacher, day, start, size int) bool {
	busy := g.teacherMap(teacher)
	for b := start; b < start+size; b++ {
		if busy[day*g.blocks+b] {
			return false
		}
		if g.m.Availability.Blocked(teacher, day, b) {
			return false
		}
	}
	return true
}

// canPlace reports whether requirement req can take a run of length size on
// day d at the grade's current stack top.
func (g *grid) canPlace(req, d, size int) bool {
	r := g.m.Reqs[req]
	start := g.usedHeight(r.GradoID, d)
	if start+size > g.blocks {
		return false
	}
	if g.reqDayLen[req][d] != 0 {
		return false
	}
	if !g.canOccupy(r.Docente, d, start, size) {
		return false
	}

	if g.m.DailyCap && g.tgDay[tgKey{r.Docente, r.GradoID, d}]+size > 3 {
		return false
	}

	if r.Hours > 4 {
		days := g.reqDays(req, d)
		if hasTripleRun(days) {
			return false
		}
		if r.Hours >= 7 && adjacentPairs(days) > 1 {
			return false
		}
	}

	if g.m.Version == 1 && g.m.NoPattern[req] && size <= 3 {
		c := g.gradeComp(r.GradoID)
		switch size {
		case 3:
			if c[d][3] >= 1 {
				return false
			}
		case 2:
			if c[d][2] >= 2 {
				return false
			}
		}
	}

	return true
}

// place commits a run on top of the grade-day stack; callers must have
// checked canPlace.
func (g *grid) place(req, d, size int) {
	r := g.m.Reqs[req]
	start := g.usedHeight(r.GradoID, d)

	stack := g.gradeStacks(r.GradoID)
	stack[d] = append(stack[d], run{req: req, size: size})

	busy := g.teacherMap(r.Docente)
	for b := start; b < start+size; b++ {
		busy[d*g.blocks+b] = true
	}
	g.tgDay[tgKey{r.Docente, r.GradoID, d}] += size
	g.reqDayLen[req][d] = size
	if g.m.NoPattern[req] && size <= 3 {
		g.gradeComp(r.GradoID)[d][size]++
	}
}

// removeRun pops requirement req's run from day d. Runs stacked above it
// slide down to keep the prefix dense; a sliding run whose teacher cannot
// occupy its new blocks is evicted and returned so the caller can re-place
// or drop it.
func (g *grid) removeRun(req, d int) (displaced []int) {
	r := g.m.Reqs[req]
	size := g.reqDayLen[req][d]
	if size == 0 {
		return nil
	}

	stack := g.gradeStacks(r.GradoID)
	runs := stack[d]
	idx := -1
	start := 0
	for i, rn := range runs {
		if rn.req == req {
			idx = i
			break
		}
		start += rn.size
	}
	if idx < 0 {
		return nil
	}

	above := append([]run(nil), runs[idx+1:]...)

	// clear the removed run and everything above it
	cursor := start
	for _, rn := range runs[idx:] {
		t := g.m.Reqs[rn.req].Docente
		busy := g.teacherMap(t)
		for b := cursor; b < cursor+rn.size; b++ {
			busy[d*g.blocks+b] = false
		}
		cursor += rn.size
	}
	g.tgDay[tgKey{r.Docente, r.GradoID, d}] -= size
	g.reqDayLen[req][d] = 0
	if g.m.NoPattern[req] && size <= 3 {
		g.gradeComp(r.GradoID)[d][size]--
	}
	stack[d] = runs[:idx]

	// slide the upper runs down, evicting any that no longer fit
	for _, rn := range above {
		t := g.m.Reqs[rn.req].Docente
		newStart := g.usedHeight(r.GradoID, d)
		if g.canOccupy(t, d, newStart, rn.size) {
			stack[d] = append(stack[d], rn)
			busy := g.teacherMap(t)
			for b := newStart; b < newStart+rn.size; b++ {
				busy[d*g.blocks+b] = true
			}
			continue
		}
		// eviction: roll back this run's bookkeeping entirely
		g.tgDay[tgKey{t, r.GradoID, d}] -= rn.size
		g.reqDayLen[rn.req][d] = 0
		if g.m.NoPattern[rn.req] && rn.size <= 3 {
			g.gradeComp(r.GradoID)[d][rn.size]--
		}
		displaced = append(displaced, rn.req)
	}

	return displaced
}

// removeReq clears every run of a requirement across the week.
func (g *grid) removeReq(req int) (displaced []int) {
	for d := 0; d < timetable.NumDays; d++ {
		if g.reqDayLen[req][d] > 0 {
			displaced = append(displaced, g.removeRun(req, d)...)
		}
	}
	return displaced
}

// clone deep-copies the grid for the acceptance-based improvement loop.
func (g *grid) clone() *grid {
	c := &grid{
		m:           g.m,
		blocks:      g.blocks,
		stacks:      make(map[int]*[timetable.NumDays][]run, len(g.stacks)),
		teacherBusy: make(map[int][]bool, len(g.teacherBusy)),
		tgDay:       make(map[tgKey]int, len(g.tgDay)),
		reqDayLen:   make([][]int, len(g.reqDayLen)),
		comp:        make(map[int]*[timetable.NumDays][4]int, len(g.comp)),
	}
	for grade, stack := range g.stacks {
		copied := &[timetable.NumDays][]run{}
		for d := 0; d < timetable.NumDays; d++ {
			copied[d] = append([]run(nil), stack[d]...)
		}
		c.stacks[grade] = copied
	}
	for teacher, busy := range g.teacherBusy {
		c.teacherBusy[teacher] = append([]bool(nil), busy...)
	}
	for key, count := range g.tgDay {
		c.tgDay[key] = count
	}
	for i, lens := range g.reqDayLen {
		c.reqDayLen[i] = append([]int(nil), lens...)
	}
	for grade, comp := range g.comp {
		copied := *comp
		c.comp[grade] = &copied
	}
	return c
}

// sessions snapshots the current placements.
func (g *grid) sessions() []timetable.Session {
	var out []timetable.Session
	grades := make([]int, 0, len(g.stacks))
	for grade := range g.stacks {
		grades = append(grades, grade)
	}
	sort.Ints(grades)
	for _, grade := range grades {
		stack := g.stacks[grade]
		for d := 0; d < timetable.NumDays; d++ {
			start := 0
			for _, rn := range stack[d] {
				out = append(out, timetable.Session{Req: rn.req, Day: d, Start: start, Len: rn.size})
				start += rn.size
			}
		}
	}
	return out
}

// runSizes returns the multiset of run lengths a requirement currently
// holds across the week.
func (g *grid) runSizes(req int) []int {
	var sizes []int
	for d := 0; d < timetable.NumDays; d++ {
		if size := g.reqDayLen[req][d]; size > 0 {
			sizes = append(sizes, size)
		}
	}
	return sizes
}
