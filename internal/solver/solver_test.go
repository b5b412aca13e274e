package solver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geison-bit/horarios-api/internal/timetable"
)

func testOptions() Options {
	return Options{MaxTime: 2 * time.Second, Workers: 4, Seed: 42}
}

type fixture struct {
	nivel        string
	version      int
	hours        map[int]map[int]int // curso → grado → horas
	teachers     map[int]map[int]int // curso → grado → docente
	restrictions map[int][]timetable.Slot
	hasRules     []int
	omit1h       bool
	patterns     map[int]map[int][]int
}

func buildModel(t *testing.T, f fixture) *timetable.Model {
	t.Helper()

	in := &timetable.Input{
		Assignments: f.teachers,
		Hours:       f.hours,
		Allowed:     make(map[int]map[timetable.Slot]bool),
		HasRules:    make(map[int]bool),
		Patterns:    f.patterns,
		Rules:       timetable.Rules{Omit1h: f.omit1h, Allow1hCourse: map[int]bool{}},
		Nivel:       f.nivel,
		Version:     f.version,
		Blocks:      timetable.BlocksFor(f.version),
	}
	if in.Patterns == nil {
		in.Patterns = make(map[int]map[int][]int)
	}
	for _, teacher := range f.hasRules {
		in.HasRules[teacher] = true
		in.Allowed[teacher] = make(map[timetable.Slot]bool)
	}
	for teacher, slots := range f.restrictions {
		in.HasRules[teacher] = true
		if in.Allowed[teacher] == nil {
			in.Allowed[teacher] = make(map[timetable.Slot]bool)
		}
		for _, s := range slots {
			in.Allowed[teacher][s] = true
		}
	}

	reqs := timetable.BuildRequirements(in)
	av := timetable.CompileAvailability(in)
	return timetable.BuildModel(in, reqs, av, true)
}

// verifyInvariants asserts the universal properties every solution must
// hold: conservation, exclusivity, availability, contiguity and the
// grade-day prefix rule.
func verifyInvariants(t *testing.T, m *timetable.Model, sol *timetable.Solution) {
	t.Helper()

	assigned := m.AssignedHours(sol.Sessions)
	for i, r := range m.Reqs {
		assert.LessOrEqual(t, assigned[i], r.Hours, "requirement %d overassigned", i)
	}

	type cell struct{ d, b int }
	gradeCells := make(map[int]map[cell]bool)
	teacherCells := make(map[int]map[cell]bool)
	reqDaySessions := make(map[[2]int]int)

	for _, s := range sol.Sessions {
		r := m.Reqs[s.Req]
		reqDaySessions[[2]int{s.Req, s.Day}]++
		assert.Equal(t, 1, reqDaySessions[[2]int{s.Req, s.Day}], "requirement %d has split runs on day %d", s.Req, s.Day)

		for b := s.Start; b < s.Start+s.Len; b++ {
			c := cell{s.Day, b}
			if gradeCells[r.GradoID] == nil {
				gradeCells[r.GradoID] = make(map[cell]bool)
			}
			assert.False(t, gradeCells[r.GradoID][c], "grade %d double-booked at %v", r.GradoID, c)
			gradeCells[r.GradoID][c] = true

			if teacherCells[r.Docente] == nil {
				teacherCells[r.Docente] = make(map[cell]bool)
			}
			assert.False(t, teacherCells[r.Docente][c], "teacher %d double-booked at %v", r.Docente, c)
			teacherCells[r.Docente][c] = true

			assert.False(t, m.Availability.Blocked(r.Docente, s.Day, b), "teacher %d scheduled on blocked slot", r.Docente)
		}
	}

	// grade-day occupancy must be a contiguous prefix from block 0
	for grade, cells := range gradeCells {
		for d := 0; d < timetable.NumDays; d++ {
			height := 0
			for b := 0; b < m.Blocks; b++ {
				if cells[cell{d, b}] {
					height++
				}
			}
			for b := 0; b < height; b++ {
				assert.True(t, cells[cell{d, b}], "grade %d day %d has a hole at block %d", grade, d, b)
			}
		}
	}
}

func TestSolveMinimalSuccess(t *testing.T) {
	m := buildModel(t, fixture{
		nivel:    "Primaria",
		hours:    map[int]map[int]int{1: {6: 2}},
		teachers: map[int]map[int]int{1: {6: 1}},
		omit1h:   true,
	})

	sol := Solve(context.Background(), m, testOptions())
	verifyInvariants(t, m, sol)

	res := timetable.Decode(m, sol)
	assert.Equal(t, 2, res.TotalAssigned)
	assert.Equal(t, timetable.StatusOptimal, sol.Status)

	// both blocks on one day, consecutive
	require.Len(t, sol.Sessions, 1)
	assert.Equal(t, 2, sol.Sessions[0].Len)
}

func TestSolveTwoCoursesSameGrade(t *testing.T) {
	m := buildModel(t, fixture{
		nivel:    "Primaria",
		hours:    map[int]map[int]int{1: {6: 2}, 2: {6: 2}},
		teachers: map[int]map[int]int{1: {6: 1}, 2: {6: 2}},
		omit1h:   true,
	})

	sol := Solve(context.Background(), m, testOptions())
	verifyInvariants(t, m, sol)

	res := timetable.Decode(m, sol)
	assert.GreaterOrEqual(t, res.TotalAssigned, 4)
}

func TestSolveFullyRestrictedTeacher(t *testing.T) {
	m := buildModel(t, fixture{
		nivel:    "Secundaria",
		hours:    map[int]map[int]int{5: {1: 2}},
		teachers: map[int]map[int]int{5: {1: 50}},
		hasRules: []int{50}, // rule map present, nothing whitelisted
		omit1h:   true,
	})

	sol := Solve(context.Background(), m, testOptions())
	verifyInvariants(t, m, sol)

	res := timetable.Decode(m, sol)
	assert.Equal(t, 0, res.TotalAssigned)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, timetable.StatusInfeasible, sol.Status)
}

func TestSolveOmits1hCourse(t *testing.T) {
	m := buildModel(t, fixture{
		nivel:    "Primaria",
		hours:    map[int]map[int]int{1: {6: 1}, 2: {6: 2}},
		teachers: map[int]map[int]int{1: {6: 1}, 2: {6: 2}},
		omit1h:   true,
	})

	sol := Solve(context.Background(), m, testOptions())
	verifyInvariants(t, m, sol)

	res := timetable.Decode(m, sol)
	for _, d := range res.Details {
		if d.CursoID == 1 {
			assert.Equal(t, 0, d.Asignadas)
		}
		if d.CursoID == 2 {
			assert.Equal(t, 2, d.Asignadas)
		}
	}
}

func TestSolveVersionOneDayDistribution(t *testing.T) {
	m := buildModel(t, fixture{
		nivel:   "Secundaria",
		version: 1,
		hours:   map[int]map[int]int{1: {1: 5}, 2: {1: 4}, 3: {1: 3}},
		teachers: map[int]map[int]int{
			1: {1: 10}, 2: {1: 20}, 3: {1: 30},
		},
		omit1h: true,
	})

	sol := Solve(context.Background(), m, testOptions())
	verifyInvariants(t, m, sol)

	res := timetable.Decode(m, sol)
	assert.Equal(t, 12, res.TotalAssigned)

	// every non-empty day of the grade holds exactly one 3h run and one or
	// two 2h runs
	type comp struct{ threes, twos int }
	byDay := make(map[int]*comp)
	for _, s := range sol.Sessions {
		c := byDay[s.Day]
		if c == nil {
			c = &comp{}
			byDay[s.Day] = c
		}
		switch s.Len {
		case 3:
			c.threes++
		case 2:
			c.twos++
		default:
			t.Fatalf("unexpected session length %d on version 1", s.Len)
		}
	}
	require.NotEmpty(t, byDay)
	for day, c := range byDay {
		assert.Equal(t, 1, c.threes, "day %d should hold one 3h session", day)
		assert.GreaterOrEqual(t, c.twos, 1, "day %d needs a 2h session", day)
		assert.LessOrEqual(t, c.twos, 2, "day %d holds too many 2h sessions", day)
	}
}

func TestSolveHonorsSplitPattern(t *testing.T) {
	m := buildModel(t, fixture{
		nivel:    "Primaria",
		hours:    map[int]map[int]int{1: {6: 6}},
		teachers: map[int]map[int]int{1: {6: 1}},
		patterns: map[int]map[int][]int{1: {6: {2, 2, 2}}},
		omit1h:   true,
	})

	sol := Solve(context.Background(), m, testOptions())
	verifyInvariants(t, m, sol)

	res := timetable.Decode(m, sol)
	require.Equal(t, 6, res.TotalAssigned)

	var lens []int
	for _, s := range sol.Sessions {
		lens = append(lens, s.Len)
	}
	assert.ElementsMatch(t, []int{2, 2, 2}, lens)
}

func TestSolveRespectsAvailabilityWindow(t *testing.T) {
	// teacher 50 may only teach martes blocks 0..1
	m := buildModel(t, fixture{
		nivel: "Secundaria",
		hours: map[int]map[int]int{5: {1: 2}},
		teachers: map[int]map[int]int{
			5: {1: 50},
		},
		restrictions: map[int][]timetable.Slot{
			50: {{Day: 1, Block: 0}, {Day: 1, Block: 1}},
		},
		omit1h: true,
	})

	sol := Solve(context.Background(), m, testOptions())
	verifyInvariants(t, m, sol)

	res := timetable.Decode(m, sol)
	assert.Equal(t, 2, res.TotalAssigned)
	require.Len(t, sol.Sessions, 1)
	assert.Equal(t, 1, sol.Sessions[0].Day)
	assert.Equal(t, 0, sol.Sessions[0].Start)
}

func TestSolveEmptyModel(t *testing.T) {
	m := buildModel(t, fixture{
		nivel:    "Secundaria",
		hours:    map[int]map[int]int{},
		teachers: map[int]map[int]int{},
		omit1h:   true,
	})

	sol := Solve(context.Background(), m, testOptions())
	assert.Equal(t, timetable.StatusOptimal, sol.Status)
	assert.Empty(t, sol.Sessions)
}

func TestSolveProgressTicks(t *testing.T) {
	m := buildModel(t, fixture{
		nivel:    "Primaria",
		hours:    map[int]map[int]int{1: {6: 2}},
		teachers: map[int]map[int]int{1: {6: 1}},
		omit1h:   true,
	})

	var mu sync.Mutex
	var percents []int
	var lastStage string
	opts := testOptions()
	opts.Progress = func(pct int, stage string) {
		mu.Lock()
		percents = append(percents, pct)
		lastStage = stage
		mu.Unlock()
	}

	sol := Solve(context.Background(), m, opts)
	require.NotNil(t, sol)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, percents)
	assert.Equal(t, 100, percents[len(percents)-1])
	assert.Equal(t, "finalizado", lastStage)
}

func TestSolveCancellationReturnsIncumbent(t *testing.T) {
	m := buildModel(t, fixture{
		nivel:    "Primaria",
		hours:    map[int]map[int]int{1: {6: 2}, 2: {6: 4}, 3: {6: 5}},
		teachers: map[int]map[int]int{1: {6: 1}, 2: {6: 2}, 3: {6: 3}},
		omit1h:   true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol := Solve(ctx, m, testOptions())
	require.NotNil(t, sol)
	verifyInvariants(t, m, sol)
}
