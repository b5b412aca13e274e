package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testModel(reqs []Requirement, blocks int) *Model {
	noPattern := make([]bool, len(reqs))
	for i := range reqs {
		noPattern[i] = reqs[i].Pattern == nil
	}
	return &Model{
		Reqs:         reqs,
		Availability: &Availability{days: NumDays, blocks: blocks, blocked: map[int][]bool{}},
		Blocks:       blocks,
		Weights:      DefaultWeights,
		NoPattern:    noPattern,
	}
}

func TestEvaluateSlackDominates(t *testing.T) {
	m := testModel([]Requirement{{CursoID: 1, GradoID: 1, Docente: 1, Hours: 2}}, 8)

	assert.Equal(t, int64(200000), m.Evaluate(nil))

	// a fully placed run at the day edge costs only one break
	obj := m.Evaluate([]Session{{Req: 0, Day: 0, Start: 0, Len: 2}})
	assert.Equal(t, int64(50), obj)
}

func TestEvaluateBreaks(t *testing.T) {
	m := testModel([]Requirement{{CursoID: 1, GradoID: 1, Docente: 1, Hours: 2}}, 8)

	// interior run: transitions on both sides
	obj := m.Evaluate([]Session{{Req: 0, Day: 0, Start: 3, Len: 2}})
	// 2 breaks plus the gaps below the run (blocks 0..2 idle before block 4)
	assert.Equal(t, int64(2*50+3*200), obj)

	// run ending at the last block
	obj = m.Evaluate([]Session{{Req: 0, Day: 0, Start: 6, Len: 2}})
	assert.Equal(t, int64(50+6*200), obj)
}

func TestEvaluateGaps(t *testing.T) {
	m := testModel([]Requirement{
		{CursoID: 1, GradoID: 1, Docente: 1, Hours: 2},
		{CursoID: 2, GradoID: 1, Docente: 2, Hours: 2},
	}, 8)

	// same grade, hole at block 2
	obj := m.Evaluate([]Session{
		{Req: 0, Day: 0, Start: 0, Len: 2},
		{Req: 1, Day: 0, Start: 3, Len: 2},
	})
	// one gap, three breaks (req 0 upper edge, req 1 both edges)
	assert.Equal(t, int64(200+3*50), obj)
}

func TestEvaluateAdjacentDays(t *testing.T) {
	m := testModel([]Requirement{{CursoID: 1, GradoID: 1, Docente: 1, Hours: 5}}, 8)

	adjacent := m.Evaluate([]Session{
		{Req: 0, Day: 0, Start: 0, Len: 3},
		{Req: 0, Day: 1, Start: 0, Len: 2},
	})
	spread := m.Evaluate([]Session{
		{Req: 0, Day: 0, Start: 0, Len: 3},
		{Req: 0, Day: 2, Start: 0, Len: 2},
	})
	assert.Equal(t, int64(80), adjacent-spread)
}

func TestAssignedHours(t *testing.T) {
	m := testModel([]Requirement{
		{Hours: 5}, {Hours: 2},
	}, 8)
	assigned := m.AssignedHours([]Session{
		{Req: 0, Day: 0, Start: 0, Len: 3},
		{Req: 0, Day: 2, Start: 0, Len: 2},
		{Req: 1, Day: 1, Start: 0, Len: 2},
	})
	assert.Equal(t, []int{5, 2}, assigned)
}
