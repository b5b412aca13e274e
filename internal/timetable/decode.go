package timetable

import (
	"math"
	"strings"
)

// RequirementReport is the per-requirement line of the coverage summary.
type RequirementReport struct {
	CursoID    int
	GradoID    int
	DocenteID  int
	Requeridas int
	Asignadas  int
	Slack      int
	OK         bool
}

// Result is the decoded solve outcome: the sparse schedule plus the
// coverage counters and the one-sample Z-statistic against full coverage.
type Result struct {
	Schedule      map[int]map[int]map[int]int // day → block → grado → curso
	Details       []RequirementReport
	TotalAssigned int
	TotalRequired int
	Succeeded     int
	Failed        int
	Proportion    float64
	ZScore        float64
	Significant   bool
	Status        string
	Objective     int64
}

// zCritical is the two-sided 5% significance threshold.
const zCritical = 1.96

// Decode materialises the sparse schedule from the solver's sessions and
// computes the reporting metrics.
func Decode(m *Model, sol *Solution) *Result {
	res := &Result{
		Schedule:  make(map[int]map[int]map[int]int),
		Status:    sol.Status,
		Objective: sol.Objective,
	}

	assigned := m.AssignedHours(sol.Sessions)

	for _, s := range sol.Sessions {
		r := m.Reqs[s.Req]
		for b := s.Start; b < s.Start+s.Len; b++ {
			if res.Schedule[s.Day] == nil {
				res.Schedule[s.Day] = make(map[int]map[int]int)
			}
			if res.Schedule[s.Day][b] == nil {
				res.Schedule[s.Day][b] = make(map[int]int)
			}
			res.Schedule[s.Day][b][r.GradoID] = r.CursoID
		}
	}

	for i, r := range m.Reqs {
		slack := r.Hours - assigned[i]
		report := RequirementReport{
			CursoID:    r.CursoID,
			GradoID:    r.GradoID,
			DocenteID:  r.Docente,
			Requeridas: r.Hours,
			Asignadas:  assigned[i],
			Slack:      slack,
			OK:         slack == 0,
		}
		res.Details = append(res.Details, report)
		res.TotalAssigned += assigned[i]
		res.TotalRequired += r.Hours
		if slack > 0 {
			res.Failed++
		} else {
			res.Succeeded++
		}
	}

	if res.TotalRequired > 0 {
		res.Proportion = float64(res.TotalAssigned) / float64(res.TotalRequired)
		// one-sample test vs p0 = 1 with continuity variance 1/(4n)
		res.ZScore = (res.Proportion - 1) * 2 * math.Sqrt(float64(res.TotalRequired))
		res.Significant = math.Abs(res.ZScore) >= zCritical
	} else {
		res.Proportion = 1
	}

	return res
}

// Grid shapes the sparse schedule into the frontend matrix
// [day][block][grade position] of course id or 0. Grade positions follow
// the level: Primaria lists grades 6..11, everything else 1..5.
func (r *Result) Grid(nivel string, blocks int) [][][]int {
	grades := GradeIDs(nivel)
	grid := make([][][]int, NumDays)
	for d := 0; d < NumDays; d++ {
		grid[d] = make([][]int, blocks)
		for b := 0; b < blocks; b++ {
			row := make([]int, len(grades))
			for gi, grade := range grades {
				row[gi] = r.Schedule[d][b][grade]
			}
			grid[d][b] = row
		}
	}
	return grid
}

// IsPrimaria normalises the level comparison used around the decoder.
func IsPrimaria(nivel string) bool {
	return strings.EqualFold(nivel, "Primaria")
}
