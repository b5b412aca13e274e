package timetable

import "sort"

// Requirement is the atomic scheduling unit: one (curso, grado) pair that
// needs Hours weekly blocks from its assigned teacher.
type Requirement struct {
	Index   int
	CursoID int
	GradoID int
	Docente int
	Hours   int
	Pattern []int // optional explicit split, nil when absent
}

// BuildRequirements flattens assignments × hours into the indexed
// requirement list. A pair yields a requirement only when it needs at least
// one hour and has a teacher. Iteration order is made deterministic by
// sorting on (curso, grado); indices are assigned contiguously.
func BuildRequirements(in *Input) []Requirement {
	var reqs []Requirement
	for curso, grados := range in.Hours {
		teachers := in.Assignments[curso]
		if teachers == nil {
			continue
		}
		for grado, horas := range grados {
			docente, ok := teachers[grado]
			if !ok || horas < 1 {
				continue
			}
			pattern := in.Patterns[curso][grado]
			if sum(pattern) != horas {
				pattern = nil
			}
			reqs = append(reqs, Requirement{
				CursoID: curso,
				GradoID: grado,
				Docente: docente,
				Hours:   horas,
				Pattern: pattern,
			})
		}
	}

	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CursoID != reqs[j].CursoID {
			return reqs[i].CursoID < reqs[j].CursoID
		}
		return reqs[i].GradoID < reqs[j].GradoID
	})
	for i := range reqs {
		reqs[i].Index = i
	}
	return reqs
}

// TotalRequiredHours sums the required hours of the requirement list.
func TotalRequiredHours(reqs []Requirement) int {
	total := 0
	for _, r := range reqs {
		total += r.Hours
	}
	return total
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
