package timetable

// Availability is the dense blocked-slot set compiled from the teacher
// whitelists. Primaria schedules are unrestricted by policy, as is any
// teacher without a rule map.
type Availability struct {
	days    int
	blocks  int
	blocked map[int][]bool // teacher → day*blocks bitmap
}

// CompileAvailability inverts the per-teacher whitelists into a blocked set.
func CompileAvailability(in *Input) *Availability {
	av := &Availability{
		days:    NumDays,
		blocks:  in.Blocks,
		blocked: make(map[int][]bool),
	}

	if IsPrimaria(in.Nivel) {
		return av
	}

	for teacher, hasRules := range in.HasRules {
		if !hasRules {
			continue
		}
		allowed := in.Allowed[teacher]
		bitmap := make([]bool, NumDays*in.Blocks)
		for d := 0; d < NumDays; d++ {
			for b := 0; b < in.Blocks; b++ {
				if !allowed[Slot{Day: d, Block: b}] {
					bitmap[d*in.Blocks+b] = true
				}
			}
		}
		av.blocked[teacher] = bitmap
	}

	return av
}

// Blocked reports whether the teacher may not teach at (day, block).
func (a *Availability) Blocked(teacher, day, block int) bool {
	bitmap, ok := a.blocked[teacher]
	if !ok {
		return false
	}
	return bitmap[day*a.blocks+block]
}

// FreeSlots counts the teacher's schedulable cells on the whole grid.
func (a *Availability) FreeSlots(teacher int) int {
	bitmap, ok := a.blocked[teacher]
	if !ok {
		return a.days * a.blocks
	}
	free := 0
	for _, blocked := range bitmap {
		if !blocked {
			free++
		}
	}
	return free
}

// TriviallyInfeasible flags requirements whose teacher cannot possibly
// supply the required hours. Diagnostic only: the solve proceeds and the
// shortfall surfaces as slack.
func (a *Availability) TriviallyInfeasible(reqs []Requirement) []Requirement {
	var flagged []Requirement
	for _, r := range reqs {
		if r.Hours > a.FreeSlots(r.Docente) {
			flagged = append(flagged, r)
		}
	}
	return flagged
}
