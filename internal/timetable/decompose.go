package timetable

// SessionCandidates returns the ordered list of session-length
// decompositions to try for a requirement. The first candidate is the
// preferred pedagogical split; later entries are fallbacks. An empty result
// means the requirement is never scheduled (its hours become slack).
//
// Single-hour days are forbidden except through an explicit pattern, the
// version-1 allow-1h course set, or omit_1h being switched off.
func SessionCandidates(r Requirement, rules Rules, version int) [][]int {
	if r.Pattern != nil {
		return [][]int{r.Pattern}
	}

	switch r.Hours {
	case 1:
		if rules.Omit1h {
			return nil
		}
		return [][]int{{1}}
	case 2:
		return [][]int{{2}}
	case 3:
		if version == 1 && rules.Allow1hCourse[r.CursoID] {
			return [][]int{{3}, {2, 1}}
		}
		return [][]int{{3}}
	case 4:
		return [][]int{{2, 2}}
	case 5:
		return [][]int{{3, 2}}
	case 6:
		return [][]int{{3, 3}, {2, 2, 2}}
	case 7:
		return [][]int{{3, 2, 2}}
	case 8:
		return [][]int{{3, 3, 2}, {2, 2, 2, 2}}
	default:
		return [][]int{{r.Hours}}
	}
}
