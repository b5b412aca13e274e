package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionCandidates(t *testing.T) {
	rules := Rules{Omit1h: true, Allow1hCourse: map[int]bool{9: true}}

	cases := []struct {
		name    string
		req     Requirement
		version int
		want    [][]int
	}{
		{"two hours", Requirement{Hours: 2}, 0, [][]int{{2}}},
		{"three hours", Requirement{Hours: 3}, 0, [][]int{{3}}},
		{"four hours", Requirement{Hours: 4}, 0, [][]int{{2, 2}}},
		{"five hours", Requirement{Hours: 5}, 0, [][]int{{3, 2}}},
		{"six hours", Requirement{Hours: 6}, 0, [][]int{{3, 3}, {2, 2, 2}}},
		{"seven hours", Requirement{Hours: 7}, 0, [][]int{{3, 2, 2}}},
		{"eight hours", Requirement{Hours: 8}, 0, [][]int{{3, 3, 2}, {2, 2, 2, 2}}},
		{"nine hours single run", Requirement{Hours: 9}, 0, [][]int{{9}}},
		{"one hour omitted", Requirement{Hours: 1}, 0, nil},
		{"explicit pattern wins", Requirement{Hours: 5, Pattern: []int{2, 2, 1}}, 0, [][]int{{2, 2, 1}}},
		{"allow-1h course needs version 1", Requirement{Hours: 3, CursoID: 9}, 0, [][]int{{3}}},
		{"allow-1h course on version 1", Requirement{Hours: 3, CursoID: 9}, 1, [][]int{{3}, {2, 1}}},
		{"non-listed course on version 1", Requirement{Hours: 3, CursoID: 5}, 1, [][]int{{3}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SessionCandidates(tc.req, rules, tc.version))
		})
	}
}

func TestSessionCandidatesOmit1hDisabled(t *testing.T) {
	rules := Rules{Omit1h: false, Allow1hCourse: map[int]bool{}}
	assert.Equal(t, [][]int{{1}}, SessionCandidates(Requirement{Hours: 1}, rules, 0))
}
