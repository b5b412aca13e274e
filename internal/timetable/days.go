package timetable

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Days holds the canonical accented day names, in grid order. Output rows
// always carry these spellings; comparisons go through FoldDay.
var Days = [NumDays]string{"lunes", "martes", "miércoles", "jueves", "viernes"}

const NumDays = 5

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldDay lowers a day name to its ASCII comparison form: lowercase with
// diacritics stripped ("Miércoles" → "miercoles").
func FoldDay(name string) string {
	folded, _, err := transform.String(foldTransformer, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(name))
	}
	return folded
}

var dayIndexByFolded = func() map[string]int {
	m := make(map[string]int, NumDays)
	for i, d := range Days {
		m[FoldDay(d)] = i
	}
	return m
}()

// DayIndex resolves a day name, accented or not, to its 0-based index.
func DayIndex(name string) (int, bool) {
	idx, ok := dayIndexByFolded[FoldDay(name)]
	return idx, ok
}

// BlocksFor returns the daily block count for a schedule version: the
// version-1 grid runs 7 blocks, every other version 8.
func BlocksFor(version int) int {
	if version == 1 {
		return 7
	}
	return 8
}

// GradeIDs returns the grade set for a level: Primaria spans 6..11, any
// other level 1..5.
func GradeIDs(nivel string) []int {
	if strings.EqualFold(nivel, "Primaria") {
		return []int{6, 7, 8, 9, 10, 11}
	}
	return []int{1, 2, 3, 4, 5}
}
