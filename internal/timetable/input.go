package timetable

import (
	"strconv"
	"strings"

	"github.com/geison-bit/horarios-api/internal/dto"
	appErrors "github.com/geison-bit/horarios-api/pkg/errors"
)

// Slot identifies one cell of the weekly grid.
type Slot struct {
	Day   int
	Block int
}

// Rules carries the data-driven session-length toggles resolved from the
// payload's `reglas` map.
type Rules struct {
	Omit1h        bool
	Allow1hCourse map[int]bool
}

// Input is the normalised payload every downstream component consumes.
// Identifiers are coerced to int exactly once; RawAsignaciones keeps the
// original string-keyed map for the persistence adapter, which looks
// teachers up by string-form ids.
type Input struct {
	TeacherIDs      []int
	Assignments     map[int]map[int]int // curso → grado → docente
	Hours           map[int]map[int]int // curso → grado → horas
	Allowed         map[int]map[Slot]bool
	HasRules        map[int]bool
	Patterns        map[int]map[int][]int
	Rules           Rules
	Nivel           string
	Version         int
	Blocks          int
	RawAsignaciones map[string]map[string]dto.Asignacion
}

// defaultAllow1h mirrors the course ids the legacy rule set pinned to the
// 2+1 split; callers override it through reglas.cursos_1h.
var defaultAllow1h = []int{9, 12}

// Normalize validates and coerces the raw request. It fails only on
// structurally empty input; per-record garbage is dropped.
func Normalize(req *dto.GenerateRequest) (*Input, error) {
	if req == nil || len(req.Docentes) == 0 || len(req.Asignaciones) == 0 || len(req.HorasCursoGrado) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "faltan datos requeridos para generar el horario")
	}

	nivel := strings.TrimSpace(req.Nivel)
	if nivel == "" {
		nivel = "Secundaria"
	}

	in := &Input{
		Assignments:     make(map[int]map[int]int),
		Hours:           make(map[int]map[int]int),
		Allowed:         make(map[int]map[Slot]bool),
		HasRules:        make(map[int]bool),
		Patterns:        make(map[int]map[int][]int),
		Nivel:           nivel,
		Version:         req.Version,
		Blocks:          BlocksFor(req.Version),
		RawAsignaciones: req.Asignaciones,
	}

	for _, doc := range req.Docentes {
		if doc.ID.Int() == 0 {
			continue
		}
		in.TeacherIDs = append(in.TeacherIDs, doc.ID.Int())
	}

	for cursoKey, grados := range req.Asignaciones {
		curso := parseID(cursoKey)
		if curso == 0 {
			continue
		}
		for gradoKey, asig := range grados {
			grado := parseID(gradoKey)
			if grado == 0 || asig.DocenteID.Int() == 0 {
				continue
			}
			if in.Assignments[curso] == nil {
				in.Assignments[curso] = make(map[int]int)
			}
			in.Assignments[curso][grado] = asig.DocenteID.Int()
		}
	}

	for cursoKey, grados := range req.HorasCursoGrado {
		curso := parseID(cursoKey)
		if curso == 0 {
			continue
		}
		for gradoKey, horas := range grados {
			grado := parseID(gradoKey)
			if grado == 0 {
				continue
			}
			if in.Hours[curso] == nil {
				in.Hours[curso] = make(map[int]int)
			}
			in.Hours[curso][grado] = horas.Int()
		}
	}

	normalizeRestrictions(req.Restricciones, in)

	for cursoKey, grados := range req.Patrones {
		curso := parseID(cursoKey)
		if curso == 0 {
			continue
		}
		for gradoKey, pattern := range grados {
			grado := parseID(gradoKey)
			if grado == 0 || len(pattern) == 0 {
				continue
			}
			clean := make([]int, 0, len(pattern))
			for _, seg := range pattern {
				if seg < 1 {
					clean = nil
					break
				}
				clean = append(clean, seg)
			}
			if clean == nil {
				continue
			}
			if in.Patterns[curso] == nil {
				in.Patterns[curso] = make(map[int][]int)
			}
			in.Patterns[curso][grado] = clean
		}
	}

	in.Rules = resolveRules(req.Reglas)

	return in, nil
}

func resolveRules(reglas *dto.Reglas) Rules {
	rules := Rules{Omit1h: true, Allow1hCourse: make(map[int]bool)}
	for _, id := range defaultAllow1h {
		rules.Allow1hCourse[id] = true
	}
	if reglas == nil {
		return rules
	}
	if reglas.Omitir1h != nil {
		rules.Omit1h = *reglas.Omitir1h
	}
	if len(reglas.Cursos1h) > 0 {
		rules.Allow1hCourse = make(map[int]bool, len(reglas.Cursos1h))
		for _, id := range reglas.Cursos1h {
			if id.Int() != 0 {
				rules.Allow1hCourse[id.Int()] = true
			}
		}
	}
	return rules
}

// normalizeRestrictions parses "dia-bloque" whitelist keys. Block indices in
// the wild are sometimes 1-based; when the payload contains a block 1 but
// never a block 0, every index is rebased down by one.
func normalizeRestrictions(raw map[string]map[string]bool, in *Input) {
	type parsedRule struct {
		teacher int
		day     int
		block   int
	}

	var rules []parsedRule
	sawZero, sawOne := false, false

	for teacherKey, slots := range raw {
		teacher := parseID(teacherKey)
		if teacher == 0 {
			continue
		}
		in.HasRules[teacher] = true
		for slotKey, allowed := range slots {
			if !allowed {
				continue
			}
			day, block, ok := parseSlotKey(slotKey)
			if !ok {
				continue
			}
			if block == 0 {
				sawZero = true
			}
			if block == 1 {
				sawOne = true
			}
			rules = append(rules, parsedRule{teacher: teacher, day: day, block: block})
		}
	}

	rebase := sawOne && !sawZero

	for _, r := range rules {
		block := r.block
		if rebase {
			block--
		}
		if block < 0 || block >= in.Blocks {
			continue
		}
		if in.Allowed[r.teacher] == nil {
			in.Allowed[r.teacher] = make(map[Slot]bool)
		}
		in.Allowed[r.teacher][Slot{Day: r.day, Block: block}] = true
	}
}

func parseSlotKey(key string) (day, block int, ok bool) {
	idx := strings.LastIndex(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return 0, 0, false
	}
	day, found := DayIndex(key[:idx])
	if !found {
		return 0, 0, false
	}
	block, err := strconv.Atoi(strings.TrimSpace(key[idx+1:]))
	if err != nil || block < 0 {
		return 0, 0, false
	}
	return day, block, true
}

func parseID(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
