package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexID tolerates the mixed id encodings the legacy frontend sends: JSON
// numbers, numeric strings, or garbage. Non-parseable values decode to 0 and
// the normaliser drops the bearing record.
type FlexID int

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	raw := string(data)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// tolerate "3.0" style numbers
		if fl, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			*f = FlexID(int(fl))
			return nil
		}
		*f = 0
		return nil
	}
	*f = FlexID(n)
	return nil
}

func (f FlexID) Int() int { return int(f) }

// Docente carries the teacher record; only the id matters to the generator,
// the rest is passed through for the caller's benefit.
type Docente struct {
	ID           FlexID `json:"id"`
	Nombre       string `json:"nombre"`
	JornadaTotal int    `json:"jornada_total"`
	AulaID       FlexID `json:"aula_id"`
}

// Asignacion binds a (curso, grado) pair to its teacher.
type Asignacion struct {
	DocenteID FlexID `json:"docente_id"`
	CursoID   FlexID `json:"curso_id"`
	GradoID   FlexID `json:"grado_id"`
}

// Reglas holds the data-driven toggles for the session-length rules.
type Reglas struct {
	Omitir1h *bool    `json:"omitir_1h,omitempty"`
	Cursos1h []FlexID `json:"cursos_1h,omitempty"`
}

// GenerateRequest is the body shared by the sync and job endpoints. Maps are
// keyed by string-form ids because that is what the frontend produces; the
// normaliser coerces them once.
type GenerateRequest struct {
	Docentes        []Docente                       `json:"docentes" validate:"required,min=1"`
	Asignaciones    map[string]map[string]Asignacion `json:"asignaciones" validate:"required,min=1"`
	Restricciones   map[string]map[string]bool      `json:"restricciones"`
	HorasCursoGrado map[string]map[string]FlexID    `json:"horas_curso_grado" validate:"required,min=1"`
	Nivel           string                          `json:"nivel"`
	Version         int                             `json:"version"`
	Overwrite       *bool                           `json:"overwrite"`
	Reglas          *Reglas                         `json:"reglas,omitempty"`
	Patrones        map[string]map[string][]int    `json:"patrones,omitempty"`
}

// GenerateResponse mirrors the legacy contract byte for byte.
type GenerateResponse struct {
	Horario               [][][]int `json:"horario"`
	AsignacionesExitosas  int       `json:"asignaciones_exitosas"`
	AsignacionesFallidas  int       `json:"asignaciones_fallidas"`
	TotalBloquesAsignados int       `json:"total_bloques_asignados"`
	Version               int       `json:"version"`
}

// JobAccepted is returned by the job endpoint with HTTP 202.
type JobAccepted struct {
	JobID string `json:"job_id"`
}
