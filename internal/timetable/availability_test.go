package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geison-bit/horarios-api/internal/dto"
)

func TestCompileAvailabilityInvertsWhitelist(t *testing.T) {
	req := validRequest()
	req.Restricciones = map[string]map[string]bool{
		"1": {"lunes-0": true, "martes-3": true},
	}
	in, err := Normalize(req)
	require.NoError(t, err)

	av := CompileAvailability(in)

	assert.False(t, av.Blocked(1, 0, 0))
	assert.False(t, av.Blocked(1, 1, 3))
	assert.True(t, av.Blocked(1, 0, 1))
	assert.True(t, av.Blocked(1, 4, 7))
	assert.Equal(t, 2, av.FreeSlots(1))

	// teacher without a rule map is unrestricted
	assert.False(t, av.Blocked(99, 3, 5))
	assert.Equal(t, 40, av.FreeSlots(99))
}

func TestCompileAvailabilityPrimariaUnrestricted(t *testing.T) {
	req := validRequest()
	req.Nivel = "Primaria"
	req.Restricciones = map[string]map[string]bool{
		"1": {"lunes-0": true},
	}
	in, err := Normalize(req)
	require.NoError(t, err)

	av := CompileAvailability(in)
	assert.False(t, av.Blocked(1, 4, 7))
	assert.Equal(t, 40, av.FreeSlots(1))
}

func TestTriviallyInfeasible(t *testing.T) {
	req := validRequest()
	req.HorasCursoGrado = map[string]map[string]dto.FlexID{"1": {"1": 3}}
	req.Restricciones = map[string]map[string]bool{
		"1": {"lunes-0": true, "lunes-2": true},
	}
	in, err := Normalize(req)
	require.NoError(t, err)

	reqs := BuildRequirements(in)
	av := CompileAvailability(in)

	flagged := av.TriviallyInfeasible(reqs)
	require.Len(t, flagged, 1)
	assert.Equal(t, 1, flagged[0].CursoID)
}

func TestTriviallyInfeasibleEmptyWhitelist(t *testing.T) {
	req := validRequest()
	req.HorasCursoGrado = map[string]map[string]dto.FlexID{"1": {"1": 2}}
	req.Restricciones = map[string]map[string]bool{"1": {}}
	in, err := Normalize(req)
	require.NoError(t, err)

	reqs := BuildRequirements(in)
	av := CompileAvailability(in)

	assert.Equal(t, 0, av.FreeSlots(1))
	assert.Len(t, av.TriviallyInfeasible(reqs), 1)
}
