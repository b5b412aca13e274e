package service

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/geison-bit/horarios-api/internal/dto"
	"github.com/geison-bit/horarios-api/internal/models"
	"github.com/geison-bit/horarios-api/internal/solver"
	"github.com/geison-bit/horarios-api/internal/timetable"
	"github.com/geison-bit/horarios-api/pkg/config"
	appErrors "github.com/geison-bit/horarios-api/pkg/errors"
)

// ScheduleRepository is the persistence boundary for generated timetables.
type ScheduleRepository interface {
	NextVersion(ctx context.Context, nivel string) (int, error)
	Save(ctx context.Context, nivel string, version int, rows []models.ScheduleRow, overwrite bool) error
	ListByNivel(ctx context.Context, nivel string) ([]models.ScheduleRow, error)
}

// GeneratorService runs the full pipeline: normalise, build the model,
// solve, decode, persist, and shape the legacy response.
type GeneratorService struct {
	repo      ScheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
	solverCfg config.SolverConfig
	metrics   *MetricsService
}

// NewGeneratorService wires the generator dependencies.
func NewGeneratorService(repo ScheduleRepository, validate *validator.Validate, logger *zap.Logger, solverCfg config.SolverConfig, metrics *MetricsService) *GeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeneratorService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		solverCfg: solverCfg,
		metrics:   metrics,
	}
}

// Generate produces, persists and returns a schedule. The progress callback
// is optional and receives (percent, stage) ticks while the solver runs.
func (s *GeneratorService) Generate(ctx context.Context, req *dto.GenerateRequest, progress func(int, string)) (*dto.GenerateResponse, error) {
	started := time.Now()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "faltan datos requeridos para generar el horario")
	}

	in, err := timetable.Normalize(req)
	if err != nil {
		return nil, err
	}

	reqs := timetable.BuildRequirements(in)
	av := timetable.CompileAvailability(in)

	for _, r := range av.TriviallyInfeasible(reqs) {
		s.logger.Warn("requirement cannot be fully scheduled",
			zap.Int("curso_id", r.CursoID),
			zap.Int("grado_id", r.GradoID),
			zap.Int("docente_id", r.Docente),
			zap.Int("horas", r.Hours),
			zap.Int("bloques_libres", av.FreeSlots(r.Docente)),
		)
	}

	model := timetable.BuildModel(in, reqs, av, s.solverCfg.DailyCap)

	sol := solver.Solve(ctx, model, solver.Options{
		MaxTime:  s.solverCfg.MaxTime,
		Workers:  s.solverCfg.Workers,
		Progress: progress,
		Logger:   s.logger,
	})

	result := timetable.Decode(model, sol)
	s.logResult(in.Nivel, result)
	if s.metrics != nil {
		s.metrics.ObserveSolve(result.Status, time.Since(started), result.TotalAssigned, result.TotalRequired)
	}

	version := 1
	if s.repo != nil {
		version, err = s.repo.NextVersion(ctx, in.Nivel)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "no se pudo calcular la versión del horario")
		}
	}

	rows := buildRows(result, in.RawAsignaciones, in.Nivel, version, in.Blocks)
	if s.repo != nil && len(rows) > 0 {
		overwrite := true
		if req.Overwrite != nil {
			overwrite = *req.Overwrite
		}
		if err := s.repo.Save(ctx, in.Nivel, version, rows, overwrite); err != nil {
			return nil, err
		}
	}

	return &dto.GenerateResponse{
		Horario:               result.Grid(in.Nivel, in.Blocks),
		AsignacionesExitosas:  result.Succeeded,
		AsignacionesFallidas:  result.Failed,
		TotalBloquesAsignados: result.TotalAssigned,
		Version:               version,
	}, nil
}

func (s *GeneratorService) logResult(nivel string, result *timetable.Result) {
	s.logger.Info("schedule generated",
		zap.String("nivel", nivel),
		zap.String("status", result.Status),
		zap.Int("bloques_asignados", result.TotalAssigned),
		zap.Int("bloques_requeridos", result.TotalRequired),
		zap.Int("exitosas", result.Succeeded),
		zap.Int("fallidas", result.Failed),
		zap.Float64("proporcion", result.Proportion),
		zap.Float64("z", result.ZScore),
		zap.Bool("significativo", result.Significant),
	)
	for _, d := range result.Details {
		if d.Slack > 0 {
			s.logger.Warn("hours missing",
				zap.Int("curso_id", d.CursoID),
				zap.Int("grado_id", d.GradoID),
				zap.Int("asignadas", d.Asignadas),
				zap.Int("requeridas", d.Requeridas),
			)
		}
	}
}

// buildRows flattens the sparse schedule into store rows. The teacher id is
// resolved from the original assignment map, which keeps its string-form
// keys; cells whose course id is zero or lack a teacher are filtered out.
func buildRows(result *timetable.Result, asignaciones map[string]map[string]dto.Asignacion, nivel string, version, blocks int) []models.ScheduleRow {
	var rows []models.ScheduleRow
	for d := 0; d < timetable.NumDays; d++ {
		for b := 0; b < blocks; b++ {
			for grado, curso := range result.Schedule[d][b] {
				if curso <= 0 {
					continue
				}
				asig, ok := asignaciones[strconv.Itoa(curso)][strconv.Itoa(grado)]
				if !ok || asig.DocenteID.Int() == 0 {
					continue
				}
				rows = append(rows, models.ScheduleRow{
					DocenteID: asig.DocenteID.Int(),
					CursoID:   curso,
					GradoID:   grado,
					Dia:       timetable.Days[d],
					Bloque:    b,
					Nivel:     nivel,
					Horario:   version,
				})
			}
		}
	}
	return rows
}
