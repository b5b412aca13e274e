package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/geison-bit/horarios-api/internal/models"
	appErrors "github.com/geison-bit/horarios-api/pkg/errors"
)

// Conflict codes the store is allowed to recover from: unique violation and
// an ON CONFLICT target that does not match the live unique index.
const (
	pqUniqueViolation = "23505"
	pqInvalidConflict = "42P10"
)

// ScheduleRepository persists generated timetables in the `horarios` table.
// The table carries a unique index on (grado_id, dia, bloque).
type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// NextVersion returns the next incremental version number for a level.
func (r *ScheduleRepository) NextVersion(ctx context.Context, nivel string) (int, error) {
	var max int
	err := r.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(horario), 0) FROM horarios WHERE nivel = $1`, nivel)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "no se pudo leer la versión del horario")
	}
	return max + 1, nil
}

// Save writes the rows. With overwrite the (nivel, version) slice is
// deleted and re-inserted; otherwise an upsert keyed on the unique index is
// attempted first and known conflict codes silently fall back to
// delete-then-insert. Any other store error surfaces unchanged.
func (r *ScheduleRepository) Save(ctx context.Context, nivel string, version int, rows []models.ScheduleRow, overwrite bool) error {
	if len(rows) == 0 {
		return nil
	}

	if overwrite {
		return r.replace(ctx, nivel, version, rows)
	}

	if err := r.upsert(ctx, rows); err != nil {
		if isRecoverableConflict(err) {
			return r.replace(ctx, nivel, version, rows)
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "no se pudo guardar el horario")
	}
	return nil
}

// ListByNivel returns the rows of the latest stored version for a level.
func (r *ScheduleRepository) ListByNivel(ctx context.Context, nivel string) ([]models.ScheduleRow, error) {
	rows := []models.ScheduleRow{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT docente_id, curso_id, grado_id, dia, bloque, nivel, horario
		FROM horarios
		WHERE nivel = $1
		  AND horario = (SELECT COALESCE(MAX(horario), 0) FROM horarios WHERE nivel = $1)
		ORDER BY dia, bloque, grado_id`, nivel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "no se pudo listar el horario")
	}
	return rows, nil
}

func (r *ScheduleRepository) upsert(ctx context.Context, rows []models.ScheduleRow) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO horarios (docente_id, curso_id, grado_id, dia, bloque, nivel, horario)
		VALUES (:docente_id, :curso_id, :grado_id, :dia, :bloque, :nivel, :horario)
		ON CONFLICT (grado_id, dia, bloque) DO UPDATE SET
			docente_id = EXCLUDED.docente_id,
			curso_id = EXCLUDED.curso_id,
			nivel = EXCLUDED.nivel,
			horario = EXCLUDED.horario`, rows)
	return err
}

func (r *ScheduleRepository) replace(ctx context.Context, nivel string, version int, rows []models.ScheduleRow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "no se pudo abrir la transacción")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM horarios WHERE nivel = $1 AND horario = $2`, nivel, version); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "no se pudo limpiar el horario anterior")
	}

	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO horarios (docente_id, curso_id, grado_id, dia, bloque, nivel, horario)
		VALUES (:docente_id, :curso_id, :grado_id, :dia, :bloque, :nivel, :horario)`, rows); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "no se pudo insertar el horario")
	}

	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "no se pudo confirmar la transacción")
	}
	return nil
}

func isRecoverableConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	code := string(pqErr.Code)
	return code == pqUniqueViolation || code == pqInvalidConflict
}
