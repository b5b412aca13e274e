package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geison-bit/horarios-api/internal/dto"
	"github.com/geison-bit/horarios-api/internal/service"
	appErrors "github.com/geison-bit/horarios-api/pkg/errors"
	"github.com/geison-bit/horarios-api/pkg/response"
)

// ScheduleHandler exposes the generation endpoints: synchronous, job-based
// with SSE progress, and the stored-schedule read path.
type ScheduleHandler struct {
	generator *service.GeneratorService
	jobs      *service.JobService
	query     *service.ScheduleQueryService
}

func NewScheduleHandler(generator *service.GeneratorService, jobs *service.JobService, query *service.ScheduleQueryService) *ScheduleHandler {
	return &ScheduleHandler{generator: generator, jobs: jobs, query: query}
}

// Generate runs a solve synchronously and returns the legacy flat payload.
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "cuerpo JSON inválido"))
		return
	}

	resp, err := h.generator.Generate(c.Request.Context(), &req, nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.query != nil {
		h.query.Invalidate(c.Request.Context(), nivelOrDefault(req.Nivel))
	}

	response.JSON(c, http.StatusOK, resp)
}

// GenerateJob accepts the same body, queues the solve and returns 202 with
// the job id for the event stream.
func (h *ScheduleHandler) GenerateJob(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cuerpo JSON inválido"})
		return
	}
	if len(req.Docentes) == 0 || len(req.Asignaciones) == 0 || len(req.HorasCursoGrado) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "faltan datos requeridos para generar el horario"})
		return
	}

	id, err := h.jobs.Submit(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, dto.JobAccepted{JobID: id})
}

// JobEvents streams a job's progress as server-sent events. Silence beyond
// the heartbeat window produces `: ping` comment frames; the stream closes
// after the terminal done/error event.
func (h *ScheduleHandler) JobEvents(c *gin.Context) {
	jobID := c.Param("job_id")
	store := h.jobs.Store()
	if !store.Exists(jobID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job no encontrado"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		default:
		}

		ev, ok := store.Drain(jobID, h.jobs.Heartbeat())
		if !ok {
			fmt.Fprint(w, ": ping\n\n")
			return true
		}

		data, err := json.Marshal(ev.Payload)
		if err != nil {
			data = []byte(`{}`)
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		return !ev.Terminal()
	})
}

// Latest serves the stored rows of a level's newest schedule version.
func (h *ScheduleHandler) Latest(c *gin.Context) {
	rows, err := h.query.Latest(c.Request.Context(), nivelOrDefault(c.Param("nivel")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

func nivelOrDefault(nivel string) string {
	if nivel == "" {
		return "Secundaria"
	}
	return nivel
}
