package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geison-bit/horarios-api/internal/dto"
	"github.com/geison-bit/horarios-api/pkg/config"
	"github.com/geison-bit/horarios-api/pkg/jobs"
)

// JobService runs schedule generations in the background and publishes
// their progress to the job store for SSE readers.
type JobService struct {
	generator *GeneratorService
	store     *JobStore
	queue     *jobs.Queue
	logger    *zap.Logger
	ttl       time.Duration
	heartbeat time.Duration
}

// NewJobService wires the background queue. Start must be called before
// submissions are accepted.
func NewJobService(generator *GeneratorService, store *JobStore, logger *zap.Logger, cfg config.JobsConfig) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 20 * time.Second
	}

	j := &JobService{
		generator: generator,
		store:     store,
		logger:    logger,
		ttl:       cfg.TTL,
		heartbeat: cfg.Heartbeat,
	}
	j.queue = jobs.NewQueue("schedule-generation", j.run, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return j
}

// Start launches the queue workers.
func (j *JobService) Start(ctx context.Context) { j.queue.Start(ctx) }

// Stop drains the queue workers.
func (j *JobService) Stop() { j.queue.Stop() }

// Heartbeat is the silence window after which SSE readers emit a ping.
func (j *JobService) Heartbeat() time.Duration { return j.heartbeat }

// Store exposes the job table to the SSE handler.
func (j *JobService) Store() *JobStore { return j.store }

// Submit registers a job and enqueues the generation. The returned id is
// immediately streamable.
func (j *JobService) Submit(req *dto.GenerateRequest) (string, error) {
	id := uuid.NewString()
	j.store.Create(id)
	if err := j.queue.Enqueue(jobs.Job{ID: id, Type: "generate", Payload: req}); err != nil {
		j.store.Evict(id, 0)
		return "", err
	}
	return id, nil
}

func (j *JobService) run(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(*dto.GenerateRequest)
	if !ok {
		j.logger.Error("job payload is not a generation request", zap.String("job_id", job.ID))
		j.store.PushEvent(job.ID, JobEvent{Type: EventError, Payload: map[string]string{"error": "payload inválido"}})
		j.store.Evict(job.ID, j.ttl)
		return nil
	}

	j.store.PushEvent(job.ID, JobEvent{Type: EventProgress, Payload: map[string]interface{}{"progress": 2, "stage": "preparando"}})

	// percent is kept strictly monotonic regardless of tick jitter
	var mu sync.Mutex
	last := 2
	progress := func(pct int, stage string) {
		mu.Lock()
		defer mu.Unlock()
		if pct <= last {
			return
		}
		last = pct
		j.store.PushEvent(job.ID, JobEvent{Type: EventProgress, Payload: map[string]interface{}{"progress": pct, "stage": stage}})
	}

	resp, err := j.generator.Generate(ctx, req, progress)
	if err != nil {
		j.logger.Error("background generation failed", zap.String("job_id", job.ID), zap.Error(err))
		j.store.PushEvent(job.ID, JobEvent{Type: EventError, Payload: map[string]string{"error": err.Error()}})
		j.store.Evict(job.ID, j.ttl)
		return nil
	}

	j.store.PushEvent(job.ID, JobEvent{Type: EventDone, Payload: map[string]interface{}{"result": resp}})
	j.store.Evict(job.ID, j.ttl)
	return nil
}
