package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geison-bit/horarios-api/internal/dto"
	"github.com/geison-bit/horarios-api/pkg/config"
)

func newTestJobService(t *testing.T) *JobService {
	t.Helper()
	generator := NewGeneratorService(nil, nil, zap.NewNop(), testSolverConfig(), nil)
	svc := NewJobService(generator, NewJobStore(), zap.NewNop(), config.JobsConfig{
		Workers:   1,
		TTL:       time.Minute,
		Heartbeat: 100 * time.Millisecond,
	})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func drainAll(t *testing.T, svc *JobService, id string) []JobEvent {
	t.Helper()
	var events []JobEvent
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		ev, ok := svc.Store().Drain(id, 500*time.Millisecond)
		if !ok {
			continue
		}
		events = append(events, ev)
		if ev.Terminal() {
			return events
		}
	}
	t.Fatal("job never reached a terminal event")
	return nil
}

func TestJobServiceRunsGeneration(t *testing.T) {
	svc := newTestJobService(t)

	id, err := svc.Submit(minimalRequest())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.True(t, svc.Store().Exists(id))

	events := drainAll(t, svc, id)
	require.NotEmpty(t, events)

	first := events[0]
	assert.Equal(t, EventProgress, first.Type)
	payload, ok := first.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, payload["progress"])
	assert.Equal(t, "preparando", payload["stage"])

	last := events[len(events)-1]
	assert.Equal(t, EventDone, last.Type)
	donePayload, ok := last.Payload.(map[string]interface{})
	require.True(t, ok)
	resp, ok := donePayload["result"].(*dto.GenerateResponse)
	require.True(t, ok)
	assert.Equal(t, 2, resp.TotalBloquesAsignados)

	// progress strictly monotonic
	lastPct := -1
	for _, ev := range events[:len(events)-1] {
		p, ok := ev.Payload.(map[string]interface{})
		require.True(t, ok)
		pct := p["progress"].(int)
		assert.Greater(t, pct, lastPct)
		lastPct = pct
	}
}

func TestJobServiceReportsErrors(t *testing.T) {
	svc := newTestJobService(t)

	id, err := svc.Submit(&dto.GenerateRequest{})
	require.NoError(t, err)

	events := drainAll(t, svc, id)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	payload, ok := last.Payload.(map[string]string)
	require.True(t, ok)
	assert.NotEmpty(t, payload["error"])
}
