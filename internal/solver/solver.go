package solver

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/geison-bit/horarios-api/internal/timetable"
)

const (
	defaultMaxTime = 30 * time.Second
	maxAllowedTime = 1200 * time.Second
	defaultWorkers = 8

	// a worker gives up after this many restarts without improving the
	// shared incumbent, so easy instances finish well before the cap
	stallLimit = 25

	improveIterations = 120
)

// Options configure one solve invocation.
type Options struct {
	MaxTime  time.Duration
	Workers  int
	Seed     int64
	Progress func(percent int, stage string)
	Logger   *zap.Logger
}

// Solve runs the portfolio search over the placement model under a
// wall-clock budget and returns the best incumbent. Cancellation through
// ctx is advisory: workers finish their current restart and the incumbent
// found so far is returned, never an error.
func Solve(ctx context.Context, m *timetable.Model, opts Options) *timetable.Solution {
	if opts.MaxTime <= 0 {
		opts.MaxTime = defaultMaxTime
	}
	if opts.MaxTime > maxAllowedTime {
		opts.MaxTime = maxAllowedTime
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(m.Reqs) == 0 {
		emitFinal(opts.Progress)
		return &timetable.Solution{Status: timetable.StatusOptimal}
	}

	solveCtx, cancel := context.WithTimeout(ctx, opts.MaxTime)
	defer cancel()

	start := time.Now()
	stopTicks := make(chan struct{})
	if opts.Progress != nil {
		go progressLoop(opts.Progress, start, opts.MaxTime, stopTicks)
	}

	var (
		mu      sync.Mutex
		best    []timetable.Session
		bestObj = int64(1) << 62
	)

	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			s := &searcher{m: m, rng: rand.New(rand.NewSource(opts.Seed + int64(worker)))}
			stalls := 0
			for stalls < stallLimit {
				select {
				case <-solveCtx.Done():
					return
				default:
				}

				g := s.construct()
				improved, obj := s.improve(g, improveIterations)

				mu.Lock()
				if obj < bestObj {
					bestObj = obj
					best = improved.sessions()
					stalls = 0
				} else {
					stalls++
				}
				done := bestObj == 0
				mu.Unlock()

				if done {
					cancel()
					return
				}
			}
		}(w)
	}
	wg.Wait()

	close(stopTicks)
	emitFinal(opts.Progress)

	if best == nil {
		bestObj = m.Evaluate(nil)
	}

	sol := &timetable.Solution{Sessions: best, Objective: bestObj}
	assigned := 0
	for _, s := range sol.Sessions {
		assigned += s.Len
	}
	required := timetable.TotalRequiredHours(m.Reqs)

	switch {
	case assigned == 0 && required > 0:
		sol.Status = timetable.StatusInfeasible
	case assigned == required:
		sol.Status = timetable.StatusOptimal
	default:
		sol.Status = timetable.StatusFeasible
	}

	logger.Info("solve finished",
		zap.String("status", sol.Status),
		zap.Int64("objective", sol.Objective),
		zap.Int("assigned_blocks", assigned),
		zap.Int("required_blocks", required),
		zap.Duration("elapsed", time.Since(start)),
	)

	return sol
}

// progressLoop ticks once per second with a percentage bounded at 95; the
// caller emits the terminal 100 itself.
func progressLoop(progress func(int, string), start time.Time, maxTime time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			pct := int(elapsed * 100 / maxTime)
			if pct > 95 {
				pct = 95
			}
			progress(pct, "resolviendo")
		}
	}
}

func emitFinal(progress func(int, string)) {
	if progress != nil {
		progress(100, "finalizado")
	}
}
