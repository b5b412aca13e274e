package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/geison-bit/horarios-api/internal/models"
)

// ScheduleQueryService serves the stored-schedule read path, with an
// optional Redis cache in front of the repository.
type ScheduleQueryService struct {
	repo   ScheduleRepository
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewScheduleQueryService(repo ScheduleRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *ScheduleQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ScheduleQueryService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Latest returns the most recent stored rows for a level. Cache failures
// degrade to the repository silently.
func (s *ScheduleQueryService) Latest(ctx context.Context, nivel string) ([]models.ScheduleRow, error) {
	key := fmt.Sprintf("horarios:%s", nivel)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var rows []models.ScheduleRow
			if jsonErr := json.Unmarshal(raw, &rows); jsonErr == nil {
				return rows, nil
			}
		}
	}

	rows, err := s.repo.ListByNivel(ctx, nivel)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, jsonErr := json.Marshal(rows); jsonErr == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("schedule cache write failed", zap.Error(err))
			}
		}
	}

	return rows, nil
}

// Invalidate drops the cached rows for a level after a new generation.
func (s *ScheduleQueryService) Invalidate(ctx context.Context, nivel string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, fmt.Sprintf("horarios:%s", nivel)).Err(); err != nil {
		s.logger.Warn("schedule cache invalidation failed", zap.Error(err))
	}
}
