package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/codegrade/backend/internal/domain"
)

// cachedProblemRepository decorates a ProblemRepository with a Redis
// read-through cache for the task-loaded lookups on the submit hot path.
// Problems are authored out of band, so TTL expiry bounds staleness and no
// invalidation is needed.
type cachedProblemRepository struct {
	inner  domain.ProblemRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProblemRepository wraps repo with a Redis cache
func NewCachedProblemRepository(
	repo domain.ProblemRepository,
	client *redis.Client,
	ttl time.Duration,
	logger *zap.Logger,
) domain.ProblemRepository {
	return &cachedProblemRepository{
		inner:  repo,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func problemCacheKey(id uuid.UUID) string {
	return "problem:tasks:" + id.String()
}

// FindByIDWithTasks serves from cache when possible, falling back to the
// database on any cache miss or Redis error
func (r *cachedProblemRepository) FindByIDWithTasks(id uuid.UUID) (*domain.Problem, error) {
	ctx := context.Background()
	key := problemCacheKey(id)

	if data, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var problem domain.Problem
		if err := json.Unmarshal(data, &problem); err == nil {
			return &problem, nil
		}
		// Unreadable entry, drop it and fall through to the database
		r.client.Del(ctx, key)
	} else if err != redis.Nil {
		r.logger.Warn("Problem cache read failed", zap.Error(err))
	}

	problem, err := r.inner.FindByIDWithTasks(id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(problem); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("Problem cache write failed", zap.Error(err))
		}
	}

	return problem, nil
}

// FindByID delegates to the inner repository
func (r *cachedProblemRepository) FindByID(id uuid.UUID) (*domain.Problem, error) {
	return r.inner.FindByID(id)
}

// FindBySlug delegates to the inner repository
func (r *cachedProblemRepository) FindBySlug(slug string) (*domain.Problem, error) {
	return r.inner.FindBySlug(slug)
}

// FindAll delegates to the inner repository
func (r *cachedProblemRepository) FindAll() ([]domain.Problem, error) {
	return r.inner.FindAll()
}

// FindByDifficulty delegates to the inner repository
func (r *cachedProblemRepository) FindByDifficulty(difficulty domain.Difficulty) ([]domain.Problem, error) {
	return r.inner.FindByDifficulty(difficulty)
}

// Count delegates to the inner repository
func (r *cachedProblemRepository) Count() (int64, error) {
	return r.inner.Count()
}
