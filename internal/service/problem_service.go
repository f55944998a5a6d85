package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/codegrade/backend/internal/domain"
)

// ProblemService handles problem-related business logic. Problems and tasks
// are authored elsewhere; this service only reads them.
type ProblemService struct {
	problemRepo domain.ProblemRepository
	tracer      trace.Tracer
	logger      *zap.Logger
}

// NewProblemService creates a new problem service
func NewProblemService(
	problemRepo domain.ProblemRepository,
	tracer trace.Tracer,
	logger *zap.Logger,
) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		tracer:      tracer,
		logger:      logger,
	}
}

// GetAllProblems returns all problems
func (s *ProblemService) GetAllProblems(ctx context.Context) ([]domain.Problem, error) {
	ctx, span := s.tracer.Start(ctx, "ProblemService.GetAllProblems")
	defer span.End()

	return s.problemRepo.FindAll()
}

// GetProblemByID returns a specific problem with its tasks loaded
func (s *ProblemService) GetProblemByID(ctx context.Context, id uuid.UUID) (*domain.Problem, error) {
	ctx, span := s.tracer.Start(ctx, "ProblemService.GetProblemByID")
	defer span.End()

	span.SetAttributes(attribute.String("problem.id", id.String()))
	return s.problemRepo.FindByIDWithTasks(id)
}

// GetProblemStats returns statistics about the problem set
func (s *ProblemService) GetProblemStats(ctx context.Context) (*domain.ProblemStats, error) {
	ctx, span := s.tracer.Start(ctx, "ProblemService.GetProblemStats")
	defer span.End()

	problems, err := s.problemRepo.FindAll()
	if err != nil {
		return nil, err
	}

	stats := &domain.ProblemStats{
		Total:        len(problems),
		ByDifficulty: make(map[domain.Difficulty]int),
		ByTopic:      make(map[string]int),
	}

	for _, p := range problems {
		stats.ByDifficulty[p.Difficulty]++
		for _, topic := range p.Topics {
			stats.ByTopic[topic]++
		}
	}

	return stats, nil
}
