package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/codegrade/backend/internal/domain"
)

// AssignmentService owns the relation between a user and a problem:
// creation, removal, the start transition and status queries. The completed
// transition happens only inside the submission transaction.
type AssignmentService struct {
	assignmentRepo domain.AssignmentRepository
	problemRepo    domain.ProblemRepository
	tracer         trace.Tracer
	logger         *zap.Logger
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	assignmentRepo domain.AssignmentRepository,
	problemRepo domain.ProblemRepository,
	tracer trace.Tracer,
	logger *zap.Logger,
) *AssignmentService {
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		problemRepo:    problemRepo,
		tracer:         tracer,
		logger:         logger,
	}
}

// Assign gives a problem to a user, creating a pending assignment with zero
// attempts. At most one assignment exists per (user, problem) pair; a
// duplicate assign fails with ErrAssignmentExists and leaves the existing
// record untouched.
func (s *AssignmentService) Assign(ctx context.Context, userID uuid.UUID, req *domain.AssignRequest) (*domain.Assignment, error) {
	ctx, span := s.tracer.Start(ctx, "AssignmentService.Assign")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("problem.id", req.ProblemID.String()),
	)

	problem, err := s.problemRepo.FindByID(req.ProblemID)
	if err != nil {
		return nil, err
	}

	if !problem.IsActive(time.Now()) {
		return nil, domain.ErrProblemNotActive
	}
	if problem.AccessCode != "" && problem.AccessCode != req.AccessCode {
		return nil, domain.ErrForbidden
	}

	assignment := &domain.Assignment{
		UserID:    userID,
		ProblemID: req.ProblemID,
		Status:    domain.AssignmentStatusPending,
		Attempts:  0,
	}

	if err := s.assignmentRepo.Create(assignment); err != nil {
		if !errors.Is(err, domain.ErrAssignmentExists) {
			s.logger.Error("Failed to create assignment", zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Problem assigned",
		zap.String("assignment_id", assignment.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("problem_id", req.ProblemID.String()),
	)

	span.SetAttributes(attribute.String("assignment.id", assignment.ID.String()))
	return assignment, nil
}

// Unassign removes the assignment for a (user, problem) pair. Submissions
// referencing the pair are kept; only the assignment record goes away.
func (s *AssignmentService) Unassign(ctx context.Context, userID, problemID uuid.UUID) (uuid.UUID, error) {
	ctx, span := s.tracer.Start(ctx, "AssignmentService.Unassign")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("problem.id", problemID.String()),
	)

	assignment, err := s.assignmentRepo.FindByUserAndProblem(userID, problemID)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.assignmentRepo.Delete(assignment.ID); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("Problem unassigned",
		zap.String("assignment_id", assignment.ID.String()),
		zap.String("user_id", userID.String()),
	)

	return assignment.ID, nil
}

// Start moves an assignment to in_progress and increments its attempt
// counter. Starting an assignment that is already in_progress is allowed and
// simply counts another attempt. An assignment must exist first.
func (s *AssignmentService) Start(ctx context.Context, userID, problemID uuid.UUID) (*domain.Assignment, error) {
	ctx, span := s.tracer.Start(ctx, "AssignmentService.Start")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("problem.id", problemID.String()),
	)

	assignment, err := s.assignmentRepo.FindByUserAndProblem(userID, problemID)
	if err != nil {
		if errors.Is(err, domain.ErrAssignmentNotFound) {
			return nil, domain.ErrAssignmentRequired
		}
		return nil, err
	}

	assignment.Attempts++
	if assignment.Status != domain.AssignmentStatusCompleted {
		assignment.Status = domain.AssignmentStatusInProgress
	}

	if err := s.assignmentRepo.Update(assignment); err != nil {
		s.logger.Error("Failed to start assignment", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Assignment started",
		zap.String("assignment_id", assignment.ID.String()),
		zap.Int("attempts", assignment.Attempts),
	)

	return assignment, nil
}

// GetByProblem returns the caller's assignment for a problem
func (s *AssignmentService) GetByProblem(ctx context.Context, userID, problemID uuid.UUID) (*domain.Assignment, error) {
	ctx, span := s.tracer.Start(ctx, "AssignmentService.GetByProblem")
	defer span.End()

	span.SetAttributes(attribute.String("problem.id", problemID.String()))
	return s.assignmentRepo.FindByUserAndProblem(userID, problemID)
}

// ListByStatus returns the user's assignments in a given status for
// dashboard views
func (s *AssignmentService) ListByStatus(ctx context.Context, userID uuid.UUID, status domain.AssignmentStatus) ([]domain.Assignment, error) {
	ctx, span := s.tracer.Start(ctx, "AssignmentService.ListByStatus")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("assignment.status", string(status)),
	)

	if !domain.ValidAssignmentStatus(status) {
		return nil, domain.ErrBadRequest
	}

	return s.assignmentRepo.FindByUserAndStatus(userID, status)
}

// StatusCounts returns how many assignments the user has in each status
func (s *AssignmentService) StatusCounts(ctx context.Context, userID uuid.UUID) (map[domain.AssignmentStatus]int64, error) {
	ctx, span := s.tracer.Start(ctx, "AssignmentService.StatusCounts")
	defer span.End()

	span.SetAttributes(attribute.String("user.id", userID.String()))

	statuses := []domain.AssignmentStatus{
		domain.AssignmentStatusPending,
		domain.AssignmentStatusInProgress,
		domain.AssignmentStatusCompleted,
	}

	type countResult struct {
		status domain.AssignmentStatus
		count  int64
		err    error
	}

	resultChan := make(chan countResult, len(statuses))
	for _, status := range statuses {
		go func(st domain.AssignmentStatus) {
			count, err := s.assignmentRepo.CountByUserAndStatus(userID, st)
			resultChan <- countResult{status: st, count: count, err: err}
		}(status)
	}

	counts := make(map[domain.AssignmentStatus]int64, len(statuses))
	for range statuses {
		result := <-resultChan
		if result.err != nil {
			s.logger.Error("Failed to count assignments by status",
				zap.String("status", string(result.status)),
				zap.Error(result.err),
			)
			continue
		}
		counts[result.status] = result.count
	}

	return counts, nil
}
