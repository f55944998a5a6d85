package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/codegrade/backend/internal/domain"
	"github.com/codegrade/backend/internal/evaluation"
	"github.com/codegrade/backend/internal/infrastructure"
	"github.com/codegrade/backend/internal/notification"
	"github.com/codegrade/backend/internal/scoring"
)

// SubmissionService coordinates the grading pipeline: it validates a batched
// submit request, evaluates every task solution through the evaluation
// client, aggregates the scores and records the submission together with the
// assignment completion as one atomic unit.
type SubmissionService struct {
	submissionRepo domain.SubmissionRepository
	assignmentRepo domain.AssignmentRepository
	problemRepo    domain.ProblemRepository
	evaluator      evaluation.Evaluator
	notifier       notification.Notifier
	tracer         trace.Tracer
	logger         *zap.Logger
	metrics        *infrastructure.TelemetryMetrics
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	submissionRepo domain.SubmissionRepository,
	assignmentRepo domain.AssignmentRepository,
	problemRepo domain.ProblemRepository,
	evaluator evaluation.Evaluator,
	notifier notification.Notifier,
	tracer trace.Tracer,
	logger *zap.Logger,
	metrics *infrastructure.TelemetryMetrics,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		assignmentRepo: assignmentRepo,
		problemRepo:    problemRepo,
		evaluator:      evaluator,
		notifier:       notifier,
		tracer:         tracer,
		logger:         logger,
		metrics:        metrics,
	}
}

// Submit grades a batch of task solutions for one problem.
//
// Every submitted task yields exactly one evaluation entry: tasks that do not
// belong to the problem and tasks whose evaluation fails get a degraded
// zero-score entry instead of aborting the batch. A request naming the same
// task more than once is rejected before anything is evaluated. The submission record and
// the assignment's completed status are persisted atomically; if that write
// fails the caller gets an error and no partial state becomes visible.
func (s *SubmissionService) Submit(ctx context.Context, userID, problemID uuid.UUID, solutions []domain.SolutionInput) (*domain.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "SubmissionService.Submit")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("problem.id", problemID.String()),
		attribute.Int("solution.count", len(solutions)),
	)

	if len(solutions) == 0 {
		return nil, domain.ErrEmptySolutions
	}

	seen := make(map[uuid.UUID]struct{}, len(solutions))
	for _, sol := range solutions {
		if _, dup := seen[sol.TaskID]; dup {
			return nil, domain.ErrDuplicateSolutions
		}
		seen[sol.TaskID] = struct{}{}
	}

	problem, err := s.problemRepo.FindByIDWithTasks(problemID)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignmentRepo.FindByUserAndProblem(userID, problemID)
	if err != nil {
		if errors.Is(err, domain.ErrAssignmentNotFound) {
			return nil, domain.ErrAssignmentRequired
		}
		return nil, err
	}

	// An accepted submit runs to completion. The caller going away must not
	// cancel in-flight evaluations or record a half-graded result; each
	// evaluation call stays bounded by the client's own timeout.
	ctx = context.WithoutCancel(ctx)

	evaluations := s.evaluateAll(ctx, problem, solutions)

	solutionMap := make(map[string]domain.TaskSolution, len(solutions))
	for _, sol := range solutions {
		solutionMap[sol.TaskID.String()] = domain.TaskSolution{
			Code:     sol.Code,
			Language: sol.Language,
		}
	}

	submission := &domain.Submission{
		UserID:         userID,
		ProblemID:      problemID,
		Solutions:      datatypes.NewJSONType(solutionMap),
		Evaluations:    datatypes.NewJSONType(evaluations),
		TotalScore:     scoring.Total(evaluations),
		CompletedTasks: scoring.CompletedCount(evaluations),
		TotalTasks:     len(solutions),
	}

	if err := s.submissionRepo.CreateAndCompleteAssignment(submission, assignment.ID); err != nil {
		s.logger.Error("Failed to persist submission",
			zap.String("user_id", userID.String()),
			zap.String("problem_id", problemID.String()),
			zap.Error(err),
		)
		return nil, domain.WrapError(err, "failed to record submission")
	}

	if s.metrics != nil {
		s.metrics.SubmissionsGraded.Add(ctx, 1,
			metric.WithAttributes(attribute.String("problem.id", problemID.String())),
		)
	}

	s.notify(ctx, submission)

	s.logger.Info("Submission graded",
		zap.String("submission_id", submission.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Float64("total_score", submission.TotalScore),
		zap.Int("completed_tasks", submission.CompletedTasks),
		zap.Int("total_tasks", submission.TotalTasks),
	)

	span.SetAttributes(
		attribute.String("submission.id", submission.ID.String()),
		attribute.Float64("submission.total_score", submission.TotalScore),
	)
	return submission, nil
}

// evaluateAll grades every solution concurrently. Evaluation calls are
// mutually independent and each carries its own timeout inside the client, so
// one slow or failing call cannot stall or poison the rest of the batch.
// Results are keyed by task ID, never by completion order.
func (s *SubmissionService) evaluateAll(ctx context.Context, problem *domain.Problem, solutions []domain.SolutionInput) map[string]domain.EvaluationResult {
	ctx, span := s.tracer.Start(ctx, "SubmissionService.evaluateAll")
	defer span.End()

	type taskResult struct {
		taskID uuid.UUID
		points int
		out    evaluation.Outcome
	}

	resultChan := make(chan taskResult, len(solutions))
	var wg sync.WaitGroup

	for _, sol := range solutions {
		task, ok := problem.TaskByID(sol.TaskID)
		if !ok {
			// Unknown task: record a degraded entry instead of failing the
			// whole request
			resultChan <- taskResult{
				taskID: sol.TaskID,
				points: 0,
				out:    evaluation.Fallback("the task does not belong to this problem"),
			}
			continue
		}

		wg.Add(1)
		go func(sol domain.SolutionInput, task domain.Task) {
			defer wg.Done()
			out := s.evaluator.Evaluate(ctx, evaluation.Input{
				TaskTitle:          task.Title,
				TaskDescription:    task.Description,
				ProblemDescription: problem.Description,
				ReferenceSolution:  task.ModelSolution,
				CandidateCode:      sol.Code,
				Language:           sol.Language,
				Criteria:           task.Criteria.Data(),
			})
			resultChan <- taskResult{taskID: sol.TaskID, points: task.Points, out: out}
		}(sol, *task)
	}

	wg.Wait()
	close(resultChan)

	evaluations := make(map[string]domain.EvaluationResult, len(solutions))
	for result := range resultChan {
		evaluations[result.taskID.String()] = domain.EvaluationResult{
			Score:       result.out.Score,
			ScaledScore: scoring.Scale(result.out.Score, result.points),
			Feedback:    result.out.Feedback,
			Strengths:   result.out.Strengths,
			Weaknesses:  result.out.Weaknesses,
			Passed:      scoring.Passed(result.out.Score),
		}
	}

	span.SetAttributes(attribute.Int("evaluation.count", len(evaluations)))
	return evaluations
}

// notify publishes the graded event. Publishing is best effort and must
// never fail the submit that triggered it.
func (s *SubmissionService) notify(ctx context.Context, submission *domain.Submission) {
	event := notification.SubmissionGradedEvent{
		SubmissionID:   submission.ID,
		UserID:         submission.UserID,
		ProblemID:      submission.ProblemID,
		TotalScore:     submission.TotalScore,
		CompletedTasks: submission.CompletedTasks,
		TotalTasks:     submission.TotalTasks,
		GradedAt:       time.Now(),
	}
	if err := s.notifier.SubmissionGraded(ctx, event); err != nil {
		s.logger.Warn("Failed to publish submission event",
			zap.String("submission_id", submission.ID.String()),
			zap.Error(err),
		)
	}
}

// GetByID returns one submission with its full evaluation map. Only the
// submitting user may read it.
func (s *SubmissionService) GetByID(ctx context.Context, userID, submissionID uuid.UUID) (*domain.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "SubmissionService.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", submissionID.String()))

	submission, err := s.submissionRepo.FindByID(submissionID)
	if err != nil {
		return nil, err
	}
	if submission.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return submission, nil
}

// GetHistoryByUser returns the user's submission history, newest first
func (s *SubmissionService) GetHistoryByUser(ctx context.Context, userID uuid.UUID) ([]domain.SubmissionSummary, error) {
	ctx, span := s.tracer.Start(ctx, "SubmissionService.GetHistoryByUser")
	defer span.End()

	span.SetAttributes(attribute.String("user.id", userID.String()))

	submissions, err := s.submissionRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	return toSummaries(submissions), nil
}

// GetHistoryByProblem returns a problem's submission history, newest first
func (s *SubmissionService) GetHistoryByProblem(ctx context.Context, problemID uuid.UUID) ([]domain.SubmissionSummary, error) {
	ctx, span := s.tracer.Start(ctx, "SubmissionService.GetHistoryByProblem")
	defer span.End()

	span.SetAttributes(attribute.String("problem.id", problemID.String()))

	if _, err := s.problemRepo.FindByID(problemID); err != nil {
		return nil, err
	}

	submissions, err := s.submissionRepo.FindByProblem(problemID)
	if err != nil {
		return nil, err
	}
	return toSummaries(submissions), nil
}

func toSummaries(submissions []domain.Submission) []domain.SubmissionSummary {
	summaries := make([]domain.SubmissionSummary, len(submissions))
	for i, sub := range submissions {
		summaries[i] = sub.ToSummary()
	}
	return summaries
}
