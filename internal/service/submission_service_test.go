package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/codegrade/backend/internal/domain"
	"github.com/codegrade/backend/internal/evaluation"
	"github.com/codegrade/backend/internal/notification"
	"github.com/codegrade/backend/internal/service"
)

// newGradedProblem builds a two-task problem: "Reverse a String" worth 10
// points and "Count Vowels" worth 20 points.
func newGradedProblem() (*domain.Problem, uuid.UUID, uuid.UUID) {
	taskA := domain.Task{
		ID:            uuid.New(),
		Title:         "Reverse a String",
		Description:   "Reverse the input string.",
		ModelSolution: "def reverse(s):\n    return s[::-1]\n",
		Criteria:      datatypes.NewJSONType(map[string]int{"correctness": 60, "code quality": 40}),
		Points:        10,
		Difficulty:    domain.DifficultyEasy,
	}
	taskB := domain.Task{
		ID:            uuid.New(),
		Title:         "Count Vowels",
		Description:   "Count the vowels in the input string.",
		ModelSolution: "def count_vowels(s):\n    return sum(c in 'aeiou' for c in s.lower())\n",
		Criteria:      datatypes.NewJSONType(map[string]int{"correctness": 100}),
		Points:        20,
		Difficulty:    domain.DifficultyEasy,
	}

	problem := newTestProblem()
	problem.ProblemTasks = []domain.ProblemTask{
		{ProblemID: problem.ID, TaskID: taskA.ID, Order: 1, Task: taskA},
		{ProblemID: problem.ID, TaskID: taskB.ID, Order: 2, Task: taskB},
	}
	return problem, taskA.ID, taskB.ID
}

func newSubmissionService(
	problems *fakeProblemRepo,
	assignments *fakeAssignmentRepo,
	submissions *fakeSubmissionRepo,
	evaluator evaluation.Evaluator,
	notifier notification.Notifier,
) *service.SubmissionService {
	return service.NewSubmissionService(
		submissions,
		assignments,
		problems,
		evaluator,
		notifier,
		noop.NewTracerProvider().Tracer("test"),
		zap.NewNop(),
		nil,
	)
}

// assignedFixture wires a user with a pending assignment on the problem
func assignedFixture(t *testing.T, problem *domain.Problem) (uuid.UUID, *fakeAssignmentRepo, *fakeSubmissionRepo, *fakeProblemRepo) {
	t.Helper()

	userID := uuid.New()
	assignments := newFakeAssignmentRepo()
	require.NoError(t, assignments.Create(&domain.Assignment{
		UserID:    userID,
		ProblemID: problem.ID,
		Status:    domain.AssignmentStatusPending,
	}))
	return userID, assignments, newFakeSubmissionRepo(assignments), newFakeProblemRepo(problem)
}

func scoreByTitle(scores map[string]int) *stubEvaluator {
	return &stubEvaluator{fn: func(input evaluation.Input) evaluation.Outcome {
		score, ok := scores[input.TaskTitle]
		if !ok {
			return evaluation.Fallback("the evaluation service could not be reached")
		}
		return evaluation.Outcome{
			Score:      score,
			Feedback:   "Looks reasonable.",
			Strengths:  []string{"clear structure"},
			Weaknesses: []string{},
		}
	}}
}

func TestSubmitGradesEveryTask(t *testing.T) {
	problem, taskA, taskB := newGradedProblem()
	userID, assignments, subs, problems := assignedFixture(t, problem)
	notifier := &recordingNotifier{}
	svc := newSubmissionService(problems, assignments, subs, scoreByTitle(map[string]int{
		"Reverse a String": 80,
		"Count Vowels":     50,
	}), notifier)

	submission, err := svc.Submit(context.Background(), userID, problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "print(s[::-1])", Language: "python"},
		{TaskID: taskB, Code: "print(count(s))", Language: "python"},
	})
	require.NoError(t, err)

	evaluations := submission.Evaluations.Data()
	require.Len(t, evaluations, 2)

	resultA := evaluations[taskA.String()]
	assert.Equal(t, 80, resultA.Score)
	assert.Equal(t, 8.0, resultA.ScaledScore)
	assert.True(t, resultA.Passed)

	resultB := evaluations[taskB.String()]
	assert.Equal(t, 50, resultB.Score)
	assert.Equal(t, 10.0, resultB.ScaledScore)
	assert.False(t, resultB.Passed)

	assert.Equal(t, 18.0, submission.TotalScore)
	assert.Equal(t, 1, submission.CompletedTasks)
	assert.Equal(t, 2, submission.TotalTasks)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, submission.ID, notifier.events[0].SubmissionID)
	assert.Equal(t, 18.0, notifier.events[0].TotalScore)
}

func TestSubmitCompletesAssignment(t *testing.T) {
	problem, taskA, _ := newGradedProblem()
	userID, assignments, subs, problems := assignedFixture(t, problem)
	svc := newSubmissionService(problems, assignments, subs, scoreByTitle(map[string]int{
		"Reverse a String": 90,
	}), notification.NopNotifier{})

	_, err := svc.Submit(context.Background(), userID, problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "code", Language: "python"},
	})
	require.NoError(t, err)

	assignment, err := assignments.FindByUserAndProblem(userID, problem.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusCompleted, assignment.Status)

	history, err := subs.FindByUser(userID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSubmitSingleFailureDoesNotPoisonBatch(t *testing.T) {
	problem, taskA, taskB := newGradedProblem()
	userID, assignments, subs, problems := assignedFixture(t, problem)

	// Count Vowels is missing from the score table, so its evaluation
	// degrades to the zero-score fallback
	svc := newSubmissionService(problems, assignments, subs, scoreByTitle(map[string]int{
		"Reverse a String": 80,
	}), notification.NopNotifier{})

	submission, err := svc.Submit(context.Background(), userID, problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "a", Language: "python"},
		{TaskID: taskB, Code: "b", Language: "python"},
	})
	require.NoError(t, err)

	evaluations := submission.Evaluations.Data()
	require.Len(t, evaluations, 2)

	assert.Equal(t, 80, evaluations[taskA.String()].Score)
	assert.Equal(t, 8.0, evaluations[taskA.String()].ScaledScore)

	failed := evaluations[taskB.String()]
	assert.Equal(t, 0, failed.Score)
	assert.Equal(t, 0.0, failed.ScaledScore)
	assert.False(t, failed.Passed)
	assert.Contains(t, failed.Weaknesses, "evaluation failed")

	assert.Equal(t, 8.0, submission.TotalScore)
	assert.Equal(t, 1, submission.CompletedTasks)
}

func TestSubmitUnknownTaskGetsDegradedEntry(t *testing.T) {
	problem, taskA, _ := newGradedProblem()
	userID, assignments, subs, problems := assignedFixture(t, problem)
	svc := newSubmissionService(problems, assignments, subs, scoreByTitle(map[string]int{
		"Reverse a String": 100,
	}), notification.NopNotifier{})

	strayTask := uuid.New()
	submission, err := svc.Submit(context.Background(), userID, problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "a", Language: "python"},
		{TaskID: strayTask, Code: "b", Language: "python"},
	})
	require.NoError(t, err)

	evaluations := submission.Evaluations.Data()
	require.Len(t, evaluations, 2)

	stray := evaluations[strayTask.String()]
	assert.Equal(t, 0, stray.Score)
	assert.Equal(t, 0.0, stray.ScaledScore)
	assert.False(t, stray.Passed)

	assert.Equal(t, 10.0, submission.TotalScore)
	assert.Equal(t, 2, submission.TotalTasks)
}

func TestSubmitRejectsDuplicateTaskEntries(t *testing.T) {
	problem, taskA, _ := newGradedProblem()
	userID, assignments, subs, problems := assignedFixture(t, problem)
	svc := newSubmissionService(problems, assignments, subs, scoreByTitle(map[string]int{
		"Reverse a String": 80,
	}), notification.NopNotifier{})

	_, err := svc.Submit(context.Background(), userID, problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "first attempt", Language: "python"},
		{TaskID: taskA, Code: "second attempt", Language: "python"},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateSolutions)

	// Nothing was graded or stored
	assignment, findErr := assignments.FindByUserAndProblem(userID, problem.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.AssignmentStatusPending, assignment.Status)

	history, findErr := subs.FindByUser(userID)
	require.NoError(t, findErr)
	assert.Empty(t, history)
}

// cancelSensitiveEvaluator fails any evaluation whose context has already
// been canceled and grades everything else with a fixed score
type cancelSensitiveEvaluator struct{}

func (cancelSensitiveEvaluator) Evaluate(ctx context.Context, input evaluation.Input) evaluation.Outcome {
	if ctx.Err() != nil {
		return evaluation.Fallback("the evaluation service could not be reached")
	}
	return evaluation.Outcome{
		Score:      85,
		Feedback:   "Looks reasonable.",
		Strengths:  []string{"clear structure"},
		Weaknesses: []string{},
	}
}

func TestSubmitFinishesAfterCallerDisconnects(t *testing.T) {
	problem, taskA, _ := newGradedProblem()
	userID, assignments, subs, problems := assignedFixture(t, problem)
	svc := newSubmissionService(problems, assignments, subs, cancelSensitiveEvaluator{}, notification.NopNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A canceled request context must not abort grading into a durable
	// zero-score record
	submission, err := svc.Submit(ctx, userID, problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "print(s[::-1])", Language: "python"},
	})
	require.NoError(t, err)

	result := submission.Evaluations.Data()[taskA.String()]
	assert.Equal(t, 85, result.Score)
	assert.Equal(t, 8.5, result.ScaledScore)
	assert.True(t, result.Passed)
	assert.Equal(t, 8.5, submission.TotalScore)

	assignment, findErr := assignments.FindByUserAndProblem(userID, problem.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.AssignmentStatusCompleted, assignment.Status)
}

func TestSubmitEmptySolutions(t *testing.T) {
	problem, _, _ := newGradedProblem()
	userID, assignments, subs, problems := assignedFixture(t, problem)
	svc := newSubmissionService(problems, assignments, subs, scoreByTitle(nil), notification.NopNotifier{})

	_, err := svc.Submit(context.Background(), userID, problem.ID, nil)
	assert.ErrorIs(t, err, domain.ErrEmptySolutions)
}

func TestSubmitRequiresAssignment(t *testing.T) {
	problem, taskA, _ := newGradedProblem()
	assignments := newFakeAssignmentRepo()
	svc := newSubmissionService(
		newFakeProblemRepo(problem),
		assignments,
		newFakeSubmissionRepo(assignments),
		scoreByTitle(nil),
		notification.NopNotifier{},
	)

	_, err := svc.Submit(context.Background(), uuid.New(), problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "a", Language: "python"},
	})
	assert.ErrorIs(t, err, domain.ErrAssignmentRequired)
}

func TestSubmitUnknownProblem(t *testing.T) {
	assignments := newFakeAssignmentRepo()
	svc := newSubmissionService(
		newFakeProblemRepo(),
		assignments,
		newFakeSubmissionRepo(assignments),
		scoreByTitle(nil),
		notification.NopNotifier{},
	)

	_, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), []domain.SolutionInput{
		{TaskID: uuid.New(), Code: "a", Language: "python"},
	})
	assert.ErrorIs(t, err, domain.ErrProblemNotFound)
}

func TestSubmitPersistenceFailureLeavesNoPartialState(t *testing.T) {
	problem, taskA, _ := newGradedProblem()
	userID, assignments, subs, problems := assignedFixture(t, problem)
	subs.persistErr = errors.New("connection reset by peer")
	notifier := &recordingNotifier{}
	svc := newSubmissionService(problems, assignments, subs, scoreByTitle(map[string]int{
		"Reverse a String": 95,
	}), notifier)

	_, err := svc.Submit(context.Background(), userID, problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "a", Language: "python"},
	})
	require.Error(t, err)

	assignment, findErr := assignments.FindByUserAndProblem(userID, problem.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.AssignmentStatusPending, assignment.Status)

	history, findErr := subs.FindByUser(userID)
	require.NoError(t, findErr)
	assert.Empty(t, history)
	assert.Empty(t, notifier.events)
}

func TestGetByIDEnforcesOwnership(t *testing.T) {
	problem, taskA, _ := newGradedProblem()
	userID, assignments, subs, problems := assignedFixture(t, problem)
	svc := newSubmissionService(problems, assignments, subs, scoreByTitle(map[string]int{
		"Reverse a String": 70,
	}), notification.NopNotifier{})

	submission, err := svc.Submit(context.Background(), userID, problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "a", Language: "python"},
	})
	require.NoError(t, err)

	got, err := svc.GetByID(context.Background(), userID, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.ID, got.ID)

	_, err = svc.GetByID(context.Background(), uuid.New(), submission.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.GetByID(context.Background(), userID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
}

func TestHistoryNewestFirst(t *testing.T) {
	problem, taskA, _ := newGradedProblem()
	userID, assignments, subs, problems := assignedFixture(t, problem)
	svc := newSubmissionService(problems, assignments, subs, scoreByTitle(map[string]int{
		"Reverse a String": 60,
	}), notification.NopNotifier{})

	first, err := svc.Submit(context.Background(), userID, problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "v1", Language: "python"},
	})
	require.NoError(t, err)

	// Resubmission on a completed assignment is allowed and appends a new
	// record
	second, err := svc.Submit(context.Background(), userID, problem.ID, []domain.SolutionInput{
		{TaskID: taskA, Code: "v2", Language: "python"},
	})
	require.NoError(t, err)

	history, err := svc.GetHistoryByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)

	byProblem, err := svc.GetHistoryByProblem(context.Background(), problem.ID)
	require.NoError(t, err)
	assert.Len(t, byProblem, 2)

	_, err = svc.GetHistoryByProblem(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrProblemNotFound)
}
