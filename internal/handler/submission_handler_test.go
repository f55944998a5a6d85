package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/codegrade/backend/internal/domain"
	"github.com/codegrade/backend/internal/evaluation"
	"github.com/codegrade/backend/internal/handler"
	"github.com/codegrade/backend/internal/middleware"
	"github.com/codegrade/backend/internal/notification"
	"github.com/codegrade/backend/internal/service"
)

type stubSubmissionRepo struct {
	assignments *stubAssignmentRepo
	submissions []domain.Submission
}

func (r *stubSubmissionRepo) CreateAndCompleteAssignment(submission *domain.Submission, assignmentID uuid.UUID) error {
	assignment, err := r.assignments.FindByID(assignmentID)
	if err != nil {
		return err
	}
	assignment.Status = domain.AssignmentStatusCompleted

	submission.ID = uuid.New()
	submission.CreatedAt = time.Now()
	r.submissions = append(r.submissions, *submission)
	return nil
}

func (r *stubSubmissionRepo) FindByID(id uuid.UUID) (*domain.Submission, error) {
	for i := range r.submissions {
		if r.submissions[i].ID == id {
			return &r.submissions[i], nil
		}
	}
	return nil, domain.ErrSubmissionNotFound
}

func (r *stubSubmissionRepo) FindByUser(userID uuid.UUID) ([]domain.Submission, error) {
	return r.submissions, nil
}

func (r *stubSubmissionRepo) FindByProblem(problemID uuid.UUID) ([]domain.Submission, error) {
	return r.submissions, nil
}

func (r *stubSubmissionRepo) CountByUser(userID uuid.UUID) (int64, error) {
	return int64(len(r.submissions)), nil
}

type fixedScoreEvaluator struct {
	score int
}

func (e fixedScoreEvaluator) Evaluate(ctx context.Context, input evaluation.Input) evaluation.Outcome {
	return evaluation.Outcome{
		Score:      e.score,
		Feedback:   "Looks reasonable.",
		Strengths:  []string{"clear structure"},
		Weaknesses: []string{},
	}
}

// newSubmissionRouter wires the submission handler over a one-task problem
func newSubmissionRouter(problem *domain.Problem, userID uuid.UUID) (*gin.Engine, *stubAssignmentRepo) {
	gin.SetMode(gin.TestMode)

	assignments := newStubAssignmentRepo()
	svc := service.NewSubmissionService(
		&stubSubmissionRepo{assignments: assignments},
		assignments,
		&stubProblemRepo{problem: problem},
		fixedScoreEvaluator{score: 80},
		notification.NopNotifier{},
		noop.NewTracerProvider().Tracer("test"),
		zap.NewNop(),
		nil,
	)
	h := handler.NewSubmissionHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	})
	router.POST("/api/problems/:id/submissions", h.Submit)
	router.GET("/api/submissions/:id", h.GetSubmission)
	return router, assignments
}

func newSubmittableProblem() (*domain.Problem, uuid.UUID) {
	task := domain.Task{
		ID:            uuid.New(),
		Title:         "Reverse a String",
		Description:   "Reverse the input string.",
		ModelSolution: "def reverse(s):\n    return s[::-1]\n",
		Criteria:      datatypes.NewJSONType(map[string]int{"correctness": 100}),
		Points:        10,
		Difficulty:    domain.DifficultyEasy,
	}
	problemID := uuid.New()
	problem := &domain.Problem{
		ID:         problemID,
		Title:      "String Warmup",
		Slug:       "string-warmup",
		Difficulty: domain.DifficultyEasy,
		ProblemTasks: []domain.ProblemTask{
			{ProblemID: problemID, TaskID: task.ID, Order: 1, Task: task},
		},
	}
	return problem, task.ID
}

func TestSubmitEndpointStatusCodes(t *testing.T) {
	problem, taskID := newSubmittableProblem()
	userID := uuid.New()
	router, assignments := newSubmissionRouter(problem, userID)

	submitPath := fmt.Sprintf("/api/problems/%s/submissions", problem.ID)
	body := domain.SubmitRequest{Solutions: []domain.SolutionInput{
		{TaskID: taskID, Code: "print(s[::-1])", Language: "python"},
	}}

	// No assignment yet
	rec := doJSON(router, http.MethodPost, submitPath, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, assignments.Create(&domain.Assignment{
		UserID:    userID,
		ProblemID: problem.ID,
		Status:    domain.AssignmentStatusPending,
	}))

	// Unknown problem
	rec = doJSON(router, http.MethodPost, fmt.Sprintf("/api/problems/%s/submissions", uuid.New()), body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Invalid problem ID in the path
	rec = doJSON(router, http.MethodPost, "/api/problems/not-a-uuid/submissions", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty solution list fails binding
	rec = doJSON(router, http.MethodPost, submitPath, domain.SubmitRequest{Solutions: []domain.SolutionInput{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Same task twice
	rec = doJSON(router, http.MethodPost, submitPath, domain.SubmitRequest{Solutions: []domain.SolutionInput{
		{TaskID: taskID, Code: "first", Language: "python"},
		{TaskID: taskID, Code: "second", Language: "python"},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Graded submission
	rec = doJSON(router, http.MethodPost, submitPath, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, problem.ID, created.ProblemID)
	assert.Equal(t, 8.0, created.TotalScore)
	assert.Equal(t, 1, created.CompletedTasks)
	assert.Equal(t, 1, created.TotalTasks)
	require.Len(t, created.Evaluations, 1)
	assert.Equal(t, 80, created.Evaluations[taskID.String()].Score)
}

func TestGetSubmissionEndpointStatusCodes(t *testing.T) {
	problem, taskID := newSubmittableProblem()
	userID := uuid.New()
	router, assignments := newSubmissionRouter(problem, userID)

	require.NoError(t, assignments.Create(&domain.Assignment{
		UserID:    userID,
		ProblemID: problem.ID,
		Status:    domain.AssignmentStatusPending,
	}))

	rec := doJSON(router, http.MethodPost, fmt.Sprintf("/api/problems/%s/submissions", problem.ID), domain.SubmitRequest{
		Solutions: []domain.SolutionInput{{TaskID: taskID, Code: "a", Language: "python"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(router, http.MethodGet, fmt.Sprintf("/api/submissions/%s", created.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(router, http.MethodGet, fmt.Sprintf("/api/submissions/%s", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(router, http.MethodGet, "/api/submissions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
