package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codegrade/backend/internal/domain"
	"github.com/codegrade/backend/internal/evaluation"
	"github.com/codegrade/backend/internal/notification"
)

// fakeProblemRepo is an in-memory domain.ProblemRepository
type fakeProblemRepo struct {
	problems map[uuid.UUID]*domain.Problem
}

func newFakeProblemRepo(problems ...*domain.Problem) *fakeProblemRepo {
	repo := &fakeProblemRepo{problems: make(map[uuid.UUID]*domain.Problem)}
	for _, p := range problems {
		repo.problems[p.ID] = p
	}
	return repo
}

func (r *fakeProblemRepo) FindByID(id uuid.UUID) (*domain.Problem, error) {
	problem, ok := r.problems[id]
	if !ok {
		return nil, domain.ErrProblemNotFound
	}
	return problem, nil
}

func (r *fakeProblemRepo) FindByIDWithTasks(id uuid.UUID) (*domain.Problem, error) {
	return r.FindByID(id)
}

func (r *fakeProblemRepo) FindBySlug(slug string) (*domain.Problem, error) {
	for _, p := range r.problems {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, domain.ErrProblemNotFound
}

func (r *fakeProblemRepo) FindAll() ([]domain.Problem, error) {
	out := make([]domain.Problem, 0, len(r.problems))
	for _, p := range r.problems {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProblemRepo) FindByDifficulty(difficulty domain.Difficulty) ([]domain.Problem, error) {
	var out []domain.Problem
	for _, p := range r.problems {
		if p.Difficulty == difficulty {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProblemRepo) Count() (int64, error) {
	return int64(len(r.problems)), nil
}

// fakeAssignmentRepo is an in-memory domain.AssignmentRepository enforcing
// the one-assignment-per-pair constraint the way the database index does
type fakeAssignmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Assignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{items: make(map[uuid.UUID]*domain.Assignment)}
}

func (r *fakeAssignmentRepo) Create(assignment *domain.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.UserID == assignment.UserID && existing.ProblemID == assignment.ProblemID {
			return domain.ErrAssignmentExists
		}
	}

	assignment.ID = uuid.New()
	assignment.CreatedAt = time.Now()
	stored := *assignment
	r.items[assignment.ID] = &stored
	return nil
}

func (r *fakeAssignmentRepo) FindByID(id uuid.UUID) (*domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	assignment, ok := r.items[id]
	if !ok {
		return nil, domain.ErrAssignmentNotFound
	}
	copied := *assignment
	return &copied, nil
}

func (r *fakeAssignmentRepo) FindByUserAndProblem(userID, problemID uuid.UUID) (*domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, assignment := range r.items {
		if assignment.UserID == userID && assignment.ProblemID == problemID {
			copied := *assignment
			return &copied, nil
		}
	}
	return nil, domain.ErrAssignmentNotFound
}

func (r *fakeAssignmentRepo) FindByUserAndStatus(userID uuid.UUID, status domain.AssignmentStatus) ([]domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Assignment
	for _, assignment := range r.items {
		if assignment.UserID == userID && assignment.Status == status {
			out = append(out, *assignment)
		}
	}
	return out, nil
}

func (r *fakeAssignmentRepo) CountByUserAndStatus(userID uuid.UUID, status domain.AssignmentStatus) (int64, error) {
	assignments, _ := r.FindByUserAndStatus(userID, status)
	return int64(len(assignments)), nil
}

func (r *fakeAssignmentRepo) Update(assignment *domain.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[assignment.ID]; !ok {
		return domain.ErrAssignmentNotFound
	}
	stored := *assignment
	r.items[assignment.ID] = &stored
	return nil
}

func (r *fakeAssignmentRepo) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrAssignmentNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeAssignmentRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// fakeSubmissionRepo is an in-memory domain.SubmissionRepository whose
// atomic write can be switched to fail, storing nothing
type fakeSubmissionRepo struct {
	mu          sync.Mutex
	assignments *fakeAssignmentRepo
	submissions []domain.Submission
	persistErr  error
}

func newFakeSubmissionRepo(assignments *fakeAssignmentRepo) *fakeSubmissionRepo {
	return &fakeSubmissionRepo{assignments: assignments}
}

func (r *fakeSubmissionRepo) CreateAndCompleteAssignment(submission *domain.Submission, assignmentID uuid.UUID) error {
	if r.persistErr != nil {
		return r.persistErr
	}

	assignment, err := r.assignments.FindByID(assignmentID)
	if err != nil {
		return err
	}
	assignment.Status = domain.AssignmentStatusCompleted
	if err := r.assignments.Update(assignment); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	submission.ID = uuid.New()
	submission.CreatedAt = time.Now()
	r.submissions = append(r.submissions, *submission)
	return nil
}

func (r *fakeSubmissionRepo) FindByID(id uuid.UUID) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.submissions {
		if r.submissions[i].ID == id {
			copied := r.submissions[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrSubmissionNotFound
}

func (r *fakeSubmissionRepo) FindByUser(userID uuid.UUID) ([]domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Newest first, matching the real repository's ordering
	var out []domain.Submission
	for i := len(r.submissions) - 1; i >= 0; i-- {
		if r.submissions[i].UserID == userID {
			out = append(out, r.submissions[i])
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) FindByProblem(problemID uuid.UUID) ([]domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Submission
	for i := len(r.submissions) - 1; i >= 0; i-- {
		if r.submissions[i].ProblemID == problemID {
			out = append(out, r.submissions[i])
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) CountByUser(userID uuid.UUID) (int64, error) {
	submissions, _ := r.FindByUser(userID)
	return int64(len(submissions)), nil
}

// stubEvaluator grades with a caller-supplied function keyed on the input
type stubEvaluator struct {
	fn func(input evaluation.Input) evaluation.Outcome
}

func (s *stubEvaluator) Evaluate(ctx context.Context, input evaluation.Input) evaluation.Outcome {
	return s.fn(input)
}

// recordingNotifier captures published events
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.SubmissionGradedEvent
}

func (n *recordingNotifier) SubmissionGraded(ctx context.Context, event notification.SubmissionGradedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) Close() error {
	return nil
}
