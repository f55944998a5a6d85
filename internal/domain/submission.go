package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PassThreshold is the raw evaluation score at or above which a task counts
// as completed.
const PassThreshold = 70

// TaskSolution is one submitted solution for a single task
type TaskSolution struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// EvaluationResult is the fixed-shape outcome of grading one task solution.
// Passed is always derived locally from the raw score, never taken from the
// external evaluator.
type EvaluationResult struct {
	Score       int      `json:"score"`
	ScaledScore float64  `json:"scaled_score"`
	Feedback    string   `json:"feedback"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Passed      bool     `json:"passed"`
}

// Submission is an immutable record of one attempt at a problem's tasks.
// Solutions and evaluations are keyed by task ID. A resubmission creates a
// new record; existing submissions are never mutated or deleted.
type Submission struct {
	ID             uuid.UUID                                       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID         uuid.UUID                                       `json:"user_id" gorm:"type:uuid;not null;index"`
	ProblemID      uuid.UUID                                       `json:"problem_id" gorm:"type:uuid;not null;index"`
	Solutions      datatypes.JSONType[map[string]TaskSolution]     `json:"solutions"`
	Evaluations    datatypes.JSONType[map[string]EvaluationResult] `json:"evaluations"`
	TotalScore     float64                                         `json:"total_score" gorm:"not null"`
	CompletedTasks int                                             `json:"completed_tasks" gorm:"not null"`
	TotalTasks     int                                             `json:"total_tasks" gorm:"not null"`
	CreatedAt      time.Time                                       `json:"created_at"`

	// Relationships
	User    User    `json:"-" gorm:"foreignKey:UserID"`
	Problem Problem `json:"-" gorm:"foreignKey:ProblemID"`
}

// TableName specifies the table name for GORM
func (Submission) TableName() string {
	return "submissions"
}

// SubmissionRepository defines the interface for submission data access.
// The store is append-only: records are created exactly once and never
// updated or deleted by this core.
type SubmissionRepository interface {
	// CreateAndCompleteAssignment durably writes the submission and marks the
	// assignment completed as one atomic unit. Either both changes become
	// visible or neither does.
	CreateAndCompleteAssignment(submission *Submission, assignmentID uuid.UUID) error
	FindByID(id uuid.UUID) (*Submission, error)
	FindByUser(userID uuid.UUID) ([]Submission, error)
	FindByProblem(problemID uuid.UUID) ([]Submission, error)
	CountByUser(userID uuid.UUID) (int64, error)
}

// SolutionInput is one entry of a submit request
type SolutionInput struct {
	TaskID   uuid.UUID `json:"task_id" binding:"required"`
	Code     string    `json:"code" binding:"required"`
	Language string    `json:"language" binding:"required"`
}

// SubmitRequest represents the body of a submit call
type SubmitRequest struct {
	Solutions []SolutionInput `json:"solutions" binding:"required,min=1,dive"`
}

// SubmissionResponse represents a graded submission in API responses
type SubmissionResponse struct {
	ID             uuid.UUID                   `json:"id"`
	ProblemID      uuid.UUID                   `json:"problem_id"`
	TotalScore     float64                     `json:"total_score"`
	CompletedTasks int                         `json:"completed_tasks"`
	TotalTasks     int                         `json:"total_tasks"`
	Evaluations    map[string]EvaluationResult `json:"evaluations"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// ToResponse converts a Submission to a SubmissionResponse
func (s *Submission) ToResponse() SubmissionResponse {
	return SubmissionResponse{
		ID:             s.ID,
		ProblemID:      s.ProblemID,
		TotalScore:     s.TotalScore,
		CompletedTasks: s.CompletedTasks,
		TotalTasks:     s.TotalTasks,
		Evaluations:    s.Evaluations.Data(),
		CreatedAt:      s.CreatedAt,
	}
}

// SubmissionSummary is a compact history entry without per-task payloads
type SubmissionSummary struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	ProblemID      uuid.UUID `json:"problem_id"`
	TotalScore     float64   `json:"total_score"`
	CompletedTasks int       `json:"completed_tasks"`
	TotalTasks     int       `json:"total_tasks"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToSummary converts a Submission to a SubmissionSummary
func (s *Submission) ToSummary() SubmissionSummary {
	return SubmissionSummary{
		ID:             s.ID,
		UserID:         s.UserID,
		ProblemID:      s.ProblemID,
		TotalScore:     s.TotalScore,
		CompletedTasks: s.CompletedTasks,
		TotalTasks:     s.TotalTasks,
		CreatedAt:      s.CreatedAt,
	}
}
