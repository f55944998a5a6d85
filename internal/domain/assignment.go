package domain

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus represents the lifecycle state of an assignment
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
)

// ValidAssignmentStatus reports whether s is a known assignment status
func ValidAssignmentStatus(s AssignmentStatus) bool {
	switch s {
	case AssignmentStatusPending, AssignmentStatusInProgress, AssignmentStatusCompleted:
		return true
	}
	return false
}

// Assignment records that a user has been given a problem to solve.
// At most one assignment exists per (user, problem) pair; the uniqueness is
// backed by a composite index so a race between two concurrent assigns is
// resolved by the database, not by a read-then-write check.
type Assignment struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_assignments_user_problem"`
	ProblemID uuid.UUID        `json:"problem_id" gorm:"type:uuid;not null;uniqueIndex:idx_assignments_user_problem"`
	Status    AssignmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	Attempts  int              `json:"attempts" gorm:"not null;default:0"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// Relationships
	User    User    `json:"-" gorm:"foreignKey:UserID"`
	Problem Problem `json:"problem,omitempty" gorm:"foreignKey:ProblemID"`
}

// TableName specifies the table name for GORM
func (Assignment) TableName() string {
	return "assignments"
}

// AssignmentRepository defines the interface for assignment data access
type AssignmentRepository interface {
	Create(assignment *Assignment) error
	FindByID(id uuid.UUID) (*Assignment, error)
	FindByUserAndProblem(userID, problemID uuid.UUID) (*Assignment, error)
	FindByUserAndStatus(userID uuid.UUID, status AssignmentStatus) ([]Assignment, error)
	CountByUserAndStatus(userID uuid.UUID, status AssignmentStatus) (int64, error)
	Update(assignment *Assignment) error
	Delete(id uuid.UUID) error
}

// AssignRequest represents the data needed to assign a problem to the caller
type AssignRequest struct {
	ProblemID  uuid.UUID `json:"problem_id" binding:"required"`
	AccessCode string    `json:"access_code"`
}

// AssignmentResponse represents an assignment in API responses
type AssignmentResponse struct {
	ID        uuid.UUID        `json:"id"`
	ProblemID uuid.UUID        `json:"problem_id"`
	Status    AssignmentStatus `json:"status"`
	Attempts  int              `json:"attempts"`
	CreatedAt time.Time        `json:"created_at"`
	Problem   *ProblemResponse `json:"problem,omitempty"`
}

// ToResponse converts an Assignment to an AssignmentResponse
func (a *Assignment) ToResponse() AssignmentResponse {
	resp := AssignmentResponse{
		ID:        a.ID,
		ProblemID: a.ProblemID,
		Status:    a.Status,
		Attempts:  a.Attempts,
		CreatedAt: a.CreatedAt,
	}
	if a.Problem.ID != uuid.Nil {
		problem := a.Problem.ToResponse()
		resp.Problem = &problem
	}
	return resp
}
