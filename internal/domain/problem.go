package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Difficulty represents the difficulty level of a problem or task
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Weight returns a numeric weight for sorting by difficulty
func (d Difficulty) Weight() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	default:
		return 0
	}
}

// Problem represents a coding exercise composed of one or more scored tasks
type Problem struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title       string         `json:"title" gorm:"not null"`
	Slug        string         `json:"slug" gorm:"uniqueIndex;not null"`
	Description string         `json:"description" gorm:"type:text;not null"`
	Difficulty  Difficulty     `json:"difficulty" gorm:"type:varchar(10);not null"`
	Topics      pq.StringArray `json:"topics" gorm:"type:text[]"`
	StartsAt    *time.Time     `json:"starts_at"`
	EndsAt      *time.Time     `json:"ends_at"`
	// AccessCode is only ever exposed through admin surfaces, never through
	// ProblemResponse.
	AccessCode string    `json:"access_code" gorm:"type:varchar(32)"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relationships
	ProblemTasks []ProblemTask `json:"tasks,omitempty" gorm:"foreignKey:ProblemID"`
}

// TableName specifies the table name for GORM
func (Problem) TableName() string {
	return "problems"
}

// IsActive reports whether the problem is inside its time window.
// An unset bound is treated as open-ended.
func (p *Problem) IsActive(now time.Time) bool {
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return false
	}
	return true
}

// TotalPoints sums the point budgets of all attached tasks
func (p *Problem) TotalPoints() int {
	total := 0
	for _, pt := range p.ProblemTasks {
		total += pt.Task.Points
	}
	return total
}

// TaskByID returns the attached task with the given ID, if any
func (p *Problem) TaskByID(taskID uuid.UUID) (*Task, bool) {
	for i := range p.ProblemTasks {
		if p.ProblemTasks[i].TaskID == taskID {
			return &p.ProblemTasks[i].Task, true
		}
	}
	return nil, false
}

// Task represents a single scored sub-exercise within a problem.
// A task carries its own point budget, reference solution and weighted
// evaluation criteria; criteria weights are expected to sum to 100 but that
// is enforced by the authoring surface, not here.
type Task struct {
	ID               uuid.UUID                          `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title            string                             `json:"title" gorm:"not null"`
	Description      string                             `json:"description" gorm:"type:text;not null"`
	SampleTests      string                             `json:"sample_tests" gorm:"type:text"`
	ModelSolution    string                             `json:"model_solution" gorm:"type:text;not null"`
	Criteria         datatypes.JSONType[map[string]int] `json:"criteria"`
	Points           int                                `json:"points" gorm:"not null"`
	TimeLimitMinutes int                                `json:"time_limit_minutes"`
	Difficulty       Difficulty                         `json:"difficulty" gorm:"type:varchar(10);not null"`
	CreatedAt        time.Time                          `json:"created_at"`
	UpdatedAt        time.Time                          `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Task) TableName() string {
	return "tasks"
}

// ProblemTask attaches a task to a problem with an explicit order.
// A task may be attached to more than one problem through separate
// association records.
type ProblemTask struct {
	ProblemID uuid.UUID `json:"problem_id" gorm:"type:uuid;primaryKey"`
	TaskID    uuid.UUID `json:"task_id" gorm:"type:uuid;primaryKey"`
	Order     int       `json:"order" gorm:"not null"`

	// Relationships (for loading)
	Task Task `json:"task" gorm:"foreignKey:TaskID"`
}

// TableName specifies the table name for GORM
func (ProblemTask) TableName() string {
	return "problem_tasks"
}

// ProblemRepository defines the interface for problem data access
type ProblemRepository interface {
	FindByID(id uuid.UUID) (*Problem, error)
	FindByIDWithTasks(id uuid.UUID) (*Problem, error)
	FindBySlug(slug string) (*Problem, error)
	FindAll() ([]Problem, error)
	FindByDifficulty(difficulty Difficulty) ([]Problem, error)
	Count() (int64, error)
}

// ProblemResponse represents a problem in API responses
type ProblemResponse struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Description string         `json:"description"`
	Difficulty  Difficulty     `json:"difficulty"`
	Topics      []string       `json:"topics"`
	StartsAt    *time.Time     `json:"starts_at,omitempty"`
	EndsAt      *time.Time     `json:"ends_at,omitempty"`
	TotalPoints int            `json:"total_points"`
	Tasks       []TaskResponse `json:"tasks,omitempty"`
}

// TaskResponse represents a task in API responses.
// The model solution is never exposed.
type TaskResponse struct {
	ID               uuid.UUID      `json:"id"`
	Order            int            `json:"order"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	SampleTests      string         `json:"sample_tests"`
	Criteria         map[string]int `json:"criteria"`
	Points           int            `json:"points"`
	TimeLimitMinutes int            `json:"time_limit_minutes"`
	Difficulty       Difficulty     `json:"difficulty"`
}

// ToResponse converts a Problem to a ProblemResponse
func (p *Problem) ToResponse() ProblemResponse {
	tasks := make([]TaskResponse, len(p.ProblemTasks))
	for i, pt := range p.ProblemTasks {
		tasks[i] = TaskResponse{
			ID:               pt.TaskID,
			Order:            pt.Order,
			Title:            pt.Task.Title,
			Description:      pt.Task.Description,
			SampleTests:      pt.Task.SampleTests,
			Criteria:         pt.Task.Criteria.Data(),
			Points:           pt.Task.Points,
			TimeLimitMinutes: pt.Task.TimeLimitMinutes,
			Difficulty:       pt.Task.Difficulty,
		}
	}

	return ProblemResponse{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		Difficulty:  p.Difficulty,
		Topics:      p.Topics,
		StartsAt:    p.StartsAt,
		EndsAt:      p.EndsAt,
		TotalPoints: p.TotalPoints(),
		Tasks:       tasks,
	}
}

// ProblemStats represents statistics about the problem set
type ProblemStats struct {
	Total        int                `json:"total"`
	ByDifficulty map[Difficulty]int `json:"by_difficulty"`
	ByTopic      map[string]int     `json:"by_topic"`
}
