package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codegrade/backend/internal/domain"
)

// problemRepository implements domain.ProblemRepository using GORM.
// Problems and tasks are authored by administrative surfaces outside this
// service, so the repository is read-only.
type problemRepository struct {
	db *gorm.DB
}

// NewProblemRepository creates a new problem repository
func NewProblemRepository(db *gorm.DB) domain.ProblemRepository {
	return &problemRepository{db: db}
}

// FindByID finds a problem by its ID without loading tasks
func (r *problemRepository) FindByID(id uuid.UUID) (*domain.Problem, error) {
	var problem domain.Problem
	result := r.db.Where("id = ?", id).First(&problem)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProblemNotFound
		}
		return nil, result.Error
	}
	return &problem, nil
}

// FindByIDWithTasks finds a problem with its task associations loaded in
// their authored order
func (r *problemRepository) FindByIDWithTasks(id uuid.UUID) (*domain.Problem, error) {
	var problem domain.Problem
	result := r.db.
		Preload("ProblemTasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("problem_tasks.order ASC")
		}).
		Preload("ProblemTasks.Task").
		Where("id = ?", id).
		First(&problem)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProblemNotFound
		}
		return nil, result.Error
	}
	return &problem, nil
}

// FindBySlug finds a problem by its slug
func (r *problemRepository) FindBySlug(slug string) (*domain.Problem, error) {
	var problem domain.Problem
	result := r.db.Where("slug = ?", slug).First(&problem)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProblemNotFound
		}
		return nil, result.Error
	}
	return &problem, nil
}

// FindAll returns all problems ordered by creation date
func (r *problemRepository) FindAll() ([]domain.Problem, error) {
	var problems []domain.Problem
	result := r.db.Order("created_at ASC").Find(&problems)
	return problems, result.Error
}

// FindByDifficulty returns all problems with the specified difficulty
func (r *problemRepository) FindByDifficulty(difficulty domain.Difficulty) ([]domain.Problem, error) {
	var problems []domain.Problem
	result := r.db.Where("difficulty = ?", difficulty).Order("created_at ASC").Find(&problems)
	return problems, result.Error
}

// Count returns the total number of problems
func (r *problemRepository) Count() (int64, error) {
	var count int64
	result := r.db.Model(&domain.Problem{}).Count(&count)
	return count, result.Error
}

// WithContext returns a repository with the given context for tracing
func (r *problemRepository) WithContext(ctx context.Context) domain.ProblemRepository {
	return &problemRepository{db: r.db.WithContext(ctx)}
}
