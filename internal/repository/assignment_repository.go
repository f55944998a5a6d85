package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codegrade/backend/internal/domain"
)

// assignmentRepository implements domain.AssignmentRepository using GORM
type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *gorm.DB) domain.AssignmentRepository {
	return &assignmentRepository{db: db}
}

// Create inserts a new assignment. The unique (user_id, problem_id) index
// resolves races between concurrent assigns: the loser gets Conflict.
func (r *assignmentRepository) Create(assignment *domain.Assignment) error {
	result := r.db.Create(assignment)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domain.ErrAssignmentExists
		}
		return result.Error
	}
	return nil
}

// FindByID finds an assignment by its ID
func (r *assignmentRepository) FindByID(id uuid.UUID) (*domain.Assignment, error) {
	var assignment domain.Assignment
	result := r.db.Where("id = ?", id).First(&assignment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAssignmentNotFound
		}
		return nil, result.Error
	}
	return &assignment, nil
}

// FindByUserAndProblem finds the assignment for a (user, problem) pair
func (r *assignmentRepository) FindByUserAndProblem(userID, problemID uuid.UUID) (*domain.Assignment, error) {
	var assignment domain.Assignment
	result := r.db.
		Where("user_id = ? AND problem_id = ?", userID, problemID).
		First(&assignment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAssignmentNotFound
		}
		return nil, result.Error
	}
	return &assignment, nil
}

// FindByUserAndStatus returns a user's assignments in the given status with
// their problems loaded, newest first
func (r *assignmentRepository) FindByUserAndStatus(userID uuid.UUID, status domain.AssignmentStatus) ([]domain.Assignment, error) {
	var assignments []domain.Assignment
	result := r.db.
		Preload("Problem").
		Where("user_id = ? AND status = ?", userID, status).
		Order("created_at DESC").
		Find(&assignments)
	return assignments, result.Error
}

// CountByUserAndStatus counts a user's assignments in the given status
func (r *assignmentRepository) CountByUserAndStatus(userID uuid.UUID, status domain.AssignmentStatus) (int64, error) {
	var count int64
	result := r.db.Model(&domain.Assignment{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&count)
	return count, result.Error
}

// Update persists changes to an existing assignment
func (r *assignmentRepository) Update(assignment *domain.Assignment) error {
	return r.db.Save(assignment).Error
}

// Delete removes an assignment by its ID
func (r *assignmentRepository) Delete(id uuid.UUID) error {
	result := r.db.Delete(&domain.Assignment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAssignmentNotFound
	}
	return nil
}

// WithContext returns a repository with the given context for tracing
func (r *assignmentRepository) WithContext(ctx context.Context) domain.AssignmentRepository {
	return &assignmentRepository{db: r.db.WithContext(ctx)}
}

// isUniqueViolation detects a unique constraint error from the driver.
// GORM only translates these when the dialector has TranslateError enabled,
// so the raw Postgres error text is checked as well.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key value")
}
