package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codegrade/backend/internal/domain"
)

// submissionRepository implements domain.SubmissionRepository using GORM
type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *gorm.DB) domain.SubmissionRepository {
	return &submissionRepository{db: db}
}

// CreateAndCompleteAssignment writes the submission and flips the assignment
// to completed inside a single database transaction. If either statement
// fails the whole unit rolls back, so no partially graded state is ever
// visible to readers.
func (r *submissionRepository) CreateAndCompleteAssignment(submission *domain.Submission, assignmentID uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return err
		}

		result := tx.Model(&domain.Assignment{}).
			Where("id = ?", assignmentID).
			Update("status", domain.AssignmentStatusCompleted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrAssignmentNotFound
		}
		return nil
	})
}

// FindByID finds a submission by its ID
func (r *submissionRepository) FindByID(id uuid.UUID) (*domain.Submission, error) {
	var submission domain.Submission
	result := r.db.Where("id = ?", id).First(&submission)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, result.Error
	}
	return &submission, nil
}

// FindByUser returns all submissions for a user, newest first
func (r *submissionRepository) FindByUser(userID uuid.UUID) ([]domain.Submission, error) {
	var submissions []domain.Submission
	result := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&submissions)
	return submissions, result.Error
}

// FindByProblem returns all submissions for a problem, newest first
func (r *submissionRepository) FindByProblem(problemID uuid.UUID) ([]domain.Submission, error) {
	var submissions []domain.Submission
	result := r.db.
		Where("problem_id = ?", problemID).
		Order("created_at DESC").
		Find(&submissions)
	return submissions, result.Error
}

// CountByUser returns the total number of submissions for a user
func (r *submissionRepository) CountByUser(userID uuid.UUID) (int64, error) {
	var count int64
	result := r.db.Model(&domain.Submission{}).
		Where("user_id = ?", userID).
		Count(&count)
	return count, result.Error
}

// WithContext returns a repository with the given context for tracing
func (r *submissionRepository) WithContext(ctx context.Context) domain.SubmissionRepository {
	return &submissionRepository{db: r.db.WithContext(ctx)}
}
