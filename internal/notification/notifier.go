// Package notification publishes submission lifecycle events to the
// surrounding system. Delivery is best effort: a failed publish is logged and
// never fails the request that triggered it.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubmissionGradedEvent is emitted after a submission has been durably
// recorded and its assignment marked completed.
type SubmissionGradedEvent struct {
	SubmissionID   uuid.UUID `json:"submission_id"`
	UserID         uuid.UUID `json:"user_id"`
	ProblemID      uuid.UUID `json:"problem_id"`
	TotalScore     float64   `json:"total_score"`
	CompletedTasks int       `json:"completed_tasks"`
	TotalTasks     int       `json:"total_tasks"`
	GradedAt       time.Time `json:"graded_at"`
}

// Notifier delivers events to interested collaborators (mailers, dashboards)
type Notifier interface {
	SubmissionGraded(ctx context.Context, event SubmissionGradedEvent) error
	Close() error
}

// NopNotifier discards all events. Used when no broker is configured.
type NopNotifier struct{}

// SubmissionGraded implements Notifier
func (NopNotifier) SubmissionGraded(ctx context.Context, event SubmissionGradedEvent) error {
	return nil
}

// Close implements Notifier
func (NopNotifier) Close() error {
	return nil
}
