package domain

import "errors"

// Domain errors - these are business logic errors that should be translated
// to appropriate HTTP status codes by the handler layer

var (
	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// Problem errors
	ErrProblemNotFound  = errors.New("problem not found")
	ErrProblemNotActive = errors.New("problem is outside its active time window")
	ErrTaskNotFound     = errors.New("task not found")

	// Assignment errors
	ErrAssignmentExists   = errors.New("assignment already exists for this user and problem")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAssignmentRequired = errors.New("no assignment exists for this user and problem")

	// Submission errors
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrEmptySolutions     = errors.New("submission must contain at least one solution")
	ErrDuplicateSolutions = errors.New("submission contains more than one solution for the same task")

	// General errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with the given error and message
func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{
		Err:     err,
		Message: message,
	}
}
