package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codegrade/backend/internal/domain"
	"github.com/codegrade/backend/internal/middleware"
	"github.com/codegrade/backend/internal/service"
)

// SubmissionHandler handles submission-related HTTP requests
type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(submissionService *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
	}
}

// Submit grades a batch of task solutions for a problem
// POST /api/problems/:id/submissions
func (h *SubmissionHandler) Submit(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	problemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid problem ID",
		})
		return
	}

	var req domain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	submission, err := h.submissionService.Submit(c.Request.Context(), userID, problemID, req.Solutions)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProblemNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Problem not found",
			})
		case errors.Is(err, domain.ErrEmptySolutions):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Submission must contain at least one solution",
			})
		case errors.Is(err, domain.ErrDuplicateSolutions):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Submission contains more than one solution for the same task",
			})
		case errors.Is(err, domain.ErrAssignmentRequired):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Assign the problem before submitting solutions",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to record submission",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, submission.ToResponse())
}

// GetSubmission returns one of the user's submissions with full evaluations
// GET /api/submissions/:id
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	submissionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid submission ID",
		})
		return
	}

	submission, err := h.submissionService.GetByID(c.Request.Context(), userID, submissionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSubmissionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Submission not found",
			})
		case errors.Is(err, domain.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "You may only view your own submissions",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve submission",
			})
		}
		return
	}

	c.JSON(http.StatusOK, submission.ToResponse())
}

// GetUserHistory returns the authenticated user's submission history
// GET /api/submissions
func (h *SubmissionHandler) GetUserHistory(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	history, err := h.submissionService.GetHistoryByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve submission history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": history,
		"count":       len(history),
	})
}

// GetProblemHistory returns the submission history for a problem
// GET /api/problems/:id/submissions
func (h *SubmissionHandler) GetProblemHistory(c *gin.Context) {
	if _, ok := middleware.RequireUser(c); !ok {
		return
	}

	problemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid problem ID",
		})
		return
	}

	history, err := h.submissionService.GetHistoryByProblem(c.Request.Context(), problemID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProblemNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Problem not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve submission history",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": history,
		"count":       len(history),
	})
}
