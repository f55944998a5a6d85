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

// AssignmentHandler handles assignment-related HTTP requests
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
	}
}

// Assign gives a problem to the authenticated user
// POST /api/assignments
func (h *AssignmentHandler) Assign(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	var req domain.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	assignment, err := h.assignmentService.Assign(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAssignmentExists):
			c.JSON(http.StatusConflict, gin.H{
				"error": "This problem is already assigned to you",
			})
		case errors.Is(err, domain.ErrProblemNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Problem not found",
			})
		case errors.Is(err, domain.ErrProblemNotActive):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Problem is outside its active time window",
			})
		case errors.Is(err, domain.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Invalid access code",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to assign problem",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, assignment.ToResponse())
}

// Unassign removes the authenticated user's assignment for a problem
// DELETE /api/assignments/:problemId
func (h *AssignmentHandler) Unassign(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	problemID, err := uuid.Parse(c.Param("problemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid problem ID",
		})
		return
	}

	deletedID, err := h.assignmentService.Unassign(c.Request.Context(), userID, problemID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAssignmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "No assignment exists for this problem",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to unassign problem",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted_assignment_id": deletedID,
	})
}

// Start marks the authenticated user's assignment as in progress
// POST /api/assignments/:problemId/start
func (h *AssignmentHandler) Start(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	problemID, err := uuid.Parse(c.Param("problemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid problem ID",
		})
		return
	}

	assignment, err := h.assignmentService.Start(c.Request.Context(), userID, problemID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAssignmentRequired):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Assign the problem before starting it",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to start assignment",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assignment_id": assignment.ID,
		"attempts":      assignment.Attempts,
		"status":        assignment.Status,
	})
}

// ListByStatus returns the authenticated user's assignments filtered by status
// GET /api/assignments?status=pending
func (h *AssignmentHandler) ListByStatus(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	status := domain.AssignmentStatus(c.DefaultQuery("status", string(domain.AssignmentStatusPending)))

	assignments, err := h.assignmentService.ListByStatus(c.Request.Context(), userID, status)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBadRequest):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown assignment status",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve assignments",
			})
		}
		return
	}

	responses := make([]domain.AssignmentResponse, len(assignments))
	for i, assignment := range assignments {
		responses[i] = assignment.ToResponse()
	}

	c.JSON(http.StatusOK, gin.H{
		"assignments": responses,
		"count":       len(responses),
	})
}
