package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type leaveManager interface {
	Submit(ctx context.Context, facultyID string, req dto.SubmitLeaveRequest) (*models.LeaveRequest, error)
	List(ctx context.Context, query dto.LeaveQuery) ([]models.LeaveRequest, *models.Pagination, error)
	Review(ctx context.Context, id string, req dto.ReviewLeaveRequest, reviewer string) (*dto.ReviewLeaveResponse, error)
}

// LeaveHandler exposes leave submission and review endpoints.
type LeaveHandler struct {
	service leaveManager
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(svc *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// Submit godoc
// @Summary Submit a leave request
// @Description Faculty submit for themselves. Admins must name the faculty member.
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.SubmitLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}

	facultyID := req.FacultyID
	if claims.Role == models.RoleFaculty {
		if facultyID != "" && facultyID != claims.FacultyID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "cannot submit leave for another faculty member"))
			return
		}
		facultyID = claims.FacultyID
	}

	leave, err := h.service.Submit(c.Request.Context(), facultyID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// List godoc
// @Summary List leave requests
// @Tags Leaves
// @Produce json
// @Param facultyId query string false "Faculty ID (admins only)"
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param rescheduleStatus query string false "NONE, DONE or FAILED"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	var query dto.LeaveQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleFaculty {
		query.FacultyID = claims.FacultyID
	}
	leaves, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, pagination)
}

// Review godoc
// @Summary Approve or reject a pending leave
// @Description Approval triggers an emergency reschedule of the faculty member's classes for that day.
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body dto.ReviewLeaveRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/review [post]
func (h *LeaveHandler) Review(c *gin.Context) {
	var req dto.ReviewLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	result, err := h.service.Review(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
