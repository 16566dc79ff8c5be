package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableRunner interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest, actor string) (*dto.GenerateTimetableResponse, error)
	Entries(ctx context.Context, query dto.TimetableEntryQuery) ([]models.TimetableEntry, *models.Pagination, error)
	PendingReview(ctx context.Context, page, pageSize int) ([]models.TimetableEntry, *models.Pagination, error)
}

type timetableExporter interface {
	Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportResult, error)
}

// TimetableHandler exposes generation, browsing and export endpoints.
type TimetableHandler struct {
	service  timetableRunner
	exporter timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService, exporter *service.ExportService) *TimetableHandler {
	return &TimetableHandler{service: svc, exporter: exporter}
}

// Generate godoc
// @Summary Generate the weekly timetable
// @Description Places every required session of every subject. Existing active entries are kept unless replaceExisting is set.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest false "Constraint overrides"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Entries godoc
// @Summary List timetable entries
// @Tags Timetable
// @Produce json
// @Param facultyId query string false "Faculty ID"
// @Param classroomId query string false "Classroom ID"
// @Param subjectId query string false "Subject ID"
// @Param day query int false "Day of week (1=Monday)"
// @Param status query string false "ACTIVE or CANCELLED_PENDING_REVIEW"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetable/entries [get]
func (h *TimetableHandler) Entries(c *gin.Context) {
	var query dto.TimetableEntryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	entries, pagination, err := h.service.Entries(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// PendingReview godoc
// @Summary List entries cancelled by a reschedule and awaiting review
// @Tags Timetable
// @Produce json
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetable/entries/pending-review [get]
func (h *TimetableHandler) PendingReview(c *gin.Context) {
	entries, pagination, err := h.service.PendingReview(c.Request.Context(), intQuery(c, "page", 1), intQuery(c, "pageSize", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Export godoc
// @Summary Download the active timetable
// @Tags Timetable
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Param facultyId query string false "Faculty ID"
// @Param classroomId query string false "Classroom ID"
// @Success 200 {file} file
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export parameters"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleFaculty {
		query.FacultyID = claims.FacultyID
	}
	result, err := h.exporter.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}
