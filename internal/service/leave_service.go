package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type leaveStore interface {
	Upsert(ctx context.Context, leave *models.LeaveRequest) error
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error)
	Review(ctx context.Context, exec sqlx.ExecerContext, id string, status models.LeaveStatus, reviewedBy string) (time.Time, error)
	SetRescheduleStatus(ctx context.Context, exec sqlx.ExecerContext, id string, status models.RescheduleStatus) error
}

type facultyReader interface {
	FindByID(ctx context.Context, id string) (*models.FacultyProfile, error)
}

type rescheduleRunner interface {
	Reschedule(ctx context.Context, leave models.LeaveRequest, actor string) (*dto.RescheduleResponse, error)
}

// LeaveService manages leave requests and triggers the reschedule run when
// one is approved.
type LeaveService struct {
	leaves    leaveStore
	faculty   facultyReader
	runner    rescheduleRunner
	tx        txProvider
	notifier  eventNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveService constructs a LeaveService.
func NewLeaveService(leaves leaveStore, faculty facultyReader, runner rescheduleRunner, tx txProvider, notifier eventNotifier, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LeaveService{
		leaves:    leaves,
		faculty:   faculty,
		runner:    runner,
		tx:        tx,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// Submit records a leave for facultyID. Submitting again for the same date
// replaces the earlier request and puts it back to PENDING.
func (s *LeaveService) Submit(ctx context.Context, facultyID string, req dto.SubmitLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	if facultyID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "facultyId is required")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}

	if _, err := s.faculty.FindByID(ctx, facultyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}

	leave := &models.LeaveRequest{
		FacultyID: facultyID,
		Date:      date,
		Reason:    req.Reason,
	}
	if err := s.leaves.Upsert(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save leave request")
	}
	s.notify(EventLeaveSubmitted, leave)
	return leave, nil
}

// List returns leave requests matching the query.
func (s *LeaveService) List(ctx context.Context, query dto.LeaveQuery) ([]models.LeaveRequest, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave filter")
	}
	filter := models.LeaveFilter{
		FacultyID:        query.FacultyID,
		Status:           models.LeaveStatus(query.Status),
		RescheduleStatus: models.RescheduleStatus(query.RescheduleStatus),
		Page:             query.Page,
		PageSize:         query.PageSize,
	}
	if query.From != "" {
		from, _ := time.Parse(dateLayout, query.From)
		filter.From = &from
	}
	if query.To != "" {
		to, _ := time.Parse(dateLayout, query.To)
		filter.To = &to
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	leaves, total, err := s.leaves.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return leaves, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Review approves or rejects a PENDING leave. Approval runs the reschedule;
// a failed run keeps the approval and marks the leave for the retry sweep.
func (s *LeaveService) Review(ctx context.Context, id string, req dto.ReviewLeaveRequest, reviewer string) (*dto.ReviewLeaveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	leave, err := s.leaves.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if leave.Status != models.LeaveStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "leave request already reviewed")
	}

	status := models.LeaveStatusRejected
	if req.Action == dto.LeaveActionApprove {
		status = models.LeaveStatusApproved
	}
	reviewedAt, err := s.markReviewed(ctx, id, status, reviewer)
	if err != nil {
		return nil, err
	}
	leave.Status = status
	leave.ReviewedAt = &reviewedAt
	leave.ReviewedBy = &reviewer

	resp := &dto.ReviewLeaveResponse{
		LeaveID:          leave.ID,
		Status:           string(status),
		RescheduleStatus: string(leave.RescheduleStatus),
	}
	if status == models.LeaveStatusApproved {
		report, outcome := s.reschedule(ctx, *leave, reviewer)
		resp.Reschedule = report
		resp.RescheduleStatus = string(outcome)
		leave.RescheduleStatus = outcome
	}
	s.notify(EventLeaveReviewed, leave)
	return resp, nil
}

// RetryFailed re-runs the reschedule for approved leaves whose repair failed
// and returns how many now succeeded.
func (s *LeaveService) RetryFailed(ctx context.Context) (int, error) {
	leaves, _, err := s.leaves.List(ctx, models.LeaveFilter{
		Status:           models.LeaveStatusApproved,
		RescheduleStatus: models.RescheduleStatusFailed,
		Page:             1,
		PageSize:         200,
	})
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list failed reschedules")
	}

	done := 0
	for _, leave := range leaves {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, outcome := s.reschedule(ctx, leave, "system"); outcome == models.RescheduleStatusDone {
			done++
		}
	}
	return done, nil
}

func (s *LeaveService) markReviewed(ctx context.Context, id string, status models.LeaveStatus, reviewer string) (reviewedAt time.Time, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	reviewedAt, err = s.leaves.Review(ctx, tx, id, status, reviewer)
	if err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return time.Time{}, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "leave request already reviewed")
		}
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review leave request")
	}
	if err = tx.Commit(); err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit review")
	}
	return reviewedAt, nil
}

// reschedule runs the repair and records its outcome on the leave.
func (s *LeaveService) reschedule(ctx context.Context, leave models.LeaveRequest, actor string) (*dto.RescheduleResponse, models.RescheduleStatus) {
	outcome := models.RescheduleStatusDone
	report, err := s.runner.Reschedule(ctx, leave, actor)
	if err != nil {
		outcome = models.RescheduleStatusFailed
		s.logger.Error("reschedule failed",
			zap.String("leave_id", leave.ID),
			zap.String("faculty_id", leave.FacultyID),
			zap.Error(err),
		)
	}
	if err := s.leaves.SetRescheduleStatus(ctx, nil, leave.ID, outcome); err != nil {
		s.logger.Error("reschedule status not recorded",
			zap.String("leave_id", leave.ID),
			zap.String("status", string(outcome)),
			zap.Error(err),
		)
	}
	return report, outcome
}

func (s *LeaveService) notify(eventType string, leave *models.LeaveRequest) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(Event{Type: eventType, Payload: map[string]any{
		"leave_id":          leave.ID,
		"faculty_id":        leave.FacultyID,
		"date":              leave.Date.Format(dateLayout),
		"status":            leave.Status,
		"reschedule_status": leave.RescheduleStatus,
	}})
}
