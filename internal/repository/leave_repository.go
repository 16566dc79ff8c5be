package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const leaveColumns = "id, faculty_id, date, reason, status, reschedule_status, reviewed_at, reviewed_by, created_at, updated_at"

// LeaveRepository persists leave requests.
type LeaveRepository struct {
	db  *sqlx.DB
	sb  squirrel.StatementBuilderType
	now func() time.Time
}

// NewLeaveRepository creates a new leave repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{
		db:  db,
		sb:  statementBuilder(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Upsert stores a leave request. A request for the same faculty and date is
// reopened as PENDING with the new reason.
func (r *LeaveRepository) Upsert(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := r.now()
	leave.Status = models.LeaveStatusPending
	leave.RescheduleStatus = models.RescheduleStatusNone
	leave.ReviewedAt = nil
	leave.ReviewedBy = nil
	leave.CreatedAt = now
	leave.UpdatedAt = now

	const query = `INSERT INTO leave_requests (id, faculty_id, date, reason, status, reschedule_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (faculty_id, date) DO UPDATE SET reason = EXCLUDED.reason, status = EXCLUDED.status, reschedule_status = EXCLUDED.reschedule_status, reviewed_at = NULL, reviewed_by = NULL, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query,
		leave.ID, leave.FacultyID, leave.Date, leave.Reason, leave.Status, leave.RescheduleStatus, now, now)
	if err := row.Scan(&leave.ID, &leave.CreatedAt); err != nil {
		return fmt.Errorf("upsert leave request: %w", err)
	}
	return nil
}

// FindByID loads a leave request by id.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE id = $1`
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		return nil, err
	}
	return &leave, nil
}

// List returns leave requests matching the filter, newest date first.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	where := squirrel.And{}
	if filter.FacultyID != "" {
		where = append(where, squirrel.Eq{"faculty_id": filter.FacultyID})
	}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"status": filter.Status})
	}
	if filter.RescheduleStatus != "" {
		where = append(where, squirrel.Eq{"reschedule_status": filter.RescheduleStatus})
	}
	if filter.From != nil {
		where = append(where, squirrel.GtOrEq{"date": *filter.From})
	}
	if filter.To != nil {
		where = append(where, squirrel.LtOrEq{"date": *filter.To})
	}

	limit, offset := paginate(filter.Page, filter.PageSize)
	query, args, err := r.sb.Select(leaveColumns).
		From("leave_requests").
		Where(where).
		OrderBy("date DESC", "id ASC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list leaves query: %w", err)
	}
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("leave_requests").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count leaves query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return leaves, total, nil
}

// ApprovedBetween returns the APPROVED leaves dated from..to inclusive.
func (r *LeaveRepository) ApprovedBetween(ctx context.Context, from, to time.Time) ([]models.LeaveRequest, error) {
	query, args, err := r.sb.Select(leaveColumns).
		From("leave_requests").
		Where("status = ?", models.LeaveStatusApproved).
		Where("date BETWEEN ? AND ?", from, to).
		OrderBy("date ASC", "faculty_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build approved leaves query: %w", err)
	}
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, fmt.Errorf("list approved leaves: %w", err)
	}
	return leaves, nil
}

// Review moves a PENDING request to status. A request that is no longer
// PENDING yields ErrStaleWrite.
func (r *LeaveRepository) Review(ctx context.Context, exec sqlx.ExecerContext, id string, status models.LeaveStatus, reviewedBy string) (time.Time, error) {
	reviewedAt := r.now()
	query, args, err := r.sb.Update("leave_requests").
		Set("status", status).
		Set("reviewed_at", reviewedAt).
		Set("reviewed_by", reviewedBy).
		Set("updated_at", reviewedAt).
		Where("id = ?", id).
		Where("status = ?", models.LeaveStatusPending).
		ToSql()
	if err != nil {
		return time.Time{}, fmt.Errorf("build review leave query: %w", err)
	}
	if err := execGuarded(ctx, exec, query, args, "review leave "+id); err != nil {
		return time.Time{}, err
	}
	return reviewedAt, nil
}

// SetRescheduleStatus records the outcome of the repair run for a leave.
func (r *LeaveRepository) SetRescheduleStatus(ctx context.Context, exec sqlx.ExecerContext, id string, status models.RescheduleStatus) error {
	if exec == nil {
		exec = r.db
	}
	query, args, err := r.sb.Update("leave_requests").
		Set("reschedule_status", status).
		Set("updated_at", r.now()).
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reschedule status query: %w", err)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set reschedule status for leave %s: %w", id, err)
	}
	return nil
}
