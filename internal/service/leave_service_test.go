package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type leaveStoreStub struct {
	leaves       map[string]*models.LeaveRequest
	upserted     []models.LeaveRequest
	reviewErr    error
	lastFilter   models.LeaveFilter
	statusWrites map[string]models.RescheduleStatus
}

func newLeaveStoreStub(leaves ...models.LeaveRequest) *leaveStoreStub {
	s := &leaveStoreStub{leaves: map[string]*models.LeaveRequest{}, statusWrites: map[string]models.RescheduleStatus{}}
	for i := range leaves {
		leave := leaves[i]
		s.leaves[leave.ID] = &leave
	}
	return s
}

func (s *leaveStoreStub) Upsert(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = "leave-new"
	}
	leave.Status = models.LeaveStatusPending
	leave.RescheduleStatus = models.RescheduleStatusNone
	s.upserted = append(s.upserted, *leave)
	return nil
}

func (s *leaveStoreStub) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	leave, ok := s.leaves[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *leave
	return &clone, nil
}

func (s *leaveStoreStub) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	s.lastFilter = filter
	var out []models.LeaveRequest
	for _, leave := range s.leaves {
		if filter.Status != "" && leave.Status != filter.Status {
			continue
		}
		if filter.RescheduleStatus != "" && leave.RescheduleStatus != filter.RescheduleStatus {
			continue
		}
		out = append(out, *leave)
	}
	return out, len(out), nil
}

func (s *leaveStoreStub) Review(ctx context.Context, exec sqlx.ExecerContext, id string, status models.LeaveStatus, reviewedBy string) (time.Time, error) {
	if s.reviewErr != nil {
		return time.Time{}, s.reviewErr
	}
	s.leaves[id].Status = status
	return time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC), nil
}

func (s *leaveStoreStub) SetRescheduleStatus(ctx context.Context, exec sqlx.ExecerContext, id string, status models.RescheduleStatus) error {
	s.statusWrites[id] = status
	if leave, ok := s.leaves[id]; ok {
		leave.RescheduleStatus = status
	}
	return nil
}

type facultyStub map[string]models.FacultyProfile

func (f facultyStub) FindByID(ctx context.Context, id string) (*models.FacultyProfile, error) {
	profile, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &profile, nil
}

type rescheduleRunnerStub struct {
	errs  []error
	calls []models.LeaveRequest
}

func (r *rescheduleRunnerStub) Reschedule(ctx context.Context, leave models.LeaveRequest, actor string) (*dto.RescheduleResponse, error) {
	r.calls = append(r.calls, leave)
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &dto.RescheduleResponse{LeaveID: leave.ID, Day: leave.Weekday(), Outcomes: []dto.RescheduleOutcome{
		{EntryID: "E1", Outcome: "SUBSTITUTED", FacultyID: "F2"},
	}}, nil
}

func pendingLeave(id string) models.LeaveRequest {
	return models.LeaveRequest{
		ID:               id,
		FacultyID:        "F1",
		Date:             time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Status:           models.LeaveStatusPending,
		RescheduleStatus: models.RescheduleStatusNone,
	}
}

func newLeaveServiceFixture(t *testing.T, store *leaveStoreStub, runner *rescheduleRunnerStub) (*LeaveService, sqlmock.Sqlmock, *notifierStub) {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	notifier := &notifierStub{}
	svc := NewLeaveService(store, facultyStub{"F1": {ID: "F1", Name: "Ada"}}, runner, tx, notifier, nil, nil)
	return svc, mock, notifier
}

func TestLeaveServiceSubmit(t *testing.T) {
	store := newLeaveStoreStub()
	svc, _, notifier := newLeaveServiceFixture(t, store, &rescheduleRunnerStub{})
	reason := "conference"

	leave, err := svc.Submit(context.Background(), "F1", dto.SubmitLeaveRequest{Date: "2024-01-01", Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusPending, leave.Status)
	assert.Equal(t, 1, leave.Weekday())
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "F1", store.upserted[0].FacultyID)
	assert.Equal(t, []string{EventLeaveSubmitted}, notifier.types())
}

func TestLeaveServiceSubmitValidation(t *testing.T) {
	svc, _, _ := newLeaveServiceFixture(t, newLeaveStoreStub(), &rescheduleRunnerStub{})

	_, err := svc.Submit(context.Background(), "F1", dto.SubmitLeaveRequest{Date: "01/02/2024"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Submit(context.Background(), "", dto.SubmitLeaveRequest{Date: "2024-01-01"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Submit(context.Background(), "F9", dto.SubmitLeaveRequest{Date: "2024-01-01"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestLeaveServiceApproveRunsReschedule(t *testing.T) {
	store := newLeaveStoreStub(pendingLeave("leave-1"))
	runner := &rescheduleRunnerStub{}
	tx, mock := newTxProviderMock(t)
	notifier := &notifierStub{}
	svc := NewLeaveService(store, facultyStub{}, runner, tx, notifier, nil, nil)
	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Review(context.Background(), "leave-1", dto.ReviewLeaveRequest{Action: dto.LeaveActionApprove}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, string(models.LeaveStatusApproved), resp.Status)
	assert.Equal(t, string(models.RescheduleStatusDone), resp.RescheduleStatus)
	require.NotNil(t, resp.Reschedule)
	assert.Len(t, resp.Reschedule.Outcomes, 1)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, models.LeaveStatusApproved, runner.calls[0].Status)
	assert.Equal(t, models.RescheduleStatusDone, store.statusWrites["leave-1"])
	assert.Equal(t, []string{EventLeaveReviewed}, notifier.types())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveServiceApproveKeepsApprovalWhenRescheduleFails(t *testing.T) {
	store := newLeaveStoreStub(pendingLeave("leave-1"))
	runner := &rescheduleRunnerStub{errs: []error{appErrors.ErrPersistenceConflict}}
	tx, mock := newTxProviderMock(t)
	svc := NewLeaveService(store, facultyStub{}, runner, tx, nil, nil, nil)
	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Review(context.Background(), "leave-1", dto.ReviewLeaveRequest{Action: dto.LeaveActionApprove}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.LeaveStatusApproved), resp.Status)
	assert.Equal(t, string(models.RescheduleStatusFailed), resp.RescheduleStatus)
	assert.Nil(t, resp.Reschedule)
	assert.Equal(t, models.RescheduleStatusFailed, store.statusWrites["leave-1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveServiceReject(t *testing.T) {
	store := newLeaveStoreStub(pendingLeave("leave-1"))
	runner := &rescheduleRunnerStub{}
	svc, mock, _ := newLeaveServiceFixture(t, store, runner)
	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Review(context.Background(), "leave-1", dto.ReviewLeaveRequest{Action: dto.LeaveActionReject}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.LeaveStatusRejected), resp.Status)
	assert.Nil(t, resp.Reschedule)
	assert.Empty(t, runner.calls)
	assert.Empty(t, store.statusWrites)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveServiceReviewConflicts(t *testing.T) {
	reviewed := pendingLeave("leave-2")
	reviewed.Status = models.LeaveStatusApproved
	store := newLeaveStoreStub(pendingLeave("leave-1"), reviewed)
	svc, _, _ := newLeaveServiceFixture(t, store, &rescheduleRunnerStub{})

	_, err := svc.Review(context.Background(), "leave-2", dto.ReviewLeaveRequest{Action: dto.LeaveActionApprove}, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Review(context.Background(), "missing", dto.ReviewLeaveRequest{Action: dto.LeaveActionApprove}, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Review(context.Background(), "leave-1", dto.ReviewLeaveRequest{Action: "MAYBE"}, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLeaveServiceReviewRaceMapsToConflict(t *testing.T) {
	store := newLeaveStoreStub(pendingLeave("leave-1"))
	store.reviewErr = repository.ErrStaleWrite
	tx, mock := newTxProviderMock(t)
	svc := NewLeaveService(store, facultyStub{}, &rescheduleRunnerStub{}, tx, nil, nil, nil)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Review(context.Background(), "leave-1", dto.ReviewLeaveRequest{Action: dto.LeaveActionApprove}, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveServiceRetryFailed(t *testing.T) {
	failedA := pendingLeave("leave-a")
	failedA.Status = models.LeaveStatusApproved
	failedA.RescheduleStatus = models.RescheduleStatusFailed
	failedB := failedA
	failedB.ID = "leave-b"
	done := failedA
	done.ID = "leave-c"
	done.RescheduleStatus = models.RescheduleStatusDone
	store := newLeaveStoreStub(failedA, failedB, done)
	runner := &rescheduleRunnerStub{errs: []error{nil, errors.New("still locked")}}
	svc, _, _ := newLeaveServiceFixture(t, store, runner)

	repaired, err := svc.RetryFailed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, repaired)
	assert.Len(t, runner.calls, 2)
	assert.Equal(t, models.LeaveStatusApproved, store.lastFilter.Status)
	assert.Equal(t, models.RescheduleStatusFailed, store.lastFilter.RescheduleStatus)
	assert.Len(t, store.statusWrites, 2)
	assert.NotContains(t, store.statusWrites, "leave-c")
}

func TestLeaveServiceList(t *testing.T) {
	store := newLeaveStoreStub(pendingLeave("leave-1"))
	svc, _, _ := newLeaveServiceFixture(t, store, &rescheduleRunnerStub{})

	leaves, page, err := svc.List(context.Background(), dto.LeaveQuery{Status: "PENDING", From: "2024-01-01"})
	require.NoError(t, err)
	assert.Len(t, leaves, 1)
	assert.Equal(t, 1, page.TotalCount)
	require.NotNil(t, store.lastFilter.From)
	assert.Equal(t, 2024, store.lastFilter.From.Year())

	_, _, err = svc.List(context.Background(), dto.LeaveQuery{Status: "UNKNOWN"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
