package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func entryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "subject_id", "faculty_id", "classroom_id", "day_of_week", "start_time", "end_time", "class_type", "status", "version", "created_by", "created_at", "updated_at"})
}

func sampleEntry(id string) models.TimetableEntry {
	return models.TimetableEntry{
		ID:          id,
		SubjectID:   "s1",
		FacultyID:   "F1",
		ClassroomID: "C1",
		DayOfWeek:   1,
		StartTime:   models.MustClock("09:00"),
		EndTime:     models.MustClock("10:00"),
		ClassType:   models.ClassTypeLecture,
		Status:      models.EntryStatusActive,
		Version:     3,
		CreatedBy:   "admin",
	}
}

const (
	clashQuery      = `SELECT id FROM timetable_entries WHERE status = \$1 AND day_of_week = \$2 AND id <> \$3 AND \(\(faculty_id = \$4 AND start_time < \$5 AND end_time > \$6\) OR \(classroom_id = \$7 AND start_time < \$8 AND end_time > \$9\)\)`
	dailyLoadQuery  = `SELECT COALESCE\(SUM\(EXTRACT\(EPOCH FROM \(end_time - start_time\)\)\), 0\)::bigint / 60 FROM timetable_entries WHERE status = \$1 AND faculty_id = \$2 AND day_of_week = \$3`
	weeklyLoadQuery = `SELECT COALESCE\(SUM\(EXTRACT\(EPOCH FROM \(end_time - start_time\)\)\), 0\)::bigint / 60 FROM timetable_entries WHERE status = \$1 AND faculty_id = \$2$`
)

func defaultLimits() models.ConstraintProfile {
	return models.ConstraintProfile{MaxDailyHours: 8, MaxWeeklyHours: 40, MinGapBetweenClasses: 15}
}

func minutesRow(minutes int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"minutes"}).AddRow(minutes)
}

func TestTimetableEntryRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, subject_id, (.+) FROM timetable_entries WHERE \(faculty_id = \$1 AND day_of_week = \$2\) ORDER BY day_of_week ASC, start_time ASC, id ASC LIMIT 20 OFFSET 0`).
		WithArgs("F1", 1).
		WillReturnRows(entryRows().AddRow("e1", "s1", "F1", "C1", 1, "09:00:00", "10:00:00", "LECTURE", "ACTIVE", 1, "admin", now, now))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM timetable_entries WHERE \(faculty_id = \$1 AND day_of_week = \$2\)`).
		WithArgs("F1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := repo.List(context.Background(), models.TimetableEntryFilter{FacultyID: "F1", DayOfWeek: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, models.MustClock("09:00"), entries[0].StartTime)
	assert.Equal(t, 60, entries[0].Minutes())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM timetable_entries WHERE status = \$1`).
		WithArgs("ACTIVE").
		WillReturnRows(entryRows().
			AddRow("e1", "s1", "F1", "C1", 1, "09:00:00", "10:00:00", "LECTURE", "ACTIVE", 1, "admin", now, now).
			AddRow("e2", "s2", "F2", "L1", 2, "13:00:00", "15:00:00", "LAB", "ACTIVE", 2, "admin", now, now))

	entries, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ClassTypeLab, entries[1].ClassType)
	assert.Equal(t, 120, entries[1].Minutes())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryApplyDiff(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	deleted := sampleEntry("old")
	cancelled := sampleEntry("gone")
	updated := sampleEntry("moved")
	updated.FacultyID = "F2"
	created := sampleEntry("new")
	created.DayOfWeek = 2

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM timetable_entries WHERE id = \$1 AND version = \$2`).
		WithArgs("old", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE timetable_entries SET status = \$1, version = version \+ 1, updated_at = \$2 WHERE id = \$3 AND version = \$4 AND status = \$5`).
		WithArgs("CANCELLED_PENDING_REVIEW", sqlmock.AnyArg(), "gone", 3, "ACTIVE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE timetable_entries SET faculty_id = \$1, classroom_id = \$2, day_of_week = \$3, start_time = \$4, end_time = \$5, version = version \+ 1`).
		WithArgs("F2", "C1", 1, "09:00", "10:00", sqlmock.AnyArg(), "moved", 3, "ACTIVE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO timetable_entries`).
		WithArgs("new", "s1", "F1", "C1", 2, "09:00", "10:00", "LECTURE", "ACTIVE", 1, "admin", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(clashQuery).
		WithArgs("ACTIVE", 2, "new", "F1", "10:15", "08:45", "C1", "10:00", "09:00").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(clashQuery).
		WithArgs("ACTIVE", 1, "moved", "F2", "10:15", "08:45", "C1", "10:00", "09:00").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(dailyLoadQuery).
		WithArgs("ACTIVE", "F1", 2).
		WillReturnRows(minutesRow(60))
	mock.ExpectQuery(dailyLoadQuery).
		WithArgs("ACTIVE", "F2", 1).
		WillReturnRows(minutesRow(120))
	mock.ExpectQuery(weeklyLoadQuery).
		WithArgs("ACTIVE", "F1").
		WillReturnRows(minutesRow(300))
	mock.ExpectQuery(weeklyLoadQuery).
		WithArgs("ACTIVE", "F2").
		WillReturnRows(minutesRow(600))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.ApplyDiff(context.Background(), tx, models.TimetableDiff{
		Created:   []models.TimetableEntry{created},
		Updated:   []models.TimetableEntry{updated},
		Cancelled: []models.TimetableEntry{cancelled},
		Deleted:   []models.TimetableEntry{deleted},
	}, defaultLimits())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryApplyDiffStaleVersion(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	mock.ExpectExec(`UPDATE timetable_entries SET status = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyDiff(context.Background(), db, models.TimetableDiff{
		Cancelled: []models.TimetableEntry{sampleEntry("gone")},
	}, defaultLimits())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStaleWrite))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryApplyDiffDetectsOverlap(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	mock.ExpectExec(`INSERT INTO timetable_entries`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id FROM timetable_entries`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("external"))

	err := repo.ApplyDiff(context.Background(), db, models.TimetableDiff{
		Created: []models.TimetableEntry{sampleEntry("new")},
	}, models.ConstraintProfile{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStaleWrite)
	assert.Contains(t, err.Error(), "external")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func substituteEntry() models.TimetableEntry {
	entry := sampleEntry("sub")
	entry.FacultyID = "F2"
	entry.StartTime = models.MustClock("10:00")
	entry.EndTime = models.MustClock("11:00")
	return entry
}

func expectSubstituteUpdate(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`UPDATE timetable_entries SET faculty_id = \$1`).
		WithArgs("F2", "C1", 1, "10:00", "11:00", sqlmock.AnyArg(), "sub", 3, "ACTIVE").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestTimetableEntryRepositoryApplyDiffRejectsGapBreach(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	// another run already gave F2 the 09:00-10:00 slot
	expectSubstituteUpdate(mock)
	mock.ExpectQuery(clashQuery).
		WithArgs("ACTIVE", 1, "sub", "F2", "11:15", "09:45", "C1", "11:00", "10:00").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("back-to-back"))

	err := repo.ApplyDiff(context.Background(), db, models.TimetableDiff{
		Updated: []models.TimetableEntry{substituteEntry()},
	}, defaultLimits())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStaleWrite)
	assert.Contains(t, err.Error(), "back-to-back")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryApplyDiffClampsGapWindow(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	early := sampleEntry("early")
	early.StartTime = models.MustClock("00:10")
	early.EndTime = models.MustClock("00:40")
	mock.ExpectExec(`INSERT INTO timetable_entries`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(clashQuery).
		WithArgs("ACTIVE", 1, "early", "F1", "00:55", "00:00", "C1", "00:40", "00:10").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := repo.ApplyDiff(context.Background(), db, models.TimetableDiff{
		Created: []models.TimetableEntry{early},
	}, models.ConstraintProfile{MinGapBetweenClasses: 15})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryApplyDiffRejectsDailyLoad(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	limits := defaultLimits()
	limits.MaxDailyHours = 2
	expectSubstituteUpdate(mock)
	mock.ExpectQuery(clashQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(dailyLoadQuery).
		WithArgs("ACTIVE", "F2", 1).
		WillReturnRows(minutesRow(180))

	err := repo.ApplyDiff(context.Background(), db, models.TimetableDiff{
		Updated: []models.TimetableEntry{substituteEntry()},
	}, limits)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStaleWrite)
	assert.Contains(t, err.Error(), "faculty F2 teaches 180 minutes on day 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryApplyDiffRejectsWeeklyLoad(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	limits := defaultLimits()
	limits.MaxWeeklyHours = 4
	expectSubstituteUpdate(mock)
	mock.ExpectQuery(clashQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(dailyLoadQuery).
		WithArgs("ACTIVE", "F2", 1).
		WillReturnRows(minutesRow(120))
	mock.ExpectQuery(weeklyLoadQuery).
		WithArgs("ACTIVE", "F2").
		WillReturnRows(minutesRow(300))

	err := repo.ApplyDiff(context.Background(), db, models.TimetableDiff{
		Updated: []models.TimetableEntry{substituteEntry()},
	}, limits)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStaleWrite)
	assert.Contains(t, err.Error(), "300 minutes a week")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryApplyDiffSkipsUnsetLoadLimits(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	expectSubstituteUpdate(mock)
	mock.ExpectQuery(clashQuery).
		WithArgs("ACTIVE", 1, "sub", "F2", "11:00", "10:00", "C1", "11:00", "10:00").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := repo.ApplyDiff(context.Background(), db, models.TimetableDiff{
		Updated: []models.TimetableEntry{substituteEntry()},
	}, models.ConstraintProfile{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
