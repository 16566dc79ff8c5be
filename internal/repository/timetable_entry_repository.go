package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

var entryColumns = []string{
	"id", "subject_id", "faculty_id", "classroom_id", "day_of_week", "start_time", "end_time",
	"class_type", "status", "version", "created_by", "created_at", "updated_at",
}

// TimetableEntryRepository persists timetable entries.
type TimetableEntryRepository struct {
	db  *sqlx.DB
	sb  squirrel.StatementBuilderType
	now func() time.Time
}

// NewTimetableEntryRepository creates a new entry repository.
func NewTimetableEntryRepository(db *sqlx.DB) *TimetableEntryRepository {
	return &TimetableEntryRepository{
		db:  db,
		sb:  statementBuilder(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// List returns entries matching the filter ordered by day, start and id.
func (r *TimetableEntryRepository) List(ctx context.Context, filter models.TimetableEntryFilter) ([]models.TimetableEntry, int, error) {
	where := squirrel.And{}
	if filter.FacultyID != "" {
		where = append(where, squirrel.Eq{"faculty_id": filter.FacultyID})
	}
	if filter.ClassroomID != "" {
		where = append(where, squirrel.Eq{"classroom_id": filter.ClassroomID})
	}
	if filter.SubjectID != "" {
		where = append(where, squirrel.Eq{"subject_id": filter.SubjectID})
	}
	if filter.DayOfWeek > 0 {
		where = append(where, squirrel.Eq{"day_of_week": filter.DayOfWeek})
	}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"status": filter.Status})
	}

	limit, offset := paginate(filter.Page, filter.PageSize)
	query, args, err := r.sb.Select(entryColumns...).
		From("timetable_entries").
		Where(where).
		OrderBy("day_of_week ASC", "start_time ASC", "id ASC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list entries query: %w", err)
	}

	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetable entries: %w", err)
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("timetable_entries").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count entries query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count timetable entries: %w", err)
	}
	return entries, total, nil
}

// ListActive returns every ACTIVE entry.
func (r *TimetableEntryRepository) ListActive(ctx context.Context) ([]models.TimetableEntry, error) {
	query, args, err := r.sb.Select(entryColumns...).
		From("timetable_entries").
		Where(squirrel.Eq{"status": models.EntryStatusActive}).
		OrderBy("day_of_week ASC", "start_time ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active entries query: %w", err)
	}
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list active timetable entries: %w", err)
	}
	return entries, nil
}

// ApplyDiff writes a run's diff inside exec. Every update and delete is
// guarded by the version read with the snapshot. After the writes the
// occupying entries are re-checked against the stored timetable: overlaps,
// the faculty gap from limits, and the daily and weekly load of every
// touched faculty. Any mismatch returns ErrStaleWrite.
func (r *TimetableEntryRepository) ApplyDiff(ctx context.Context, exec sqlx.ExtContext, diff models.TimetableDiff, limits models.ConstraintProfile) error {
	now := r.now()

	for _, entry := range diff.Deleted {
		query, args, err := r.sb.Delete("timetable_entries").
			Where("id = ?", entry.ID).
			Where("version = ?", entry.Version).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete entry query: %w", err)
		}
		if err := execGuarded(ctx, exec, query, args, "delete entry "+entry.ID); err != nil {
			return err
		}
	}

	for _, entry := range diff.Cancelled {
		query, args, err := r.sb.Update("timetable_entries").
			Set("status", models.EntryStatusCancelledPendingReview).
			Set("version", squirrel.Expr("version + 1")).
			Set("updated_at", now).
			Where("id = ?", entry.ID).
			Where("version = ?", entry.Version).
			Where("status = ?", models.EntryStatusActive).
			ToSql()
		if err != nil {
			return fmt.Errorf("build cancel entry query: %w", err)
		}
		if err := execGuarded(ctx, exec, query, args, "cancel entry "+entry.ID); err != nil {
			return err
		}
	}

	for _, entry := range diff.Updated {
		query, args, err := r.sb.Update("timetable_entries").
			Set("faculty_id", entry.FacultyID).
			Set("classroom_id", entry.ClassroomID).
			Set("day_of_week", entry.DayOfWeek).
			Set("start_time", entry.StartTime).
			Set("end_time", entry.EndTime).
			Set("version", squirrel.Expr("version + 1")).
			Set("updated_at", now).
			Where("id = ?", entry.ID).
			Where("version = ?", entry.Version).
			Where("status = ?", models.EntryStatusActive).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update entry query: %w", err)
		}
		if err := execGuarded(ctx, exec, query, args, "update entry "+entry.ID); err != nil {
			return err
		}
	}

	if len(diff.Created) > 0 {
		insert := r.sb.Insert("timetable_entries").Columns(entryColumns...)
		for _, entry := range diff.Created {
			insert = insert.Values(
				entry.ID, entry.SubjectID, entry.FacultyID, entry.ClassroomID, entry.DayOfWeek,
				entry.StartTime, entry.EndTime, entry.ClassType, models.EntryStatusActive, 1,
				entry.CreatedBy, now, now,
			)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert entries query: %w", err)
		}
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert timetable entries: %w", err)
		}
	}

	return r.recheck(ctx, exec, diff.Occupying(), limits)
}

type facultyDay struct {
	facultyID string
	day       int
}

// recheck runs the post-write guards for the occupying entries of a diff.
func (r *TimetableEntryRepository) recheck(ctx context.Context, exec sqlx.QueryerContext, occupying []models.TimetableEntry, limits models.ConstraintProfile) error {
	var (
		days      []facultyDay
		faculties []string
		seenDay   = map[facultyDay]bool{}
		seen      = map[string]bool{}
	)
	for _, entry := range occupying {
		clashes, err := r.findClashes(ctx, exec, entry, limits.MinGapBetweenClasses)
		if err != nil {
			return err
		}
		if len(clashes) > 0 {
			return fmt.Errorf("entry %s clashes with %v: %w", entry.ID, clashes, ErrStaleWrite)
		}
		key := facultyDay{facultyID: entry.FacultyID, day: entry.DayOfWeek}
		if !seenDay[key] {
			seenDay[key] = true
			days = append(days, key)
		}
		if !seen[entry.FacultyID] {
			seen[entry.FacultyID] = true
			faculties = append(faculties, entry.FacultyID)
		}
	}

	if limits.MaxDailyHours > 0 {
		for _, key := range days {
			minutes, err := r.loadMinutes(ctx, exec, key.facultyID, key.day)
			if err != nil {
				return err
			}
			if minutes > limits.MaxDailyHours*60 {
				return fmt.Errorf("faculty %s teaches %d minutes on day %d, limit %dh: %w",
					key.facultyID, minutes, key.day, limits.MaxDailyHours, ErrStaleWrite)
			}
		}
	}
	if limits.MaxWeeklyHours > 0 {
		for _, facultyID := range faculties {
			minutes, err := r.loadMinutes(ctx, exec, facultyID, 0)
			if err != nil {
				return err
			}
			if minutes > limits.MaxWeeklyHours*60 {
				return fmt.Errorf("faculty %s teaches %d minutes a week, limit %dh: %w",
					facultyID, minutes, limits.MaxWeeklyHours, ErrStaleWrite)
			}
		}
	}
	return nil
}

// findClashes lists ACTIVE entries on the same day that share the room of
// entry and overlap it, or share its faculty and sit closer than gap minutes.
func (r *TimetableEntryRepository) findClashes(ctx context.Context, exec sqlx.QueryerContext, entry models.TimetableEntry, gap int) ([]string, error) {
	from := entry.StartTime.Add(-gap)
	if from < 0 {
		from = 0
	}
	until := entry.EndTime.Add(gap)
	if until > models.MinutesPerDay {
		until = models.MinutesPerDay
	}
	query, args, err := r.sb.Select("id").
		From("timetable_entries").
		Where("status = ?", models.EntryStatusActive).
		Where("day_of_week = ?", entry.DayOfWeek).
		Where("id <> ?", entry.ID).
		Where(squirrel.Or{
			squirrel.Expr("(faculty_id = ? AND start_time < ? AND end_time > ?)", entry.FacultyID, until, from),
			squirrel.Expr("(classroom_id = ? AND start_time < ? AND end_time > ?)", entry.ClassroomID, entry.EndTime, entry.StartTime),
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build clash query: %w", err)
	}
	var ids []string
	if err := sqlx.SelectContext(ctx, exec, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("find clashing entries: %w", err)
	}
	return ids, nil
}

// loadMinutes sums the ACTIVE teaching minutes of a faculty, for one day or
// for the whole week when day is 0.
func (r *TimetableEntryRepository) loadMinutes(ctx context.Context, exec sqlx.QueryerContext, facultyID string, day int) (int, error) {
	builder := r.sb.Select("COALESCE(SUM(EXTRACT(EPOCH FROM (end_time - start_time))), 0)::bigint / 60").
		From("timetable_entries").
		Where("status = ?", models.EntryStatusActive).
		Where("faculty_id = ?", facultyID)
	if day > 0 {
		builder = builder.Where("day_of_week = ?", day)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build load query: %w", err)
	}
	var minutes int
	if err := sqlx.GetContext(ctx, exec, &minutes, query, args...); err != nil {
		return 0, fmt.Errorf("sum faculty load: %w", err)
	}
	return minutes, nil
}

func execGuarded(ctx context.Context, exec sqlx.ExecerContext, query string, args []interface{}, what string) error {
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if affected != 1 {
		return fmt.Errorf("%s: %w", what, ErrStaleWrite)
	}
	return nil
}
