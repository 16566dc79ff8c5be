package models

import "time"

// ClassType distinguishes lectures from laboratory sessions.
type ClassType string

const (
	ClassTypeLecture ClassType = "LECTURE"
	ClassTypeLab     ClassType = "LAB"
)

// EntryStatus tracks whether an entry still occupies its slot.
type EntryStatus string

const (
	EntryStatusActive                 EntryStatus = "ACTIVE"
	EntryStatusCancelledPendingReview EntryStatus = "CANCELLED_PENDING_REVIEW"
)

// TimetableEntry is one weekly recurring session. Only ACTIVE entries occupy
// their faculty and classroom.
type TimetableEntry struct {
	ID          string      `db:"id" json:"id"`
	SubjectID   string      `db:"subject_id" json:"subject_id"`
	FacultyID   string      `db:"faculty_id" json:"faculty_id"`
	ClassroomID string      `db:"classroom_id" json:"classroom_id"`
	DayOfWeek   int         `db:"day_of_week" json:"day_of_week"`
	StartTime   Clock       `db:"start_time" json:"start_time"`
	EndTime     Clock       `db:"end_time" json:"end_time"`
	ClassType   ClassType   `db:"class_type" json:"class_type"`
	Status      EntryStatus `db:"status" json:"status"`
	Version     int         `db:"version" json:"version"`
	CreatedBy   string      `db:"created_by" json:"created_by"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Minutes is the duration of the entry.
func (e TimetableEntry) Minutes() int {
	return int(e.EndTime - e.StartTime)
}

// Active reports whether the entry occupies its resources.
func (e TimetableEntry) Active() bool {
	return e.Status == EntryStatusActive
}

// TimetableEntryFilter describes query params for listing entries.
type TimetableEntryFilter struct {
	FacultyID   string
	ClassroomID string
	SubjectID   string
	DayOfWeek   int
	Status      EntryStatus
	Page        int
	PageSize    int
}

// TimetableDiff is the set of changes a run commits atomically. Updated,
// Cancelled and Deleted carry the version read when the run started.
type TimetableDiff struct {
	Created   []TimetableEntry `json:"created"`
	Updated   []TimetableEntry `json:"updated"`
	Cancelled []TimetableEntry `json:"cancelled"`
	Deleted   []TimetableEntry `json:"deleted"`
}

// Empty reports whether the diff changes nothing.
func (d TimetableDiff) Empty() bool {
	return len(d.Created)+len(d.Updated)+len(d.Cancelled)+len(d.Deleted) == 0
}

// Occupying returns the entries that hold a slot once the diff is applied.
func (d TimetableDiff) Occupying() []TimetableEntry {
	out := make([]TimetableEntry, 0, len(d.Created)+len(d.Updated))
	out = append(out, d.Created...)
	return append(out, d.Updated...)
}
