package dto

import "github.com/noah-isme/timetable-api/internal/models"

// PreferredSlotRequest is a preferred window in HH:MM notation.
type PreferredSlotRequest struct {
	DayOfWeek int    `json:"dayOfWeek" validate:"min=0,max=7"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
}

// ConstraintsRequest carries the constraint profile of a generate call. Nil
// fields fall back to the configured defaults.
type ConstraintsRequest struct {
	MaxDailyHours        *int                   `json:"maxDailyHours" validate:"omitempty,min=1,max=24"`
	MaxWeeklyHours       *int                   `json:"maxWeeklyHours" validate:"omitempty,min=1,max=168"`
	MinGapBetweenClasses *int                   `json:"minGapBetweenClasses" validate:"omitempty,min=0,max=240"`
	PreferredTimeSlots   []PreferredSlotRequest `json:"preferredTimeSlots" validate:"omitempty,dive"`
	LabHoursRequired     *bool                  `json:"labHoursRequired"`
}

// GenerateTimetableRequest is the POST /timetable/generate payload.
type GenerateTimetableRequest struct {
	Constraints     ConstraintsRequest `json:"constraints"`
	ReplaceExisting bool               `json:"replaceExisting"`
}

// UnscheduledSession reports a session the generator could not place.
type UnscheduledSession struct {
	SubjectID    string           `json:"subjectId"`
	SubjectCode  string           `json:"subjectCode"`
	SessionIndex int              `json:"sessionIndex"`
	ClassType    models.ClassType `json:"classType"`
	Minutes      int              `json:"minutes"`
	Reason       string           `json:"reason"`
}

// GenerateTimetableResponse summarises a committed generation run.
type GenerateTimetableResponse struct {
	ScheduledCount int                  `json:"scheduledCount"`
	Unscheduled    []UnscheduledSession `json:"unscheduled"`
	Backtracks     int                  `json:"backtracks"`
	Diff           models.TimetableDiff `json:"diff"`
}

// RescheduleOutcome is the per-entry report of a reschedule run.
type RescheduleOutcome struct {
	EntryID     string       `json:"entryId"`
	Outcome     string       `json:"outcome"`
	FacultyID   string       `json:"facultyId"`
	ClassroomID string       `json:"classroomId"`
	Day         int          `json:"day"`
	Start       models.Clock `json:"start"`
	End         models.Clock `json:"end"`
	Reason      string       `json:"reason,omitempty"`
}

// RescheduleResponse lists the repairs of one reschedule run.
type RescheduleResponse struct {
	LeaveID  string              `json:"leaveId"`
	Day      int                 `json:"day"`
	Outcomes []RescheduleOutcome `json:"outcomes"`
}

// TimetableEntryQuery binds GET /timetable/entries query params.
type TimetableEntryQuery struct {
	FacultyID   string `form:"facultyId"`
	ClassroomID string `form:"classroomId"`
	SubjectID   string `form:"subjectId"`
	Day         int    `form:"day" validate:"omitempty,min=1,max=7"`
	Status      string `form:"status" validate:"omitempty,oneof=ACTIVE CANCELLED_PENDING_REVIEW"`
	Page        int    `form:"page" validate:"omitempty,min=1"`
	PageSize    int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

// Filter converts the query into a repository filter.
func (q TimetableEntryQuery) Filter() models.TimetableEntryFilter {
	return models.TimetableEntryFilter{
		FacultyID:   q.FacultyID,
		ClassroomID: q.ClassroomID,
		SubjectID:   q.SubjectID,
		DayOfWeek:   q.Day,
		Status:      models.EntryStatus(q.Status),
		Page:        q.Page,
		PageSize:    q.PageSize,
	}
}

// ExportQuery binds GET /timetable/export.
type ExportQuery struct {
	Format      string `form:"format" validate:"omitempty,oneof=csv pdf xlsx"`
	FacultyID   string `form:"facultyId"`
	ClassroomID string `form:"classroomId"`
}

// ExportResult is a rendered timetable file.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}
