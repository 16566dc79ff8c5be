package models

import "time"

// LeaveStatus is the review state of a leave request.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "PENDING"
	LeaveStatusApproved LeaveStatus = "APPROVED"
	LeaveStatusRejected LeaveStatus = "REJECTED"
)

// RescheduleStatus records whether the repair after approval went through.
type RescheduleStatus string

const (
	RescheduleStatusNone   RescheduleStatus = "NONE"
	RescheduleStatusDone   RescheduleStatus = "DONE"
	RescheduleStatusFailed RescheduleStatus = "FAILED"
)

// LeaveRequest is a faculty absence for a single calendar date.
type LeaveRequest struct {
	ID               string           `db:"id" json:"id"`
	FacultyID        string           `db:"faculty_id" json:"faculty_id"`
	Date             time.Time        `db:"date" json:"date"`
	Reason           *string          `db:"reason" json:"reason,omitempty"`
	Status           LeaveStatus      `db:"status" json:"status"`
	RescheduleStatus RescheduleStatus `db:"reschedule_status" json:"reschedule_status"`
	ReviewedAt       *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy       *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// Weekday maps the leave date onto the 1=Monday..7=Sunday convention used by
// timetable entries.
func (l LeaveRequest) Weekday() int {
	return ISOWeekday(l.Date)
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// LeaveFilter captures filters for listing leave requests.
type LeaveFilter struct {
	FacultyID        string
	Status           LeaveStatus
	RescheduleStatus RescheduleStatus
	From             *time.Time
	To               *time.Time
	Page             int
	PageSize         int
}
