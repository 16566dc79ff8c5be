package dto

// LeaveAction is the decision of an admin review.
type LeaveAction string

const (
	LeaveActionApprove LeaveAction = "APPROVE"
	LeaveActionReject  LeaveAction = "REJECT"
)

// SubmitLeaveRequest is the POST /leaves payload. Admins may submit on behalf
// of a faculty member by setting FacultyID.
type SubmitLeaveRequest struct {
	FacultyID string  `json:"facultyId"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Reason    *string `json:"reason" validate:"omitempty,max=500"`
}

// ReviewLeaveRequest is the POST /leaves/:id/review payload.
type ReviewLeaveRequest struct {
	Action LeaveAction `json:"action" validate:"required,oneof=APPROVE REJECT"`
}

// LeaveQuery binds GET /leaves query params.
type LeaveQuery struct {
	FacultyID        string `form:"facultyId"`
	Status           string `form:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
	RescheduleStatus string `form:"rescheduleStatus" validate:"omitempty,oneof=NONE DONE FAILED"`
	From             string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To               string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Page             int    `form:"page" validate:"omitempty,min=1"`
	PageSize         int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

// ReviewLeaveResponse returns the reviewed leave and, for approvals, the
// reschedule report.
type ReviewLeaveResponse struct {
	LeaveID          string              `json:"leaveId"`
	Status           string              `json:"status"`
	RescheduleStatus string              `json:"rescheduleStatus"`
	Reschedule       *RescheduleResponse `json:"reschedule,omitempty"`
}
