package models

// PreferredTimeSlot is a window the caller would like sessions placed in.
// DayOfWeek zero applies the window to every day.
type PreferredTimeSlot struct {
	DayOfWeek int   `json:"day_of_week" validate:"min=0,max=7"`
	Start     Clock `json:"start"`
	End       Clock `json:"end"`
}

// Contains reports whether [start, end) on day lies within the window.
func (p PreferredTimeSlot) Contains(day int, start, end Clock) bool {
	if p.DayOfWeek != 0 && p.DayOfWeek != day {
		return false
	}
	return start >= p.Start && end <= p.End
}

// ConstraintProfile holds the rules a generation or reschedule run obeys.
type ConstraintProfile struct {
	MaxDailyHours        int                 `json:"max_daily_hours"`
	MaxWeeklyHours       int                 `json:"max_weekly_hours"`
	MinGapBetweenClasses int                 `json:"min_gap_between_classes"`
	PreferredTimeSlots   []PreferredTimeSlot `json:"preferred_time_slots"`
	LabHoursRequired     bool                `json:"lab_hours_required"`
}
