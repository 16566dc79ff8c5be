package timetable

import (
	"fmt"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// Rejection explains why a candidate failed the hard constraints.
type Rejection string

const (
	RejectNone          Rejection = ""
	RejectFacultyBusy   Rejection = "FACULTY_BUSY"
	RejectRoomBusy      Rejection = "ROOM_BUSY"
	RejectDailyLimit    Rejection = "MAX_DAILY_HOURS"
	RejectWeeklyLimit   Rejection = "MAX_WEEKLY_HOURS"
	RejectMinGap        Rejection = "MIN_GAP"
	RejectRoomType      Rejection = "ROOM_TYPE"
	RejectLabSeparation Rejection = "LAB_SEPARATION"
	RejectNoFaculty     Rejection = "NO_ELIGIBLE_FACULTY"
	RejectNoRoom        Rejection = "NO_COMPATIBLE_ROOM"
	RejectNoSlot        Rejection = "NO_SLOT_IN_DAY"
)

const (
	preferredSlotBonus  = 100
	roomTypeBonus       = 10
	sameDayStackPenalty = 25
)

// Candidate is a proposed placement of one session.
type Candidate struct {
	SubjectID    string
	SubjectIsLab bool
	FacultyID    string
	Room         models.Classroom
	Day          int
	Start        models.Clock
	End          models.Clock
	ClassType    models.ClassType
}

// Minutes is the candidate length.
func (c Candidate) Minutes() int {
	return int(c.End - c.Start)
}

// Entry materialises the candidate as an ACTIVE entry.
func (c Candidate) Entry(id, createdBy string) models.TimetableEntry {
	return models.TimetableEntry{
		ID:          id,
		SubjectID:   c.SubjectID,
		FacultyID:   c.FacultyID,
		ClassroomID: c.Room.ID,
		DayOfWeek:   c.Day,
		StartTime:   c.Start,
		EndTime:     c.End,
		ClassType:   c.ClassType,
		Status:      models.EntryStatusActive,
		Version:     1,
		CreatedBy:   createdBy,
	}
}

// LoadView is the read side of the conflict index the engine needs.
type LoadView interface {
	DailyMinutes(facultyID string, day int) int
	WeeklyMinutes(facultyID string) int
	Intervals(kind ResourceKind, resourceID string, day int) []Interval
	SubjectSessions(subjectID string, day int) []Interval
}

// ConstraintEngine evaluates candidates against a validated profile.
type ConstraintEngine struct {
	profile models.ConstraintProfile
}

// NewConstraintEngine validates the profile against the day domain and returns
// an engine for it.
func NewConstraintEngine(profile models.ConstraintProfile, domain Domain) (*ConstraintEngine, error) {
	if err := ValidateProfile(profile, domain); err != nil {
		return nil, err
	}
	return &ConstraintEngine{profile: profile}, nil
}

// Profile returns the profile the engine enforces.
func (e *ConstraintEngine) Profile() models.ConstraintProfile {
	return e.profile
}

// ValidateProfile rejects structurally invalid constraint profiles.
func ValidateProfile(profile models.ConstraintProfile, domain Domain) error {
	violations := map[string]any{}
	if profile.MaxDailyHours <= 0 {
		violations["max_daily_hours"] = "must be positive"
	}
	if profile.MaxWeeklyHours <= 0 {
		violations["max_weekly_hours"] = "must be positive"
	}
	if profile.MaxDailyHours > 0 && profile.MaxWeeklyHours > 0 && profile.MaxDailyHours > profile.MaxWeeklyHours {
		violations["max_daily_hours"] = "must not exceed max_weekly_hours"
	}
	if profile.MaxDailyHours > 24 {
		violations["max_daily_hours"] = "must not exceed 24"
	}
	if profile.MinGapBetweenClasses < 0 {
		violations["min_gap_between_classes"] = "must not be negative"
	}
	for i, slot := range profile.PreferredTimeSlots {
		field := fmt.Sprintf("preferred_time_slots[%d]", i)
		switch {
		case slot.Start >= slot.End:
			violations[field] = "start must be before end"
		case slot.Start < 0 || slot.End > models.MinutesPerDay:
			violations[field] = "window outside the day"
		case slot.DayOfWeek != 0 && !domain.HasDay(slot.DayOfWeek):
			violations[field] = "day outside the scheduling domain"
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return appErrors.Clone(appErrors.ErrInvalidConstraints, "constraint profile is invalid").WithDetails(violations)
}

// Feasible checks the hard constraints of a candidate whose faculty and room
// are already known to be free.
func (e *ConstraintEngine) Feasible(c Candidate, load LoadView) (bool, Rejection) {
	if c.ClassType == models.ClassTypeLab && !c.Room.IsLab {
		return false, RejectRoomType
	}

	minutes := c.Minutes()
	if load.DailyMinutes(c.FacultyID, c.Day)+minutes > e.profile.MaxDailyHours*60 {
		return false, RejectDailyLimit
	}
	if load.WeeklyMinutes(c.FacultyID)+minutes > e.profile.MaxWeeklyHours*60 {
		return false, RejectWeeklyLimit
	}

	gap := models.Clock(e.profile.MinGapBetweenClasses)
	for _, iv := range load.Intervals(ResourceFaculty, c.FacultyID, c.Day) {
		if iv.Overlaps(c.Start, c.End) {
			return false, RejectFacultyBusy
		}
		if iv.End <= c.Start && c.Start-iv.End < gap {
			return false, RejectMinGap
		}
		if iv.Start >= c.End && iv.Start-c.End < gap {
			return false, RejectMinGap
		}
	}

	if e.profile.LabHoursRequired && c.SubjectIsLab {
		for _, iv := range load.SubjectSessions(c.SubjectID, c.Day) {
			if iv.ClassType != c.ClassType {
				return false, RejectLabSeparation
			}
		}
	}

	return true, RejectNone
}

// Score ranks feasible candidates. Higher is better.
func (e *ConstraintEngine) Score(c Candidate, load LoadView) int {
	score := 0
	for _, slot := range e.profile.PreferredTimeSlots {
		if slot.Contains(c.Day, c.Start, c.End) {
			score += preferredSlotBonus
			break
		}
	}
	if c.ClassType == models.ClassTypeLecture && !c.Room.IsLab {
		score += roomTypeBonus
	}
	score -= sameDayStackPenalty * len(load.SubjectSessions(c.SubjectID, c.Day))
	return score
}
