package models

// Subject is a course offered by a department. WeeklyHours is the contact
// time the scheduler must place each week.
type Subject struct {
	ID           string `db:"id" json:"id"`
	Code         string `db:"code" json:"code"`
	Name         string `db:"name" json:"name"`
	DepartmentID string `db:"department_id" json:"department_id"`
	WeeklyHours  int    `db:"weekly_hours" json:"weekly_hours"`
	TotalHours   int    `db:"total_hours" json:"total_hours"`
	Semester     int    `db:"semester" json:"semester"`
	IsLab        bool   `db:"is_lab" json:"is_lab"`
}

// WeeklyMinutes is the weekly contact time in minutes.
func (s Subject) WeeklyMinutes() int {
	return s.WeeklyHours * 60
}

// SubjectFaculty assigns a faculty member to the teaching pool of a subject.
type SubjectFaculty struct {
	SubjectID string `db:"subject_id" json:"subject_id"`
	FacultyID string `db:"faculty_id" json:"faculty_id"`
}

// FacultyProfile is a teaching staff member.
type FacultyProfile struct {
	ID           string  `db:"id" json:"id"`
	UserID       *string `db:"user_id" json:"user_id,omitempty"`
	DepartmentID string  `db:"department_id" json:"department_id"`
	Name         string  `db:"name" json:"name"`
}

// Classroom is a room that can host sessions. Lab sessions need IsLab rooms.
type Classroom struct {
	ID           string  `db:"id" json:"id"`
	Code         string  `db:"code" json:"code"`
	Name         string  `db:"name" json:"name"`
	Capacity     int     `db:"capacity" json:"capacity"`
	IsLab        bool    `db:"is_lab" json:"is_lab"`
	DepartmentID *string `db:"department_id" json:"department_id,omitempty"`
}

// SyllabusProgress is how much of a subject a faculty member has covered.
type SyllabusProgress struct {
	FacultyID      string `db:"faculty_id" json:"faculty_id"`
	SubjectID      string `db:"subject_id" json:"subject_id"`
	CoveredPercent int    `db:"covered_percent" json:"covered_percent"`
}
