package timetable

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Outcome is how an affected entry was repaired.
type Outcome string

const (
	OutcomeSubstituted Outcome = "SUBSTITUTED"
	OutcomeRelocated   Outcome = "RELOCATED"
	OutcomeCancelled   Outcome = "CANCELLED_PENDING_REVIEW"
)

// Repair is the result for one affected entry. After carries the version read
// with Before so the write can be guarded.
type Repair struct {
	Outcome Outcome
	Before  models.TimetableEntry
	After   models.TimetableEntry
	Reason  Rejection
}

// RepairInput is the snapshot a reschedule run works from. Coverage maps
// subject id to the absent faculty's syllabus coverage in percent.
// Unavailable maps a weekday of the leave's week to the faculty with approved
// leave on that date.
type RepairInput struct {
	FacultyID   string
	Day         int
	Subjects    map[string]models.Subject
	Pools       map[string][]string
	Classrooms  []models.Classroom
	Coverage    map[string]int
	Unavailable map[int][]string
}

// Rescheduler repairs the entries of an absent faculty member on one weekday.
type Rescheduler struct {
	engine *ConstraintEngine
	domain Domain
}

// NewRescheduler wires a rescheduler.
func NewRescheduler(engine *ConstraintEngine, domain Domain) *Rescheduler {
	return &Rescheduler{engine: engine, domain: domain}
}

// AffectedEntries selects the ACTIVE entries of facultyID on day, least
// covered subjects first, then by start time and id.
func AffectedEntries(entries []models.TimetableEntry, facultyID string, day int, coverage map[string]int) []models.TimetableEntry {
	affected := lo.Filter(entries, func(e models.TimetableEntry, _ int) bool {
		return e.Active() && e.FacultyID == facultyID && e.DayOfWeek == day
	})
	sort.SliceStable(affected, func(i, j int) bool {
		a, b := affected[i], affected[j]
		if coverage[a.SubjectID] != coverage[b.SubjectID] {
			return coverage[a.SubjectID] < coverage[b.SubjectID]
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return affected
}

// Run repairs every affected entry in index: substitution first, then
// relocation to a later day, otherwise cancellation. Entries of other faculty
// or other days are never changed.
func (r *Rescheduler) Run(ctx context.Context, index *ConflictIndex, in RepairInput) ([]Repair, error) {
	affected := AffectedEntries(index.Entries(), in.FacultyID, in.Day, in.Coverage)
	for _, entry := range affected {
		index.Remove(entry.ID)
	}

	repairs := make([]Repair, 0, len(affected))
	for _, entry := range affected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		subject, ok := in.Subjects[entry.SubjectID]
		if !ok {
			subject = models.Subject{ID: entry.SubjectID}
		}

		repair := Repair{Before: entry}
		if after, ok := r.substitute(index, entry, subject, in); ok {
			repair.Outcome, repair.After = OutcomeSubstituted, after
		} else if after, why := r.relocate(index, entry, subject, in); why == RejectNone {
			repair.Outcome, repair.After = OutcomeRelocated, after
		} else {
			cancelled := entry
			cancelled.Status = models.EntryStatusCancelledPendingReview
			repair.Outcome, repair.After, repair.Reason = OutcomeCancelled, cancelled, why
		}

		if repair.Outcome != OutcomeCancelled {
			if err := index.Insert(repair.After); err != nil {
				return nil, err
			}
		}
		repairs = append(repairs, repair)
	}
	return repairs, nil
}

// substitute keeps day, time and room and swaps in the best eligible faculty.
func (r *Rescheduler) substitute(index *ConflictIndex, entry models.TimetableEntry, subject models.Subject, in RepairInput) (models.TimetableEntry, bool) {
	room, ok := lo.Find(in.Classrooms, func(c models.Classroom) bool { return c.ID == entry.ClassroomID })
	if !ok {
		room = models.Classroom{ID: entry.ClassroomID, IsLab: entry.ClassType == models.ClassTypeLab}
	}
	pool := lo.Without(lo.Uniq(in.Pools[entry.SubjectID]), in.FacultyID)
	pool = lo.Without(pool, in.Unavailable[entry.DayOfWeek]...)
	sort.Strings(pool)

	var feasible []scoredCandidate
	for _, facultyID := range pool {
		c := Candidate{
			SubjectID:    entry.SubjectID,
			SubjectIsLab: subject.IsLab,
			FacultyID:    facultyID,
			Room:         room,
			Day:          entry.DayOfWeek,
			Start:        entry.StartTime,
			End:          entry.EndTime,
			ClassType:    entry.ClassType,
		}
		if ok, _ := check(r.engine, index, c); ok {
			feasible = append(feasible, scoredCandidate{Candidate: c, score: r.engine.Score(c, index)})
		}
	}
	if len(feasible) == 0 {
		return models.TimetableEntry{}, false
	}
	sortScored(feasible)

	after := entry
	after.FacultyID = feasible[0].FacultyID
	return after, true
}

// relocate keeps the faculty and searches later days of the week.
func (r *Rescheduler) relocate(index *ConflictIndex, entry models.TimetableEntry, subject models.Subject, in RepairInput) (models.TimetableEntry, Rejection) {
	later := r.domain
	later.Days = lo.Filter(r.domain.DaysAfter(entry.DayOfWeek), func(day int, _ int) bool {
		return !lo.Contains(in.Unavailable[day], in.FacultyID)
	})
	if len(later.Days) == 0 {
		return models.TimetableEntry{}, RejectNoSlot
	}

	session := Session{
		Subject:   subject,
		ClassType: entry.ClassType,
		Minutes:   entry.Minutes(),
		Pool:      []string{in.FacultyID},
	}
	candidates, why := rankCandidates(r.engine, index, later, session, in.Classrooms)
	if len(candidates) == 0 {
		return models.TimetableEntry{}, why
	}

	best := candidates[0]
	after := entry
	after.ClassroomID = best.Room.ID
	after.DayOfWeek = best.Day
	after.StartTime = best.Start
	after.EndTime = best.End
	return after, RejectNone
}
