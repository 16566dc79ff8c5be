package timetable

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/noah-isme/timetable-api/internal/models"
)

// DefaultRetryBudget bounds how often a session may be moved to make room for
// its successor.
const DefaultRetryBudget = 8

// Session is one weekly occurrence of a subject awaiting placement.
type Session struct {
	Subject   models.Subject
	Index     int
	ClassType models.ClassType
	Minutes   int
	Pool      []string
}

// Unscheduled reports a session the run could not place.
type Unscheduled struct {
	SubjectID    string           `json:"subject_id"`
	SubjectCode  string           `json:"subject_code"`
	SessionIndex int              `json:"session_index"`
	ClassType    models.ClassType `json:"class_type"`
	Minutes      int              `json:"minutes"`
	Reason       Rejection        `json:"reason"`
}

// Input is the read-only snapshot a generation run works from. Existing
// entries are expected to be in the conflict index already.
type Input struct {
	Subjects   []models.Subject
	Pools      map[string][]string
	Classrooms []models.Classroom
	CreatedBy  string
}

// Result is the outcome of a generation run.
type Result struct {
	Placed      []models.TimetableEntry
	Unscheduled []Unscheduled
	Sessions    int
	Backtracks  int
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithRetryBudget overrides the per-session retry budget.
func WithRetryBudget(budget int) Option {
	return func(s *Scheduler) {
		if budget >= 0 {
			s.retryBudget = budget
		}
	}
}

// WithIDGenerator overrides how new entry ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Scheduler places sessions with most-constrained-first ordering and bounded
// one-step backtracking.
type Scheduler struct {
	engine      *ConstraintEngine
	policy      SessionPolicy
	domain      Domain
	retryBudget int
	newID       func() string
}

// NewScheduler wires a scheduler.
func NewScheduler(engine *ConstraintEngine, policy SessionPolicy, domain Domain, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine:      engine,
		policy:      policy,
		domain:      domain,
		retryBudget: DefaultRetryBudget,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type frame struct {
	session    Session
	candidates []Candidate
	ranked     bool
	next       int
	placed     bool
	entry      models.TimetableEntry
	retries    int
	reason     Rejection
}

// Sessions derives the ordered work list. Minutes already covered by indexed
// entries of a subject are skipped.
func (s *Scheduler) Sessions(in Input, index *ConflictIndex) []Session {
	covered := map[string]map[models.ClassType]int{}
	for _, entry := range index.Entries() {
		if covered[entry.SubjectID] == nil {
			covered[entry.SubjectID] = map[models.ClassType]int{}
		}
		covered[entry.SubjectID][entry.ClassType] += entry.Minutes()
	}

	labsApart := s.engine.Profile().LabHoursRequired
	var sessions []Session
	for _, subject := range in.Subjects {
		pool := lo.Uniq(in.Pools[subject.ID])
		sort.Strings(pool)
		have := covered[subject.ID]
		for i, block := range s.policy.Blocks(subject, labsApart) {
			if have[block.ClassType] >= block.Minutes {
				have[block.ClassType] -= block.Minutes
				continue
			}
			sessions = append(sessions, Session{
				Subject:   subject,
				Index:     i + 1,
				ClassType: block.ClassType,
				Minutes:   block.Minutes,
				Pool:      pool,
			})
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if len(a.Pool) != len(b.Pool) {
			return len(a.Pool) < len(b.Pool)
		}
		if a.Subject.Code != b.Subject.Code {
			return a.Subject.Code < b.Subject.Code
		}
		return a.Index < b.Index
	})
	return sessions
}

// Run places every session it can into index. The index holds the placed
// entries on return; the caller decides whether to commit them.
func (s *Scheduler) Run(ctx context.Context, index *ConflictIndex, in Input) (*Result, error) {
	sessions := s.Sessions(in, index)
	frames := make([]frame, len(sessions))
	for i := range sessions {
		frames[i].session = sessions[i]
	}
	result := &Result{Sessions: len(sessions)}

	for i := 0; i < len(frames); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := &frames[i]
		if !f.ranked {
			f.candidates, f.reason = rankCandidates(s.engine, index, s.domain, f.session, in.Classrooms)
			f.ranked = true
			f.next = 0
		}
		if s.placeNext(f, index, in.CreatedBy) {
			i++
			continue
		}

		if i > 0 && s.canRetry(&frames[i-1]) {
			prev := &frames[i-1]
			index.Remove(prev.entry.ID)
			prev.placed = false
			prev.retries++
			f.ranked = false
			result.Backtracks++
			i--
			continue
		}
		i++
	}

	for _, f := range frames {
		if f.placed {
			result.Placed = append(result.Placed, f.entry)
			continue
		}
		result.Unscheduled = append(result.Unscheduled, Unscheduled{
			SubjectID:    f.session.Subject.ID,
			SubjectCode:  f.session.Subject.Code,
			SessionIndex: f.session.Index,
			ClassType:    f.session.ClassType,
			Minutes:      f.session.Minutes,
			Reason:       f.reason,
		})
	}
	return result, nil
}

func (s *Scheduler) canRetry(f *frame) bool {
	return f.placed && f.retries < s.retryBudget && f.next < len(f.candidates)
}

// placeNext commits the frame's next still-valid candidate to the index.
func (s *Scheduler) placeNext(f *frame, index *ConflictIndex, createdBy string) bool {
	for f.next < len(f.candidates) {
		c := f.candidates[f.next]
		f.next++
		if ok, _ := check(s.engine, index, c); !ok {
			continue
		}
		entry := c.Entry(s.newID(), createdBy)
		if err := index.Insert(entry); err != nil {
			continue
		}
		f.entry = entry
		f.placed = true
		return true
	}
	return false
}

// check runs the index and constraint tests for a candidate.
func check(engine *ConstraintEngine, index *ConflictIndex, c Candidate) (bool, Rejection) {
	if !index.CanPlace(ResourceFaculty, c.FacultyID, c.Day, c.Start, c.End) {
		return false, RejectFacultyBusy
	}
	if !index.CanPlace(ResourceRoom, c.Room.ID, c.Day, c.Start, c.End) {
		return false, RejectRoomBusy
	}
	return engine.Feasible(c, index)
}

type scoredCandidate struct {
	Candidate
	score int
}

// rankCandidates enumerates faculty × room × day × start for a session and
// returns the feasible ones best first. When none is feasible the most
// frequent rejection is returned as the reason.
func rankCandidates(engine *ConstraintEngine, index *ConflictIndex, domain Domain, session Session, rooms []models.Classroom) ([]Candidate, Rejection) {
	if len(session.Pool) == 0 {
		return nil, RejectNoFaculty
	}
	compatible := compatibleRooms(session.ClassType, rooms)
	if len(compatible) == 0 {
		return nil, RejectNoRoom
	}
	starts := domain.Starts(session.Minutes)
	if len(starts) == 0 {
		return nil, RejectNoSlot
	}

	tally := map[Rejection]int{}
	var feasible []scoredCandidate
	for _, facultyID := range session.Pool {
		for _, room := range compatible {
			for _, day := range domain.Days {
				for _, start := range starts {
					c := Candidate{
						SubjectID:    session.Subject.ID,
						SubjectIsLab: session.Subject.IsLab,
						FacultyID:    facultyID,
						Room:         room,
						Day:          day,
						Start:        start,
						End:          start.Add(session.Minutes),
						ClassType:    session.ClassType,
					}
					if ok, why := check(engine, index, c); !ok {
						tally[why]++
						continue
					}
					feasible = append(feasible, scoredCandidate{Candidate: c, score: engine.Score(c, index)})
				}
			}
		}
	}

	if len(feasible) == 0 {
		return nil, dominant(tally)
	}
	sortScored(feasible)
	return lo.Map(feasible, func(sc scoredCandidate, _ int) Candidate { return sc.Candidate }), RejectNone
}

// sortScored orders by score, then earliest day, then earliest start. The sort
// is stable so enumeration order settles remaining ties.
func sortScored(list []scoredCandidate) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Start < b.Start
	})
}

// compatibleRooms filters rooms by class type. Lectures try non-lab rooms
// first; within a type smaller rooms come first.
func compatibleRooms(classType models.ClassType, rooms []models.Classroom) []models.Classroom {
	out := lo.Filter(rooms, func(room models.Classroom, _ int) bool {
		return classType != models.ClassTypeLab || room.IsLab
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsLab != b.IsLab {
			return !a.IsLab
		}
		if a.Capacity != b.Capacity {
			return a.Capacity < b.Capacity
		}
		return a.ID < b.ID
	})
	return out
}

func dominant(tally map[Rejection]int) Rejection {
	best, bestCount := RejectNone, 0
	for reason, count := range tally {
		if count > bestCount || (count == bestCount && reason < best) {
			best, bestCount = reason, count
		}
	}
	if best == RejectNone {
		return RejectNoSlot
	}
	return best
}
