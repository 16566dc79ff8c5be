// Package timetable holds the in-memory scheduling engine: the conflict index,
// the constraint engine, the backtracking scheduler and the leave repair
// engine. Nothing here performs I/O.
package timetable

import (
	"fmt"
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ResourceKind identifies what an interval occupies.
type ResourceKind string

const (
	ResourceFaculty ResourceKind = "FACULTY"
	ResourceRoom    ResourceKind = "ROOM"
)

// Interval is the half-open span [Start, End) an entry holds on a resource.
type Interval struct {
	EntryID   string
	SubjectID string
	ClassType models.ClassType
	Start     models.Clock
	End       models.Clock
}

// Overlaps reports whether [start, end) intersects the interval. Touching
// endpoints do not overlap.
func (iv Interval) Overlaps(start, end models.Clock) bool {
	return start < iv.End && iv.Start < end
}

// Minutes is the interval length.
func (iv Interval) Minutes() int {
	return int(iv.End - iv.Start)
}

type resourceKey struct {
	kind ResourceKind
	id   string
	day  int
}

type subjectDay struct {
	subjectID string
	day       int
}

// ConflictIndex answers placement queries for faculty and rooms. Each
// resource/day list is kept sorted by start time.
type ConflictIndex struct {
	intervals map[resourceKey][]Interval
	subjects  map[subjectDay][]Interval
	weekly    map[string]int
	entries   map[string]models.TimetableEntry
}

// NewConflictIndex returns an empty index.
func NewConflictIndex() *ConflictIndex {
	return &ConflictIndex{
		intervals: make(map[resourceKey][]Interval),
		subjects:  make(map[subjectDay][]Interval),
		weekly:    make(map[string]int),
		entries:   make(map[string]models.TimetableEntry),
	}
}

// BuildConflictIndex indexes every ACTIVE entry. Entries that collide with an
// already indexed one are returned so the caller can report them.
func BuildConflictIndex(entries []models.TimetableEntry) (*ConflictIndex, []models.TimetableEntry) {
	ix := NewConflictIndex()
	var rejected []models.TimetableEntry
	for _, entry := range entries {
		if !entry.Active() {
			continue
		}
		if err := ix.Insert(entry); err != nil {
			rejected = append(rejected, entry)
		}
	}
	return ix, rejected
}

// CanPlace is true iff no interval of the resource on that day overlaps
// [start, end).
func (ix *ConflictIndex) CanPlace(kind ResourceKind, resourceID string, day int, start, end models.Clock) bool {
	list := ix.intervals[resourceKey{kind: kind, id: resourceID, day: day}]
	// Intervals from hi onward start at or after end and cannot overlap.
	hi := sort.Search(len(list), func(i int) bool { return list[i].Start >= end })
	for i := hi - 1; i >= 0; i-- {
		if list[i].End > start {
			return false
		}
	}
	return true
}

// Insert indexes an entry under its faculty and its room.
func (ix *ConflictIndex) Insert(entry models.TimetableEntry) error {
	if entry.StartTime >= entry.EndTime {
		return fmt.Errorf("entry %s has empty interval %s-%s", entry.ID, entry.StartTime, entry.EndTime)
	}
	if _, exists := ix.entries[entry.ID]; exists {
		return fmt.Errorf("entry %s already indexed", entry.ID)
	}
	if !ix.CanPlace(ResourceFaculty, entry.FacultyID, entry.DayOfWeek, entry.StartTime, entry.EndTime) {
		return fmt.Errorf("entry %s overlaps faculty %s on day %d", entry.ID, entry.FacultyID, entry.DayOfWeek)
	}
	if !ix.CanPlace(ResourceRoom, entry.ClassroomID, entry.DayOfWeek, entry.StartTime, entry.EndTime) {
		return fmt.Errorf("entry %s overlaps room %s on day %d", entry.ID, entry.ClassroomID, entry.DayOfWeek)
	}

	iv := intervalOf(entry)
	ix.add(resourceKey{kind: ResourceFaculty, id: entry.FacultyID, day: entry.DayOfWeek}, iv)
	ix.add(resourceKey{kind: ResourceRoom, id: entry.ClassroomID, day: entry.DayOfWeek}, iv)
	sd := subjectDay{subjectID: entry.SubjectID, day: entry.DayOfWeek}
	ix.subjects[sd] = insertSorted(ix.subjects[sd], iv)
	ix.weekly[entry.FacultyID] += iv.Minutes()
	ix.entries[entry.ID] = entry
	return nil
}

// Remove drops an entry from the index and returns it.
func (ix *ConflictIndex) Remove(entryID string) (models.TimetableEntry, bool) {
	entry, ok := ix.entries[entryID]
	if !ok {
		return models.TimetableEntry{}, false
	}
	ix.drop(resourceKey{kind: ResourceFaculty, id: entry.FacultyID, day: entry.DayOfWeek}, entryID)
	ix.drop(resourceKey{kind: ResourceRoom, id: entry.ClassroomID, day: entry.DayOfWeek}, entryID)

	sd := subjectDay{subjectID: entry.SubjectID, day: entry.DayOfWeek}
	ix.subjects[sd] = without(ix.subjects[sd], entryID)
	if len(ix.subjects[sd]) == 0 {
		delete(ix.subjects, sd)
	}

	ix.weekly[entry.FacultyID] -= entry.Minutes()
	if ix.weekly[entry.FacultyID] <= 0 {
		delete(ix.weekly, entry.FacultyID)
	}
	delete(ix.entries, entryID)
	return entry, true
}

// Entry returns an indexed entry by id.
func (ix *ConflictIndex) Entry(entryID string) (models.TimetableEntry, bool) {
	entry, ok := ix.entries[entryID]
	return entry, ok
}

// Len is the number of indexed entries.
func (ix *ConflictIndex) Len() int {
	return len(ix.entries)
}

// Intervals returns a copy of the resource's intervals on a day, ordered by start.
func (ix *ConflictIndex) Intervals(kind ResourceKind, resourceID string, day int) []Interval {
	list := ix.intervals[resourceKey{kind: kind, id: resourceID, day: day}]
	return append([]Interval(nil), list...)
}

// DailyMinutes is the faculty's scheduled time on a day.
func (ix *ConflictIndex) DailyMinutes(facultyID string, day int) int {
	total := 0
	for _, iv := range ix.intervals[resourceKey{kind: ResourceFaculty, id: facultyID, day: day}] {
		total += iv.Minutes()
	}
	return total
}

// WeeklyMinutes is the faculty's scheduled time across the week.
func (ix *ConflictIndex) WeeklyMinutes(facultyID string) int {
	return ix.weekly[facultyID]
}

// SubjectSessions returns the subject's intervals on a day.
func (ix *ConflictIndex) SubjectSessions(subjectID string, day int) []Interval {
	return append([]Interval(nil), ix.subjects[subjectDay{subjectID: subjectID, day: day}]...)
}

// Entries returns every indexed entry ordered by day, start and id.
func (ix *ConflictIndex) Entries() []models.TimetableEntry {
	out := make([]models.TimetableEntry, 0, len(ix.entries))
	for _, entry := range ix.entries {
		out = append(out, entry)
	}
	SortEntries(out)
	return out
}

// SortEntries orders entries by day, start time and id.
func SortEntries(entries []models.TimetableEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}

func (ix *ConflictIndex) add(key resourceKey, iv Interval) {
	ix.intervals[key] = insertSorted(ix.intervals[key], iv)
}

func (ix *ConflictIndex) drop(key resourceKey, entryID string) {
	list := without(ix.intervals[key], entryID)
	if len(list) == 0 {
		delete(ix.intervals, key)
		return
	}
	ix.intervals[key] = list
}

func intervalOf(entry models.TimetableEntry) Interval {
	return Interval{
		EntryID:   entry.ID,
		SubjectID: entry.SubjectID,
		ClassType: entry.ClassType,
		Start:     entry.StartTime,
		End:       entry.EndTime,
	}
}

func insertSorted(list []Interval, iv Interval) []Interval {
	pos := sort.Search(len(list), func(i int) bool { return list[i].Start > iv.Start })
	list = append(list, Interval{})
	copy(list[pos+1:], list[pos:])
	list[pos] = iv
	return list
}

func without(list []Interval, entryID string) []Interval {
	for i, iv := range list {
		if iv.EntryID == entryID {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
