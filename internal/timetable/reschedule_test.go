package timetable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func mondayFixture(t *testing.T, pool []string) (*ConflictIndex, RepairInput) {
	t.Helper()
	ix := NewConflictIndex()
	require.NoError(t, ix.Insert(entryAt("e1", "s1", "F1", "C1", 1, "09:00", "10:00")))
	require.NoError(t, ix.Insert(entryAt("e2", "s1", "F1", "C1", 1, "11:00", "12:00")))
	return ix, RepairInput{
		FacultyID:  "F1",
		Day:        1,
		Subjects:   map[string]models.Subject{"s1": {ID: "s1", Code: "CSE-SUB1", WeeklyHours: 2}},
		Pools:      map[string][]string{"s1": pool},
		Classrooms: []models.Classroom{{ID: "C1", Capacity: 60}},
	}
}

func outcomes(repairs []Repair) map[string]Repair {
	out := map[string]Repair{}
	for _, r := range repairs {
		out[r.Before.ID] = r
	}
	return out
}

func TestRescheduleSubstitutesFreeFaculty(t *testing.T) {
	ix, in := mondayFixture(t, []string{"F1", "F2"})
	engine := mustEngine(t, defaultProfile())

	repairs, err := NewRescheduler(engine, testDomain()).Run(context.Background(), ix, in)
	require.NoError(t, err)
	require.Len(t, repairs, 2)

	for id, r := range outcomes(repairs) {
		assert.Equal(t, OutcomeSubstituted, r.Outcome, id)
		assert.Equal(t, "F2", r.After.FacultyID)
		assert.Equal(t, r.Before.ClassroomID, r.After.ClassroomID)
		assert.Equal(t, r.Before.DayOfWeek, r.After.DayOfWeek)
		assert.Equal(t, r.Before.StartTime, r.After.StartTime)
		assert.Equal(t, r.Before.EndTime, r.After.EndTime)
		assert.Equal(t, r.Before.Version, r.After.Version)
	}
	assert.Empty(t, ix.Intervals(ResourceFaculty, "F1", 1))
	assert.Len(t, ix.Intervals(ResourceFaculty, "F2", 1), 2)
}

func TestRescheduleCancelsWhenNothingFits(t *testing.T) {
	ix, in := mondayFixture(t, []string{"F1"})
	mondayOnly := testDomain()
	mondayOnly.Days = []int{1}
	engine, err := NewConstraintEngine(defaultProfile(), mondayOnly)
	require.NoError(t, err)

	repairs, err := NewRescheduler(engine, mondayOnly).Run(context.Background(), ix, in)
	require.NoError(t, err)
	require.Len(t, repairs, 2)
	for _, r := range repairs {
		assert.Equal(t, OutcomeCancelled, r.Outcome)
		assert.Equal(t, models.EntryStatusCancelledPendingReview, r.After.Status)
		assert.Equal(t, r.Before.FacultyID, r.After.FacultyID)
	}
	assert.Equal(t, 0, ix.Len())
}

func TestRescheduleCancelsWhenLaterDaysAreFull(t *testing.T) {
	ix, in := mondayFixture(t, []string{"F1"})
	profile := defaultProfile()
	profile.MaxDailyHours = 2
	profile.MaxWeeklyHours = 2
	// F1 already teaches two hours elsewhere in the week.
	require.NoError(t, ix.Insert(entryAt("other", "s9", "F1", "C9", 4, "09:00", "11:00")))

	repairs, err := NewRescheduler(mustEngine(t, profile), testDomain()).Run(context.Background(), ix, in)
	require.NoError(t, err)
	for _, r := range repairs {
		assert.Equal(t, OutcomeCancelled, r.Outcome)
		assert.Equal(t, RejectWeeklyLimit, r.Reason)
	}
}

func TestRescheduleRelocatesToLaterDay(t *testing.T) {
	ix, in := mondayFixture(t, []string{"F1"})
	repairs, err := NewRescheduler(mustEngine(t, defaultProfile()), testDomain()).Run(context.Background(), ix, in)
	require.NoError(t, err)

	byID := outcomes(repairs)
	require.Len(t, byID, 2)
	assert.Equal(t, OutcomeRelocated, byID["e1"].Outcome)
	assert.Equal(t, 2, byID["e1"].After.DayOfWeek)
	assert.Equal(t, models.MustClock("08:00"), byID["e1"].After.StartTime)
	assert.Equal(t, 60, byID["e1"].After.Minutes())

	assert.Equal(t, OutcomeRelocated, byID["e2"].Outcome)
	assert.Equal(t, 3, byID["e2"].After.DayOfWeek)
	assert.Equal(t, "F1", byID["e2"].After.FacultyID)
}

func TestRescheduleSkipsSubstitutesOnLeave(t *testing.T) {
	ix, in := mondayFixture(t, []string{"F1", "F2", "F3"})
	in.Unavailable = map[int][]string{1: {"F1", "F2"}}

	repairs, err := NewRescheduler(mustEngine(t, defaultProfile()), testDomain()).Run(context.Background(), ix, in)
	require.NoError(t, err)
	require.Len(t, repairs, 2)
	for _, r := range repairs {
		assert.Equal(t, OutcomeSubstituted, r.Outcome)
		assert.Equal(t, "F3", r.After.FacultyID)
	}
	assert.Empty(t, ix.Intervals(ResourceFaculty, "F2", 1))
}

func TestRescheduleRelocationSkipsDaysOnLeave(t *testing.T) {
	ix, in := mondayFixture(t, []string{"F1"})
	in.Unavailable = map[int][]string{1: {"F1"}, 2: {"F1"}, 3: {"F7"}}

	repairs, err := NewRescheduler(mustEngine(t, defaultProfile()), testDomain()).Run(context.Background(), ix, in)
	require.NoError(t, err)
	require.Len(t, repairs, 2)
	for _, r := range repairs {
		assert.Equal(t, OutcomeRelocated, r.Outcome)
		assert.Equal(t, "F1", r.After.FacultyID)
		assert.NotEqual(t, 2, r.After.DayOfWeek)
		assert.Greater(t, r.After.DayOfWeek, 1)
	}
	assert.Empty(t, ix.Intervals(ResourceFaculty, "F1", 2))
}

func TestRescheduleCancelsWhenOnLeaveAllWeek(t *testing.T) {
	ix, in := mondayFixture(t, []string{"F1", "F2"})
	in.Unavailable = map[int][]string{1: {"F1", "F2"}, 2: {"F1"}, 3: {"F1"}, 4: {"F1"}, 5: {"F1"}}

	repairs, err := NewRescheduler(mustEngine(t, defaultProfile()), testDomain()).Run(context.Background(), ix, in)
	require.NoError(t, err)
	require.Len(t, repairs, 2)
	for _, r := range repairs {
		assert.Equal(t, OutcomeCancelled, r.Outcome)
		assert.Equal(t, RejectNoSlot, r.Reason)
	}
}

func TestRescheduleNeverTouchesUnrelatedEntries(t *testing.T) {
	ix, in := mondayFixture(t, []string{"F1", "F2"})
	unrelated := []models.TimetableEntry{
		entryAt("f1-tue", "s1", "F1", "C1", 2, "09:00", "10:00"),
		entryAt("f3-mon", "s2", "F3", "C2", 1, "09:00", "10:00"),
		entryAt("f2-mon", "s3", "F2", "C3", 1, "14:00", "15:00"),
	}
	for _, e := range unrelated {
		require.NoError(t, ix.Insert(e))
	}

	repairs, err := NewRescheduler(mustEngine(t, defaultProfile()), testDomain()).Run(context.Background(), ix, in)
	require.NoError(t, err)

	for _, r := range repairs {
		assert.Equal(t, "F1", r.Before.FacultyID)
		assert.Equal(t, 1, r.Before.DayOfWeek)
	}
	for _, e := range unrelated {
		got, ok := ix.Entry(e.ID)
		require.True(t, ok)
		assert.Equal(t, e, got)
	}
}

func TestAffectedEntriesOrdersByCoverage(t *testing.T) {
	entries := []models.TimetableEntry{
		entryAt("a", "well-covered", "F1", "C1", 1, "08:00", "09:00"),
		entryAt("b", "behind", "F1", "C1", 1, "13:00", "14:00"),
		entryAt("c", "behind", "F1", "C2", 1, "10:00", "11:00"),
		entryAt("d", "behind", "F1", "C2", 2, "10:00", "11:00"),
		entryAt("e", "behind", "F2", "C2", 1, "10:00", "11:00"),
	}
	got := AffectedEntries(entries, "F1", 1, map[string]int{"well-covered": 80, "behind": 20})
	ids := []string{}
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestRescheduleHonoursCancellation(t *testing.T) {
	ix, in := mondayFixture(t, []string{"F1", "F2"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRescheduler(mustEngine(t, defaultProfile()), testDomain()).Run(ctx, ix, in)
	assert.ErrorIs(t, err, context.Canceled)
}
