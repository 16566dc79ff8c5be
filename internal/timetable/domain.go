package timetable

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Domain is the search space of days and start times.
type Domain struct {
	Days     []int
	DayStart models.Clock
	DayEnd   models.Clock
	Step     int
}

// NewDomain builds a domain from configuration values.
func NewDomain(days []int, dayStart, dayEnd string, step time.Duration) (Domain, error) {
	start, err := models.ParseClock(dayStart)
	if err != nil {
		return Domain{}, fmt.Errorf("day start: %w", err)
	}
	end, err := models.ParseClock(dayEnd)
	if err != nil {
		return Domain{}, fmt.Errorf("day end: %w", err)
	}
	d := Domain{
		Days:     lo.Uniq(days),
		DayStart: start,
		DayEnd:   end,
		Step:     int(step / time.Minute),
	}
	sort.Ints(d.Days)
	if err := d.Validate(); err != nil {
		return Domain{}, err
	}
	return d, nil
}

// Validate checks the domain is usable.
func (d Domain) Validate() error {
	if len(d.Days) == 0 {
		return fmt.Errorf("domain has no days")
	}
	for _, day := range d.Days {
		if day < 1 || day > 7 {
			return fmt.Errorf("day %d outside 1..7", day)
		}
	}
	if d.DayStart >= d.DayEnd {
		return fmt.Errorf("day start %s not before day end %s", d.DayStart, d.DayEnd)
	}
	if d.Step <= 0 {
		return fmt.Errorf("start step must be positive")
	}
	return nil
}

// HasDay reports whether day belongs to the domain.
func (d Domain) HasDay(day int) bool {
	return lo.Contains(d.Days, day)
}

// DaysAfter returns the domain days strictly later in the week than day.
func (d Domain) DaysAfter(day int) []int {
	return lo.Filter(d.Days, func(candidate int, _ int) bool { return candidate > day })
}

// Starts lists the start times at which a session of the given length fits.
func (d Domain) Starts(minutes int) []models.Clock {
	var starts []models.Clock
	for t := d.DayStart; t.Add(minutes) <= d.DayEnd; t = t.Add(d.Step) {
		starts = append(starts, t)
	}
	return starts
}

// SessionPolicy holds the session durations used to split weekly hours.
type SessionPolicy struct {
	LectureMinutes int
	LabMinutes     int
}

// Validate checks both durations are positive.
func (p SessionPolicy) Validate() error {
	if p.LectureMinutes <= 0 || p.LabMinutes <= 0 {
		return fmt.Errorf("session durations must be positive (lecture=%d lab=%d)", p.LectureMinutes, p.LabMinutes)
	}
	return nil
}

// Block is one weekly session a subject needs.
type Block struct {
	ClassType models.ClassType
	Minutes   int
}

// Blocks splits a subject's weekly minutes into sessions. A lab subject gets a
// single lab block when labs must stand apart from lectures; otherwise all of
// its time is spent in lab blocks.
func (p SessionPolicy) Blocks(subject models.Subject, labHoursRequired bool) []Block {
	total := subject.WeeklyMinutes()
	if total <= 0 {
		return nil
	}
	if !subject.IsLab {
		return split(total, p.LectureMinutes, models.ClassTypeLecture)
	}
	if !labHoursRequired {
		return split(total, p.LabMinutes, models.ClassTypeLab)
	}
	lab := min(p.LabMinutes, total)
	blocks := []Block{{ClassType: models.ClassTypeLab, Minutes: lab}}
	return append(blocks, split(total-lab, p.LectureMinutes, models.ClassTypeLecture)...)
}

func split(total, size int, classType models.ClassType) []Block {
	var blocks []Block
	for total > 0 {
		minutes := min(size, total)
		blocks = append(blocks, Block{ClassType: classType, Minutes: minutes})
		total -= minutes
	}
	return blocks
}
