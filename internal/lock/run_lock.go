// Package lock serialises timetable runs. A generation run holds the whole
// timetable exclusively; reschedule runs share it and additionally hold an
// exclusive lock on the affected faculty weekday.
package lock

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// maxShared bounds concurrent shared holders of the timetable lock.
const maxShared = 1 << 20

// Release gives a lock back. It is safe to call more than once.
type Release func()

// RunLocker hands out run-scoped locks. Waiters are served in arrival order,
// so a pending generation is not starved by a stream of reschedules.
type RunLocker struct {
	timetable *semaphore.Weighted

	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

// NewRunLocker builds an unlocked RunLocker.
func NewRunLocker() *RunLocker {
	return &RunLocker{
		timetable: semaphore.NewWeighted(maxShared),
		keys:      make(map[string]*keyLock),
	}
}

// LockTimetable takes the exclusive whole-timetable lock.
func (l *RunLocker) LockTimetable(ctx context.Context) (Release, error) {
	if err := l.timetable.Acquire(ctx, maxShared); err != nil {
		return nil, fmt.Errorf("acquire timetable lock: %w", err)
	}
	return once(func() { l.timetable.Release(maxShared) }), nil
}

// LockFacultyDay takes the shared timetable lock and the exclusive lock for
// one faculty member's weekday.
func (l *RunLocker) LockFacultyDay(ctx context.Context, facultyID string, day int) (Release, error) {
	if err := l.timetable.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire shared timetable lock: %w", err)
	}

	key := fmt.Sprintf("%s/%d", facultyID, day)
	kl := l.ref(key)
	if err := kl.sem.Acquire(ctx, 1); err != nil {
		l.unref(key)
		l.timetable.Release(1)
		return nil, fmt.Errorf("acquire faculty day lock %s: %w", key, err)
	}

	return once(func() {
		kl.sem.Release(1)
		l.unref(key)
		l.timetable.Release(1)
	}), nil
}

func (l *RunLocker) ref(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.keys[key]
	if !ok {
		kl = &keyLock{sem: semaphore.NewWeighted(1)}
		l.keys[key] = kl
	}
	kl.refs++
	return kl
}

func (l *RunLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.keys[key]
	if !ok {
		return
	}
	kl.refs--
	if kl.refs <= 0 {
		delete(l.keys, key)
	}
}

func once(fn func()) Release {
	var o sync.Once
	return func() { o.Do(fn) }
}
