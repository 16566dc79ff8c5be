package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/lock"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/timetable"
	"github.com/noah-isme/timetable-api/pkg/config"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// commitAttempts is the number of snapshots a run may go through before a
// persistence conflict is reported.
const commitAttempts = 2

type timetableEntryStore interface {
	List(ctx context.Context, filter models.TimetableEntryFilter) ([]models.TimetableEntry, int, error)
	ListActive(ctx context.Context) ([]models.TimetableEntry, error)
	ApplyDiff(ctx context.Context, exec sqlx.ExtContext, diff models.TimetableDiff, limits models.ConstraintProfile) error
}

type profileStore interface {
	Current(ctx context.Context) (*models.ConstraintProfile, error)
	Save(ctx context.Context, exec sqlx.ExecerContext, profile models.ConstraintProfile, actor string) error
}

type absenceReader interface {
	ApprovedBetween(ctx context.Context, from, to time.Time) ([]models.LeaveRequest, error)
}

type subjectLister interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type classroomLister interface {
	ListAll(ctx context.Context) ([]models.Classroom, error)
}

type assignmentPoolReader interface {
	Pools(ctx context.Context) (map[string][]string, error)
}

type coverageReader interface {
	CoverageByFaculty(ctx context.Context, facultyID string) (map[string]int, error)
}

type runLocker interface {
	LockTimetable(ctx context.Context) (lock.Release, error)
	LockFacultyDay(ctx context.Context, facultyID string, day int) (lock.Release, error)
}

type eventNotifier interface {
	Notify(event Event)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableSettings is the run configuration shared by generation and
// reschedule.
type TimetableSettings struct {
	Domain      timetable.Domain
	Policy      timetable.SessionPolicy
	RetryBudget int
	Defaults    models.ConstraintProfile
}

// TimetableSettingsFromConfig converts the scheduler and constraint sections.
func TimetableSettingsFromConfig(cfg *config.Config) (TimetableSettings, error) {
	domain, err := timetable.NewDomain(cfg.Scheduler.Days, cfg.Scheduler.DayStart, cfg.Scheduler.DayEnd, cfg.Scheduler.StartStep)
	if err != nil {
		return TimetableSettings{}, fmt.Errorf("scheduler domain: %w", err)
	}
	policy := timetable.SessionPolicy{
		LectureMinutes: cfg.Scheduler.LectureMinutes,
		LabMinutes:     cfg.Scheduler.LabMinutes,
	}
	if err := policy.Validate(); err != nil {
		return TimetableSettings{}, fmt.Errorf("session policy: %w", err)
	}
	return TimetableSettings{
		Domain:      domain,
		Policy:      policy,
		RetryBudget: cfg.Scheduler.RetryBudget,
		Defaults: models.ConstraintProfile{
			MaxDailyHours:        cfg.Constraints.MaxDailyHours,
			MaxWeeklyHours:       cfg.Constraints.MaxWeeklyHours,
			MinGapBetweenClasses: cfg.Constraints.MinGapBetweenClasses,
			LabHoursRequired:     cfg.Constraints.LabHoursRequired,
		},
	}, nil
}

// TimetableService orchestrates generation and reschedule runs: lock, load a
// snapshot, search, then commit the diff in one serializable transaction.
type TimetableService struct {
	entries    timetableEntryStore
	subjects   subjectLister
	classrooms classroomLister
	pools      assignmentPoolReader
	coverage   coverageReader
	profiles   profileStore
	absences   absenceReader
	tx         txProvider
	locker     runLocker
	cache      *CacheService
	notifier   eventNotifier
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	settings   TimetableSettings
	newID      func() string
}

// TimetableServiceDeps groups the collaborators of a TimetableService.
type TimetableServiceDeps struct {
	Entries    timetableEntryStore
	Subjects   subjectLister
	Classrooms classroomLister
	Pools      assignmentPoolReader
	Coverage   coverageReader
	Profiles   profileStore
	Absences   absenceReader
	Tx         txProvider
	Locker     runLocker
	Cache      *CacheService
	Notifier   eventNotifier
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
	// IDGenerator overrides entry id generation.
	IDGenerator func() string
}

// NewTimetableService constructs the service.
func NewTimetableService(deps TimetableServiceDeps, settings TimetableSettings) *TimetableService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewRunLocker()
	}
	if settings.RetryBudget <= 0 {
		settings.RetryBudget = timetable.DefaultRetryBudget
	}
	return &TimetableService{
		entries:    deps.Entries,
		subjects:   deps.Subjects,
		classrooms: deps.Classrooms,
		pools:      deps.Pools,
		coverage:   deps.Coverage,
		profiles:   deps.Profiles,
		absences:   deps.Absences,
		tx:         deps.Tx,
		locker:     deps.Locker,
		cache:      deps.Cache,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		validator:  deps.Validator,
		logger:     deps.Logger,
		settings:   settings,
		newID:      deps.IDGenerator,
	}
}

// Generate places every outstanding weekly session and commits the result.
// With ReplaceExisting all ACTIVE entries are deleted in the same diff and the
// search starts from an empty timetable.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest, actor string) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}
	profile, err := s.profileFrom(req.Constraints)
	if err != nil {
		return nil, err
	}
	engine, err := timetable.NewConstraintEngine(profile, s.settings.Domain)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	release, err := s.locker.LockTimetable(ctx)
	if err != nil {
		s.metrics.ObserveRun(RunKindGenerate, RunResultCancelled, time.Since(started))
		return nil, appErrors.Wrap(err, appErrors.ErrRunCancelled.Code, appErrors.ErrRunCancelled.Status, "timetable lock not acquired")
	}
	defer release()

	opts := []timetable.Option{timetable.WithRetryBudget(s.settings.RetryBudget)}
	if s.newID != nil {
		opts = append(opts, timetable.WithIDGenerator(s.newID))
	}
	scheduler := timetable.NewScheduler(engine, s.settings.Policy, s.settings.Domain, opts...)

	var (
		result *timetable.Result
		diff   models.TimetableDiff
	)
	for attempt := 1; ; attempt++ {
		result, diff, err = s.generateOnce(ctx, scheduler, profile, req.ReplaceExisting, actor)
		if err == nil {
			break
		}
		if !isPersistenceConflict(err) {
			s.metrics.ObserveRun(RunKindGenerate, runResult(err), time.Since(started))
			return nil, s.runError(err, "generate timetable")
		}
		if attempt >= commitAttempts {
			s.metrics.ObserveRun(RunKindGenerate, RunResultConflict, time.Since(started))
			return nil, appErrors.Wrap(err, appErrors.ErrPersistenceConflict.Code, appErrors.ErrPersistenceConflict.Status, appErrors.ErrPersistenceConflict.Message)
		}
		s.logger.Warn("generate commit conflicted, retrying on a fresh snapshot", zap.Int("attempt", attempt), zap.Error(err))
	}

	s.metrics.ObserveRun(RunKindGenerate, RunResultCommitted, time.Since(started))
	s.metrics.RecordGeneration(len(result.Placed), len(result.Unscheduled))
	s.afterCommit(ctx, EventTimetableGenerated, map[string]any{
		"scheduled":   len(result.Placed),
		"unscheduled": len(result.Unscheduled),
		"deleted":     len(diff.Deleted),
		"actor":       actor,
	})
	s.logger.Info("timetable generated",
		zap.Int("sessions", result.Sessions),
		zap.Int("scheduled", len(result.Placed)),
		zap.Int("unscheduled", len(result.Unscheduled)),
		zap.Int("backtracks", result.Backtracks),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &dto.GenerateTimetableResponse{
		ScheduledCount: len(result.Placed),
		Unscheduled:    toUnscheduledDTO(result.Unscheduled),
		Backtracks:     result.Backtracks,
		Diff:           diff,
	}, nil
}

func (s *TimetableService) generateOnce(ctx context.Context, scheduler *timetable.Scheduler, profile models.ConstraintProfile, replace bool, actor string) (*timetable.Result, models.TimetableDiff, error) {
	var diff models.TimetableDiff
	snap, err := s.loadSnapshot(ctx, nil)
	if err != nil {
		return nil, diff, err
	}
	if err := checkPreconditions(snap); err != nil {
		return nil, diff, err
	}

	index := timetable.NewConflictIndex()
	if replace {
		diff.Deleted = lo.Filter(snap.entries, func(e models.TimetableEntry, _ int) bool { return e.Active() })
	} else {
		var rejected []models.TimetableEntry
		index, rejected = timetable.BuildConflictIndex(snap.entries)
		for _, entry := range rejected {
			s.logger.Warn("stored entry overlaps another, left out of the index", zap.String("entry_id", entry.ID))
		}
	}

	result, err := scheduler.Run(ctx, index, timetable.Input{
		Subjects:   snap.subjects,
		Pools:      snap.pools,
		Classrooms: snap.classrooms,
		CreatedBy:  actor,
	})
	if err != nil {
		return nil, diff, err
	}
	diff.Created = result.Placed

	if err := s.commit(ctx, runCommit{diff: diff, limits: profile, record: true, actor: actor}); err != nil {
		return nil, diff, err
	}
	return result, diff, nil
}

// Reschedule repairs the entries of the leave's faculty on the leave weekday
// and commits the repairs. The constraint profile is the one stored by the
// last committed generation, or the configured defaults before the first.
func (s *TimetableService) Reschedule(ctx context.Context, leave models.LeaveRequest, actor string) (*dto.RescheduleResponse, error) {
	day := leave.Weekday()

	started := time.Now()
	release, err := s.locker.LockFacultyDay(ctx, leave.FacultyID, day)
	if err != nil {
		s.metrics.ObserveRun(RunKindReschedule, RunResultCancelled, time.Since(started))
		return nil, appErrors.Wrap(err, appErrors.ErrRunCancelled.Code, appErrors.ErrRunCancelled.Status, "reschedule lock not acquired")
	}
	defer release()

	var repairs []timetable.Repair
	for attempt := 1; ; attempt++ {
		repairs, err = s.rescheduleOnce(ctx, leave)
		if err == nil {
			break
		}
		if !isPersistenceConflict(err) {
			s.metrics.ObserveRun(RunKindReschedule, runResult(err), time.Since(started))
			return nil, s.runError(err, "reschedule timetable")
		}
		if attempt >= commitAttempts {
			s.metrics.ObserveRun(RunKindReschedule, RunResultConflict, time.Since(started))
			return nil, appErrors.Wrap(err, appErrors.ErrPersistenceConflict.Code, appErrors.ErrPersistenceConflict.Status, appErrors.ErrPersistenceConflict.Message)
		}
		s.logger.Warn("reschedule commit conflicted, retrying on a fresh snapshot",
			zap.String("leave_id", leave.ID), zap.Int("attempt", attempt), zap.Error(err))
	}

	resp := &dto.RescheduleResponse{LeaveID: leave.ID, Day: day, Outcomes: make([]dto.RescheduleOutcome, 0, len(repairs))}
	tally := map[timetable.Outcome]int{}
	for _, repair := range repairs {
		resp.Outcomes = append(resp.Outcomes, toOutcomeDTO(repair))
		tally[repair.Outcome]++
		s.metrics.RecordRescheduleOutcome(string(repair.Outcome))
	}

	s.metrics.ObserveRun(RunKindReschedule, RunResultCommitted, time.Since(started))
	s.afterCommit(ctx, EventTimetableRescheduled, map[string]any{
		"leave_id":   leave.ID,
		"faculty_id": leave.FacultyID,
		"day":        day,
		"outcomes":   resp.Outcomes,
		"actor":      actor,
	})
	s.logger.Info("timetable rescheduled",
		zap.String("leave_id", leave.ID),
		zap.String("faculty_id", leave.FacultyID),
		zap.Int("day", day),
		zap.Int("substituted", tally[timetable.OutcomeSubstituted]),
		zap.Int("relocated", tally[timetable.OutcomeRelocated]),
		zap.Int("cancelled", tally[timetable.OutcomeCancelled]),
	)
	return resp, nil
}

func (s *TimetableService) rescheduleOnce(ctx context.Context, leave models.LeaveRequest) ([]timetable.Repair, error) {
	snap, err := s.loadSnapshot(ctx, &leave)
	if err != nil {
		return nil, err
	}
	engine, err := timetable.NewConstraintEngine(snap.profile, s.settings.Domain)
	if err != nil {
		return nil, err
	}
	rescheduler := timetable.NewRescheduler(engine, s.settings.Domain)
	index, rejected := timetable.BuildConflictIndex(snap.entries)
	for _, entry := range rejected {
		s.logger.Warn("stored entry overlaps another, left out of the index", zap.String("entry_id", entry.ID))
	}

	repairs, err := rescheduler.Run(ctx, index, timetable.RepairInput{
		FacultyID:   leave.FacultyID,
		Day:         leave.Weekday(),
		Subjects:    lo.KeyBy(snap.subjects, func(sub models.Subject) string { return sub.ID }),
		Pools:       snap.pools,
		Classrooms:  snap.classrooms,
		Coverage:    snap.coverage,
		Unavailable: snap.unavailable,
	})
	if err != nil {
		return nil, err
	}

	var diff models.TimetableDiff
	for _, repair := range repairs {
		switch repair.Outcome {
		case timetable.OutcomeCancelled:
			diff.Cancelled = append(diff.Cancelled, repair.Before)
		default:
			diff.Updated = append(diff.Updated, repair.After)
		}
	}
	if err := s.commit(ctx, runCommit{diff: diff, limits: snap.profile}); err != nil {
		return nil, err
	}
	return repairs, nil
}

type entryPage struct {
	Items []models.TimetableEntry `json:"items"`
	Total int                     `json:"total"`
}

// Entries lists timetable entries matching the query.
func (s *TimetableService) Entries(ctx context.Context, query dto.TimetableEntryQuery) ([]models.TimetableEntry, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry filter")
	}
	filter := query.Filter()
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.listCached(ctx, cacheKey(cacheKeyEntries,
		filter.FacultyID, filter.ClassroomID, filter.SubjectID,
		strconv.Itoa(filter.DayOfWeek), string(filter.Status),
		strconv.Itoa(filter.Page), strconv.Itoa(filter.PageSize),
	), filter)
}

// PendingReview lists entries cancelled by reschedule runs that still await
// an admin decision.
func (s *TimetableService) PendingReview(ctx context.Context, page, pageSize int) ([]models.TimetableEntry, *models.Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	filter := models.TimetableEntryFilter{
		Status:   models.EntryStatusCancelledPendingReview,
		Page:     page,
		PageSize: pageSize,
	}
	return s.listCached(ctx, cacheKey(cacheKeyPendingReview, strconv.Itoa(page), strconv.Itoa(pageSize)), filter)
}

func (s *TimetableService) listCached(ctx context.Context, key string, filter models.TimetableEntryFilter) ([]models.TimetableEntry, *models.Pagination, error) {
	var page entryPage
	if hit, _ := s.cache.Get(ctx, key, &page); !hit {
		items, total, err := s.entries.List(ctx, filter)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
		}
		page = entryPage{Items: items, Total: total}
		_ = s.cache.Set(ctx, key, page, 0)
	}
	return page.Items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: page.Total}, nil
}

type snapshot struct {
	subjects    []models.Subject
	classrooms  []models.Classroom
	pools       map[string][]string
	entries     []models.TimetableEntry
	coverage    map[string]int
	profile     models.ConstraintProfile
	unavailable map[int][]string
}

// loadSnapshot reads the run inputs concurrently. For a reschedule run the
// absent faculty's coverage, the stored profile and the other approved leaves
// of the leave's week are loaded too.
func (s *TimetableService) loadSnapshot(ctx context.Context, leave *models.LeaveRequest) (*snapshot, error) {
	started := time.Now()
	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.subjects, err = s.subjects.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.classrooms, err = s.classrooms.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.pools, err = s.pools.Pools(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.entries, err = s.entries.ListActive(gctx)
		return err
	})
	var (
		stored *models.ConstraintProfile
		leaves []models.LeaveRequest
	)
	if leave != nil && s.coverage != nil {
		g.Go(func() (err error) {
			snap.coverage, err = s.coverage.CoverageByFaculty(gctx, leave.FacultyID)
			return err
		})
	}
	if leave != nil && s.profiles != nil {
		g.Go(func() (err error) {
			stored, err = s.profiles.Current(gctx)
			return err
		})
	}
	if leave != nil && s.absences != nil {
		weekEnd := leave.Date.AddDate(0, 0, 7-leave.Weekday())
		g.Go(func() (err error) {
			leaves, err = s.absences.ApprovedBetween(gctx, leave.Date, weekEnd)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap.profile = s.settings.Defaults
	if stored != nil {
		snap.profile = *stored
	}
	snap.unavailable = make(map[int][]string, len(leaves))
	for _, absent := range leaves {
		day := absent.Weekday()
		snap.unavailable[day] = append(snap.unavailable[day], absent.FacultyID)
	}
	s.metrics.ObserveDBQuery("timetable_snapshot", time.Since(started))
	return snap, nil
}

// runCommit is what one run writes. limits guard the occupying entries of
// diff, and record stores limits as the timetable's profile.
type runCommit struct {
	diff   models.TimetableDiff
	limits models.ConstraintProfile
	record bool
	actor  string
}

// commit applies the diff in one serializable transaction.
func (s *TimetableService) commit(ctx context.Context, rc runCommit) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rc.diff.Empty() {
		return nil
	}
	started := time.Now()
	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin timetable transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.entries.ApplyDiff(ctx, tx, rc.diff, rc.limits); err != nil {
		return err
	}
	if rc.record && s.profiles != nil {
		if err = s.profiles.Save(ctx, tx, rc.limits, rc.actor); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable transaction: %w", err)
	}
	s.metrics.ObserveDBQuery("timetable_apply_diff", time.Since(started))
	return nil
}

func (s *TimetableService) afterCommit(ctx context.Context, eventType string, payload map[string]any) {
	if err := s.cache.Invalidate(ctx, cachePatternTimetable); err != nil {
		s.logger.Warn("timetable cache not invalidated", zap.Error(err))
	}
	if s.notifier != nil {
		s.notifier.Notify(Event{Type: eventType, Payload: payload})
	}
}

func (s *TimetableService) runError(err error, action string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrRunCancelled.Code, appErrors.ErrRunCancelled.Status, appErrors.ErrRunCancelled.Message)
	}
	s.logger.Error(action+" failed", zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+action)
}

// profileFrom fills the fields a request leaves empty with the defaults.
func (s *TimetableService) profileFrom(req dto.ConstraintsRequest) (models.ConstraintProfile, error) {
	profile := s.settings.Defaults
	if req.MaxDailyHours != nil {
		profile.MaxDailyHours = *req.MaxDailyHours
	}
	if req.MaxWeeklyHours != nil {
		profile.MaxWeeklyHours = *req.MaxWeeklyHours
	}
	if req.MinGapBetweenClasses != nil {
		profile.MinGapBetweenClasses = *req.MinGapBetweenClasses
	}
	if req.LabHoursRequired != nil {
		profile.LabHoursRequired = *req.LabHoursRequired
	}
	if req.PreferredTimeSlots != nil {
		profile.PreferredTimeSlots = make([]models.PreferredTimeSlot, 0, len(req.PreferredTimeSlots))
		for i, slot := range req.PreferredTimeSlots {
			start, err := models.ParseClock(slot.Start)
			if err != nil {
				return profile, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
					fmt.Sprintf("preferredTimeSlots[%d].start is not a time of day", i))
			}
			end, err := models.ParseClock(slot.End)
			if err != nil {
				return profile, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
					fmt.Sprintf("preferredTimeSlots[%d].end is not a time of day", i))
			}
			profile.PreferredTimeSlots = append(profile.PreferredTimeSlots, models.PreferredTimeSlot{
				DayOfWeek: slot.DayOfWeek,
				Start:     start,
				End:       end,
			})
		}
	}
	return profile, nil
}

func checkPreconditions(snap *snapshot) error {
	if len(snap.subjects) == 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "no subjects to schedule")
	}
	if len(snap.classrooms) == 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "no classrooms available")
	}
	orphans := lo.FilterMap(snap.subjects, func(sub models.Subject, _ int) (string, bool) {
		return sub.Code, len(snap.pools[sub.ID]) == 0
	})
	if len(orphans) > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "subjects without eligible faculty").
			WithDetails(map[string]any{"subjects": orphans})
	}
	return nil
}

func isPersistenceConflict(err error) bool {
	if errors.Is(err, repository.ErrStaleWrite) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func runResult(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return RunResultCancelled
	}
	return RunResultFailed
}

func toUnscheduledDTO(list []timetable.Unscheduled) []dto.UnscheduledSession {
	out := make([]dto.UnscheduledSession, 0, len(list))
	for _, u := range list {
		out = append(out, dto.UnscheduledSession{
			SubjectID:    u.SubjectID,
			SubjectCode:  u.SubjectCode,
			SessionIndex: u.SessionIndex,
			ClassType:    u.ClassType,
			Minutes:      u.Minutes,
			Reason:       string(u.Reason),
		})
	}
	return out
}

func toOutcomeDTO(repair timetable.Repair) dto.RescheduleOutcome {
	entry := repair.After
	if repair.Outcome == timetable.OutcomeCancelled {
		entry = repair.Before
	}
	return dto.RescheduleOutcome{
		EntryID:     entry.ID,
		Outcome:     string(repair.Outcome),
		FacultyID:   entry.FacultyID,
		ClassroomID: entry.ClassroomID,
		Day:         entry.DayOfWeek,
		Start:       entry.StartTime,
		End:         entry.EndTime,
		Reason:      string(repair.Reason),
	}
}
