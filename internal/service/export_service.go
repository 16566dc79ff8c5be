package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

// Export formats accepted by ExportService.
const (
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"
)

var exportHeaders = []string{"Day", "Start", "End", "Subject", "Type", "Faculty", "Room"}

var dayNames = map[int]string{
	1: "Monday", 2: "Tuesday", 3: "Wednesday", 4: "Thursday", 5: "Friday", 6: "Saturday", 7: "Sunday",
}

type activeEntryLister interface {
	ListActive(ctx context.Context) ([]models.TimetableEntry, error)
}

type facultyLister interface {
	ListAll(ctx context.Context) ([]models.FacultyProfile, error)
}

// Renderer turns a dataset into a downloadable file.
type Renderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ExportService renders the weekly timetable as CSV, PDF or XLSX.
type ExportService struct {
	entries    activeEntryLister
	subjects   subjectLister
	classrooms classroomLister
	faculty    facultyLister
	renderers  map[string]Renderer
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService with the built-in renderers.
func NewExportService(entries activeEntryLister, subjects subjectLister, classrooms classroomLister, faculty facultyLister, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExportService{
		entries:    entries,
		subjects:   subjects,
		classrooms: classrooms,
		faculty:    faculty,
		renderers: map[string]Renderer{
			ExportFormatCSV:  export.NewCSVExporter(),
			ExportFormatPDF:  export.NewPDFExporter(),
			ExportFormatXLSX: export.NewXLSXExporter(),
		},
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Export renders the ACTIVE entries matching the query. The format defaults
// to CSV.
func (s *ExportService) Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportResult, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	format := strings.ToLower(query.Format)
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format "+format)
	}

	data, err := s.buildDataset(ctx, query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable for export")
	}
	payload, err := renderer.Render(data)
	if err != nil {
		s.logger.Error("timetable export render failed", zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	return &dto.ExportResult{
		Filename:    s.filename(query, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

func (s *ExportService) buildDataset(ctx context.Context, query dto.ExportQuery) (export.Dataset, error) {
	var (
		entries    []models.TimetableEntry
		subjects   []models.Subject
		classrooms []models.Classroom
		faculty    []models.FacultyProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { entries, err = s.entries.ListActive(gctx); return err })
	g.Go(func() (err error) { subjects, err = s.subjects.ListAll(gctx); return err })
	g.Go(func() (err error) { classrooms, err = s.classrooms.ListAll(gctx); return err })
	g.Go(func() (err error) { faculty, err = s.faculty.ListAll(gctx); return err })
	if err := g.Wait(); err != nil {
		return export.Dataset{}, err
	}

	subjectByID := lo.KeyBy(subjects, func(sub models.Subject) string { return sub.ID })
	roomByID := lo.KeyBy(classrooms, func(room models.Classroom) string { return room.ID })
	facultyByID := lo.KeyBy(faculty, func(f models.FacultyProfile) string { return f.ID })

	entries = lo.Filter(entries, func(e models.TimetableEntry, _ int) bool {
		return (query.FacultyID == "" || e.FacultyID == query.FacultyID) &&
			(query.ClassroomID == "" || e.ClassroomID == query.ClassroomID)
	})
	timetable.SortEntries(entries)

	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]string{
			"Day":     dayName(e.DayOfWeek),
			"Start":   e.StartTime.String(),
			"End":     e.EndTime.String(),
			"Subject": labelOr(subjectByID[e.SubjectID].Code, e.SubjectID),
			"Type":    string(e.ClassType),
			"Faculty": labelOr(facultyByID[e.FacultyID].Name, e.FacultyID),
			"Room":    labelOr(roomByID[e.ClassroomID].Code, e.ClassroomID),
		})
	}

	title := "Weekly timetable"
	switch {
	case query.FacultyID != "":
		title += " - " + labelOr(facultyByID[query.FacultyID].Name, query.FacultyID)
	case query.ClassroomID != "":
		title += " - " + labelOr(roomByID[query.ClassroomID].Code, query.ClassroomID)
	}
	return export.Dataset{Title: title, Headers: exportHeaders, Rows: rows}, nil
}

func (s *ExportService) filename(query dto.ExportQuery, ext string) string {
	parts := []string{"timetable"}
	if query.FacultyID != "" {
		parts = append(parts, sanitizeFilename(query.FacultyID))
	} else if query.ClassroomID != "" {
		parts = append(parts, sanitizeFilename(query.ClassroomID))
	}
	parts = append(parts, s.now().Format("20060102"))
	return fmt.Sprintf("%s.%s", strings.Join(parts, "-"), ext)
}

func sanitizeFilename(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, raw)
}

func dayName(day int) string {
	if name, ok := dayNames[day]; ok {
		return name
	}
	return fmt.Sprintf("Day %d", day)
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
