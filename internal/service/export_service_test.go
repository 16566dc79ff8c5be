package service

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type facultyListStub []models.FacultyProfile

func (f facultyListStub) ListAll(ctx context.Context) ([]models.FacultyProfile, error) { return f, nil }

func newExportFixture() *ExportService {
	entries := &entryStoreStub{active: []models.TimetableEntry{
		activeEntry("E2", "s1", "F2", "C1", 2, "10:00", "11:00"),
		activeEntry("E1", "s1", "F1", "C1", 1, "09:00", "10:00"),
		activeEntry("E3", "s2", "F1", "L1", 1, "13:00", "15:00"),
	}}
	svc := NewExportService(entries,
		subjectsStub{{ID: "s1", Code: "CS101"}, {ID: "s2", Code: "CS201"}},
		classroomsStub{{ID: "C1", Code: "R-101"}, {ID: "L1", Code: "LAB-1"}},
		facultyListStub{{ID: "F1", Name: "Ada"}, {ID: "F2", Name: "Grace"}},
		nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestExportServiceCSV(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.Export(context.Background(), dto.ExportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "timetable-20240304.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	records, err := csv.NewReader(strings.NewReader(string(result.Payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, []string{"Monday", "09:00", "10:00", "CS101", "LECTURE", "Ada", "R-101"}, records[1])
	assert.Equal(t, "LAB-1", records[2][6])
	assert.Equal(t, "Tuesday", records[3][0])
}

func TestExportServiceFiltersByFaculty(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.Export(context.Background(), dto.ExportQuery{Format: "csv", FacultyID: "F2"})
	require.NoError(t, err)
	assert.Equal(t, "timetable-F2-20240304.csv", result.Filename)

	records, err := csv.NewReader(strings.NewReader(string(result.Payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Grace", records[1][5])
}

func TestExportServiceBinaryFormats(t *testing.T) {
	svc := newExportFixture()

	pdf, err := svc.Export(context.Background(), dto.ExportQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Payload), "%PDF"))

	xlsx, err := svc.Export(context.Background(), dto.ExportQuery{Format: "xlsx", ClassroomID: "L1"})
	require.NoError(t, err)
	assert.Equal(t, "timetable-L1-20240304.xlsx", xlsx.Filename)
	assert.True(t, strings.HasPrefix(string(xlsx.Payload), "PK"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	_, err := newExportFixture().Export(context.Background(), dto.ExportQuery{Format: "docx"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c-1", sanitizeFilename("a/b c-1"))
}
