package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SyllabusRepository reads syllabus coverage.
type SyllabusRepository struct {
	db *sqlx.DB
}

// NewSyllabusRepository creates a new syllabus repository.
func NewSyllabusRepository(db *sqlx.DB) *SyllabusRepository {
	return &SyllabusRepository{db: db}
}

// CoverageByFaculty maps subject id to the covered percentage for a faculty.
func (r *SyllabusRepository) CoverageByFaculty(ctx context.Context, facultyID string) (map[string]int, error) {
	const query = `SELECT faculty_id, subject_id, covered_percent FROM syllabus_progress WHERE faculty_id = $1`
	var rows []models.SyllabusProgress
	if err := r.db.SelectContext(ctx, &rows, query, facultyID); err != nil {
		return nil, fmt.Errorf("list syllabus progress: %w", err)
	}
	coverage := make(map[string]int, len(rows))
	for _, row := range rows {
		coverage[row.SubjectID] = row.CoveredPercent
	}
	return coverage, nil
}
