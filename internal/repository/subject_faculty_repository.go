package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SubjectFacultyRepository reads the faculty pools assigned to subjects.
type SubjectFacultyRepository struct {
	db *sqlx.DB
}

// NewSubjectFacultyRepository creates a new assignment repository.
func NewSubjectFacultyRepository(db *sqlx.DB) *SubjectFacultyRepository {
	return &SubjectFacultyRepository{db: db}
}

// Pools returns the faculty ids eligible for each subject, ordered by id.
func (r *SubjectFacultyRepository) Pools(ctx context.Context) (map[string][]string, error) {
	const query = `SELECT subject_id, faculty_id FROM subject_faculty ORDER BY subject_id ASC, faculty_id ASC`
	var rows []models.SubjectFaculty
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list subject faculty: %w", err)
	}
	pools := make(map[string][]string)
	for _, row := range rows {
		pools[row.SubjectID] = append(pools[row.SubjectID], row.FacultyID)
	}
	return pools, nil
}
