package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// FacultyRepository reads faculty profiles.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new faculty repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// FindByID loads a faculty profile by id.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.FacultyProfile, error) {
	const query = `SELECT id, user_id, department_id, name FROM faculty_profiles WHERE id = $1`
	var profile models.FacultyProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListAll returns every faculty profile ordered by name.
func (r *FacultyRepository) ListAll(ctx context.Context) ([]models.FacultyProfile, error) {
	const query = `SELECT id, user_id, department_id, name FROM faculty_profiles ORDER BY name, id`
	var profiles []models.FacultyProfile
	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, err
	}
	return profiles, nil
}
