package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ProfileRepository stores the constraint profile of the last committed
// generation run.
type ProfileRepository struct {
	db  *sqlx.DB
	sb  squirrel.StatementBuilderType
	now func() time.Time
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{
		db:  db,
		sb:  statementBuilder(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Current returns the stored profile, or nil when no generation has been
// committed yet.
func (r *ProfileRepository) Current(ctx context.Context) (*models.ConstraintProfile, error) {
	var raw []byte
	if err := r.db.GetContext(ctx, &raw, `SELECT profile FROM timetable_profile WHERE id = 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load timetable profile: %w", err)
	}
	var profile models.ConstraintProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decode timetable profile: %w", err)
	}
	return &profile, nil
}

// Save replaces the stored profile inside exec.
func (r *ProfileRepository) Save(ctx context.Context, exec sqlx.ExecerContext, profile models.ConstraintProfile, actor string) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode timetable profile: %w", err)
	}
	query, args, err := r.sb.Insert("timetable_profile").
		Columns("id", "profile", "generated_by", "generated_at").
		Values(1, raw, actor, r.now()).
		Suffix("ON CONFLICT (id) DO UPDATE SET profile = EXCLUDED.profile, generated_by = EXCLUDED.generated_by, generated_at = EXCLUDED.generated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build save profile query: %w", err)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save timetable profile: %w", err)
	}
	return nil
}
