package repository

import (
	"errors"

	"github.com/Masterminds/squirrel"
)

// ErrStaleWrite is returned when a guarded write matched no row or would
// leave the timetable breaking its constraint profile. The caller retries on
// a fresh snapshot.
var ErrStaleWrite = errors.New("row changed concurrently")

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func statementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func paginate(page, size int) (uint64, uint64) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return uint64(size), uint64((page - 1) * size)
}
