package sqlite

import (
	"database/sql"
	"errors"
	"strings"
)

// isUniqueError checks if error is a unique constraint violation
func isUniqueError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// isForeignKeyError checks if error is a foreign key violation
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

// isNoRowsError checks if error is a "no rows" error
func isNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
