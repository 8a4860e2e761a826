package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsNotFoundError reports whether err is the storage layer's "no rows"
// condition, so services can translate it to a domain error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
// The loser of a concurrent session-start race sees this and re-reads
// the winner's row instead of failing.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Postgres unique_violation, surfaced by the pgx driver.
	return strings.Contains(err.Error(), "SQLSTATE 23505") ||
		strings.Contains(err.Error(), "duplicate key value")
}
