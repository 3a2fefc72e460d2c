package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsSerializationErr reports whether the error is a transaction-level
// serialization failure or deadlock. These abort the whole transaction and
// are safe to retry once the competing transaction has committed.
func IsSerializationErr(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	// PostgreSQL (SQLSTATE 40001)
	if strings.Contains(msg, "SQLSTATE 40001") || strings.Contains(msg, "could not serialize access") {
		return true
	}

	// MySQL (error code 1213)
	if strings.Contains(msg, "Error 1213") || strings.Contains(msg, "Deadlock found") {
		return true
	}

	return false
}
