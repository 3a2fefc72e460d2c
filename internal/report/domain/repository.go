package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository is the Report Store: durable, queryable persistence behind a
// small transactional interface. The db handle is passed per call so the
// policy engine can run every predicate of one submission inside a single
// transaction.
type Repository interface {
	// EnsureSchema idempotently creates the reports table and its indexes.
	EnsureSchema(ctx context.Context, db *gorm.DB) error

	// CountMatching counts reports with exactly this triple. Used for
	// duplicate suppression.
	CountMatching(ctx context.Context, db *gorm.DB, subjectID, reporterID string, category Category) (int64, error)

	// CountRecentByReporter counts reports filed by the reporter with
	// created_at after since. Used for the rolling rate limit.
	CountRecentByReporter(ctx context.Context, db *gorm.DB, reporterID string, since time.Time) (int64, error)

	// Insert appends the report and assigns its id. The statement is guarded
	// against an identical triple; losing that race returns ErrDuplicate and
	// inserts nothing.
	Insert(ctx context.Context, db *gorm.DB, report *Report) error

	// FindBySubject returns all reports against a subject in insertion
	// order. Rows with an unrecognized stored category are skipped, not
	// propagated.
	FindBySubject(ctx context.Context, db *gorm.DB, subjectID string) ([]Report, error)

	// FindByID returns (nil, nil) when no such report exists.
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Report, error)
}
