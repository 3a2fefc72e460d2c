package domain

import (
	"context"
	"errors"
	"strings"
)

// Outcome is the terminal result of one submission attempt. The dispatcher
// renders these into user-facing text; the core never does.
type Outcome string

const (
	OutcomeSubmitted    Outcome = "SUBMITTED"
	OutcomeSelfReport   Outcome = "SELF_REPORT"
	OutcomeDuplicate    Outcome = "DUPLICATE"
	OutcomeRateLimited  Outcome = "RATE_LIMIT_EXCEEDED"
	OutcomeStorageError Outcome = "STORAGE_ERROR"
)

type SubmitRequest struct {
	SubjectID   string
	ReporterID  string
	Category    Category
	Description string
}

type SubmitResult struct {
	Outcome  Outcome
	ReportID int64
}

type Service interface {
	// Submit decides whether the attempt is admitted and, if so, commits it.
	// Policy rejections come back as a result with a nil error; a storage
	// failure comes back as OutcomeStorageError with the cause as the error.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)

	// History returns the aggregate for a subject; a subject with no reports
	// yields an empty aggregate, not an error.
	History(ctx context.Context, subjectID string) (*Aggregate, error)

	// Lookup fetches a single report by id for auditing.
	Lookup(ctx context.Context, id int64) (*Report, error)
}

var (
	ErrInvalidSubject  = errors.New("invalid_subject")
	ErrInvalidReporter = errors.New("invalid_reporter")
	ErrUnknownCategory = errors.New("unknown_category")
	ErrNotFound        = errors.New("not_found")

	// ErrDuplicate is how the store reports a guarded insert that lost a
	// race against an identical (subject, reporter, category) triple.
	ErrDuplicate = errors.New("duplicate_report")
)

func normalizeCategory(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
