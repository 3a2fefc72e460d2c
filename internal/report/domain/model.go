package domain

import (
	"time"
)

// Category classifies the reported behavior. The set is closed; values are
// persisted by symbolic name so adding a category never needs a data
// migration.
type Category string

const (
	CategoryCheatingInVideoGame Category = "CHEATING_IN_VIDEO_GAME"
	CategoryDoxxing             Category = "DOXXING"
	CategoryScamming            Category = "SCAMMING"
	CategoryMaliciousMedia      Category = "MALICIOUS_MEDIA"
	CategoryHateSpeech          Category = "HATE_SPEECH"
	CategoryBullying            Category = "BULLYING"
	CategoryThreatsOfViolence   Category = "THREATS_OF_VIOLENCE"
	CategoryIllegalActivity     Category = "ILLEGAL_ACTIVITY"
)

// Categories returns the closed category set in declaration order.
func Categories() []Category {
	return []Category{
		CategoryCheatingInVideoGame,
		CategoryDoxxing,
		CategoryScamming,
		CategoryMaliciousMedia,
		CategoryHateSpeech,
		CategoryBullying,
		CategoryThreatsOfViolence,
		CategoryIllegalActivity,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryCheatingInVideoGame,
		CategoryDoxxing,
		CategoryScamming,
		CategoryMaliciousMedia,
		CategoryHateSpeech,
		CategoryBullying,
		CategoryThreatsOfViolence,
		CategoryIllegalActivity:
		return true
	default:
		return false
	}
}

// ParseCategory validates an inbound category value at the dispatcher
// boundary. Unrecognized values are reported as ErrUnknownCategory, never
// stored.
func ParseCategory(value string) (Category, error) {
	c := Category(normalizeCategory(value))
	if !c.Valid() {
		return "", ErrUnknownCategory
	}
	return c, nil
}

// DefaultDescription is stored when the reporter gives no detail.
const DefaultDescription = "No description."

// Report is one immutable accusation record. Rows are append-only: nothing
// in this codebase updates or deletes them, and ids are never reused.
type Report struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	SubjectID   string    `gorm:"column:subject_id;type:varchar(24);not null;index"`
	ReporterID  string    `gorm:"column:reporter_id;type:varchar(24);not null;index"`
	Category    Category  `gorm:"type:varchar(128);not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Report) TableName() string { return "reports" }

// Aggregate is the derived per-subject summary. It is recomputed on every
// query; nothing caches it.
type Aggregate struct {
	SubjectID  string
	Total      int
	ByCategory map[Category]int
}
