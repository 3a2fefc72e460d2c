package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sieadev/watchdog/internal/observability/metrics"
	"github.com/sieadev/watchdog/internal/report/domain"
	pkgdb "github.com/sieadev/watchdog/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type repo struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

func Provide(log *zap.Logger, m *metrics.Metrics) domain.Repository {
	return &repo{
		log:     log.Named("report.repository"),
		metrics: m,
	}
}

func (r *repo) EnsureSchema(ctx context.Context, db *gorm.DB) error {
	for _, stmt := range schemaStatements(db.Dialector.Name()) {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure reports schema: %w", err)
		}
	}
	return nil
}

func schemaStatements(dialect string) []string {
	switch dialect {
	case "mysql":
		return []string{
			`CREATE TABLE IF NOT EXISTS reports (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				subject_id VARCHAR(24) NOT NULL,
				reporter_id VARCHAR(24) NOT NULL,
				category VARCHAR(128) NOT NULL,
				description TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				KEY idx_reports_subject (subject_id),
				KEY idx_reports_reporter_created (reporter_id, created_at),
				UNIQUE KEY uq_reports_triple (subject_id, reporter_id, category)
			)`,
		}
	case "postgres":
		return []string{
			`CREATE TABLE IF NOT EXISTS reports (
				id BIGSERIAL PRIMARY KEY,
				subject_id VARCHAR(24) NOT NULL,
				reporter_id VARCHAR(24) NOT NULL,
				category VARCHAR(128) NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_reports_subject ON reports (subject_id)`,
			`CREATE INDEX IF NOT EXISTS idx_reports_reporter_created ON reports (reporter_id, created_at)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_reports_triple ON reports (subject_id, reporter_id, category)`,
		}
	default: // sqlite
		return []string{
			`CREATE TABLE IF NOT EXISTS reports (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				subject_id VARCHAR(24) NOT NULL,
				reporter_id VARCHAR(24) NOT NULL,
				category VARCHAR(128) NOT NULL,
				description TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_reports_subject ON reports (subject_id)`,
			`CREATE INDEX IF NOT EXISTS idx_reports_reporter_created ON reports (reporter_id, created_at)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_reports_triple ON reports (subject_id, reporter_id, category)`,
		}
	}
}

func (r *repo) CountMatching(ctx context.Context, db *gorm.DB, subjectID, reporterID string, category domain.Category) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM reports WHERE subject_id = ? AND reporter_id = ? AND category = ?`,
		subjectID,
		reporterID,
		category,
	).Scan(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count matching reports: %w", err)
	}
	return n, nil
}

func (r *repo) CountRecentByReporter(ctx context.Context, db *gorm.DB, reporterID string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM reports WHERE reporter_id = ? AND created_at > ?`,
		reporterID,
		since,
	).Scan(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count recent reports: %w", err)
	}
	return n, nil
}

// Insert appends the report through a guarded single statement: when an
// identical (subject, reporter, category) triple already exists, no row is
// written and ErrDuplicate is returned. The unique index on the triple backs
// the guard up under concurrency: a racing insert that slips past the NOT
// EXISTS check fails with a duplicate-key error, which also maps to
// ErrDuplicate. At most one row is ever admitted.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, report *domain.Report) error {
	if db.Dialector.Name() == "mysql" {
		return r.insertMySQL(ctx, db, report)
	}

	var id int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO reports (subject_id, reporter_id, category, description, created_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (
			SELECT 1 FROM reports WHERE subject_id = ? AND reporter_id = ? AND category = ?
		 )
		 RETURNING id`,
		report.SubjectID,
		report.ReporterID,
		report.Category,
		report.Description,
		report.CreatedAt,
		report.SubjectID,
		report.ReporterID,
		report.Category,
	).Scan(&id).Error
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert report: %w", err)
	}
	if id == 0 {
		return domain.ErrDuplicate
	}
	report.ID = id
	return nil
}

// insertMySQL is the same guarded insert without RETURNING, which MySQL
// lacks. Callers run inside a transaction, so LAST_INSERT_ID sees the same
// connection.
func (r *repo) insertMySQL(ctx context.Context, db *gorm.DB, report *domain.Report) error {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO reports (subject_id, reporter_id, category, description, created_at)
		 SELECT ?, ?, ?, ?, ? FROM DUAL
		 WHERE NOT EXISTS (
			SELECT 1 FROM reports WHERE subject_id = ? AND reporter_id = ? AND category = ?
		 )`,
		report.SubjectID,
		report.ReporterID,
		report.Category,
		report.Description,
		report.CreatedAt,
		report.SubjectID,
		report.ReporterID,
		report.Category,
	)
	if res.Error != nil {
		if pkgdb.IsDuplicateKeyErr(res.Error) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrDuplicate
	}

	var id int64
	if err := db.WithContext(ctx).Raw(`SELECT LAST_INSERT_ID()`).Scan(&id).Error; err != nil {
		return fmt.Errorf("read inserted id: %w", err)
	}
	report.ID = id
	return nil
}

func (r *repo) FindBySubject(ctx context.Context, db *gorm.DB, subjectID string) ([]domain.Report, error) {
	var rows []domain.Report
	err := db.WithContext(ctx).Raw(
		`SELECT id, subject_id, reporter_id, category, description, created_at
		 FROM reports WHERE subject_id = ? ORDER BY id`,
		subjectID,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find reports by subject: %w", err)
	}

	out := make([]domain.Report, 0, len(rows))
	for _, row := range rows {
		if !row.Category.Valid() {
			r.skipCorruptRow(ctx, row)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Report, error) {
	var row domain.Report
	err := db.WithContext(ctx).Raw(
		`SELECT id, subject_id, reporter_id, category, description, created_at
		 FROM reports WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("find report by id: %w", err)
	}
	if row.ID == 0 {
		return nil, nil
	}
	if !row.Category.Valid() {
		r.skipCorruptRow(ctx, row)
		return nil, nil
	}
	return &row, nil
}

func (r *repo) skipCorruptRow(ctx context.Context, row domain.Report) {
	r.log.Warn("skipping report with unrecognized category",
		zap.Int64("report_id", row.ID),
		zap.String("category", string(row.Category)),
	)
	r.metrics.RecordIntegritySkip(ctx)
}
