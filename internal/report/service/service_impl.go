package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sieadev/watchdog/internal/clock"
	"github.com/sieadev/watchdog/internal/config"
	"github.com/sieadev/watchdog/internal/observability/metrics"
	"github.com/sieadev/watchdog/internal/report/domain"
	pkgdb "github.com/sieadev/watchdog/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock
	Policy  *config.PolicyHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	clock   clock.Clock
	policy  *config.PolicyHolder
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("report.service"),
		repo:    p.Repo,
		clock:   p.Clock,
		policy:  p.Policy,
		metrics: p.Metrics,
	}
}

// Submit runs the admission checks in a fixed order: self-report, duplicate,
// rate limit, insert. Duplicate must stay ahead of the rate check so a
// request hitting both conditions reports DUPLICATE. Everything that touches
// storage runs in one transaction.
//
// Two identical concurrent submissions must yield one SUBMITTED and one
// DUPLICATE. How the loser gets there differs per engine: on sqlite the
// single connection serializes the transactions, so the loser's duplicate
// count already sees the winner's row. On postgres/mysql the loser either
// hits the unique (subject, reporter, category) index, which the store maps
// to ErrDuplicate, or its SERIALIZABLE transaction aborts, in which case the
// whole sequence is retried once against the committed state.
func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.SubmitResult, error) {
	subject := strings.TrimSpace(req.SubjectID)
	if subject == "" {
		return nil, domain.ErrInvalidSubject
	}
	reporter := strings.TrimSpace(req.ReporterID)
	if reporter == "" {
		return nil, domain.ErrInvalidReporter
	}
	if !req.Category.Valid() {
		return nil, domain.ErrUnknownCategory
	}

	if subject == reporter {
		return s.finish(ctx, &domain.SubmitResult{Outcome: domain.OutcomeSelfReport}), nil
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = domain.DefaultDescription
	}

	policy := s.policy.Get()

	var result *domain.SubmitResult
	run := func() error {
		result = nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			matching, err := s.repo.CountMatching(ctx, tx, subject, reporter, req.Category)
			if err != nil {
				return err
			}
			if matching > 0 {
				result = &domain.SubmitResult{Outcome: domain.OutcomeDuplicate}
				return nil
			}

			since := s.clock.Now().Add(-policy.Window)
			recent, err := s.repo.CountRecentByReporter(ctx, tx, reporter, since)
			if err != nil {
				return err
			}
			if recent >= int64(policy.MaxPerWindow) {
				result = &domain.SubmitResult{Outcome: domain.OutcomeRateLimited}
				return nil
			}

			record := &domain.Report{
				SubjectID:   subject,
				ReporterID:  reporter,
				Category:    req.Category,
				Description: description,
				CreatedAt:   s.clock.Now().UTC(),
			}
			if err := s.repo.Insert(ctx, tx, record); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					result = &domain.SubmitResult{Outcome: domain.OutcomeDuplicate}
					return nil
				}
				return err
			}

			result = &domain.SubmitResult{Outcome: domain.OutcomeSubmitted, ReportID: record.ID}
			return nil
		}, s.txOptions()...)
	}

	err := run()
	if err != nil && pkgdb.IsSerializationErr(err) {
		// A SERIALIZABLE abort means a competing submission committed first.
		// Re-running against the new state resolves deterministically, most
		// often as DUPLICATE.
		err = run()
	}
	if err != nil {
		s.log.Error("report submission failed",
			zap.String("subject_id", subject),
			zap.String("reporter_id", reporter),
			zap.Error(err),
		)
		return s.finish(ctx, &domain.SubmitResult{Outcome: domain.OutcomeStorageError}),
			fmt.Errorf("submit report: %w", err)
	}

	return s.finish(ctx, result), nil
}

func (s *Service) History(ctx context.Context, subjectID string) (*domain.Aggregate, error) {
	subject := strings.TrimSpace(subjectID)
	if subject == "" {
		return nil, domain.ErrInvalidSubject
	}

	reports, err := s.repo.FindBySubject(ctx, s.db, subject)
	if err != nil {
		return nil, fmt.Errorf("load report history: %w", err)
	}

	agg := &domain.Aggregate{
		SubjectID:  subject,
		Total:      len(reports),
		ByCategory: make(map[domain.Category]int, len(reports)),
	}
	for _, report := range reports {
		agg.ByCategory[report.Category]++
	}

	s.metrics.RecordQuery(ctx, "history")
	return agg, nil
}

func (s *Service) Lookup(ctx context.Context, id int64) (*domain.Report, error) {
	report, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("lookup report: %w", err)
	}
	if report == nil {
		return nil, domain.ErrNotFound
	}

	s.metrics.RecordQuery(ctx, "lookup")
	return report, nil
}

// txOptions raises the submission transaction to SERIALIZABLE on engines
// with true concurrent writers, so two racing check-then-insert sequences
// cannot both observe "not yet present". The losing transaction aborts with
// a serialization failure, which Submit retries once. sqlite serializes
// writes on its own and rejects explicit isolation levels.
func (s *Service) txOptions() []*sql.TxOptions {
	switch s.db.Dialector.Name() {
	case "postgres", "mysql":
		return []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
	default:
		return nil
	}
}

func (s *Service) finish(ctx context.Context, result *domain.SubmitResult) *domain.SubmitResult {
	s.metrics.RecordSubmission(ctx, string(result.Outcome))
	return result
}
