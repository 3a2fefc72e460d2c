package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sieadev/watchdog/internal/report/domain"
	"github.com/sieadev/watchdog/internal/report/repository"
	pkgdb "github.com/sieadev/watchdog/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return conn
}

func newTestRepo(t *testing.T) (domain.Repository, *gorm.DB) {
	t.Helper()

	conn := newTestDB(t)
	repo := repository.Provide(zap.NewNop(), nil)
	require.NoError(t, repo.EnsureSchema(context.Background(), conn))
	return repo, conn
}

func testReport(subject, reporter string, category domain.Category, at time.Time) *domain.Report {
	return &domain.Report{
		SubjectID:   subject,
		ReporterID:  reporter,
		Category:    category,
		Description: domain.DefaultDescription,
		CreatedAt:   at,
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)

	// Second run against an initialized store is a no-op.
	require.NoError(t, repo.EnsureSchema(ctx, conn))

	err := repo.Insert(ctx, conn, testReport("subject-1", "reporter-1", domain.CategoryDoxxing, time.Now().UTC()))
	assert.NoError(t, err)
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := testReport("subject-1", "reporter-1", domain.CategoryDoxxing, now)
	require.NoError(t, repo.Insert(ctx, conn, first))

	second := testReport("subject-1", "reporter-1", domain.CategoryBullying, now)
	require.NoError(t, repo.Insert(ctx, conn, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestInsertGuardedAgainstDuplicateTriple(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-1", "reporter-1", domain.CategoryScamming, now)))

	err := repo.Insert(ctx, conn, testReport("subject-1", "reporter-1", domain.CategoryScamming, now))
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	n, err := repo.CountMatching(ctx, conn, "subject-1", "reporter-1", domain.CategoryScamming)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSchemaEnforcesUniqueTriple(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-1", "reporter-1", domain.CategoryDoxxing, now)))

	// A write that bypasses the guarded insert still cannot create a second
	// row for the triple; the unique index rejects it with an error the
	// duplicate classifier recognizes.
	err := conn.Exec(
		`INSERT INTO reports (subject_id, reporter_id, category, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		"subject-1", "reporter-1", string(domain.CategoryDoxxing), "", now,
	).Error
	require.Error(t, err)
	assert.True(t, pkgdb.IsDuplicateKeyErr(err))
}

func TestCountMatching(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-1", "reporter-1", domain.CategoryHateSpeech, now)))
	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-1", "reporter-2", domain.CategoryHateSpeech, now)))

	n, err := repo.CountMatching(ctx, conn, "subject-1", "reporter-1", domain.CategoryHateSpeech)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountMatching(ctx, conn, "subject-1", "reporter-1", domain.CategoryDoxxing)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCountRecentByReporter(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-1", "reporter-1", domain.CategoryDoxxing, now.Add(-time.Hour))))
	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-2", "reporter-1", domain.CategoryDoxxing, now.Add(-23*time.Hour))))
	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-3", "reporter-1", domain.CategoryDoxxing, now.Add(-25*time.Hour))))
	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-1", "reporter-2", domain.CategoryDoxxing, now.Add(-time.Hour))))

	n, err := repo.CountRecentByReporter(ctx, conn, "reporter-1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestFindBySubject(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-1", "reporter-1", domain.CategoryHateSpeech, now)))
	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-1", "reporter-2", domain.CategoryDoxxing, now)))
	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-2", "reporter-1", domain.CategoryDoxxing, now)))

	reports, err := repo.FindBySubject(ctx, conn, "subject-1")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, domain.CategoryHateSpeech, reports[0].Category)
	assert.Equal(t, domain.CategoryDoxxing, reports[1].Category)

	reports, err = repo.FindBySubject(ctx, conn, "subject-3")
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestFindBySubjectSkipsUnrecognizedCategory(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, conn, testReport("subject-1", "reporter-1", domain.CategoryBullying, now)))

	// A row written by a newer deployment with a category this build does
	// not know. The read must drop it, not fail.
	require.NoError(t, conn.Exec(
		`INSERT INTO reports (subject_id, reporter_id, category, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		"subject-1", "reporter-2", "SOMETHING_ELSE", "", now,
	).Error)

	reports, err := repo.FindBySubject(ctx, conn, "subject-1")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, domain.CategoryBullying, reports[0].Category)
}

func TestFindByID(t *testing.T) {
	ctx := context.Background()
	repo, conn := newTestRepo(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	record := testReport("subject-1", "reporter-1", domain.CategoryThreatsOfViolence, now)
	require.NoError(t, repo.Insert(ctx, conn, record))

	t.Run("found", func(t *testing.T) {
		found, err := repo.FindByID(ctx, conn, record.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, record.ID, found.ID)
		assert.Equal(t, "subject-1", found.SubjectID)
		assert.Equal(t, domain.CategoryThreatsOfViolence, found.Category)
	})

	t.Run("absent", func(t *testing.T) {
		found, err := repo.FindByID(ctx, conn, 9999)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("unrecognized category", func(t *testing.T) {
		require.NoError(t, conn.Exec(
			`INSERT INTO reports (subject_id, reporter_id, category, description, created_at) VALUES (?, ?, ?, ?, ?)`,
			"subject-9", "reporter-9", "NOT_A_CATEGORY", "", now,
		).Error)

		var corruptID int64
		require.NoError(t, conn.Raw(`SELECT id FROM reports WHERE category = ?`, "NOT_A_CATEGORY").Scan(&corruptID).Error)

		found, err := repo.FindByID(ctx, conn, corruptID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}
