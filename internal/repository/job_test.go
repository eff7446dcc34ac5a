package repository_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsscrape/engine/internal/domain"
	"github.com/newsscrape/engine/internal/errs"
	"github.com/newsscrape/engine/internal/repository"
)

func newMockJobRepo(t *testing.T) (*repository.JobRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	return repository.NewJobRepository(db), mock
}

func TestJobRepository_CreateWithLog(t *testing.T) {
	repo, mock := newMockJobRepo(t)

	job := &domain.ScrapingJob{
		ID:                uuid.New(),
		TriggeredAt:       time.Now(),
		Status:            domain.JobStatusNew,
		SourcesRequested:  []string{uuid.New().String()},
		ArticlesPerSource: 5,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	log := &domain.ScrapingLog{
		ID:        uuid.New(),
		JobID:     job.ID,
		LogLevel:  domain.LogLevelInfo,
		Message:   "job created",
		Timestamp: time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scraping_jobs")).
		WithArgs(job.ID, job.TriggeredAt, job.Status, sqlmock.AnyArg(), job.ArticlesPerSource,
			job.TotalArticlesScraped, job.TotalErrors, job.CreatedAt, job.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scraping_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.CreateWithLog(context.Background(), job, log)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_MarkInProgress_AlreadyTerminal(t *testing.T) {
	repo, mock := newMockJobRepo(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE scraping_jobs SET status")).
		WithArgs(id, domain.JobStatusInProgress, domain.JobStatusNew).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkInProgress(context.Background(), id)
	assert.ErrorIs(t, err, errs.ErrJobTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockJobRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM scraping_jobs WHERE id = $1")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
