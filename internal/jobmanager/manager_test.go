package jobmanager_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsscrape/engine/internal/domain"
	"github.com/newsscrape/engine/internal/errs"
	"github.com/newsscrape/engine/internal/jobmanager"
	"github.com/newsscrape/engine/internal/logging"
)

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.ScrapingJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[uuid.UUID]*domain.ScrapingJob)}
}

func (f *fakeJobRepo) CreateWithLog(_ context.Context, job *domain.ScrapingJob, _ *domain.ScrapingLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.ScrapingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobRepo) List(_ context.Context, _ domain.JobStatus, _, _ int) ([]domain.ScrapingJob, int, error) {
	return nil, 0, nil
}

func (f *fakeJobRepo) ListNonTerminalOlderThan(_ context.Context, _ time.Time) ([]domain.ScrapingJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) MarkInProgress(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != domain.JobStatusNew {
		return errs.ErrJobTerminal
	}
	job.Status = domain.JobStatusInProgress
	return nil
}

func (f *fakeJobRepo) CancelIfNotTerminal(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return errs.ErrJobTerminal
	}
	job.Status = domain.JobStatusCancelled
	return nil
}

func (f *fakeJobRepo) Finish(_ context.Context, id uuid.UUID, status domain.JobStatus, _ time.Time, _ *domain.ScrapingLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	job.Status = status
	return nil
}

type fakeLogRepo struct{}

func (fakeLogRepo) ListByJob(_ context.Context, _ uuid.UUID, _ domain.LogLevel, _, _ int) ([]domain.ScrapingLog, int, error) {
	return nil, 0, nil
}

func (fakeLogRepo) InsertLog(_ context.Context, _ *domain.ScrapingLog) error { return nil }

type fakeSourceLister struct {
	sources map[uuid.UUID]domain.Source
}

func (f fakeSourceLister) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Source, error) {
	var out []domain.Source
	for _, id := range ids {
		if s, ok := f.sources[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakePipeline struct {
	ran chan struct{}
}

func (f *fakePipeline) Run(_ context.Context, _ domain.ScrapingJob, _ []domain.Source) {
	close(f.ran)
}

func newManager(t *testing.T, jobs *fakeJobRepo, sources fakeSourceLister, pipeline jobmanager.Pipeline) *jobmanager.Manager {
	t.Helper()
	logger := logging.New(fakeLogRepo{}, false)
	return jobmanager.New(jobs, fakeLogRepo{}, sources, pipeline, logger, time.Hour)
}

func TestCreateJob_RejectsEmptySources(t *testing.T) {
	m := newManager(t, newFakeJobRepo(), fakeSourceLister{}, &fakePipeline{ran: make(chan struct{})})

	_, err := m.CreateJob(context.Background(), domain.JobCreate{ArticlesPerSource: 5})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestCreateJob_RejectsInactiveSource(t *testing.T) {
	sourceID := uuid.New()
	sources := fakeSourceLister{sources: map[uuid.UUID]domain.Source{
		sourceID: {ID: sourceID, Name: "stale", IsActive: false},
	}}
	m := newManager(t, newFakeJobRepo(), sources, &fakePipeline{ran: make(chan struct{})})

	_, err := m.CreateJob(context.Background(), domain.JobCreate{Sources: []uuid.UUID{sourceID}, ArticlesPerSource: 5})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestStartJob_DispatchesPipelineAndTransitions(t *testing.T) {
	sourceID := uuid.New()
	sources := fakeSourceLister{sources: map[uuid.UUID]domain.Source{
		sourceID: {ID: sourceID, Name: "BBC", IsActive: true},
	}}
	jobs := newFakeJobRepo()
	pipeline := &fakePipeline{ran: make(chan struct{})}
	m := newManager(t, jobs, sources, pipeline)

	jobID, err := m.CreateJob(context.Background(), domain.JobCreate{Sources: []uuid.UUID{sourceID}, ArticlesPerSource: 3})
	require.NoError(t, err)

	require.NoError(t, m.StartJob(context.Background(), jobID))

	select {
	case <-pipeline.ran:
	case <-time.After(time.Second):
		t.Fatal("pipeline.Run was never invoked")
	}

	job, err := m.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusInProgress, job.Status)
}

func TestCancelJob_OnTerminalJobErrors(t *testing.T) {
	sourceID := uuid.New()
	sources := fakeSourceLister{sources: map[uuid.UUID]domain.Source{
		sourceID: {ID: sourceID, Name: "BBC", IsActive: true},
	}}
	jobs := newFakeJobRepo()
	m := newManager(t, jobs, sources, &fakePipeline{ran: make(chan struct{})})

	jobID, err := m.CreateJob(context.Background(), domain.JobCreate{Sources: []uuid.UUID{sourceID}, ArticlesPerSource: 1})
	require.NoError(t, err)
	require.NoError(t, jobs.Finish(context.Background(), jobID, domain.JobStatusFailed, time.Now(), nil))

	err = m.CancelJob(context.Background(), jobID)
	assert.ErrorIs(t, err, errs.ErrJobTerminal)
}
