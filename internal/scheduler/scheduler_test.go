package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/logger"
	"github.com/medbook/booking-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", "scheduler")

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*model.DeferredJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[uuid.UUID]*model.DeferredJob)}
}

func (r *memJobRepo) Create(ctx context.Context, job *model.DeferredJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.ID = uuid.New()
	job.Status = model.JobStatusPending
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memJobRepo) CancelAllForAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, j := range r.jobs {
		if j.AppointmentID == appointmentID && j.Status == model.JobStatusPending {
			j.Status = model.JobStatusCancelled
			n++
		}
	}
	return n, nil
}

func (r *memJobRepo) DueWithLock(ctx context.Context, now time.Time, limit int) ([]*model.DeferredJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.DeferredJob
	for _, j := range r.jobs {
		if j.Status == model.JobStatusPending && !j.RunAt.After(now) && len(out) < limit {
			j.Status = model.JobStatusClaimed
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memJobRepo) MarkExecuted(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return errors.NotFound("job not found", nil)
	}
	job.Status = model.JobStatusExecuted
	return nil
}

func (r *memJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return errors.NotFound("job not found", nil)
	}
	job.Status = model.JobStatusFailed
	job.LastError = &reason
	return nil
}

func (r *memJobRepo) status(id uuid.UUID) model.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id].Status
}

func TestScheduleAndCancel(t *testing.T) {
	repo := newMemJobRepo()
	sched := New(repo, testMetrics)
	ctx := context.Background()
	apptID := uuid.New()

	payload, _ := json.Marshal(map[string]string{"appointment_id": apptID.String()})
	jobID, err := sched.Schedule(ctx, apptID, time.Now().Add(time.Hour), payload)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, jobID)
	assert.Equal(t, model.JobStatusPending, repo.status(jobID))

	n, err := sched.CancelAllForAppointment(ctx, apptID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, model.JobStatusCancelled, repo.status(jobID))

	// Nothing left to cancel.
	n, err = sched.CancelAllForAppointment(ctx, apptID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRunOnceExecutesDueJobs(t *testing.T) {
	repo := newMemJobRepo()
	sched := New(repo, testMetrics)
	ctx := context.Background()

	dueID, err := sched.Schedule(ctx, uuid.New(), time.Now().Add(-time.Minute), nil)
	require.NoError(t, err)
	futureID, err := sched.Schedule(ctx, uuid.New(), time.Now().Add(time.Hour), nil)
	require.NoError(t, err)

	var executed []uuid.UUID
	runner := NewRunner(repo, func(ctx context.Context, job *model.DeferredJob) error {
		executed = append(executed, job.ID)
		return nil
	}, RunnerConfig{PollInterval: time.Second, BatchSize: 10, RunTimeout: time.Second}, logger.NewLogger(nil), testMetrics)

	runner.RunOnce(ctx)

	require.Len(t, executed, 1)
	assert.Equal(t, dueID, executed[0])
	assert.Equal(t, model.JobStatusExecuted, repo.status(dueID))
	assert.Equal(t, model.JobStatusPending, repo.status(futureID))
}

func TestRunOnceMarksFailedWithoutRetry(t *testing.T) {
	repo := newMemJobRepo()
	sched := New(repo, testMetrics)
	ctx := context.Background()

	jobID, err := sched.Schedule(ctx, uuid.New(), time.Now().Add(-time.Minute), nil)
	require.NoError(t, err)

	calls := 0
	runner := NewRunner(repo, func(ctx context.Context, job *model.DeferredJob) error {
		calls++
		return assert.AnError
	}, RunnerConfig{PollInterval: time.Second, BatchSize: 10, RunTimeout: time.Second}, logger.NewLogger(nil), testMetrics)

	runner.RunOnce(ctx)
	assert.Equal(t, 1, calls)
	assert.Equal(t, model.JobStatusFailed, repo.status(jobID))

	// A failed job is not due again.
	runner.RunOnce(ctx)
	assert.Equal(t, 1, calls, "no retry for failed jobs")
}

func TestDueWithLockClaimsExactlyOnce(t *testing.T) {
	repo := newMemJobRepo()
	sched := New(repo, testMetrics)
	ctx := context.Background()

	jobID, err := sched.Schedule(ctx, uuid.New(), time.Now().Add(-time.Minute), nil)
	require.NoError(t, err)

	// Two runner replicas poll the same instant; only one gets the job.
	first, err := repo.DueWithLock(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := repo.DueWithLock(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, second, "a claimed job is never handed out again")

	require.NoError(t, repo.MarkExecuted(ctx, jobID))
	assert.Equal(t, model.JobStatusExecuted, repo.status(jobID))
}

func TestCancelledJobNeverRuns(t *testing.T) {
	repo := newMemJobRepo()
	sched := New(repo, testMetrics)
	ctx := context.Background()

	apptID := uuid.New()
	_, err := sched.Schedule(ctx, apptID, time.Now().Add(-time.Minute), nil)
	require.NoError(t, err)
	_, err = sched.CancelAllForAppointment(ctx, apptID)
	require.NoError(t, err)

	calls := 0
	runner := NewRunner(repo, func(ctx context.Context, job *model.DeferredJob) error {
		calls++
		return nil
	}, RunnerConfig{PollInterval: time.Second, BatchSize: 10, RunTimeout: time.Second}, logger.NewLogger(nil), testMetrics)

	runner.RunOnce(ctx)
	assert.Equal(t, 0, calls)
}

func TestNewRunnerValidatesConfig(t *testing.T) {
	repo := newMemJobRepo()
	cb := func(ctx context.Context, job *model.DeferredJob) error { return nil }

	assert.Panics(t, func() {
		NewRunner(repo, cb, RunnerConfig{BatchSize: 1, RunTimeout: time.Second}, logger.NewLogger(nil), testMetrics)
	})
	assert.Panics(t, func() {
		NewRunner(repo, cb, RunnerConfig{PollInterval: time.Second, RunTimeout: time.Second}, logger.NewLogger(nil), testMetrics)
	})
}
