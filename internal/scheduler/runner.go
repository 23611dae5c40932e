package scheduler

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/pkg/logger"
	"github.com/medbook/booking-api/pkg/metrics"
)

// Callback executes one due job.
type Callback func(ctx context.Context, job *model.DeferredJob) error

type RunnerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	RunTimeout   time.Duration
}

// Runner polls the job store and executes due jobs. Callback failures
// are logged and the job marked failed; there is no retry — feedback
// messages are best-effort.
type Runner struct {
	jobs     repository.JobRepository
	callback Callback
	config   RunnerConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewRunner(jobs repository.JobRepository, callback Callback, config RunnerConfig, log *logger.Logger, m *metrics.Metrics) *Runner {
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.RunTimeout <= 0 {
		panic("RunTimeout must be greater than 0")
	}
	return &Runner{
		jobs:     jobs,
		callback: callback,
		config:   config,
		logger:   log,
		metrics:  m,
	}
}

func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	r.logger.Info("starting deferred job runner")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("shutting down deferred job runner")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce claims and executes one batch of due jobs.
func (r *Runner) RunOnce(ctx context.Context) {
	timer := prometheus.NewTimer(r.metrics.JobRunLatency)
	defer timer.ObserveDuration()

	runCtx, cancel := context.WithTimeout(ctx, r.config.RunTimeout)
	defer cancel()

	jobs, err := r.jobs.DueWithLock(runCtx, time.Now(), r.config.BatchSize)
	if err != nil {
		r.logger.Error(err, "failed to fetch due jobs")
		return
	}

	for _, job := range jobs {
		if err := r.callback(runCtx, job); err != nil {
			r.logger.Error(err, "deferred job callback failed",
				"job_id", job.ID.String(),
				"appointment_id", job.AppointmentID.String())
			r.metrics.JobsExecuted.WithLabelValues("failed").Inc()
			if markErr := r.jobs.MarkFailed(runCtx, job.ID, err.Error()); markErr != nil {
				r.logger.Error(markErr, "failed to mark job failed", "job_id", job.ID.String())
			}
			continue
		}
		r.metrics.JobsExecuted.WithLabelValues("executed").Inc()
		if err := r.jobs.MarkExecuted(runCtx, job.ID); err != nil {
			r.logger.Error(err, "failed to mark job executed", "job_id", job.ID.String())
		}
	}
}
