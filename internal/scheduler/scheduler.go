// Package scheduler provides the durable deferred-job facility used
// for post-visit feedback messages. The contract callers rely on: at
// most one live job per appointment, and cancellation is synchronous —
// when CancelAllForAppointment returns, no superseded job can still
// fire.
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/pkg/metrics"
)

type Scheduler interface {
	// Schedule registers a job to run at or after runAt. The caller
	// must cancel any earlier job for the same appointment first.
	Schedule(ctx context.Context, appointmentID uuid.UUID, runAt time.Time, payload json.RawMessage) (uuid.UUID, error)
	// CancelAllForAppointment cancels every live job for the
	// appointment and returns how many were cancelled.
	CancelAllForAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error)
}

type storeScheduler struct {
	jobs    repository.JobRepository
	metrics *metrics.Metrics
}

func New(jobs repository.JobRepository, m *metrics.Metrics) Scheduler {
	return &storeScheduler{jobs: jobs, metrics: m}
}

func (s *storeScheduler) Schedule(ctx context.Context, appointmentID uuid.UUID, runAt time.Time, payload json.RawMessage) (uuid.UUID, error) {
	job := &model.DeferredJob{
		AppointmentID: appointmentID,
		Kind:          model.JobKindFeedback,
		RunAt:         runAt,
		Payload:       payload,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return uuid.Nil, err
	}
	s.metrics.JobsScheduled.Inc()
	return job.ID, nil
}

func (s *storeScheduler) CancelAllForAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	n, err := s.jobs.CancelAllForAppointment(ctx, appointmentID)
	if err != nil {
		return 0, err
	}
	s.metrics.JobsCancelled.Add(float64(n))
	return n, nil
}
