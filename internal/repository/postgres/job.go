package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
)

func (r *jobRepository) Create(ctx context.Context, job *model.DeferredJob) error {
	query := `
		INSERT INTO deferred_jobs (id, appointment_id, kind, run_at, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`
	job.ID = uuid.New()
	job.Status = model.JobStatusPending
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	if _, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.AppointmentID,
		job.Kind,
		job.RunAt.UTC(),
		job.Payload,
		job.Status,
		job.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create deferred job: %w", err)
	}
	return nil
}

func (r *jobRepository) CancelAllForAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	query := `
		UPDATE deferred_jobs
		SET status = $1, updated_at = $2
		WHERE appointment_id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query,
		model.JobStatusCancelled, time.Now(), appointmentID, model.JobStatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel deferred jobs: %w", err)
	}
	return res.RowsAffected()
}

// DueWithLock atomically claims a batch of due jobs by moving them to
// CLAIMED. The claim survives the statement, so a second runner
// replica polling the same instant cannot pick up the same rows.
func (r *jobRepository) DueWithLock(ctx context.Context, now time.Time, limit int) ([]*model.DeferredJob, error) {
	query := `
		UPDATE deferred_jobs
		SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM deferred_jobs
			WHERE status = $3 AND run_at <= $4
			ORDER BY run_at ASC
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, appointment_id, kind, run_at, payload, status, last_error, created_at, updated_at
	`
	var jobs []*model.DeferredJob
	err := r.db.SelectContext(ctx, &jobs, query,
		model.JobStatusClaimed, time.Now(), model.JobStatusPending, now.UTC(), limit,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim due jobs: %w", err)
	}
	return jobs, nil
}

func (r *jobRepository) MarkExecuted(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, model.JobStatusExecuted, nil)
}

func (r *jobRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.setStatus(ctx, id, model.JobStatusFailed, &reason)
}

func (r *jobRepository) setStatus(ctx context.Context, id uuid.UUID, status model.JobStatus, lastError *string) error {
	query := `
		UPDATE deferred_jobs
		SET status = $1, last_error = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, status, lastError, time.Now(), id, model.JobStatusClaimed)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Cancelled between claim and completion; nothing to record.
		return nil
	}
	return nil
}
