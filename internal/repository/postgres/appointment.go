package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/pkg/errors"
)

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, service_id, timeslot_id,
			date, status, location, reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	appt.Status = model.AppointmentStatusPending
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt

	if _, err := tx.ExecContext(ctx, query,
		appt.ID,
		appt.DoctorID,
		appt.PatientID,
		appt.ServiceID,
		appt.TimeslotID,
		appt.Date,
		appt.Status,
		appt.Location,
		appt.Reason,
		appt.CreatedAt,
		appt.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := insertOutboxTx(ctx, tx, event); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, service_id, timeslot_id,
		       date, status, location, reason, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, service_id, timeslot_id,
		       date, status, location, reason, created_at, updated_at
		FROM appointments
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil && filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, filters.DoctorID)
		argCount++
	}
	if filters != nil && filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	var appts []*model.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

// Confirm applies the transition to CONFIRMED as one atomic unit. The
// status guard, not a read-then-write, decides the winner when two
// confirms of the same appointment race; a conflict error reports a
// slot already held by a different appointment.
func (r *appointmentRepository) Confirm(ctx context.Context, id uuid.UUID, toggleSlot bool, event *model.OutboxEvent, from ...model.AppointmentStatus) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}

	update := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
		RETURNING timeslot_id
	`
	var slotID uuid.UUID
	err = tx.QueryRowContext(ctx, update,
		model.AppointmentStatusConfirmed, time.Now(), id, pq.Array(statuses),
	).Scan(&slotID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to confirm appointment: %w", err)
	}

	if toggleSlot {
		// Taking the slot is conditional: an unavailable slot is only
		// ours to take when no other live appointment holds it (our own
		// earlier reschedule may have blocked it already). Zero rows
		// means another appointment won the slot; the whole transition
		// rolls back.
		res, err := tx.ExecContext(ctx, `
			UPDATE timeslots
			SET is_available = FALSE, updated_at = $1
			WHERE id = $2
			  AND (is_available = TRUE OR NOT EXISTS (
				SELECT 1 FROM appointments
				WHERE timeslot_id = $2 AND id <> $3 AND status = ANY($4)
			  ))
		`, time.Now(), slotID, id, pq.Array([]string{
			string(model.AppointmentStatusConfirmed),
			string(model.AppointmentStatusRescheduled),
		}))
		if err != nil {
			return false, fmt.Errorf("failed to block timeslot: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return false, errors.Conflict("timeslot is no longer available", nil)
		}
	}

	if err := insertOutboxTx(ctx, tx, event); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit confirm: %w", err)
	}
	return true, nil
}

// Cancel frees the timeslot and marks the appointment CANCELLED in one
// atomic unit. Returns false when the row was already cancelled.
func (r *appointmentRepository) Cancel(ctx context.Context, id uuid.UUID, event *model.OutboxEvent) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	update := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status <> $1
		RETURNING timeslot_id
	`
	var slotID uuid.UUID
	err = tx.QueryRowContext(ctx, update,
		model.AppointmentStatusCancelled, time.Now(), id,
	).Scan(&slotID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE timeslots SET is_available = TRUE, updated_at = $1 WHERE id = $2`,
		time.Now(), slotID,
	); err != nil {
		return false, fmt.Errorf("failed to free timeslot: %w", err)
	}

	if err := insertOutboxTx(ctx, tx, event); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit cancel: %w", err)
	}
	return true, nil
}

// Rebind relinks the appointment to a new timeslot for a reschedule.
// The old slot is freed and the new one blocked or left open per the
// doctor-class policy, all in one transaction.
func (r *appointmentRepository) Rebind(ctx context.Context, id, newSlotID uuid.UUID, newDate string, blockNewSlot bool, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldSlotID uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT timeslot_id FROM appointments WHERE id = $1 FOR UPDATE`, id,
	).Scan(&oldSlotID)
	if err == sql.ErrNoRows {
		return errors.NotFound("appointment", err)
	}
	if err != nil {
		return fmt.Errorf("failed to lock appointment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE appointments
		SET timeslot_id = $1, date = $2, status = $3, updated_at = $4
		WHERE id = $5
	`, newSlotID, newDate, model.AppointmentStatusRescheduled, time.Now(), id); err != nil {
		return fmt.Errorf("failed to rebind appointment: %w", err)
	}

	if oldSlotID != newSlotID {
		if _, err := tx.ExecContext(ctx,
			`UPDATE timeslots SET is_available = TRUE, updated_at = $1 WHERE id = $2`,
			time.Now(), oldSlotID,
		); err != nil {
			return fmt.Errorf("failed to free old timeslot: %w", err)
		}
	}

	if blockNewSlot {
		if _, err := tx.ExecContext(ctx,
			`UPDATE timeslots SET is_available = FALSE, updated_at = $1 WHERE id = $2`,
			time.Now(), newSlotID,
		); err != nil {
			return fmt.Errorf("failed to block new timeslot: %w", err)
		}
	}

	if err := insertOutboxTx(ctx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebind: %w", err)
	}
	return nil
}
