package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
)

// TimeslotRepository persists timeslots. Availability is mutated only
// through the AppointmentRepository transition methods so a slot and
// its appointment can never be observed half-applied.
type TimeslotRepository interface {
	// GetOrCreate returns the timeslot at (doctorID, startAt), creating
	// it when absent. Safe under concurrent identical requests: the
	// unique constraint on (doctor_id, start_at) collapses racers onto
	// one row. An existing slot is returned as-is, availability intact.
	GetOrCreate(ctx context.Context, doctorID uuid.UUID, startAt time.Time, origin model.OriginType) (*model.Timeslot, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Timeslot, error)
}

// AppointmentRepository persists appointments and owns the atomic
// multi-row transition units: each transition method updates the
// appointment row, its timeslot, and the outbox in one transaction.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment, event *model.OutboxEvent) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)

	// Confirm flips status to CONFIRMED under a conditional guard on
	// the current status and, when toggleSlot, marks the timeslot
	// unavailable. Returns false when the guard did not match.
	Confirm(ctx context.Context, id uuid.UUID, toggleSlot bool, event *model.OutboxEvent, from ...model.AppointmentStatus) (bool, error)

	// Cancel sets status CANCELLED and frees the timeslot. Returns
	// false when the appointment was already cancelled.
	Cancel(ctx context.Context, id uuid.UUID, event *model.OutboxEvent) (bool, error)

	// Rebind points the appointment at a new timeslot for a reschedule:
	// frees the old slot, optionally blocks the new one, updates date,
	// timeslot_id and status RESCHEDULED.
	Rebind(ctx context.Context, id, newSlotID uuid.UUID, newDate string, blockNewSlot bool, event *model.OutboxEvent) error
}

// PatientRepository deduplicates patients by phone.
type PatientRepository interface {
	// UpsertByPhone inserts a new patient or refreshes the mutable
	// fields of the existing one. Phone never changes.
	UpsertByPhone(ctx context.Context, details *model.PatientDetails) (*model.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
}

type DoctorRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
}

// JobRepository is the durable store behind the deferred job scheduler.
type JobRepository interface {
	Create(ctx context.Context, job *model.DeferredJob) error
	// CancelAllForAppointment cancels every live job for the
	// appointment and reports how many it hit.
	CancelAllForAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error)
	// DueWithLock claims up to limit due pending jobs by moving them
	// to CLAIMED; a concurrent runner can never claim the same row.
	DueWithLock(ctx context.Context, now time.Time, limit int) ([]*model.DeferredJob, error)
	MarkExecuted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// MessageRepository records outbound notifications and their delivery
// receipts.
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByProviderSID(ctx context.Context, sid string) (*model.Message, error)
	// MarkDelivered transitions the message to delivered and reports
	// whether this call performed the transition. Repeat receipts for
	// an already-delivered message return false.
	MarkDelivered(ctx context.Context, sid string) (bool, error)
	UpdateStatus(ctx context.Context, sid string, status model.MessageStatus) error
}

// OutboxRepository feeds the event publisher worker.
type OutboxRepository interface {
	GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
}
