// Package booking drives the appointment lifecycle: create, confirm,
// cancel, reschedule. It is the only component that mutates appointment
// status or timeslot availability; the transitions themselves execute
// atomically in the store, and notifications and feedback-job
// scheduling happen only after state is durably committed.
package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/scheduler"
	"github.com/medbook/booking-api/internal/service/notification"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/logger"
	"github.com/medbook/booking-api/pkg/metrics"
	"github.com/medbook/booking-api/pkg/timeutil"
)

// Config carries lifecycle tuning.
type Config struct {
	// FeedbackOffset is how long after the confirmed start time the
	// feedback message goes out.
	FeedbackOffset time.Duration
	// StoreTimeout bounds every store call so no operation hangs.
	StoreTimeout time.Duration
}

type Service struct {
	timeslots    repository.TimeslotRepository
	appointments repository.AppointmentRepository
	patients     repository.PatientRepository
	doctors      repository.DoctorRepository
	notifier     notification.Service
	scheduler    scheduler.Scheduler
	clock        *timeutil.Clock
	config       Config
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(
	timeslots repository.TimeslotRepository,
	appointments repository.AppointmentRepository,
	patients repository.PatientRepository,
	doctors repository.DoctorRepository,
	notifier notification.Service,
	sched scheduler.Scheduler,
	clock *timeutil.Clock,
	config Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if config.FeedbackOffset <= 0 {
		config.FeedbackOffset = 60 * time.Minute
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = 5 * time.Second
	}
	return &Service{
		timeslots:    timeslots,
		appointments: appointments,
		patients:     patients,
		doctors:      doctors,
		notifier:     notifier,
		scheduler:    sched,
		clock:        clock,
		config:       config,
		logger:       log,
		metrics:      m,
	}
}

// Create books an appointment: upserts the patient by phone, reuses or
// creates the timeslot at (doctor, instant) and writes a PENDING
// appointment. FORM bookings trigger acknowledgment notifications;
// MANUAL entries go straight through the confirm flow.
func (s *Service) Create(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error) {
	if req.Date == "" || req.Time == "" || req.Patient.Phone == "" {
		return nil, errors.Validation("date, time and patient phone are required", nil)
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, errors.Validation("invalid doctor id", err)
	}

	startAt, err := s.clock.ParseLocal(req.Date, req.Time)
	if err != nil {
		return nil, errors.Validation("invalid date or time", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return nil, err
	}

	var serviceID *uuid.UUID
	if req.ServiceID != "" {
		sid, err := uuid.Parse(req.ServiceID)
		if err != nil {
			return nil, errors.Validation("invalid service id", err)
		}
		svc, err := s.doctors.GetService(ctx, sid)
		if err != nil {
			return nil, err
		}
		if svc.DoctorID != doctorID {
			return nil, errors.Validation("service does not belong to this doctor", nil)
		}
		serviceID = &sid
	}

	patient, err := s.patients.UpsertByPhone(ctx, &req.Patient)
	if err != nil {
		return nil, errors.Internal(err)
	}

	slot, err := s.timeslots.GetOrCreate(ctx, doctorID, startAt, req.Origin)
	if err != nil {
		return nil, errors.Internal(err)
	}

	appt := &model.Appointment{
		DoctorID:   doctorID,
		PatientID:  patient.ID,
		ServiceID:  serviceID,
		TimeslotID: slot.ID,
		Date:       req.Date,
	}
	if req.Location != "" {
		appt.Location = &req.Location
	}
	if req.Reason != "" {
		appt.Reason = &req.Reason
	}

	appt.ID = uuid.New()
	event := s.event(model.EventAppointmentCreated, appt.ID, map[string]string{
		"doctor_id":  doctorID.String(),
		"patient_id": patient.ID.String(),
	})
	if err := s.appointments.Create(ctx, appt, event); err != nil {
		return nil, errors.Internal(err)
	}

	s.metrics.BookingsCreated.Inc()

	if req.Origin == model.OriginManual {
		// Staff entries are pre-vetted; run the confirm flow now.
		if _, err := s.Confirm(ctx, appt.ID); err != nil {
			s.logger.Error(err, "manual booking auto-confirm failed", "appointment_id", appt.ID.String())
		}
		return s.appointments.Get(ctx, appt.ID)
	}

	s.sendAck(ctx, appt, patient, req)
	return appt, nil
}

// Confirm transitions an appointment to CONFIRMED. Idempotent: a
// repeat call on a confirmed appointment succeeds without re-sending
// the notification or scheduling a second feedback job. Returns false
// when the local state committed but the outbound notification failed,
// or when a concurrent transition made the confirm impossible. A slot
// already held by a different appointment is a conflict error and the
// appointment stays in its current status.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if appt.Status == model.AppointmentStatusConfirmed {
		return true, nil
	}

	slot, err := s.timeslots.Get(ctx, appt.TimeslotID)
	if err != nil {
		return false, err
	}

	// MANUAL slots are committed on entry and never toggled.
	toggleSlot := slot.OriginType == model.OriginForm

	applied, err := s.appointments.Confirm(ctx, id, toggleSlot,
		s.event(model.EventAppointmentConfirmed, id, nil),
		model.AppointmentStatusPending, model.AppointmentStatusRescheduled,
	)
	if errors.IsConflict(err) {
		// Another appointment took the slot first.
		return false, err
	}
	if err != nil {
		return false, errors.Internal(err)
	}
	if !applied {
		// Lost a race. A concurrent confirm already did the work and
		// its side effects; a concurrent cancel means this confirm
		// must not proceed. Either way the slot is untouched by us.
		current, err := s.appointments.Get(ctx, id)
		if err != nil {
			return false, err
		}
		return current.Status == model.AppointmentStatusConfirmed, nil
	}

	s.metrics.StatusTransitions.WithLabelValues(string(model.AppointmentStatusConfirmed)).Inc()

	// State is durably committed from here; the remaining side effects
	// never roll it back.
	ok := true
	// A confirm after a reschedule supersedes the job the reschedule
	// scheduled; only one live job per appointment.
	if _, err := s.scheduler.CancelAllForAppointment(ctx, id); err != nil {
		s.logger.Error(err, "failed to cancel superseded feedback jobs", "appointment_id", id.String())
		ok = false
	}
	if err := s.scheduleFeedback(ctx, appt, slot.StartAt); err != nil {
		s.logger.Error(err, "failed to schedule feedback job", "appointment_id", id.String())
		ok = false
	}

	patient, err := s.patients.Get(ctx, appt.PatientID)
	if err != nil {
		return false, err
	}
	if err := s.notifier.NotifyPatient(ctx, appt.DoctorID, patient, model.KindPatientConfirm, s.templateData(ctx, appt), id); err != nil {
		s.logger.Error(err, "confirmation notification failed", "appointment_id", id.String())
		ok = false
	}
	return ok, nil
}

// Cancel frees the timeslot, marks the appointment CANCELLED and
// cancels any live feedback job. Cancelling an already-cancelled
// appointment is a no-op success.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if appt.Status == model.AppointmentStatusCancelled {
		return true, nil
	}

	applied, err := s.appointments.Cancel(ctx, id, s.event(model.EventAppointmentCancelled, id, nil))
	if err != nil {
		return false, errors.Internal(err)
	}
	if applied {
		s.metrics.StatusTransitions.WithLabelValues(string(model.AppointmentStatusCancelled)).Inc()
	}

	// Synchronous with the transition: no stale feedback message may
	// fire for a cancelled appointment.
	if _, err := s.scheduler.CancelAllForAppointment(ctx, id); err != nil {
		s.logger.Error(err, "failed to cancel feedback jobs", "appointment_id", id.String())
		return false, nil
	}

	patient, err := s.patients.Get(ctx, appt.PatientID)
	if err != nil {
		return false, err
	}
	if err := s.notifier.NotifyPatient(ctx, appt.DoctorID, patient, model.KindPatientCancel, s.templateData(ctx, appt), id); err != nil {
		s.logger.Error(err, "cancellation notification failed", "appointment_id", id.String())
		return false, nil
	}
	return true, nil
}

// Reschedule moves the appointment to a new timeslot. Unlike Confirm
// and Cancel it reports failures as errors whose messages are shown to
// the caller; handlers render them as a message string.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleRequest) (*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID == uuid.Nil {
		return nil, errors.Validation("appointment has no doctor", nil)
	}
	if appt.Status == model.AppointmentStatusCancelled {
		return nil, errors.Conflict("appointment is cancelled and cannot be rescheduled", nil)
	}

	startAt, err := s.clock.ParseLocal(req.Date, req.Time)
	if err != nil {
		return nil, errors.Validation("invalid date or time", err)
	}

	doctor, err := s.notifier.Doctor(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}
	blockNewSlot := notification.ProfileFor(doctor).BlockOnReschedule

	newSlot, err := s.timeslots.GetOrCreate(ctx, appt.DoctorID, startAt, model.OriginForm)
	if err != nil {
		return nil, errors.Internal(err)
	}

	// Cancel the superseded job before the rebind completes so the old
	// feedback message cannot fire against the new schedule.
	if _, err := s.scheduler.CancelAllForAppointment(ctx, id); err != nil {
		return nil, errors.Transient("could not cancel pending feedback job", err)
	}

	if err := s.appointments.Rebind(ctx, id, newSlot.ID, req.Date, blockNewSlot,
		s.event(model.EventAppointmentRescheduled, id, map[string]string{"new_timeslot_id": newSlot.ID.String()}),
	); err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.Internal(err)
	}

	s.metrics.StatusTransitions.WithLabelValues(string(model.AppointmentStatusRescheduled)).Inc()

	updated, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.scheduleFeedback(ctx, updated, startAt); err != nil {
		return nil, errors.Transient("appointment moved but feedback scheduling failed", err)
	}

	patient, err := s.patients.Get(ctx, updated.PatientID)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.NotifyPatient(ctx, updated.DoctorID, patient, model.KindReschedule, s.templateData(ctx, updated), id); err != nil {
		return nil, errors.Transient("appointment moved but notification failed", err)
	}

	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	return s.appointments.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	return s.appointments.List(ctx, filters)
}

// SendFeedback is the deferred-job callback: it delivers the
// post-visit feedback message for a confirmed appointment.
func (s *Service) SendFeedback(ctx context.Context, job *model.DeferredJob) error {
	appt, err := s.appointments.Get(ctx, job.AppointmentID)
	if err != nil {
		return err
	}
	if appt.Status != model.AppointmentStatusConfirmed {
		// Cancelled or moved since scheduling; nothing to send.
		return nil
	}
	patient, err := s.patients.Get(ctx, appt.PatientID)
	if err != nil {
		return err
	}
	return s.notifier.NotifyPatient(ctx, appt.DoctorID, patient, model.KindFeedback, s.templateData(ctx, appt), appt.ID)
}

func (s *Service) scheduleFeedback(ctx context.Context, appt *model.Appointment, startAt time.Time) error {
	payload, _ := json.Marshal(map[string]string{"appointment_id": appt.ID.String()})
	_, err := s.scheduler.Schedule(ctx, appt.ID, startAt.Add(s.config.FeedbackOffset), payload)
	return err
}

func (s *Service) sendAck(ctx context.Context, appt *model.Appointment, patient *model.Patient, req *model.BookingRequest) {
	data := s.templateData(ctx, appt)
	data.PatientName = patient.Name
	data.Reason = req.Reason

	if err := s.notifier.NotifyPatient(ctx, appt.DoctorID, patient, model.KindPatientAck, data, appt.ID); err != nil {
		s.logger.Error(err, "patient acknowledgment failed", "appointment_id", appt.ID.String())
	}
	if err := s.notifier.NotifyDoctor(ctx, appt.DoctorID, model.KindDoctorNotify, data, appt.ID); err != nil {
		s.logger.Error(err, "doctor notification failed", "appointment_id", appt.ID.String())
	}
}

func (s *Service) templateData(ctx context.Context, appt *model.Appointment) notification.TemplateData {
	data := notification.TemplateData{Date: appt.Date}
	if slot, err := s.timeslots.Get(ctx, appt.TimeslotID); err == nil {
		_, data.Time = s.clock.FormatLocal(slot.StartAt)
	} else {
		s.logger.Warn("could not resolve timeslot for message variables", "appointment_id", appt.ID.String())
	}
	if appt.Location != nil {
		data.Location = *appt.Location
	}
	if appt.Reason != nil {
		data.Reason = *appt.Reason
	}
	return data
}

func (s *Service) event(eventType string, appointmentID uuid.UUID, extra map[string]string) *model.OutboxEvent {
	body := map[string]string{"appointment_id": appointmentID.String()}
	for k, v := range extra {
		body[k] = v
	}
	payload, _ := json.Marshal(body)
	return &model.OutboxEvent{EventType: eventType, Payload: payload}
}
