package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/medbook/booking-api/internal/gateway"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/logger"
	"github.com/medbook/booking-api/pkg/metrics"
)

const (
	doctorCacheTTL     = 5 * time.Minute
	doctorCacheCleanup = 10 * time.Minute
)

// Service assembles template variables per the doctor's notification
// profile and delivers through the configured gateways. Sends are
// best-effort: the caller decides what a failure means.
type Service interface {
	NotifyPatient(ctx context.Context, doctorID uuid.UUID, patient *model.Patient, kind model.NotificationKind, data TemplateData, appointmentID uuid.UUID) error
	NotifyDoctor(ctx context.Context, doctorID uuid.UUID, kind model.NotificationKind, data TemplateData, appointmentID uuid.UUID) error
	Doctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
}

type service struct {
	doctors  repository.DoctorRepository
	messages repository.MessageRepository
	whatsapp gateway.Gateway
	email    gateway.Gateway
	cache    *cache.Cache
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	doctors repository.DoctorRepository,
	messages repository.MessageRepository,
	whatsapp gateway.Gateway,
	email gateway.Gateway,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	return &service{
		doctors:  doctors,
		messages: messages,
		whatsapp: whatsapp,
		email:    email,
		cache:    cache.New(doctorCacheTTL, doctorCacheCleanup),
		logger:   log,
		metrics:  m,
	}
}

// Doctor loads a doctor through a short-lived cache; notification
// bursts around a single booking hit the same row several times.
func (s *service) Doctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		return cached.(*model.Doctor), nil
	}
	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id.String(), doctor, cache.DefaultExpiration)
	return doctor, nil
}

func (s *service) NotifyPatient(ctx context.Context, doctorID uuid.UUID, patient *model.Patient, kind model.NotificationKind, data TemplateData, appointmentID uuid.UUID) error {
	doctor, err := s.Doctor(ctx, doctorID)
	if err != nil {
		return err
	}
	fill(&data, doctor, patient)

	if err := s.deliver(ctx, s.whatsapp, doctor, patient.Phone, kind, data, appointmentID); err != nil {
		return err
	}

	// Patients with an email on file get a copy there too, best-effort.
	if patient.Email != nil && *patient.Email != "" && s.email != nil {
		if err := s.deliver(ctx, s.email, doctor, *patient.Email, kind, data, appointmentID); err != nil {
			s.logger.Error(err, "email copy failed", "appointment_id", appointmentID.String())
		}
	}
	return nil
}

func (s *service) NotifyDoctor(ctx context.Context, doctorID uuid.UUID, kind model.NotificationKind, data TemplateData, appointmentID uuid.UUID) error {
	doctor, err := s.Doctor(ctx, doctorID)
	if err != nil {
		return err
	}
	fill(&data, doctor, nil)

	return s.deliver(ctx, s.whatsapp, doctor, doctor.WhatsApp, kind, data, appointmentID)
}

func (s *service) deliver(ctx context.Context, gw gateway.Gateway, doctor *model.Doctor, recipient string, kind model.NotificationKind, data TemplateData, appointmentID uuid.UUID) error {
	templateID, ok := doctor.Templates[kind]
	if !ok || templateID == "" {
		return errors.Validation(fmt.Sprintf("doctor has no %s template configured", kind), nil)
	}

	vars := ProfileFor(doctor).BuildVars(kind, data)

	res, err := gw.Send(ctx, recipient, templateID, vars)
	if err != nil {
		s.metrics.NotificationsFailed.WithLabelValues(string(kind), gw.Channel()).Inc()
		return errors.Transient("notification send failed", err)
	}
	s.metrics.NotificationsSent.WithLabelValues(string(kind), gw.Channel()).Inc()

	if res.MessageID == "" {
		return nil
	}

	msg := &model.Message{
		ProviderSID:   res.MessageID,
		AppointmentID: &appointmentID,
		DoctorID:      &doctor.ID,
		Kind:          kind,
		Channel:       gw.Channel(),
		Recipient:     recipient,
		Status:        model.MessageStatusSent,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		// The notification went out; losing the delivery record only
		// costs us the receipt correlation.
		s.logger.Error(err, "failed to record message", "provider_sid", res.MessageID)
	}
	return nil
}

func fill(data *TemplateData, doctor *model.Doctor, patient *model.Patient) {
	if data.DoctorName == "" {
		data.DoctorName = doctor.Name
	}
	if data.Website == "" {
		data.Website = doctor.Website
	}
	if patient != nil && data.PatientName == "" {
		data.PatientName = patient.Name
	}
}
