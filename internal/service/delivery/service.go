// Package delivery processes provider delivery receipts. The first
// receipt that moves a message to delivered triggers exactly one
// acknowledgment to the doctor; repeats are absorbed by the store's
// update-if-changed semantics.
package delivery

import (
	"context"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/notification"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/logger"
)

type Service struct {
	messages repository.MessageRepository
	notifier notification.Service
	logger   *logger.Logger
}

func NewService(messages repository.MessageRepository, notifier notification.Service, log *logger.Logger) *Service {
	return &Service{
		messages: messages,
		notifier: notifier,
		logger:   log,
	}
}

// Record processes one delivery-status callback. Unknown message ids
// and repeat callbacks are no-ops.
func (s *Service) Record(ctx context.Context, providerSID, status string) error {
	if providerSID == "" {
		return errors.Validation("message sid is required", nil)
	}

	if status != string(model.MessageStatusDelivered) {
		return s.messages.UpdateStatus(ctx, providerSID, model.MessageStatus(status))
	}

	transitioned, err := s.messages.MarkDelivered(ctx, providerSID)
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	msg, err := s.messages.GetByProviderSID(ctx, providerSID)
	if err != nil {
		return err
	}
	if msg.DoctorID == nil || msg.AppointmentID == nil {
		return nil
	}

	// Delivery acknowledgments about the acknowledgment itself would
	// loop forever.
	if msg.Kind == model.KindDeliveryAck {
		return nil
	}

	if err := s.notifier.NotifyDoctor(ctx, *msg.DoctorID, model.KindDeliveryAck,
		notification.TemplateData{PatientName: msg.Recipient}, *msg.AppointmentID); err != nil {
		s.logger.Error(err, "delivery acknowledgment failed", "provider_sid", providerSID)
		return err
	}
	return nil
}
