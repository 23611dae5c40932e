package delivery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/service/notification"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/logger"
)

type fakeMessageRepo struct {
	messages map[string]*model.Message
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	r.messages[msg.ProviderSID] = msg
	return nil
}

func (r *fakeMessageRepo) GetByProviderSID(ctx context.Context, sid string) (*model.Message, error) {
	msg, ok := r.messages[sid]
	if !ok {
		return nil, errors.NotFound("message not found", nil)
	}
	return msg, nil
}

func (r *fakeMessageRepo) MarkDelivered(ctx context.Context, sid string) (bool, error) {
	msg, ok := r.messages[sid]
	if !ok || msg.Status == model.MessageStatusDelivered {
		return false, nil
	}
	msg.Status = model.MessageStatusDelivered
	return true, nil
}

func (r *fakeMessageRepo) UpdateStatus(ctx context.Context, sid string, status model.MessageStatus) error {
	// Delivered is terminal, matching the store's monotonic rule.
	if msg, ok := r.messages[sid]; ok && msg.Status != model.MessageStatusDelivered {
		msg.Status = status
	}
	return nil
}

type ackRecorder struct {
	acks []model.NotificationKind
}

func (a *ackRecorder) NotifyPatient(ctx context.Context, doctorID uuid.UUID, patient *model.Patient, kind model.NotificationKind, data notification.TemplateData, appointmentID uuid.UUID) error {
	return nil
}

func (a *ackRecorder) NotifyDoctor(ctx context.Context, doctorID uuid.UUID, kind model.NotificationKind, data notification.TemplateData, appointmentID uuid.UUID) error {
	a.acks = append(a.acks, kind)
	return nil
}

func (a *ackRecorder) Doctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return &model.Doctor{ID: id}, nil
}

func seedMessage(repo *fakeMessageRepo, kind model.NotificationKind) *model.Message {
	doctorID := uuid.New()
	apptID := uuid.New()
	msg := &model.Message{
		ProviderSID:   "SM" + uuid.NewString(),
		AppointmentID: &apptID,
		DoctorID:      &doctorID,
		Kind:          kind,
		Channel:       "whatsapp",
		Recipient:     "+919900000001",
		Status:        model.MessageStatusSent,
	}
	repo.messages[msg.ProviderSID] = msg
	return msg
}

func TestRecordDeliveredOnce(t *testing.T) {
	repo := &fakeMessageRepo{messages: map[string]*model.Message{}}
	acks := &ackRecorder{}
	svc := NewService(repo, acks, logger.NewLogger(nil))

	msg := seedMessage(repo, model.KindPatientConfirm)

	require.NoError(t, svc.Record(context.Background(), msg.ProviderSID, "delivered"))
	require.Len(t, acks.acks, 1)
	assert.Equal(t, model.KindDeliveryAck, acks.acks[0])

	// The duplicate receipt changes nothing.
	require.NoError(t, svc.Record(context.Background(), msg.ProviderSID, "delivered"))
	assert.Len(t, acks.acks, 1, "duplicate receipt must not re-ack")
}

func TestRecordNonDeliveredStatus(t *testing.T) {
	repo := &fakeMessageRepo{messages: map[string]*model.Message{}}
	acks := &ackRecorder{}
	svc := NewService(repo, acks, logger.NewLogger(nil))

	msg := seedMessage(repo, model.KindPatientConfirm)

	require.NoError(t, svc.Record(context.Background(), msg.ProviderSID, "failed"))
	assert.Equal(t, model.MessageStatus("failed"), repo.messages[msg.ProviderSID].Status)
	assert.Empty(t, acks.acks, "only delivered triggers the acknowledgment")
}

func TestRecordOutOfOrderReceipts(t *testing.T) {
	repo := &fakeMessageRepo{messages: map[string]*model.Message{}}
	acks := &ackRecorder{}
	svc := NewService(repo, acks, logger.NewLogger(nil))

	msg := seedMessage(repo, model.KindPatientConfirm)

	// Provider callbacks arrive out of order: a stale "sent" lands
	// after "delivered". It must not reopen the delivered state, or
	// the next duplicate would re-trigger the acknowledgment.
	require.NoError(t, svc.Record(context.Background(), msg.ProviderSID, "delivered"))
	require.NoError(t, svc.Record(context.Background(), msg.ProviderSID, "sent"))
	require.NoError(t, svc.Record(context.Background(), msg.ProviderSID, "delivered"))

	assert.Equal(t, model.MessageStatusDelivered, repo.messages[msg.ProviderSID].Status)
	assert.Len(t, acks.acks, 1, "exactly one acknowledgment across the whole sequence")
}

func TestRecordDeliveryAckDoesNotLoop(t *testing.T) {
	repo := &fakeMessageRepo{messages: map[string]*model.Message{}}
	acks := &ackRecorder{}
	svc := NewService(repo, acks, logger.NewLogger(nil))

	msg := seedMessage(repo, model.KindDeliveryAck)

	require.NoError(t, svc.Record(context.Background(), msg.ProviderSID, "delivered"))
	assert.Empty(t, acks.acks, "an ack about the ack would loop forever")
}

func TestRecordValidation(t *testing.T) {
	repo := &fakeMessageRepo{messages: map[string]*model.Message{}}
	svc := NewService(repo, &ackRecorder{}, logger.NewLogger(nil))

	err := svc.Record(context.Background(), "", "delivered")
	assert.True(t, errors.IsValidation(err))
}

func TestRecordUnknownSID(t *testing.T) {
	repo := &fakeMessageRepo{messages: map[string]*model.Message{}}
	acks := &ackRecorder{}
	svc := NewService(repo, acks, logger.NewLogger(nil))

	// Unknown sid: MarkDelivered reports no transition, nothing else
	// happens.
	require.NoError(t, svc.Record(context.Background(), "SM-unknown", "delivered"))
	assert.Empty(t, acks.acks)
}
