package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/pkg/errors"
)

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (id, provider_sid, appointment_id, doctor_id, kind, channel, recipient, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (provider_sid) DO NOTHING
	`
	msg.ID = uuid.New()
	if msg.Status == "" {
		msg.Status = model.MessageStatusSent
	}
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = msg.CreatedAt

	if _, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.ProviderSID,
		msg.AppointmentID,
		msg.DoctorID,
		msg.Kind,
		msg.Channel,
		msg.Recipient,
		msg.Status,
		msg.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create message record: %w", err)
	}
	return nil
}

func (r *messageRepository) GetByProviderSID(ctx context.Context, sid string) (*model.Message, error) {
	query := `
		SELECT id, provider_sid, appointment_id, doctor_id, kind, channel, recipient, status, created_at, updated_at
		FROM messages
		WHERE provider_sid = $1
	`
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, query, sid)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("message", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

// MarkDelivered is update-if-changed: only the first receipt for a
// message performs the transition, so repeat provider callbacks never
// re-trigger downstream notifications.
func (r *messageRepository) MarkDelivered(ctx context.Context, sid string) (bool, error) {
	query := `
		UPDATE messages
		SET status = $1, updated_at = $2
		WHERE provider_sid = $3 AND status <> $1
	`
	res, err := r.db.ExecContext(ctx, query, model.MessageStatusDelivered, time.Now(), sid)
	if err != nil {
		return false, fmt.Errorf("failed to mark message delivered: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// UpdateStatus records an intermediate provider status. Delivered is
// terminal: a late or out-of-order receipt never moves a delivered
// message back, which keeps MarkDelivered's first-transition guard
// meaningful across duplicate callbacks.
func (r *messageRepository) UpdateStatus(ctx context.Context, sid string, status model.MessageStatus) error {
	query := `
		UPDATE messages
		SET status = $1, updated_at = $2
		WHERE provider_sid = $3 AND status <> $4
	`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now(), sid, model.MessageStatusDelivered); err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	return nil
}
