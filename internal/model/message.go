package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageStatus string

const (
	MessageStatusQueued    MessageStatus = "queued"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
)

// Message records one outbound notification, keyed by the provider's
// opaque message id so delivery receipts can be correlated back.
type Message struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	ProviderSID   string           `db:"provider_sid" json:"provider_sid"`
	AppointmentID *uuid.UUID       `db:"appointment_id" json:"appointment_id,omitempty"`
	DoctorID      *uuid.UUID       `db:"doctor_id" json:"doctor_id,omitempty"`
	Kind          NotificationKind `db:"kind" json:"kind"`
	Channel       string           `db:"channel" json:"channel"`
	Recipient     string           `db:"recipient" json:"recipient"`
	Status        MessageStatus    `db:"status" json:"status"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}
