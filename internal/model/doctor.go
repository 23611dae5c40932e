package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationKind selects which message template a notification uses.
type NotificationKind string

const (
	KindDoctorNotify   NotificationKind = "doctor_notify"
	KindPatientAck     NotificationKind = "patient_ack"
	KindPatientConfirm NotificationKind = "patient_confirm"
	KindPatientCancel  NotificationKind = "patient_cancel"
	KindReminder       NotificationKind = "reminder"
	KindFeedback       NotificationKind = "feedback"
	KindReschedule     NotificationKind = "reschedule"
	KindDeliveryAck    NotificationKind = "delivery_ack"
)

// TemplateSet maps notification kinds to externally registered template
// ids. Stored as JSONB.
type TemplateSet map[NotificationKind]string

func (t TemplateSet) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *TemplateSet) Scan(src interface{}) error {
	return scanJSON(src, t)
}

// NoLocation is the sentinel timings key for doctors without a named
// practice location.
const NoLocation = "no_location"

// Timings maps a location label to the ordered consulting times offered
// there. Stored as JSONB.
type Timings map[string][]string

func (t Timings) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *Timings) Scan(src interface{}) error {
	return scanJSON(src, t)
}

// Doctor carries per-tenant notification configuration. Profile names a
// notification profile class; all behavioural branching keys off it,
// never off the doctor id.
type Doctor struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	WhatsApp  string      `db:"whatsapp" json:"whatsapp"`
	Email     *string     `db:"email" json:"email,omitempty"`
	Website   string      `db:"website" json:"website"`
	Profile   string      `db:"profile" json:"profile"`
	Templates TemplateSet `db:"templates" json:"templates"`
	Timings   Timings     `db:"timings" json:"timings"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// Service is a bookable consultation type owned by a doctor.
type Service struct {
	ID       uuid.UUID `db:"id" json:"id"`
	DoctorID uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Name     string    `db:"name" json:"name"`
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
