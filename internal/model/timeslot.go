package model

import (
	"time"

	"github.com/google/uuid"
)

type OriginType string

const (
	// OriginManual marks slots entered directly by staff. They are
	// considered committed on entry and confirm never toggles their
	// availability.
	OriginManual OriginType = "MANUAL"
	// OriginForm marks slots created by a web booking form.
	OriginForm OriginType = "FORM"
)

// Timeslot is a (doctor, instant) booking unit holding at most one
// active appointment. StartAt is stored as a UTC instant; wall-time
// conversion happens at the API boundary.
type Timeslot struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	DoctorID    uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	StartAt     time.Time  `db:"start_at" json:"start_at"`
	IsAvailable bool       `db:"is_available" json:"is_available"`
	OriginType  OriginType `db:"origin_type" json:"origin_type"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
