package model

import (
	"time"

	"github.com/google/uuid"
)

// Patient is deduplicated by phone number. Phone is immutable once
// assigned; the other fields are refreshed in place on repeat bookings.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Age       int       `db:"age" json:"age"`
	Phone     string    `db:"phone" json:"phone"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Sex       *string   `db:"sex" json:"sex,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
