package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed   AppointmentStatus = "CONFIRMED"
	AppointmentStatusCancelled   AppointmentStatus = "CANCELLED"
	AppointmentStatusRescheduled AppointmentStatus = "RESCHEDULED"
)

// Appointment references exactly one timeslot at a time. Rescheduling
// rebinds TimeslotID and Date on the same row, it never duplicates.
// Rows are never hard-deleted.
type Appointment struct {
	ID         uuid.UUID         `db:"id" json:"id"`
	DoctorID   uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID  uuid.UUID         `db:"patient_id" json:"patient_id"`
	ServiceID  *uuid.UUID        `db:"service_id" json:"service_id,omitempty"`
	TimeslotID uuid.UUID         `db:"timeslot_id" json:"timeslot_id"`
	Date       string            `db:"date" json:"date"`
	Status     AppointmentStatus `db:"status" json:"status"`
	Location   *string           `db:"location" json:"location,omitempty"`
	Reason     *string           `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// BookingRequest is the inbound payload for creating an appointment.
type BookingRequest struct {
	DoctorID  string         `json:"doctor_id" validate:"required,uuid"`
	ServiceID string         `json:"service_id" validate:"omitempty,uuid"`
	Date      string         `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string         `json:"time" validate:"required,datetime=15:04"`
	Origin    OriginType     `json:"origin" validate:"required,oneof=MANUAL FORM"`
	Location  string         `json:"location"`
	Reason    string         `json:"reason"`
	Patient   PatientDetails `json:"patient" validate:"required"`
}

// PatientDetails carries the patient fields submitted with a booking.
type PatientDetails struct {
	Name  string `json:"name" validate:"required"`
	Age   int    `json:"age" validate:"omitempty,gte=0,lte=130"`
	Phone string `json:"phone" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Sex   string `json:"sex" validate:"omitempty,oneof=male female other"`
}

// RescheduleRequest moves an existing appointment to a new wall time.
type RescheduleRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required,datetime=15:04"`
}

// AppointmentFilters narrows appointment listings.
type AppointmentFilters struct {
	DoctorID uuid.UUID
	Status   AppointmentStatus
}
