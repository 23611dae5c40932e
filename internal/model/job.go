package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobKindFeedback JobKind = "FEEDBACK"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusClaimed   JobStatus = "CLAIMED"
	JobStatusCancelled JobStatus = "CANCELLED"
	JobStatusExecuted  JobStatus = "EXECUTED"
	JobStatusFailed    JobStatus = "FAILED"
)

// DeferredJob is a durable callback scheduled for a future instant.
// At most one live (PENDING) job exists per appointment; scheduling a
// new one requires cancelling the old one first.
type DeferredJob struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	AppointmentID uuid.UUID       `db:"appointment_id" json:"appointment_id"`
	Kind          JobKind         `db:"kind" json:"kind"`
	RunAt         time.Time       `db:"run_at" json:"run_at"`
	Payload       json.RawMessage `db:"payload" json:"payload"`
	Status        JobStatus       `db:"status" json:"status"`
	LastError     *string         `db:"last_error" json:"last_error,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
