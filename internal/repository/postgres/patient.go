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

func (r *patientRepository) UpsertByPhone(ctx context.Context, details *model.PatientDetails) (*model.Patient, error) {
	// Phone is the natural dedupe key. On a repeat booking the mutable
	// fields are refreshed in place; phone itself never changes.
	query := `
		INSERT INTO patients (id, name, age, phone, email, sex, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $7)
		ON CONFLICT (phone) DO UPDATE
		SET name = EXCLUDED.name,
		    age = EXCLUDED.age,
		    email = COALESCE(EXCLUDED.email, patients.email),
		    sex = COALESCE(EXCLUDED.sex, patients.sex),
		    updated_at = EXCLUDED.updated_at
		RETURNING id, name, age, phone, email, sex, created_at, updated_at
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query,
		uuid.New(), details.Name, details.Age, details.Phone, details.Email, details.Sex, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `
		SELECT id, name, age, phone, email, sex, created_at, updated_at
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}
