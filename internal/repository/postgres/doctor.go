package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/pkg/errors"
)

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, name, whatsapp, email, website, profile, templates, timings, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("doctor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	query := `
		SELECT id, doctor_id, name
		FROM services
		WHERE id = $1
	`
	var svc model.Service
	err := r.db.GetContext(ctx, &svc, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("service", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &svc, nil
}
