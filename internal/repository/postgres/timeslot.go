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

func (r *timeslotRepository) GetOrCreate(ctx context.Context, doctorID uuid.UUID, startAt time.Time, origin model.OriginType) (*model.Timeslot, error) {
	// ON CONFLICT DO NOTHING keeps concurrent identical requests on one
	// row; an existing slot is returned untouched, including its
	// current availability.
	insert := `
		INSERT INTO timeslots (id, doctor_id, start_at, is_available, origin_type, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $5, $5)
		ON CONFLICT (doctor_id, start_at) DO NOTHING
	`
	now := time.Now()
	if _, err := r.db.ExecContext(ctx, insert, uuid.New(), doctorID, startAt.UTC(), origin, now); err != nil {
		return nil, fmt.Errorf("failed to create timeslot: %w", err)
	}

	query := `
		SELECT id, doctor_id, start_at, is_available, origin_type, created_at, updated_at
		FROM timeslots
		WHERE doctor_id = $1 AND start_at = $2
	`
	var slot model.Timeslot
	if err := r.db.GetContext(ctx, &slot, query, doctorID, startAt.UTC()); err != nil {
		return nil, fmt.Errorf("failed to fetch timeslot: %w", err)
	}
	return &slot, nil
}

func (r *timeslotRepository) Get(ctx context.Context, id uuid.UUID) (*model.Timeslot, error) {
	query := `
		SELECT id, doctor_id, start_at, is_available, origin_type, created_at, updated_at
		FROM timeslots
		WHERE id = $1
	`
	var slot model.Timeslot
	err := r.db.GetContext(ctx, &slot, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("timeslot", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timeslot: %w", err)
	}
	return &slot, nil
}
