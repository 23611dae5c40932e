package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
)

func (r *outboxRepository) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, payload, status, error_message, created_at, processed_at, updated_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	var events []*model.OutboxEvent
	err := r.db.SelectContext(ctx, &events, query, model.OutboxStatusPending, limit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	query := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, processed_at = $3, updated_at = $4
		WHERE id = $5
	`
	var processedAt *time.Time
	if status == model.OutboxStatusProcessed {
		now := time.Now()
		processedAt = &now
	}
	if _, err := r.db.ExecContext(ctx, query, status, errMsg, processedAt, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update outbox event status: %w", err)
	}
	return nil
}
