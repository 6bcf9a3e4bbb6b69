package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/inboxkeep/mailclerk/internal/models"
)

type activityRepository struct {
	db *sqlx.DB
}

func newActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) SaveEvent(ctx context.Context, event *models.ActivityEvent) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO activity_events (id, email_hash, kind, detail, created_at)
		VALUES (:id, :email_hash, :kind, :detail, :created_at)`,
		event,
	)
	if err != nil {
		return fmt.Errorf("saving activity event: %w", err)
	}
	return nil
}

func (r *activityRepository) RecentEvents(ctx context.Context, limit int) ([]*models.ActivityEvent, error) {
	var events []*models.ActivityEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, email_hash, kind, detail, created_at
		FROM activity_events
		ORDER BY created_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing activity events: %w", err)
	}
	return events, nil
}
