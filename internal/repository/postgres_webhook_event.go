package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/pkg/logger"
)

// WebhookEventRepository is the audit log of webhook deliveries.
type WebhookEventRepository interface {
	Record(ctx context.Context, ev *models.WebhookEvent) error
}

type postgresWebhookEventRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresWebhookEventRepository returns the Postgres-backed WebhookEventRepository.
func NewPostgresWebhookEventRepository(db *sqlx.DB, log *logger.Logger) WebhookEventRepository {
	return &postgresWebhookEventRepo{db: db, log: log}
}

func (r *postgresWebhookEventRepo) Record(ctx context.Context, ev *models.WebhookEvent) error {
	ev.ID = uuid.NewString()
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO webhook_events (id, provider, external_id, event_type, outcome, error_message, received_at)
        VALUES (:id, :provider, :external_id, :event_type, :outcome, :error_message, :received_at)`

	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		return wrap("record webhook event", err)
	}
	return nil
}
