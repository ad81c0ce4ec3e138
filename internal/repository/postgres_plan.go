package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/pkg/logger"
)

// PlanRepository reads and seeds subscription plans.
type PlanRepository interface {
	ListActive(ctx context.Context) ([]models.SubscriptionPlan, error)
	// UpsertByName inserts the plan or overwrites the one with the same name.
	UpsertByName(ctx context.Context, plan *models.SubscriptionPlan) error
}

type postgresPlanRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresPlanRepository returns the Postgres-backed PlanRepository.
func NewPostgresPlanRepository(db *sqlx.DB, log *logger.Logger) PlanRepository {
	return &postgresPlanRepo{db: db, log: log}
}

func (r *postgresPlanRepo) ListActive(ctx context.Context) ([]models.SubscriptionPlan, error) {
	plans := []models.SubscriptionPlan{}
	query := `
        SELECT id, name, description, price, currency, features, is_active, created_at, updated_at
        FROM subscription_plans
        WHERE is_active
        ORDER BY price ASC, name ASC`

	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		err = wrap("list plans", err)
		r.log.Errorw("Failed to list plans", "error", err)
		return nil, err
	}
	return plans, nil
}

func (r *postgresPlanRepo) UpsertByName(ctx context.Context, plan *models.SubscriptionPlan) error {
	now := time.Now().UTC()
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	plan.CreatedAt = now
	plan.UpdatedAt = now

	query := `
        INSERT INTO subscription_plans (id, name, description, price, currency, features, is_active, created_at, updated_at)
        VALUES (:id, :name, :description, :price, :currency, :features, :is_active, :created_at, :updated_at)
        ON CONFLICT (name) DO UPDATE SET
            description = EXCLUDED.description,
            price = EXCLUDED.price,
            currency = EXCLUDED.currency,
            features = EXCLUDED.features,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		err = wrap("upsert plan", err)
		r.log.Errorw("Failed to upsert plan", "error", err, "name", plan.Name)
		return err
	}
	r.log.Debugw("Plan upserted", "name", plan.Name)
	return nil
}
