package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/shopspring/decimal"
)

const subscriptionColumns = `id, user_id, stripe_customer_id, stripe_subscription_id,
	razorpay_customer_id, razorpay_subscription_id, plan_id, status,
	current_period_start, current_period_end, cancelled_at,
	last_payment_id, last_payment_amount, last_payment_date, last_payment_error,
	created_at, updated_at`

// periodEndExpr keeps current_period_end from moving backwards unless the
// boolean parameter flags a cancellation.
func periodEndExpr(flagParam, endParam int) string {
	return fmt.Sprintf(`CASE WHEN $%d::boolean THEN $%d::timestamptz
                ELSE GREATEST(current_period_end, $%d::timestamptz) END`, flagParam, endParam, endParam)
}

type postgresSubscriptionRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresSubscriptionRepository returns the Postgres-backed SubscriptionRepository.
func NewPostgresSubscriptionRepository(db *sqlx.DB, log *logger.Logger) SubscriptionRepository {
	return &postgresSubscriptionRepo{db: db, log: log}
}

func (r *postgresSubscriptionRepo) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`

	if err := r.db.GetContext(ctx, &sub, query, userID); err != nil {
		err = wrap("get subscription by user", err)
		if err != ErrNotFound {
			r.log.Errorw("Failed to get subscription", "error", err, "userID", userID)
		}
		return nil, err
	}
	return &sub, nil
}

func (r *postgresSubscriptionRepo) UpsertRazorpayCheckout(ctx context.Context, sub *models.Subscription) error {
	now := time.Now().UTC()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
        INSERT INTO subscriptions (
            id, user_id, razorpay_customer_id, razorpay_subscription_id, plan_id, status,
            current_period_start, current_period_end, created_at, updated_at
        ) VALUES (
            :id, :user_id, :razorpay_customer_id, :razorpay_subscription_id, :plan_id, :status,
            :current_period_start, :current_period_end, :created_at, :updated_at
        )
        ON CONFLICT (user_id) DO UPDATE SET
            stripe_customer_id = NULL,
            stripe_subscription_id = NULL,
            razorpay_customer_id = EXCLUDED.razorpay_customer_id,
            razorpay_subscription_id = EXCLUDED.razorpay_subscription_id,
            plan_id = EXCLUDED.plan_id,
            status = EXCLUDED.status,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            cancelled_at = NULL,
            updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`

	bound, args, err := sqlx.Named(query, sub)
	if err != nil {
		return wrap("bind razorpay checkout", err)
	}
	row := r.db.QueryRowxContext(ctx, r.db.Rebind(bound), args...)
	if err := row.Scan(&sub.ID, &sub.CreatedAt); err != nil {
		err = wrap("upsert razorpay checkout", err)
		r.log.Errorw("Failed to persist Razorpay subscription", "error", err, "userID", sub.UserID)
		return err
	}

	r.log.Debugw("Persisted Razorpay subscription", "userID", sub.UserID, "subscriptionID", sub.ID)
	return nil
}

func (r *postgresSubscriptionRepo) UpsertStripeCheckout(ctx context.Context, userID, customerID, subscriptionID, status string, periodEnd time.Time) error {
	query := `
        INSERT INTO subscriptions (
            id, user_id, stripe_customer_id, stripe_subscription_id, status,
            current_period_end, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            stripe_customer_id = EXCLUDED.stripe_customer_id,
            stripe_subscription_id = EXCLUDED.stripe_subscription_id,
            razorpay_customer_id = NULL,
            razorpay_subscription_id = NULL,
            status = EXCLUDED.status,
            current_period_end = CASE WHEN $7::boolean THEN EXCLUDED.current_period_end
                ELSE GREATEST(subscriptions.current_period_end, EXCLUDED.current_period_end) END,
            updated_at = NOW()`

	args := []any{uuid.NewString(), userID, customerID, subscriptionID, status, periodEnd, domain.IsCancellation(status)}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		err = wrap("upsert stripe checkout", err)
		r.log.Errorw("Failed to upsert Stripe subscription", "error", err, "userID", userID, "customerID", customerID)
		return err
	}

	r.log.Debugw("Upserted Stripe subscription", "userID", userID, "stripeSubscriptionID", subscriptionID)
	return nil
}

func (r *postgresSubscriptionRepo) UpdateByStripeCustomer(ctx context.Context, customerID, status string, periodEnd time.Time) ([]string, error) {
	query := `
        UPDATE subscriptions SET
            status = $2,
            current_period_end = ` + periodEndExpr(4, 3) + `,
            updated_at = NOW()
        WHERE stripe_customer_id = $1
        RETURNING user_id`

	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, query, customerID, status, periodEnd, domain.IsCancellation(status)); err != nil {
		err = wrap("update by stripe customer", err)
		r.log.Errorw("Failed to update subscriptions by Stripe customer", "error", err, "customerID", customerID)
		return nil, err
	}

	if len(userIDs) == 0 {
		r.log.Warnw("Stripe subscription update matched no rows", "customerID", customerID)
	}
	return userIDs, nil
}

func (r *postgresSubscriptionRepo) ActivateRazorpay(ctx context.Context, razorpaySubscriptionID, status string, start, end time.Time) (string, error) {
	query := `
        UPDATE subscriptions SET
            status = $2,
            current_period_start = $3,
            current_period_end = ` + periodEndExpr(5, 4) + `,
            updated_at = NOW()
        WHERE razorpay_subscription_id = $1
        RETURNING user_id`

	return r.updateOne(ctx, "activate razorpay subscription", razorpaySubscriptionID, query,
		razorpaySubscriptionID, status, start, end, domain.IsCancellation(status))
}

func (r *postgresSubscriptionRepo) CancelRazorpay(ctx context.Context, razorpaySubscriptionID, status string, at time.Time) (string, error) {
	query := `
        UPDATE subscriptions SET
            status = $2,
            cancelled_at = $3,
            updated_at = NOW()
        WHERE razorpay_subscription_id = $1
        RETURNING user_id`

	return r.updateOne(ctx, "cancel razorpay subscription", razorpaySubscriptionID, query,
		razorpaySubscriptionID, status, at)
}

func (r *postgresSubscriptionRepo) RecordRazorpayCharge(ctx context.Context, razorpaySubscriptionID, paymentID string, amount decimal.Decimal, paidAt time.Time) (string, error) {
	query := `
        UPDATE subscriptions SET
            last_payment_id = $2,
            last_payment_amount = $3,
            last_payment_date = $4,
            updated_at = NOW()
        WHERE razorpay_subscription_id = $1
        RETURNING user_id`

	return r.updateOne(ctx, "record razorpay charge", razorpaySubscriptionID, query,
		razorpaySubscriptionID, paymentID, amount, paidAt)
}

func (r *postgresSubscriptionRepo) MarkRazorpayPaymentFailed(ctx context.Context, razorpaySubscriptionID, status, reason string) (string, error) {
	query := `
        UPDATE subscriptions SET
            status = $2,
            last_payment_error = $3,
            updated_at = NOW()
        WHERE razorpay_subscription_id = $1
        RETURNING user_id`

	return r.updateOne(ctx, "mark razorpay payment failed", razorpaySubscriptionID, query,
		razorpaySubscriptionID, status, models.StringPtr(reason))
}

// updateOne runs a single-row UPDATE ... RETURNING user_id.
func (r *postgresSubscriptionRepo) updateOne(ctx context.Context, op, key, query string, args ...any) (string, error) {
	var userID string
	if err := r.db.GetContext(ctx, &userID, query, args...); err != nil {
		err = wrap(op, err)
		if err == ErrNotFound {
			r.log.Warnw("No subscription for Razorpay id", "op", op, "razorpaySubscriptionID", key)
		} else {
			r.log.Errorw("Subscription update failed", "op", op, "error", err, "razorpaySubscriptionID", key)
		}
		return "", err
	}

	r.log.Debugw("Subscription updated", "op", op, "razorpaySubscriptionID", key, "userID", userID)
	return userID, nil
}
