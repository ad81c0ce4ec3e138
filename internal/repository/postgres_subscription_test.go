package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSubscriptionRepo(t *testing.T) (SubscriptionRepository, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewPostgresSubscriptionRepository(sqlx.NewDb(raw, "sqlmock"), logger.NewNop()), mock
}

func TestGetByUserID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockSubscriptionRepo(t)
		now := time.Now()
		rows := sqlmock.NewRows([]string{
			"id", "user_id", "stripe_customer_id", "stripe_subscription_id",
			"razorpay_customer_id", "razorpay_subscription_id", "plan_id", "status",
			"current_period_start", "current_period_end", "cancelled_at",
			"last_payment_id", "last_payment_amount", "last_payment_date", "last_payment_error",
			"created_at", "updated_at",
		}).AddRow("s1", "u1", nil, nil, "cust_1", "sub_1", "plan_1", "active",
			now, now, nil, "pay_1", "4.99", now, nil, now, now)

		mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions WHERE user_id = $1")).
			WithArgs("u1").
			WillReturnRows(rows)

		sub, err := repo.GetByUserID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "active", sub.Status)
		assert.Equal(t, "sub_1", *sub.RazorpaySubscriptionID)
		assert.Nil(t, sub.StripeCustomerID)
		assert.True(t, sub.LastPaymentAmount.Valid)
		assert.Equal(t, "4.99", sub.LastPaymentAmount.Decimal.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		repo, mock := newMockSubscriptionRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions WHERE user_id = $1")).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByUserID(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestUpsertStripeCheckout(t *testing.T) {
	end := time.Unix(1735689600, 0)

	t.Run("clears razorpay linkage and keeps later period end", func(t *testing.T) {
		repo, mock := newMockSubscriptionRepo(t)
		mock.ExpectExec(`ON CONFLICT \(user_id\) DO UPDATE SET .*razorpay_customer_id = NULL, razorpay_subscription_id = NULL, .*GREATEST\(subscriptions\.current_period_end, EXCLUDED\.current_period_end\)`).
			WithArgs(sqlmock.AnyArg(), "u1", "cus_1", "sub_1", "active", end, false).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpsertStripeCheckout(context.Background(), "u1", "cus_1", "sub_1", "active", end)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancellation overwrites period end", func(t *testing.T) {
		repo, mock := newMockSubscriptionRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE SET")).
			WithArgs(sqlmock.AnyArg(), "u1", "cus_1", "sub_1", "canceled", end, true).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpsertStripeCheckout(context.Background(), "u1", "cus_1", "sub_1", "canceled", end)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateByStripeCustomerTouchesEveryRow(t *testing.T) {
	repo, mock := newMockSubscriptionRepo(t)
	end := time.Unix(1735689600, 0)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE stripe_customer_id = $1 RETURNING user_id")).
		WithArgs("cus_shared", "canceled", end, true).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1").AddRow("u2"))

	userIDs, err := repo.UpdateByStripeCustomer(context.Background(), "cus_shared", "canceled", end)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, userIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByStripeCustomerNoRows(t *testing.T) {
	repo, mock := newMockSubscriptionRepo(t)
	end := time.Unix(1735689600, 0)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE stripe_customer_id = $1")).
		WithArgs("cus_none", "active", end, false).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	userIDs, err := repo.UpdateByStripeCustomer(context.Background(), "cus_none", "active", end)
	require.NoError(t, err)
	assert.Empty(t, userIDs)
}

func TestRazorpayUpdates(t *testing.T) {
	ctx := context.Background()
	start := time.Unix(1735689600, 0)
	end := start.AddDate(0, 1, 0)

	t.Run("activate", func(t *testing.T) {
		repo, mock := newMockSubscriptionRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE razorpay_subscription_id = $1")).
			WithArgs("sub_1", "active", start, end, false).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))

		userID, err := repo.ActivateRazorpay(ctx, "sub_1", "active", start, end)
		require.NoError(t, err)
		assert.Equal(t, "u1", userID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		repo, mock := newMockSubscriptionRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE razorpay_subscription_id = $1")).
			WithArgs("sub_missing", "cancelled", start).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

		_, err := repo.CancelRazorpay(ctx, "sub_missing", "cancelled", start)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("charge", func(t *testing.T) {
		repo, mock := newMockSubscriptionRepo(t)
		amount := decimal.RequireFromString("499.00")
		mock.ExpectQuery(regexp.QuoteMeta("last_payment_id = $2")).
			WithArgs("sub_1", "pay_1", amount, start).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))

		_, err := repo.RecordRazorpayCharge(ctx, "sub_1", "pay_1", amount, start)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("payment failed", func(t *testing.T) {
		repo, mock := newMockSubscriptionRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("last_payment_error = $3")).
			WithArgs("sub_1", "failed", "insufficient_funds").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))

		_, err := repo.MarkRazorpayPaymentFailed(ctx, "sub_1", "failed", "insufficient_funds")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpsertRazorpayCheckout(t *testing.T) {
	repo, mock := newMockSubscriptionRepo(t)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO subscriptions .*ON CONFLICT \(user_id\) DO UPDATE SET stripe_customer_id = NULL, stripe_subscription_id = NULL,`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing-id", created))

	sub := &models.Subscription{
		UserID:                 "u1",
		RazorpayCustomerID:     models.StringPtr("cust_1"),
		RazorpaySubscriptionID: models.StringPtr("sub_1"),
		PlanID:                 models.StringPtr("plan_1"),
		Status:                 "created",
	}
	require.NoError(t, repo.UpsertRazorpayCheckout(context.Background(), sub))
	assert.Equal(t, "existing-id", sub.ID)
	assert.Equal(t, created, sub.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
