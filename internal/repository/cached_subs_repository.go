package repository

import (
	"context"
	"time"

	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/shopspring/decimal"
)

// CachedSubscriptionRepository serves GetByUserID from Redis and invalidates
// the affected users after every write. Cache errors never fail a call.
type CachedSubscriptionRepository struct {
	repo  SubscriptionRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedSubscriptionRepository decorates repo with cache.
func NewCachedSubscriptionRepository(repo SubscriptionRepository, cache *RedisCacheRepository, log *logger.Logger) SubscriptionRepository {
	return &CachedSubscriptionRepository{repo: repo, cache: cache, log: log}
}

// Uncached returns the repository behind the cache decorator, or repo itself.
// Entitlement checks read through it: a fill racing a webhook write can
// leave a stale status cached for the whole TTL.
func Uncached(repo SubscriptionRepository) SubscriptionRepository {
	if cached, ok := repo.(*CachedSubscriptionRepository); ok {
		return cached.repo
	}
	return repo
}

func (r *CachedSubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	cached, err := r.cache.GetCachedSubscription(ctx, userID)
	if err != nil {
		r.log.Warnw("Error reading subscription cache", "error", err, "userID", userID)
	}
	if cached != nil {
		return cached, nil
	}

	sub, err := r.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.CacheSubscription(ctx, sub); err != nil {
		r.log.Warnw("Failed to cache subscription", "error", err, "userID", userID)
	}
	return sub, nil
}

func (r *CachedSubscriptionRepository) UpsertRazorpayCheckout(ctx context.Context, sub *models.Subscription) error {
	if err := r.repo.UpsertRazorpayCheckout(ctx, sub); err != nil {
		return err
	}
	r.invalidate(ctx, sub.UserID)
	return nil
}

func (r *CachedSubscriptionRepository) UpsertStripeCheckout(ctx context.Context, userID, customerID, subscriptionID, status string, periodEnd time.Time) error {
	if err := r.repo.UpsertStripeCheckout(ctx, userID, customerID, subscriptionID, status, periodEnd); err != nil {
		return err
	}
	r.invalidate(ctx, userID)
	return nil
}

func (r *CachedSubscriptionRepository) UpdateByStripeCustomer(ctx context.Context, customerID, status string, periodEnd time.Time) ([]string, error) {
	userIDs, err := r.repo.UpdateByStripeCustomer(ctx, customerID, status, periodEnd)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, userIDs...)
	return userIDs, nil
}

func (r *CachedSubscriptionRepository) ActivateRazorpay(ctx context.Context, razorpaySubscriptionID, status string, start, end time.Time) (string, error) {
	return r.afterOne(ctx)(r.repo.ActivateRazorpay(ctx, razorpaySubscriptionID, status, start, end))
}

func (r *CachedSubscriptionRepository) CancelRazorpay(ctx context.Context, razorpaySubscriptionID, status string, at time.Time) (string, error) {
	return r.afterOne(ctx)(r.repo.CancelRazorpay(ctx, razorpaySubscriptionID, status, at))
}

func (r *CachedSubscriptionRepository) RecordRazorpayCharge(ctx context.Context, razorpaySubscriptionID, paymentID string, amount decimal.Decimal, paidAt time.Time) (string, error) {
	return r.afterOne(ctx)(r.repo.RecordRazorpayCharge(ctx, razorpaySubscriptionID, paymentID, amount, paidAt))
}

func (r *CachedSubscriptionRepository) MarkRazorpayPaymentFailed(ctx context.Context, razorpaySubscriptionID, status, reason string) (string, error) {
	return r.afterOne(ctx)(r.repo.MarkRazorpayPaymentFailed(ctx, razorpaySubscriptionID, status, reason))
}

func (r *CachedSubscriptionRepository) afterOne(ctx context.Context) func(string, error) (string, error) {
	return func(userID string, err error) (string, error) {
		if err != nil {
			return "", err
		}
		r.invalidate(ctx, userID)
		return userID, nil
	}
}

func (r *CachedSubscriptionRepository) invalidate(ctx context.Context, userIDs ...string) {
	if err := r.cache.InvalidateUsers(ctx, userIDs...); err != nil {
		r.log.Warnw("Failed to invalidate subscription cache", "error", err, "users", userIDs)
	}
}
