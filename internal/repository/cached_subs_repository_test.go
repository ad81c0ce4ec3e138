package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSubscriptionRepo counts reads and returns canned data.
type stubSubscriptionRepo struct {
	subs     map[string]*models.Subscription
	reads    int
	affected []string
}

func (s *stubSubscriptionRepo) GetByUserID(_ context.Context, userID string) (*models.Subscription, error) {
	s.reads++
	sub, ok := s.subs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *stubSubscriptionRepo) UpsertRazorpayCheckout(_ context.Context, sub *models.Subscription) error {
	s.subs[sub.UserID] = sub
	return nil
}

func (s *stubSubscriptionRepo) UpsertStripeCheckout(_ context.Context, userID, customerID, subscriptionID, status string, _ time.Time) error {
	s.subs[userID] = &models.Subscription{UserID: userID, StripeCustomerID: &customerID, StripeSubscriptionID: &subscriptionID, Status: status}
	return nil
}

func (s *stubSubscriptionRepo) UpdateByStripeCustomer(_ context.Context, _ string, status string, _ time.Time) ([]string, error) {
	for _, id := range s.affected {
		s.subs[id].Status = status
	}
	return s.affected, nil
}

func (s *stubSubscriptionRepo) ActivateRazorpay(_ context.Context, _ string, status string, _, _ time.Time) (string, error) {
	return s.setStatus(status)
}

func (s *stubSubscriptionRepo) CancelRazorpay(_ context.Context, _ string, status string, _ time.Time) (string, error) {
	return s.setStatus(status)
}

func (s *stubSubscriptionRepo) RecordRazorpayCharge(context.Context, string, string, decimal.Decimal, time.Time) (string, error) {
	return s.affected[0], nil
}

func (s *stubSubscriptionRepo) MarkRazorpayPaymentFailed(_ context.Context, _ string, status, _ string) (string, error) {
	return s.setStatus(status)
}

func (s *stubSubscriptionRepo) setStatus(status string) (string, error) {
	if len(s.affected) == 0 {
		return "", ErrNotFound
	}
	s.subs[s.affected[0]].Status = status
	return s.affected[0], nil
}

func newCachedRepo(t *testing.T, stub *stubSubscriptionRepo) (SubscriptionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := NewRedisCacheRepository(client, time.Minute, logger.NewNop())
	return NewCachedSubscriptionRepository(stub, cache, logger.NewNop()), mr
}

func TestCachedGetByUserID(t *testing.T) {
	stub := &stubSubscriptionRepo{subs: map[string]*models.Subscription{
		"u1": {ID: "s1", UserID: "u1", Status: "active"},
	}}
	repo, mr := newCachedRepo(t, stub)
	ctx := context.Background()

	first, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	second, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, stub.reads)
	assert.Equal(t, first.Status, second.Status)
	assert.True(t, mr.Exists("subscription:user:u1"))
	assert.Equal(t, time.Minute, mr.TTL("subscription:user:u1"))
}

func TestCachedMissIsNotCached(t *testing.T) {
	stub := &stubSubscriptionRepo{subs: map[string]*models.Subscription{}}
	repo, mr := newCachedRepo(t, stub)

	_, err := repo.GetByUserID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("subscription:user:ghost"))
}

func TestCachedWritesInvalidateAffectedUsers(t *testing.T) {
	stub := &stubSubscriptionRepo{
		subs: map[string]*models.Subscription{
			"u1": {ID: "s1", UserID: "u1", Status: "active"},
			"u2": {ID: "s2", UserID: "u2", Status: "active"},
		},
		affected: []string{"u1", "u2"},
	}
	repo, mr := newCachedRepo(t, stub)
	ctx := context.Background()

	_, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	_, err = repo.GetByUserID(ctx, "u2")
	require.NoError(t, err)

	_, err = repo.UpdateByStripeCustomer(ctx, "cus_1", "canceled", time.Now())
	require.NoError(t, err)
	assert.False(t, mr.Exists("subscription:user:u1"))
	assert.False(t, mr.Exists("subscription:user:u2"))

	sub, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "canceled", sub.Status)
}

func TestCachedFailedWriteKeepsCache(t *testing.T) {
	stub := &stubSubscriptionRepo{subs: map[string]*models.Subscription{
		"u1": {ID: "s1", UserID: "u1", Status: "active"},
	}}
	repo, mr := newCachedRepo(t, stub)
	ctx := context.Background()

	_, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)

	_, err = repo.MarkRazorpayPaymentFailed(ctx, "sub_missing", "failed", "card_declined")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, mr.Exists("subscription:user:u1"))
}
