package razorpay

import (
	"context"
	"errors"
	"testing"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResource struct {
	lastData map[string]interface{}
	lastID   string
	resp     map[string]interface{}
	err      error
}

func (f *fakeResource) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.lastData = data
	return f.resp, f.err
}

func (f *fakeResource) Fetch(id string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.lastID = id
	return f.resp, f.err
}

func (f *fakeResource) Cancel(id string, data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.lastID = id
	f.lastData = data
	return f.resp, f.err
}

func newTestClient(customers, subs, plans *fakeResource) *razorpayClient {
	return &razorpayClient{
		configured:    true,
		customers:     customers,
		subscriptions: subs,
		plans:         plans,
		log:           logger.NewNop(),
	}
}

func TestCreateSubscription(t *testing.T) {
	subs := &fakeResource{resp: map[string]interface{}{
		"id":            "sub_1",
		"plan_id":       "plan_1",
		"status":        "created",
		"current_start": nil,
		"current_end":   nil,
		"total_count":   float64(12),
		"short_url":     "https://rzp.io/i/abc",
	}}
	c := newTestClient(&fakeResource{}, subs, &fakeResource{})

	out, err := c.CreateSubscription(context.Background(), SubscriptionInput{
		PlanID:     "plan_1",
		CustomerID: "cust_1",
		TotalCount: domain.RazorpayTotalCount,
		Notes:      map[string]string{"userId": "u1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "sub_1", out.ID)
	assert.Equal(t, "created", out.Status)
	assert.Nil(t, out.CurrentStart)
	assert.Equal(t, 12, out.TotalCount)
	assert.Equal(t, 12, subs.lastData["total_count"])
	assert.Equal(t, 1, subs.lastData["customer_notify"])
	assert.Equal(t, map[string]string{"userId": "u1"}, subs.lastData["notes"])
}

func TestCreatePlanDefaults(t *testing.T) {
	plans := &fakeResource{resp: map[string]interface{}{
		"id":       "plan_1",
		"period":   "monthly",
		"interval": float64(1),
		"item":     map[string]interface{}{"name": "Premium", "amount": float64(49900), "currency": "INR"},
	}}
	c := newTestClient(&fakeResource{}, &fakeResource{}, plans)

	out, err := c.CreatePlan(context.Background(), PlanInput{Name: "Premium", Amount: decimal.RequireFromString("499")})
	require.NoError(t, err)

	assert.Equal(t, "plan_1", out.ID)
	assert.Equal(t, int64(49900), out.Item.Amount)
	assert.Equal(t, "monthly", plans.lastData["period"])
	assert.Equal(t, 1, plans.lastData["interval"])
	item := plans.lastData["item"].(map[string]interface{})
	assert.Equal(t, int64(49900), item["amount"])
	assert.Equal(t, "INR", item["currency"])
}

func TestCreatePlanValidation(t *testing.T) {
	c := newTestClient(&fakeResource{}, &fakeResource{}, &fakeResource{})

	_, err := c.CreatePlan(context.Background(), PlanInput{Name: "Free", Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestProviderFailureIsUpstream(t *testing.T) {
	customers := &fakeResource{err: errors.New("BAD_REQUEST_ERROR")}
	c := newTestClient(customers, &fakeResource{}, &fakeResource{})

	_, err := c.CreateCustomer(context.Background(), CustomerInput{Name: "Ada", Email: "ada@example.com"})
	assert.ErrorIs(t, err, domain.ErrUpstream)

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.ProviderRazorpay, perr.Provider)
	assert.Equal(t, "0", customers.lastData["fail_existing"])
}

func TestCancelSubscription(t *testing.T) {
	subs := &fakeResource{resp: map[string]interface{}{"id": "sub_1", "status": "cancelled"}}
	c := newTestClient(&fakeResource{}, subs, &fakeResource{})

	out, err := c.CancelSubscription(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", subs.lastID)
	assert.Equal(t, "cancelled", out.Status)
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewClient("", "", logger.NewNop())

	_, err := c.FetchSubscription(context.Background(), "sub_1")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(49900), ToMinorUnits(decimal.RequireFromString("499")))
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, "4.99", FromMinorUnits(499).StringFixed(2))
}
