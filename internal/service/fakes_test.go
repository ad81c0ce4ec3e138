package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/integration/razorpay"
	"github.com/knowtix/billing-service/internal/integration/stripe"
	"github.com/knowtix/billing-service/internal/kafka"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/internal/repository"
	"github.com/shopspring/decimal"
)

// memSubs mirrors the Postgres repository semantics in memory.
type memSubs struct {
	mu     sync.Mutex
	rows   map[string]*models.Subscription
	writes int
}

func newMemSubs(rows ...*models.Subscription) *memSubs {
	m := &memSubs{rows: map[string]*models.Subscription{}}
	for _, r := range rows {
		m.rows[r.UserID] = r
	}
	return m
}

func (m *memSubs) get(userID string) *models.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[userID]
	if !ok {
		return nil
	}
	cp := *row
	return &cp
}

func (m *memSubs) GetByUserID(_ context.Context, userID string) (*models.Subscription, error) {
	if row := m.get(userID); row != nil {
		return row, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memSubs) UpsertRazorpayCheckout(_ context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if sub.ID == "" {
		sub.ID = "sub-row-" + sub.UserID
	}
	row, ok := m.rows[sub.UserID]
	if !ok {
		cp := *sub
		m.rows[sub.UserID] = &cp
		return nil
	}
	sub.ID = row.ID
	row.StripeCustomerID = nil
	row.StripeSubscriptionID = nil
	row.RazorpayCustomerID = sub.RazorpayCustomerID
	row.RazorpaySubscriptionID = sub.RazorpaySubscriptionID
	row.PlanID = sub.PlanID
	row.Status = sub.Status
	row.CurrentPeriodStart = sub.CurrentPeriodStart
	row.CurrentPeriodEnd = sub.CurrentPeriodEnd
	row.CancelledAt = nil
	return nil
}

func (m *memSubs) UpsertStripeCheckout(_ context.Context, userID, customerID, subscriptionID, status string, periodEnd time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	row, ok := m.rows[userID]
	if !ok {
		row = &models.Subscription{ID: "sub-row-" + userID, UserID: userID}
		m.rows[userID] = row
	}
	row.StripeCustomerID = models.StringPtr(customerID)
	row.StripeSubscriptionID = models.StringPtr(subscriptionID)
	row.RazorpayCustomerID = nil
	row.RazorpaySubscriptionID = nil
	row.Status = status
	row.CurrentPeriodEnd = laterEnd(row.CurrentPeriodEnd, periodEnd, domain.IsCancellation(status))
	return nil
}

func (m *memSubs) UpdateByStripeCustomer(_ context.Context, customerID, status string, periodEnd time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	var ids []string
	for _, row := range m.rows {
		if row.StripeCustomerID == nil || *row.StripeCustomerID != customerID {
			continue
		}
		row.Status = status
		row.CurrentPeriodEnd = laterEnd(row.CurrentPeriodEnd, periodEnd, domain.IsCancellation(status))
		ids = append(ids, row.UserID)
	}
	return ids, nil
}

func laterEnd(current *time.Time, next time.Time, overwrite bool) *time.Time {
	if overwrite || current == nil || next.After(*current) {
		return &next
	}
	return current
}

func (m *memSubs) byRazorpay(id string, fn func(row *models.Subscription)) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for _, row := range m.rows {
		if row.RazorpaySubscriptionID != nil && *row.RazorpaySubscriptionID == id {
			fn(row)
			return row.UserID, nil
		}
	}
	return "", repository.ErrNotFound
}

func (m *memSubs) ActivateRazorpay(_ context.Context, id, status string, start, end time.Time) (string, error) {
	return m.byRazorpay(id, func(row *models.Subscription) {
		row.Status = status
		row.CurrentPeriodStart = &start
		row.CurrentPeriodEnd = laterEnd(row.CurrentPeriodEnd, end, domain.IsCancellation(status))
	})
}

func (m *memSubs) CancelRazorpay(_ context.Context, id, status string, at time.Time) (string, error) {
	return m.byRazorpay(id, func(row *models.Subscription) {
		row.Status = status
		row.CancelledAt = &at
	})
}

func (m *memSubs) RecordRazorpayCharge(_ context.Context, id, paymentID string, amount decimal.Decimal, paidAt time.Time) (string, error) {
	return m.byRazorpay(id, func(row *models.Subscription) {
		row.LastPaymentID = models.StringPtr(paymentID)
		row.LastPaymentAmount = decimal.NewNullDecimal(amount)
		row.LastPaymentDate = &paidAt
	})
}

func (m *memSubs) MarkRazorpayPaymentFailed(_ context.Context, id, status, reason string) (string, error) {
	return m.byRazorpay(id, func(row *models.Subscription) {
		row.Status = status
		row.LastPaymentError = models.StringPtr(reason)
	})
}

type recordingWebhookLog struct {
	events []models.WebhookEvent
	err    error
}

func (r *recordingWebhookLog) Record(_ context.Context, ev *models.WebhookEvent) error {
	r.events = append(r.events, *ev)
	return r.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, ev kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMetrics struct {
	webhooks  []string
	checkouts []string
	uploads   []string
}

func (m *recordingMetrics) ObserveWebhook(provider, eventType, outcome string, _ time.Duration) {
	m.webhooks = append(m.webhooks, provider+"/"+eventType+"/"+outcome)
}

func (m *recordingMetrics) IncCheckout(provider, outcome string) {
	m.checkouts = append(m.checkouts, provider+"/"+outcome)
}

func (m *recordingMetrics) IncUpload(outcome string) {
	m.uploads = append(m.uploads, outcome)
}

type fixedPeriods struct {
	end time.Time
	err error
}

func (f fixedPeriods) SubscriptionPeriodEnd(context.Context, string) (time.Time, error) {
	return f.end, f.err
}

type memUsers map[string]*models.User

func (u memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, repository.ErrNotFound
}

type fakeRazorpay struct {
	customer     *razorpay.Customer
	subscription *razorpay.Subscription
	err          error
	customerIn   razorpay.CustomerInput
	subIn        razorpay.SubscriptionInput
	fetched      []string
	cancelled    []string
}

func (f *fakeRazorpay) CreateCustomer(_ context.Context, in razorpay.CustomerInput) (*razorpay.Customer, error) {
	f.customerIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.customer, nil
}

func (f *fakeRazorpay) CreateSubscription(_ context.Context, in razorpay.SubscriptionInput) (*razorpay.Subscription, error) {
	f.subIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.subscription, nil
}

func (f *fakeRazorpay) FetchSubscription(_ context.Context, id string) (*razorpay.Subscription, error) {
	f.fetched = append(f.fetched, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.subscription, nil
}

func (f *fakeRazorpay) CancelSubscription(_ context.Context, id string) (*razorpay.Subscription, error) {
	f.cancelled = append(f.cancelled, id)
	if f.err != nil {
		return nil, f.err
	}
	return &razorpay.Subscription{ID: id, Status: domain.SubscriptionStatusCancelled}, nil
}

func (f *fakeRazorpay) CreatePlan(_ context.Context, in razorpay.PlanInput) (*razorpay.Plan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &razorpay.Plan{ID: "plan_new", Period: in.Period}, nil
}

type fakeStripe struct {
	in  stripe.CheckoutSessionInput
	err error
}

func (f *fakeStripe) GetOrCreateCustomer(context.Context, string, string) (string, error) {
	return "cus_1", f.err
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, in stripe.CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1", CustomerID: "cus_1"}, nil
}

func (f *fakeStripe) SubscriptionPeriodEnd(context.Context, string) (time.Time, error) {
	return time.Time{}, errors.New("not used")
}
