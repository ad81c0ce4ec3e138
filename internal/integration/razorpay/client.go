package razorpay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/pkg/logger"
	rzp "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

const (
	defaultCurrency = "INR"
	defaultPeriod   = "monthly"
)

// StatusCompleted marks a subscription whose billing cycles have all run.
const StatusCompleted = "completed"


// Customer is a Razorpay customer.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Subscription is the part of a Razorpay subscription entity this service reads.
// CurrentStart and CurrentEnd are Unix seconds and stay nil until the first charge.
type Subscription struct {
	ID           string            `json:"id"`
	PlanID       string            `json:"plan_id"`
	CustomerID   string            `json:"customer_id"`
	Status       string            `json:"status"`
	CurrentStart *int64            `json:"current_start"`
	CurrentEnd   *int64            `json:"current_end"`
	TotalCount   int               `json:"total_count"`
	ShortURL     string            `json:"short_url"`
	Notes        map[string]string `json:"notes"`
}

// Plan is a Razorpay billing plan.
type Plan struct {
	ID       string `json:"id"`
	Period   string `json:"period"`
	Interval int    `json:"interval"`
	Item     struct {
		Name     string `json:"name"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"item"`
}

// CustomerInput identifies the user a customer is created for.
type CustomerInput struct {
	Name    string
	Email   string
	Contact string
}

// SubscriptionInput starts a subscription on an existing plan.
type SubscriptionInput struct {
	PlanID     string
	CustomerID string
	TotalCount int
	Notes      map[string]string
}

// PlanInput creates a plan. Amount is in major units; Currency defaults to INR,
// Period to monthly and Interval to 1.
type PlanInput struct {
	Name     string
	Amount   decimal.Decimal
	Currency string
	Period   string
	Interval int
}

// Client is the subset of the Razorpay API this service uses.
type Client interface {
	CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error)
	CreateSubscription(ctx context.Context, in SubscriptionInput) (*Subscription, error)
	FetchSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CreatePlan(ctx context.Context, in PlanInput) (*Plan, error)
}

type createAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type subscriptionAPI interface {
	createAPI
	Fetch(subscriptionID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Cancel(subscriptionID string, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayClient struct {
	configured    bool
	customers     createAPI
	subscriptions subscriptionAPI
	plans         createAPI
	log           *logger.Logger
}

// NewClient creates a Razorpay client from API credentials. Calls fail with
// domain.ErrNotConfigured when either credential is empty.
func NewClient(keyID, keySecret string, log *logger.Logger) Client {
	sdk := rzp.NewClient(keyID, keySecret)
	return &razorpayClient{
		configured:    keyID != "" && keySecret != "",
		customers:     sdk.Customer,
		subscriptions: sdk.Subscription,
		plans:         sdk.Plan,
		log:           log,
	}
}

func (c *razorpayClient) ready(ctx context.Context) error {
	if !c.configured {
		return fmt.Errorf("razorpay: RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET: %w", domain.ErrNotConfigured)
	}
	return ctx.Err()
}

func (c *razorpayClient) CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"name":    in.Name,
		"email":   in.Email,
		"contact": in.Contact,
		// Return the existing customer for this email instead of failing.
		"fail_existing": "0",
	}

	var out Customer
	if err := c.call("create customer", &out, func() (map[string]interface{}, error) {
		return c.customers.Create(data, nil)
	}); err != nil {
		return nil, err
	}

	c.log.Infow("Razorpay customer ready", "razorpayCustomerID", out.ID)
	return &out, nil
}

func (c *razorpayClient) CreateSubscription(ctx context.Context, in SubscriptionInput) (*Subscription, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"plan_id":         in.PlanID,
		"customer_id":     in.CustomerID,
		"customer_notify": 1,
		"total_count":     in.TotalCount,
	}
	if len(in.Notes) > 0 {
		data["notes"] = in.Notes
	}

	var out Subscription
	if err := c.call("create subscription", &out, func() (map[string]interface{}, error) {
		return c.subscriptions.Create(data, nil)
	}); err != nil {
		return nil, err
	}

	c.log.Infow("Razorpay subscription created", "razorpaySubscriptionID", out.ID, "status", out.Status)
	return &out, nil
}

func (c *razorpayClient) FetchSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	var out Subscription
	if err := c.call("fetch subscription", &out, func() (map[string]interface{}, error) {
		return c.subscriptions.Fetch(subscriptionID, nil, nil)
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *razorpayClient) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	var out Subscription
	if err := c.call("cancel subscription", &out, func() (map[string]interface{}, error) {
		return c.subscriptions.Cancel(subscriptionID, map[string]interface{}{"cancel_at_cycle_end": 0}, nil)
	}); err != nil {
		return nil, err
	}

	c.log.Infow("Razorpay subscription cancel requested", "razorpaySubscriptionID", subscriptionID, "status", out.Status)
	return &out, nil
}

func (c *razorpayClient) CreatePlan(ctx context.Context, in PlanInput) (*Plan, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if !in.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be positive")
	}

	currency := in.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	period := in.Period
	if period == "" {
		period = defaultPeriod
	}
	interval := in.Interval
	if interval <= 0 {
		interval = 1
	}

	data := map[string]interface{}{
		"period":   period,
		"interval": interval,
		"item": map[string]interface{}{
			"name":     in.Name,
			"amount":   ToMinorUnits(in.Amount),
			"currency": currency,
		},
	}

	var out Plan
	if err := c.call("create plan", &out, func() (map[string]interface{}, error) {
		return c.plans.Create(data, nil)
	}); err != nil {
		return nil, err
	}

	c.log.Infow("Razorpay plan created", "razorpayPlanID", out.ID, "name", in.Name)
	return &out, nil
}

// call runs an SDK request and decodes its loosely typed result into out.
func (c *razorpayClient) call(op string, out interface{}, fn func() (map[string]interface{}, error)) error {
	raw, err := fn()
	if err != nil {
		c.log.Errorw("Razorpay API error", "operation", op, "error", err)
		return domain.NewProviderError(domain.ProviderRazorpay, op, err)
	}

	body, err := json.Marshal(raw)
	if err != nil {
		return domain.NewProviderError(domain.ProviderRazorpay, op, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewProviderError(domain.ProviderRazorpay, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// ToMinorUnits converts a major-unit amount to paise.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts paise to a major-unit amount.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
