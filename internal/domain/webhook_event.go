package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider names a payment processor.
type Provider string

const (
	ProviderStripe   Provider = "stripe"
	ProviderRazorpay Provider = "razorpay"
)

// Provider event types this service reconciles.
const (
	StripeEventCheckoutCompleted   = "checkout.session.completed"
	StripeEventSubscriptionUpdated = "customer.subscription.updated"
	StripeEventSubscriptionDeleted = "customer.subscription.deleted"

	RazorpayEventSubscriptionActivated = "subscription.activated"
	RazorpayEventSubscriptionCancelled = "subscription.cancelled"
	RazorpayEventSubscriptionCharged   = "subscription.charged"
	RazorpayEventPaymentFailed         = "payment.failed"
)

// WebhookOutcome is how a delivered event ended up.
type WebhookOutcome string

const (
	WebhookOutcomeProcessed WebhookOutcome = "processed"
	WebhookOutcomeIgnored   WebhookOutcome = "ignored"
	WebhookOutcomeRejected  WebhookOutcome = "rejected"
	WebhookOutcomeFailed    WebhookOutcome = "failed"
)

// ProviderEvent is a verified webhook payload decoded into one known shape.
// Validate must pass before the event touches the store.
type ProviderEvent interface {
	Provider() Provider
	Type() string
	ExternalID() string
	Validate() error
}

func required(field, value string) error {
	if value == "" {
		return NewValidationError(field, "is required")
	}
	return nil
}

func requireTime(field string, t time.Time) error {
	if t.IsZero() {
		return NewValidationError(field, "is required")
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// StripeCheckoutCompleted is checkout.session.completed carrying the
// metadata.userId set when the session was created.
type StripeCheckoutCompleted struct {
	EventID        string
	UserID         string
	CustomerID     string
	SubscriptionID string
}

func (e StripeCheckoutCompleted) Provider() Provider { return ProviderStripe }
func (e StripeCheckoutCompleted) Type() string       { return StripeEventCheckoutCompleted }
func (e StripeCheckoutCompleted) ExternalID() string { return e.EventID }

func (e StripeCheckoutCompleted) Validate() error {
	return firstError(
		required("metadata.userId", e.UserID),
		required("customer", e.CustomerID),
		required("subscription", e.SubscriptionID),
	)
}

// StripeSubscriptionChanged covers customer.subscription.updated and .deleted.
type StripeSubscriptionChanged struct {
	EventID          string
	EventType        string
	CustomerID       string
	Status           string
	CurrentPeriodEnd time.Time
}

func (e StripeSubscriptionChanged) Provider() Provider { return ProviderStripe }
func (e StripeSubscriptionChanged) Type() string       { return e.EventType }
func (e StripeSubscriptionChanged) ExternalID() string { return e.EventID }

func (e StripeSubscriptionChanged) Validate() error {
	return firstError(
		required("customer", e.CustomerID),
		required("status", e.Status),
		requireTime("current_period_end", e.CurrentPeriodEnd),
	)
}

// RazorpaySubscriptionActivated is subscription.activated.
type RazorpaySubscriptionActivated struct {
	EventID        string
	SubscriptionID string
	Status         string
	CurrentStart   time.Time
	CurrentEnd     time.Time
}

func (e RazorpaySubscriptionActivated) Provider() Provider { return ProviderRazorpay }
func (e RazorpaySubscriptionActivated) Type() string       { return RazorpayEventSubscriptionActivated }
func (e RazorpaySubscriptionActivated) ExternalID() string { return e.EventID }

func (e RazorpaySubscriptionActivated) Validate() error {
	return firstError(
		required("subscription.id", e.SubscriptionID),
		required("subscription.status", e.Status),
		requireTime("subscription.current_start", e.CurrentStart),
		requireTime("subscription.current_end", e.CurrentEnd),
	)
}

// RazorpaySubscriptionCancelled is subscription.cancelled.
type RazorpaySubscriptionCancelled struct {
	EventID        string
	SubscriptionID string
}

func (e RazorpaySubscriptionCancelled) Provider() Provider { return ProviderRazorpay }
func (e RazorpaySubscriptionCancelled) Type() string       { return RazorpayEventSubscriptionCancelled }
func (e RazorpaySubscriptionCancelled) ExternalID() string { return e.EventID }

func (e RazorpaySubscriptionCancelled) Validate() error {
	return required("subscription.id", e.SubscriptionID)
}

// RazorpaySubscriptionCharged is subscription.charged. Amount is in major
// currency units.
type RazorpaySubscriptionCharged struct {
	EventID        string
	SubscriptionID string
	PaymentID      string
	Amount         decimal.Decimal
	PaidAt         time.Time
}

func (e RazorpaySubscriptionCharged) Provider() Provider { return ProviderRazorpay }
func (e RazorpaySubscriptionCharged) Type() string       { return RazorpayEventSubscriptionCharged }
func (e RazorpaySubscriptionCharged) ExternalID() string { return e.EventID }

func (e RazorpaySubscriptionCharged) Validate() error {
	if err := firstError(
		required("payment.subscription_id", e.SubscriptionID),
		required("payment.id", e.PaymentID),
		requireTime("payment.created_at", e.PaidAt),
	); err != nil {
		return err
	}
	if e.Amount.IsNegative() {
		return NewValidationError("payment.amount", "must not be negative")
	}
	return nil
}

// RazorpayPaymentFailed is payment.failed for a subscription payment.
type RazorpayPaymentFailed struct {
	EventID          string
	SubscriptionID   string
	ErrorDescription string
}

func (e RazorpayPaymentFailed) Provider() Provider { return ProviderRazorpay }
func (e RazorpayPaymentFailed) Type() string       { return RazorpayEventPaymentFailed }
func (e RazorpayPaymentFailed) ExternalID() string { return e.EventID }

func (e RazorpayPaymentFailed) Validate() error {
	return required("payment.subscription_id", e.SubscriptionID)
}

// UnhandledEvent is any verified event of a type this service does not reconcile.
type UnhandledEvent struct {
	EventProvider Provider
	EventType     string
	EventID       string
}

func (e UnhandledEvent) Provider() Provider { return e.EventProvider }
func (e UnhandledEvent) Type() string       { return e.EventType }
func (e UnhandledEvent) ExternalID() string { return e.EventID }
func (e UnhandledEvent) Validate() error    { return nil }
