package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription is a user's billing state as last reported by a provider.
// A row links to either Stripe or Razorpay, never deleted, only cancelled.
type Subscription struct {
	ID                     string              `db:"id" json:"id"`
	UserID                 string              `db:"user_id" json:"userId"`
	StripeCustomerID       *string             `db:"stripe_customer_id" json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID   *string             `db:"stripe_subscription_id" json:"stripeSubscriptionId,omitempty"`
	RazorpayCustomerID     *string             `db:"razorpay_customer_id" json:"razorpayCustomerId,omitempty"`
	RazorpaySubscriptionID *string             `db:"razorpay_subscription_id" json:"razorpaySubscriptionId,omitempty"`
	PlanID                 *string             `db:"plan_id" json:"planId,omitempty"`
	Status                 string              `db:"status" json:"status"`
	CurrentPeriodStart     *time.Time          `db:"current_period_start" json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd       *time.Time          `db:"current_period_end" json:"currentPeriodEnd,omitempty"`
	CancelledAt            *time.Time          `db:"cancelled_at" json:"cancelledAt,omitempty"`
	LastPaymentID          *string             `db:"last_payment_id" json:"lastPaymentId,omitempty"`
	LastPaymentAmount      decimal.NullDecimal `db:"last_payment_amount" json:"lastPaymentAmount"`
	LastPaymentDate        *time.Time          `db:"last_payment_date" json:"lastPaymentDate,omitempty"`
	LastPaymentError       *string             `db:"last_payment_error" json:"lastPaymentError,omitempty"`
	CreatedAt              time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time           `db:"updated_at" json:"updatedAt"`
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
