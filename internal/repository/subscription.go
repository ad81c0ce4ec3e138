package repository

import (
	"context"
	"time"

	"github.com/knowtix/billing-service/internal/models"
	"github.com/shopspring/decimal"
)

// SubscriptionRepository persists subscriptions. Mutations keyed by a
// provider id return the user ids of the rows they touched so callers can
// invalidate per-user caches.
type SubscriptionRepository interface {
	// GetByUserID returns the user's subscription or ErrNotFound.
	GetByUserID(ctx context.Context, userID string) (*models.Subscription, error)

	// UpsertRazorpayCheckout records a freshly created Razorpay subscription
	// for sub.UserID, replacing any previous provider linkage of that user.
	UpsertRazorpayCheckout(ctx context.Context, sub *models.Subscription) error

	// UpsertStripeCheckout creates or updates the user's row from a completed
	// Stripe checkout, clearing any Razorpay linkage. The period end only
	// moves backwards when status is a cancellation.
	UpsertStripeCheckout(ctx context.Context, userID, customerID, subscriptionID, status string, periodEnd time.Time) error

	// UpdateByStripeCustomer sets status and period end on every row linked
	// to customerID. Matching nothing is not an error.
	UpdateByStripeCustomer(ctx context.Context, customerID, status string, periodEnd time.Time) ([]string, error)

	// The Razorpay mutations below return ErrNotFound when no row carries
	// razorpaySubscriptionID.
	ActivateRazorpay(ctx context.Context, razorpaySubscriptionID, status string, start, end time.Time) (string, error)
	CancelRazorpay(ctx context.Context, razorpaySubscriptionID, status string, at time.Time) (string, error)
	RecordRazorpayCharge(ctx context.Context, razorpaySubscriptionID, paymentID string, amount decimal.Decimal, paidAt time.Time) (string, error)
	MarkRazorpayPaymentFailed(ctx context.Context, razorpaySubscriptionID, status, reason string) (string, error)
}
