package domain

import "strings"

// Subscription statuses written by this service. Provider webhooks may store
// any other value verbatim; status is not a closed set.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusCanceled  = "canceled"
	SubscriptionStatusFailed    = "failed"
)

// Entitled reports whether status grants access to paid features.
// Only the exact value "active" does.
func Entitled(status string) bool {
	return status == SubscriptionStatusActive
}

// IsCancellation reports whether status ends a subscription. Both the British
// (Razorpay) and American (Stripe) spellings are accepted.
func IsCancellation(status string) bool {
	switch strings.ToLower(status) {
	case SubscriptionStatusCancelled, SubscriptionStatusCanceled:
		return true
	}
	return false
}

// RazorpayTotalCount is the number of billing cycles every Razorpay
// subscription is created for.
const RazorpayTotalCount = 12
