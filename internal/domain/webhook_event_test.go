package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProviderEventValidate(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name    string
		event   ProviderEvent
		wantErr bool
		field   string
	}{
		{
			name:  "complete checkout",
			event: StripeCheckoutCompleted{UserID: "u1", CustomerID: "cus_1", SubscriptionID: "sub_1"},
		},
		{
			name:    "checkout without user metadata",
			event:   StripeCheckoutCompleted{CustomerID: "cus_1", SubscriptionID: "sub_1"},
			wantErr: true,
			field:   "metadata.userId",
		},
		{
			name:    "subscription change without period end",
			event:   StripeSubscriptionChanged{CustomerID: "cus_1", Status: "active"},
			wantErr: true,
			field:   "current_period_end",
		},
		{
			name:    "activation without period",
			event:   RazorpaySubscriptionActivated{SubscriptionID: "sub_1", Status: "active", CurrentStart: now},
			wantErr: true,
			field:   "subscription.current_end",
		},
		{
			name:  "charge",
			event: RazorpaySubscriptionCharged{SubscriptionID: "sub_1", PaymentID: "pay_1", Amount: decimal.NewFromInt(499), PaidAt: now},
		},
		{
			name:    "negative charge",
			event:   RazorpaySubscriptionCharged{SubscriptionID: "sub_1", PaymentID: "pay_1", Amount: decimal.NewFromInt(-1), PaidAt: now},
			wantErr: true,
			field:   "payment.amount",
		},
		{
			name:    "payment failure outside a subscription",
			event:   RazorpayPaymentFailed{ErrorDescription: "insufficient_funds"},
			wantErr: true,
			field:   "payment.subscription_id",
		},
		{
			name:  "unhandled",
			event: UnhandledEvent{EventProvider: ProviderRazorpay, EventType: "order.paid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			if assert.True(t, errors.As(err, &verr)) {
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestEntitled(t *testing.T) {
	assert.True(t, Entitled("active"))
	assert.False(t, Entitled("Active"))
	assert.False(t, Entitled("created"))
	assert.False(t, Entitled(""))
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, IsCancellation("canceled"))
	assert.True(t, IsCancellation("cancelled"))
	assert.False(t, IsCancellation("past_due"))
}
