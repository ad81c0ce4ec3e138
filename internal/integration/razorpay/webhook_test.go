package razorpay

import (
	"testing"
	"time"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier(t *testing.T) {
	v := NewVerifier("rzp_secret")
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"subscription_id":"sub_1","error_description":"insufficient_funds"}}}}`)
	signature := v.Sign(body)

	t.Run("matching signature", func(t *testing.T) {
		assert.NoError(t, v.Verify(body, signature))
	})

	t.Run("every single byte change fails", func(t *testing.T) {
		for i := range body {
			tampered := append([]byte{}, body...)
			tampered[i] ^= 0x01
			assert.ErrorIs(t, v.Verify(tampered, signature), domain.ErrInvalidSignature, "byte %d", i)
		}
	})

	t.Run("appended byte fails", func(t *testing.T) {
		assert.ErrorIs(t, v.Verify(append(append([]byte{}, body...), ' '), signature), domain.ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		assert.ErrorIs(t, v.Verify(body, ""), domain.ErrInvalidSignature)
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.ErrorIs(t, NewVerifier("other").Verify(body, signature), domain.ErrInvalidSignature)
	})

	t.Run("no secret configured", func(t *testing.T) {
		assert.ErrorIs(t, NewVerifier("").Verify(body, signature), domain.ErrNotConfigured)
	})
}

func TestDecodeEvent(t *testing.T) {
	t.Run("payment failed", func(t *testing.T) {
		out, err := DecodeEvent([]byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_9","subscription_id":"sub_1","error_description":"insufficient_funds"}}}}`), "evt_1")
		require.NoError(t, err)
		assert.Equal(t, domain.RazorpayPaymentFailed{EventID: "evt_1", SubscriptionID: "sub_1", ErrorDescription: "insufficient_funds"}, out)
		assert.NoError(t, out.Validate())
	})

	t.Run("subscription activated", func(t *testing.T) {
		out, err := DecodeEvent([]byte(`{"event":"subscription.activated","payload":{"subscription":{"entity":{"id":"sub_1","status":"active","current_start":1735689600,"current_end":1738368000}}}}`), "")
		require.NoError(t, err)

		got, ok := out.(domain.RazorpaySubscriptionActivated)
		require.True(t, ok)
		assert.Equal(t, "sub_1", got.SubscriptionID)
		assert.Equal(t, "active", got.Status)
		assert.True(t, got.CurrentStart.Equal(time.Unix(1735689600, 0)))
		assert.True(t, got.CurrentEnd.Equal(time.Unix(1738368000, 0)))
	})

	t.Run("activated without period fails validation", func(t *testing.T) {
		out, err := DecodeEvent([]byte(`{"event":"subscription.activated","payload":{"subscription":{"entity":{"id":"sub_1","status":"active"}}}}`), "")
		require.NoError(t, err)
		assert.ErrorIs(t, out.Validate(), domain.ErrValidation)
	})

	t.Run("charged converts paise", func(t *testing.T) {
		out, err := DecodeEvent([]byte(`{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"sub_1","status":"active"}},"payment":{"entity":{"id":"pay_1","amount":49900,"created_at":1735689600}}}}`), "evt_2")
		require.NoError(t, err)

		got, ok := out.(domain.RazorpaySubscriptionCharged)
		require.True(t, ok)
		assert.Equal(t, "sub_1", got.SubscriptionID)
		assert.Equal(t, "pay_1", got.PaymentID)
		assert.Equal(t, "499.00", got.Amount.StringFixed(2))
		assert.NoError(t, got.Validate())
	})

	t.Run("charged without amount", func(t *testing.T) {
		_, err := DecodeEvent([]byte(`{"event":"subscription.charged","payload":{"payment":{"entity":{"id":"pay_1","subscription_id":"sub_1","created_at":1735689600}}}}`), "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("cancelled", func(t *testing.T) {
		out, err := DecodeEvent([]byte(`{"event":"subscription.cancelled","payload":{"subscription":{"entity":{"id":"sub_1","status":"cancelled"}}}}`), "")
		require.NoError(t, err)
		assert.Equal(t, domain.RazorpaySubscriptionCancelled{SubscriptionID: "sub_1"}, out)
	})

	t.Run("unknown event", func(t *testing.T) {
		out, err := DecodeEvent([]byte(`{"event":"order.paid","payload":{}}`), "evt_3")
		require.NoError(t, err)
		assert.Equal(t, domain.UnhandledEvent{EventProvider: domain.ProviderRazorpay, EventType: "order.paid", EventID: "evt_3"}, out)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeEvent([]byte(`{"event":`), "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
