package stripe

import (
	"testing"
	"time"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78/webhook"
)

const testSecret = "whsec_test"

func sign(t *testing.T, payload []byte) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","api_version":"2020-08-27","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","object":"subscription","customer":"cus_1","status":"active","current_period_end":1735689600}}}`)

	t.Run("valid signature", func(t *testing.T) {
		event, err := NewWebhookVerifier(testSecret).Verify(payload, sign(t, payload))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
	})

	t.Run("tampered body", func(t *testing.T) {
		header := sign(t, payload)
		tampered := append([]byte{}, payload...)
		tampered[len(tampered)-3] = '1'

		_, err := NewWebhookVerifier(testSecret).Verify(tampered, header)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := NewWebhookVerifier(testSecret).Verify(payload, "")
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("no secret configured", func(t *testing.T) {
		_, err := NewWebhookVerifier("").Verify(payload, sign(t, payload))
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
	})
}

func TestDecodeEvent(t *testing.T) {
	verifier := NewWebhookVerifier(testSecret)
	decode := func(t *testing.T, body string) domain.ProviderEvent {
		t.Helper()
		event, err := verifier.Verify([]byte(body), sign(t, []byte(body)))
		require.NoError(t, err)
		out, err := DecodeEvent(event)
		require.NoError(t, err)
		return out
	}

	t.Run("checkout completed", func(t *testing.T) {
		out := decode(t, `{"id":"evt_c","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1","metadata":{"userId":"u1"}}}}`)

		got, ok := out.(domain.StripeCheckoutCompleted)
		require.True(t, ok)
		assert.Equal(t, domain.StripeCheckoutCompleted{EventID: "evt_c", UserID: "u1", CustomerID: "cus_1", SubscriptionID: "sub_1"}, got)
		assert.NoError(t, got.Validate())
	})

	t.Run("checkout without metadata fails validation", func(t *testing.T) {
		out := decode(t, `{"id":"evt_c","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1"}}}`)
		assert.ErrorIs(t, out.Validate(), domain.ErrValidation)
	})

	t.Run("subscription deleted", func(t *testing.T) {
		out := decode(t, `{"id":"evt_d","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","object":"subscription","customer":"cus_1","status":"canceled","current_period_end":1735689600}}}`)

		got, ok := out.(domain.StripeSubscriptionChanged)
		require.True(t, ok)
		assert.Equal(t, "cus_1", got.CustomerID)
		assert.Equal(t, "canceled", got.Status)
		assert.Equal(t, domain.StripeEventSubscriptionDeleted, got.Type())
		assert.True(t, got.CurrentPeriodEnd.Equal(time.Unix(1735689600, 0)))
	})

	t.Run("unknown type", func(t *testing.T) {
		out := decode(t, `{"id":"evt_x","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`)

		got, ok := out.(domain.UnhandledEvent)
		require.True(t, ok)
		assert.Equal(t, "invoice.paid", got.Type())
		assert.Equal(t, domain.ProviderStripe, got.Provider())
	})
}
