package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// SignatureHeader carries the Stripe webhook signature.
const SignatureHeader = "Stripe-Signature"

// WebhookVerifier checks Stripe webhook signatures.
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier returns a verifier for the endpoint secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify authenticates payload against the Stripe-Signature header and
// returns the parsed event.
func (v *WebhookVerifier) Verify(payload []byte, signature string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, fmt.Errorf("stripe: STRIPE_WEBHOOK_SECRET: %w", domain.ErrNotConfigured)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return event, nil
}

// DecodeEvent maps a verified event onto its variant. Unknown types become
// domain.UnhandledEvent.
func DecodeEvent(event stripe.Event) (domain.ProviderEvent, error) {
	eventType := string(event.Type)

	switch eventType {
	case domain.StripeEventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", domain.ErrValidation, err)
		}
		out := domain.StripeCheckoutCompleted{
			EventID: event.ID,
			UserID:  sess.Metadata[MetadataCheckoutUserID],
		}
		if sess.Customer != nil {
			out.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			out.SubscriptionID = sess.Subscription.ID
		}
		return out, nil

	case domain.StripeEventSubscriptionUpdated, domain.StripeEventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: subscription: %v", domain.ErrValidation, err)
		}
		out := domain.StripeSubscriptionChanged{
			EventID:   event.ID,
			EventType: eventType,
			Status:    string(sub.Status),
		}
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
		if sub.CurrentPeriodEnd > 0 {
			out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		}
		return out, nil
	}

	return domain.UnhandledEvent{EventProvider: domain.ProviderStripe, EventType: eventType, EventID: event.ID}, nil
}
