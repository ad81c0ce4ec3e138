package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/knowtix/billing-service/internal/domain"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the raw body.
	SignatureHeader = "X-Razorpay-Signature"
	// EventIDHeader carries the unique delivery id.
	EventIDHeader = "X-Razorpay-Event-Id"
)

// Verifier checks Razorpay webhook signatures.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a verifier for the webhook secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns the hex signature Razorpay would send for body.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the raw body.
func (v *Verifier) Verify(body []byte, signature string) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("razorpay: RAZORPAY_WEBHOOK_SECRET: %w", domain.ErrNotConfigured)
	}
	if signature == "" {
		return fmt.Errorf("%w: no signature found", domain.ErrInvalidSignature)
	}

	expected := v.Sign(body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrInvalidSignature)
	}
	return nil
}

type webhookEnvelope struct {
	Event     string `json:"event"`
	AccountID string `json:"account_id"`
	Payload   struct {
		Subscription *struct {
			Entity subscriptionEntity `json:"entity"`
		} `json:"subscription"`
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type subscriptionEntity struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	CurrentStart int64  `json:"current_start"`
	CurrentEnd   int64  `json:"current_end"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	SubscriptionID   string `json:"subscription_id"`
	Amount           *int64 `json:"amount"`
	CreatedAt        int64  `json:"created_at"`
	ErrorDescription string `json:"error_description"`
}

// DecodeEvent parses a verified body into its variant. eventID is the
// delivery id header and may be empty. Malformed JSON is a validation error.
func DecodeEvent(body []byte, eventID string) (domain.ProviderEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", domain.ErrValidation, err)
	}

	var sub subscriptionEntity
	if env.Payload.Subscription != nil {
		sub = env.Payload.Subscription.Entity
	}
	var pay paymentEntity
	if env.Payload.Payment != nil {
		pay = env.Payload.Payment.Entity
	}
	// subscription.charged payment entities omit subscription_id on some accounts.
	paymentSubscriptionID := pay.SubscriptionID
	if paymentSubscriptionID == "" {
		paymentSubscriptionID = sub.ID
	}

	switch env.Event {
	case domain.RazorpayEventSubscriptionActivated:
		return domain.RazorpaySubscriptionActivated{
			EventID:        eventID,
			SubscriptionID: sub.ID,
			Status:         sub.Status,
			CurrentStart:   unixTime(sub.CurrentStart),
			CurrentEnd:     unixTime(sub.CurrentEnd),
		}, nil

	case domain.RazorpayEventSubscriptionCancelled:
		return domain.RazorpaySubscriptionCancelled{EventID: eventID, SubscriptionID: sub.ID}, nil

	case domain.RazorpayEventSubscriptionCharged:
		out := domain.RazorpaySubscriptionCharged{
			EventID:        eventID,
			SubscriptionID: paymentSubscriptionID,
			PaymentID:      pay.ID,
			PaidAt:         unixTime(pay.CreatedAt),
		}
		if pay.Amount == nil {
			return nil, domain.NewValidationError("payment.amount", "is required")
		}
		out.Amount = FromMinorUnits(*pay.Amount)
		return out, nil

	case domain.RazorpayEventPaymentFailed:
		return domain.RazorpayPaymentFailed{
			EventID:          eventID,
			SubscriptionID:   pay.SubscriptionID,
			ErrorDescription: pay.ErrorDescription,
		}, nil
	}

	return domain.UnhandledEvent{EventProvider: domain.ProviderRazorpay, EventType: env.Event, EventID: eventID}, nil
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
