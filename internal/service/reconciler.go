package service

import (
	"context"
	"errors"
	"time"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/kafka"
	"github.com/knowtix/billing-service/internal/metrics"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/internal/repository"
	"github.com/knowtix/billing-service/pkg/logger"
)

// publishTimeout bounds the best-effort event publish after a mutation.
const publishTimeout = 5 * time.Second

// PeriodEndLookup resolves the current period end of a Stripe subscription.
type PeriodEndLookup interface {
	SubscriptionPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)
}

// Reconciler applies verified provider events to the subscription store.
type Reconciler interface {
	// Apply returns the outcome of ev. The error is non-nil only when the
	// outcome is failed; the provider should then redeliver.
	Apply(ctx context.Context, ev domain.ProviderEvent) (domain.WebhookOutcome, error)
}

type reconciler struct {
	subs       repository.SubscriptionRepository
	webhookLog repository.WebhookEventRepository
	publisher  kafka.Publisher
	metrics    metrics.BillingMetrics
	periods    PeriodEndLookup
	now        func() time.Time
	log        *logger.Logger
}

// NewReconciler wires the reconciler. periods may be nil, in which case a
// Stripe checkout falls back to the current time as period end.
func NewReconciler(
	subs repository.SubscriptionRepository,
	webhookLog repository.WebhookEventRepository,
	publisher kafka.Publisher,
	m metrics.BillingMetrics,
	periods PeriodEndLookup,
	log *logger.Logger,
) Reconciler {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &reconciler{
		subs:       subs,
		webhookLog: webhookLog,
		publisher:  publisher,
		metrics:    m,
		periods:    periods,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// mutation is what a store update touched.
type mutation struct {
	userIDs []string
	status  string
}

func (r *reconciler) Apply(ctx context.Context, ev domain.ProviderEvent) (domain.WebhookOutcome, error) {
	start := time.Now()
	provider := string(ev.Provider())
	log := r.log.With("provider", provider, "eventType", ev.Type(), "eventID", ev.ExternalID())

	outcome, m, err := r.apply(ctx, ev, log)

	r.metrics.ObserveWebhook(provider, ev.Type(), string(outcome), time.Since(start))
	r.audit(ctx, ev, outcome, err)

	switch outcome {
	case domain.WebhookOutcomeFailed:
		return outcome, err
	case domain.WebhookOutcomeRejected:
		log.Warnw("Webhook event rejected", "error", err)
		return outcome, nil
	case domain.WebhookOutcomeIgnored:
		log.Debugw("Webhook event ignored")
		return outcome, nil
	}

	log.Infow("Webhook event processed", "users", m.userIDs, "status", m.status)
	r.publish(ctx, ev, m, log)
	return outcome, nil
}

func (r *reconciler) apply(ctx context.Context, ev domain.ProviderEvent, log *logger.Logger) (domain.WebhookOutcome, mutation, error) {
	if _, ok := ev.(domain.UnhandledEvent); ok {
		return domain.WebhookOutcomeIgnored, mutation{}, nil
	}
	if err := ev.Validate(); err != nil {
		return domain.WebhookOutcomeRejected, mutation{}, err
	}

	var (
		m   mutation
		err error
	)
	switch e := ev.(type) {
	case domain.StripeCheckoutCompleted:
		periodEnd := r.stripePeriodEnd(ctx, e.SubscriptionID, log)
		err = r.subs.UpsertStripeCheckout(ctx, e.UserID, e.CustomerID, e.SubscriptionID, domain.SubscriptionStatusActive, periodEnd)
		m = mutation{userIDs: []string{e.UserID}, status: domain.SubscriptionStatusActive}

	case domain.StripeSubscriptionChanged:
		m.status = e.Status
		m.userIDs, err = r.subs.UpdateByStripeCustomer(ctx, e.CustomerID, e.Status, e.CurrentPeriodEnd)
		if err == nil && len(m.userIDs) == 0 {
			log.Infow("No subscription for Stripe customer", "stripeCustomerID", e.CustomerID)
			return domain.WebhookOutcomeIgnored, m, nil
		}

	case domain.RazorpaySubscriptionActivated:
		m.status = e.Status
		m.userIDs, err = one(r.subs.ActivateRazorpay(ctx, e.SubscriptionID, e.Status, e.CurrentStart, e.CurrentEnd))

	case domain.RazorpaySubscriptionCancelled:
		m.status = domain.SubscriptionStatusCancelled
		m.userIDs, err = one(r.subs.CancelRazorpay(ctx, e.SubscriptionID, domain.SubscriptionStatusCancelled, r.now()))

	case domain.RazorpaySubscriptionCharged:
		m.userIDs, err = one(r.subs.RecordRazorpayCharge(ctx, e.SubscriptionID, e.PaymentID, e.Amount, e.PaidAt))

	case domain.RazorpayPaymentFailed:
		m.status = domain.SubscriptionStatusFailed
		m.userIDs, err = one(r.subs.MarkRazorpayPaymentFailed(ctx, e.SubscriptionID, domain.SubscriptionStatusFailed, e.ErrorDescription))

	default:
		return domain.WebhookOutcomeIgnored, mutation{}, nil
	}

	if err != nil {
		log.Errorw("Failed to apply webhook event", "error", err)
		return domain.WebhookOutcomeFailed, mutation{}, err
	}
	return domain.WebhookOutcomeProcessed, m, nil
}

func one(userID string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{userID}, nil
}

func (r *reconciler) stripePeriodEnd(ctx context.Context, subscriptionID string, log *logger.Logger) time.Time {
	if r.periods == nil {
		log.Warnw("Stripe client not configured, using current time as period end")
		return r.now()
	}
	end, err := r.periods.SubscriptionPeriodEnd(ctx, subscriptionID)
	if err != nil {
		log.Warnw("Stripe period end lookup failed, using current time", "stripeSubscriptionID", subscriptionID, "error", err)
		return r.now()
	}
	return end
}

func (r *reconciler) audit(ctx context.Context, ev domain.ProviderEvent, outcome domain.WebhookOutcome, cause error) {
	if r.webhookLog == nil {
		return
	}
	rec := &models.WebhookEvent{
		Provider:   string(ev.Provider()),
		EventType:  ev.Type(),
		Outcome:    string(outcome),
		ReceivedAt: r.now(),
	}
	if id := ev.ExternalID(); id != "" {
		rec.ExternalID = models.StringPtr(id)
	}
	if cause != nil {
		rec.ErrorMessage = models.StringPtr(cause.Error())
	}
	if err := r.webhookLog.Record(ctx, rec); err != nil {
		r.log.Warnw("Failed to record webhook event", "eventType", ev.Type(), "error", err)
	}
}

func (r *reconciler) publish(ctx context.Context, ev domain.ProviderEvent, m mutation, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	for _, userID := range m.userIDs {
		err := r.publisher.Publish(ctx, userID, kafka.Event{
			Type:          kafka.EventSubscriptionReconciled,
			Provider:      string(ev.Provider()),
			ProviderEvent: ev.Type(),
			ExternalID:    ev.ExternalID(),
			UserID:        userID,
			Status:        m.status,
			OccurredAt:    r.now(),
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warnw("Failed to publish reconciliation event", "userID", userID, "error", err)
		}
	}
}
