package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/integration/razorpay"
	"github.com/knowtix/billing-service/internal/integration/stripe"
	"github.com/knowtix/billing-service/internal/kafka"
	"github.com/knowtix/billing-service/internal/metrics"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/internal/repository"
	"github.com/knowtix/billing-service/pkg/logger"
)

// RazorpayCheckoutRequest is the body of POST /api/subscriptions.
type RazorpayCheckoutRequest struct {
	UserID string `json:"userId" validate:"required"`
	PlanID string `json:"planId" validate:"required"`
}

// StripeCheckoutRequest is the body of POST /api/stripe/checkout.
type StripeCheckoutRequest struct {
	PriceID    string `json:"priceId" validate:"required"`
	SuccessURL string `json:"successUrl" validate:"required,url"`
	CancelURL  string `json:"cancelUrl" validate:"required,url"`
}

// SubscriptionView is a subscription together with its entitlement.
type SubscriptionView struct {
	*models.Subscription
	Entitled bool `json:"entitled"`
}

// SubscriptionService starts checkouts and reads or cancels the caller's subscription.
type SubscriptionService interface {
	CreateRazorpaySubscription(ctx context.Context, id domain.Identity, req RazorpayCheckoutRequest) (*razorpay.Subscription, error)
	CreateStripeCheckout(ctx context.Context, id domain.Identity, req StripeCheckoutRequest) (*stripe.CheckoutSession, error)
	GetMine(ctx context.Context, id domain.Identity) (*SubscriptionView, error)
	CancelMine(ctx context.Context, id domain.Identity) (*razorpay.Subscription, error)
}

type subscriptionService struct {
	subs      repository.SubscriptionRepository
	users     repository.UserRepository
	razorpay  razorpay.Client
	stripe    stripe.Client
	publisher kafka.Publisher
	metrics   metrics.BillingMetrics
	log       *logger.Logger
}

// NewSubscriptionService wires the checkout flows. Either provider client may
// be nil when that provider is not configured.
func NewSubscriptionService(
	subs repository.SubscriptionRepository,
	users repository.UserRepository,
	rzp razorpay.Client,
	stripeClient stripe.Client,
	publisher kafka.Publisher,
	m metrics.BillingMetrics,
	log *logger.Logger,
) SubscriptionService {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &subscriptionService{
		subs:      subs,
		users:     users,
		razorpay:  rzp,
		stripe:    stripeClient,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

func (s *subscriptionService) CreateRazorpaySubscription(ctx context.Context, id domain.Identity, req RazorpayCheckoutRequest) (sub *razorpay.Subscription, err error) {
	defer func() { s.countCheckout(domain.ProviderRazorpay, err) }()

	if !id.Owns(req.UserID) {
		return nil, fmt.Errorf("%w: checkout for another user", domain.ErrUnauthorized)
	}
	if s.razorpay == nil {
		return nil, fmt.Errorf("razorpay: %w", domain.ErrNotConfigured)
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("user", req.UserID)
		}
		return nil, err
	}

	customer, err := s.razorpay.CreateCustomer(ctx, razorpay.CustomerInput{
		Name:    user.DisplayName(),
		Email:   user.Email,
		Contact: user.Contact(),
	})
	if err != nil {
		return nil, err
	}

	sub, err = s.razorpay.CreateSubscription(ctx, razorpay.SubscriptionInput{
		PlanID:     req.PlanID,
		CustomerID: customer.ID,
		TotalCount: domain.RazorpayTotalCount,
		Notes:      map[string]string{"userId": user.ID},
	})
	if err != nil {
		return nil, err
	}

	row := &models.Subscription{
		UserID:                 user.ID,
		RazorpayCustomerID:     models.StringPtr(customer.ID),
		RazorpaySubscriptionID: models.StringPtr(sub.ID),
		PlanID:                 models.StringPtr(req.PlanID),
		Status:                 sub.Status,
		CurrentPeriodStart:     unixPtr(sub.CurrentStart),
		CurrentPeriodEnd:       unixPtr(sub.CurrentEnd),
	}
	if err := s.subs.UpsertRazorpayCheckout(ctx, row); err != nil {
		s.log.Errorw("Razorpay subscription created but not persisted",
			"userID", user.ID, "razorpaySubscriptionID", sub.ID, "error", err)
		return nil, err
	}

	s.log.Infow("Razorpay checkout created", "userID", user.ID, "razorpaySubscriptionID", sub.ID, "planID", req.PlanID)
	s.publishCheckout(ctx, domain.ProviderRazorpay, user.ID, sub.ID, sub.Status)
	return sub, nil
}

func (s *subscriptionService) CreateStripeCheckout(ctx context.Context, id domain.Identity, req StripeCheckoutRequest) (sess *stripe.CheckoutSession, err error) {
	defer func() { s.countCheckout(domain.ProviderStripe, err) }()

	if id.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if s.stripe == nil {
		return nil, fmt.Errorf("stripe: %w", domain.ErrNotConfigured)
	}

	email := id.Email
	if email == "" {
		user, err := s.users.GetByID(ctx, id.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewNotFoundError("user", id.UserID)
			}
			return nil, err
		}
		email = user.Email
	}

	sess, err = s.stripe.CreateCheckoutSession(ctx, stripe.CheckoutSessionInput{
		UserID:     id.UserID,
		Email:      email,
		PriceID:    req.PriceID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		return nil, err
	}

	s.publishCheckout(ctx, domain.ProviderStripe, id.UserID, sess.ID, "")
	return sess, nil
}

func (s *subscriptionService) GetMine(ctx context.Context, id domain.Identity) (*SubscriptionView, error) {
	sub, err := s.subs.GetByUserID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("subscription", id.UserID)
		}
		return nil, err
	}
	return &SubscriptionView{Subscription: sub, Entitled: domain.Entitled(sub.Status)}, nil
}

// CancelMine asks Razorpay to cancel the caller's subscription. The local row
// changes when the subscription.cancelled webhook arrives.
func (s *subscriptionService) CancelMine(ctx context.Context, id domain.Identity) (*razorpay.Subscription, error) {
	if s.razorpay == nil {
		return nil, fmt.Errorf("razorpay: %w", domain.ErrNotConfigured)
	}

	sub, err := s.subs.GetByUserID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("subscription", id.UserID)
		}
		return nil, err
	}
	if sub.RazorpaySubscriptionID == nil {
		return nil, domain.NewNotFoundError("razorpay subscription", id.UserID)
	}

	current, err := s.razorpay.FetchSubscription(ctx, *sub.RazorpaySubscriptionID)
	if err != nil {
		return nil, err
	}
	// Razorpay refuses to cancel twice; report the upstream state instead.
	if domain.IsCancellation(current.Status) || current.Status == razorpay.StatusCompleted {
		s.log.Infow("Razorpay subscription already ended", "userID", id.UserID, "razorpaySubscriptionID", current.ID, "status", current.Status)
		return current, nil
	}

	out, err := s.razorpay.CancelSubscription(ctx, *sub.RazorpaySubscriptionID)
	if err != nil {
		return nil, err
	}
	s.log.Infow("Razorpay cancellation requested", "userID", id.UserID, "razorpaySubscriptionID", out.ID)
	return out, nil
}

func (s *subscriptionService) countCheckout(provider domain.Provider, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	s.metrics.IncCheckout(string(provider), outcome)
}

func (s *subscriptionService) publishCheckout(ctx context.Context, provider domain.Provider, userID, externalID, status string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.publisher.Publish(ctx, userID, kafka.Event{
		Type:       kafka.EventCheckoutCreated,
		Provider:   string(provider),
		ExternalID: externalID,
		UserID:     userID,
		Status:     status,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warnw("Failed to publish checkout event", "userID", userID, "error", err)
	}
}

func unixPtr(sec *int64) *time.Time {
	if sec == nil || *sec <= 0 {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}
