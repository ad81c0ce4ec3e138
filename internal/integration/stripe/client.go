package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

const (
	// Customer metadata key linking a Stripe customer to a Knowtix user.
	metadataUserIDKey = "user_id"

	// Session and subscription metadata key read back by the checkout webhook.
	MetadataCheckoutUserID = "userId"
)

// CheckoutSessionInput describes a hosted subscription checkout.
type CheckoutSessionInput struct {
	UserID     string
	Email      string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the part of a created session the caller needs.
type CheckoutSession struct {
	ID         string `json:"sessionId"`
	URL        string `json:"url"`
	CustomerID string `json:"-"`
}

// Client is the subset of the Stripe API this service uses.
type Client interface {
	// GetOrCreateCustomer finds the customer tagged with userID or creates one.
	GetOrCreateCustomer(ctx context.Context, userID, email string) (string, error)

	// CreateCheckoutSession starts a subscription checkout whose completion
	// event carries the user id in metadata.
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error)

	// SubscriptionPeriodEnd returns the end of the subscription's current period.
	SubscriptionPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)
}

type stripeClient struct {
	apiKey string
	client *client.API
	log    *logger.Logger
}

// NewClient creates a Stripe client. backends may be nil to use the live API.
func NewClient(apiKey string, backends *stripe.Backends, log *logger.Logger) Client {
	sc := &client.API{}
	sc.Init(apiKey, backends)
	return &stripeClient{apiKey: apiKey, client: sc, log: log}
}

func (sc *stripeClient) configured() error {
	if sc.apiKey == "" {
		return fmt.Errorf("stripe: STRIPE_SECRET_KEY: %w", domain.ErrNotConfigured)
	}
	return nil
}

func (sc *stripeClient) createCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			metadataUserIDKey: userID,
		},
	}
	params.Context = ctx

	cus, err := sc.client.Customers.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCustomer", err)
		return "", domain.NewProviderError(domain.ProviderStripe, "create customer", err)
	}

	sc.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID, "userID", userID)
	return cus.ID, nil
}

func (sc *stripeClient) GetOrCreateCustomer(ctx context.Context, userID, email string) (string, error) {
	if err := sc.configured(); err != nil {
		return "", err
	}

	searchParams := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   fmt.Sprintf("metadata['%s']:'%s'", metadataUserIDKey, userID),
			Limit:   stripe.Int64(1),
			Context: ctx,
		},
	}

	customers := sc.client.Customers.Search(searchParams)
	if customers.Next() {
		customer := customers.Customer()
		sc.log.Debugw("Found existing Stripe customer", "stripeCustomerID", customer.ID, "userID", userID)
		return customer.ID, nil
	}

	if err := customers.Err(); err != nil {
		logStripeError(sc.log, "SearchCustomers", err)
		var stripeErr *stripe.Error
		if !errors.As(err, &stripeErr) || stripeErr.Type == stripe.ErrorTypeInvalidRequest {
			return "", domain.NewProviderError(domain.ProviderStripe, "search customer", err)
		}
		sc.log.Warnw("Customer search failed, creating a new customer", "error", err)
	}

	return sc.createCustomer(ctx, userID, email)
}

func (sc *stripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	if err := sc.configured(); err != nil {
		return nil, err
	}

	customerID, err := sc.GetOrCreateCustomer(ctx, in.UserID, in.Email)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(in.UserID),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataCheckoutUserID: in.UserID},
		},
	}
	params.AddMetadata(MetadataCheckoutUserID, in.UserID)
	params.Context = ctx

	sess, err := sc.client.CheckoutSessions.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCheckoutSession", err)
		return nil, domain.NewProviderError(domain.ProviderStripe, "create checkout session", err)
	}

	sc.log.Infow("Stripe checkout session created", "sessionID", sess.ID, "userID", in.UserID)
	return &CheckoutSession{ID: sess.ID, URL: sess.URL, CustomerID: customerID}, nil
}

func (sc *stripeClient) SubscriptionPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	if err := sc.configured(); err != nil {
		return time.Time{}, err
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := sc.client.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		logStripeError(sc.log, "GetSubscription", err)
		return time.Time{}, domain.NewProviderError(domain.ProviderStripe, "get subscription", err)
	}
	if sub.CurrentPeriodEnd == 0 {
		return time.Time{}, domain.NewProviderError(domain.ProviderStripe, "get subscription",
			fmt.Errorf("subscription %s has no current_period_end", subscriptionID))
	}
	return time.Unix(sub.CurrentPeriodEnd, 0).UTC(), nil
}

func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
		return
	}
	log.Errorw("Stripe request failed", "operation", operation, "error", err)
}
