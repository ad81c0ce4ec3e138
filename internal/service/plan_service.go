package service

import (
	"context"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/integration/razorpay"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/internal/repository"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/shopspring/decimal"
)

// DefaultPlans are the tiers written by the seed command.
var DefaultPlans = []models.SubscriptionPlan{
	{
		Name:        "Free",
		Description: "Basic features for individual users",
		Price:       decimal.Zero,
		Currency:    "USD",
		Features: models.StringList{
			"Basic query generation",
			"Limited query history",
			"Community support",
			"Standard response time",
		},
	},
	{
		Name:        "Premium",
		Description: "Advanced features for power users",
		Price:       decimal.NewFromInt(100),
		Currency:    "USD",
		Features: models.StringList{
			"Advanced query generation",
			"Unlimited query history",
			"Priority support",
			"Faster response time",
			"Custom query templates",
			"API access",
		},
	},
	{
		Name:        "Business",
		Description: "Enterprise features for teams",
		Price:       decimal.NewFromInt(5),
		Currency:    "USD",
		Features: models.StringList{
			"All Premium features",
			"Team collaboration",
			"User management",
			"Advanced analytics",
			"Custom integrations",
			"Dedicated support",
			"SLA guarantees",
		},
	},
}

// PlanService lists, seeds and publishes plans.
type PlanService interface {
	ListActive(ctx context.Context) ([]models.SubscriptionPlan, error)
	Seed(ctx context.Context) error
	CreateRazorpayPlan(ctx context.Context, in razorpay.PlanInput) (*razorpay.Plan, error)
}

type planService struct {
	plans    repository.PlanRepository
	razorpay razorpay.Client
	log      *logger.Logger
}

func NewPlanService(plans repository.PlanRepository, rzp razorpay.Client, log *logger.Logger) PlanService {
	return &planService{plans: plans, razorpay: rzp, log: log}
}

func (s *planService) ListActive(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return s.plans.ListActive(ctx)
}

// Seed upserts DefaultPlans by name, so running it twice is harmless.
func (s *planService) Seed(ctx context.Context) error {
	for _, p := range DefaultPlans {
		plan := p
		plan.IsActive = true
		if err := s.plans.UpsertByName(ctx, &plan); err != nil {
			return err
		}
		s.log.Infow("Plan seeded", "name", plan.Name, "price", plan.Price.String(), "currency", plan.Currency)
	}
	return nil
}

func (s *planService) CreateRazorpayPlan(ctx context.Context, in razorpay.PlanInput) (*razorpay.Plan, error) {
	if s.razorpay == nil {
		return nil, domain.ErrNotConfigured
	}
	return s.razorpay.CreatePlan(ctx, in)
}
