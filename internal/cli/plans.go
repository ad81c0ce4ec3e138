package cli

import (
	"fmt"

	"github.com/knowtix/billing-service/internal/integration/razorpay"
	"github.com/knowtix/billing-service/internal/repository"
	"github.com/knowtix/billing-service/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the default subscription plans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, log, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()
			defer log.Sync()

			plans := service.NewPlanService(repository.NewPostgresPlanRepository(conn, log), nil, log)
			return plans.Seed(commandContext(cmd))
		},
	}
}

type razorpayPlanFlags struct {
	name          string
	amount        string
	currency      string
	interval      string
	intervalCount int
}

func newPlansCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Manage provider billing plans",
	}

	var f razorpayPlanFlags
	create := &cobra.Command{
		Use:   "create-razorpay",
		Short: "Create a billing plan in Razorpay and print its id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateRazorpayPlan(cmd, f)
		},
	}
	create.Flags().StringVar(&f.name, "name", "", "Plan name (required)")
	create.Flags().StringVar(&f.amount, "amount", "", "Price per period in major units, e.g. 499.00 (required)")
	create.Flags().StringVar(&f.currency, "currency", "INR", "ISO currency code")
	create.Flags().StringVar(&f.interval, "interval", "monthly", "Billing period: daily, weekly, monthly or yearly")
	create.Flags().IntVar(&f.intervalCount, "interval-count", 1, "Number of periods between charges")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("amount")

	cmd.AddCommand(create)
	return cmd
}

func runCreateRazorpayPlan(cmd *cobra.Command, f razorpayPlanFlags) error {
	amount, err := decimal.NewFromString(f.amount)
	if err != nil {
		return fmt.Errorf("invalid --amount %q: %w", f.amount, err)
	}

	cfg, log, err := initEnv()
	if err != nil {
		return err
	}
	defer log.Sync()

	client := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, log)
	plans := service.NewPlanService(nil, client, log)

	plan, err := plans.CreateRazorpayPlan(commandContext(cmd), razorpay.PlanInput{
		Name:     f.name,
		Amount:   amount,
		Currency: f.currency,
		Period:   f.interval,
		Interval: f.intervalCount,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created Razorpay plan %s (%s every %d %s)\n",
		plan.ID, amount.StringFixed(2), plan.Interval, plan.Period)
	return nil
}
