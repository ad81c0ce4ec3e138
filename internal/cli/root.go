package cli

import (
	"fmt"

	"github.com/knowtix/billing-service/internal/config"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/spf13/cobra"
)

var envFile string

// NewRootCommand builds the knowtix command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "knowtix",
		Short:         "Knowtix billing service",
		Long:          `Knowtix billing service: subscription checkout, provider webhook reconciliation, and the account API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "Path to a .env file (ignored in production)")

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newPlansCommand(),
	)
	return root
}

// initEnv loads configuration and builds the logger every command uses.
func initEnv() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewWithFormat(logger.ParseLevel(cfg.App.LogLevel), cfg.App.LogFormat)
	return cfg, log, nil
}
