package cli

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/knowtix/billing-service/internal/db"
	"github.com/knowtix/billing-service/internal/migrations"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/spf13/cobra"
)

var downSteps int

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		RunE: withMigrator(func(cmd *cobra.Command, m *migrations.Migrator) error {
			return m.Down(downSteps)
		}),
	}
	down.Flags().IntVarP(&downSteps, "steps", "n", 1, "Number of migrations to revert")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withMigrator(func(cmd *cobra.Command, m *migrations.Migrator) error {
				return m.Up()
			}),
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: withMigrator(func(cmd *cobra.Command, m *migrations.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			}),
		},
	)
	return cmd
}

func withMigrator(fn func(cmd *cobra.Command, m *migrations.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		conn, log, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		defer log.Sync()

		m, err := migrations.New(conn.DB, log)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(cmd, m)
	}
}

func openDB(cmd *cobra.Command) (*sqlx.DB, *logger.Logger, error) {
	cfg, log, err := initEnv()
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Connect(commandContext(cmd), cfg, 10*time.Second, log)
	if err != nil {
		return nil, nil, err
	}
	return conn, log, nil
}
