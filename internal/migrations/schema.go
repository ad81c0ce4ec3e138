package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/knowtix/billing-service/pkg/logger"
)

//go:embed sql/*.sql
var sqlFS embed.FS

// Migrator applies the embedded schema to a Postgres database.
type Migrator struct {
	m   *migrate.Migrate
	log *logger.Logger
}

// New prepares a Migrator over db. Closing the Migrator does not close db.
func New(db *sql.DB, log *logger.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrations: create postgres driver: %w", err)
	}

	source, err := iofs.New(sqlFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrations: init migrate instance: %w", err)
	}
	return &Migrator{m: m, log: log}, nil
}

// Up applies every pending migration. Up on a current schema is a no-op.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.log.Info("migrations: schema is up to date")
			return nil
		}
		return fmt.Errorf("migrations: apply: %w", err)
	}
	mg.logVersion("applied")
	return nil
}

// Down reverts the given number of migrations.
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("migrations: steps must be positive, got %d", steps)
	}
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: revert: %w", err)
	}
	mg.logVersion("reverted")
	return nil
}

// Version returns the applied schema version. A fresh database reports 0.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migrations: read version: %w", err)
	}
	return v, dirty, nil
}

func (mg *Migrator) logVersion(action string) {
	if v, dirty, err := mg.Version(); err == nil {
		mg.log.Infow("migrations: "+action, "version", v, "dirty", dirty)
	}
}

// Close releases the source handle.
func (mg *Migrator) Close() error {
	srcErr, _ := mg.m.Close()
	return srcErr
}
