package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/knowtix/billing-service/internal/config"
	"github.com/knowtix/billing-service/pkg/logger"
)

// Connect opens the Postgres pool through the pgx stdlib driver, retrying with
// exponential backoff until the database answers or maxWait elapses.
func Connect(ctx context.Context, cfg *config.Config, maxWait time.Duration, log *logger.Logger) (*sqlx.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("db: DATABASE_URL is not set")
	}

	var conn *sqlx.DB
	operation := func() error {
		db, err := sqlx.ConnectContext(ctx, "pgx", cfg.Database.DSN)
		if err != nil {
			log.Warnw("Database not reachable yet", "error", err)
			return err
		}
		conn = db
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = maxWait
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}

	conn.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Infow("Connected to PostgreSQL", "maxOpenConns", cfg.Database.MaxOpenConns)
	return conn, nil
}

// WithTx runs fn inside a transaction. fn's error rolls the transaction back.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("db: rollback after %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit transaction: %w", err)
	}
	return nil
}
