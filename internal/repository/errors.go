package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/knowtix/billing-service/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup or keyed update matches no row.
	ErrNotFound = fmt.Errorf("repository: %w", domain.ErrNotFound)

	// ErrDuplicate is returned when a write hits a unique constraint.
	ErrDuplicate = fmt.Errorf("repository: %w", domain.ErrDuplicate)
)

const pgUniqueViolation = "23505"

// wrap converts driver errors into repository errors for op.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return fmt.Errorf("repository: %s: %w", op, err)
}
