package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/vision-gateway/internal/blob"
)

// checkViolationCode is the PostgreSQL error code for check constraint violations
const checkViolationCode = "23514"

// MapError maps a database error to the blob package's errors, keeping the
// original error for debugging.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", blob.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == checkViolationCode {
			return fmt.Errorf("%w: check constraint violation (%s): %v",
				blob.ErrEmptyKey, pgErr.ConstraintName, err)
		}
		return fmt.Errorf("postgres error %s: %w", pgErr.Code, err)
	}

	return err
}
