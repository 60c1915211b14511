package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// mapPgError wraps a raw driver error with operation context. Most
// metadata.Store methods are upserts or plain SELECTs that never hit a
// constraint, so there's little PostgreSQL-specific error taxonomy to
// translate — deuceerr conditions (gap/overlap/constraint/already
// finalized) are detected in Go above the SQL layer, not by inspecting
// driver error codes.
func mapPgError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %s (%s)", operation, pgErr.Message, pgErr.Code)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
