package database

import (
	"context"
	"errors"
	"time"

	"github.com/irfndi/predictarena-go/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a lookup matches no row. It is distinct from
// storage failures.
var ErrNotFound = utils.ErrNotFound

const uniqueViolation = "23505"

// mapError converts driver errors into engine error kinds.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return utils.Wrap(utils.KindNotFound, err, op+": not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return utils.Wrap(utils.KindDuplicatePrediction, err, utils.ErrDuplicatePrediction.Message)
	}
	return utils.Wrap(utils.KindStorageFailure, err, op)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
