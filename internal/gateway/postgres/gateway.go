// Package postgres implements the table gateway against the remote
// relational backend using pgx.
package postgres

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/farookquisar/restate-client/pkg/remoteerrors"
)

// DB is the subset of pgxpool.Pool the gateway uses. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Gateway is the pgx-backed implementation of gateway.Tables.
type Gateway struct {
	db     DB
	logger *slog.Logger
}

// New creates a new table gateway.
func New(db DB, logger *slog.Logger) *Gateway {
	return &Gateway{db: db, logger: logger}
}

// classify converts a raw pgx error into a RemoteError for the given
// operation, distinguishing deadline expiry from other transport failures.
func classify(op string, err error) error {
	if pgconn.Timeout(err) {
		return remoteerrors.Timeout(op, err)
	}
	return remoteerrors.Classify(op, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
