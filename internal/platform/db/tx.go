package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const DBTxKey contextKey = "db_tx"

// ErrNoConn is returned by WithTx when the context carries no post-scoped
// connection. Callers outside a request (unit tests, CLI helpers) match on
// it to run without a transaction.
var ErrNoConn = errors.New("no database connection in context")

// TxFromContext retrieves the active transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithTx begins a transaction on the post-scoped connection and returns a
// derived context carrying it. Repositories pick the transaction up
// automatically; the caller owns commit and rollback.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return ctx, nil, ErrNoConn
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return ctx, nil, err
	}
	return context.WithValue(ctx, DBTxKey, tx), tx, nil
}
