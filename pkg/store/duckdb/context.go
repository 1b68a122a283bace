package duckdb

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTransaction carries an open transaction in the context so a batch of
// archive writes commits or rolls back as one unit.
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func GetTransaction(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}
