package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on error or panic; panics are re-raised.
//
//	err := db.WithTx(ctx, database, func(ctx context.Context, tx *sqlx.Tx) error {
//	    return tokenRepository.WithDB(tx).Create(ctx, token)
//	})
func WithTx(ctx context.Context, database *sqlx.DB, fn func(ctx context.Context, tx *sqlx.Tx) error) (err error) {
	tx, err := database.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil && rollbackErr != sql.ErrTxDone {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rollbackErr)
			}
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// Transactor exposes WithTx over a fixed database handle.
type Transactor struct {
	db *sqlx.DB
}

func NewTransactor(database *sqlx.DB) *Transactor {
	return &Transactor{db: database}
}

func (t *Transactor) WithTx(ctx context.Context, fn func(ctx context.Context, tx sqlx.ExtContext) error) error {
	return WithTx(ctx, t.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, tx)
	})
}
