package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TxBeginner opens transactions, *sql.DB satisfies it
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// RunInTx runs fn inside a transaction. The transaction is committed when fn returns nil
// and rolled back otherwise, in which case fn's error is returned joined with any
// rollback failure.
func RunInTx(ctx context.Context, database TxBeginner, fn func(tx *sql.Tx) error) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error opening tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if errRllbck := tx.Rollback(); errRllbck != nil {
			return errors.Join(err, fmt.Errorf("error while rolling back tx: %w", errRllbck))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing tx: %w", err)
	}
	return nil
}
