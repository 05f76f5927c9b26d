package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

// Postgres SQLSTATE codes that signal a lost race rather than bad data
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// classify maps a storage error to the domain taxonomy. Errors that are
// already typed pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrDuplicateTransaction) {
		return err
	}

	var conflict *domain.RollupConflictError
	var persistence *domain.PersistenceError
	if errors.As(err, &conflict) || errors.As(err, &persistence) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return &domain.RollupConflictError{Key: op, Err: err}
		case pgUniqueViolation:
			if pgErr.ConstraintName == "transactions_store_txn_key" {
				return domain.ErrDuplicateTransaction
			}
		}
	}
	return &domain.PersistenceError{Op: op, Err: err}
}
