package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	ErrNotFound            = errors.New("not found")
	ErrOrderNotFound       = wrapNotFound("order")
	ErrTransactionNotFound = wrapNotFound("transaction")
	ErrSeatTaken           = errors.New("seat already sold on this flight")
	ErrOrderNotPayable     = errors.New("order is not awaiting payment")
	ErrPaymentInProgress   = errors.New("order already has an open payment attempt")
)

type notFoundError struct{ entity string }

func (e notFoundError) Error() string { return e.entity + " not found" }
func (e notFoundError) Unwrap() error { return ErrNotFound }

func wrapNotFound(entity string) error {
	return notFoundError{entity: entity}
}

const (
	uniqueViolation    = "23505"
	ticketsSeatKeyName = "tickets_flight_seat_key"
)

func isSeatTaken(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (pgErr.ConstraintName == "" || pgErr.ConstraintName == ticketsSeatKeyName)
}

func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
