package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type TransactionRepository interface {
	OpenPending(ctx context.Context, txn *domain.Transaction, reclaimBefore time.Time) error
	AttachSession(ctx context.Context, transactionID int64, sessionID string) error
}

type PGTransactionRepository struct {
	db DB
}

func NewTransactionRepository(db DB) TransactionRepository {
	return &PGTransactionRepository{db: db}
}

// OpenPending stores txn as the single open payment attempt of its order. The
// order row stays locked while its status and open attempts are checked, so a
// concurrent settlement cannot slip in between.
//
// An order that is no longer PENDING yields ErrOrderNotPayable. An open attempt
// that already has a provider session, or was touched at or after
// reclaimBefore, yields ErrPaymentInProgress. An older attempt without a
// session never reached the provider and is handed back as txn.
func (r *PGTransactionRepository) OpenPending(ctx context.Context, txn *domain.Transaction, reclaimBefore time.Time) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var status domain.OrderStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, txn.OrderID).Scan(&status); err != nil {
		if noRows(err) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("lock order %d: %w", txn.OrderID, err)
	}
	if status != domain.OrderStatusPending {
		return ErrOrderNotPayable
	}

	var open domain.Transaction
	err = tx.QueryRow(ctx, `SELECT id, provider_session_id, updated_at FROM transactions
		WHERE order_id=$1 AND status=$2 ORDER BY id DESC LIMIT 1`, txn.OrderID, domain.TransactionStatusPending).
		Scan(&open.ID, &open.ProviderSessionID, &open.UpdatedAt)
	switch {
	case noRows(err):
		if err := tx.QueryRow(ctx, `INSERT INTO transactions (order_id, amount_cents, currency, status)
			VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
			txn.OrderID, txn.AmountCents, txn.Currency, domain.TransactionStatusPending).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt); err != nil {
			return fmt.Errorf("insert transaction for order %d: %w", txn.OrderID, err)
		}
	case err != nil:
		return fmt.Errorf("find open transaction of order %d: %w", txn.OrderID, err)
	case open.ProviderSessionID != nil || !open.UpdatedAt.Before(reclaimBefore):
		return ErrPaymentInProgress
	default:
		if err := tx.QueryRow(ctx, `UPDATE transactions SET amount_cents=$1, currency=$2, updated_at=now() WHERE id=$3
			RETURNING created_at, updated_at`, txn.AmountCents, txn.Currency, open.ID).Scan(&txn.CreatedAt, &txn.UpdatedAt); err != nil {
			return fmt.Errorf("reclaim transaction %d: %w", open.ID, err)
		}
		txn.ID = open.ID
	}
	txn.Status = domain.TransactionStatusPending

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit payment attempt: %w", err)
	}
	return nil
}

func (r *PGTransactionRepository) AttachSession(ctx context.Context, transactionID int64, sessionID string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE transactions SET provider_session_id=$1, updated_at=now() WHERE id=$2`, sessionID, transactionID)
	if err != nil {
		return fmt.Errorf("attach session to transaction %d: %w", transactionID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

var _ TransactionRepository = (*PGTransactionRepository)(nil)
