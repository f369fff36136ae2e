package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

// SettleFunc mutates the locked order and transaction in memory and reports
// whether anything must be written back.
type SettleFunc func(order *domain.Order, txn *domain.Transaction) bool

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	ListPendingBefore(ctx context.Context, deadline time.Time) ([]domain.Order, error)
	Settle(ctx context.Context, orderID, transactionID int64, fn SettleFunc) (*domain.Order, *domain.Transaction, bool, error)
}

type PGOrderRepository struct {
	db DB
}

func NewOrderRepository(db DB) OrderRepository {
	return &PGOrderRepository{db: db}
}

// Create inserts the order and all of its tickets in one transaction. A ticket
// colliding with an already sold (flight, seat) aborts the whole order with ErrSeatTaken.
func (r *PGOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	order.Status = domain.OrderStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO orders (user_id, status) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		order.UserID, order.Status).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Tickets {
		t := &order.Tickets[i]
		t.OrderID = order.ID
		t.Status = domain.TicketStatusBooked
		if err := tx.QueryRow(ctx, `INSERT INTO tickets (order_id, flight_id, seat_id, passenger_first_name, passenger_last_name, status)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			t.OrderID, t.FlightID, t.SeatID, t.PassengerFirstName, t.PassengerLastName, t.Status).Scan(&t.ID); err != nil {
			if isSeatTaken(err) {
				return fmt.Errorf("ticket for flight %d seat %d: %w", t.FlightID, t.SeatID, ErrSeatTaken)
			}
			return fmt.Errorf("insert ticket for flight %d seat %d: %w", t.FlightID, t.SeatID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isSeatTaken(err) {
			return ErrSeatTaken
		}
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *PGOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.QueryRow(ctx, `SELECT id, user_id, status, created_at, updated_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if noRows(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	tickets, err := loadTickets(ctx, r.db, o.ID)
	if err != nil {
		return nil, err
	}
	o.Tickets = tickets

	txns, err := loadTransactions(ctx, r.db, o.ID)
	if err != nil {
		return nil, err
	}
	o.Transactions = txns
	return &o, nil
}

func (r *PGOrderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	orders, err := r.listHeaders(ctx, `SELECT id, user_id, status, created_at, updated_at FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		tickets, err := loadTickets(ctx, r.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Tickets = tickets
	}
	return orders, nil
}

// ListPendingBefore returns order headers still PENDING that were created before deadline.
func (r *PGOrderRepository) ListPendingBefore(ctx context.Context, deadline time.Time) ([]domain.Order, error) {
	return r.listHeaders(ctx, `SELECT id, user_id, status, created_at, updated_at FROM orders WHERE status=$1 AND created_at < $2 ORDER BY created_at`,
		domain.OrderStatusPending, deadline)
}

func (r *PGOrderRepository) listHeaders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Settle locks the order and the transaction rows, hands them to fn and, when
// fn reports a change, writes transaction, order and ticket statuses back in the
// same database transaction. Nothing is written when fn returns false.
func (r *PGOrderRepository) Settle(ctx context.Context, orderID, transactionID int64, fn SettleFunc) (*domain.Order, *domain.Transaction, bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, nil, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var o domain.Order
	if err := tx.QueryRow(ctx, `SELECT id, user_id, status, created_at, updated_at FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if noRows(err) {
			return nil, nil, false, ErrOrderNotFound
		}
		return nil, nil, false, fmt.Errorf("lock order %d: %w", orderID, err)
	}

	var t domain.Transaction
	if err := tx.QueryRow(ctx, `SELECT id, order_id, amount_cents, currency, status, provider_transaction_id, provider_session_id, created_at, updated_at
		FROM transactions WHERE id=$1 AND order_id=$2 FOR UPDATE`, transactionID, orderID).
		Scan(&t.ID, &t.OrderID, &t.AmountCents, &t.Currency, &t.Status, &t.ProviderTransactionID, &t.ProviderSessionID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if noRows(err) {
			return nil, nil, false, ErrTransactionNotFound
		}
		return nil, nil, false, fmt.Errorf("lock transaction %d: %w", transactionID, err)
	}

	tickets, err := loadTickets(ctx, tx, o.ID)
	if err != nil {
		return nil, nil, false, err
	}
	o.Tickets = tickets

	before := o.Status
	if !fn(&o, &t) {
		return &o, &t, false, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE transactions SET status=$1, provider_transaction_id=$2, updated_at=now() WHERE id=$3`,
		t.Status, t.ProviderTransactionID, t.ID); err != nil {
		return nil, nil, false, fmt.Errorf("update transaction %d: %w", t.ID, err)
	}

	if o.Status != before {
		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$1, updated_at=now() WHERE id=$2`, o.Status, o.ID); err != nil {
			return nil, nil, false, fmt.Errorf("update order %d: %w", o.ID, err)
		}
		if ticketStatus, ok := ticketStatusFor(o.Status); ok {
			if _, err := tx.Exec(ctx, `UPDATE tickets SET status=$1 WHERE order_id=$2 AND status=$3`,
				ticketStatus, o.ID, domain.TicketStatusBooked); err != nil {
				return nil, nil, false, fmt.Errorf("update tickets of order %d: %w", o.ID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, false, fmt.Errorf("commit settlement: %w", err)
	}
	return &o, &t, true, nil
}

func ticketStatusFor(status domain.OrderStatus) (domain.TicketStatus, bool) {
	switch status {
	case domain.OrderStatusPaid:
		return domain.TicketStatusConfirmed, true
	case domain.OrderStatusCancelled:
		return domain.TicketStatusCancelled, true
	default:
		return "", false
	}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadTickets(ctx context.Context, q querier, orderID int64) ([]domain.Ticket, error) {
	rows, err := q.Query(ctx, `
		SELECT t.id, t.order_id, t.flight_id, t.seat_id, t.passenger_first_name, t.passenger_last_name, t.status,
		       f.flight_number, f.price_cents, s.row_number, s.letter
		FROM tickets t
		JOIN flights f ON f.id = t.flight_id
		JOIN seats s ON s.id = t.seat_id
		WHERE t.order_id = $1
		ORDER BY t.passenger_last_name, t.passenger_first_name`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query tickets of order %d: %w", orderID, err)
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		var t domain.Ticket
		var seat domain.Seat
		if err := rows.Scan(&t.ID, &t.OrderID, &t.FlightID, &t.SeatID, &t.PassengerFirstName, &t.PassengerLastName, &t.Status,
			&t.FlightNumber, &t.PriceCents, &seat.Row, &seat.Letter); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		t.SeatDesignator = seat.Designator()
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func loadTransactions(ctx context.Context, q querier, orderID int64) ([]domain.Transaction, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, amount_cents, currency, status, provider_transaction_id, provider_session_id, created_at, updated_at
		FROM transactions WHERE order_id=$1 ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query transactions of order %d: %w", orderID, err)
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0)
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.OrderID, &t.AmountCents, &t.Currency, &t.Status, &t.ProviderTransactionID, &t.ProviderSessionID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

var _ OrderRepository = (*PGOrderRepository)(nil)
