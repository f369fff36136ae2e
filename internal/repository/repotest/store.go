// Package repotest provides an in-memory implementation of the booking
// repositories for service tests. It enforces the same (flight, seat)
// uniqueness and all-or-nothing writes as the postgres schema.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/repository"
)

type seatKey struct {
	flightID int64
	seatID   int64
}

type Store struct {
	mu      sync.Mutex
	flights map[int64]domain.Flight
	seats   map[int64]domain.Seat
	orders  map[int64]*domain.Order
	txns    map[int64]*domain.Transaction
	taken   map[seatKey]int64

	nextOrder, nextTicket, nextTxn int64

	// OpenPendingErr, when set, is returned by TransactionRepository.OpenPending.
	OpenPendingErr error
	now              func() time.Time
}

func NewStore() *Store {
	return &Store{
		flights: make(map[int64]domain.Flight),
		seats:   make(map[int64]domain.Seat),
		orders:  make(map[int64]*domain.Order),
		txns:    make(map[int64]*domain.Transaction),
		taken:   make(map[seatKey]int64),
		now:     time.Now,
	}
}

func (s *Store) AddFlight(f domain.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights[f.ID] = f
}

func (s *Store) AddSeat(seat domain.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats[seat.ID] = seat
}

// TransactionCount returns the number of stored transactions of an order.
func (s *Store) TransactionCount(orderID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.txns {
		if t.OrderID == orderID {
			n++
		}
	}
	return n
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// AddTransaction stores txn as is, bypassing the open-attempt checks. It is
// meant for states the repositories no longer produce.
func (s *Store) AddTransaction(txn domain.Transaction) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTxn++
	txn.ID = s.nextTxn
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt, txn.UpdatedAt = s.now(), s.now()
	}
	s.txns[txn.ID] = cloneTransaction(&txn)
	return txn.ID
}

// SetClock replaces the store clock.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) FlightRepository() repository.FlightRepository {
	return flightRepo{s}
}

func (s *Store) OrderRepository() repository.OrderRepository {
	return orderRepo{s}
}

func (s *Store) TransactionRepository() repository.TransactionRepository {
	return txnRepo{s}
}

type flightRepo struct{ s *Store }

func (r flightRepo) List(_ context.Context) ([]domain.Flight, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Flight, 0, len(r.s.flights))
	for _, f := range r.s.flights {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r flightRepo) GetByID(_ context.Context, id int64) (*domain.Flight, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.flights[id]
	if !ok {
		return nil, fmt.Errorf("flight %d: %w", id, repository.ErrNotFound)
	}
	return &f, nil
}

func (r flightRepo) GetSeat(_ context.Context, id int64) (*domain.Seat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seat, ok := r.s.seats[id]
	if !ok {
		return nil, fmt.Errorf("seat %d: %w", id, repository.ErrNotFound)
	}
	return &seat, nil
}

func (r flightRepo) SeatMap(_ context.Context, flightID int64) ([]domain.SeatAvailability, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.flights[flightID]
	if !ok {
		return nil, fmt.Errorf("flight %d: %w", flightID, repository.ErrNotFound)
	}
	out := make([]domain.SeatAvailability, 0)
	for _, seat := range r.s.seats {
		if seat.AirplaneTypeID != f.AirplaneTypeID {
			continue
		}
		_, taken := r.s.taken[seatKey{flightID: flightID, seatID: seat.ID}]
		out = append(out, domain.SeatAvailability{Seat: seat, Taken: taken})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(_ context.Context, order *domain.Order) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[seatKey]struct{}, len(order.Tickets))
	for _, t := range order.Tickets {
		key := seatKey{flightID: t.FlightID, seatID: t.SeatID}
		if _, ok := s.taken[key]; ok {
			return fmt.Errorf("ticket for flight %d seat %d: %w", t.FlightID, t.SeatID, repository.ErrSeatTaken)
		}
		if _, ok := pending[key]; ok {
			return fmt.Errorf("ticket for flight %d seat %d: %w", t.FlightID, t.SeatID, repository.ErrSeatTaken)
		}
		pending[key] = struct{}{}
	}

	s.nextOrder++
	now := s.now()
	order.ID = s.nextOrder
	order.Status = domain.OrderStatusPending
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.Tickets {
		s.nextTicket++
		t := &order.Tickets[i]
		t.ID = s.nextTicket
		t.OrderID = order.ID
		t.Status = domain.TicketStatusBooked
		s.taken[seatKey{flightID: t.FlightID, seatID: t.SeatID}] = t.ID
	}
	stored := cloneOrder(order)
	stored.Transactions = nil
	s.orders[order.ID] = stored
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	out := cloneOrder(o)
	out.Transactions = s.transactionsOf(id)
	return out, nil
}

func (r orderRepo) ListByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	return r.s.filter(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

func (r orderRepo) ListPendingBefore(_ context.Context, deadline time.Time) ([]domain.Order, error) {
	return r.s.filter(func(o *domain.Order) bool {
		return o.Status == domain.OrderStatusPending && o.CreatedAt.Before(deadline)
	}), nil
}

// Settle holds the store lock for the whole callback, which serialises
// settlements the way row locks do.
func (r orderRepo) Settle(_ context.Context, orderID, transactionID int64, fn repository.SettleFunc) (*domain.Order, *domain.Transaction, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[orderID]
	if !ok {
		return nil, nil, false, repository.ErrOrderNotFound
	}
	storedTxn, ok := s.txns[transactionID]
	if !ok || storedTxn.OrderID != orderID {
		return nil, nil, false, repository.ErrTransactionNotFound
	}

	o := cloneOrder(stored)
	t := cloneTransaction(storedTxn)
	if !fn(o, t) {
		return o, t, false, nil
	}

	t.UpdatedAt = s.now()
	s.txns[t.ID] = cloneTransaction(t)
	if o.Status != stored.Status {
		o.UpdatedAt = s.now()
		s.orders[o.ID] = cloneOrder(o)
	}
	return o, t, true, nil
}

type txnRepo struct{ s *Store }

// OpenPending applies the same order and open-attempt checks as the
// postgres repository while holding the store lock.
func (r txnRepo) OpenPending(_ context.Context, txn *domain.Transaction, reclaimBefore time.Time) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenPendingErr != nil {
		return s.OpenPendingErr
	}
	o, ok := s.orders[txn.OrderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != domain.OrderStatusPending {
		return repository.ErrOrderNotPayable
	}

	now := s.now()
	var open *domain.Transaction
	for _, t := range s.txns {
		if t.OrderID == txn.OrderID && t.Status == domain.TransactionStatusPending && (open == nil || t.ID > open.ID) {
			open = t
		}
	}
	if open != nil {
		if open.ProviderSessionID != nil || !open.UpdatedAt.Before(reclaimBefore) {
			return repository.ErrPaymentInProgress
		}
		open.AmountCents, open.Currency, open.UpdatedAt = txn.AmountCents, txn.Currency, now
		*txn = *cloneTransaction(open)
		return nil
	}

	s.nextTxn++
	txn.ID = s.nextTxn
	txn.Status = domain.TransactionStatusPending
	txn.CreatedAt, txn.UpdatedAt = now, now
	s.txns[txn.ID] = cloneTransaction(txn)
	return nil
}

func (r txnRepo) AttachSession(_ context.Context, transactionID int64, sessionID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[transactionID]
	if !ok {
		return repository.ErrTransactionNotFound
	}
	id := sessionID
	t.ProviderSessionID = &id
	return nil
}

func (s *Store) filter(keep func(*domain.Order) bool) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) transactionsOf(orderID int64) []domain.Transaction {
	out := make([]domain.Transaction, 0)
	for _, t := range s.txns {
		if t.OrderID == orderID {
			out = append(out, *cloneTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Tickets = append([]domain.Ticket(nil), o.Tickets...)
	c.Transactions = append([]domain.Transaction(nil), o.Transactions...)
	return &c
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	if t.ProviderTransactionID != nil {
		v := *t.ProviderTransactionID
		c.ProviderTransactionID = &v
	}
	if t.ProviderSessionID != nil {
		v := *t.ProviderSessionID
		c.ProviderSessionID = &v
	}
	return &c
}

var (
	_ repository.FlightRepository      = flightRepo{}
	_ repository.OrderRepository       = orderRepo{}
	_ repository.TransactionRepository = txnRepo{}
)
