package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

type TicketStatus string

const (
	TicketStatusBooked    TicketStatus = "BOOKED"
	TicketStatusConfirmed TicketStatus = "CONFIRMED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
	TicketStatusUsed      TicketStatus = "USED"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// Order is a container for tickets and the payment attempts made for them.
type Order struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"user_id"`
	Status       OrderStatus   `json:"status"`
	Tickets      []Ticket      `json:"tickets"`
	Transactions []Transaction `json:"transactions"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Ticket is one passenger's claim on a seat of a flight. FlightNumber, PriceCents
// and SeatDesignator are read-side projections of the referenced flight and seat.
type Ticket struct {
	ID                 int64        `json:"id"`
	OrderID            int64        `json:"order_id"`
	FlightID           int64        `json:"flight_id"`
	SeatID             int64        `json:"seat_id"`
	PassengerFirstName string       `json:"passenger_first_name"`
	PassengerLastName  string       `json:"passenger_last_name"`
	Status             TicketStatus `json:"status"`

	FlightNumber   string `json:"flight_number,omitempty"`
	PriceCents     int64  `json:"price_cents,omitempty"`
	SeatDesignator string `json:"seat,omitempty"`
}

func (t Ticket) PassengerName() string {
	return t.PassengerFirstName + " " + t.PassengerLastName
}

type Transaction struct {
	ID                    int64             `json:"id"`
	OrderID               int64             `json:"order_id"`
	AmountCents           int64             `json:"amount_cents"`
	Currency              string            `json:"currency"`
	Status                TransactionStatus `json:"status"`
	ProviderTransactionID *string           `json:"provider_transaction_id,omitempty"`
	ProviderSessionID     *string           `json:"provider_session_id,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// TotalCents sums the flight price of every ticket in the order.
func (o *Order) TotalCents() int64 {
	var total int64
	for _, t := range o.Tickets {
		total += t.PriceCents
	}
	return total
}

// OwnedBy reports whether the order may be seen and paid by the actor.
func (o *Order) OwnedBy(actor Actor) bool {
	return actor.Admin || o.UserID == actor.UserID
}

type PaymentOutcome int

const (
	PaymentCompleted PaymentOutcome = iota + 1
	PaymentExpired
)

func (p PaymentOutcome) String() string {
	switch p {
	case PaymentCompleted:
		return "completed"
	case PaymentExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Settle resolves a PENDING transaction together with its PENDING order and
// the order's booked tickets. It returns false and leaves every record
// untouched when either the transaction or the order is already resolved.
func Settle(order *Order, txn *Transaction, outcome PaymentOutcome, providerRef string) bool {
	if txn.Status != TransactionStatusPending || order.Status != OrderStatusPending {
		return false
	}

	var orderStatus OrderStatus
	var ticketStatus TicketStatus
	switch outcome {
	case PaymentCompleted:
		txn.Status = TransactionStatusSuccess
		if providerRef != "" {
			ref := providerRef
			txn.ProviderTransactionID = &ref
		}
		orderStatus, ticketStatus = OrderStatusPaid, TicketStatusConfirmed
	case PaymentExpired:
		txn.Status = TransactionStatusFailed
		orderStatus, ticketStatus = OrderStatusCancelled, TicketStatusCancelled
	default:
		return false
	}

	order.Status = orderStatus
	for i := range order.Tickets {
		if order.Tickets[i].Status == TicketStatusBooked {
			order.Tickets[i].Status = ticketStatus
		}
	}
	return true
}

// Actor is the caller identity supplied by the upstream gateway.
type Actor struct {
	UserID int64
	Admin  bool
}
