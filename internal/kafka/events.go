package kafka

import (
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/google/uuid"
)

const (
	EventOrderCreated   = "order_created"
	EventOrderPaid      = "order_paid"
	EventOrderCancelled = "order_cancelled"
)

type TicketInfo struct {
	Passenger    string `json:"passenger"`
	FlightNumber string `json:"flight_number"`
	Seat         string `json:"seat"`
}

// OrderEvent is published for every order lifecycle change. ID is unique per
// event so consumers can drop redeliveries.
type OrderEvent struct {
	ID            string       `json:"id"`
	Type          string       `json:"type"`
	OrderID       int64        `json:"order_id"`
	UserID        int64        `json:"user_id"`
	Status        string       `json:"status"`
	TransactionID int64        `json:"transaction_id,omitempty"`
	AmountCents   int64        `json:"amount_cents,omitempty"`
	Currency      string       `json:"currency,omitempty"`
	Tickets       []TicketInfo `json:"tickets"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

func NewOrderEvent(eventType string, order *domain.Order, txn *domain.Transaction) OrderEvent {
	event := OrderEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     string(order.Status),
		Tickets:    make([]TicketInfo, 0, len(order.Tickets)),
		OccurredAt: time.Now().UTC(),
	}
	if txn != nil {
		event.TransactionID = txn.ID
		event.AmountCents = txn.AmountCents
		event.Currency = txn.Currency
	}
	for _, t := range order.Tickets {
		event.Tickets = append(event.Tickets, TicketInfo{
			Passenger:    t.PassengerName(),
			FlightNumber: t.FlightNumber,
			Seat:         t.SeatDesignator,
		})
	}
	return event
}
