package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/kafka"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/Domenick1991/skybooking/pkg/metrics"
)

type OrderUseCase interface {
	CreateOrder(ctx context.Context, actor domain.Actor, requests []TicketRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, actor domain.Actor, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// TicketRequest asks for one passenger on one seat of one flight.
type TicketRequest struct {
	FlightID           int64  `json:"flight_id"`
	SeatID             int64  `json:"seat_id"`
	PassengerFirstName string `json:"passenger_first_name"`
	PassengerLastName  string `json:"passenger_last_name"`
}

type OrderService struct {
	orders      repository.OrderRepository
	flights     repository.FlightRepository
	producer    Producer
	eventsTopic string
	metrics     *metrics.Metrics
	log         logger.Logger
}

type OrderServiceOption func(*OrderService)

func WithProducer(producer Producer, topic string) OrderServiceOption {
	return func(s *OrderService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func WithMetrics(m *metrics.Metrics) OrderServiceOption {
	return func(s *OrderService) {
		s.metrics = m
	}
}

func NewOrderService(
	orders repository.OrderRepository,
	flights repository.FlightRepository,
	log logger.Logger,
	opts ...OrderServiceOption,
) *OrderService {
	service := &OrderService{
		orders:  orders,
		flights: flights,
		metrics: metrics.NewNop(),
		log:     log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

type seatKey struct {
	flightID int64
	seatID   int64
}

// CreateOrder validates the requested tickets and stores them with a new
// PENDING order. Either every ticket is stored or none is.
func (s *OrderService) CreateOrder(ctx context.Context, actor domain.Actor, requests []TicketRequest) (*domain.Order, error) {
	order, err := s.createOrder(ctx, actor, requests)
	if err != nil {
		s.metrics.OrderFailures.WithLabelValues(domain.CodeOf(err)).Inc()
		return nil, err
	}
	s.metrics.OrdersCreated.Inc()
	return order, nil
}

func (s *OrderService) createOrder(ctx context.Context, actor domain.Actor, requests []TicketRequest) (*domain.Order, error) {
	if len(requests) == 0 {
		return nil, domain.NewError(domain.KindValidation, domain.CodeEmptyOrder, "order must contain at least one ticket")
	}

	seen := make(map[seatKey]struct{}, len(requests))
	for _, r := range requests {
		key := seatKey{flightID: r.FlightID, seatID: r.SeatID}
		if _, dup := seen[key]; dup {
			return nil, domain.NewError(domain.KindValidation, domain.CodeDuplicateSeatInRequest,
				fmt.Sprintf("seat %d on flight %d is requested more than once", r.SeatID, r.FlightID))
		}
		seen[key] = struct{}{}
	}

	flights := make(map[int64]*domain.Flight)
	seats := make(map[int64]*domain.Seat)
	tickets := make([]domain.Ticket, 0, len(requests))
	for _, r := range requests {
		first := strings.TrimSpace(r.PassengerFirstName)
		last := strings.TrimSpace(r.PassengerLastName)
		if first == "" || last == "" {
			return nil, domain.NewError(domain.KindValidation, domain.CodeInvalidPassenger, "passenger first and last name are required")
		}

		flight, err := s.flight(ctx, flights, r.FlightID)
		if err != nil {
			return nil, err
		}
		seat, err := s.seat(ctx, seats, r.SeatID)
		if err != nil {
			return nil, err
		}
		if seat.AirplaneTypeID != flight.AirplaneTypeID {
			return nil, domain.NewError(domain.KindValidation, domain.CodeSeatTypeMismatch,
				fmt.Sprintf("seat %s does not exist on the airplane of flight %s", seat.Designator(), flight.FlightNumber))
		}

		tickets = append(tickets, domain.Ticket{
			FlightID:           flight.ID,
			SeatID:             seat.ID,
			PassengerFirstName: first,
			PassengerLastName:  last,
			FlightNumber:       flight.FlightNumber,
			PriceCents:         flight.PriceCents,
			SeatDesignator:     seat.Designator(),
		})
	}

	order := &domain.Order{UserID: actor.UserID, Tickets: tickets}
	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrSeatTaken) {
			return nil, domain.WrapError(domain.KindConflict, domain.CodeOrderCreationFailed, "one of the requested seats is already taken", err)
		}
		return nil, domain.WrapError(domain.KindInternal, domain.CodeOrderCreationFailed, "order could not be created", err)
	}
	if order.Transactions == nil {
		order.Transactions = make([]domain.Transaction, 0)
	}

	s.publish(ctx, kafka.EventOrderCreated, order)
	return order, nil
}

func (s *OrderService) flight(ctx context.Context, known map[int64]*domain.Flight, id int64) (*domain.Flight, error) {
	if f, ok := known[id]; ok {
		return f, nil
	}
	f, err := s.flights.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindValidation, domain.CodeFlightNotFound, fmt.Sprintf("flight %d does not exist", id))
		}
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "load flight", err)
	}
	known[id] = f
	return f, nil
}

func (s *OrderService) seat(ctx context.Context, known map[int64]*domain.Seat, id int64) (*domain.Seat, error) {
	if st, ok := known[id]; ok {
		return st, nil
	}
	st, err := s.flights.GetSeat(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindValidation, domain.CodeSeatNotFound, fmt.Sprintf("seat %d does not exist", id))
		}
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "load seat", err)
	}
	known[id] = st
	return st, nil
}

// GetOrder returns the order if the actor owns it. Foreign orders are reported
// as missing.
func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, id int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, domain.CodeOrderNotFound, fmt.Sprintf("order %d not found", id))
		}
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "load order", err)
	}
	if !order.OwnedBy(actor) {
		return nil, domain.NewError(domain.KindNotFound, domain.CodeOrderNotFound, fmt.Sprintf("order %d not found", id))
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "list orders", err)
	}
	return orders, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *domain.Order) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.NewOrderEvent(eventType, order, nil)
	if err := s.producer.Publish(ctx, s.eventsTopic, strconv.FormatInt(order.ID, 10), event); err != nil {
		s.log.Warn("failed to publish order event", "type", eventType, "order_id", order.ID, "error", err)
	}
}

var _ OrderUseCase = (*OrderService)(nil)
