package api

import (
	"context"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/service/checkout"
	"github.com/Domenick1991/skybooking/internal/service/orders"
	"github.com/Domenick1991/skybooking/internal/service/webhook"
	"github.com/stretchr/testify/mock"
)

type MockFlightUseCase struct {
	mock.Mock
}

func (m *MockFlightUseCase) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) SeatMap(ctx context.Context, flightID int64) ([]domain.SeatAvailability, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).([]domain.SeatAvailability), args.Error(1)
}

type MockOrderUseCase struct {
	mock.Mock
}

func (m *MockOrderUseCase) CreateOrder(ctx context.Context, actor domain.Actor, requests []orders.TicketRequest) (*domain.Order, error) {
	args := m.Called(ctx, actor, requests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderUseCase) GetOrder(ctx context.Context, actor domain.Actor, id int64) (*domain.Order, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderUseCase) ListOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]domain.Order), args.Error(1)
}

type MockCheckoutUseCase struct {
	mock.Mock
}

func (m *MockCheckoutUseCase) CreateCheckoutSession(ctx context.Context, actor domain.Actor, orderID int64) (*checkout.Session, error) {
	args := m.Called(ctx, actor, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Session), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) HandleEvent(ctx context.Context, payload []byte, signature string) (*webhook.Result, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.Result), args.Error(1)
}

type MockReferenceUseCase struct {
	mock.Mock
}

func (m *MockReferenceUseCase) Countries(ctx context.Context) ([]domain.Country, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Country), args.Error(1)
}

func (m *MockReferenceUseCase) Airports(ctx context.Context) ([]domain.Airport, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Airport), args.Error(1)
}

func (m *MockReferenceUseCase) Airlines(ctx context.Context) ([]domain.Airline, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Airline), args.Error(1)
}

func (m *MockReferenceUseCase) SeedSeats(ctx context.Context, blueprints []domain.SeatBlueprint) (int64, error) {
	args := m.Called(ctx, blueprints)
	return args.Get(0).(int64), args.Error(1)
}
