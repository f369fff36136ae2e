package flights

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/pkg/logger"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	SeatMap(ctx context.Context, flightID int64) ([]domain.SeatAvailability, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
	log   logger.Logger
}

// NewFlightService builds the service; cache may be nil.
func NewFlightService(repo repository.FlightRepository, cache FlightCache, log logger.Logger) *FlightService {
	return &FlightService{repo: repo, cache: cache, log: log}
}

// List serves the schedule from the cache when possible. Cache failures only
// cost a database round trip.
func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil {
			s.log.Warn("flights cache read failed", "error", err)
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "list flights", err)
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.log.Warn("flights cache write failed", "error", err)
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, id)
	}
	return flight, nil
}

// SeatMap lists the seats of the flight's airplane type with their availability.
func (s *FlightService) SeatMap(ctx context.Context, flightID int64) ([]domain.SeatAvailability, error) {
	if _, err := s.repo.GetByID(ctx, flightID); err != nil {
		return nil, notFoundOr(err, flightID)
	}
	seats, err := s.repo.SeatMap(ctx, flightID)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "load seat map", err)
	}
	return seats, nil
}

func notFoundOr(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewError(domain.KindNotFound, domain.CodeFlightNotFound, fmt.Sprintf("flight %d not found", id))
	}
	return domain.WrapError(domain.KindInternal, domain.CodeInternal, "load flight", err)
}

var _ FlightUseCase = (*FlightService)(nil)
