package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/skybooking/internal/domain"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetSeat(ctx context.Context, id int64) (*domain.Seat, error)
	SeatMap(ctx context.Context, flightID int64) ([]domain.SeatAvailability, error)
}

type PGFlightRepository struct {
	db DB
}

func NewFlightRepository(db DB) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `f.id, f.flight_number, f.departure_airport, f.arrival_airport, f.departure_time, f.arrival_time,
	f.airplane_id, a.airplane_type_id, f.price_cents, f.status, f.created_at, f.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFlight(row scanner, f *domain.Flight) error {
	return row.Scan(&f.ID, &f.FlightNumber, &f.FromAirport, &f.ToAirport, &f.DepartureTime, &f.ArrivalTime,
		&f.AirplaneID, &f.AirplaneTypeID, &f.PriceCents, &f.Status, &f.CreatedAt, &f.UpdatedAt)
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights f JOIN airplanes a ON a.id = f.airplane_id ORDER BY f.departure_time`)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := scanFlight(rows, &f); err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights f JOIN airplanes a ON a.id = f.airplane_id WHERE f.id=$1`, id)
	var f domain.Flight
	if err := scanFlight(row, &f); err != nil {
		if noRows(err) {
			return nil, wrapNotFound("flight")
		}
		return nil, fmt.Errorf("get flight %d: %w", id, err)
	}
	return &f, nil
}

func (r *PGFlightRepository) GetSeat(ctx context.Context, id int64) (*domain.Seat, error) {
	row := r.db.QueryRow(ctx, `SELECT id, airplane_type_id, row_number, letter, class FROM seats WHERE id=$1`, id)
	var s domain.Seat
	if err := row.Scan(&s.ID, &s.AirplaneTypeID, &s.Row, &s.Letter, &s.Class); err != nil {
		if noRows(err) {
			return nil, wrapNotFound("seat")
		}
		return nil, fmt.Errorf("get seat %d: %w", id, err)
	}
	return &s, nil
}

// SeatMap lists the seat layout of the flight's airplane type, flagging seats
// that already carry a ticket for this flight.
func (r *PGFlightRepository) SeatMap(ctx context.Context, flightID int64) ([]domain.SeatAvailability, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.airplane_type_id, s.row_number, s.letter, s.class, (t.id IS NOT NULL) AS taken
		FROM flights f
		JOIN airplanes a ON a.id = f.airplane_id
		JOIN seats s ON s.airplane_type_id = a.airplane_type_id
		LEFT JOIN tickets t ON t.flight_id = f.id AND t.seat_id = s.id
		WHERE f.id = $1
		ORDER BY s.row_number, s.letter`, flightID)
	if err != nil {
		return nil, fmt.Errorf("query seat map: %w", err)
	}
	defer rows.Close()

	seats := make([]domain.SeatAvailability, 0)
	for rows.Next() {
		var s domain.SeatAvailability
		if err := rows.Scan(&s.ID, &s.AirplaneTypeID, &s.Row, &s.Letter, &s.Class, &s.Taken); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

var _ FlightRepository = (*PGFlightRepository)(nil)
