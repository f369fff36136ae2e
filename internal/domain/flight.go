package domain

import (
	"fmt"
	"time"
)

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusBoarding  FlightStatus = "BOARDING"
	FlightStatusDeparted  FlightStatus = "DEPARTED"
	FlightStatusDelayed   FlightStatus = "DELAYED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
)

type SeatClass string

const (
	SeatClassEconomy  SeatClass = "ECONOMY"
	SeatClassBusiness SeatClass = "BUSINESS"
	SeatClassFirst    SeatClass = "FIRST"
)

// Flight is a scheduled departure. Its seat layout comes from the airplane type
// of the assigned airplane.
type Flight struct {
	ID             int64        `json:"id"`
	FlightNumber   string       `json:"flight_number"`
	FromAirport    string       `json:"from_airport"`
	ToAirport      string       `json:"to_airport"`
	DepartureTime  time.Time    `json:"departure_time"`
	ArrivalTime    time.Time    `json:"arrival_time"`
	AirplaneID     int64        `json:"airplane_id"`
	AirplaneTypeID int64        `json:"airplane_type_id"`
	PriceCents     int64        `json:"price_cents"`
	Status         FlightStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Seat belongs to an airplane type, not to a tail number or a flight.
type Seat struct {
	ID             int64     `json:"id"`
	AirplaneTypeID int64     `json:"airplane_type_id"`
	Row            int       `json:"row"`
	Letter         string    `json:"letter"`
	Class          SeatClass `json:"class"`
}

func (s Seat) Designator() string {
	return fmt.Sprintf("%d%s", s.Row, s.Letter)
}

// SeatAvailability is a seat as seen on a particular flight.
type SeatAvailability struct {
	Seat
	Taken bool `json:"taken"`
}
