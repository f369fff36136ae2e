package domain

type Country struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Airport struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IATACode  string `json:"iata_code"`
	CountryID int64  `json:"country_id"`
}

type Airline struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	HomeBaseID *int64 `json:"home_base_id,omitempty"`
}

type AirplaneType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SeatBlueprint describes the uniform seat grid of an airplane type.
type SeatBlueprint struct {
	TypeName string
	Rows     int
	Letters  []string
	Class    SeatClass
}

// DefaultSeatBlueprints are the layouts seeded for a fresh installation.
var DefaultSeatBlueprints = []SeatBlueprint{
	{TypeName: "Boeing 737", Rows: 30, Letters: []string{"A", "B", "C", "D", "E", "F"}, Class: SeatClassEconomy},
	{TypeName: "Airbus A320", Rows: 25, Letters: []string{"A", "B", "C", "D", "E", "F"}, Class: SeatClassEconomy},
}
