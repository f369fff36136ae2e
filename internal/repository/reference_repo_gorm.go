package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/skybooking/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferenceRepository serves the lookup tables that do not take part in booking.
type ReferenceRepository interface {
	ListCountries(ctx context.Context) ([]domain.Country, error)
	ListAirports(ctx context.Context) ([]domain.Airport, error)
	ListAirlines(ctx context.Context) ([]domain.Airline, error)
	SeedSeatLayouts(ctx context.Context, blueprints []domain.SeatBlueprint) (int64, error)
}

type GormReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) ReferenceRepository {
	return &GormReferenceRepository{db: db}
}

type countryModel struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"column:name;unique"`
}

func (countryModel) TableName() string { return "countries" }

type airportModel struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"column:name"`
	IATACode  string `gorm:"column:iata_code;unique"`
	CountryID int64  `gorm:"column:country_id"`
}

func (airportModel) TableName() string { return "airports" }

type airlineModel struct {
	ID         int64  `gorm:"primaryKey"`
	Name       string `gorm:"column:name;unique"`
	HomeBaseID *int64 `gorm:"column:home_base_id"`
}

func (airlineModel) TableName() string { return "airlines" }

type airplaneTypeModel struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"column:name;unique"`
}

func (airplaneTypeModel) TableName() string { return "airplane_types" }

type seatModel struct {
	ID             int64  `gorm:"primaryKey"`
	AirplaneTypeID int64  `gorm:"column:airplane_type_id"`
	Row            int    `gorm:"column:row_number"`
	Letter         string `gorm:"column:letter"`
	Class          string `gorm:"column:class"`
}

func (seatModel) TableName() string { return "seats" }

func (r *GormReferenceRepository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	var rows []countryModel
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	out := make([]domain.Country, 0, len(rows))
	for _, c := range rows {
		out = append(out, domain.Country{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

func (r *GormReferenceRepository) ListAirports(ctx context.Context) ([]domain.Airport, error) {
	var rows []airportModel
	if err := r.db.WithContext(ctx).Order("iata_code").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list airports: %w", err)
	}
	out := make([]domain.Airport, 0, len(rows))
	for _, a := range rows {
		out = append(out, domain.Airport{ID: a.ID, Name: a.Name, IATACode: a.IATACode, CountryID: a.CountryID})
	}
	return out, nil
}

func (r *GormReferenceRepository) ListAirlines(ctx context.Context) ([]domain.Airline, error) {
	var rows []airlineModel
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list airlines: %w", err)
	}
	out := make([]domain.Airline, 0, len(rows))
	for _, a := range rows {
		out = append(out, domain.Airline{ID: a.ID, Name: a.Name, HomeBaseID: a.HomeBaseID})
	}
	return out, nil
}

// SeedSeatLayouts creates missing airplane types and their seat grids. Existing
// seats are left alone, so the call can be repeated. It returns the number of
// seats inserted.
func (r *GormReferenceRepository) SeedSeatLayouts(ctx context.Context, blueprints []domain.SeatBlueprint) (int64, error) {
	var created int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, bp := range blueprints {
			planeType := airplaneTypeModel{Name: bp.TypeName}
			if err := tx.Where(airplaneTypeModel{Name: bp.TypeName}).FirstOrCreate(&planeType).Error; err != nil {
				return fmt.Errorf("airplane type %q: %w", bp.TypeName, err)
			}

			seats := blueprintSeats(planeType.ID, bp)
			if len(seats) == 0 {
				continue
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seats)
			if res.Error != nil {
				return fmt.Errorf("seats for %q: %w", bp.TypeName, res.Error)
			}
			created += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func blueprintSeats(typeID int64, bp domain.SeatBlueprint) []seatModel {
	seats := make([]seatModel, 0, bp.Rows*len(bp.Letters))
	for row := 1; row <= bp.Rows; row++ {
		for _, letter := range bp.Letters {
			seats = append(seats, seatModel{
				AirplaneTypeID: typeID,
				Row:            row,
				Letter:         letter,
				Class:          string(bp.Class),
			})
		}
	}
	return seats
}

var _ ReferenceRepository = (*GormReferenceRepository)(nil)
