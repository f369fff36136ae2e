package reference

import (
	"context"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/pkg/logger"
)

type ReferenceUseCase interface {
	Countries(ctx context.Context) ([]domain.Country, error)
	Airports(ctx context.Context) ([]domain.Airport, error)
	Airlines(ctx context.Context) ([]domain.Airline, error)
	SeedSeats(ctx context.Context, blueprints []domain.SeatBlueprint) (int64, error)
}

type ReferenceService struct {
	repo repository.ReferenceRepository
	log  logger.Logger
}

func NewReferenceService(repo repository.ReferenceRepository, log logger.Logger) *ReferenceService {
	return &ReferenceService{repo: repo, log: log}
}

func (s *ReferenceService) Countries(ctx context.Context) ([]domain.Country, error) {
	out, err := s.repo.ListCountries(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "list countries", err)
	}
	return out, nil
}

func (s *ReferenceService) Airports(ctx context.Context) ([]domain.Airport, error) {
	out, err := s.repo.ListAirports(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "list airports", err)
	}
	return out, nil
}

func (s *ReferenceService) Airlines(ctx context.Context) ([]domain.Airline, error) {
	out, err := s.repo.ListAirlines(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "list airlines", err)
	}
	return out, nil
}

// SeedSeats makes sure every blueprint's airplane type has its full seat grid.
// Running it twice inserts nothing the second time.
func (s *ReferenceService) SeedSeats(ctx context.Context, blueprints []domain.SeatBlueprint) (int64, error) {
	for _, bp := range blueprints {
		if bp.TypeName == "" || bp.Rows <= 0 || len(bp.Letters) == 0 {
			return 0, domain.NewError(domain.KindValidation, domain.CodeInvalidBlueprint, "seat blueprint needs a type name, rows and letters")
		}
	}
	created, err := s.repo.SeedSeatLayouts(ctx, blueprints)
	if err != nil {
		return 0, domain.WrapError(domain.KindInternal, domain.CodeInternal, "seed seats", err)
	}
	s.log.Info("seat layouts seeded", "airplane_types", len(blueprints), "seats_created", created)
	return created, nil
}

var _ ReferenceUseCase = (*ReferenceService)(nil)
