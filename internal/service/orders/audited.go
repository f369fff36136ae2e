package orders

import (
	"context"

	"github.com/Domenick1991/skybooking/internal/audit"
	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/pkg/logger"
)

// AuditedOrderService records order creation and failed reads.
type AuditedOrderService struct {
	next     OrderUseCase
	recorder *audit.Recorder
}

func NewAuditedOrderService(next OrderUseCase, log logger.Logger) *AuditedOrderService {
	return &AuditedOrderService{next: next, recorder: audit.NewRecorder("order", log)}
}

func orderID(o *domain.Order) int64 {
	return o.ID
}

func (s *AuditedOrderService) CreateOrder(ctx context.Context, actor domain.Actor, requests []TicketRequest) (*domain.Order, error) {
	return audit.Do(s.recorder, "create", audit.UserActor(actor.UserID), orderID, func() (*domain.Order, error) {
		return s.next.CreateOrder(ctx, actor, requests)
	})
}

func (s *AuditedOrderService) GetOrder(ctx context.Context, actor domain.Actor, id int64) (*domain.Order, error) {
	order, err := s.next.GetOrder(ctx, actor, id)
	if err != nil {
		s.recorder.Record("get", audit.UserActor(actor.UserID), id, err)
	}
	return order, err
}

func (s *AuditedOrderService) ListOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	orders, err := s.next.ListOrders(ctx, actor)
	if err != nil {
		s.recorder.Record("list", audit.UserActor(actor.UserID), 0, err)
	}
	return orders, err
}

var _ OrderUseCase = (*AuditedOrderService)(nil)
