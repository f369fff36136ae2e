package checkout

import (
	"context"

	"github.com/Domenick1991/skybooking/internal/audit"
	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/pkg/logger"
)

type AuditedCheckoutService struct {
	next     CheckoutUseCase
	recorder *audit.Recorder
}

func NewAuditedCheckoutService(next CheckoutUseCase, log logger.Logger) *AuditedCheckoutService {
	return &AuditedCheckoutService{next: next, recorder: audit.NewRecorder("order", log)}
}

func (s *AuditedCheckoutService) CreateCheckoutSession(ctx context.Context, actor domain.Actor, orderID int64) (*Session, error) {
	session, err := s.next.CreateCheckoutSession(ctx, actor, orderID)
	s.recorder.Record("checkout", audit.UserActor(actor.UserID), orderID, err)
	return session, err
}

var _ CheckoutUseCase = (*AuditedCheckoutService)(nil)
