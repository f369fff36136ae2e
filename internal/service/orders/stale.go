package orders

import (
	"context"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/Domenick1991/skybooking/pkg/metrics"
)

// StaleReporter finds PENDING orders whose checkout window has long passed.
// Nothing expires them automatically; the report only surfaces them.
type StaleReporter struct {
	orders  repository.OrderRepository
	window  time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	log     logger.Logger
}

func NewStaleReporter(orders repository.OrderRepository, window time.Duration, m *metrics.Metrics, log logger.Logger) *StaleReporter {
	if m == nil {
		m = metrics.NewNop()
	}
	return &StaleReporter{orders: orders, window: window, now: time.Now, metrics: m, log: log}
}

// Report lists PENDING orders created more than one checkout window ago and
// publishes their count on the stale gauge.
func (r *StaleReporter) Report(ctx context.Context) ([]domain.Order, error) {
	stale, err := r.orders.ListPendingBefore(ctx, r.now().Add(-r.window))
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "list stale orders", err)
	}
	r.metrics.StalePending.Set(float64(len(stale)))
	if len(stale) > 0 {
		ids := make([]int64, 0, len(stale))
		for _, o := range stale {
			ids = append(ids, o.ID)
		}
		r.log.Warn("pending orders without a payment outcome", "count", len(stale), "order_ids", ids, "older_than", r.window.String())
	}
	return stale, nil
}
