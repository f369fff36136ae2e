package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/Domenick1991/skybooking/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStaleReporter_Report(t *testing.T) {
	repo := &MockOrderRepository{}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.On("ListPendingBefore", context.Background(), now.Add(-30*time.Minute)).
		Return([]domain.Order{{ID: 4, Status: domain.OrderStatusPending}, {ID: 9, Status: domain.OrderStatusPending}}, nil).Once()
	m := metrics.NewNop()
	r := NewStaleReporter(repo, 30*time.Minute, m, logger.NewNop())
	r.now = func() time.Time { return now }

	stale, err := r.Report(context.Background())

	require.NoError(t, err)
	assert.Len(t, stale, 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.StalePending))
	repo.AssertExpectations(t)
}

func TestStaleReporter_RepositoryError(t *testing.T) {
	repo := &MockOrderRepository{}
	repo.On("ListPendingBefore", context.Background(), mock.Anything).Return([]domain.Order(nil), errors.New("timeout")).Once()
	r := NewStaleReporter(repo, time.Hour, nil, logger.NewNop())

	_, err := r.Report(context.Background())

	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}
