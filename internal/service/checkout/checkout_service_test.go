package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/payment"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/internal/repository/repotest"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/Domenick1991/skybooking/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var settings = Settings{
	Currency:   "usd",
	TTL:        30 * time.Minute,
	SuccessURL: "https://skybooking.example/paid",
	CancelURL:  "https://skybooking.example/cancelled",
}

// seedOrder stores a PENDING order for user 7 with two tickets on two flights.
func seedOrder(t *testing.T, store *repotest.Store) *domain.Order {
	t.Helper()
	order := &domain.Order{UserID: 7, Tickets: []domain.Ticket{
		{FlightID: 1, SeatID: 11, PassengerFirstName: "Ann", PassengerLastName: "Lee", FlightNumber: "SU100", PriceCents: 10000, SeatDesignator: "12A"},
		{FlightID: 2, SeatID: 21, PassengerFirstName: "Bob", PassengerLastName: "Lee", FlightNumber: "SU200", PriceCents: 25000, SeatDesignator: "1A"},
	}}
	require.NoError(t, store.OrderRepository().Create(context.Background(), order))
	return order
}

func newService(store *repotest.Store, provider PaymentProvider, opts ...CheckoutServiceOption) *CheckoutService {
	opts = append([]CheckoutServiceOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewCheckoutService(store.OrderRepository(), store.TransactionRepository(), provider, settings, logger.NewNop(), opts...)
}

func TestCheckoutService_CreateSession_Success(t *testing.T) {
	store := repotest.NewStore()
	order := seedOrder(t, store)
	provider := &MockPaymentProvider{}
	provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req payment.SessionRequest) bool {
		return req.Metadata[MetadataOrderID] == "1" && req.Metadata[MetadataTransactionID] == "1"
	})).Return(&payment.Session{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil).Once()
	m := metrics.NewNop()
	service := newService(store, provider, WithMetrics(m))

	session, err := service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 7}, order.ID)

	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.SessionID)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", session.RedirectURL)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CheckoutSessions.WithLabelValues("created")))

	req := provider.Calls[0].Arguments.Get(1).(payment.SessionRequest)
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, fixedNow.Add(32*time.Minute), req.ExpiresAt)
	assert.Equal(t, settings.SuccessURL, req.SuccessURL)
	assert.Equal(t, settings.CancelURL, req.CancelURL)
	assert.Equal(t, []payment.LineItem{
		{Description: "Flight SU100, seat 12A, Ann Lee", UnitAmountCents: 10000, Quantity: 1},
		{Description: "Flight SU200, seat 1A, Bob Lee", UnitAmountCents: 25000, Quantity: 1},
	}, req.LineItems)

	stored, err := store.OrderRepository().GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Transactions, 1)
	txn := stored.Transactions[0]
	assert.Equal(t, domain.TransactionStatusPending, txn.Status)
	assert.Equal(t, int64(35000), txn.AmountCents)
	require.NotNil(t, txn.ProviderSessionID)
	assert.Equal(t, "cs_test_1", *txn.ProviderSessionID)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	provider.AssertExpectations(t)
}

func TestCheckoutService_CreateSession_NotPayable(t *testing.T) {
	store := repotest.NewStore()
	order := seedOrder(t, store)

	// Move the order out of PENDING through a resolved payment attempt.
	store.AddTransaction(domain.Transaction{OrderID: order.ID, AmountCents: 35000, Currency: "usd", Status: domain.TransactionStatusPending})
	_, _, applied, err := store.OrderRepository().Settle(context.Background(), order.ID, 1, func(o *domain.Order, txn *domain.Transaction) bool {
		return domain.Settle(o, txn, domain.PaymentExpired, "")
	})
	require.NoError(t, err)
	require.True(t, applied)

	provider := &MockPaymentProvider{}
	service := newService(store, provider)

	session, err := service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 7}, order.ID)

	assert.Nil(t, session)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, domain.CodeOrderNotPayable, domain.CodeOf(err))
	assert.Equal(t, 1, store.TransactionCount(order.ID))
	provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCheckoutService_CreateSession_ForeignOrder(t *testing.T) {
	store := repotest.NewStore()
	order := seedOrder(t, store)
	provider := &MockPaymentProvider{}
	service := newService(store, provider)

	_, err := service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 8}, order.ID)

	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Equal(t, 0, store.TransactionCount(order.ID))
	provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCheckoutService_CreateSession_AdminMayPay(t *testing.T) {
	store := repotest.NewStore()
	order := seedOrder(t, store)
	provider := &MockPaymentProvider{}
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(&payment.Session{ID: "cs_admin", URL: "u"}, nil).Once()
	service := newService(store, provider)

	session, err := service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 1, Admin: true}, order.ID)

	require.NoError(t, err)
	assert.Equal(t, "cs_admin", session.SessionID)
}

func TestCheckoutService_CreateSession_UnknownOrder(t *testing.T) {
	service := newService(repotest.NewStore(), &MockPaymentProvider{})

	_, err := service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 7}, 42)

	assert.Equal(t, domain.CodeOrderNotFound, domain.CodeOf(err))
}

func TestCheckoutService_CreateSession_TransactionCreationFails(t *testing.T) {
	store := repotest.NewStore()
	order := seedOrder(t, store)
	store.OpenPendingErr = errors.New("disk full")
	provider := &MockPaymentProvider{}
	service := newService(store, provider)

	_, err := service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 7}, order.ID)

	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Equal(t, domain.CodeTransactionCreation, domain.CodeOf(err))
	provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCheckoutService_CreateSession_ProviderFailureKeepsPendingAttempt(t *testing.T) {
	store := repotest.NewStore()
	order := seedOrder(t, store)
	provider := &MockPaymentProvider{}
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, errors.New("card_declined")).Once()
	m := metrics.NewNop()
	service := newService(store, provider, WithMetrics(m))

	_, err := service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 7}, order.ID)

	assert.Equal(t, domain.KindProvider, domain.KindOf(err))
	assert.Equal(t, domain.CodePaymentProvider, domain.CodeOf(err))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CheckoutSessions.WithLabelValues(domain.CodePaymentProvider)))

	stored, err := store.OrderRepository().GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Transactions, 1)
	assert.Equal(t, domain.TransactionStatusPending, stored.Transactions[0].Status)
	assert.Nil(t, stored.Transactions[0].ProviderSessionID)
}

func TestCheckoutService_CreateSession_OneOpenAttempt(t *testing.T) {
	store := repotest.NewStore()
	order := seedOrder(t, store)
	provider := &MockPaymentProvider{}
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(&payment.Session{ID: "cs_test_1", URL: "u"}, nil).Once()
	service := newService(store, provider)
	ctx := context.Background()

	_, err := service.CreateCheckoutSession(ctx, domain.Actor{UserID: 7}, order.ID)
	require.NoError(t, err)

	session, err := service.CreateCheckoutSession(ctx, domain.Actor{UserID: 7}, order.ID)

	assert.Nil(t, session)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Equal(t, domain.CodePaymentInProgress, domain.CodeOf(err))
	assert.Equal(t, 1, store.TransactionCount(order.ID))
	provider.AssertNumberOfCalls(t, "CreateCheckoutSession", 1)
}

func TestCheckoutService_CreateSession_RetryTakesOverFailedAttempt(t *testing.T) {
	store := repotest.NewStore()
	store.SetClock(func() time.Time { return fixedNow })
	order := seedOrder(t, store)
	provider := &MockPaymentProvider{}
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, errors.New("api down")).Once()
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(&payment.Session{ID: "cs_test_2", URL: "u"}, nil).Once()
	now := fixedNow
	service := NewCheckoutService(store.OrderRepository(), store.TransactionRepository(), provider, settings, logger.NewNop(),
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := service.CreateCheckoutSession(ctx, domain.Actor{UserID: 7}, order.ID)
	require.Equal(t, domain.CodePaymentProvider, domain.CodeOf(err))

	now = fixedNow.Add(30 * time.Second)
	_, err = service.CreateCheckoutSession(ctx, domain.Actor{UserID: 7}, order.ID)
	require.Equal(t, domain.CodePaymentInProgress, domain.CodeOf(err))

	now = fixedNow.Add(3 * time.Minute)
	session, err := service.CreateCheckoutSession(ctx, domain.Actor{UserID: 7}, order.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(1), session.TransactionID)
	assert.Equal(t, 1, store.TransactionCount(order.ID))
	second := provider.Calls[1].Arguments.Get(1).(payment.SessionRequest)
	assert.Equal(t, "1", second.Metadata[MetadataTransactionID])
	provider.AssertExpectations(t)
}

// staleOrders serves orders as they were before a concurrent settlement.
type staleOrders struct {
	repository.OrderRepository
	order domain.Order
}

func (s staleOrders) GetByID(context.Context, int64) (*domain.Order, error) {
	o := s.order
	return &o, nil
}

func TestCheckoutService_CreateSession_SettledAfterRead(t *testing.T) {
	store := repotest.NewStore()
	order := seedOrder(t, store)
	snapshot, err := store.OrderRepository().GetByID(context.Background(), order.ID)
	require.NoError(t, err)

	txnID := store.AddTransaction(domain.Transaction{OrderID: order.ID, AmountCents: 35000, Currency: "usd", Status: domain.TransactionStatusPending})
	_, _, applied, err := store.OrderRepository().Settle(context.Background(), order.ID, txnID, func(o *domain.Order, txn *domain.Transaction) bool {
		return domain.Settle(o, txn, domain.PaymentCompleted, "pi_1")
	})
	require.NoError(t, err)
	require.True(t, applied)

	provider := &MockPaymentProvider{}
	service := NewCheckoutService(staleOrders{OrderRepository: store.OrderRepository(), order: *snapshot},
		store.TransactionRepository(), provider, settings, logger.NewNop())

	_, err = service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 7}, order.ID)

	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, domain.CodeOrderNotPayable, domain.CodeOf(err))
	assert.Equal(t, 1, store.TransactionCount(order.ID))
	provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCheckoutService_CreateSession_ExpiryClearsProviderMinimum(t *testing.T) {
	type sent struct {
		at        time.Time
		expiresAt int64
	}
	requests := make(chan sent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received := time.Now()
		_ = r.ParseForm()
		expiresAt, _ := strconv.ParseInt(r.PostForm.Get("expires_at"), 10, 64)
		requests <- sent{at: received, expiresAt: expiresAt}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_exp","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_exp"}`))
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	client := payment.NewStripeClient("sk_test", "", payment.WithBackends(&stripe.Backends{API: backend}))
	store := repotest.NewStore()
	order := seedOrder(t, store)
	service := NewCheckoutService(store.OrderRepository(), store.TransactionRepository(), client, settings, logger.NewNop())

	session, err := service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 7}, order.ID)

	require.NoError(t, err)
	assert.Equal(t, "cs_test_exp", session.SessionID)
	got := <-requests
	assert.GreaterOrEqual(t, time.Unix(got.expiresAt, 0).Sub(got.at), minSessionTTL)
	assert.LessOrEqual(t, time.Unix(got.expiresAt, 0).Sub(got.at), maxSessionTTL)
}

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 500_000_000, time.UTC)

	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{"minimum", 30 * time.Minute, 32 * time.Minute},
		{"below minimum", 5 * time.Minute, 32 * time.Minute},
		{"hour", time.Hour, 62 * time.Minute},
		{"maximum", 24 * time.Hour, 24*time.Hour - 2*time.Minute},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := sessionExpiry(now, tc.ttl)
			assert.Equal(t, now.Add(tc.want).Truncate(time.Second), got)
			assert.GreaterOrEqual(t, got.Sub(now), minSessionTTL+time.Minute)
		})
	}
}

func TestCheckoutService_CreateSession_ConcurrentCheckouts(t *testing.T) {
	store := repotest.NewStore()
	order := seedOrder(t, store)
	provider := &MockPaymentProvider{}
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(&payment.Session{ID: "cs_test_1", URL: "u"}, nil)
	service := NewCheckoutService(store.OrderRepository(), store.TransactionRepository(), provider, settings, logger.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 7}, order.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, domain.CodePaymentInProgress, domain.CodeOf(err))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, store.TransactionCount(order.ID))
}

func TestAuditedCheckoutService_RecordsOutcome(t *testing.T) {
	store := repotest.NewStore()
	order := seedOrder(t, store)
	provider := &MockPaymentProvider{}
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, errors.New("api down")).Once()
	core, logs := observer.New(zapcore.DebugLevel)
	service := NewAuditedCheckoutService(newService(store, provider), logger.FromZap(zap.New(core)))

	_, err := service.CreateCheckoutSession(context.Background(), domain.Actor{UserID: 7}, order.ID)

	require.Error(t, err)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "order checkout failed", entry.Message)
	assert.Equal(t, order.ID, entry.ContextMap()["entity_id"])
	assert.Equal(t, domain.CodePaymentProvider, entry.ContextMap()["code"])
}
