package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/payment"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/Domenick1991/skybooking/pkg/metrics"
)

const (
	MetadataOrderID       = "order_id"
	MetadataTransactionID = "transaction_id"
)

const (
	// Stripe accepts session expiries between 30 minutes and 24 hours after it
	// creates the session. expiryMargin covers the time the request spends in flight.
	minSessionTTL = 30 * time.Minute
	maxSessionTTL = 24 * time.Hour
	expiryMargin  = 2 * time.Minute

	// attemptClaim is how long an open attempt without a provider session is
	// treated as in flight before another checkout may take it over.
	attemptClaim = 2 * time.Minute
)

type CheckoutUseCase interface {
	CreateCheckoutSession(ctx context.Context, actor domain.Actor, orderID int64) (*Session, error)
}

// PaymentProvider opens hosted checkout sessions.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
}

type Settings struct {
	Currency   string
	TTL        time.Duration
	SuccessURL string
	CancelURL  string
}

// Session is what the client needs to continue to the provider's payment page.
type Session struct {
	SessionID     string `json:"session_id"`
	RedirectURL   string `json:"redirect_url"`
	TransactionID int64  `json:"-"`
}

type CheckoutService struct {
	orders       repository.OrderRepository
	transactions repository.TransactionRepository
	provider     PaymentProvider
	settings     Settings
	now          func() time.Time
	metrics      *metrics.Metrics
	log          logger.Logger
}

type CheckoutServiceOption func(*CheckoutService)

func WithMetrics(m *metrics.Metrics) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.now = now
	}
}

func NewCheckoutService(
	orders repository.OrderRepository,
	transactions repository.TransactionRepository,
	provider PaymentProvider,
	settings Settings,
	log logger.Logger,
	opts ...CheckoutServiceOption,
) *CheckoutService {
	service := &CheckoutService{
		orders:       orders,
		transactions: transactions,
		provider:     provider,
		settings:     settings,
		now:          time.Now,
		metrics:      metrics.NewNop(),
		log:          log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateCheckoutSession records a PENDING payment attempt for the order and
// opens a provider session for it. The attempt is stored before the provider
// is called, so a failed call leaves it PENDING. An order has at most one open
// attempt; a second checkout while one is in progress fails with a conflict.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, actor domain.Actor, orderID int64) (*Session, error) {
	session, err := s.createSession(ctx, actor, orderID)
	result := "created"
	if err != nil {
		result = domain.CodeOf(err)
	}
	s.metrics.CheckoutSessions.WithLabelValues(result).Inc()
	return session, err
}

func (s *CheckoutService) createSession(ctx context.Context, actor domain.Actor, orderID int64) (*Session, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, domain.CodeOrderNotFound, fmt.Sprintf("order %d not found", orderID))
		}
		return nil, domain.WrapError(domain.KindInternal, domain.CodeInternal, "load order", err)
	}
	if !order.OwnedBy(actor) {
		return nil, domain.NewError(domain.KindNotFound, domain.CodeOrderNotFound, fmt.Sprintf("order %d not found", orderID))
	}
	if order.Status != domain.OrderStatusPending {
		return nil, notPayable(order)
	}
	if len(order.Tickets) == 0 {
		return nil, domain.NewError(domain.KindValidation, domain.CodeOrderNotPayable, fmt.Sprintf("order %d has no tickets", orderID))
	}

	now := s.now()
	txn := &domain.Transaction{
		OrderID:     order.ID,
		AmountCents: order.TotalCents(),
		Currency:    s.settings.Currency,
	}
	if err := s.transactions.OpenPending(ctx, txn, now.Add(-attemptClaim)); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotPayable):
			// Settled between the read above and the row lock.
			return nil, domain.WrapError(domain.KindValidation, domain.CodeOrderNotPayable,
				fmt.Sprintf("order %d is no longer awaiting payment", orderID), err)
		case errors.Is(err, repository.ErrPaymentInProgress):
			return nil, domain.WrapError(domain.KindConflict, domain.CodePaymentInProgress,
				fmt.Sprintf("order %d already has a checkout session in progress", orderID), err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.NewError(domain.KindNotFound, domain.CodeOrderNotFound, fmt.Sprintf("order %d not found", orderID))
		default:
			return nil, domain.WrapError(domain.KindInternal, domain.CodeTransactionCreation, "payment attempt could not be recorded", err)
		}
	}

	req := payment.SessionRequest{
		Currency:          s.settings.Currency,
		LineItems:         lineItems(order),
		ClientReferenceID: strconv.FormatInt(order.ID, 10),
		ExpiresAt:         sessionExpiry(now, s.settings.TTL),
		SuccessURL:        s.settings.SuccessURL,
		CancelURL:         s.settings.CancelURL,
		Metadata: map[string]string{
			MetadataOrderID:       strconv.FormatInt(order.ID, 10),
			MetadataTransactionID: strconv.FormatInt(txn.ID, 10),
		},
	}
	ps, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, domain.WrapError(domain.KindProvider, domain.CodePaymentProvider, "payment provider rejected the checkout session", err)
	}

	if err := s.transactions.AttachSession(ctx, txn.ID, ps.ID); err != nil {
		s.log.Warn("failed to store provider session id", "transaction_id", txn.ID, "session_id", ps.ID, "error", err)
	}

	return &Session{SessionID: ps.ID, RedirectURL: ps.URL, TransactionID: txn.ID}, nil
}

func notPayable(order *domain.Order) error {
	return domain.NewError(domain.KindValidation, domain.CodeOrderNotPayable,
		fmt.Sprintf("order %d is %s and cannot be paid", order.ID, order.Status))
}

// sessionExpiry returns the expiry sent to the provider: ttl past now plus
// expiryMargin, kept inside the window the provider accepts.
func sessionExpiry(now time.Time, ttl time.Duration) time.Time {
	ttl = max(ttl, minSessionTTL) + expiryMargin
	ttl = min(ttl, maxSessionTTL-expiryMargin)
	return now.Add(ttl).Truncate(time.Second)
}

func lineItems(order *domain.Order) []payment.LineItem {
	items := make([]payment.LineItem, 0, len(order.Tickets))
	for _, t := range order.Tickets {
		items = append(items, payment.LineItem{
			Description:     fmt.Sprintf("Flight %s, seat %s, %s", t.FlightNumber, t.SeatDesignator, t.PassengerName()),
			UnitAmountCents: t.PriceCents,
			Quantity:        1,
		})
	}
	return items
}

var _ CheckoutUseCase = (*CheckoutService)(nil)
