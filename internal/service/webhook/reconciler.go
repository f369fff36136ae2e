package webhook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/kafka"
	"github.com/Domenick1991/skybooking/internal/payment"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/internal/service/checkout"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/Domenick1991/skybooking/pkg/metrics"
)

type ReconcilerUseCase interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (*Result, error)
}

// EventParser verifies and decodes a raw provider notification.
type EventParser interface {
	ParseEvent(payload []byte, signature string) (*payment.Event, error)
}

// Deduper remembers provider event ids that were already reconciled.
type Deduper interface {
	EventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, attempts int) error
}

// notifyAttempts bounds delivery of the confirmation notification.
const notifyAttempts = 3

type Outcome string

const (
	// OutcomeApplied means this delivery changed the transaction.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means the transaction was already resolved.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored means the event kind is not reconciled.
	OutcomeIgnored Outcome = "ignored"
)

type Result struct {
	Outcome       Outcome
	EventID       string
	EventType     string
	OrderID       int64
	TransactionID int64
	OrderStatus   domain.OrderStatus
	// OrderChanged is set when this delivery moved the order out of PENDING.
	// Applied deliveries always do.
	OrderChanged bool
}

type Reconciler struct {
	parser      EventParser
	orders      repository.OrderRepository
	dedupe      Deduper
	dedupeTTL   time.Duration
	producer    Producer
	eventsTopic string
	notifyTopic string
	metrics     *metrics.Metrics
	log         logger.Logger
}

type ReconcilerOption func(*Reconciler)

func WithDeduper(d Deduper, ttl time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		r.dedupe = d
		r.dedupeTTL = ttl
	}
}

// WithProducer publishes settled orders to eventsTopic and, when set, notifyTopic.
func WithProducer(p Producer, eventsTopic, notifyTopic string) ReconcilerOption {
	return func(r *Reconciler) {
		r.producer = p
		r.eventsTopic = eventsTopic
		r.notifyTopic = notifyTopic
	}
}

func WithMetrics(m *metrics.Metrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

func NewReconciler(parser EventParser, orders repository.OrderRepository, log logger.Logger, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		parser:  parser,
		orders:  orders,
		metrics: metrics.NewNop(),
		log:     log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleEvent verifies a provider notification and applies it to the
// referenced order and transaction. Replays of an already resolved transaction
// succeed without changing anything.
func (r *Reconciler) HandleEvent(ctx context.Context, payload []byte, signature string) (*Result, error) {
	start := time.Now()
	res, err := r.handle(ctx, payload, signature)
	r.metrics.WebhookLatency.Observe(time.Since(start).Seconds())

	eventType, outcome := "unknown", "error"
	if res != nil {
		eventType = res.EventType
	}
	if err == nil {
		outcome = string(res.Outcome)
	} else {
		outcome = domain.CodeOf(err)
	}
	r.metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
	return res, err
}

func (r *Reconciler) handle(ctx context.Context, payload []byte, signature string) (*Result, error) {
	ev, err := r.parser.ParseEvent(payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrWebhookSecretMissing):
			return nil, domain.WrapError(domain.KindConfig, domain.CodeWebhookNotConfigured, "payment webhook secret is not configured", err)
		case errors.Is(err, payment.ErrInvalidSignature):
			return nil, domain.WrapError(domain.KindIntegrity, domain.CodeInvalidSignature, "invalid signature", err)
		default:
			return nil, domain.WrapError(domain.KindIntegrity, domain.CodeMalformedEvent, "malformed event payload", err)
		}
	}

	res := &Result{EventID: ev.ID, EventType: ev.Type}

	var outcome domain.PaymentOutcome
	switch ev.Kind {
	case payment.EventPaymentCompleted:
		outcome = domain.PaymentCompleted
	case payment.EventSessionExpired, payment.EventPaymentFailed:
		outcome = domain.PaymentExpired
	default:
		res.Outcome = OutcomeIgnored
		return res, nil
	}

	orderID, txnID, err := correlation(ev.Metadata)
	if err != nil {
		return res, err
	}
	res.OrderID, res.TransactionID = orderID, txnID

	if r.seen(ctx, ev.ID) {
		res.Outcome = OutcomeDuplicate
		return res, nil
	}

	var orderChanged bool
	order, txn, applied, err := r.orders.Settle(ctx, orderID, txnID, func(o *domain.Order, t *domain.Transaction) bool {
		before := o.Status
		ok := domain.Settle(o, t, outcome, ev.PaymentReference)
		orderChanged = ok && o.Status != before
		return ok
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return res, domain.WrapError(domain.KindNotFound, domain.CodeOrderNotFound, fmt.Sprintf("order %d not found", orderID), err)
		case errors.Is(err, repository.ErrTransactionNotFound):
			return res, domain.WrapError(domain.KindNotFound, domain.CodeTransactionNotFound,
				fmt.Sprintf("transaction %d not found for order %d", txnID, orderID), err)
		default:
			return res, domain.WrapError(domain.KindInternal, domain.CodeInternal, "settle payment", err)
		}
	}
	res.OrderStatus = order.Status

	if !applied {
		res.Outcome = OutcomeDuplicate
		if txn.Status == domain.TransactionStatusPending && outcome == domain.PaymentCompleted {
			// The order settled through another attempt; this payment needs a manual refund.
			r.log.Error("payment captured for an already settled order",
				"order_id", orderID, "transaction_id", txnID, "order_status", order.Status, "payment_reference", ev.PaymentReference)
		}
		r.markSeen(ctx, ev.ID)
		return res, nil
	}
	res.Outcome = OutcomeApplied
	res.OrderChanged = orderChanged

	eventType := kafka.EventOrderPaid
	if order.Status == domain.OrderStatusCancelled {
		eventType = kafka.EventOrderCancelled
	}
	r.publish(ctx, eventType, order, txn)

	r.markSeen(ctx, ev.ID)
	return res, nil
}

func correlation(metadata map[string]string) (int64, int64, error) {
	orderID, err := positiveID(metadata, checkout.MetadataOrderID)
	if err != nil {
		return 0, 0, err
	}
	txnID, err := positiveID(metadata, checkout.MetadataTransactionID)
	if err != nil {
		return 0, 0, err
	}
	return orderID, txnID, nil
}

func positiveID(metadata map[string]string, key string) (int64, error) {
	raw, ok := metadata[key]
	if !ok || raw == "" {
		return 0, domain.NewError(domain.KindIntegrity, domain.CodeMissingCorrelation, "event metadata has no "+key)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewError(domain.KindIntegrity, domain.CodeMissingCorrelation, fmt.Sprintf("event metadata %s=%q is not an id", key, raw))
	}
	return id, nil
}

// seen consults the dedupe marker. A lookup failure falls through to the
// database guard.
func (r *Reconciler) seen(ctx context.Context, eventID string) bool {
	if r.dedupe == nil || eventID == "" {
		return false
	}
	ok, err := r.dedupe.EventProcessed(ctx, eventID)
	if err != nil {
		r.log.Warn("webhook dedupe lookup failed", "event_id", eventID, "error", err)
		return false
	}
	return ok
}

func (r *Reconciler) markSeen(ctx context.Context, eventID string) {
	if r.dedupe == nil || eventID == "" {
		return
	}
	if err := r.dedupe.MarkEventProcessed(ctx, eventID, r.dedupeTTL); err != nil {
		r.log.Warn("failed to remember webhook event", "event_id", eventID, "error", err)
	}
}

func (r *Reconciler) publish(ctx context.Context, eventType string, order *domain.Order, txn *domain.Transaction) {
	if r.producer == nil || r.eventsTopic == "" {
		return
	}
	event := kafka.NewOrderEvent(eventType, order, txn)
	key := strconv.FormatInt(order.ID, 10)
	if err := r.producer.Publish(ctx, r.eventsTopic, key, event); err != nil {
		r.log.Warn("failed to publish order event", "type", eventType, "order_id", order.ID, "error", err)
	}
	if r.notifyTopic != "" && eventType == kafka.EventOrderPaid {
		if err := r.producer.PublishWithRetry(ctx, r.notifyTopic, key, event, notifyAttempts); err != nil {
			r.log.Error("failed to publish notification", "order_id", order.ID, "error", err)
		}
	}
}

var _ ReconcilerUseCase = (*Reconciler)(nil)
