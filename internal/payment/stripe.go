package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var (
	ErrWebhookSecretMissing = errors.New("payment webhook secret is not configured")
	ErrInvalidSignature     = errors.New("payment webhook signature verification failed")
	ErrMalformedEvent       = errors.New("payment webhook event payload is malformed")
)

type EventKind int

const (
	EventOther EventKind = iota
	EventPaymentCompleted
	EventSessionExpired
	EventPaymentFailed
)

const (
	stripeSessionCompleted      = "checkout.session.completed"
	stripeSessionExpired        = "checkout.session.expired"
	stripeAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	stripeAsyncPaymentFailed    = "checkout.session.async_payment_failed"
)

type LineItem struct {
	Description     string
	UnitAmountCents int64
	Quantity        int64
}

type SessionRequest struct {
	Currency          string
	LineItems         []LineItem
	Metadata          map[string]string
	ClientReferenceID string
	ExpiresAt         time.Time
	SuccessURL        string
	CancelURL         string
}

type Session struct {
	ID  string
	URL string
}

// Event is a verified provider notification reduced to what reconciliation needs.
type Event struct {
	ID               string
	Type             string
	Kind             EventKind
	SessionID        string
	PaymentReference string
	Metadata         map[string]string
}

type StripeClient struct {
	api           *client.API
	webhookSecret string
}

type Option func(*stripeOptions)

type stripeOptions struct {
	backends *stripe.Backends
}

// WithBackends points the client at custom API backends (tests, stripe-mock).
func WithBackends(b *stripe.Backends) Option {
	return func(o *stripeOptions) {
		o.backends = b
	}
}

func NewStripeClient(secretKey, webhookSecret string, opts ...Option) *StripeClient {
	var o stripeOptions
	for _, opt := range opts {
		opt(&o)
	}
	api := &client.API{}
	api.Init(secretKey, o.backends)
	return &StripeClient{api: api, webhookSecret: webhookSecret}
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		ExpiresAt:  stripe.Int64(req.ExpiresAt.Unix()),
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	params.Context = ctx

	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(item.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Description),
				},
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// ParseEvent verifies the Stripe-Signature header against the raw body and
// decodes checkout session events. Other event types come back as EventOther
// without further decoding.
func (c *StripeClient) ParseEvent(payload []byte, signature string) (*Event, error) {
	if c.webhookSecret == "" {
		return nil, ErrWebhookSecretMissing
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type), Kind: EventOther}
	switch string(ev.Type) {
	case stripeSessionCompleted, stripeAsyncPaymentSucceeded, stripeSessionExpired, stripeAsyncPaymentFailed:
	default:
		return out, nil
	}
	if ev.Data == nil {
		return nil, ErrMalformedEvent
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	out.SessionID = session.ID
	out.Metadata = session.Metadata
	if session.PaymentIntent != nil {
		out.PaymentReference = session.PaymentIntent.ID
	}

	switch string(ev.Type) {
	case stripeSessionCompleted:
		// Delayed payment methods complete the session before funds arrive;
		// the async_payment_* event settles those.
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusUnpaid {
			out.Kind = EventPaymentCompleted
		}
	case stripeAsyncPaymentSucceeded:
		out.Kind = EventPaymentCompleted
	case stripeSessionExpired:
		out.Kind = EventSessionExpired
	case stripeAsyncPaymentFailed:
		out.Kind = EventPaymentFailed
	}
	return out, nil
}
