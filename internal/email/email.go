package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/Domenick1991/skybooking/internal/kafka"
	"github.com/Domenick1991/skybooking/pkg/logger"
)

var confirmationTemplate = template.Must(template.New("confirmation").Parse(
	`Your order #{{.OrderID}} is paid.
{{range .Tickets}}
- Ticket: {{.Passenger}}, flight {{.FlightNumber}}, seat {{.Seat}}{{end}}
`))

type Message struct {
	From    string
	UserID  int64
	Subject string
	Body    string
}

// Sender turns order_paid events into confirmation messages. Delivery is
// handed to the log until an SMTP relay is configured.
type Sender struct {
	from string
	log  logger.Logger
}

func NewSender(from string, log logger.Logger) *Sender {
	return &Sender{from: from, log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.OrderEvent) error {
	if event.Type != kafka.EventOrderPaid {
		return nil
	}
	msg, err := s.Render(event)
	if err != nil {
		return err
	}
	s.log.Info("confirmation email sent", "order_id", event.OrderID, "user_id", msg.UserID, "subject", msg.Subject, "tickets", len(event.Tickets))
	return nil
}

func (s *Sender) Render(event kafka.OrderEvent) (Message, error) {
	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, event); err != nil {
		return Message{}, fmt.Errorf("render confirmation for order %d: %w", event.OrderID, err)
	}
	return Message{
		From:    s.from,
		UserID:  event.UserID,
		Subject: fmt.Sprintf("Order #%d confirmation", event.OrderID),
		Body:    body.String(),
	}, nil
}
