package notifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridNotifier delivers notifications as transactional email through the
// SendGrid v3 API.
type SendGridNotifier struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

var _ Notifier = (*SendGridNotifier)(nil)

// NewSendGridNotifier creates a SendGridNotifier sending from the given
// address.
func NewSendGridNotifier(apiKey, fromName, fromEmail string) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromEmail),
	}
}

// Send delivers one message. Non-2xx API responses are returned as errors so
// callers can log and move on to the next recipient.
func (n *SendGridNotifier) Send(ctx context.Context, msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.To)
	m := sgmail.NewSingleEmailPlainText(n.from, msg.Subject, to, msg.Body)

	res, err := n.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
