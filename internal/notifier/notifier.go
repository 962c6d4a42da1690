package notifier

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tutoria/tutoria-backend/internal/config"
)

// Message is one outbound notification to a single recipient.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Notifier delivers messages to parents and students. Implementations must
// treat each Send as independent: a failed delivery to one recipient never
// blocks the others.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// FromConfig selects the delivery driver. Unknown drivers fall back to
// console so a misconfigured deploy still surfaces notifications in logs.
func FromConfig(cfg *config.Config, log zerolog.Logger) Notifier {
	switch cfg.NotifierDriver {
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			log.Warn().Msg("NOTIFIER_DRIVER=sendgrid but SENDGRID_API_KEY is empty, using console notifier")
			return NewConsoleNotifier(log)
		}
		return NewSendGridNotifier(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromEmail)
	case "console", "":
		return NewConsoleNotifier(log)
	default:
		log.Warn().Str("driver", cfg.NotifierDriver).Msg("Unknown notifier driver, using console notifier")
		return NewConsoleNotifier(log)
	}
}
