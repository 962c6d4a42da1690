package notifier

import (
	"context"

	"github.com/rs/zerolog"
)

// ConsoleNotifier writes notifications to the application log. It is the
// development driver and the fallback when no mail provider is configured.
type ConsoleNotifier struct {
	log zerolog.Logger
}

var _ Notifier = (*ConsoleNotifier)(nil)

// NewConsoleNotifier creates a ConsoleNotifier.
func NewConsoleNotifier(log zerolog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{
		log: log.With().Str("component", "console_notifier").Logger(),
	}
}

// Send logs the message instead of delivering it.
func (n *ConsoleNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info().
		Str("to", msg.To).
		Str("to_name", msg.ToName).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("Notification")
	return nil
}
