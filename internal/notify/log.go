package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/config"
)

// LogNotifier writes pages to the log. Used when no chat webhook is
// configured, typically in development.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds the log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, recipient, ticketID, message string) error {
	n.logger.Info("page",
		zap.String("recipient", recipient),
		zap.String("ticket_id", ticketID),
		zap.String("message", message))
	return nil
}

func (n *LogNotifier) AnnounceOutcome(ctx context.Context, ticketID string, outcome Outcome, recipients []string, message string) error {
	n.logger.Info("outcome announcement",
		zap.String("ticket_id", ticketID),
		zap.String("outcome", string(outcome)),
		zap.Strings("recipients", recipients),
		zap.String("message", message))
	return nil
}

// ForConfig selects the chat webhook notifier when a URL is configured and
// the log notifier otherwise.
func ForConfig(cfg config.ChatConfig, logger *zap.Logger) Notifier {
	if cfg.WebhookURL != "" {
		return NewChatNotifier(cfg, logger)
	}
	return NewLogNotifier(logger)
}
