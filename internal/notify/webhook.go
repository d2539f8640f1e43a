package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/config"
)

// ChatNotifier posts pages and announcements to the chat transport's webhook.
type ChatNotifier struct {
	cfg    config.ChatConfig
	client *http.Client
	logger *zap.Logger
}

// NewChatNotifier builds the webhook-backed notifier.
func NewChatNotifier(cfg config.ChatConfig, logger *zap.Logger) *ChatNotifier {
	return &ChatNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	Bot       string `json:"bot"`
	Recipient string `json:"recipient"`
	TicketID  string `json:"ticket_id"`
	Outcome   string `json:"outcome,omitempty"`
	Message   string `json:"message"`
}

func (n *ChatNotifier) Notify(ctx context.Context, recipient, ticketID, message string) error {
	return n.post(ctx, webhookPayload{
		Bot:       n.cfg.BotName,
		Recipient: recipient,
		TicketID:  ticketID,
		Message:   message,
	})
}

func (n *ChatNotifier) AnnounceOutcome(ctx context.Context, ticketID string, outcome Outcome, recipients []string, message string) error {
	var firstErr error
	for _, recipient := range recipients {
		err := n.post(ctx, webhookPayload{
			Bot:       n.cfg.BotName,
			Recipient: recipient,
			TicketID:  ticketID,
			Outcome:   string(outcome),
			Message:   message,
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (n *ChatNotifier) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	n.logger.Debug("webhook delivered",
		zap.String("recipient", payload.Recipient),
		zap.String("ticket_id", payload.TicketID))
	return nil
}
