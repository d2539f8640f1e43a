package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/events"
)

// AuditService writes a structured log line for every hunt lifecycle event,
// producing the trail used to answer "what happened to my ticket".
type AuditService struct {
	logger *zap.Logger
}

// NewAuditService creates the audit service.
func NewAuditService(logger *zap.Logger) *AuditService {
	return &AuditService{logger: logger.Named("audit")}
}

// Register subscribes the audit handler to every event type.
func (s *AuditService) Register(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventHuntStarted,
		events.EventWaveSent,
		events.EventTicketClaimed,
		events.EventClaimRejected,
		events.EventTicketResolved,
		events.EventTicketExpired,
		events.EventTicketCancelled,
		events.EventFallbackBroadcast,
	} {
		dispatcher.Subscribe(eventType, s.record)
	}
}

func (s *AuditService) record(_ context.Context, event events.Event) error {
	s.logger.Info("event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload))
	return nil
}
