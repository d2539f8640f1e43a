package events

import (
	"time"

	"github.com/spec-kit/sme-router/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventHuntStarted       EventType = "hunt_started"
	EventWaveSent          EventType = "wave_sent"
	EventTicketClaimed     EventType = "ticket_claimed"
	EventClaimRejected     EventType = "claim_rejected"
	EventTicketResolved    EventType = "ticket_resolved"
	EventTicketExpired     EventType = "ticket_expired"
	EventTicketCancelled   EventType = "ticket_cancelled"
	EventFallbackBroadcast EventType = "fallback_broadcast"
)

// Event represents a hunt lifecycle event emitted by the engine and services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	RequesterID  string                `json:"requester_id"`
	Category     domain.Category       `json:"category"`
	UrgencyScore int                   `json:"urgency_score"`
	UserPriority domain.PriorityLevel  `json:"user_priority"`
	Priority     domain.TicketPriority `json:"priority"`
	Tags         []string              `json:"tags"`
}

// WaveSentPayload payload.
type WaveSentPayload struct {
	Wave      int       `json:"wave"`
	ExpertIDs []string  `json:"expert_ids"`
	Deadline  time.Time `json:"deadline"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	ExpertID string `json:"expert_id"`
	Wave     int    `json:"wave"`
}

// ClaimRejectedPayload payload.
type ClaimRejectedPayload struct {
	ExpertID string             `json:"expert_id"`
	Result   domain.ClaimResult `json:"result"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	ExpertID string `json:"expert_id"`
}

// TicketExpiredPayload payload.
type TicketExpiredPayload struct {
	WavesIssued int    `json:"waves_issued"`
	Reason      string `json:"reason"`
}

// TicketCancelledPayload payload.
type TicketCancelledPayload struct {
	Reason string `json:"reason"`
}

// FallbackBroadcastPayload payload.
type FallbackBroadcastPayload struct {
	Channel string `json:"channel"`
}
