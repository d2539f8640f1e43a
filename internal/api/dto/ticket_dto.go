package dto

import (
	"time"

	"github.com/spec-kit/sme-router/internal/domain"
)

// TicketSummary is the compact ticket representation used in lists.
type TicketSummary struct {
	ID            string                `json:"id"`
	RequesterID   string                `json:"requester_id"`
	Category      domain.Category       `json:"category"`
	ExpertiseTags []string              `json:"expertise_tags"`
	UrgencyScore  int                   `json:"urgency_score"`
	Priority      domain.TicketPriority `json:"priority"`
	Status        domain.TicketStatus   `json:"status"`
	ClaimedBy     string                `json:"claimed_by,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// TicketDetailResponse is the full ticket view including hunt progress.
type TicketDetailResponse struct {
	TicketSummary
	ChannelID         string     `json:"channel_id"`
	ThreadRef         string     `json:"thread_ref"`
	Description       string     `json:"description"`
	UserPriority      string     `json:"user_priority"`
	HuntWave          int        `json:"hunt_wave"`
	WaveDeadline      *time.Time `json:"wave_deadline,omitempty"`
	NotifiedExpertIDs []string   `json:"notified_expert_ids,omitempty"`
	LastActivityAt    time.Time  `json:"last_activity_at"`
}

// ClaimRequest identifies the expert attempting a claim.
type ClaimRequest struct {
	ExpertID string `json:"expert_id"`
}

// ClaimResponse reports the race outcome plus the reply shown to the expert.
type ClaimResponse struct {
	Result  domain.ClaimResult `json:"result"`
	Message string             `json:"message"`
}

// CancelRequest carries an optional cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason"`
}
