package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen      TicketStatus = "OPEN"
	TicketStatusHunting   TicketStatus = "HUNTING"
	TicketStatusClaimed   TicketStatus = "CLAIMED"
	TicketStatusResolved  TicketStatus = "RESOLVED"
	TicketStatusExpired   TicketStatus = "EXPIRED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// statusRank orders statuses so transitions only ever move forward.
var statusRank = map[TicketStatus]int{
	TicketStatusOpen:      0,
	TicketStatusHunting:   1,
	TicketStatusClaimed:   2,
	TicketStatusResolved:  3,
	TicketStatusExpired:   3,
	TicketStatusCancelled: 3,
}

// IsTerminal reports whether no further transitions are allowed from s,
// other than CLAIMED moving to RESOLVED.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusResolved, TicketStatusExpired, TicketStatusCancelled:
		return true
	default:
		return false
	}
}

// TicketPriority enumerates SLA urgency derived at intake.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Ticket is the aggregate for a routed support request. Tickets are never
// deleted, only status-terminated.
type Ticket struct {
	ID                string         `json:"id"`
	RequesterID       string         `json:"requester_id"`
	ChannelID         string         `json:"channel_id"`
	ThreadRef         string         `json:"thread_ref"`
	Description       string         `json:"description"`
	Category          Category       `json:"category"`
	ExpertiseTags     []string       `json:"expertise_tags"`
	UrgencyScore      int            `json:"urgency_score"`
	UserPriority      PriorityLevel  `json:"user_priority"`
	Priority          TicketPriority `json:"priority"`
	Status            TicketStatus   `json:"status"`
	ClaimedBy         string         `json:"claimed_by,omitempty"`
	HuntWave          int            `json:"hunt_wave"`
	WaveDeadline      *time.Time     `json:"wave_deadline,omitempty"`
	NotifiedExpertIDs []string       `json:"notified_expert_ids,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	LastActivityAt    time.Time      `json:"last_activity_at"`
}

// NewTicketID generates a unique ticket identifier.
func NewTicketID() string {
	return "TCK-" + uuid.NewString()[:8]
}

// Transition moves the ticket to a new status, enforcing that status never
// moves backward and terminal states are final.
func (t *Ticket) Transition(to TicketStatus) error {
	if t.Status == to {
		return nil
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("ticket %s is %s and cannot become %s", t.ID, t.Status, to)
	}
	if statusRank[to] < statusRank[t.Status] {
		return fmt.Errorf("ticket %s cannot move backward from %s to %s", t.ID, t.Status, to)
	}
	if to == TicketStatusResolved && t.Status != TicketStatusClaimed {
		return fmt.Errorf("ticket %s must be claimed before resolution", t.ID)
	}
	t.Status = to
	t.LastActivityAt = time.Now().UTC()
	return nil
}

// Notified reports whether the expert was paged in the current or any
// prior wave of this ticket's hunt.
func (t *Ticket) Notified(expertID string) bool {
	for _, id := range t.NotifiedExpertIDs {
		if id == expertID {
			return true
		}
	}
	return false
}

// MarkNotified records a wave of paged experts and its deadline.
func (t *Ticket) MarkNotified(expertIDs []string, deadline time.Time) {
	for _, id := range expertIDs {
		if !t.Notified(id) {
			t.NotifiedExpertIDs = append(t.NotifiedExpertIDs, id)
		}
	}
	t.HuntWave++
	t.WaveDeadline = &deadline
	t.LastActivityAt = time.Now().UTC()
}

// DerivePriority maps an urgency score and requester tier to an SLA priority.
// VIP requesters are bumped one step, mirroring the triage rules used at
// intake.
func DerivePriority(urgencyScore int, level PriorityLevel) TicketPriority {
	priority := TicketPriorityLow
	switch {
	case urgencyScore > 70:
		priority = TicketPriorityHigh
	case urgencyScore > 30:
		priority = TicketPriorityMedium
	}
	if level == PriorityVIP {
		switch priority {
		case TicketPriorityLow:
			priority = TicketPriorityMedium
		case TicketPriorityMedium:
			priority = TicketPriorityHigh
		}
	}
	return priority
}
