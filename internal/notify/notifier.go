// Package notify defines the port the hunt engine pages experts through.
// The production implementation is the chat transport; anything satisfying
// Notifier can stand in.
package notify

import "context"

// Outcome categorizes a hunt's result for announcement.
type Outcome string

const (
	OutcomeClaimed   Outcome = "claimed"
	OutcomeResolved  Outcome = "resolved"
	OutcomeExpired   Outcome = "expired"
	OutcomeCancelled Outcome = "cancelled"
)

// Notifier delivers pages and outcome announcements. A failure to reach one
// recipient must not abort delivery to the rest of a wave; the engine treats
// errors as per-recipient.
type Notifier interface {
	// Notify pages a single recipient (an expert, or a channel for
	// fallback broadcasts) about a ticket.
	Notify(ctx context.Context, recipient, ticketID, message string) error

	// AnnounceOutcome reports a hunt outcome to the given recipients, e.g.
	// "already handled" to paged experts who lost the claim race.
	AnnounceOutcome(ctx context.Context, ticketID string, outcome Outcome, recipients []string, message string) error
}
