package domain

import "fmt"

// ClaimResult is the outcome of an expert attempting to claim a ticket.
type ClaimResult string

const (
	ClaimAccepted       ClaimResult = "ACCEPTED"
	ClaimAlreadyClaimed ClaimResult = "ALREADY_CLAIMED"
	ClaimNotEligible    ClaimResult = "NOT_ELIGIBLE"
	ClaimUnknownTicket  ClaimResult = "UNKNOWN_TICKET"
)

// Message renders the result as the plain-language reply shown to the
// claiming expert.
func (r ClaimResult) Message(ticketID string) string {
	switch r {
	case ClaimAccepted:
		return fmt.Sprintf("You have claimed ticket %s. The requester has been notified.", ticketID)
	case ClaimAlreadyClaimed:
		return fmt.Sprintf("Ticket %s is already being handled by another expert.", ticketID)
	case ClaimNotEligible:
		return fmt.Sprintf("You cannot claim ticket %s right now. It may have expired, or you were not paged for it, or you are at capacity.", ticketID)
	case ClaimUnknownTicket:
		return fmt.Sprintf("Ticket %s was not found. Check the ticket ID and try again.", ticketID)
	default:
		return fmt.Sprintf("Claim for ticket %s could not be processed.", ticketID)
	}
}
