package dto

// SubmitRequestRequest is the inbound payload for a new support request.
type SubmitRequestRequest struct {
	RequesterID string `json:"requester_id"`
	ChannelID   string `json:"channel_id"`
	ThreadRef   string `json:"thread_ref"`
	Text        string `json:"text"`
}

// SubmitRequestResponse returns the created ticket and the draft reply the
// bot posts back into the requester's thread.
type SubmitRequestResponse struct {
	Ticket     TicketSummary `json:"ticket"`
	DraftReply string        `json:"draft_reply"`
	Degraded   bool          `json:"degraded,omitempty"`
}
