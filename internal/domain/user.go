package domain

import "strings"

// PriorityLevel classifies requesters into support tiers.
type PriorityLevel string

const (
	PriorityVIP      PriorityLevel = "VIP"
	PriorityStandard PriorityLevel = "STANDARD"
	PriorityRegular  PriorityLevel = "REGULAR"
)

// ParsePriorityLevel maps a raw string to a level, defaulting to REGULAR.
func ParsePriorityLevel(raw string) PriorityLevel {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(PriorityVIP):
		return PriorityVIP
	case string(PriorityStandard):
		return PriorityStandard
	default:
		return PriorityRegular
	}
}

// UserPriority holds the support tier for a requester. Records are edited
// out-of-band; the hunt engine only reads them.
type UserPriority struct {
	UserID string        `json:"user_id"`
	Level  PriorityLevel `json:"level"`
	Tags   []string      `json:"tags,omitempty"`
}
