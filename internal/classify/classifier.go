// Package classify turns free-text support requests into routing signals:
// an urgency score, the expertise tags to hunt on, a category, and a draft
// first reply for the requester.
package classify

import (
	"context"

	"github.com/spec-kit/sme-router/internal/domain"
)

// Classification is the structured read of one request.
type Classification struct {
	UrgencyScore  int             `json:"urgency_score"`
	ExpertiseTags []string        `json:"expertise_tags"`
	Category      domain.Category `json:"category"`
	DraftReply    string          `json:"draft_reply"`
	// Degraded marks results synthesized after a classifier outage. Degraded
	// tickets are treated as urgent so a human looks at them quickly.
	Degraded bool `json:"degraded"`
}

// Classifier scores a raw request. Implementations may call out to an
// external model service.
type Classifier interface {
	Classify(ctx context.Context, rawText, requesterID string) (*Classification, error)
}
