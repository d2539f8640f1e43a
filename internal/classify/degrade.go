package classify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/domain"
)

// degradedUrgency is the score assigned when the classifier is unreachable.
// It sits above the high-urgency threshold so un-triaged requests get a
// human quickly instead of waiting in a queue nobody watches.
const degradedUrgency = 85

// DegradingClassifier shields intake from classifier outages. A failing
// classify call is converted into a conservative urgent default instead of
// an error; the ticket carries no expertise tags and is flagged degraded.
type DegradingClassifier struct {
	next   Classifier
	logger *zap.Logger
}

// WithDegrade wraps next so classification never fails intake.
func WithDegrade(next Classifier, logger *zap.Logger) *DegradingClassifier {
	return &DegradingClassifier{next: next, logger: logger}
}

func (d *DegradingClassifier) Classify(ctx context.Context, rawText, requesterID string) (*Classification, error) {
	result, err := d.next.Classify(ctx, rawText, requesterID)
	if err == nil {
		return result, nil
	}

	d.logger.Warn("classifier unavailable, using degraded defaults",
		zap.String("requester_id", requesterID),
		zap.Error(err))
	return &Classification{
		UrgencyScore:  degradedUrgency,
		ExpertiseTags: nil,
		Category:      domain.CategoryOther,
		DraftReply:    "Thanks for reaching out. We're looking into your request and someone will follow up shortly.",
		Degraded:      true,
	}, nil
}
