package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/config"
	"github.com/spec-kit/sme-router/internal/domain"
)

type classifyRequest struct {
	Text        string `json:"text"`
	RequesterID string `json:"requester_id"`
}

type classifyResponse struct {
	UrgencyScore  int      `json:"urgency_score"`
	ExpertiseTags []string `json:"expertise_tags"`
	Category      string   `json:"category"`
	DraftReply    string   `json:"draft_reply"`
}

// HTTPClassifier calls the external classification service.
type HTTPClassifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPClassifier builds a classifier for the configured endpoint.
func NewHTTPClassifier(cfg config.ClassifierConfig, logger *zap.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout()},
		logger: logger,
	}
}

// Classify posts the raw text to the classification service.
func (c *HTTPClassifier) Classify(ctx context.Context, rawText, requesterID string) (*Classification, error) {
	body, err := json.Marshal(classifyRequest{Text: rawText, RequesterID: requesterID})
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var payload classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}

	result := &Classification{
		UrgencyScore:  clampScore(payload.UrgencyScore),
		ExpertiseTags: domain.NormalizeTags(payload.ExpertiseTags),
		Category:      domain.ParseCategory(payload.Category),
		DraftReply:    payload.DraftReply,
	}
	return result, nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
