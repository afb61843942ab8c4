package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/models"
)

// HTTPEngine calls an external policy service over HTTP. Every call is
// bounded by the configured timeout so a slow engine cannot stall the
// pipeline.
type HTTPEngine struct {
	url    string
	client *http.Client
	logger *logrus.Logger
}

func NewHTTPEngine(url string, timeout time.Duration, logger *logrus.Logger) *HTTPEngine {
	return &HTTPEngine{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (e *HTTPEngine) Evaluate(ctx context.Context, message string, mode models.BotMode) (*Verdict, error) {
	payload, err := json.Marshal(map[string]string{
		"message": message,
		"mode":    string(mode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build policy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("policy engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("policy engine returned status %d", resp.StatusCode)
	}

	var verdict Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("failed to decode policy verdict: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"status":     verdict.Status,
		"risk_score": verdict.RiskScore,
		"mode":       mode,
	}).Debug("Policy engine verdict received")

	return &verdict, nil
}
