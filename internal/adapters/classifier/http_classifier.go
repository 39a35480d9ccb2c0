package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mikey/llm-feed-filter/internal/core"
	"go.uber.org/zap"
)

// maxResponseSize bounds how much of a decision response is read
const maxResponseSize = 1 << 20

// httpRequest is the wire body posted to the decision service
type httpRequest struct {
	Text   string `json:"text"`
	URL    string `json:"url,omitempty"`
	Author string `json:"author,omitempty"`
}

// HTTPClassifier is an implementation of core.Classifier backed by a remote
// decision service speaking JSON over HTTP
type HTTPClassifier struct {
	client   *http.Client
	endpoint string
	logger   *zap.Logger
}

// NewHTTPClassifier creates a new HTTP classifier. The timeout bounds each call.
func NewHTTPClassifier(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		logger:   logger,
	}
}

// Classify posts the item to the decision service
func (c *HTTPClassifier) Classify(ctx context.Context, req *core.ClassificationRequest) (*core.Classification, error) {
	body, err := json.Marshal(httpRequest{
		Text:   req.Text,
		URL:    req.URL,
		Author: req.Author,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call decision service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read decision response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("decision service returned status %d", resp.StatusCode)
	}

	c.logger.Debug("Decision service responded", zap.Int("status", resp.StatusCode), zap.Int("size", len(raw)))

	return ParseDecision(raw, c.endpoint)
}
