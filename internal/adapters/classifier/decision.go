package classifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/llm-feed-filter/internal/core"
	"github.com/mikey/llm-feed-filter/internal/utils"
)

// DecisionResponse is the verdict object returned by a decision service or
// requested from a model
type DecisionResponse struct {
	Decision    string `json:"decision"`
	Reject      *bool  `json:"reject,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// IsReject reports whether the response asks for the item to be hidden. An
// explicit reject flag wins; otherwise a NO decision rejects.
func (d DecisionResponse) IsReject() bool {
	if d.Reject != nil && *d.Reject {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(d.Decision), "NO")
}

// ParseDecision decodes a verdict object. Anything that is not a JSON object
// is a parse failure.
func ParseDecision(raw []byte, model string) (*core.Classification, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("decision response is not a JSON object")
	}

	var resp DecisionResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse decision response: %w", err)
	}

	return &core.Classification{
		Reject:      resp.IsReject(),
		Explanation: resp.Explanation,
		Model:       model,
		Raw:         json.RawMessage(trimmed),
	}, nil
}

// ParseModelOutput extracts the verdict object from free model text
func ParseModelOutput(text string, model string) (*core.Classification, error) {
	return ParseDecision([]byte(utils.ExtractJSON(strings.TrimSpace(text))), model)
}
