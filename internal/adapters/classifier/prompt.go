package classifier

import (
	"fmt"

	"github.com/mikey/llm-feed-filter/internal/core"
)

// DefaultFilterRules keeps posts about AI and quant developments
const DefaultFilterRules = `Return YES if the post mentions:
- New developments in AI agents.
- Releases of new LLMs (e.g., ChatGPT, Claude, v0, Cursor) or updates from OpenAI/Anthropic.
- Announcements of models outperforming others or setting new benchmarks.
- Announcements related to finance, quant or research papers or algorithmic trading.

Exclude any posts about courses, tutorials, or general discussions. Return NO for all other posts.`

// SystemPrompt is sent as the system message where the backend supports one
const SystemPrompt = "You are a feed content filter. Respond only with JSON."

const promptFormat = `You are a feed content filter that follows these rules:
%s

Respond with a JSON object containing:
- decision: "YES" to keep the post or "NO" to hide it
- explanation: string (brief reason for the decision)

Post:
Author: %s
URL: %s
Text:
%s

Respond only with the JSON object and nothing else.`

// BuildPrompt renders the filter prompt for one request. text is the already
// processed item text.
func BuildPrompt(rules string, req *core.ClassificationRequest, text string) string {
	if rules == "" {
		rules = DefaultFilterRules
	}
	author := req.Author
	if author == "" {
		author = "unknown"
	}
	url := req.URL
	if url == "" {
		url = "unknown"
	}
	return fmt.Sprintf(promptFormat, rules, author, url, text)
}
