package core

import (
	"encoding/json"
	"time"
)

// Item is one candidate content item yielded by a source. Fields other than
// Handle may be empty when the source could not extract them.
type Item struct {
	Handle    string `json:"handle,omitempty"`
	ID        string `json:"id,omitempty"`
	URL       string `json:"url,omitempty"`
	Author    string `json:"author,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Text      string `json:"text"`
}

// Identity is the stable key of a logical item across re-scans
type Identity struct {
	Key string
	// LowConfidence is set when the key was derived from a composite of
	// mutable attributes rather than a permanent URL or ID
	LowConfidence bool
}

// Outcome is the terminal result of classifying one item
type Outcome string

const (
	OutcomeAccept  Outcome = "accept"
	OutcomeReject  Outcome = "reject"
	OutcomeErrored Outcome = "errored"
)

// SourceMetadata describes where a classified item came from
type SourceMetadata struct {
	ID                    string `json:"id,omitempty"`
	URL                   string `json:"url,omitempty"`
	Author                string `json:"author,omitempty"`
	Timestamp             string `json:"timestamp,omitempty"`
	LowConfidenceIdentity bool   `json:"low_confidence_identity,omitempty"`
}

// Verdict is the stored outcome for one identity. A later write for the same
// identity replaces it entirely.
type Verdict struct {
	Text        string          `json:"text"`
	Source      SourceMetadata  `json:"source"`
	DecidedAt   time.Time       `json:"decided_at"`
	Outcome     Outcome         `json:"outcome"`
	RawResult   json.RawMessage `json:"raw_result,omitempty"`
	Model       string          `json:"model,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Hidden reports whether the item should be hidden
func (v Verdict) Hidden() bool {
	return v.Outcome == OutcomeReject
}

// ClassificationRequest is what a gateway receives for one item
type ClassificationRequest struct {
	Text   string `json:"text"`
	URL    string `json:"url,omitempty"`
	Author string `json:"author,omitempty"`
}

// Classification is a well-formed gateway response
type Classification struct {
	Reject      bool
	Explanation string
	Model       string
	Raw         json.RawMessage
}

// RunReport summarizes one pipeline run
type RunReport struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Scanned      int           `json:"scanned"`
	Skipped      int           `json:"skipped"`
	Allowlisted  int           `json:"allowlisted"`
	DedupHits    int           `json:"dedup_hits"`
	CacheHits    int           `json:"cache_hits"`
	GatewayCalls int           `json:"gateway_calls"`
	Errored      int           `json:"errored"`
	Hidden       int           `json:"hidden"`
}
