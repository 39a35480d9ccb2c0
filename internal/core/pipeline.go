package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/llm-feed-filter/internal/lru"
	"go.uber.org/zap"
)

var (
	// ErrDebounced is returned when a run starts within the minimum interval of the previous one
	ErrDebounced = errors.New("run rejected: minimum interval not elapsed")
	// ErrRunInProgress is returned when a run is requested while another is active
	ErrRunInProgress = errors.New("run rejected: another run is in progress")
)

// itemResult is how one item was handled during a run
type itemResult int

const (
	resultSkipped itemResult = iota
	resultAllowlisted
	resultDedupHit
	resultCacheHit
	resultClassified
	resultErrored
)

// Stats is the read-only debug view of a pipeline
type Stats struct {
	Cache        lru.Stats `json:"cache"`
	DedupSize    int       `json:"dedup_size"`
	GatewayCalls int64     `json:"gateway_calls"`
	LastRunAt    time.Time `json:"last_run_at"`
}

// Pipeline scans a source, classifies unseen items and hides rejected ones.
// At most one run is active at a time and runs closer together than
// minInterval are rejected.
type Pipeline struct {
	state       *State
	source      ItemSource
	resolver    IdentityResolver
	classifier  Classifier
	sink        EffectSink
	authors     AuthorPolicy
	logger      *zap.Logger
	minInterval time.Duration
	now         func() time.Time

	// runMu is held for the whole of a run or reset
	runMu sync.Mutex
	// stateMu guards lastRunAt and the state between gateway calls
	stateMu   sync.Mutex
	lastRunAt time.Time
}

// NewPipeline creates a new processing pipeline. authors may be nil.
func NewPipeline(
	state *State,
	source ItemSource,
	resolver IdentityResolver,
	classifier Classifier,
	sink EffectSink,
	authors AuthorPolicy,
	logger *zap.Logger,
	minInterval time.Duration,
) *Pipeline {
	return &Pipeline{
		state:       state,
		source:      source,
		resolver:    resolver,
		classifier:  classifier,
		sink:        sink,
		authors:     authors,
		logger:      logger,
		minInterval: minInterval,
		now:         time.Now,
	}
}

// WithClock overrides the clock used for debouncing and verdict timestamps
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run performs one scan of the source. It returns ErrDebounced or
// ErrRunInProgress without enumerating any item when the entry guard rejects
// the run. Individual item failures never abort the run.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	if !p.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.runMu.Unlock()

	p.stateMu.Lock()
	startedAt := p.now()
	if !p.lastRunAt.IsZero() && startedAt.Sub(p.lastRunAt) < p.minInterval {
		p.stateMu.Unlock()
		return nil, ErrDebounced
	}
	p.lastRunAt = startedAt
	p.stateMu.Unlock()

	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: startedAt,
	}
	logger := p.logger.With(zap.String("run_id", report.RunID))

	items, err := p.source.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}

	for item := range items {
		if ctx.Err() != nil {
			logger.Warn("Run interrupted", zap.Error(ctx.Err()), zap.Int("scanned", report.Scanned))
			break
		}
		report.Scanned++

		result, hidden := p.processItem(ctx, logger, item)
		if hidden {
			report.Hidden++
		}
		switch result {
		case resultSkipped:
			report.Skipped++
		case resultAllowlisted:
			report.Allowlisted++
		case resultDedupHit:
			report.DedupHits++
		case resultCacheHit:
			report.CacheHits++
		case resultClassified:
			report.GatewayCalls++
		case resultErrored:
			report.GatewayCalls++
			report.Errored++
		}
	}

	report.Duration = p.now().Sub(startedAt)
	logger.Info("Run complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("skipped", report.Skipped),
		zap.Int("dedup_hits", report.DedupHits),
		zap.Int("cache_hits", report.CacheHits),
		zap.Int("gateway_calls", report.GatewayCalls),
		zap.Int("errored", report.Errored),
		zap.Int("hidden", report.Hidden))

	return report, nil
}

// processItem handles one item and reports whether it was hidden
func (p *Pipeline) processItem(ctx context.Context, logger *zap.Logger, item Item) (itemResult, bool) {
	if item.Text == "" {
		logger.Debug("Skipping item without text", zap.String("handle", item.Handle))
		return resultSkipped, false
	}
	identity, ok := p.resolver.Resolve(item)
	if !ok {
		logger.Debug("Skipping item without identity", zap.String("handle", item.Handle))
		return resultSkipped, false
	}
	if p.authors != nil && item.Author != "" && p.authors.IsAllowed(item.Author) {
		logger.Debug("Skipping allowlisted author", zap.String("author", item.Author))
		return resultAllowlisted, false
	}

	logger = logger.With(zap.String("identity", identity.Key))

	p.stateMu.Lock()
	if p.state.Processed.Contains(identity.Key) {
		// The verdict may have been evicted; without it the item is left as is.
		verdict, cached := p.state.Cache.Get(identity.Key)
		p.stateMu.Unlock()

		hidden := cached && verdict.Hidden()
		if hidden {
			p.sink.Hide(ctx, item)
		}
		logger.Debug("Already processed", zap.Bool("cached", cached), zap.Bool("hidden", hidden))
		return resultDedupHit, hidden
	}

	if p.state.Cache.Has(identity.Key) {
		verdict, _ := p.state.Cache.Get(identity.Key)
		p.state.Processed.Add(ctx, identity.Key)
		p.stateMu.Unlock()

		if verdict.Hidden() {
			p.sink.Hide(ctx, item)
		}
		logger.Debug("Cache hit", zap.String("outcome", string(verdict.Outcome)))
		return resultCacheHit, verdict.Hidden()
	}
	p.stateMu.Unlock()

	verdict, result := p.classify(ctx, logger, item, identity)
	if verdict.Hidden() {
		p.sink.Hide(ctx, item)
	}

	p.stateMu.Lock()
	p.state.Cache.Set(identity.Key, verdict)
	p.state.Snapshots.Save(ctx, p.state.Cache)
	p.state.Processed.Add(ctx, identity.Key)
	p.stateMu.Unlock()

	return result, verdict.Hidden()
}

// classify calls the gateway and turns its answer into a verdict. A failed
// call yields an errored verdict, which is final like any other.
func (p *Pipeline) classify(ctx context.Context, logger *zap.Logger, item Item, identity Identity) (Verdict, itemResult) {
	verdict := Verdict{
		Text: item.Text,
		Source: SourceMetadata{
			ID:                    item.ID,
			URL:                   item.URL,
			Author:                item.Author,
			Timestamp:             item.Timestamp,
			LowConfidenceIdentity: identity.LowConfidence,
		},
	}

	calls := p.state.Calls.Increment(ctx)
	logger.Debug("Calling classifier", zap.Int64("gateway_calls", calls))

	classification, err := p.classifier.Classify(ctx, &ClassificationRequest{
		Text:   item.Text,
		URL:    item.URL,
		Author: item.Author,
	})
	verdict.DecidedAt = p.now()

	if err != nil {
		logger.Error("Classification failed", zap.Error(err))
		verdict.Outcome = OutcomeErrored
		verdict.Error = err.Error()
		return verdict, resultErrored
	}

	verdict.Outcome = OutcomeAccept
	if classification.Reject {
		verdict.Outcome = OutcomeReject
	}
	verdict.RawResult = classification.Raw
	verdict.Model = classification.Model
	verdict.Explanation = classification.Explanation

	logger.Info("Classified item",
		zap.String("outcome", string(verdict.Outcome)),
		zap.String("model", verdict.Model),
		zap.Bool("low_confidence_identity", identity.LowConfidence))

	return verdict, resultClassified
}

// Stats returns the debug view of the pipeline state
func (p *Pipeline) Stats() Stats {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	return Stats{
		Cache:        p.state.Cache.Stats(),
		DedupSize:    p.state.Processed.Len(),
		GatewayCalls: p.state.Calls.Value(),
		LastRunAt:    p.lastRunAt,
	}
}

// Reset clears the cache, the dedup index, the call counter and their durable
// slots. It waits for an active run to finish.
func (p *Pipeline) Reset(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	p.state.Cache.Clear()
	p.state.Snapshots.Clear(ctx)
	p.state.Processed.ClearAll(ctx)
	p.state.Calls.Reset(ctx)

	p.logger.Info("Pipeline state reset")
}
