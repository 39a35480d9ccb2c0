package core

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mikey/llm-feed-filter/internal/adapters/store"
	"github.com/mikey/llm-feed-filter/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sliceSource struct {
	items []Item
	err   error
}

func (s *sliceSource) Scan(context.Context) (iter.Seq[Item], error) {
	if s.err != nil {
		return nil, s.err
	}
	return slices.Values(s.items), nil
}

// urlResolver keys items by URL, falling back to a low-confidence handle key
type urlResolver struct{}

func (urlResolver) Resolve(item Item) (Identity, bool) {
	if item.URL != "" {
		return Identity{Key: item.URL}, true
	}
	if item.Handle != "" {
		return Identity{Key: "handle:" + item.Handle, LowConfidence: true}, true
	}
	return Identity{}, false
}

type fakeClassifier struct {
	mu      sync.Mutex
	reject  map[string]bool
	fail    map[string]bool
	calls   []string
	block   chan struct{}
	entered chan struct{}
}

func newFakeClassifier() *fakeClassifier {
	return &fakeClassifier{reject: map[string]bool{}, fail: map[string]bool{}}
}

func (c *fakeClassifier) Classify(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req.Text)
	block, entered := c.block, c.entered
	c.mu.Unlock()

	if block != nil {
		entered <- struct{}{}
		<-block
	}
	if c.fail[req.Text] {
		return nil, errors.New("backend unavailable")
	}
	return &Classification{
		Reject: c.reject[req.Text],
		Model:  "fake",
		Raw:    []byte(`{"decision":"?"}`),
	}, nil
}

func (c *fakeClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type recordingSink struct {
	mu     sync.Mutex
	hidden map[string]int
}

func (s *recordingSink) Hide(_ context.Context, item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hidden == nil {
		s.hidden = map[string]int{}
	}
	s.hidden[item.Handle]++
}

func (s *recordingSink) Count(handle string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden[handle]
}

type staticAuthors map[string]bool

func (a staticAuthors) IsAllowed(author string) bool { return a[author] }

type fixture struct {
	clock      *fakeClock
	slots      *store.MemoryStore
	state      *State
	source     *sliceSource
	classifier *fakeClassifier
	sink       *recordingSink
	pipeline   *Pipeline
}

var testStateConfig = StateConfig{
	Capacity:    10,
	TTL:         24 * time.Hour,
	CacheSlot:   "cache",
	DedupSlot:   "processed",
	CounterSlot: "calls",
}

func newFixture(t *testing.T, cfg StateConfig, items ...Item) *fixture {
	t.Helper()
	f := &fixture{
		clock:      &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
		slots:      store.NewMemoryStore(zap.NewNop()),
		source:     &sliceSource{items: items},
		classifier: newFakeClassifier(),
		sink:       &recordingSink{},
	}
	f.restore(t, cfg)
	return f
}

// restore rebuilds state and pipeline from the fixture's durable slots
func (f *fixture) restore(t *testing.T, cfg StateConfig) {
	t.Helper()
	state, err := RestoreState(context.Background(), f.slots, cfg, zap.NewNop(), f.clock.Now)
	require.NoError(t, err)
	f.state = state
	f.pipeline = NewPipeline(state, f.source, urlResolver{}, f.classifier, f.sink, nil, zap.NewNop(), time.Second).
		WithClock(f.clock.Now)
}

// runAfterInterval advances past the debounce window and runs
func (f *fixture) runAfterInterval(t *testing.T) *RunReport {
	t.Helper()
	f.clock.Advance(2 * time.Second)
	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	return report
}

func TestPipeline_ClassifiesAndHidesRejected(t *testing.T) {
	f := newFixture(t, testStateConfig,
		Item{Handle: "1", URL: "u/1", Text: "keep me"},
		Item{Handle: "2", URL: "u/2", Text: "hide me", Author: "bob"},
	)
	f.classifier.reject["hide me"] = true

	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.GatewayCalls)
	assert.Equal(t, 1, report.Hidden)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 0, f.sink.Count("1"))
	assert.Equal(t, 1, f.sink.Count("2"))

	verdict, ok := f.state.Cache.Get("u/2")
	require.True(t, ok)
	assert.Equal(t, OutcomeReject, verdict.Outcome)
	assert.Equal(t, "bob", verdict.Source.Author)
	assert.Equal(t, "fake", verdict.Model)
	assert.Equal(t, f.clock.Now(), verdict.DecidedAt)
	assert.True(t, f.state.Processed.Contains("u/1"))
	assert.True(t, f.state.Processed.Contains("u/2"))
	assert.Equal(t, int64(2), f.state.Calls.Value())
}

func TestPipeline_DebouncesRunsWithinInterval(t *testing.T) {
	f := newFixture(t, testStateConfig, Item{Handle: "1", URL: "u/1", Text: "a"})

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	callsAfterFirst := f.classifier.Calls()

	f.source.items = append(f.source.items, Item{Handle: "2", URL: "u/2", Text: "b"})
	f.clock.Advance(100 * time.Millisecond)
	report, err := f.pipeline.Run(context.Background())

	assert.ErrorIs(t, err, ErrDebounced)
	assert.Nil(t, report)
	assert.Equal(t, callsAfterFirst, f.classifier.Calls())
	assert.False(t, f.state.Processed.Contains("u/2"))

	f.clock.Advance(900 * time.Millisecond)
	_, err = f.pipeline.Run(context.Background())
	require.NoError(t, err, "a run exactly minInterval later is accepted")
	assert.True(t, f.state.Processed.Contains("u/2"))
}

func TestPipeline_GatewayFailureIsFinal(t *testing.T) {
	f := newFixture(t, testStateConfig, Item{Handle: "x", URL: "u/x", Text: "broken"})
	f.classifier.fail["broken"] = true

	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errored)
	assert.Equal(t, 0, f.sink.Count("x"))

	verdict, ok := f.state.Cache.Get("u/x")
	require.True(t, ok)
	assert.Equal(t, OutcomeErrored, verdict.Outcome)
	assert.Contains(t, verdict.Error, "backend unavailable")

	report = f.runAfterInterval(t)
	assert.Equal(t, 1, f.classifier.Calls(), "failed identities are not retried")
	assert.Equal(t, 1, report.DedupHits)
}

func TestPipeline_RejectedItemRehiddenOnRescan(t *testing.T) {
	f := newFixture(t, testStateConfig, Item{Handle: "y", URL: "u/y", Text: "noise"})
	f.classifier.reject["noise"] = true

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.sink.Count("y"))
	assert.Equal(t, 1, f.classifier.Calls())

	report := f.runAfterInterval(t)
	assert.Equal(t, 2, f.sink.Count("y"), "hide is re-applied from the cached verdict")
	assert.Equal(t, 1, f.classifier.Calls())
	assert.Equal(t, 1, report.Hidden)
}

func TestPipeline_SkipsItemsWithoutTextOrIdentity(t *testing.T) {
	f := newFixture(t, testStateConfig,
		Item{Handle: "no-text", URL: "u/1"},
		Item{Text: "no identity"},
	)

	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, f.classifier.Calls())
	assert.Equal(t, 0, f.state.Cache.Len())
	assert.Equal(t, 0, f.state.Processed.Len())
}

func TestPipeline_CacheHitBackfillsDedup(t *testing.T) {
	f := newFixture(t, testStateConfig, Item{Handle: "c", URL: "u/c", Text: "cached"})
	f.state.Cache.Set("u/c", Verdict{Outcome: OutcomeReject})

	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.CacheHits)
	assert.Equal(t, 0, f.classifier.Calls())
	assert.Equal(t, 1, f.sink.Count("c"))
	assert.True(t, f.state.Processed.Contains("u/c"))
}

func TestPipeline_DedupHitAfterEvictionLeavesItemAlone(t *testing.T) {
	cfg := testStateConfig
	cfg.Capacity = 1
	f := newFixture(t, cfg,
		Item{Handle: "a", URL: "u/a", Text: "reject a"},
		Item{Handle: "b", URL: "u/b", Text: "accept b"},
	)
	f.classifier.reject["reject a"] = true

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.False(t, f.state.Cache.Has("u/a"), "capacity one evicts the first verdict")
	require.Equal(t, 1, f.sink.Count("a"))

	report := f.runAfterInterval(t)
	assert.Equal(t, 2, report.DedupHits)
	assert.Equal(t, 2, f.classifier.Calls(), "no gateway call for dedup-final identities")
	assert.Equal(t, 1, f.sink.Count("a"), "evicted verdict cannot be re-applied")
}

func TestPipeline_AllowlistedAuthorsBypassClassification(t *testing.T) {
	f := newFixture(t, testStateConfig, Item{Handle: "t", URL: "u/t", Text: "trusted", Author: "friend"})
	f.pipeline.authors = staticAuthors{"friend": true}

	report, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Allowlisted)
	assert.Equal(t, 0, f.classifier.Calls())
	assert.False(t, f.state.Processed.Contains("u/t"))
}

func TestPipeline_StateSurvivesRestart(t *testing.T) {
	f := newFixture(t, testStateConfig,
		Item{Handle: "1", URL: "u/1", Text: "one"},
		Item{Handle: "2", URL: "u/2", Text: "two"},
	)
	f.classifier.reject["two"] = true
	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	f.restore(t, testStateConfig)

	assert.Equal(t, 2, f.state.Cache.Len())
	assert.Equal(t, 2, f.state.Processed.Len())
	assert.Equal(t, int64(2), f.state.Calls.Value())

	_, err = f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.classifier.Calls())
	assert.Equal(t, 2, f.sink.Count("2"))
}

func TestPipeline_RestoreDropsExpiredVerdictsButKeepsDedup(t *testing.T) {
	f := newFixture(t, testStateConfig, Item{Handle: "1", URL: "u/1", Text: "one"})
	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	f.restore(t, testStateConfig)

	assert.Equal(t, 0, f.state.Cache.Len())
	assert.True(t, f.state.Processed.Contains("u/1"))
}

func TestPipeline_Reset(t *testing.T) {
	f := newFixture(t, testStateConfig, Item{Handle: "1", URL: "u/1", Text: "one"})
	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	f.pipeline.Reset(context.Background())

	stats := f.pipeline.Stats()
	assert.Equal(t, 0, stats.Cache.Size)
	assert.Equal(t, 0, stats.DedupSize)
	assert.Equal(t, int64(0), stats.GatewayCalls)
	for _, slot := range []string{"cache", "processed", "calls"} {
		_, err := f.slots.Get(context.Background(), slot)
		assert.ErrorIs(t, err, ports.ErrSlotNotFound, slot)
	}

	f.runAfterInterval(t)
	assert.Equal(t, 2, f.classifier.Calls(), "reset items are classified again")
}

func TestPipeline_Stats(t *testing.T) {
	f := newFixture(t, testStateConfig,
		Item{Handle: "1", URL: "u/1", Text: "one"},
		Item{Handle: "2", URL: "u/2", Text: "two"},
	)
	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	stats := f.pipeline.Stats()
	assert.Equal(t, 2, stats.Cache.Size)
	assert.Equal(t, 10, stats.Cache.Capacity)
	assert.Equal(t, "u/2", stats.Cache.MostRecentKeyPrefix)
	assert.Equal(t, "u/1", stats.Cache.LeastRecentKeyPrefix)
	assert.Equal(t, 2, stats.DedupSize)
	assert.Equal(t, int64(2), stats.GatewayCalls)
	assert.Equal(t, f.clock.Now(), stats.LastRunAt)
}

func TestPipeline_SourceErrorFailsRun(t *testing.T) {
	f := newFixture(t, testStateConfig)
	f.source.err = errors.New("feed unreadable")

	_, err := f.pipeline.Run(context.Background())
	assert.ErrorContains(t, err, "feed unreadable")
}

func TestPipeline_RejectsOverlappingRuns(t *testing.T) {
	f := newFixture(t, testStateConfig, Item{Handle: "1", URL: "u/1", Text: "slow"})
	f.classifier.block = make(chan struct{})
	f.classifier.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.pipeline.Run(context.Background())
		done <- err
	}()
	<-f.classifier.entered

	f.clock.Advance(time.Minute)
	_, err := f.pipeline.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(f.classifier.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.classifier.Calls())
}

func TestRestoreState_RejectsInvalidCapacity(t *testing.T) {
	cfg := testStateConfig
	cfg.Capacity = 0
	_, err := RestoreState(context.Background(), store.NewMemoryStore(zap.NewNop()), cfg, zap.NewNop(), nil)
	assert.Error(t, err)
}
