package core

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/llm-feed-filter/internal/dedup"
	"github.com/mikey/llm-feed-filter/internal/lru"
	"github.com/mikey/llm-feed-filter/internal/ports"
	"github.com/mikey/llm-feed-filter/internal/snapshot"
	"go.uber.org/zap"
)

// StateConfig sizes and locates the persisted pipeline state
type StateConfig struct {
	Capacity    int
	TTL         time.Duration
	CacheSlot   string
	DedupSlot   string
	CounterSlot string
}

// State is the explicitly owned cache, dedup index and call counter that a
// pipeline mutates. It is created or restored once at startup.
type State struct {
	Cache     *lru.Cache[Verdict]
	Snapshots *snapshot.Store[Verdict]
	Processed *dedup.Index
	Calls     *CallCounter
}

// RestoreState builds the pipeline state from the durable store. Missing or
// malformed slots yield empty state; only an invalid capacity is an error.
// A nil now uses the wall clock.
func RestoreState(
	ctx context.Context,
	slots ports.SlotStore,
	cfg StateConfig,
	logger *zap.Logger,
	now func() time.Time,
) (*State, error) {
	if now == nil {
		now = time.Now
	}

	cache, err := lru.New[Verdict](cfg.Capacity, lru.WithClock(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create verdict cache: %w", err)
	}

	snapshots := snapshot.NewStore[Verdict](slots, cfg.CacheSlot, logger).WithClock(now)
	snapshots.Restore(ctx, cache, cfg.TTL)

	return &State{
		Cache:     cache,
		Snapshots: snapshots,
		Processed: dedup.Load(ctx, slots, cfg.DedupSlot, logger),
		Calls:     LoadCallCounter(ctx, slots, cfg.CounterSlot, logger),
	}, nil
}
