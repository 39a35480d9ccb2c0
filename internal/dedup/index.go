// Package dedup records identities whose terminal outcome is already known,
// so that they are never sent for classification again.
package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/mikey/llm-feed-filter/internal/ports"
	"go.uber.org/zap"
)

// Index is a persisted set of processed identities. It has no capacity bound
// and is independent of any cache eviction. Every Add rewrites the full set
// to its durable slot; write failures are logged and swallowed.
type Index struct {
	mu     sync.RWMutex
	seen   map[string]struct{}
	slots  ports.SlotStore
	slot   string
	logger *zap.Logger
}

// Load creates an index backed by slot and restores any previously stored set.
// A missing or malformed slot yields an empty index.
func Load(ctx context.Context, slots ports.SlotStore, slot string, logger *zap.Logger) *Index {
	idx := &Index{
		seen:   make(map[string]struct{}),
		slots:  slots,
		slot:   slot,
		logger: logger,
	}

	blob, err := slots.Get(ctx, slot)
	if err != nil {
		if !errors.Is(err, ports.ErrSlotNotFound) {
			logger.Warn("Failed to read dedup index", zap.Error(err), zap.String("slot", slot))
		}
		return idx
	}

	var ids []string
	if err := json.Unmarshal(blob, &ids); err != nil {
		logger.Warn("Discarding malformed dedup index", zap.Error(err), zap.String("slot", slot))
		return idx
	}
	for _, id := range ids {
		idx.seen[id] = struct{}{}
	}

	logger.Info("Restored dedup index", zap.String("slot", slot), zap.Int("size", len(idx.seen)))
	return idx
}

// Contains reports whether identity has been marked processed
func (i *Index) Contains(identity string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	_, ok := i.seen[identity]
	return ok
}

// Add marks identity processed and persists the updated set
func (i *Index) Add(ctx context.Context, identity string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.seen[identity] = struct{}{}
	i.persistLocked(ctx)
}

// Len returns the number of processed identities
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.seen)
}

// ClearAll empties the set and removes its durable slot
func (i *Index) ClearAll(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.seen = make(map[string]struct{})
	if err := i.slots.Delete(ctx, i.slot); err != nil {
		i.logger.Warn("Failed to delete dedup index", zap.Error(err), zap.String("slot", i.slot))
	}
}

// persistLocked writes the full set. Must be called with mu held.
func (i *Index) persistLocked(ctx context.Context) {
	ids := make([]string, 0, len(i.seen))
	for id := range i.seen {
		ids = append(ids, id)
	}
	// sorted so identical sets produce identical blobs
	sort.Strings(ids)

	blob, err := json.Marshal(ids)
	if err != nil {
		i.logger.Error("Failed to encode dedup index", zap.Error(err))
		return
	}

	if err := i.slots.Set(ctx, i.slot, blob); err != nil {
		i.logger.Warn("Failed to save dedup index",
			zap.Error(err),
			zap.String("slot", i.slot),
			zap.Int("size", len(ids)))
	}
}
