package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mikey/llm-feed-filter/internal/lru"
	"github.com/mikey/llm-feed-filter/internal/ports"
	"go.uber.org/zap"
)

// record is the persisted form of one cache entry
type record[V any] struct {
	Key       string    `json:"key"`
	Value     V         `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// blob is the persisted form of a whole cache
type blob[V any] struct {
	Items []record[V] `json:"items"`
}

// Store saves and restores an lru.Cache to a single durable slot.
// Persistence is best-effort: failures are logged and never returned.
type Store[V any] struct {
	slots  ports.SlotStore
	slot   string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a snapshot store writing to the given slot
func NewStore[V any](slots ports.SlotStore, slot string, logger *zap.Logger) *Store[V] {
	return &Store[V]{
		slots:  slots,
		slot:   slot,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the clock used to age entries on restore
func (s *Store[V]) WithClock(now func() time.Time) *Store[V] {
	s.now = now
	return s
}

// Save overwrites the slot with every entry currently in the cache
func (s *Store[V]) Save(ctx context.Context, cache *lru.Cache[V]) {
	entries := cache.Entries()
	data := blob[V]{Items: make([]record[V], 0, len(entries))}
	for _, e := range entries {
		data.Items = append(data.Items, record[V]{
			Key:       e.Key,
			Value:     e.Value,
			Timestamp: e.UpdatedAt.UTC(),
		})
	}

	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("Failed to encode cache snapshot", zap.Error(err), zap.String("slot", s.slot))
		return
	}

	if err := s.slots.Set(ctx, s.slot, payload); err != nil {
		s.logger.Warn("Failed to save cache snapshot",
			zap.Error(err),
			zap.String("slot", s.slot),
			zap.Int("entries", len(entries)))
	}
}

// Restore replays every stored entry younger than ttl into cache, oldest
// recency first, through the cache's normal capacity rules. A missing or
// unreadable snapshot leaves the cache untouched. It returns the number of
// entries replayed.
func (s *Store[V]) Restore(ctx context.Context, cache *lru.Cache[V], ttl time.Duration) int {
	payload, err := s.slots.Get(ctx, s.slot)
	if err != nil {
		if !errors.Is(err, ports.ErrSlotNotFound) {
			s.logger.Warn("Failed to read cache snapshot", zap.Error(err), zap.String("slot", s.slot))
		}
		return 0
	}

	var data blob[V]
	if err := json.Unmarshal(payload, &data); err != nil {
		s.logger.Warn("Discarding malformed cache snapshot", zap.Error(err), zap.String("slot", s.slot))
		return 0
	}

	if ttl <= 0 {
		s.logger.Debug("Cache TTL is zero, dropping snapshot", zap.Int("stored", len(data.Items)))
		return 0
	}

	now := s.now()
	restored := 0
	for _, item := range data.Items {
		if now.Sub(item.Timestamp) >= ttl {
			continue
		}
		cache.SetAt(item.Key, item.Value, item.Timestamp)
		restored++
	}

	s.logger.Info("Restored cache snapshot",
		zap.String("slot", s.slot),
		zap.Int("stored", len(data.Items)),
		zap.Int("restored", restored),
		zap.Int("expired", len(data.Items)-restored))

	return restored
}

// Clear removes the snapshot slot
func (s *Store[V]) Clear(ctx context.Context) {
	if err := s.slots.Delete(ctx, s.slot); err != nil {
		s.logger.Warn("Failed to delete cache snapshot", zap.Error(err), zap.String("slot", s.slot))
	}
}
