package store

import (
	"context"
	"sync"

	"github.com/mikey/llm-feed-filter/internal/ports"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the SlotStore interface.
// Contents do not survive a restart; it is meant for tests and dry runs.
type MemoryStore struct {
	slots  map[string][]byte
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewMemoryStore creates a new in-memory slot store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		slots:  make(map[string][]byte),
		logger: logger,
	}
}

// Get retrieves the blob stored in a slot
func (s *MemoryStore) Get(ctx context.Context, slot string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.slots[slot]
	if !ok {
		return nil, ports.ErrSlotNotFound
	}

	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

// Set replaces the blob stored in a slot
func (s *MemoryStore) Set(ctx context.Context, slot string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.slots[slot] = stored

	s.logger.Debug("Stored slot", zap.String("slot", slot), zap.Int("bytes", len(blob)))
	return nil
}

// Delete removes a slot
func (s *MemoryStore) Delete(ctx context.Context, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, slot)
	return nil
}
