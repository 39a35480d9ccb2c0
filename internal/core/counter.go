package core

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/mikey/llm-feed-filter/internal/ports"
	"go.uber.org/zap"
)

// CallCounter is the cumulative number of gateway calls, persisted to its own slot
type CallCounter struct {
	count  atomic.Int64
	slots  ports.SlotStore
	slot   string
	logger *zap.Logger
}

// LoadCallCounter restores the counter from slot; missing or malformed data starts at zero
func LoadCallCounter(ctx context.Context, slots ports.SlotStore, slot string, logger *zap.Logger) *CallCounter {
	c := &CallCounter{
		slots:  slots,
		slot:   slot,
		logger: logger,
	}

	blob, err := slots.Get(ctx, slot)
	if err != nil {
		if !errors.Is(err, ports.ErrSlotNotFound) {
			logger.Warn("Failed to read gateway call counter", zap.Error(err))
		}
		return c
	}

	n, err := strconv.ParseInt(strings.TrimSpace(string(blob)), 10, 64)
	if err != nil {
		logger.Warn("Discarding malformed gateway call counter", zap.Error(err))
		return c
	}
	c.count.Store(n)
	return c
}

// Increment adds one call and persists the new total
func (c *CallCounter) Increment(ctx context.Context) int64 {
	n := c.count.Add(1)
	if err := c.slots.Set(ctx, c.slot, []byte(strconv.FormatInt(n, 10))); err != nil {
		c.logger.Warn("Failed to save gateway call counter", zap.Error(err))
	}
	return n
}

// Value returns the current total
func (c *CallCounter) Value() int64 {
	return c.count.Load()
}

// Reset zeroes the counter and removes its slot
func (c *CallCounter) Reset(ctx context.Context) {
	c.count.Store(0)
	if err := c.slots.Delete(ctx, c.slot); err != nil {
		c.logger.Warn("Failed to delete gateway call counter", zap.Error(err))
	}
}
