package ports

import (
	"context"
	"errors"
)

// ErrSlotNotFound is returned when a durable slot holds no blob
var ErrSlotNotFound = errors.New("slot not found")

// SlotStore defines a crash-surviving store of opaque blobs addressed by slot name
type SlotStore interface {
	// Get retrieves the blob stored in a slot, or ErrSlotNotFound
	Get(ctx context.Context, slot string) ([]byte, error)

	// Set replaces the blob stored in a slot
	Set(ctx context.Context, slot string, blob []byte) error

	// Delete removes a slot; deleting a missing slot is not an error
	Delete(ctx context.Context, slot string) error
}
