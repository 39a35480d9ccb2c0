package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mikey/llm-feed-filter/internal/core"
	"github.com/mikey/llm-feed-filter/internal/utils"
)

// Strategy names accepted by New
const (
	StrategyPermalink = "permalink"
	StrategyHash      = "hash"
)

// New returns the resolver for the named strategy
func New(strategy string) (core.IdentityResolver, error) {
	switch strings.ToLower(strategy) {
	case "", StrategyPermalink:
		return PermalinkResolver{}, nil
	case StrategyHash:
		return HashResolver{}, nil
	default:
		return nil, fmt.Errorf("unsupported identity strategy: %s", strategy)
	}
}

// stable returns the permanent URL or ID of an item, if any
func stable(item core.Item) (string, bool) {
	if url := strings.TrimSpace(item.URL); url != "" {
		return url, true
	}
	if id := strings.TrimSpace(item.ID); id != "" {
		return id, true
	}
	return "", false
}

// PermalinkResolver keys items by URL, then ID, then the readable composite
// author:timestamp:text. The composite is low confidence since any of its
// parts may change between renders.
type PermalinkResolver struct{}

// Resolve implements core.IdentityResolver
func (PermalinkResolver) Resolve(item core.Item) (core.Identity, bool) {
	if key, ok := stable(item); ok {
		return core.Identity{Key: key}, true
	}
	if item.Text == "" {
		return core.Identity{}, false
	}
	return core.Identity{
		Key:           item.Author + ":" + item.Timestamp + ":" + item.Text,
		LowConfidence: true,
	}, true
}

// HashResolver keys items by URL, then ID, then a sha256 of the normalized
// composite, which keeps keys short and tolerates whitespace and Unicode
// normalization differences.
type HashResolver struct{}

// Resolve implements core.IdentityResolver
func (HashResolver) Resolve(item core.Item) (core.Identity, bool) {
	if key, ok := stable(item); ok {
		return core.Identity{Key: key}, true
	}
	text := utils.Normalize(item.Text)
	if text == "" {
		return core.Identity{}, false
	}

	sum := sha256.Sum256([]byte(utils.Normalize(item.Author) + "\x00" + utils.Normalize(item.Timestamp) + "\x00" + text))
	return core.Identity{
		Key:           "sha256:" + hex.EncodeToString(sum[:]),
		LowConfidence: true,
	}, true
}
