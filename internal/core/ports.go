package core

import (
	"context"
	"iter"
)

// Classifier defines the boundary to the remote decision service
type Classifier interface {
	// Classify sends one item's text and metadata for a decision. Transport
	// and parse failures are returned as errors.
	Classify(ctx context.Context, req *ClassificationRequest) (*Classification, error)
}

// ItemSource yields the candidate items of one scan. Successive scans may
// yield items seen before.
type ItemSource interface {
	Scan(ctx context.Context) (iter.Seq[Item], error)
}

// EffectSink applies the hide side effect. Hide is idempotent and
// fire-and-forget.
type EffectSink interface {
	Hide(ctx context.Context, item Item)
}

// IdentityResolver derives an Identity from an item. It returns false when no
// identity can be extracted.
type IdentityResolver interface {
	Resolve(item Item) (Identity, bool)
}

// AuthorPolicy decides whether an author bypasses classification
type AuthorPolicy interface {
	IsAllowed(author string) bool
}
