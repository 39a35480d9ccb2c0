package factory

import (
	"fmt"

	"github.com/mikey/llm-feed-filter/internal/adapters/sink"
	"github.com/mikey/llm-feed-filter/internal/adapters/source"
	"github.com/mikey/llm-feed-filter/internal/allowlist"
	"github.com/mikey/llm-feed-filter/internal/config"
	"github.com/mikey/llm-feed-filter/internal/core"
	"github.com/mikey/llm-feed-filter/internal/identity"
	"go.uber.org/zap"
)

// FeedFactory creates the feed-facing collaborators of the pipeline
type FeedFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFeedFactory creates a new feed factory
func NewFeedFactory(cfg *config.Config, logger *zap.Logger) *FeedFactory {
	return &FeedFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSource creates the item source
func (f *FeedFactory) CreateSource() *source.JSONLinesSource {
	return source.NewJSONLinesSource(f.cfg.GetSource().Path, f.logger)
}

// CreateSink creates the hide effect sink based on the configuration
func (f *FeedFactory) CreateSink() (core.EffectSink, error) {
	sinkCfg := f.cfg.GetSink()

	switch sinkCfg.Type {
	case "log":
		return sink.NewLogSink(f.logger), nil
	case "file":
		s, err := sink.NewFileSink(sinkCfg.Path, f.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", sinkCfg.Type)
	}
}

// CreateIdentityResolver creates the identity resolver for the configured strategy
func (f *FeedFactory) CreateIdentityResolver() (core.IdentityResolver, error) {
	return identity.New(f.cfg.GetFilter().IdentityStrategy)
}

// CreateAuthorPolicy creates the author allowlist
func (f *FeedFactory) CreateAuthorPolicy() core.AuthorPolicy {
	return allowlist.NewChecker(f.cfg.GetFilter().AllowedAuthors, f.logger)
}
