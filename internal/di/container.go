package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-feed-filter/internal/adapters/source"
	"github.com/mikey/llm-feed-filter/internal/config"
	"github.com/mikey/llm-feed-filter/internal/core"
	"github.com/mikey/llm-feed-filter/internal/factory"
	"github.com/mikey/llm-feed-filter/internal/logging"
	"github.com/mikey/llm-feed-filter/internal/ports"
	"github.com/mikey/llm-feed-filter/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
// for the long-running service
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	return container, nil
}

// providePipeline registers the factories, adapters, state and pipeline.
// The container must already provide *config.Config and *zap.Logger.
func providePipeline(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewFeedFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}

	// Register slot store
	if err := container.Provide(func(f *factory.StoreFactory) (ports.SlotStore, error) {
		return f.CreateSlotStore()
	}); err != nil {
		return err
	}

	// Register feed collaborators
	if err := container.Provide(func(f *factory.FeedFactory) *source.JSONLinesSource {
		return f.CreateSource()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(s *source.JSONLinesSource) core.ItemSource {
		return s
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.FeedFactory) (core.EffectSink, error) {
		return f.CreateSink()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.FeedFactory) (core.IdentityResolver, error) {
		return f.CreateIdentityResolver()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.FeedFactory) core.AuthorPolicy {
		return f.CreateAuthorPolicy()
	}); err != nil {
		return err
	}

	// Register restored pipeline state
	if err := container.Provide(func(cfg *config.Config, slots ports.SlotStore, logger *zap.Logger) (*core.State, error) {
		stateCfg, err := cfg.GetState()
		if err != nil {
			return nil, err
		}
		state, err := core.RestoreState(context.Background(), slots, core.StateConfig{
			Capacity:    stateCfg.Capacity,
			TTL:         stateCfg.TTL,
			CacheSlot:   stateCfg.CacheSlot,
			DedupSlot:   stateCfg.DedupSlot,
			CounterSlot: stateCfg.CounterSlot,
		}, logger, nil)
		if err != nil {
			return nil, err
		}
		logger.Info("Restored pipeline state",
			zap.Int("cached_verdicts", state.Cache.Len()),
			zap.Int("processed", state.Processed.Len()),
			zap.Int64("gateway_calls", state.Calls.Value()))
		return state, nil
	}); err != nil {
		return err
	}

	// Register pipeline
	if err := container.Provide(func(
		cfg *config.Config,
		state *core.State,
		src core.ItemSource,
		resolver core.IdentityResolver,
		classifier core.Classifier,
		sink core.EffectSink,
		authors core.AuthorPolicy,
		logger *zap.Logger,
	) (*core.Pipeline, error) {
		pipelineCfg, err := cfg.GetPipeline()
		if err != nil {
			return nil, err
		}
		return core.NewPipeline(state, src, resolver, classifier, sink, authors, logger, pipelineCfg.MinInterval), nil
	}); err != nil {
		return err
	}

	return nil
}
