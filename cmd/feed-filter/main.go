package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-feed-filter/internal/adapters/source"
	"github.com/mikey/llm-feed-filter/internal/adapters/watch"
	"github.com/mikey/llm-feed-filter/internal/config"
	"github.com/mikey/llm-feed-filter/internal/core"
	"github.com/mikey/llm-feed-filter/internal/di"
	"github.com/mikey/llm-feed-filter/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	pipeline *core.Pipeline,
	src *source.JSONLinesSource,
	classifier core.Classifier,
	slots ports.SlotStore,
) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipelineCfg, err := cfg.GetPipeline()
	if err != nil {
		return err
	}

	trigger := func(ctx context.Context) error {
		_, err := pipeline.Run(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	// Initial kick
	g.Go(func() error {
		if err := trigger(gctx); err != nil {
			logger.Error("Initial run failed", zap.Error(err))
		}
		return nil
	})

	if cfg.GetSource().Watch {
		watcher := watch.NewFileWatcher(src.Path(), trigger, pipelineCfg.MinInterval, logger)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	// SIGHUP requests a manual recheck
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				logger.Info("Recheck requested")
				if err := trigger(gctx); err != nil && !errors.Is(err, core.ErrDebounced) {
					logger.Warn("Recheck failed", zap.Error(err))
				}
			}
		}
	})

	logger.Info("Feed filter started", zap.String("feed", src.Path()))
	err = g.Wait()
	logger.Info("Shutting down...")

	// Close any resources that need closing
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}

	// Stop the store if needed
	if stopper, ok := slots.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return err
}
