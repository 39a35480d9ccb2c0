package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-feed-filter/internal/config"
	"github.com/mikey/llm-feed-filter/internal/logging"
)

// CLIOptions contains the global options of the control CLI
type CLIOptions struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool
	// Overrides are applied on top of the loaded configuration
	Overrides map[string]any
}

// BuildCLIContainer creates and configures a dependency injection container
// for the control CLI
func BuildCLIContainer(opts *CLIOptions) (*dig.Container, error) {
	container := dig.New()

	// Register options
	if err := container.Provide(func() *CLIOptions { return opts }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(opts *CLIOptions) (*zap.Logger, error) {
		return logging.InitConsoleLogger(opts.Verbose, opts.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(opts *CLIOptions, logger *zap.Logger) (*config.Config, error) {
		var (
			cfg *config.Config
			err error
		)
		if opts.ConfigFile != "" {
			cfg, err = config.NewFromFile(opts.ConfigFile)
		} else {
			cfg, err = config.New()
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("Loaded configuration", zap.String("file", cfg.GetViper().ConfigFileUsed()))

		for key, value := range opts.Overrides {
			cfg.GetViper().Set(key, value)
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	return container, nil
}
